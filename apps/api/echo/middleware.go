package echoapi

import (
	"github.com/labstack/echo/v4"
)

// elevatedMiddleware restricts a route to teachers and admins.
func elevatedMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return err
		}
		if !claims.Elevated() {
			return errHttpForbidden
		}
		return next(ctx)
	}
}

// adminMiddleware restricts a route to admins.
func adminMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return err
		}
		if !claims.IsAdmin {
			return errHttpForbidden
		}
		return next(ctx)
	}
}
