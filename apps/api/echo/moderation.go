package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/elimusoft/elimu/core/moderation"
	"github.com/elimusoft/elimu/core/user"
)

type moderationApi struct {
	svc    *moderation.Service
	usrSvc *user.Service
}

func registerModerationAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *moderation.Service, usrSvc *user.Service) {
	api := moderationApi{svc: svc, usrSvc: usrSvc}

	rg := g.Group("/reports", jwt)

	rg.POST("/:kind/:id", api.fileReport)
	rg.GET("", api.query, elevatedMiddleware)
	rg.GET("/:id", api.retrieve, elevatedMiddleware)
	rg.POST("/:id/act", api.act, elevatedMiddleware)
}

// Handlers

func (api *moderationApi) fileReport(ctx echo.Context) error {
	target := moderation.Target{Kind: moderation.TargetKind(ctx.Param("kind"))}
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	target.ID = id

	var data moderation.NewReport
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReport")
	}

	reporter, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	rep, err := api.svc.FileReport(ctx.Request().Context(), target, data, reporter)
	if err != nil {
		return errors.Wrap(err, "filing report")
	}
	return ctx.JSON(http.StatusCreated, rep)
}

func (api *moderationApi) query(ctx echo.Context) error {
	status := moderation.Status(ctx.QueryParam("status"))
	if status == "" {
		status = moderation.StatusPending
	}

	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	reports, err := api.svc.Reports(ctx.Request().Context(), status, actor)
	if err != nil {
		return errors.Wrap(err, "querying reports")
	}
	if reports == nil {
		reports = []moderation.Report{}
	}
	return ctx.JSON(http.StatusOK, reports)
}

func (api *moderationApi) retrieve(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	rep, err := api.svc.Report(ctx.Request().Context(), id, actor)
	if err != nil {
		return errors.Wrap(err, "retrieving report")
	}
	return ctx.JSON(http.StatusOK, rep)
}

func (api *moderationApi) act(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}

	var data moderation.ActionInput
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ActionInput")
	}

	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	rep, err := api.svc.Act(ctx.Request().Context(), id, data, actor)
	if err != nil {
		return errors.Wrap(err, "acting on report")
	}
	return ctx.JSON(http.StatusOK, rep)
}
