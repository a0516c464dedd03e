package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/elimusoft/elimu/core/quiz"
	"github.com/elimusoft/elimu/core/user"
)

type quizApi struct {
	svc    *quiz.Service
	usrSvc *user.Service
}

func registerQuizAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *quiz.Service, usrSvc *user.Service) {
	api := quizApi{svc: svc, usrSvc: usrSvc}

	tg := g.Group("/tests", jwt)

	tg.GET("", api.queryTests)
	tg.POST("", api.createTest, elevatedMiddleware)
	tg.GET("/:id", api.retrieveTest)
	tg.GET("/:id/questions", api.queryQuestions)
	tg.POST("/:id/questions", api.addQuestion, elevatedMiddleware)
	tg.POST("/:id/submit", api.submitTest)
	tg.GET("/:id/analytics", api.analytics, elevatedMiddleware)

	rg := g.Group("/results", jwt)
	rg.GET("", api.queryOwnResults)
	rg.GET("/:id", api.retrieveResult)
	rg.POST("/:id/feedback", api.addFeedback, elevatedMiddleware)
}

// Handlers

func (api *quizApi) createTest(ctx echo.Context) error {
	var data quiz.NewTest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	tst, err := api.svc.CreateTest(ctx.Request().Context(), data, actor)
	if err != nil {
		return errors.Wrap(err, "creating test")
	}
	return ctx.JSON(http.StatusCreated, tst)
}

func (api *quizApi) queryTests(ctx echo.Context) error {
	filter, err := bindContentFilter(ctx)
	if err != nil {
		return err
	}

	tests, err := api.svc.Tests(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying tests")
	}
	if tests == nil {
		tests = []quiz.Test{}
	}
	return ctx.JSON(http.StatusOK, tests)
}

func (api *quizApi) retrieveTest(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	tst, err := api.svc.Test(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "retrieving test")
	}
	return ctx.JSON(http.StatusOK, tst)
}

func (api *quizApi) queryQuestions(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	questions, err := api.svc.Questions(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "querying questions")
	}
	if questions == nil {
		questions = []quiz.Question{}
	}
	return ctx.JSON(http.StatusOK, questions)
}

func (api *quizApi) addQuestion(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}

	var data quiz.NewQuestion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuestion")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	qst, err := api.svc.AddQuestion(ctx.Request().Context(), id, data, actor)
	if err != nil {
		return errors.Wrap(err, "adding question")
	}
	return ctx.JSON(http.StatusCreated, qst)
}

func (api *quizApi) submitTest(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}

	var data quiz.Submission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Submission")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	student, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	res, err := api.svc.SubmitTest(ctx.Request().Context(), id, data.Answers, student)
	if err != nil {
		return errors.Wrap(err, "submitting test")
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *quizApi) queryOwnResults(ctx echo.Context) error {
	student, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	results, err := api.svc.ResultsForStudent(ctx.Request().Context(), student)
	if err != nil {
		return errors.Wrap(err, "querying results")
	}
	if results == nil {
		results = []quiz.Result{}
	}
	return ctx.JSON(http.StatusOK, results)
}

func (api *quizApi) retrieveResult(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	res, err := api.svc.Result(ctx.Request().Context(), id, actor)
	if err != nil {
		return errors.Wrap(err, "retrieving result")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *quizApi) addFeedback(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}

	var data quiz.Feedback
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Feedback")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	res, err := api.svc.AddFeedback(ctx.Request().Context(), id, data, actor)
	if err != nil {
		return errors.Wrap(err, "adding feedback")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *quizApi) analytics(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	stats, err := api.svc.Analytics(ctx.Request().Context(), id, actor)
	if err != nil {
		return errors.Wrap(err, "computing test analytics")
	}
	return ctx.JSON(http.StatusOK, stats)
}
