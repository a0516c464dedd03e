package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/elimusoft/elimu/core/content"
	"github.com/elimusoft/elimu/core/user"
)

type contentApi struct {
	svc    *content.Service
	usrSvc *user.Service
}

func registerContentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *content.Service, usrSvc *user.Service) {
	api := contentApi{svc: svc, usrSvc: usrSvc}

	cg := g.Group("/content", jwt)

	cg.GET("/lessons", api.queryLessons)
	cg.POST("/lessons", api.submitLesson)
	cg.GET("/lessons/:id", api.retrieveLesson)
	cg.GET("/lessons/:id/comments", api.lessonComments)
	cg.POST("/lessons/:id/comments", api.addLessonComment)

	cg.GET("/resources", api.queryResources)
	cg.POST("/resources", api.submitResource)

	cg.GET("/announcements", api.queryAnnouncements)
	cg.POST("/announcements", api.createAnnouncement, elevatedMiddleware)

	cg.GET("/forum/threads", api.queryThreads)
	cg.POST("/forum/threads", api.createThread)
	cg.GET("/forum/threads/:id", api.retrieveThread)
	cg.POST("/forum/threads/:id/posts", api.addPost)

	// approval workflow
	cg.GET("/pending", api.pendingQueue, elevatedMiddleware)
	cg.GET("/pending/mine", api.ownPending)
	cg.POST("/:kind/:id/approve", api.approve, elevatedMiddleware)
	cg.POST("/:kind/:id/reject", api.reject, elevatedMiddleware)
	// authorization lives in content.Service.Remove (author or admin)
	cg.DELETE("/:kind/:id", api.remove)
}

// Handlers

func (api *contentApi) submitLesson(ctx echo.Context) error {
	var data content.NewLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLesson")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	lesson, err := api.svc.SubmitLesson(ctx.Request().Context(), data, actor)
	if err != nil {
		return errors.Wrap(err, "submitting lesson")
	}
	return ctx.JSON(http.StatusCreated, lesson)
}

func (api *contentApi) queryLessons(ctx echo.Context) error {
	filter, err := bindContentFilter(ctx)
	if err != nil {
		return err
	}

	lessons, err := api.svc.Lessons(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying lessons")
	}
	if lessons == nil {
		lessons = []content.Lesson{}
	}
	return ctx.JSON(http.StatusOK, lessons)
}

func (api *contentApi) retrieveLesson(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}
	lesson, err := api.svc.Lesson(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "retrieving lesson")
	}
	return ctx.JSON(http.StatusOK, lesson)
}

func (api *contentApi) submitResource(ctx echo.Context) error {
	var data content.NewResource
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewResource")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	res, err := api.svc.SubmitResource(ctx.Request().Context(), data, actor)
	if err != nil {
		return errors.Wrap(err, "submitting resource")
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *contentApi) queryResources(ctx echo.Context) error {
	filter, err := bindContentFilter(ctx)
	if err != nil {
		return err
	}

	resources, err := api.svc.Resources(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying resources")
	}
	if resources == nil {
		resources = []content.Resource{}
	}
	return ctx.JSON(http.StatusOK, resources)
}

func (api *contentApi) createAnnouncement(ctx echo.Context) error {
	var data content.NewAnnouncement
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAnnouncement")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	ann, err := api.svc.CreateAnnouncement(ctx.Request().Context(), data, actor)
	if err != nil {
		return errors.Wrap(err, "creating announcement")
	}
	return ctx.JSON(http.StatusCreated, ann)
}

func (api *contentApi) queryAnnouncements(ctx echo.Context) error {
	anns, err := api.svc.Announcements(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying announcements")
	}
	if anns == nil {
		anns = []content.Announcement{}
	}
	return ctx.JSON(http.StatusOK, anns)
}

func (api *contentApi) createThread(ctx echo.Context) error {
	var data content.NewForumThread
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewForumThread")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	thread, err := api.svc.CreateForumThread(ctx.Request().Context(), data, actor)
	if err != nil {
		return errors.Wrap(err, "creating forum thread")
	}
	return ctx.JSON(http.StatusCreated, thread)
}

func (api *contentApi) queryThreads(ctx echo.Context) error {
	filter, err := bindContentFilter(ctx)
	if err != nil {
		return err
	}
	subject := ctx.QueryParam("subject")

	threads, err := api.svc.ForumThreads(ctx.Request().Context(), subject, filter)
	if err != nil {
		return errors.Wrap(err, "querying forum threads")
	}
	if threads == nil {
		threads = []content.ForumThread{}
	}
	return ctx.JSON(http.StatusOK, threads)
}

func (api *contentApi) retrieveThread(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}

	thread, posts, err := api.svc.ForumThread(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "retrieving forum thread")
	}
	if posts == nil {
		posts = []content.ForumPost{}
	}
	return ctx.JSON(http.StatusOK, ThreadDetailResponse{Thread: thread, Posts: posts})
}

func (api *contentApi) addPost(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}

	var data content.NewForumPost
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewForumPost")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	post, err := api.svc.AddForumPost(ctx.Request().Context(), id, data, actor)
	if err != nil {
		return errors.Wrap(err, "adding forum post")
	}
	return ctx.JSON(http.StatusCreated, post)
}

func (api *contentApi) lessonComments(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}

	comments, err := api.svc.LessonComments(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "querying lesson comments")
	}
	if comments == nil {
		comments = []content.LessonComment{}
	}
	return ctx.JSON(http.StatusOK, comments)
}

func (api *contentApi) addLessonComment(ctx echo.Context) error {
	id, err := intParam(ctx, "id")
	if err != nil {
		return err
	}

	var data content.NewLessonComment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLessonComment")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	cmt, err := api.svc.AddLessonComment(ctx.Request().Context(), id, data, actor)
	if err != nil {
		return errors.Wrap(err, "adding lesson comment")
	}
	return ctx.JSON(http.StatusCreated, cmt)
}

func (api *contentApi) pendingQueue(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	items, err := api.svc.PendingQueue(ctx.Request().Context(), actor)
	if err != nil {
		return errors.Wrap(err, "querying pending queue")
	}
	if items == nil {
		items = []content.PendingItem{}
	}
	return ctx.JSON(http.StatusOK, items)
}

func (api *contentApi) ownPending(ctx echo.Context) error {
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	items, err := api.svc.OwnPending(ctx.Request().Context(), actor)
	if err != nil {
		return errors.Wrap(err, "querying own pending items")
	}
	if items == nil {
		items = []content.PendingItem{}
	}
	return ctx.JSON(http.StatusOK, items)
}

func (api *contentApi) approve(ctx echo.Context) error {
	kind, id, err := kindIDParams(ctx)
	if err != nil {
		return err
	}
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	meta, err := api.svc.Approve(ctx.Request().Context(), kind, id, actor)
	if err != nil {
		return errors.Wrap(err, "approving content")
	}
	return ctx.JSON(http.StatusOK, meta)
}

func (api *contentApi) reject(ctx echo.Context) error {
	kind, id, err := kindIDParams(ctx)
	if err != nil {
		return err
	}
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.svc.Reject(ctx.Request().Context(), kind, id, actor); err != nil {
		return errors.Wrap(err, "rejecting content")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *contentApi) remove(ctx echo.Context) error {
	kind, id, err := kindIDParams(ctx)
	if err != nil {
		return err
	}
	actor, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.svc.Remove(ctx.Request().Context(), kind, id, actor); err != nil {
		return errors.Wrap(err, "removing content")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Helpers

func intParam(ctx echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(ctx.Param(name))
	if err != nil {
		return 0, errHttpNotFound
	}
	return id, nil
}

func kindIDParams(ctx echo.Context) (content.Kind, int, error) {
	kind := content.Kind(ctx.Param("kind"))
	if !kind.Valid() {
		return "", 0, errHttpNotFound
	}
	id, err := intParam(ctx, "id")
	if err != nil {
		return "", 0, err
	}
	return kind, id, nil
}

func bindContentFilter(ctx echo.Context) (content.Filter, error) {
	var filter content.Filter
	if err := ctx.Bind(&filter); err != nil {
		return content.Filter{}, errors.Wrap(err, "binding to content.Filter")
	}
	return filter, nil
}

type ThreadDetailResponse struct {
	Thread content.ForumThread `json:"thread"`
	Posts  []content.ForumPost `json:"posts"`
}
