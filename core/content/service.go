package content

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/elimusoft/elimu/core"
	"github.com/elimusoft/elimu/core/user"
)

var (
	// errors
	ErrNotFound      = errors.New("content not found")
	ErrNotApprovable = errors.New("content kind does not go through approval")
)

type (
	// Repository is the persistence boundary for all content kinds.
	// Generic operations are keyed by (Kind, ID) so the approval workflow
	// and moderation never switch on concrete types.
	Repository interface {
		GetMeta(ctx context.Context, kind Kind, id int) (Meta, error)
		SetLifecycle(ctx context.Context, kind Kind, id int, lc Lifecycle) error
		// DeleteItem hard-deletes the row; for tests this cascades questions.
		DeleteItem(ctx context.Context, kind Kind, id int) error
		QueryPending(ctx context.Context, kind Kind) ([]Meta, error)
		QueryPendingByAuthor(ctx context.Context, authorID int) ([]PendingItem, error)

		CreateLesson(ctx context.Context, lsn Lesson) (Lesson, error)
		GetLesson(ctx context.Context, id int) (Lesson, error)
		QueryLessons(ctx context.Context, filter Filter) ([]Lesson, error)

		CreateResource(ctx context.Context, res Resource) (Resource, error)
		GetResource(ctx context.Context, id int) (Resource, error)
		QueryResources(ctx context.Context, filter Filter) ([]Resource, error)

		CreateAnnouncement(ctx context.Context, ann Announcement) (Announcement, error)
		QueryAnnouncements(ctx context.Context) ([]Announcement, error)

		// CreateForumThread persists the thread and its opening post atomically.
		CreateForumThread(ctx context.Context, thr ForumThread, opening ForumPost) (ForumThread, error)
		GetForumThread(ctx context.Context, id int) (ForumThread, error)
		QueryForumThreads(ctx context.Context, subject string, filter Filter) ([]ForumThread, error)
		CreateForumPost(ctx context.Context, post ForumPost) (ForumPost, error)
		QueryForumPosts(ctx context.Context, threadID int) ([]ForumPost, error)

		CreateLessonComment(ctx context.Context, cmt LessonComment) (LessonComment, error)
		QueryLessonComments(ctx context.Context, lessonID int) ([]LessonComment, error)
	}

	// Notifier reacts to content transitions. Delivery is best-effort:
	// implementations must not fail the triggering operation.
	Notifier interface {
		ContentApproved(ctx context.Context, kind Kind, item Meta)
		AnnouncementCreated(ctx context.Context, ann Announcement)
	}

	Service struct {
		repo     Repository
		notifier Notifier
	}
)

// PendingItem is a queue entry on the moderator dashboard.
type PendingItem struct {
	Kind Kind `json:"kind"`
	Meta
}

func NewService(repo Repository, notifier Notifier) *Service {
	return &Service{repo: repo, notifier: notifier}
}

// Submissions

func (svc *Service) SubmitLesson(ctx context.Context, nl NewLesson, actor user.User) (Lesson, error) {
	if err := nl.Validate(); err != nil {
		return Lesson{}, err
	}
	lsn := Lesson{
		Meta: Meta{
			Title:     nl.Title,
			AuthorID:  actor.ID,
			Lifecycle: InitialLifecycle(actor),
			CreatedAt: time.Now().UTC(),
		},
		Content: nl.Content,
		Year:    nl.Year,
		Stream:  nl.Stream,
		Subject: nl.Subject,
	}
	lsn, err := svc.repo.CreateLesson(ctx, lsn)
	if err != nil {
		return Lesson{}, errors.Wrap(err, "creating lesson")
	}
	return lsn, nil
}

func (svc *Service) SubmitResource(ctx context.Context, nr NewResource, actor user.User) (Resource, error) {
	if err := nr.Validate(); err != nil {
		return Resource{}, err
	}
	res := Resource{
		Meta: Meta{
			Title:     nr.Title,
			AuthorID:  actor.ID,
			Lifecycle: InitialLifecycle(actor),
			CreatedAt: time.Now().UTC(),
		},
		Type:    ResourceType(nr.Type),
		URL:     nr.URL,
		Year:    nr.Year,
		Stream:  nr.Stream,
		Subject: nr.Subject,
	}
	res, err := svc.repo.CreateResource(ctx, res)
	if err != nil {
		return Resource{}, errors.Wrap(err, "creating resource")
	}
	return res, nil
}

// CreateAnnouncement publishes immediately (authoring is elevated-only)
// and fans a notification out to every active user.
func (svc *Service) CreateAnnouncement(ctx context.Context, na NewAnnouncement, actor user.User) (Announcement, error) {
	if !actor.Elevated() {
		return Announcement{}, core.ErrPermissionDenied
	}
	if err := na.Validate(); err != nil {
		return Announcement{}, err
	}
	ann := Announcement{
		Meta: Meta{
			Title:     na.Title,
			AuthorID:  actor.ID,
			Lifecycle: LifecycleActive,
			CreatedAt: time.Now().UTC(),
		},
		Content: na.Content,
	}
	ann, err := svc.repo.CreateAnnouncement(ctx, ann)
	if err != nil {
		return Announcement{}, errors.Wrap(err, "creating announcement")
	}
	svc.notifier.AnnouncementCreated(ctx, ann)
	return ann, nil
}

func (svc *Service) CreateForumThread(ctx context.Context, nt NewForumThread, actor user.User) (ForumThread, error) {
	if err := nt.Validate(); err != nil {
		return ForumThread{}, err
	}
	now := time.Now().UTC()
	thr := ForumThread{
		Meta: Meta{
			Title:     nt.Title,
			AuthorID:  actor.ID,
			Lifecycle: LifecycleActive, // forum is post-moderated
			CreatedAt: now,
		},
		Category: ThreadCategory(nt.Category),
		Subject:  nt.Subject,
		Year:     nt.Year,
		Stream:   nt.Stream,
	}
	opening := ForumPost{
		AuthorID:  actor.ID,
		Content:   nt.Content,
		Lifecycle: LifecycleActive,
		CreatedAt: now,
	}
	thr, err := svc.repo.CreateForumThread(ctx, thr, opening)
	if err != nil {
		return ForumThread{}, errors.Wrap(err, "creating forum thread")
	}
	return thr, nil
}

func (svc *Service) AddForumPost(ctx context.Context, threadID int, np NewForumPost, actor user.User) (ForumPost, error) {
	if err := np.Validate(); err != nil {
		return ForumPost{}, err
	}
	thr, err := svc.repo.GetForumThread(ctx, threadID)
	if err != nil {
		return ForumPost{}, err
	}
	if thr.Removed() {
		return ForumPost{}, ErrNotFound
	}
	post := ForumPost{
		ThreadID:  thr.ID,
		AuthorID:  actor.ID,
		Content:   np.Content,
		Lifecycle: LifecycleActive,
		CreatedAt: time.Now().UTC(),
	}
	post, err = svc.repo.CreateForumPost(ctx, post)
	if err != nil {
		return ForumPost{}, errors.Wrap(err, "creating forum post")
	}
	return post, nil
}

func (svc *Service) AddLessonComment(ctx context.Context, lessonID int, nc NewLessonComment, actor user.User) (LessonComment, error) {
	if err := nc.Validate(); err != nil {
		return LessonComment{}, err
	}
	lsn, err := svc.repo.GetLesson(ctx, lessonID)
	if err != nil {
		return LessonComment{}, err
	}
	if lsn.Removed() {
		return LessonComment{}, ErrNotFound
	}
	cmt := LessonComment{
		LessonID:  lsn.ID,
		AuthorID:  actor.ID,
		Content:   nc.Content,
		Lifecycle: LifecycleActive,
		CreatedAt: time.Now().UTC(),
	}
	cmt, err = svc.repo.CreateLessonComment(ctx, cmt)
	if err != nil {
		return LessonComment{}, errors.Wrap(err, "creating lesson comment")
	}
	return cmt, nil
}

func (svc *Service) LessonComments(ctx context.Context, lessonID int) ([]LessonComment, error) {
	lsn, err := svc.repo.GetLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if lsn.Removed() {
		return nil, ErrNotFound
	}
	return svc.repo.QueryLessonComments(ctx, lessonID)
}

// Listings

func (svc *Service) Lessons(ctx context.Context, filter Filter) ([]Lesson, error) {
	return svc.repo.QueryLessons(ctx, filter)
}

func (svc *Service) Lesson(ctx context.Context, id int) (Lesson, error) {
	lsn, err := svc.repo.GetLesson(ctx, id)
	if err != nil {
		return Lesson{}, err
	}
	if lsn.Removed() {
		return Lesson{}, ErrNotFound
	}
	return lsn, nil
}

func (svc *Service) Resources(ctx context.Context, filter Filter) ([]Resource, error) {
	return svc.repo.QueryResources(ctx, filter)
}

func (svc *Service) Announcements(ctx context.Context) ([]Announcement, error) {
	return svc.repo.QueryAnnouncements(ctx)
}

func (svc *Service) ForumThreads(ctx context.Context, subject string, filter Filter) ([]ForumThread, error) {
	return svc.repo.QueryForumThreads(ctx, subject, filter)
}

func (svc *Service) ForumThread(ctx context.Context, id int) (ForumThread, []ForumPost, error) {
	thr, err := svc.repo.GetForumThread(ctx, id)
	if err != nil {
		return ForumThread{}, nil, err
	}
	if thr.Removed() {
		return ForumThread{}, nil, ErrNotFound
	}
	posts, err := svc.repo.QueryForumPosts(ctx, thr.ID)
	if err != nil {
		return ForumThread{}, nil, errors.Wrap(err, "querying forum posts")
	}
	return thr, posts, nil
}

// PendingQueue lists all items awaiting approval; moderators only.
func (svc *Service) PendingQueue(ctx context.Context, actor user.User) ([]PendingItem, error) {
	if !actor.Elevated() {
		return nil, core.ErrPermissionDenied
	}
	var queue []PendingItem
	for _, kind := range AllKinds {
		if !kind.Approvable() {
			continue
		}
		metas, err := svc.repo.QueryPending(ctx, kind)
		if err != nil {
			return nil, errors.Wrapf(err, "querying pending %s items", kind)
		}
		for _, m := range metas {
			queue = append(queue, PendingItem{Kind: kind, Meta: m})
		}
	}
	return queue, nil
}

// OwnPending lists the actor's submissions still awaiting approval.
func (svc *Service) OwnPending(ctx context.Context, actor user.User) ([]PendingItem, error) {
	return svc.repo.QueryPendingByAuthor(ctx, actor.ID)
}

// Approval workflow

// Approve transitions pending -> active. It is idempotent: approving an
// already-active item succeeds without firing a second notification. The
// prior lifecycle is read explicitly so only the real pending -> active
// edge notifies.
func (svc *Service) Approve(ctx context.Context, kind Kind, id int, actor user.User) (Meta, error) {
	if !actor.Elevated() {
		return Meta{}, core.ErrPermissionDenied
	}
	if !kind.Approvable() {
		return Meta{}, ErrNotApprovable
	}
	prior, err := svc.repo.GetMeta(ctx, kind, id)
	if err != nil {
		return Meta{}, err
	}
	if prior.Removed() {
		return Meta{}, ErrNotFound
	}
	if prior.Lifecycle == LifecycleActive {
		return prior, nil // already approved
	}
	if err := svc.repo.SetLifecycle(ctx, kind, id, LifecycleActive); err != nil {
		return Meta{}, errors.Wrapf(err, "approving %s %d", kind, id)
	}
	approved := prior
	approved.Lifecycle = LifecycleActive
	svc.notifier.ContentApproved(ctx, kind, approved)
	return approved, nil
}

// Reject hard-deletes the submission. There is deliberately no rejected
// state and no notification: the row (questions included, for tests) is gone.
func (svc *Service) Reject(ctx context.Context, kind Kind, id int, actor user.User) error {
	if !actor.Elevated() {
		return core.ErrPermissionDenied
	}
	if !kind.Approvable() {
		return ErrNotApprovable
	}
	meta, err := svc.repo.GetMeta(ctx, kind, id)
	if err != nil {
		return err
	}
	if meta.Removed() {
		return ErrNotFound
	}
	return errors.Wrapf(svc.repo.DeleteItem(ctx, kind, id), "rejecting %s %d", kind, id)
}

// Remove soft-deletes an item; permitted to its author and to admins.
// Terminal: there is no un-remove path.
func (svc *Service) Remove(ctx context.Context, kind Kind, id int, actor user.User) error {
	meta, err := svc.repo.GetMeta(ctx, kind, id)
	if err != nil {
		return err
	}
	if meta.Removed() {
		return ErrNotFound
	}
	if !(actor.IsAdmin() || actor.ID == meta.AuthorID) {
		return core.ErrPermissionDenied
	}
	return errors.Wrapf(svc.repo.SetLifecycle(ctx, kind, id, LifecycleRemoved), "removing %s %d", kind, id)
}

// Meta is the moderation hook: it resolves any content target without
// permission checks, which live with the moderation service.
func (svc *Service) Meta(ctx context.Context, kind Kind, id int) (Meta, error) {
	return svc.repo.GetMeta(ctx, kind, id)
}
