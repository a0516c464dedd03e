package content

import (
	"time"

	"github.com/elimusoft/elimu/core"
	"github.com/elimusoft/elimu/core/user"
)

// Kind tags every content variant; moderation and the approval queue
// address items as (Kind, ID) pairs instead of probing attributes at runtime.
type Kind string

const (
	KindLesson        Kind = "lesson"
	KindTest          Kind = "test"
	KindResource      Kind = "resource"
	KindForumThread   Kind = "forum_thread"
	KindForumPost     Kind = "forum_post"
	KindAnnouncement  Kind = "announcement"
	KindChatMessage   Kind = "chat_message"
	KindLessonComment Kind = "lesson_comment"
)

var AllKinds = []Kind{
	KindLesson, KindTest, KindResource,
	KindForumThread, KindForumPost, KindAnnouncement, KindChatMessage,
	KindLessonComment,
}

func (k Kind) Valid() bool {
	for _, kind := range AllKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Approvable reports whether items of this kind go through the approval
// queue. Forum and chat content is post-moderated instead.
func (k Kind) Approvable() bool {
	switch k {
	case KindLesson, KindTest, KindResource:
		return true
	}
	return false
}

// Lifecycle is the single tagged state of a content item. Rejection is a
// hard delete and therefore has no state of its own: a rejected row is gone.
type Lifecycle string

const (
	LifecyclePending Lifecycle = "pending_approval"
	LifecycleActive  Lifecycle = "active"
	LifecycleRemoved Lifecycle = "removed" // soft-deleted, terminal
)

// InitialLifecycle applies the submission rule: elevated actors
// (teachers, admins) publish immediately, everyone else queues for approval.
func InitialLifecycle(actor user.User) Lifecycle {
	if actor.Elevated() {
		return LifecycleActive
	}
	return LifecyclePending
}

// Meta is the part of a content item every kind shares; the approval
// workflow and moderation operate on it without knowing the variant.
type Meta struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	AuthorID  int       `json:"author_id"`
	Lifecycle Lifecycle `json:"lifecycle"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

func (m Meta) Visible() bool { return m.Lifecycle == LifecycleActive }
func (m Meta) Removed() bool { return m.Lifecycle == LifecycleRemoved }

type Lesson struct {
	Meta
	Content string `json:"content"`
	Year    int    `json:"year,omitempty"`
	Stream  string `json:"stream,omitempty"`
	Subject string `json:"subject,omitempty"`
}

type ResourceType string

const (
	ResourcePDF   ResourceType = "pdf"
	ResourceVideo ResourceType = "video"
	ResourceLink  ResourceType = "link"
)

type Resource struct {
	Meta
	Type    ResourceType `json:"type"`
	URL     string       `json:"url,omitempty"`
	Year    int          `json:"year,omitempty"`
	Stream  string       `json:"stream,omitempty"`
	Subject string       `json:"subject,omitempty"`
}

type Announcement struct {
	Meta
	Content string `json:"content"`
}

type ThreadCategory string

const (
	CategoryQuestion   ThreadCategory = "question"
	CategoryDiscussion ThreadCategory = "discussion"
	CategoryResource   ThreadCategory = "resource"
)

type ForumThread struct {
	Meta
	Category ThreadCategory `json:"category"`
	Subject  string         `json:"subject"`
	Year     int            `json:"year,omitempty"`
	Stream   string         `json:"stream,omitempty"`
}

type ForumPost struct {
	ID        int       `json:"id"`
	ThreadID  int       `json:"thread_id"`
	AuthorID  int       `json:"author_id"`
	Content   string    `json:"content"`
	Lifecycle Lifecycle `json:"lifecycle"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// LessonComment hangs discussion off a published lesson. Like forum
// posts, comments are post-moderated and go live immediately.
type LessonComment struct {
	ID        int       `json:"id"`
	LessonID  int       `json:"lesson_id"`
	AuthorID  int       `json:"author_id"`
	Content   string    `json:"content"`
	Lifecycle Lifecycle `json:"lifecycle"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

type ChatMessage struct {
	ID        int       `json:"id"`
	AuthorID  int       `json:"author_id"`
	Year      int       `json:"year"`
	Stream    string    `json:"stream"`
	Message   string    `json:"message"`
	Lifecycle Lifecycle `json:"lifecycle"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// Filter narrows content listings; zero values are ignored.
type Filter struct {
	Year    int    `query:"year"`
	Stream  string `query:"stream"`
	Subject string `query:"subject"`
}

// Input DTOs

type NewLesson struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"required"`
	Year    int    `json:"year" validate:"omitempty,min=1,max=3"`
	Stream  string `json:"stream"`
	Subject string `json:"subject"`
}

func (nl *NewLesson) Validate() error {
	nl.Title = core.CleanString(nl.Title)
	return core.Validate.Struct(nl)
}

type NewResource struct {
	Title   string `json:"title" validate:"required,max=200"`
	Type    string `json:"type" validate:"required,oneof=pdf video link"`
	URL     string `json:"url" validate:"omitempty,url"`
	Year    int    `json:"year" validate:"omitempty,min=1,max=3"`
	Stream  string `json:"stream"`
	Subject string `json:"subject"`
}

func (nr *NewResource) Validate() error {
	nr.Title = core.CleanString(nr.Title)
	nr.URL = core.CleanString(nr.URL)
	return core.Validate.Struct(nr)
}

type NewAnnouncement struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"required"`
}

func (na *NewAnnouncement) Validate() error {
	na.Title = core.CleanString(na.Title)
	return core.Validate.Struct(na)
}

type NewForumThread struct {
	Title    string `json:"title" validate:"required,max=200"`
	Category string `json:"category" validate:"required,oneof=question discussion resource"`
	Subject  string `json:"subject" validate:"required"`
	Year     int    `json:"year" validate:"omitempty,min=1,max=3"`
	Stream   string `json:"stream"`
	Content  string `json:"content" validate:"required"` // body of the opening post
}

func (nt *NewForumThread) Validate() error {
	nt.Title = core.CleanString(nt.Title)
	return core.Validate.Struct(nt)
}

type NewForumPost struct {
	Content string `json:"content" validate:"required"`
}

func (np *NewForumPost) Validate() error {
	np.Content = core.CleanString(np.Content)
	return core.Validate.Struct(np)
}

type NewLessonComment struct {
	Content string `json:"content" validate:"required"`
}

func (nc *NewLessonComment) Validate() error {
	nc.Content = core.CleanString(nc.Content)
	return core.Validate.Struct(nc)
}
