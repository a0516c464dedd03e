package moderation

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/elimusoft/elimu/core"
	"github.com/elimusoft/elimu/core/content"
)

// TargetKind enumerates everything a report may point at: every content
// kind plus user accounts. Capabilities are declared per kind instead of
// probed off the target at runtime.
type TargetKind string

const (
	TargetLesson        = TargetKind(content.KindLesson)
	TargetTest          = TargetKind(content.KindTest)
	TargetResource      = TargetKind(content.KindResource)
	TargetForumThread   = TargetKind(content.KindForumThread)
	TargetForumPost     = TargetKind(content.KindForumPost)
	TargetAnnouncement  = TargetKind(content.KindAnnouncement)
	TargetChatMessage   = TargetKind(content.KindChatMessage)
	TargetLessonComment = TargetKind(content.KindLessonComment)
	TargetUser          = TargetKind("user")
)

var AllTargetKinds = []TargetKind{
	TargetLesson, TargetTest, TargetResource, TargetForumThread,
	TargetForumPost, TargetAnnouncement, TargetChatMessage,
	TargetLessonComment, TargetUser,
}

func (k TargetKind) Valid() bool {
	for _, kind := range AllTargetKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// SupportsRemoval reports whether the hide action applies: accounts have
// no removed flag, everything else soft-deletes.
func (k TargetKind) SupportsRemoval() bool {
	return k != TargetUser && k.Valid()
}

// ContentKind maps the target kind back onto the content enum; false for
// user targets.
func (k TargetKind) ContentKind() (content.Kind, bool) {
	if k == TargetUser || !k.Valid() {
		return "", false
	}
	return content.Kind(k), true
}

// Target is the tagged reference a report carries: a kind plus an id.
type Target struct {
	Kind TargetKind `json:"kind"`
	ID   int        `json:"id"`
}

type Reason string

const (
	ReasonSpam     Reason = "spam"
	ReasonAbuse    Reason = "abuse"
	ReasonOffTopic Reason = "off_topic"
	ReasonOther    Reason = "other"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusResolved  Status = "resolved"  // action taken
	StatusDismissed Status = "dismissed" // no action
)

type Action string

const (
	ActionDismiss Action = "dismiss"
	ActionHide    Action = "hide"
	ActionSuspend Action = "suspend"
	ActionWarn    Action = "warn"
)

// Report is created pending and transitions exactly once to a terminal
// status under a moderator action; at most one exists per (reporter, target).
type Report struct {
	ID            int       `json:"id"`
	ReporterID    int       `json:"reporter_id"`
	Target        Target    `json:"target"`
	Reason        Reason    `json:"reason"`
	Description   string    `json:"description,omitempty"`
	Status        Status    `json:"status"`
	ModeratorID   null.Int  `json:"moderator_id,omitempty"`
	ModeratorNote string    `json:"moderator_note,omitempty"`
	CreatedAt     time.Time `json:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at"` // UTC
}

// Input DTOs

type NewReport struct {
	Reason      string `json:"reason" validate:"required,oneof=spam abuse off_topic other"`
	Description string `json:"description"`
}

func (nr *NewReport) Validate() error {
	nr.Description = core.CleanString(nr.Description)
	return core.Validate.Struct(nr)
}

type ActionInput struct {
	Action string `json:"action" validate:"required,oneof=dismiss hide suspend warn"`
	Days   int    `json:"days" validate:"omitempty,min=1,max=365"` // suspend only
	Note   string `json:"note"`
}

func (ai *ActionInput) Validate() error {
	ai.Note = core.CleanString(ai.Note)
	return core.Validate.Struct(ai)
}
