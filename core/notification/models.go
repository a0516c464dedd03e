package notification

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// Notification is only ever created by the dispatcher in reaction to state
// transitions elsewhere; no user action creates one directly.
type Notification struct {
	ID             int       `json:"id"`
	RecipientID    int       `json:"recipient_id"`
	AnnouncementID null.Int  `json:"announcement_id,omitempty"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	Link           string    `json:"link,omitempty"`
	IsRead         bool      `json:"is_read"`
	Removed        bool      `json:"-"`
	CreatedAt      time.Time `json:"created_at"` // UTC
}
