package notification

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/elimusoft/elimu/core"
	"github.com/elimusoft/elimu/core/content"
	"github.com/elimusoft/elimu/core/user"
)

var (
	// errors
	ErrNotFound = errors.New("notification not found")
)

type (
	Repository interface {
		CreateNotification(ctx context.Context, notif Notification) (Notification, error)
		// CreateNotifications bulk-inserts a fan-out batch.
		CreateNotifications(ctx context.Context, notifs []Notification) error
		GetNotification(ctx context.Context, id int) (Notification, error)
		QueryNotificationsByRecipient(ctx context.Context, recipientID int) ([]Notification, error)
		CountUnread(ctx context.Context, recipientID int) (int, error)
		MarkNotificationRead(ctx context.Context, id int) error
		RemoveNotification(ctx context.Context, id int) error
	}

	// Service is the notification dispatcher plus its read model. Dispatch
	// is best-effort by contract: a failed write is logged and swallowed so
	// the triggering business transaction never rolls back over it.
	Service struct {
		repo    Repository
		usrSvc  *user.Service
		mailSvc core.EmailService
		logger  core.Logger
	}
)

var _ content.Notifier = (*Service)(nil)

func NewService(repo Repository, usrSvc *user.Service, mailSvc core.EmailService, logger core.Logger) *Service {
	return &Service{
		repo:    repo,
		usrSvc:  usrSvc,
		mailSvc: mailSvc,
		logger:  logger,
	}
}

// Dispatch triggers

// ContentApproved emits one notification to the item's author on the
// pending -> approved edge.
func (svc *Service) ContentApproved(ctx context.Context, kind content.Kind, item content.Meta) {
	notif := Notification{
		RecipientID: item.AuthorID,
		Title:       "Content Approved",
		Message:     fmt.Sprintf("Your %s '%s' has been approved and is now live.", kindLabel(kind), item.Title),
		Link:        contentLink(kind, item.ID),
		CreatedAt:   time.Now().UTC(),
	}
	svc.dispatch(ctx, notif)
}

// AnnouncementCreated fans one notification out to every active user.
// N active users means N rows; fine at this scale.
func (svc *Service) AnnouncementCreated(ctx context.Context, ann content.Announcement) {
	recipients, err := svc.usrSvc.QueryActive(ctx)
	if err != nil {
		svc.logger.Error("announcement fan-out: querying recipients", err)
		return
	}
	now := time.Now().UTC()
	notifs := make([]Notification, 0, len(recipients))
	for _, usr := range recipients {
		notifs = append(notifs, Notification{
			RecipientID:    usr.ID,
			AnnouncementID: null.IntFrom(ann.ID),
			Title:          "New Announcement",
			Message:        fmt.Sprintf("New announcement: %s", ann.Title),
			Link:           "/",
			CreatedAt:      now,
		})
	}
	if err := svc.repo.CreateNotifications(ctx, notifs); err != nil {
		svc.logger.Error("announcement fan-out: creating notifications", err)
	}
}

// AuthorWarned notifies a user that a moderator issued a warning about
// them or one of their items; `about` is a human label such as
// "your lesson 'Algebra I'".
func (svc *Service) AuthorWarned(ctx context.Context, author user.User, about string) {
	notif := Notification{
		RecipientID: author.ID,
		Title:       "Moderation Warning",
		Message:     fmt.Sprintf("A moderator has issued a warning about %s. Please review the community guidelines.", about),
		CreatedAt:   time.Now().UTC(),
	}
	svc.dispatch(ctx, notif)
}

// dispatch persists the notification and mirrors it to email; both are
// best-effort.
func (svc *Service) dispatch(ctx context.Context, notif Notification) {
	created, err := svc.repo.CreateNotification(ctx, notif)
	if err != nil {
		svc.logger.Error("dispatching notification", err)
		return
	}
	svc.email(ctx, created)
}

func (svc *Service) email(ctx context.Context, notif Notification) {
	if svc.mailSvc == nil {
		return
	}
	usr, err := svc.usrSvc.GetByID(ctx, notif.RecipientID)
	if err != nil || usr.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject: notif.Title,
		BodyStr: notif.Message,
	})
}

// Read model

func (svc *Service) ForRecipient(ctx context.Context, actor user.User) ([]Notification, error) {
	return svc.repo.QueryNotificationsByRecipient(ctx, actor.ID)
}

func (svc *Service) UnreadCount(ctx context.Context, actor user.User) (int, error) {
	return svc.repo.CountUnread(ctx, actor.ID)
}

// MarkRead flags the notification read and returns it so the caller can
// follow its link; recipients may only touch their own.
func (svc *Service) MarkRead(ctx context.Context, id int, actor user.User) (Notification, error) {
	notif, err := svc.repo.GetNotification(ctx, id)
	if err != nil {
		return Notification{}, err
	}
	if notif.RecipientID != actor.ID || notif.Removed {
		return Notification{}, ErrNotFound
	}
	if err := svc.repo.MarkNotificationRead(ctx, notif.ID); err != nil {
		return Notification{}, errors.Wrap(err, "marking notification read")
	}
	notif.IsRead = true
	return notif, nil
}

func (svc *Service) Remove(ctx context.Context, id int, actor user.User) error {
	notif, err := svc.repo.GetNotification(ctx, id)
	if err != nil {
		return err
	}
	if notif.RecipientID != actor.ID || notif.Removed {
		return ErrNotFound
	}
	return errors.Wrap(svc.repo.RemoveNotification(ctx, notif.ID), "removing notification")
}

func kindLabel(kind content.Kind) string {
	switch kind {
	case content.KindForumThread:
		return "forum thread"
	case content.KindForumPost:
		return "forum post"
	case content.KindChatMessage:
		return "chat message"
	default:
		return string(kind)
	}
}

func contentLink(kind content.Kind, id int) string {
	switch kind {
	case content.KindLesson:
		return fmt.Sprintf("/v1/content/lessons/%d", id)
	case content.KindTest:
		return fmt.Sprintf("/v1/tests/%d", id)
	case content.KindResource:
		return "/v1/content/resources"
	default:
		return "/"
	}
}
