package notification_test

import (
	"context"
	"log"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/elimusoft/elimu/core"
	"github.com/elimusoft/elimu/core/content"
	"github.com/elimusoft/elimu/core/notification"
	"github.com/elimusoft/elimu/core/user"
	emailsvc "github.com/elimusoft/elimu/services/email"
	dummydb "github.com/elimusoft/elimu/storage/database/dummy"
	testutil "github.com/elimusoft/elimu/tests"
)

type fixture struct {
	svc     *notification.Service
	repo    notification.Repository
	usrRepo user.Repository
}

func setup(t *testing.T) *fixture {
	t.Helper()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	emailsvc.ClearSentMessages()

	conf := testutil.NewConfig()
	usrRepo := dummydb.NewUserRepository(db)
	repo := dummydb.NewNotificationRepository(db)
	logger := core.NewStdLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags))
	svc := notification.NewService(repo, user.NewService(usrRepo), emailsvc.NewConsoleServiceMock(conf), logger)

	return &fixture{svc: svc, repo: repo, usrRepo: usrRepo}
}

func TestService_AnnouncementCreated_fanOut(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	active1 := testutil.CreateUser(t, f.usrRepo, "One", "one123", "one@test.cd", "", nil, true)
	active2 := testutil.CreateUser(t, f.usrRepo, "Two", "two123", "two@test.cd", "", nil, true)
	inactive := testutil.CreateUser(t, f.usrRepo, "Off", "off123", "off@test.cd", "", nil, false)

	ann := content.Announcement{
		Meta:    content.Meta{ID: 7, Title: "School closed", AuthorID: active1.ID},
		Content: "tomorrow",
	}
	f.svc.AnnouncementCreated(ctx, ann)

	// one row per active user, none for deactivated accounts
	for _, usr := range []user.User{active1, active2} {
		notifs, err := f.svc.ForRecipient(ctx, usr)
		if err != nil {
			t.Fatalf("ForRecipient() failed: %v", err)
		}
		if len(notifs) != 1 {
			t.Fatalf("user %d got %d notifications, want 1", usr.ID, len(notifs))
		}
		if notifs[0].AnnouncementID != null.IntFrom(ann.ID) {
			t.Errorf("AnnouncementID = %v, want %d", notifs[0].AnnouncementID, ann.ID)
		}
	}
	notifs, err := f.svc.ForRecipient(ctx, inactive)
	if err != nil {
		t.Fatalf("ForRecipient() failed: %v", err)
	}
	if len(notifs) != 0 {
		t.Errorf("inactive user got %d notifications, want 0", len(notifs))
	}
}

func TestService_ContentApproved(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	author := testutil.CreateUser(t, f.usrRepo, "Author", "author1", "author@test.cd", "", nil, true)

	f.svc.ContentApproved(ctx, content.KindLesson, content.Meta{ID: 5, Title: "Algebra I", AuthorID: author.ID})

	notifs, err := f.svc.ForRecipient(ctx, author)
	if err != nil {
		t.Fatalf("ForRecipient() failed: %v", err)
	}
	if len(notifs) != 1 {
		t.Fatalf("got %d notifications, want 1", len(notifs))
	}
	notif := notifs[0]
	if notif.Title != "Content Approved" {
		t.Errorf("Title = %q", notif.Title)
	}
	if notif.Link != "/v1/content/lessons/5" {
		t.Errorf("Link = %q, want /v1/content/lessons/5", notif.Link)
	}

	// the in-app notification is mirrored to email
	if len(emailsvc.SentMessages) != 1 {
		t.Fatalf("got %d emails, want 1", len(emailsvc.SentMessages))
	}
	if got := emailsvc.SentMessages[0].Subject; got != notif.Title {
		t.Errorf("email subject = %q, want %q", got, notif.Title)
	}
}

func TestService_AuthorWarned(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	author := testutil.CreateUser(t, f.usrRepo, "Author", "author1", "author@test.cd", "", nil, true)

	f.svc.AuthorWarned(ctx, author, "your lesson 'Algebra I'")

	notifs, err := f.svc.ForRecipient(ctx, author)
	if err != nil {
		t.Fatalf("ForRecipient() failed: %v", err)
	}
	if len(notifs) != 1 {
		t.Fatalf("got %d notifications, want 1", len(notifs))
	}
	if notifs[0].Title != "Moderation Warning" {
		t.Errorf("Title = %q", notifs[0].Title)
	}
	if !strings.Contains(notifs[0].Message, "your lesson 'Algebra I'") {
		t.Errorf("Message = %q, does not mention the warned item", notifs[0].Message)
	}
}

func TestService_MarkRead(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	owner := testutil.CreateUser(t, f.usrRepo, "Owner", "owner12", "owner@test.cd", "", nil, true)
	other := testutil.CreateUser(t, f.usrRepo, "Other", "other12", "other@test.cd", "", nil, true)

	created, err := f.repo.CreateNotification(ctx, notification.Notification{
		RecipientID: owner.ID,
		Title:       "Hello",
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateNotification() failed: %v", err)
	}

	if count, _ := f.svc.UnreadCount(ctx, owner); count != 1 {
		t.Errorf("UnreadCount = %d, want 1", count)
	}

	// recipients may only touch their own
	if _, err := f.svc.MarkRead(ctx, created.ID, other); errors.Cause(err) != notification.ErrNotFound {
		t.Errorf("MarkRead() by other error = %v, want ErrNotFound", err)
	}

	notif, err := f.svc.MarkRead(ctx, created.ID, owner)
	if err != nil {
		t.Fatalf("MarkRead() failed: %v", err)
	}
	if !notif.IsRead {
		t.Error("notification not flagged read")
	}
	if count, _ := f.svc.UnreadCount(ctx, owner); count != 0 {
		t.Errorf("UnreadCount = %d, want 0", count)
	}
}

func TestService_Remove(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	owner := testutil.CreateUser(t, f.usrRepo, "Owner", "owner12", "owner@test.cd", "", nil, true)

	created, err := f.repo.CreateNotification(ctx, notification.Notification{
		RecipientID: owner.ID,
		Title:       "Hello",
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateNotification() failed: %v", err)
	}

	if err := f.svc.Remove(ctx, created.ID, owner); err != nil {
		t.Fatalf("Remove() failed: %v", err)
	}
	notifs, err := f.svc.ForRecipient(ctx, owner)
	if err != nil {
		t.Fatalf("ForRecipient() failed: %v", err)
	}
	if len(notifs) != 0 {
		t.Errorf("got %d notifications after remove, want 0", len(notifs))
	}
	// gone for good
	if err := f.svc.Remove(ctx, created.ID, owner); errors.Cause(err) != notification.ErrNotFound {
		t.Errorf("second Remove() error = %v, want ErrNotFound", err)
	}
}
