package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/elimusoft/elimu/core"
	"github.com/elimusoft/elimu/core/content"
	"github.com/elimusoft/elimu/core/quiz"
	"github.com/elimusoft/elimu/core/user"
)

// NewConfig returns a Config suitable for tests: no external services,
// request logs off, deterministic moderation tunables.
func NewConfig() *core.Config {
	conf := core.NewConfig()
	conf.Debug = false // keep error payloads in their PROD shape
	conf.TestMode = true
	conf.SecretKey = "test-secret-key"
	return conf
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateLesson(
	t *testing.T,
	repo content.Repository,
	title string,
	authorID int,
	lc content.Lifecycle,
) content.Lesson {
	t.Helper()

	lsn := content.Lesson{
		Meta: content.Meta{
			Title:     title,
			AuthorID:  authorID,
			Lifecycle: lc,
			CreatedAt: time.Now().UTC(),
		},
		Content: "lorem ipsum",
	}
	lsn, err := repo.CreateLesson(context.Background(), lsn)
	if err != nil {
		t.Fatalf("CreateLesson() failed: %v", err)
	}
	return lsn
}

func CreateTest(
	t *testing.T,
	repo quiz.Repository,
	title string,
	authorID int,
	lc content.Lifecycle,
) quiz.Test {
	t.Helper()

	tst := quiz.Test{
		Meta: content.Meta{
			Title:     title,
			AuthorID:  authorID,
			Lifecycle: lc,
			CreatedAt: time.Now().UTC(),
		},
	}
	tst, err := repo.CreateTest(context.Background(), tst)
	if err != nil {
		t.Fatalf("CreateTest() failed: %v", err)
	}
	return tst
}

func CreateQuestion(
	t *testing.T,
	repo quiz.Repository,
	testID int,
	text, correct string,
) quiz.Question {
	t.Helper()

	qst := quiz.Question{
		TestID:        testID,
		Text:          text,
		OptionA:       "option a",
		OptionB:       "option b",
		OptionC:       "option c",
		OptionD:       "option d",
		CorrectOption: correct,
	}
	qst, err := repo.CreateQuestion(context.Background(), qst)
	if err != nil {
		t.Fatalf("CreateQuestion() failed: %v", err)
	}
	return qst
}
