package dummydb

import (
	"sync"

	"github.com/elimusoft/elimu/core/content"
	"github.com/elimusoft/elimu/core/moderation"
	"github.com/elimusoft/elimu/core/notification"
	"github.com/elimusoft/elimu/core/quiz"
	"github.com/elimusoft/elimu/core/user"
)

type (
	DB struct {
		user         *userTable
		content      *contentTables
		quiz         *quizTables
		notification *notificationTable
		report       *reportTable
	}

	userTable struct {
		sync.RWMutex
		seq   int
		table map[int]*user.User
	}

	// contentTables shares one lock: thread+post creation spans two maps.
	contentTables struct {
		sync.RWMutex
		seq           int
		lessons       map[int]*content.Lesson
		resources     map[int]*content.Resource
		announcements map[int]*content.Announcement
		forumThreads  map[int]*content.ForumThread
		forumPosts    map[int]*content.ForumPost
		chatMessages  map[int]*content.ChatMessage
		comments      map[int]*content.LessonComment
	}

	quizTables struct {
		sync.RWMutex
		seq     int
		tests   map[int]*quiz.Test
		qsts    map[int]*quiz.Question
		results map[int]*quiz.Result
		answers map[int]*quiz.StudentAnswer
	}

	notificationTable struct {
		sync.RWMutex
		seq   int
		table map[int]*notification.Notification
	}

	reportTable struct {
		sync.RWMutex
		seq   int
		table map[int]*moderation.Report
	}
)

func Open() (*DB, error) {
	db := &DB{
		user: &userTable{table: make(map[int]*user.User)},
		content: &contentTables{
			lessons:       make(map[int]*content.Lesson),
			resources:     make(map[int]*content.Resource),
			announcements: make(map[int]*content.Announcement),
			forumThreads:  make(map[int]*content.ForumThread),
			forumPosts:    make(map[int]*content.ForumPost),
			chatMessages:  make(map[int]*content.ChatMessage),
			comments:      make(map[int]*content.LessonComment),
		},
		quiz: &quizTables{
			tests:   make(map[int]*quiz.Test),
			qsts:    make(map[int]*quiz.Question),
			results: make(map[int]*quiz.Result),
			answers: make(map[int]*quiz.StudentAnswer),
		},
		notification: &notificationTable{table: make(map[int]*notification.Notification)},
		report:       &reportTable{table: make(map[int]*moderation.Report)},
	}
	return db, nil
}
