package quiz

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/elimusoft/elimu/core"
	"github.com/elimusoft/elimu/core/content"
)

// Test is a content item (content.KindTest) whose questions are scored
// by this package.
type Test struct {
	content.Meta
	Description string `json:"description,omitempty"`
	Year        int    `json:"year,omitempty"`
	Stream      string `json:"stream,omitempty"`
	Subject     string `json:"subject,omitempty"`
}

type Question struct {
	ID            int    `json:"id"`
	TestID        int    `json:"test_id"`
	Text          string `json:"text"`
	OptionA       string `json:"option_a"`
	OptionB       string `json:"option_b"`
	OptionC       string `json:"option_c"`
	OptionD       string `json:"option_d"`
	CorrectOption string `json:"-"` // never leaks to test takers
	Removed       bool   `json:"-"`
}

// Result records one submission event. A student re-taking a test creates
// a fresh Result; nothing is deduplicated. Immutable except the feedback fields.
type Result struct {
	ID              int         `json:"id"`
	StudentID       int         `json:"student_id"`
	TestID          int         `json:"test_id"`
	Score           int         `json:"score"`
	TotalQuestions  int         `json:"total_questions"`
	DateTaken       time.Time   `json:"date_taken"` // UTC
	TeacherFeedback null.String `json:"teacher_feedback,omitempty"`
	FeedbackDate    null.Time   `json:"feedback_date,omitempty"`
}

type StudentAnswer struct {
	ID             int    `json:"id"`
	ResultID       int    `json:"result_id"`
	QuestionID     int    `json:"question_id"`
	SelectedOption string `json:"selected_option"`
	IsCorrect      bool   `json:"is_correct"` // computed once at submission, never recomputed
}

// TestAnalytics aggregates all results of one test for its author.
type TestAnalytics struct {
	TotalStudents int            `json:"total_students"`
	AvgScore      float64        `json:"avg_score"`
	MaxScore      int            `json:"max_score"`
	MinScore      int            `json:"min_score"`
	Questions     []QuestionStat `json:"questions"` // hardest first
}

type QuestionStat struct {
	Question          Question `json:"question"`
	CorrectPercentage float64  `json:"correct_percentage"`
	WrongCount        int      `json:"wrong_count"`
	TotalAttempts     int      `json:"total_attempts"`
}

// Input DTOs

type NewTest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description"`
	Year        int    `json:"year" validate:"omitempty,min=1,max=3"`
	Stream      string `json:"stream"`
	Subject     string `json:"subject"`
}

func (nt *NewTest) Validate() error {
	nt.Title = core.CleanString(nt.Title)
	return core.Validate.Struct(nt)
}

type NewQuestion struct {
	Text          string `json:"text" validate:"required,max=500"`
	OptionA       string `json:"option_a" validate:"required,max=200"`
	OptionB       string `json:"option_b" validate:"required,max=200"`
	OptionC       string `json:"option_c" validate:"required,max=200"`
	OptionD       string `json:"option_d" validate:"required,max=200"`
	CorrectOption string `json:"correct_option" validate:"required,answeroption"`
}

func (nq *NewQuestion) Validate() error {
	nq.Text = core.CleanString(nq.Text)
	return core.Validate.Struct(nq)
}

// Submission carries the answer map of one take-test POST:
// question ID -> selected option letter.
type Submission struct {
	Answers map[int]string `json:"answers" validate:"required"`
}

func (s *Submission) Validate() error {
	return core.Validate.Struct(s)
}

type Feedback struct {
	Text string `json:"text" validate:"required"`
}

func (f *Feedback) Validate() error {
	f.Text = core.CleanString(f.Text)
	return core.Validate.Struct(f)
}
