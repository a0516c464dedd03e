package quiz

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/elimusoft/elimu/core"
	"github.com/elimusoft/elimu/core/content"
	"github.com/elimusoft/elimu/core/user"
)

var (
	// errors
	ErrNotFound  = errors.New("test not found")
	ErrEmptyTest = errors.New("this test does not have any questions yet")
)

// IncompleteError is returned when one or more active questions are missing
// an answer. It carries the answers received so far back to the caller so
// the user's input survives the re-prompt.
type IncompleteError struct {
	Answers map[int]string
}

func (e *IncompleteError) Error() string {
	return "all questions must be answered before submitting"
}

type (
	Repository interface {
		CreateTest(ctx context.Context, tst Test) (Test, error)
		GetTest(ctx context.Context, id int) (Test, error)
		QueryTests(ctx context.Context, filter content.Filter) ([]Test, error)

		CreateQuestion(ctx context.Context, q Question) (Question, error)
		// QueryActiveQuestions returns the test's non-removed questions,
		// the only ones counted toward scoring.
		QueryActiveQuestions(ctx context.Context, testID int) ([]Question, error)

		// CreateResult persists the Result and all its StudentAnswer rows
		// atomically; partial writes must never be observable.
		CreateResult(ctx context.Context, res Result, answers []StudentAnswer) (Result, error)
		GetResult(ctx context.Context, id int) (Result, error)
		QueryResultsByStudent(ctx context.Context, studentID int) ([]Result, error)
		QueryResultsByTest(ctx context.Context, testID int) ([]Result, error)
		QueryAnswersByQuestion(ctx context.Context, questionID int) ([]StudentAnswer, error)
		SetResultFeedback(ctx context.Context, resultID int, feedback string, at time.Time) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CreateTest(ctx context.Context, nt NewTest, actor user.User) (Test, error) {
	if err := nt.Validate(); err != nil {
		return Test{}, err
	}
	tst := Test{
		Meta: content.Meta{
			Title:     nt.Title,
			AuthorID:  actor.ID,
			Lifecycle: content.InitialLifecycle(actor),
			CreatedAt: time.Now().UTC(),
		},
		Description: nt.Description,
		Year:        nt.Year,
		Stream:      nt.Stream,
		Subject:     nt.Subject,
	}
	tst, err := svc.repo.CreateTest(ctx, tst)
	if err != nil {
		return Test{}, errors.Wrap(err, "creating test")
	}
	return tst, nil
}

func (svc *Service) Tests(ctx context.Context, filter content.Filter) ([]Test, error) {
	return svc.repo.QueryTests(ctx, filter)
}

func (svc *Service) Test(ctx context.Context, id int) (Test, error) {
	tst, err := svc.repo.GetTest(ctx, id)
	if err != nil {
		return Test{}, err
	}
	if tst.Removed() {
		return Test{}, ErrNotFound
	}
	return tst, nil
}

// Questions returns the test's active questions for display; only the
// author sees them with their correct options intact elsewhere.
func (svc *Service) Questions(ctx context.Context, testID int) ([]Question, error) {
	if _, err := svc.Test(ctx, testID); err != nil {
		return nil, err
	}
	return svc.repo.QueryActiveQuestions(ctx, testID)
}

// AddQuestion appends a question to the actor's own test.
func (svc *Service) AddQuestion(ctx context.Context, testID int, nq NewQuestion, actor user.User) (Question, error) {
	if !actor.Elevated() {
		return Question{}, core.ErrPermissionDenied
	}
	tst, err := svc.Test(ctx, testID)
	if err != nil {
		return Question{}, err
	}
	if tst.AuthorID != actor.ID {
		return Question{}, core.ErrPermissionDenied
	}
	if err := nq.Validate(); err != nil {
		return Question{}, err
	}
	q := Question{
		TestID:        tst.ID,
		Text:          nq.Text,
		OptionA:       nq.OptionA,
		OptionB:       nq.OptionB,
		OptionC:       nq.OptionC,
		OptionD:       nq.OptionD,
		CorrectOption: nq.CorrectOption,
	}
	q, err = svc.repo.CreateQuestion(ctx, q)
	if err != nil {
		return Question{}, errors.Wrap(err, "creating question")
	}
	return q, nil
}

// SubmitTest scores one submission. The option letters are compared
// case-sensitively against each question's correct option; totalQuestions
// is frozen at the active-question count of this instant, so later edits
// to the test never rewrite history. The write is single-shot: duplicate
// submissions simply create further Results.
func (svc *Service) SubmitTest(ctx context.Context, testID int, answers map[int]string, student user.User) (Result, error) {
	tst, err := svc.Test(ctx, testID)
	if err != nil {
		return Result{}, err
	}

	questions, err := svc.repo.QueryActiveQuestions(ctx, tst.ID)
	if err != nil {
		return Result{}, errors.Wrap(err, "querying questions")
	}
	if len(questions) == 0 {
		return Result{}, ErrEmptyTest
	}

	var score int
	received := make(map[int]string, len(answers))
	rows := make([]StudentAnswer, 0, len(questions))
	incomplete := false
	for _, q := range questions {
		selected := answers[q.ID]
		if selected == "" {
			incomplete = true
			continue
		}
		received[q.ID] = selected

		correct := selected == q.CorrectOption
		if correct {
			score++
		}
		rows = append(rows, StudentAnswer{
			QuestionID:     q.ID,
			SelectedOption: selected,
			IsCorrect:      correct,
		})
	}
	if incomplete {
		// hand the partial answers back for re-display; nothing is persisted
		return Result{}, &IncompleteError{Answers: received}
	}

	res := Result{
		StudentID:      student.ID,
		TestID:         tst.ID,
		Score:          score,
		TotalQuestions: len(questions),
		DateTaken:      time.Now().UTC(),
	}
	res, err = svc.repo.CreateResult(ctx, res, rows)
	if err != nil {
		return Result{}, errors.Wrap(err, "creating result")
	}
	return res, nil
}

// Result returns one submission record; visible to the student who took it
// and to the test's author.
func (svc *Service) Result(ctx context.Context, id int, actor user.User) (Result, error) {
	res, err := svc.repo.GetResult(ctx, id)
	if err != nil {
		return Result{}, err
	}
	tst, err := svc.repo.GetTest(ctx, res.TestID)
	if err != nil {
		return Result{}, err
	}
	if tst.Removed() {
		return Result{}, ErrNotFound
	}
	if actor.ID != res.StudentID && actor.ID != tst.AuthorID && !actor.IsAdmin() {
		return Result{}, core.ErrPermissionDenied
	}
	return res, nil
}

func (svc *Service) ResultsForStudent(ctx context.Context, student user.User) ([]Result, error) {
	return svc.repo.QueryResultsByStudent(ctx, student.ID)
}

// AddFeedback lets the test's author attach feedback to a result.
func (svc *Service) AddFeedback(ctx context.Context, resultID int, fb Feedback, actor user.User) (Result, error) {
	if err := fb.Validate(); err != nil {
		return Result{}, err
	}
	res, err := svc.repo.GetResult(ctx, resultID)
	if err != nil {
		return Result{}, err
	}
	tst, err := svc.repo.GetTest(ctx, res.TestID)
	if err != nil {
		return Result{}, err
	}
	if actor.ID != tst.AuthorID {
		return Result{}, core.ErrPermissionDenied
	}
	now := time.Now().UTC()
	if err := svc.repo.SetResultFeedback(ctx, res.ID, fb.Text, now); err != nil {
		return Result{}, errors.Wrap(err, "saving feedback")
	}
	res.TeacherFeedback = null.StringFrom(fb.Text)
	res.FeedbackDate = null.TimeFrom(now)
	return res, nil
}

// Analytics aggregates every result of the test; author or admin only.
// Question stats come back hardest first.
func (svc *Service) Analytics(ctx context.Context, testID int, actor user.User) (TestAnalytics, error) {
	tst, err := svc.Test(ctx, testID)
	if err != nil {
		return TestAnalytics{}, err
	}
	if actor.ID != tst.AuthorID && !actor.IsAdmin() {
		return TestAnalytics{}, core.ErrPermissionDenied
	}

	results, err := svc.repo.QueryResultsByTest(ctx, tst.ID)
	if err != nil {
		return TestAnalytics{}, errors.Wrap(err, "querying results")
	}
	analytics := TestAnalytics{TotalStudents: len(results)}
	if len(results) == 0 {
		return analytics, nil
	}

	var sum int
	analytics.MinScore = results[0].Score
	for _, res := range results {
		sum += res.Score
		if res.Score > analytics.MaxScore {
			analytics.MaxScore = res.Score
		}
		if res.Score < analytics.MinScore {
			analytics.MinScore = res.Score
		}
	}
	analytics.AvgScore = float64(sum) / float64(len(results))

	questions, err := svc.repo.QueryActiveQuestions(ctx, tst.ID)
	if err != nil {
		return TestAnalytics{}, errors.Wrap(err, "querying questions")
	}
	for _, q := range questions {
		answers, err := svc.repo.QueryAnswersByQuestion(ctx, q.ID)
		if err != nil {
			return TestAnalytics{}, errors.Wrap(err, "querying answers")
		}
		stat := QuestionStat{Question: q, TotalAttempts: len(answers)}
		for _, ans := range answers {
			if !ans.IsCorrect {
				stat.WrongCount++
			}
		}
		if stat.TotalAttempts > 0 {
			stat.CorrectPercentage = float64(stat.TotalAttempts-stat.WrongCount) / float64(stat.TotalAttempts) * 100
		}
		analytics.Questions = append(analytics.Questions, stat)
	}
	sort.Slice(analytics.Questions, func(i, j int) bool {
		return analytics.Questions[i].CorrectPercentage < analytics.Questions[j].CorrectPercentage
	})
	return analytics, nil
}
