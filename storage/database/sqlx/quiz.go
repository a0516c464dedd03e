package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/elimusoft/elimu/core"
	"github.com/elimusoft/elimu/core/content"
	"github.com/elimusoft/elimu/core/quiz"
)

type testRow struct {
	metaRow
	Description string `db:"description"`
	Year        int    `db:"year"`
	Stream      string `db:"stream"`
	Subject     string `db:"subject"`
}

func (r testRow) toTest() quiz.Test {
	return quiz.Test{
		Meta:        r.toMeta(),
		Description: r.Description,
		Year:        r.Year,
		Stream:      r.Stream,
		Subject:     r.Subject,
	}
}

type questionRow struct {
	ID            int    `db:"id"`
	TestID        int    `db:"test_id"`
	Text          string `db:"text"`
	OptionA       string `db:"option_a"`
	OptionB       string `db:"option_b"`
	OptionC       string `db:"option_c"`
	OptionD       string `db:"option_d"`
	CorrectOption string `db:"correct_option"`
	Removed       bool   `db:"removed"`
}

func (r questionRow) toQuestion() quiz.Question {
	return quiz.Question{
		ID:            r.ID,
		TestID:        r.TestID,
		Text:          r.Text,
		OptionA:       r.OptionA,
		OptionB:       r.OptionB,
		OptionC:       r.OptionC,
		OptionD:       r.OptionD,
		CorrectOption: r.CorrectOption,
		Removed:       r.Removed,
	}
}

type resultRow struct {
	ID              int         `db:"id"`
	StudentID       int         `db:"student_id"`
	TestID          int         `db:"test_id"`
	Score           int         `db:"score"`
	TotalQuestions  int         `db:"total_questions"`
	DateTaken       time.Time   `db:"date_taken"`
	TeacherFeedback null.String `db:"teacher_feedback"`
	FeedbackDate    null.Time   `db:"feedback_date"`
}

func (r resultRow) toResult() quiz.Result {
	return quiz.Result{
		ID:              r.ID,
		StudentID:       r.StudentID,
		TestID:          r.TestID,
		Score:           r.Score,
		TotalQuestions:  r.TotalQuestions,
		DateTaken:       r.DateTaken,
		TeacherFeedback: r.TeacherFeedback,
		FeedbackDate:    r.FeedbackDate,
	}
}

type quizRepository struct {
	db *sqlx.DB
}

var _ quiz.Repository = (*quizRepository)(nil) // interface compliance check

func NewQuizRepository(db *sqlx.DB) quiz.Repository {
	return &quizRepository{db: db}
}

func (repo *quizRepository) CreateTest(ctx context.Context, tst quiz.Test) (quiz.Test, error) {
	q := `
		INSERT INTO test (title, author_id, lifecycle, description, year, stream, subject, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	err := repo.db.QueryRowContext(ctx, q,
		tst.Title, tst.AuthorID, tst.Lifecycle, tst.Description, tst.Year, tst.Stream, tst.Subject, tst.CreatedAt,
	).Scan(&tst.ID)
	if err != nil {
		return quiz.Test{}, errors.Wrap(err, "inserting test")
	}
	return tst, nil
}

func (repo *quizRepository) GetTest(ctx context.Context, id int) (quiz.Test, error) {
	var row testRow
	q := `SELECT id, title, author_id, lifecycle, created_at, description, year, stream, subject FROM test WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return quiz.Test{}, quiz.ErrNotFound
		}
		return quiz.Test{}, errors.Wrap(err, "getting test")
	}
	return row.toTest(), nil
}

func (repo *quizRepository) QueryTests(ctx context.Context, filter content.Filter) ([]quiz.Test, error) {
	q := `SELECT id, title, author_id, lifecycle, created_at, description, year, stream, subject FROM test WHERE lifecycle = $1`
	args := []interface{}{content.LifecycleActive}
	q, args = applyContentFilter(q, args, filter)
	q += ` ORDER BY created_at DESC`

	var rows []testRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying tests")
	}
	tests := make([]quiz.Test, 0, len(rows))
	for _, r := range rows {
		tests = append(tests, r.toTest())
	}
	return tests, nil
}

func (repo *quizRepository) CreateQuestion(ctx context.Context, qst quiz.Question) (quiz.Question, error) {
	q := `
		INSERT INTO question (test_id, text, option_a, option_b, option_c, option_d, correct_option)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	err := repo.db.QueryRowContext(ctx, q,
		qst.TestID, qst.Text, qst.OptionA, qst.OptionB, qst.OptionC, qst.OptionD, qst.CorrectOption,
	).Scan(&qst.ID)
	if err != nil {
		return quiz.Question{}, errors.Wrap(err, "inserting question")
	}
	return qst, nil
}

func (repo *quizRepository) QueryActiveQuestions(ctx context.Context, testID int) ([]quiz.Question, error) {
	q := `
		SELECT id, test_id, text, option_a, option_b, option_c, option_d, correct_option, removed
		FROM question
		WHERE test_id = $1 AND NOT removed
		ORDER BY id`
	var rows []questionRow
	if err := repo.db.SelectContext(ctx, &rows, q, testID); err != nil {
		return nil, errors.Wrap(err, "querying questions")
	}
	questions := make([]quiz.Question, 0, len(rows))
	for _, r := range rows {
		questions = append(questions, r.toQuestion())
	}
	return questions, nil
}

func (repo *quizRepository) CreateResult(ctx context.Context, res quiz.Result, answers []quiz.StudentAnswer) (quiz.Result, error) {
	err := core.AtomicTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		q := `
			INSERT INTO result (student_id, test_id, score, total_questions, date_taken)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`
		err := tx.QueryRowContext(ctx, q,
			res.StudentID, res.TestID, res.Score, res.TotalQuestions, res.DateTaken,
		).Scan(&res.ID)
		if err != nil {
			return errors.Wrap(err, "inserting result")
		}

		q = `
			INSERT INTO student_answer (result_id, question_id, selected_option, is_correct)
			VALUES ($1, $2, $3, $4)`
		for _, ans := range answers {
			if _, err = tx.ExecContext(ctx, q, res.ID, ans.QuestionID, ans.SelectedOption, ans.IsCorrect); err != nil {
				return errors.Wrap(err, "inserting student answer")
			}
		}
		return nil
	})
	if err != nil {
		return quiz.Result{}, err
	}
	return res, nil
}

func (repo *quizRepository) GetResult(ctx context.Context, id int) (quiz.Result, error) {
	var row resultRow
	q := `SELECT id, student_id, test_id, score, total_questions, date_taken, teacher_feedback, feedback_date FROM result WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return quiz.Result{}, quiz.ErrNotFound
		}
		return quiz.Result{}, errors.Wrap(err, "getting result")
	}
	return row.toResult(), nil
}

func (repo *quizRepository) queryResults(ctx context.Context, q string, args ...interface{}) ([]quiz.Result, error) {
	var rows []resultRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying results")
	}
	results := make([]quiz.Result, 0, len(rows))
	for _, r := range rows {
		results = append(results, r.toResult())
	}
	return results, nil
}

func (repo *quizRepository) QueryResultsByStudent(ctx context.Context, studentID int) ([]quiz.Result, error) {
	q := `
		SELECT id, student_id, test_id, score, total_questions, date_taken, teacher_feedback, feedback_date
		FROM result WHERE student_id = $1 ORDER BY date_taken DESC`
	return repo.queryResults(ctx, q, studentID)
}

func (repo *quizRepository) QueryResultsByTest(ctx context.Context, testID int) ([]quiz.Result, error) {
	q := `
		SELECT id, student_id, test_id, score, total_questions, date_taken, teacher_feedback, feedback_date
		FROM result WHERE test_id = $1 ORDER BY date_taken DESC`
	return repo.queryResults(ctx, q, testID)
}

func (repo *quizRepository) QueryAnswersByQuestion(ctx context.Context, questionID int) ([]quiz.StudentAnswer, error) {
	q := `SELECT id, result_id, question_id, selected_option, is_correct FROM student_answer WHERE question_id = $1`
	var rows []struct {
		ID             int    `db:"id"`
		ResultID       int    `db:"result_id"`
		QuestionID     int    `db:"question_id"`
		SelectedOption string `db:"selected_option"`
		IsCorrect      bool   `db:"is_correct"`
	}
	if err := repo.db.SelectContext(ctx, &rows, q, questionID); err != nil {
		return nil, errors.Wrap(err, "querying student answers")
	}
	answers := make([]quiz.StudentAnswer, 0, len(rows))
	for _, r := range rows {
		answers = append(answers, quiz.StudentAnswer{
			ID:             r.ID,
			ResultID:       r.ResultID,
			QuestionID:     r.QuestionID,
			SelectedOption: r.SelectedOption,
			IsCorrect:      r.IsCorrect,
		})
	}
	return answers, nil
}

func (repo *quizRepository) SetResultFeedback(ctx context.Context, resultID int, feedback string, at time.Time) error {
	q := `UPDATE result SET teacher_feedback = $2, feedback_date = $3 WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, q, resultID, feedback, at)
	if err != nil {
		return errors.Wrap(err, "setting result feedback")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return quiz.ErrNotFound
	}
	return nil
}
