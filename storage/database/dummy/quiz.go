package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/elimusoft/elimu/core/content"
	"github.com/elimusoft/elimu/core/quiz"
)

type quizRepository struct {
	db *quizTables
}

var _ quiz.Repository = (*quizRepository)(nil) // interface compliance check

func NewQuizRepository(db *DB) quiz.Repository {
	return &quizRepository{db: db.quiz}
}

func (repo *quizRepository) CreateTest(ctx context.Context, tst quiz.Test) (quiz.Test, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.seq++
	tst.ID = repo.db.seq
	repo.db.tests[tst.ID] = &tst
	return tst, nil
}

func (repo *quizRepository) GetTest(ctx context.Context, id int) (quiz.Test, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if tst, ok := repo.db.tests[id]; ok {
		return *tst, nil
	}
	return quiz.Test{}, quiz.ErrNotFound
}

func (repo *quizRepository) QueryTests(ctx context.Context, filter content.Filter) ([]quiz.Test, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var tests []quiz.Test
	for _, tst := range repo.db.tests {
		if !tst.Visible() {
			continue
		}
		if filter.Year != 0 && filter.Year != tst.Year {
			continue
		}
		if filter.Stream != "" && filter.Stream != tst.Stream {
			continue
		}
		if filter.Subject != "" && filter.Subject != tst.Subject {
			continue
		}
		tests = append(tests, *tst)
	}
	sort.Slice(tests, func(i, j int) bool { return tests[i].ID < tests[j].ID })
	return tests, nil
}

func (repo *quizRepository) CreateQuestion(ctx context.Context, qst quiz.Question) (quiz.Question, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.seq++
	qst.ID = repo.db.seq
	repo.db.qsts[qst.ID] = &qst
	return qst, nil
}

func (repo *quizRepository) QueryActiveQuestions(ctx context.Context, testID int) ([]quiz.Question, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var questions []quiz.Question
	for _, qst := range repo.db.qsts {
		if qst.TestID == testID && !qst.Removed {
			questions = append(questions, *qst)
		}
	}
	sort.Slice(questions, func(i, j int) bool { return questions[i].ID < questions[j].ID })
	return questions, nil
}

func (repo *quizRepository) CreateResult(ctx context.Context, res quiz.Result, answers []quiz.StudentAnswer) (quiz.Result, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.seq++
	res.ID = repo.db.seq
	repo.db.results[res.ID] = &res
	for _, ans := range answers {
		repo.db.seq++
		ans.ID = repo.db.seq
		ans.ResultID = res.ID
		repo.db.answers[ans.ID] = &ans
	}
	return res, nil
}

func (repo *quizRepository) GetResult(ctx context.Context, id int) (quiz.Result, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if res, ok := repo.db.results[id]; ok {
		return *res, nil
	}
	return quiz.Result{}, quiz.ErrNotFound
}

func (repo *quizRepository) queryResults(match func(quiz.Result) bool) []quiz.Result {
	var results []quiz.Result
	for _, res := range repo.db.results {
		if match(*res) {
			results = append(results, *res)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results
}

func (repo *quizRepository) QueryResultsByStudent(ctx context.Context, studentID int) ([]quiz.Result, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.queryResults(func(res quiz.Result) bool { return res.StudentID == studentID }), nil
}

func (repo *quizRepository) QueryResultsByTest(ctx context.Context, testID int) ([]quiz.Result, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.queryResults(func(res quiz.Result) bool { return res.TestID == testID }), nil
}

func (repo *quizRepository) QueryAnswersByQuestion(ctx context.Context, questionID int) ([]quiz.StudentAnswer, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var answers []quiz.StudentAnswer
	for _, ans := range repo.db.answers {
		if ans.QuestionID == questionID {
			answers = append(answers, *ans)
		}
	}
	sort.Slice(answers, func(i, j int) bool { return answers[i].ID < answers[j].ID })
	return answers, nil
}

func (repo *quizRepository) SetResultFeedback(ctx context.Context, resultID int, feedback string, at time.Time) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	res, ok := repo.db.results[resultID]
	if !ok {
		return quiz.ErrNotFound
	}
	res.TeacherFeedback = null.StringFrom(feedback)
	res.FeedbackDate = null.TimeFrom(at)
	return nil
}
