package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"testing"

	"github.com/elimusoft/elimu/core/content"
	"github.com/elimusoft/elimu/core/moderation"
	"github.com/elimusoft/elimu/core/user"
	testutil "github.com/elimusoft/elimu/tests"
)

func Test_moderationApi_reportFlow(t *testing.T) {
	st := setupServer(t)
	ctx := context.Background()

	teacher := testutil.CreateUser(t, st.usrRepo, "Teacher", "teacher1", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	student := testutil.CreateUser(t, st.usrRepo, "Hero", "hero123", "hero@test.cd", "", []string{user.RoleStudent}, true)
	studentToken := getToken(t, student)
	teacherToken := getToken(t, teacher)

	lesson, err := st.contentSvc.SubmitLesson(ctx, content.NewLesson{Title: "Algebra I", Content: "lorem ipsum"}, teacher)
	if err != nil {
		t.Fatalf("SubmitLesson() failed: %v", err)
	}
	reportPath := "/v1/reports/lesson/" + strconv.Itoa(lesson.ID)
	reportBody := marchallObj(t, moderation.NewReport{Reason: "spam"})

	req, rec := newAuthRequest(http.MethodPost, reportPath, studentToken, reportBody)
	st.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("file report: code = %v; body %s", rec.Code, rec.Body.String())
	}
	var rep moderation.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &rep); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if rep.Status != moderation.StatusPending {
		t.Errorf("status = %q; want %q", rep.Status, moderation.StatusPending)
	}

	tests := []httpTest{
		{
			name: "duplicate report", method: http.MethodPost, path: reportPath, body: reportBody,
			token: studentToken, wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: "you have already reported this content"}),
		},
		{
			name: "unknown target kind", method: http.MethodPost, path: "/v1/reports/meme/1", body: reportBody,
			token: studentToken, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "target author not found or invalid"}),
		},
		{
			name: "missing target", method: http.MethodPost, path: "/v1/reports/lesson/999", body: reportBody,
			token: studentToken, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "target author not found or invalid"}),
		},
		{
			name: "students cannot list reports", method: http.MethodGet, path: "/v1/reports",
			token: studentToken, wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			st.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	// moderators see the pending queue
	req, rec = newAuthRequest(http.MethodGet, "/v1/reports", teacherToken)
	st.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("list reports: code = %v; body %s", rec.Code, rec.Body.String())
	}
	var reports []moderation.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &reports); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("reports length = %d; want 1", len(reports))
	}

	// dismiss
	actPath := "/v1/reports/" + strconv.Itoa(rep.ID) + "/act"
	req, rec = newAuthRequest(http.MethodPost, actPath, teacherToken, marchallObj(t, moderation.ActionInput{Action: "dismiss", Note: "looks fine"}))
	st.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("act: code = %v; body %s", rec.Code, rec.Body.String())
	}
	var handled moderation.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &handled); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if handled.Status != moderation.StatusDismissed {
		t.Errorf("status = %q; want %q", handled.Status, moderation.StatusDismissed)
	}

	// a handled report is final
	req, rec = newAuthRequest(http.MethodPost, actPath, teacherToken, marchallObj(t, moderation.ActionInput{Action: "dismiss"}))
	st.app.ServeHTTP(rec, req)
	tt := httpTest{wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "report has already been handled"})}
	checkCodeAndData(t, tt, rec)
}

func Test_moderationApi_rateLimit(t *testing.T) {
	st := setupServer(t)
	ctx := context.Background()

	teacher := testutil.CreateUser(t, st.usrRepo, "Teacher", "teacher1", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	student := testutil.CreateUser(t, st.usrRepo, "Hero", "hero123", "hero@test.cd", "", []string{user.RoleStudent}, true)
	studentToken := getToken(t, student)

	limit := st.conf.Moderation.ReportRateLimit
	body := marchallObj(t, moderation.NewReport{Reason: "spam"})

	for i := 0; i <= limit; i++ {
		lesson, err := st.contentSvc.SubmitLesson(ctx, content.NewLesson{Title: "Lesson " + strconv.Itoa(i), Content: "lorem ipsum"}, teacher)
		if err != nil {
			t.Fatalf("SubmitLesson() failed: %v", err)
		}

		req, rec := newAuthRequest(http.MethodPost, "/v1/reports/lesson/"+strconv.Itoa(lesson.ID), studentToken, body)
		st.app.ServeHTTP(rec, req)

		wantCode := http.StatusCreated
		if i == limit { // one over
			wantCode = http.StatusTooManyRequests
		}
		if rec.Code != wantCode {
			t.Fatalf("report %d: code = %v; want %v; body %s", i+1, rec.Code, wantCode, rec.Body.String())
		}
	}
}
