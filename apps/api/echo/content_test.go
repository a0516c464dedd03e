package echoapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"testing"

	"github.com/elimusoft/elimu/core/content"
	"github.com/elimusoft/elimu/core/user"
	testutil "github.com/elimusoft/elimu/tests"
)

func Test_contentApi_approvalFlow(t *testing.T) {
	st := setupServer(t)

	teacher := testutil.CreateUser(t, st.usrRepo, "Teacher", "teacher1", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	student := testutil.CreateUser(t, st.usrRepo, "Hero", "hero123", "hero@test.cd", "", []string{user.RoleStudent}, true)
	studentToken := getToken(t, student)
	teacherToken := getToken(t, teacher)

	// student submissions go through the approval queue
	body := marchallObj(t, content.NewLesson{Title: "Algebra I", Content: "lorem ipsum"})
	req, rec := newAuthRequest(http.MethodPost, "/v1/content/lessons", studentToken, body)
	st.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit: code = %v; want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var lesson content.Lesson
	if err := json.Unmarshal(rec.Body.Bytes(), &lesson); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if lesson.Lifecycle != content.LifecyclePending {
		t.Errorf("lifecycle = %q; want %q", lesson.Lifecycle, content.LifecyclePending)
	}

	lessonPath := "/lesson/" + strconv.Itoa(lesson.ID)

	tests := []httpTest{
		{
			name: "students cannot read the queue", method: http.MethodGet, path: "/v1/content/pending",
			token: studentToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "students cannot approve", method: http.MethodPost, path: "/v1/content" + lessonPath + "/approve",
			token: studentToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "unknown kind", method: http.MethodPost, path: "/v1/content/meme/1/approve",
			token: teacherToken, wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "kind outside the workflow", method: http.MethodPost, path: "/v1/content/forum_post/1/approve",
			token: teacherToken, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "content kind does not go through approval"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			st.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	// the queue and the author's own view both list the submission
	req, rec = newAuthRequest(http.MethodGet, "/v1/content/pending", teacherToken)
	st.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("pending: code = %v; body %s", rec.Code, rec.Body.String())
	}
	var queue []content.PendingItem
	if err := json.Unmarshal(rec.Body.Bytes(), &queue); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if len(queue) != 1 {
		t.Fatalf("queue length = %d; want 1", len(queue))
	}

	req, rec = newAuthRequest(http.MethodGet, "/v1/content/pending/mine", studentToken)
	st.app.ServeHTTP(rec, req)
	var mine []content.PendingItem
	if err := json.Unmarshal(rec.Body.Bytes(), &mine); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if len(mine) != 1 {
		t.Fatalf("own pending length = %d; want 1", len(mine))
	}

	// approve
	req, rec = newAuthRequest(http.MethodPost, "/v1/content"+lessonPath+"/approve", teacherToken)
	st.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("approve: code = %v; body %s", rec.Code, rec.Body.String())
	}
	var meta content.Meta
	if err := json.Unmarshal(rec.Body.Bytes(), &meta); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if meta.Lifecycle != content.LifecycleActive {
		t.Errorf("lifecycle = %q; want %q", meta.Lifecycle, content.LifecycleActive)
	}

	// the author hears about it
	req, rec = newAuthRequest(http.MethodGet, "/v1/notifications/unread-count", studentToken)
	st.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("unread-count: code = %v; body %s", rec.Code, rec.Body.String())
	}
	var count UnreadCountResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &count); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if count.Count != 1 {
		t.Errorf("unread count = %d; want 1", count.Count)
	}
}

func Test_contentApi_rejectFlow(t *testing.T) {
	st := setupServer(t)

	teacher := testutil.CreateUser(t, st.usrRepo, "Teacher", "teacher1", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	student := testutil.CreateUser(t, st.usrRepo, "Hero", "hero123", "hero@test.cd", "", []string{user.RoleStudent}, true)

	body := marchallObj(t, content.NewLesson{Title: "Algebra I", Content: "lorem ipsum"})
	req, rec := newAuthRequest(http.MethodPost, "/v1/content/lessons", getToken(t, student), body)
	st.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit: code = %v; body %s", rec.Code, rec.Body.String())
	}
	var lesson content.Lesson
	if err := json.Unmarshal(rec.Body.Bytes(), &lesson); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}

	path := "/v1/content/lesson/" + strconv.Itoa(lesson.ID)

	req, rec = newAuthRequest(http.MethodPost, path+"/reject", getToken(t, teacher))
	st.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("reject: code = %v; body %s", rec.Code, rec.Body.String())
	}

	// rejected content is gone
	req, rec = newAuthRequest(http.MethodGet, "/v1/content/lessons/"+strconv.Itoa(lesson.ID), getToken(t, student))
	st.app.ServeHTTP(rec, req)
	tt := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "content not found"})}
	checkCodeAndData(t, tt, rec)
}

func Test_contentApi_removeOwn(t *testing.T) {
	st := setupServer(t)

	author := testutil.CreateUser(t, st.usrRepo, "Hero", "hero123", "hero@test.cd", "", []string{user.RoleStudent}, true)
	other := testutil.CreateUser(t, st.usrRepo, "Villain", "villain1", "villain@test.cd", "", []string{user.RoleStudent}, true)

	body := marchallObj(t, content.NewLesson{Title: "Algebra I", Content: "lorem ipsum"})
	req, rec := newAuthRequest(http.MethodPost, "/v1/content/lessons", getToken(t, author), body)
	st.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit: code = %v; body %s", rec.Code, rec.Body.String())
	}
	var lesson content.Lesson
	if err := json.Unmarshal(rec.Body.Bytes(), &lesson); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}

	path := "/v1/content/lesson/" + strconv.Itoa(lesson.ID)

	// only the author (or an admin) may remove
	req, rec = newAuthRequest(http.MethodDelete, path, getToken(t, other))
	st.app.ServeHTTP(rec, req)
	tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}
	checkCodeAndData(t, tt, rec)

	req, rec = newAuthRequest(http.MethodDelete, path, getToken(t, author))
	st.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("remove: code = %v; body %s", rec.Code, rec.Body.String())
	}

	// removed content is gone
	req, rec = newAuthRequest(http.MethodGet, "/v1/content/lessons/"+strconv.Itoa(lesson.ID), getToken(t, author))
	st.app.ServeHTTP(rec, req)
	tt = httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "content not found"})}
	checkCodeAndData(t, tt, rec)
}

func Test_contentApi_lessonComments(t *testing.T) {
	st := setupServer(t)

	teacher := testutil.CreateUser(t, st.usrRepo, "Teacher", "teacher1", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	student := testutil.CreateUser(t, st.usrRepo, "Hero", "hero123", "hero@test.cd", "", []string{user.RoleStudent}, true)
	lesson := testutil.CreateLesson(t, st.contentRepo, "Algebra I", teacher.ID, content.LifecycleActive)

	path := "/v1/content/lessons/" + strconv.Itoa(lesson.ID) + "/comments"

	body := marchallObj(t, content.NewLessonComment{Content: "Great lesson!"})
	req, rec := newAuthRequest(http.MethodPost, path, getToken(t, student), body)
	st.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("comment: code = %v; body %s", rec.Code, rec.Body.String())
	}
	var cmt content.LessonComment
	if err := json.Unmarshal(rec.Body.Bytes(), &cmt); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if cmt.LessonID != lesson.ID || cmt.AuthorID != student.ID {
		t.Errorf("comment = %+v; want lesson %d author %d", cmt, lesson.ID, student.ID)
	}

	req, rec = newAuthRequest(http.MethodGet, path, getToken(t, teacher))
	st.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: code = %v; body %s", rec.Code, rec.Body.String())
	}
	var comments []content.LessonComment
	if err := json.Unmarshal(rec.Body.Bytes(), &comments); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if len(comments) != 1 || comments[0].ID != cmt.ID {
		t.Errorf("comments = %+v; want the one just posted", comments)
	}

	// unknown lesson
	req, rec = newAuthRequest(http.MethodGet, "/v1/content/lessons/999/comments", getToken(t, student))
	st.app.ServeHTTP(rec, req)
	tt := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "content not found"})}
	checkCodeAndData(t, tt, rec)
}
