package echoapi

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/elimusoft/elimu/core"
	"github.com/elimusoft/elimu/core/content"
	"github.com/elimusoft/elimu/core/moderation"
	"github.com/elimusoft/elimu/core/notification"
	"github.com/elimusoft/elimu/core/quiz"
	"github.com/elimusoft/elimu/core/user"
	emailsvc "github.com/elimusoft/elimu/services/email"
	dummydb "github.com/elimusoft/elimu/storage/database/dummy"
	testutil "github.com/elimusoft/elimu/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

// serverTest wires a full Server on top of the dummy DB; each test gets
// a fresh one so there is no cross-test state to reset.
type serverTest struct {
	app         Server
	conf        *core.Config
	usrRepo     user.Repository
	usrSvc      *user.Service
	contentSvc  *content.Service
	quizSvc     *quiz.Service
	notifSvc    *notification.Service
	modSvc      *moderation.Service
	contentRepo content.Repository
	quizRepo    quiz.Repository
	modRepo     moderation.Repository
}

func setupServer(t *testing.T) *serverTest {
	t.Helper()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setupServer() failed: %v", err)
	}
	emailsvc.ClearSentMessages()

	conf := testutil.NewConfig()
	logger := core.NewStdLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags))

	st := &serverTest{
		conf:        conf,
		usrRepo:     dummydb.NewUserRepository(db),
		contentRepo: dummydb.NewContentRepository(db),
		quizRepo:    dummydb.NewQuizRepository(db),
		modRepo:     dummydb.NewModerationRepository(db),
	}
	st.usrSvc = user.NewService(st.usrRepo)
	st.notifSvc = notification.NewService(
		dummydb.NewNotificationRepository(db), st.usrSvc, emailsvc.NewConsoleServiceMock(conf), logger)
	st.contentSvc = content.NewService(st.contentRepo, st.notifSvc)
	st.quizSvc = quiz.NewService(st.quizRepo)
	st.modSvc = moderation.NewService(st.modRepo, st.contentSvc, st.usrSvc, st.notifSvc, conf)

	st.app = NewServer(ServerDeps{
		Conf:       conf,
		Logger:     logger,
		UserSvc:    st.usrSvc,
		ContentSvc: st.contentSvc,
		QuizSvc:    st.quizSvc,
		NotifSvc:   st.notifSvc,
		ModSvc:     st.modSvc,
	})
	return st
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList(): %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	// lists compare unordered
	if l1, ok := j1.([]interface{}); ok {
		if l2, ok := j2.([]interface{}); ok {
			return assert.ElementsMatch(t, l1, l2), nil
		}
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
