package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/elimusoft/elimu/core/user"
	testutil "github.com/elimusoft/elimu/tests"
)

func Test_userApi_login(t *testing.T) {
	st := setupServer(t)
	ctx := context.Background()

	testutil.CreateUser(t, st.usrRepo, "Hero", "hero123", "hero@test.cd", "LeHero#1", []string{user.RoleStudent}, true)
	testutil.CreateUser(t, st.usrRepo, "N Dog", "ndog123", "ndog@test.cd", "LeDog#13", []string{user.RoleStudent}, false)
	naughty := testutil.CreateUser(t, st.usrRepo, "Naughty", "naughty1", "naughty@test.cd", "Naught#1", []string{user.RoleStudent}, true)
	if _, err := st.usrSvc.Suspend(ctx, naughty.ID, 3); err != nil {
		t.Fatalf("Suspend() failed: %v", err)
	}

	login := func(uname, pwd string) []byte {
		return marchallObj(t, LoginRequest{Username: uname, Password: pwd})
	}

	tests := []httpTest{
		{
			name: "required fields", body: marchallObj(t, LoginRequest{}), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": "this field is required", "password": "this field is required"}),
		},
		{
			name: "unknown user", body: login("ghost", "whatever"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "invalid credentials"}),
		},
		{
			name: "wrong password", body: login("hero123", "LeWrong#1"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated account", body: login("ndog123", "LeDog#13"), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "suspended account", body: login("naughty1", "Naught#1"), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account suspended"}),
		},
		{name: "login by username", body: login("hero123", "LeHero#1"), wantCode: http.StatusOK},
		{name: "login by email", body: login("hero@test.cd", "LeHero#1"), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", tt.body)
			st.app.ServeHTTP(rec, req)

			// cannot guess the token; just check that one came back
			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				var respData LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Fatalf("json.Unmarshal() failed! err %v", err)
				}
				if respData.Token == "" {
					t.Error("failed! empty token")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userQuery(t *testing.T) {
	st := setupServer(t)

	admin := testutil.CreateUser(t, st.usrRepo, "Admin", "admin123", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	teacher := testutil.CreateUser(t, st.usrRepo, "Teacher", "teacher1", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	student := testutil.CreateUser(t, st.usrRepo, "Hero", "hero123", "hero@test.cd", "", []string{user.RoleStudent}, true)
	naughty := testutil.CreateUser(t, st.usrRepo, "N Dog", "ndog123", "ndog@test.cd", "", []string{user.RoleStudent}, false)

	adminToken := getToken(t, admin)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", path: "/v1/users", token: getToken(t, student), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Get all", path: "/v1/users", token: adminToken, wantCode: http.StatusOK,
			wantData: marchallList(t, admin, teacher, student, naughty),
		},
		{
			name: "search", path: "/v1/users?search=hero", token: adminToken, wantCode: http.StatusOK,
			wantData: marchallList(t, student),
		},
		{
			name: "search (unknown)", path: "/v1/users?search=lol", token: adminToken, wantCode: http.StatusOK,
			wantData: marchallList(t),
		},
		{
			name: "role=student:", path: "/v1/users?role=student:", token: adminToken, wantCode: http.StatusOK,
			wantData: marchallList(t, student, naughty),
		},
		{
			name: "is_active=false", path: "/v1/users?is_active=false", token: adminToken, wantCode: http.StatusOK,
			wantData: marchallList(t, naughty),
		},
		{
			name: "role & is_active", path: "/v1/users?role=student:&is_active=true", token: adminToken, wantCode: http.StatusOK,
			wantData: marchallList(t, student),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			st.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userRetrieve(t *testing.T) {
	st := setupServer(t)

	admin := testutil.CreateUser(t, st.usrRepo, "Admin", "admin123", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	student := testutil.CreateUser(t, st.usrRepo, "Hero", "hero123", "hero@test.cd", "", []string{user.RoleStudent}, true)
	other := testutil.CreateUser(t, st.usrRepo, "Other", "other123", "other@test.cd", "", []string{user.RoleStudent}, true)

	path := func(usr user.User) string { return "/v1/users/" + strconv.Itoa(usr.ID) }

	tests := []httpTest{
		{name: "own profile", path: path(student), token: getToken(t, student), wantCode: http.StatusOK, wantData: marchallObj(t, student)},
		{
			name: "someone else's profile", path: path(other), token: getToken(t, student), wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{name: "admin reads anyone", path: path(other), token: getToken(t, admin), wantCode: http.StatusOK, wantData: marchallObj(t, other)},
		{
			name: "unknown id", path: "/v1/users/999", token: getToken(t, admin), wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			st.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userSuspend(t *testing.T) {
	st := setupServer(t)

	admin := testutil.CreateUser(t, st.usrRepo, "Admin", "admin123", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	student := testutil.CreateUser(t, st.usrRepo, "Hero", "hero123", "hero@test.cd", "", []string{user.RoleStudent}, true)

	suspendPath := "/v1/users/" + strconv.Itoa(student.ID) + "/suspend"
	activatePath := "/v1/users/" + strconv.Itoa(student.ID) + "/activate"

	// non-admins cannot suspend, not even themselves
	req, rec := newAuthRequest(http.MethodPost, suspendPath, getToken(t, student))
	st.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("code = %v; want %v", rec.Code, http.StatusForbidden)
	}

	req, rec = newAuthRequest(http.MethodPost, suspendPath, getToken(t, admin), marchallObj(t, SuspendRequest{Days: 7}))
	st.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var suspended user.User
	if err := json.Unmarshal(rec.Body.Bytes(), &suspended); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if suspended.IsActive || !suspended.SuspensionEnd.Valid {
		t.Errorf("suspended user = %+v; want inactive with suspension end", suspended)
	}

	req, rec = newAuthRequest(http.MethodPost, activatePath, getToken(t, admin))
	st.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var activated user.User
	if err := json.Unmarshal(rec.Body.Bytes(), &activated); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if !activated.IsActive || activated.SuspensionEnd.Valid {
		t.Errorf("activated user = %+v; want active with no suspension end", activated)
	}
}

func Test_userApi_userSuspend_defaultDays(t *testing.T) {
	st := setupServer(t)

	admin := testutil.CreateUser(t, st.usrRepo, "Admin", "admin123", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	student := testutil.CreateUser(t, st.usrRepo, "Hero", "hero123", "hero@test.cd", "", []string{user.RoleStudent}, true)

	// no days given: fall back to the configured default, same as moderation
	path := "/v1/users/" + strconv.Itoa(student.ID) + "/suspend"
	req, rec := newAuthRequest(http.MethodPost, path, getToken(t, admin), marchallObj(t, SuspendRequest{}))
	st.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var suspended user.User
	if err := json.Unmarshal(rec.Body.Bytes(), &suspended); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	if suspended.IsActive || !suspended.SuspensionEnd.Valid {
		t.Fatalf("suspended user = %+v; want inactive with suspension end", suspended)
	}
	want := time.Now().UTC().AddDate(0, 0, st.conf.Moderation.DefaultSuspensionDays)
	if diff := suspended.SuspensionEnd.Time.Sub(want); diff < -time.Minute || diff > time.Minute {
		t.Errorf("suspension end = %v; want ~%v", suspended.SuspensionEnd.Time, want)
	}
}
