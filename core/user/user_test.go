package user_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/elimusoft/elimu/core"
	"github.com/elimusoft/elimu/core/user"
	dummydb "github.com/elimusoft/elimu/storage/database/dummy"
	testutil "github.com/elimusoft/elimu/tests"
)

func setup(t *testing.T) (*user.Service, user.Repository) {
	t.Helper()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	repo := dummydb.NewUserRepository(db)
	return user.NewService(repo), repo
}

// hasTag reports whether err is a validator.ValidationErrors carrying a
// field error with the given tag.
func hasTag(err error, tag string) bool {
	vErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return false
	}
	for _, fe := range vErrs {
		if fe.Tag() == tag {
			return true
		}
	}
	return false
}

func TestNewUser_Validate_passwordPolicy(t *testing.T) {
	svc, _ := setup(t)

	newUser := func(pwd string) user.NewUser {
		return user.NewUser{
			Name:            "John Doe",
			Username:        "awesome",
			Email:           "awesome@test.cd",
			Password:        pwd,
			PasswordConfirm: pwd,
		}
	}

	tests := []struct {
		name    string
		pwd     string
		wantTag string
	}{
		{name: "too short", pwd: "Ab1!", wantTag: "pwdminlen"},
		{name: "whitespace", pwd: "Abcd 123!", wantTag: "pwdnospace"},
		{name: "all numeric", pwd: "12345678", wantTag: "pwdnotallnum"},
		{name: "no complexity", pwd: "abcdefgh", wantTag: "pwdcplx"},
		{name: "no special char", pwd: "Abcdefg1", wantTag: "pwdcplx"},
		{name: "similar to username", pwd: "Awesome1!", wantTag: "pwdtoosim"},
		{name: "ok", pwd: "V3ry.Str0ng"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nu := newUser(tt.pwd)
			err := nu.Validate(svc)
			if tt.wantTag == "" {
				if err != nil {
					t.Errorf("Validate() failed: %v", err)
				}
				return
			}
			if !hasTag(err, tt.wantTag) {
				t.Errorf("Validate() error = %v, want tag %q", err, tt.wantTag)
			}
		})
	}
}

func TestNewUser_Validate_usernameOrEmailRequired(t *testing.T) {
	svc, _ := setup(t)

	nu := user.NewUser{
		Name:            "John Doe",
		Password:        "V3ry.Str0ng",
		PasswordConfirm: "V3ry.Str0ng",
	}
	if err := nu.Validate(svc); !hasTag(err, "username_or_email") {
		t.Errorf("Validate() error = %v, want tag username_or_email", err)
	}
}

func TestNewUser_Validate_uniqueness(t *testing.T) {
	svc, repo := setup(t)
	testutil.CreateUser(t, repo, "Taken", "already", "taken@test.cd", "", nil, true)

	tests := []struct {
		name      string
		username  string
		email     string
		wantField string
	}{
		{name: "username taken", username: "already", email: "fresh@test.cd", wantField: "username"},
		{name: "email taken", username: "freshman", email: "taken@test.cd", wantField: "email"},
		{name: "both free", username: "freshman", email: "fresh@test.cd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nu := user.NewUser{
				Name:            "John Doe",
				Username:        tt.username,
				Email:           tt.email,
				Password:        "V3ry.Str0ng",
				PasswordConfirm: "V3ry.Str0ng",
			}
			err := nu.Validate(svc)
			if tt.wantField == "" {
				if err != nil {
					t.Errorf("Validate() failed: %v", err)
				}
				return
			}
			vErr, ok := errors.Cause(err).(*core.ValidationError)
			if !ok {
				t.Fatalf("Validate() error = %v, want *core.ValidationError", err)
			}
			if len(vErr.Fields) != 1 || vErr.Fields[0].Field != tt.wantField {
				t.Errorf("fields = %+v, want %q", vErr.Fields, tt.wantField)
			}
		})
	}
}

func TestUpdateUser_Validate_keepsOriginalFields(t *testing.T) {
	svc, repo := setup(t)
	orig := testutil.CreateUser(t, repo, "John Doe", "johndoe", "john@test.cd", "", nil, true)

	uu := user.UpdateUser{Name: "Johnny"}
	if err := uu.Validate(orig, svc); err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
	if uu.Name != "Johnny" {
		t.Errorf("Name = %q", uu.Name)
	}
	if uu.Username != orig.Username || uu.Email != orig.Email {
		t.Errorf("Username = %q, Email = %q; want originals kept", uu.Username, uu.Email)
	}
}

func TestService_SuspendActivate(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()
	usr := testutil.CreateUser(t, repo, "Naughty", "naughty", "naughty@test.cd", "", []string{user.RoleStudent}, true)

	suspended, err := svc.Suspend(ctx, usr.ID, 7)
	if err != nil {
		t.Fatalf("Suspend() failed: %v", err)
	}
	if suspended.IsActive {
		t.Error("suspended user still active")
	}
	if !suspended.Suspended() {
		t.Error("Suspended() = false")
	}
	wantEnd := time.Now().UTC().AddDate(0, 0, 7)
	if got := suspended.SuspensionEnd.Time; got.Before(wantEnd.Add(-time.Minute)) || got.After(wantEnd.Add(time.Minute)) {
		t.Errorf("SuspensionEnd = %v, want ~%v", got, wantEnd)
	}

	// repo agrees
	got, err := repo.GetUserByID(ctx, usr.ID)
	if err != nil {
		t.Fatalf("GetUserByID() failed: %v", err)
	}
	if got.IsActive || !got.SuspensionEnd.Valid {
		t.Errorf("persisted user = %+v, want inactive with suspension end", got)
	}

	activated, err := svc.Activate(ctx, usr.ID)
	if err != nil {
		t.Fatalf("Activate() failed: %v", err)
	}
	if !activated.IsActive || activated.SuspensionEnd.Valid || activated.Suspended() {
		t.Errorf("activated user = %+v, want active with no suspension end", activated)
	}
}

func TestService_Suspend_unknownUser(t *testing.T) {
	svc, _ := setup(t)
	if _, err := svc.Suspend(context.Background(), 404, 3); errors.Cause(err) != user.ErrNotFound {
		t.Errorf("Suspend() error = %v, want ErrNotFound", err)
	}
}

func TestUser_roleHelpers(t *testing.T) {
	admin := user.User{Roles: []string{user.RoleAdminPrincipal}}
	teacher := user.User{Roles: []string{user.RoleTeacher}}
	student := user.User{Roles: []string{user.RoleStudent}}

	if !admin.IsAdmin() || !admin.Elevated() {
		t.Error("admin roles not detected")
	}
	if !teacher.IsTeacher() || !teacher.Elevated() {
		t.Error("teacher roles not detected")
	}
	if !student.IsStudent() || student.Elevated() {
		t.Error("student must not be elevated")
	}

	if got := user.MaxRolePriority(admin.Roles); got <= user.RolePriority(user.RoleTeacher) {
		t.Errorf("MaxRolePriority(admin) = %d, want above teacher", got)
	}
}

func TestUser_password(t *testing.T) {
	var usr user.User
	if err := usr.SetPassword("V3ry.Str0ng"); err != nil {
		t.Fatalf("SetPassword() failed: %v", err)
	}
	if err := usr.CheckPassword("V3ry.Str0ng"); err != nil {
		t.Errorf("CheckPassword() failed: %v", err)
	}
	if err := usr.CheckPassword("wrong"); err == nil {
		t.Error("CheckPassword() accepted a wrong password")
	}
	if strings.Contains(string(usr.PasswordHash), "V3ry.Str0ng") {
		t.Error("password stored in clear")
	}
}
