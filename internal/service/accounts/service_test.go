package accounts

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"salonbook/backend/internal/auth"
	"salonbook/backend/internal/domain"
	"salonbook/backend/internal/store"
)

type fakeUsers struct {
	createFn        func(ctx context.Context, u domain.User) (domain.User, error)
	getByUsernameFn func(ctx context.Context, username string) (domain.User, error)
	existsFn        func(ctx context.Context, username, email string) (bool, error)
	listFn          func(ctx context.Context) ([]domain.User, error)
	setAdminFn      func(ctx context.Context, id uuid.UUID, admin bool) error
}

func (f *fakeUsers) Create(ctx context.Context, u domain.User) (domain.User, error) {
	if f.createFn == nil {
		panic("Create not configured")
	}
	return f.createFn(ctx, u)
}

func (f *fakeUsers) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	if f.getByUsernameFn == nil {
		panic("GetByUsername not configured")
	}
	return f.getByUsernameFn(ctx, username)
}

func (f *fakeUsers) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	if f.existsFn == nil {
		panic("ExistsByUsernameOrEmail not configured")
	}
	return f.existsFn(ctx, username, email)
}

func (f *fakeUsers) List(ctx context.Context) ([]domain.User, error) {
	if f.listFn == nil {
		panic("List not configured")
	}
	return f.listFn(ctx)
}

func (f *fakeUsers) SetAdmin(ctx context.Context, id uuid.UUID, admin bool) error {
	if f.setAdminFn == nil {
		panic("SetAdmin not configured")
	}
	return f.setAdminFn(ctx, id, admin)
}

// memUsers backs a fakeUsers with a map keyed by username.
func memUsers() *fakeUsers {
	byName := make(map[string]domain.User)
	f := &fakeUsers{}
	f.existsFn = func(ctx context.Context, username, email string) (bool, error) {
		for _, u := range byName {
			if u.Username == username || u.Email == email {
				return true, nil
			}
		}
		return false, nil
	}
	f.createFn = func(ctx context.Context, u domain.User) (domain.User, error) {
		if _, ok := byName[u.Username]; ok {
			return domain.User{}, store.ErrDuplicate
		}
		u.ID = uuid.New()
		byName[u.Username] = u
		return u, nil
	}
	f.getByUsernameFn = func(ctx context.Context, username string) (domain.User, error) {
		u, ok := byName[username]
		if !ok {
			return domain.User{}, store.ErrNotFound
		}
		return u, nil
	}
	f.setAdminFn = func(ctx context.Context, id uuid.UUID, admin bool) error {
		for name, u := range byName {
			if u.ID == id {
				u.IsAdmin = admin
				byName[name] = u
				return nil
			}
		}
		return store.ErrNotFound
	}
	return f
}

type stubTokens struct{}

func (stubTokens) Issue(id auth.Identity) (string, error) {
	if id.IsAdmin {
		return "admin-token:" + id.UserID.String(), nil
	}
	return "token:" + id.UserID.String(), nil
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memUsers(), stubTokens{})

	u, err := svc.Register(ctx, RegisterInput{Username: " alice ", Email: "Alice@Example.com", Password: "s3cretpass"})
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if u.Username != "alice" || u.Email != "alice@example.com" {
		t.Fatalf("user = %+v", u)
	}
	if u.PasswordHash == "" || u.PasswordHash == "s3cretpass" {
		t.Fatalf("password not hashed")
	}

	res, err := svc.Login(ctx, "alice", "s3cretpass")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if res.IsAdmin || !strings.HasPrefix(res.AccessToken, "token:") {
		t.Fatalf("login result = %+v", res)
	}

	if _, err := svc.Login(ctx, "alice", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("bad password err = %v, want %v", err, ErrInvalidCredentials)
	}
	if _, err := svc.Login(ctx, "nobody", "s3cretpass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user err = %v, want %v", err, ErrInvalidCredentials)
	}
}

func TestRegister_Duplicate(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memUsers(), stubTokens{})

	if _, err := svc.Register(ctx, RegisterInput{Username: "alice", Email: "a@x.io", Password: "password1"}); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	for _, in := range []RegisterInput{
		{Username: "alice", Email: "b@x.io", Password: "password1"},
		{Username: "bob", Email: "A@X.IO", Password: "password1"},
	} {
		if _, err := svc.Register(ctx, in); !errors.Is(err, ErrDuplicateIdentity) {
			t.Fatalf("Register(%+v) err = %v, want %v", in, err, ErrDuplicateIdentity)
		}
	}
}

func TestRegister_ConstraintRaceIsDuplicate(t *testing.T) {
	svc := NewService(&fakeUsers{
		existsFn: func(ctx context.Context, username, email string) (bool, error) { return false, nil },
		createFn: func(ctx context.Context, u domain.User) (domain.User, error) {
			return domain.User{}, store.ErrDuplicate
		},
	}, stubTokens{})

	_, err := svc.Register(context.Background(), RegisterInput{Username: "alice", Email: "a@x.io", Password: "password1"})
	if !errors.Is(err, ErrDuplicateIdentity) {
		t.Fatalf("err = %v, want %v", err, ErrDuplicateIdentity)
	}
}

func TestRegister_Validation(t *testing.T) {
	svc := NewService(&fakeUsers{}, stubTokens{})

	tests := []struct {
		name string
		in   RegisterInput
		want string
	}{
		{"missing username", RegisterInput{Email: "a@x.io", Password: "password1"}, "username is required"},
		{"missing email", RegisterInput{Username: "a", Password: "password1"}, "email is required"},
		{"bad email", RegisterInput{Username: "a", Email: "not-an-email", Password: "password1"}, "email is invalid"},
		{"short password", RegisterInput{Username: "a", Email: "a@x.io", Password: "short"}, "password must be at least 8 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.in)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("err = %v, want *ValidationError", err)
			}
			if vErr.Error() != tt.want {
				t.Fatalf("error = %q, want %q", vErr.Error(), tt.want)
			}
		})
	}
}

func TestListUsers_AdminOnly(t *testing.T) {
	want := []domain.User{{ID: uuid.New(), Username: "alice"}}
	svc := NewService(&fakeUsers{
		listFn: func(ctx context.Context) ([]domain.User, error) { return want, nil },
	}, stubTokens{})

	if _, err := svc.ListUsers(context.Background(), auth.Identity{UserID: uuid.New()}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want %v", err, ErrForbidden)
	}
	got, err := svc.ListUsers(context.Background(), auth.Identity{UserID: uuid.New(), IsAdmin: true})
	if err != nil {
		t.Fatalf("ListUsers error: %v", err)
	}
	if len(got) != 1 || got[0].Username != "alice" {
		t.Fatalf("users = %+v", got)
	}
}

func TestBootstrapAdmin(t *testing.T) {
	ctx := context.Background()
	users := memUsers()
	svc := NewService(users, stubTokens{})
	in := RegisterInput{Username: "root", Email: "root@salon.test", Password: "rootpassword"}

	u, changed, err := svc.BootstrapAdmin(ctx, in)
	if err != nil {
		t.Fatalf("BootstrapAdmin error: %v", err)
	}
	if !changed || !u.IsAdmin {
		t.Fatalf("first bootstrap: changed=%v admin=%v", changed, u.IsAdmin)
	}

	_, changed, err = svc.BootstrapAdmin(ctx, in)
	if err != nil {
		t.Fatalf("second BootstrapAdmin error: %v", err)
	}
	if changed {
		t.Fatalf("second bootstrap should be a no-op")
	}

	res, err := svc.Login(ctx, "root", "rootpassword")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if !res.IsAdmin {
		t.Fatalf("bootstrapped user is not admin")
	}
}

func TestBootstrapAdmin_PromotesExistingUser(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memUsers(), stubTokens{})

	if _, err := svc.Register(ctx, RegisterInput{Username: "carol", Email: "c@x.io", Password: "password1"}); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	u, changed, err := svc.BootstrapAdmin(ctx, RegisterInput{Username: "carol", Email: "ignored@x.io", Password: "different1"})
	if err != nil {
		t.Fatalf("BootstrapAdmin error: %v", err)
	}
	if !changed || !u.IsAdmin {
		t.Fatalf("changed=%v admin=%v", changed, u.IsAdmin)
	}
	if _, err := svc.Login(ctx, "carol", "password1"); err != nil {
		t.Fatalf("original password no longer works: %v", err)
	}
}
