// Package accounts registers users, verifies credentials and lists the user
// directory for administrators.
package accounts

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"salonbook/backend/internal/auth"
	"salonbook/backend/internal/domain"
	"salonbook/backend/internal/store"
)

const minPasswordLen = 8

var (
	ErrDuplicateIdentity  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("admin access required")
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

type TokenIssuer interface {
	Issue(id auth.Identity) (string, error)
}

type Service struct {
	users  store.UserRepository
	tokens TokenIssuer
}

func NewService(users store.UserRepository, tokens TokenIssuer) *Service {
	return &Service{users: users, tokens: tokens}
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (domain.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if username == "" {
		return domain.User{}, validationError("username is required")
	}
	if email == "" {
		return domain.User{}, validationError("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.User{}, validationError("email is invalid")
	}
	if len(in.Password) < minPasswordLen {
		return domain.User{}, validationError("password must be at least 8 characters")
	}

	exists, err := s.users.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return domain.User{}, err
	}
	if exists {
		return domain.User{}, ErrDuplicateIdentity
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return domain.User{}, err
	}
	u, err := s.users.Create(ctx, domain.User{Username: username, Email: email, PasswordHash: hash})
	if errors.Is(err, store.ErrDuplicate) {
		return domain.User{}, ErrDuplicateIdentity
	}
	return u, err
}

type LoginResult struct {
	AccessToken string
	IsAdmin     bool
}

func (s *Service) Login(ctx context.Context, username, password string) (LoginResult, error) {
	u, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, store.ErrNotFound) {
		return LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, err
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return LoginResult{}, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(auth.Identity{UserID: u.ID, IsAdmin: u.IsAdmin})
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{AccessToken: token, IsAdmin: u.IsAdmin}, nil
}

func (s *Service) ListUsers(ctx context.Context, requester auth.Identity) ([]domain.User, error) {
	if !requester.IsAdmin {
		return nil, ErrForbidden
	}
	return s.users.List(ctx)
}

// BootstrapAdmin makes sure an administrator account exists. An existing
// user with the same username is promoted; its password is left unchanged.
func (s *Service) BootstrapAdmin(ctx context.Context, in RegisterInput) (domain.User, bool, error) {
	u, err := s.users.GetByUsername(ctx, strings.TrimSpace(in.Username))
	switch {
	case err == nil:
		if u.IsAdmin {
			return u, false, nil
		}
		if err := s.users.SetAdmin(ctx, u.ID, true); err != nil {
			return domain.User{}, false, err
		}
		u.IsAdmin = true
		return u, true, nil
	case !errors.Is(err, store.ErrNotFound):
		return domain.User{}, false, err
	}

	u, err = s.Register(ctx, in)
	if err != nil {
		return domain.User{}, false, err
	}
	if err := s.users.SetAdmin(ctx, u.ID, true); err != nil {
		return domain.User{}, false, err
	}
	u.IsAdmin = true
	return u, true, nil
}
