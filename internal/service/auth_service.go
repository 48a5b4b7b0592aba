package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/gearshare/internal/model"
	"github.com/iliyamo/gearshare/internal/repository"
	"github.com/iliyamo/gearshare/internal/session"
)

// ErrBadCredentials is returned by Login when the backend rejects the email
// and password.
var ErrBadCredentials = errors.New("invalid email or password")

// LoginInput is the login form.
type LoginInput struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
}

// RegisterInput is the registration form.
type RegisterInput struct {
	Name            string `form:"name" validate:"required,max=100"`
	Email           string `form:"email" validate:"required,email"`
	Password        string `form:"password" validate:"required,min=6"`
	ConfirmPassword string `form:"confirmPassword" validate:"required"`
	Role            string `form:"role"`
}

// AuthService signs users in and out of a browser session.
type AuthService struct {
	users    *repository.UserRepo
	sessions *session.Manager
}

func NewAuthService(users *repository.UserRepo, sessions *session.Manager) *AuthService {
	return &AuthService{users: users, sessions: sessions}
}

// Login checks the credentials with the backend and stores the resulting
// user and token under sid.
func (s *AuthService) Login(ctx context.Context, sid string, in LoginInput) (model.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := check(in); err != nil {
		return model.User{}, err
	}
	p, err := s.users.Login(ctx, in.Email, in.Password)
	if errors.Is(err, repository.ErrUnauthorized) || errors.Is(err, repository.ErrNotFound) {
		return model.User{}, ErrBadCredentials
	}
	if err != nil {
		return model.User{}, err
	}
	return s.sessions.Login(ctx, sid, p)
}

// Register creates the account and signs it in right away.
func (s *AuthService) Register(ctx context.Context, sid string, in RegisterInput) (model.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if err := check(in); err != nil {
		return model.User{}, err
	}
	if in.Password != in.ConfirmPassword {
		return model.User{}, invalid("passwords do not match")
	}
	role, ok := model.ParseRole(in.Role)
	if !ok {
		return model.User{}, invalid("role must be USER or ADMIN")
	}
	p, err := s.users.Register(ctx, repository.RegisterRequest{
		Name:     in.Name,
		Email:    in.Email,
		Password: in.Password,
		Role:     string(role),
	})
	if errors.Is(err, repository.ErrConflict) {
		return model.User{}, fmt.Errorf("%w: email already registered", repository.ErrConflict)
	}
	if err != nil {
		return model.User{}, err
	}
	if p.Role == "" {
		p.Role = string(role)
	}
	if p.Name == "" {
		p.Name = in.Name
	}
	if p.Email == "" {
		p.Email = strings.ToLower(in.Email)
	}
	return s.sessions.Login(ctx, sid, p)
}

// Logout clears the session.
func (s *AuthService) Logout(ctx context.Context, sid string) error {
	return s.sessions.Logout(ctx, sid)
}
