package repository

import (
	"context"
	"strings"

	"github.com/iliyamo/gearshare/internal/model"
)

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// UserRepo wraps the authentication endpoints.
type UserRepo struct{ api *Client }

func NewUserRepo(c *Client) *UserRepo { return &UserRepo{api: c} }

// Login posts credentials and returns the backend's auth payload.
func (r *UserRepo) Login(ctx context.Context, email, password string) (model.AuthPayload, error) {
	body := map[string]string{
		"email":    strings.ToLower(strings.TrimSpace(email)),
		"password": password,
	}
	var out model.AuthPayload
	err := r.api.post(ctx, "/auth/login", body, &out)
	return out, err
}

// Register creates an account. A duplicate email surfaces as ErrConflict.
func (r *UserRepo) Register(ctx context.Context, req RegisterRequest) (model.AuthPayload, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	var out model.AuthPayload
	err := r.api.post(ctx, "/auth/register", req, &out)
	return out, err
}
