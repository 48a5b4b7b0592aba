package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iliyamo/gearshare/internal/model"
	"github.com/iliyamo/gearshare/internal/repository"
	"github.com/iliyamo/gearshare/internal/utils"
)

const (
	userSuffix  = ":user"
	tokenSuffix = ":token"
)

// Manager reads and writes the identity of a browser session. It also
// implements repository.Credentials so the API client always sees the token
// currently stored for the request's session.
type Manager struct {
	store Store
	ttl   time.Duration
	log   *slog.Logger
	now   func() time.Time
}

var _ repository.Credentials = (*Manager)(nil)

// NewManager builds a Manager. ttl is the lifetime of a login, counted from
// sign-in; activity does not extend it.
func NewManager(store Store, ttl time.Duration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: store, ttl: ttl, log: logger, now: time.Now}
}

// NewID returns a fresh random session id for a cookie.
func NewID() (string, error) { return utils.NewSessionID() }

type idKey struct{}

// WithID returns a context carrying the raw session id.
func WithID(ctx context.Context, sid string) context.Context {
	return context.WithValue(ctx, idKey{}, sid)
}

// IDFromContext returns the session id stored by WithID, or "".
func IDFromContext(ctx context.Context) string {
	s, _ := ctx.Value(idKey{}).(string)
	return s
}

func keys(sid string) (user, token string) {
	h := utils.HashSessionID(sid)
	return h + userSuffix, h + tokenSuffix
}

// Login normalizes an auth payload and stores it for sid. The stored user
// replaces any previous one. A payload without a token clears the stored
// token.
func (m *Manager) Login(ctx context.Context, sid string, p model.AuthPayload) (model.User, error) {
	if sid == "" {
		return model.User{}, errors.New("session: empty session id")
	}
	id, ok := p.Identifier()
	if !ok || id <= 0 {
		return model.User{}, fmt.Errorf("%w: auth response carries no user id", repository.ErrValidation)
	}
	role, ok := model.ParseRole(p.Role)
	if !ok {
		return model.User{}, fmt.Errorf("%w: unknown role %q", repository.ErrValidation, p.Role)
	}
	u := model.User{ID: id, Name: p.Name, Email: p.Email, Role: role}

	b, err := json.Marshal(u)
	if err != nil {
		return model.User{}, err
	}
	userKey, tokenKey := keys(sid)
	if err := m.store.Set(ctx, userKey, string(b), m.ttl); err != nil {
		return model.User{}, fmt.Errorf("session: store user: %w", err)
	}
	if p.Token != "" {
		err = m.store.Set(ctx, tokenKey, p.Token, m.ttl)
	} else {
		err = m.store.Delete(ctx, tokenKey)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("session: store token: %w", err)
	}
	return u, nil
}

// Logout removes the user and the token of sid together.
func (m *Manager) Logout(ctx context.Context, sid string) error {
	if sid == "" {
		return nil
	}
	userKey, tokenKey := keys(sid)
	return m.store.Delete(ctx, userKey, tokenKey)
}

// CurrentUser returns the user signed in on sid, or nil for an anonymous
// session. A corrupt stored user or an expired JWT ends the session instead
// of failing the request.
func (m *Manager) CurrentUser(ctx context.Context, sid string) (*model.User, error) {
	if sid == "" {
		return nil, nil
	}
	userKey, tokenKey := keys(sid)
	raw, err := m.store.Get(ctx, userKey)
	if errors.Is(err, ErrNoValue) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: load user: %w", err)
	}
	var u model.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil || u.ID == 0 {
		m.log.Warn("discarding malformed session user", "err", err)
		if err := m.Logout(ctx, sid); err != nil {
			return nil, err
		}
		return nil, nil
	}

	tok, err := m.store.Get(ctx, tokenKey)
	if err != nil && !errors.Is(err, ErrNoValue) {
		return nil, fmt.Errorf("session: load token: %w", err)
	}
	if utils.TokenExpired(tok, m.now()) {
		m.log.Info("bearer token expired, signing out", "user_id", u.ID)
		if err := m.Logout(ctx, sid); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return &u, nil
}

// Token returns the bearer token stored for the session in ctx, or "" when
// there is none.
func (m *Manager) Token(ctx context.Context) (string, error) {
	sid := IDFromContext(ctx)
	if sid == "" {
		return "", nil
	}
	_, tokenKey := keys(sid)
	tok, err := m.store.Get(ctx, tokenKey)
	if errors.Is(err, ErrNoValue) {
		return "", nil
	}
	return tok, err
}

// Expire ends the session in ctx. The API client calls it when the backend
// rejects the token.
func (m *Manager) Expire(ctx context.Context) error {
	// the caller's context may already be done; cleanup must still happen
	return m.Logout(context.WithoutCancel(ctx), IDFromContext(ctx))
}
