package model

import "strings"

// Role is the marketplace role of a user as reported by the backend.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// ParseRole normalizes a role string. An empty value defaults to USER;
// anything other than USER or ADMIN is rejected.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case "", RoleUser:
		return RoleUser, true
	case RoleAdmin:
		return RoleAdmin, true
	}
	return "", false
}

// User represents the authenticated actor held by the session. It is the
// client-side copy of the backend's user record and is replaced wholesale
// on every login.
//
// Fields:
//
//	ID    – backend user id (coalesced from "userId" or "id").
//	Name  – display name.
//	Email – login email.
//	Role  – USER or ADMIN.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// FirstName returns the first word of the display name for greetings.
func (u User) FirstName() string {
	if f := strings.Fields(u.Name); len(f) > 0 {
		return f[0]
	}
	return u.Email
}

// IsAdmin reports whether the user carries the ADMIN role.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// AuthPayload is the body returned by the login and register endpoints.
// Backend revisions disagree on whether the identifier is sent as "userId"
// or "id"; Identifier coalesces the two.
type AuthPayload struct {
	UserID *int64 `json:"userId,omitempty"`
	ID     *int64 `json:"id,omitempty"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Token  string `json:"token,omitempty"`
}

// Identifier returns userId when present, otherwise id.
func (p AuthPayload) Identifier() (int64, bool) {
	if p.UserID != nil {
		return *p.UserID, true
	}
	if p.ID != nil {
		return *p.ID, true
	}
	return 0, false
}
