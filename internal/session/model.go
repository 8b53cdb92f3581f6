package session

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Role string

const (
	RoleEmployee Role = "employee"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleEmployee || r == RoleAdmin
}

// ID is a backend identifier. The backend sends both numbers and strings,
// numeric values are written back as numbers.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	if id != "" && isNumeric(string(id)) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id ID) String() string { return string(id) }

func isNumeric(s string) bool {
	for i, r := range s {
		if r == '-' && i == 0 && len(s) > 1 {
			continue
		}
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

type User struct {
	ID         ID     `json:"id"`
	EmployeeID ID     `json:"id_karyawan,omitempty"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       Role   `json:"role"`
	PhotoURL   string `json:"photoUrl,omitempty"`
	Position   string `json:"position,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

// ProfileID is the identifier the profile endpoint expects; older accounts
// only carry the generic id.
func (u User) ProfileID() ID {
	if u.EmployeeID != "" {
		return u.EmployeeID
	}
	return u.ID
}

// Session is the authenticated identity held by the client. A usable session
// always has both halves.
type Session struct {
	Token string `json:"access_token"`
	User  User   `json:"user"`
}

func (s Session) Valid() bool {
	return strings.TrimSpace(s.Token) != "" && s.User.ID != ""
}

// ExpiresAt reads the exp claim of a JWT token without verifying it. ok is
// false for opaque tokens or tokens without exp.
func (s Session) ExpiresAt() (time.Time, bool) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(s.Token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

type State int

const (
	StateUnknown State = iota
	StateRestoring
	StateAuthenticated
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateRestoring:
		return "restoring"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// Snapshot is a read-only copy of the store. Verifying is true while an
// optimistically restored session waits for the backend's answer.
type Snapshot struct {
	State     State
	Session   *Session
	Verifying bool
}

func (s Snapshot) Authenticated() bool {
	return s.State == StateAuthenticated && s.Session != nil
}

func (s Snapshot) Admin() bool {
	return s.Authenticated() && s.Session.User.Role == RoleAdmin
}

func (s Snapshot) User() (User, bool) {
	if !s.Authenticated() {
		return User{}, false
	}
	return s.Session.User, true
}
