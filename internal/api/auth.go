package api

import (
	"context"
	"net/http"

	"wfh/attendance/internal/apperr"
	"wfh/attendance/internal/session"
)

const (
	staffLoginPath = "/auth/staff/login"
	adminLoginPath = "/auth/admin/login"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials at the staff or the admin endpoint. Any
// non-2xx answer is an authentication failure carrying the backend message.
func (c *Client) Login(ctx context.Context, email, password string, asAdmin bool) (session.Session, error) {
	path := staffLoginPath
	if asAdmin {
		path = adminLoginPath
	}
	req, err := jsonRequest(http.MethodPost, path, credentials{Email: email, Password: password})
	if err != nil {
		return session.Session{}, err
	}
	req.failKind = apperr.KindAuthentication

	var out session.Session
	if err := c.do(ctx, req, &out); err != nil {
		return session.Session{}, err
	}
	return out, nil
}

// Verify checks a token with the backend; any 2xx means valid.
func (c *Client) Verify(ctx context.Context, token string) error {
	req := request{
		method:   http.MethodGet,
		path:     "/auth/verify",
		token:    token,
		failKind: apperr.KindValidation,
	}
	return c.do(ctx, req, nil)
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Position string `json:"position,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// Register creates an employee account. The user still has to log in.
func (c *Client) Register(ctx context.Context, in RegisterInput) (session.User, error) {
	if err := in.Validate(); err != nil {
		return session.User{}, err
	}
	req, err := jsonRequest(http.MethodPost, "/auth/register", in)
	if err != nil {
		return session.User{}, err
	}
	var out session.User
	if err := c.do(ctx, req, &out); err != nil {
		return session.User{}, err
	}
	return out, nil
}
