package api

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"

	"wfh/attendance/internal/session"
)

// Profile is the employee record behind the profile page. The backend uses
// Indonesian field names for phone and photo.
type Profile struct {
	ID         session.ID `json:"id"`
	EmployeeID session.ID `json:"id_karyawan,omitempty"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Position   string     `json:"position,omitempty"`
	Phone      string     `json:"phone,omitempty"`
	NoHP       string     `json:"no_hp,omitempty"`
	Photo      string     `json:"foto,omitempty"`
	Status     string     `json:"status,omitempty"`
}

func (p Profile) PhoneNumber() string {
	if p.NoHP != "" {
		return p.NoHP
	}
	return p.Phone
}

func (c *Client) Profile(ctx context.Context, id session.ID) (Profile, error) {
	req := c.authed(request{method: http.MethodGet, path: "/staff/profile/" + escape(id.String())})
	var out Profile
	if err := c.do(ctx, req, &out); err != nil {
		return Profile{}, err
	}
	return out, nil
}

// UpdateProfile sends the changed fields as multipart form data and returns
// the updated user, which the caller hands to the session store.
func (c *Client) UpdateProfile(ctx context.Context, id session.ID, in ProfileUpdate) (session.User, error) {
	if err := in.Validate(); err != nil {
		return session.User{}, err
	}
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	if in.Phone != nil {
		if err := form.WriteField("phone", *in.Phone); err != nil {
			return session.User{}, err
		}
	}
	if len(in.Photo) > 0 {
		part, err := form.CreateFormFile("photo", in.PhotoName)
		if err != nil {
			return session.User{}, err
		}
		if _, err := part.Write(in.Photo); err != nil {
			return session.User{}, err
		}
	}
	if err := form.Close(); err != nil {
		return session.User{}, err
	}

	req := c.authed(request{
		method:      http.MethodPut,
		path:        "/employees/" + escape(id.String()),
		body:        &buf,
		contentType: form.FormDataContentType(),
	})
	var out session.User
	if err := c.do(ctx, req, &out); err != nil {
		return session.User{}, err
	}
	return out, nil
}

type passwordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

func (c *Client) ChangePassword(ctx context.Context, id session.ID, in PasswordChange) error {
	if err := in.Validate(); err != nil {
		return err
	}
	req, err := jsonRequest(http.MethodPut, "/employees/"+escape(id.String())+"/password", passwordRequest{
		OldPassword: in.Old,
		NewPassword: in.New,
	})
	if err != nil {
		return err
	}
	return c.do(ctx, c.authed(req), nil)
}
