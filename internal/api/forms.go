package api

import (
	"path/filepath"
	"regexp"
	"strings"

	"wfh/attendance/internal/apperr"
)

var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

const maxPhotoBytes = 5 << 20

var photoExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true}

type EmployeeInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Position string `json:"position"`
	Phone    string `json:"phone"`
	Status   string `json:"status"`
}

func (in EmployeeInput) normalized() EmployeeInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Position = strings.TrimSpace(in.Position)
	in.Phone = strings.TrimSpace(in.Phone)
	if in.Status == "" {
		in.Status = "active"
	}
	return in
}

func (in EmployeeInput) Validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(in.Name) == "" {
		fields["name"] = "Name is required"
	}
	email := strings.TrimSpace(in.Email)
	if email == "" {
		fields["email"] = "Email is required"
	} else if !emailPattern.MatchString(email) {
		fields["email"] = "Email is invalid"
	}
	if strings.TrimSpace(in.Position) == "" {
		fields["position"] = "Position is required"
	}
	if in.Status != "" && in.Status != "active" && in.Status != "inactive" {
		fields["status"] = "Status must be active or inactive"
	}
	return apperr.Form(fields)
}

func (in RegisterInput) Validate() error {
	fields := map[string]string{}
	if strings.TrimSpace(in.Name) == "" {
		fields["name"] = "Name is required"
	}
	if email := strings.TrimSpace(in.Email); email == "" {
		fields["email"] = "Email is required"
	} else if !emailPattern.MatchString(email) {
		fields["email"] = "Email is invalid"
	}
	if in.Password == "" {
		fields["password"] = "Password is required"
	}
	return apperr.Form(fields)
}

// ProfileUpdate carries only what changed; a nil Phone and an empty Photo
// are left untouched on the server.
type ProfileUpdate struct {
	Phone     *string
	PhotoName string
	Photo     []byte
}

func (in ProfileUpdate) Empty() bool {
	return in.Phone == nil && len(in.Photo) == 0
}

func (in ProfileUpdate) Validate() error {
	fields := map[string]string{}
	if len(in.Photo) > 0 {
		if len(in.Photo) > maxPhotoBytes {
			fields["photo"] = "Max file size: 5MB"
		} else if !photoExtensions[strings.ToLower(filepath.Ext(in.PhotoName))] {
			fields["photo"] = "Formats: JPG, PNG, GIF"
		}
	}
	return apperr.Form(fields)
}

type PasswordChange struct {
	Old     string
	New     string
	Confirm string
}

func (in PasswordChange) Validate() error {
	fields := map[string]string{}
	if in.Old == "" {
		fields["oldPassword"] = "Current password is required"
	}
	if in.New == "" {
		fields["newPassword"] = "New password is required"
	} else if in.New != in.Confirm {
		fields["confirmPassword"] = "New passwords do not match"
	}
	return apperr.Form(fields)
}
