package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind groups failures by how the caller recovers from them.
type Kind string

const (
	// KindAuthentication is a rejected credential exchange, shown inline.
	KindAuthentication Kind = "authentication"

	// KindValidation is an expired or invalid stored token, recovered by forced logout.
	KindValidation Kind = "validation"

	// KindNetwork is a transport failure talking to the backend.
	KindNetwork Kind = "network"

	// KindForm is a client-side field check that never reaches the network.
	KindForm Kind = "form"

	// KindRequest is any other non-2xx backend answer.
	KindRequest Kind = "request"

	// KindState is an operation invoked in the wrong session state.
	KindState Kind = "state"

	// KindStorage is a failure reading or writing persisted client state.
	KindStorage Kind = "storage"
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Status  int
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s:%s] %s", e.Kind, e.Code, e.Message)
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+e.Fields[k])
		}
		msg += " (" + strings.Join(parts, ", ") + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind with an empty or equal code,
// which lets the package sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Code == "" || t.Code == e.Code)
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Wrap(err error, kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

// Form builds a KindForm error from per-field messages. It returns nil when
// fields is empty so validators can return it directly.
func Form(fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return &Error{Kind: KindForm, Code: "invalid_form", Message: "Please fix the highlighted fields", Fields: fields}
}

var (
	ErrAuthentication   = &Error{Kind: KindAuthentication}
	ErrValidation       = &Error{Kind: KindValidation}
	ErrNetwork          = &Error{Kind: KindNetwork}
	ErrForm             = &Error{Kind: KindForm}
	ErrRequest          = &Error{Kind: KindRequest}
	ErrNotAuthenticated = New(KindState, "not_authenticated", "Please log in to continue")
)

// KindOf reports the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// UserMessage returns the text meant for the person at the keyboard.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}

// FieldErrors returns the per-field messages of a form error.
func FieldErrors(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}
