package guard

import "wfh/attendance/internal/session"

const (
	LoginPath      = "/login"
	AdminLoginPath = "/admin/login"
)

type Kind int

const (
	Allow Kind = iota
	Redirect
	ShowLoading
)

func (k Kind) String() string {
	switch k {
	case Redirect:
		return "redirect"
	case ShowLoading:
		return "loading"
	default:
		return "allow"
	}
}

// Decision tells the caller what to do with a requested view. Path is set
// only for Redirect.
type Decision struct {
	Kind Kind
	Path string
}

func redirect(path string) Decision { return Decision{Kind: Redirect, Path: path} }

// Decide gates a view that requires an authenticated user, and a specific
// role when required is not empty.
func Decide(snap session.Snapshot, required session.Role) Decision {
	if pending(snap) {
		return Decision{Kind: ShowLoading}
	}
	user, ok := snap.User()
	if !ok {
		return redirect(LoginPath)
	}
	if required != "" && user.Role != required {
		return redirect(CapabilityFor(user.Role).Home)
	}
	return Decision{Kind: Allow}
}

// DecideLogin gates the login pages: someone already signed in goes home.
func DecideLogin(snap session.Snapshot) Decision {
	if pending(snap) {
		return Decision{Kind: ShowLoading}
	}
	if user, ok := snap.User(); ok {
		return redirect(CapabilityFor(user.Role).Home)
	}
	return Decision{Kind: Allow}
}

func pending(snap session.Snapshot) bool {
	return snap.State == session.StateUnknown || snap.State == session.StateRestoring || snap.Verifying
}
