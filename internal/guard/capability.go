package guard

import "wfh/attendance/internal/session"

type NavItem struct {
	Label   string
	Path    string
	Command string
}

// Capability describes what a role sees: its landing page, where it signs
// in and what it can navigate to.
type Capability struct {
	Role      session.Role
	Title     string
	Home      string
	LoginPath string
	Nav       []NavItem
}

var (
	Employee = Capability{
		Role:      session.RoleEmployee,
		Title:     "WFH Attendance",
		Home:      "/staff/profile",
		LoginPath: LoginPath,
		Nav: []NavItem{
			{Label: "Profile", Path: "/staff/profile", Command: "profile"},
			{Label: "Attendance", Path: "/staff/attendance", Command: "today"},
			{Label: "Summary", Path: "/staff/summary", Command: "summary"},
		},
	}

	Admin = Capability{
		Role:      session.RoleAdmin,
		Title:     "Admin Portal",
		Home:      "/admin/dashboard",
		LoginPath: AdminLoginPath,
		Nav: []NavItem{
			{Label: "Dashboard", Path: "/admin/dashboard", Command: "dashboard"},
			{Label: "Employees", Path: "/admin/employees", Command: "employees"},
			{Label: "Attendance", Path: "/admin/attendance", Command: "report"},
		},
	}
)

// CapabilityFor maps any role other than admin to the employee variant.
func CapabilityFor(role session.Role) Capability {
	if role == session.RoleAdmin {
		return Admin
	}
	return Employee
}

// ForSnapshot picks the capability of the signed-in user; anonymous
// visitors get the employee variant.
func ForSnapshot(snap session.Snapshot) Capability {
	if user, ok := snap.User(); ok {
		return CapabilityFor(user.Role)
	}
	return Employee
}
