// Package cli implements the wfhctl subcommands on top of the session store,
// the access guard and the API client.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"wfh/attendance/internal/api"
	"wfh/attendance/internal/guard"
	"wfh/attendance/internal/session"
)

var ErrUsage = errors.New("usage")

// Watcher reports changes made to persisted session state by other
// processes. Only the file backend provides one.
type Watcher interface {
	Watch(ctx context.Context, onChange func()) error
	Path() string
}

type App struct {
	Store   *session.Store
	Client  *api.Client
	Watcher Watcher
	Out     io.Writer
	// ReadPassword prompts for a secret. Defaults to the terminal.
	ReadPassword func(prompt string) (string, error)
}

type access int

const (
	// public commands run without a session.
	public access = iota
	// signedIn commands need any authenticated user.
	signedIn
	// roleOnly commands need the command's role.
	roleOnly
)

type command struct {
	name   string
	args   string
	help   string
	access access
	role   session.Role
	run    func(a *App, ctx context.Context, args []string) error
}

var commands = []command{
	{name: "login", args: "[-admin] -email E [-password P]", help: "sign in", access: public, run: (*App).login},
	{name: "logout", help: "sign out and forget the saved session", access: public, run: (*App).logout},
	{name: "register", args: "-name N -email E [-password P] [-position P] [-phone P]", help: "create an employee account", access: public, run: (*App).register},
	{name: "watch", help: "follow session changes made by other wfhctl processes", access: public, run: (*App).watch},
	{name: "whoami", help: "show the signed-in user", access: signedIn, run: (*App).whoami},
	{name: "clock-in", help: "record the start of today's work", access: roleOnly, role: session.RoleEmployee, run: (*App).clockIn},
	{name: "clock-out", help: "record the end of today's work", access: roleOnly, role: session.RoleEmployee, run: (*App).clockOut},
	{name: "today", help: "show today's attendance", access: roleOnly, role: session.RoleEmployee, run: (*App).today},
	{name: "summary", args: "[-from YYYY-MM-DD] [-to YYYY-MM-DD]", help: "list attendance for a date range", access: roleOnly, role: session.RoleEmployee, run: (*App).summary},
	{name: "profile", help: "show your profile", access: roleOnly, role: session.RoleEmployee, run: (*App).profile},
	{name: "profile-update", args: "[-phone P] [-photo FILE]", help: "change phone number or photo", access: roleOnly, role: session.RoleEmployee, run: (*App).profileUpdate},
	{name: "password", help: "change your password", access: roleOnly, role: session.RoleEmployee, run: (*App).password},
	{name: "dashboard", args: "[-date YYYY-MM-DD]", help: "today's overview", access: roleOnly, role: session.RoleAdmin, run: (*App).dashboard},
	{name: "employees", args: "list|create|update|delete [...]", help: "manage employees", access: roleOnly, role: session.RoleAdmin, run: (*App).employees},
	{name: "report", args: "[-date D | -from D -to D] [-status S] [-name N]", help: "attendance report", access: roleOnly, role: session.RoleAdmin, run: (*App).report},
}

func lookup(name string) (command, bool) {
	for _, cmd := range commands {
		if cmd.name == name {
			return cmd, true
		}
	}
	return command{}, false
}

// Execute runs one subcommand. The saved session is restored first and the
// guard decides whether the command may run.
func (a *App) Execute(ctx context.Context, args []string) error {
	if a.Out == nil {
		a.Out = os.Stdout
	}
	if a.ReadPassword == nil {
		a.ReadPassword = terminalPassword
	}
	if len(args) < 1 {
		return a.usageError()
	}
	switch args[0] {
	case "help", "-h", "--help":
		if _, err := a.Store.Restore(ctx).Wait(ctx); err != nil && ctx.Err() != nil {
			return err
		}
		a.PrintUsage(a.Out)
		return nil
	}
	cmd, ok := lookup(args[0])
	if !ok {
		return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}

	a.Store.Restore(ctx)
	if cmd.access != public {
		if err := a.authorize(ctx, cmd); err != nil {
			return err
		}
	}
	return cmd.run(a, ctx, args[1:])
}

func (a *App) usageError() error {
	return fmt.Errorf("%w: wfhctl <command> [...]", ErrUsage)
}

// settle waits out a pending restore so the guard sees a final state.
func (a *App) settle(ctx context.Context, decide func(session.Snapshot) guard.Decision) (guard.Decision, error) {
	d := decide(a.Store.Snapshot())
	if d.Kind != guard.ShowLoading {
		return d, nil
	}
	if _, err := a.Store.Restore(ctx).Wait(ctx); err != nil && ctx.Err() != nil {
		return d, err
	}
	return decide(a.Store.Snapshot()), nil
}

func (a *App) authorize(ctx context.Context, cmd command) error {
	required := session.Role("")
	if cmd.access == roleOnly {
		required = cmd.role
	}
	d, err := a.settle(ctx, func(snap session.Snapshot) guard.Decision {
		return guard.Decide(snap, required)
	})
	if err != nil {
		return err
	}
	switch d.Kind {
	case guard.Allow:
		return nil
	case guard.Redirect:
		if d.Path == guard.LoginPath || d.Path == guard.AdminLoginPath {
			return fmt.Errorf("not logged in: run wfhctl login")
		}
		return fmt.Errorf("%s is for %s accounts; try wfhctl %s", cmd.name, cmd.role, commandFor(d.Path))
	default:
		return fmt.Errorf("session is still being verified")
	}
}

// commandFor maps a guard redirect target to the command that serves it.
func commandFor(path string) string {
	for _, capability := range []guard.Capability{guard.Employee, guard.Admin} {
		for _, item := range capability.Nav {
			if item.Path == path {
				return item.Command
			}
		}
	}
	return "help"
}

// PrintUsage lists the commands, starting with the navigation of the
// signed-in role.
func (a *App) PrintUsage(w io.Writer) {
	capability := guard.ForSnapshot(a.Store.Snapshot())
	fmt.Fprintf(w, "%s\n\nusage: wfhctl <command> [flags]\n\n", capability.Title)
	if user, ok := a.Store.Snapshot().User(); ok {
		fmt.Fprintf(w, "signed in as %s (%s)\n", user.Name, user.Role)
		for _, item := range capability.Nav {
			fmt.Fprintf(w, "  %-10s %s\n", item.Label, "wfhctl "+item.Command)
		}
		fmt.Fprintln(w)
	}

	names := make([]string, 0, len(commands))
	byName := map[string]command{}
	for _, cmd := range commands {
		names = append(names, cmd.name)
		byName[cmd.name] = cmd
	}
	sort.Strings(names)
	for _, name := range names {
		cmd := byName[name]
		line := strings.TrimSpace(cmd.name + " " + cmd.args)
		fmt.Fprintf(w, "  %-58s %s\n", line, cmd.help)
	}
}

func (a *App) location() *time.Location {
	return a.Client.Today().Location()
}

func (a *App) parseDate(value string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", value, a.location())
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q, want YYYY-MM-DD", ErrUsage, value)
	}
	return t, nil
}

func (a *App) currentUser() (session.User, error) {
	user, ok := a.Store.Snapshot().User()
	if !ok {
		return session.User{}, errors.New("not logged in: run wfhctl login")
	}
	return user, nil
}
