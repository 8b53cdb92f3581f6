package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"wfh/attendance/internal/api"
	"wfh/attendance/internal/apperr"
	"wfh/attendance/internal/guard"
	"wfh/attendance/internal/session"
)

func (a *App) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	admin := fs.Bool("admin", false, "sign in at the admin portal")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "password, prompted when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}

	d, err := a.settle(ctx, guard.DecideLogin)
	if err != nil {
		return err
	}
	if d.Kind == guard.Redirect {
		user, _ := a.Store.Snapshot().User()
		fmt.Fprintf(a.Out, "Already logged in as %s. Try wfhctl %s\n", user.Email, commandFor(d.Path))
		return nil
	}

	if *password == "" && strings.TrimSpace(*email) != "" {
		secret, err := a.ReadPassword("Password: ")
		if err != nil {
			return err
		}
		*password = secret
	}
	user, err := a.Store.Login(ctx, *email, *password, *admin)
	if err != nil {
		return err
	}
	capability := guard.CapabilityFor(user.Role)
	fmt.Fprintf(a.Out, "Welcome, %s (%s)\n", user.Name, capability.Title)
	if len(capability.Nav) > 0 {
		fmt.Fprintf(a.Out, "Start with: wfhctl %s\n", capability.Nav[0].Command)
	}
	return nil
}

func (a *App) logout(ctx context.Context, args []string) error {
	a.Store.Logout(ctx)
	fmt.Fprintln(a.Out, "Logged out")
	return nil
}

func (a *App) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	var in api.RegisterInput
	fs.StringVar(&in.Name, "name", "", "full name")
	fs.StringVar(&in.Email, "email", "", "email")
	fs.StringVar(&in.Password, "password", "", "password, prompted when empty")
	fs.StringVar(&in.Position, "position", "", "job position")
	fs.StringVar(&in.Phone, "phone", "", "phone number")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if in.Password == "" {
		secret, err := a.ReadPassword("Password: ")
		if err != nil {
			return err
		}
		in.Password = secret
	}
	user, err := a.Client.Register(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Account created for %s. Run wfhctl login -email %s\n", user.Name, user.Email)
	return nil
}

func (a *App) whoami(ctx context.Context, args []string) error {
	sess, ok := a.Store.Session()
	if !ok {
		return apperr.ErrNotAuthenticated
	}
	u := sess.User
	fmt.Fprintf(a.Out, "Name:     %s\n", u.Name)
	fmt.Fprintf(a.Out, "Email:    %s\n", u.Email)
	fmt.Fprintf(a.Out, "Role:     %s\n", u.Role)
	if u.Position != "" {
		fmt.Fprintf(a.Out, "Position: %s\n", u.Position)
	}
	if exp, ok := sess.ExpiresAt(); ok {
		fmt.Fprintf(a.Out, "Expires:  %s\n", exp.In(a.location()).Format(time.RFC1123))
	}
	return nil
}

func (a *App) password(ctx context.Context, args []string) error {
	user, err := a.currentUser()
	if err != nil {
		return err
	}
	var change api.PasswordChange
	prompts := []struct {
		label string
		dst   *string
	}{
		{"Current password: ", &change.Old},
		{"New password: ", &change.New},
		{"Confirm new password: ", &change.Confirm},
	}
	for _, p := range prompts {
		secret, err := a.ReadPassword(p.label)
		if err != nil {
			return err
		}
		*p.dst = secret
	}
	if err := a.Client.ChangePassword(ctx, user.ProfileID(), change); err != nil {
		return err
	}
	fmt.Fprintln(a.Out, "Password updated")
	return nil
}

// watch prints every session transition until ctx ends, re-reading the
// session file whenever another process changes it.
func (a *App) watch(ctx context.Context, args []string) error {
	if a.Watcher == nil {
		return errors.New("watch needs the file session backend")
	}
	if _, err := a.Store.Restore(ctx).Wait(ctx); err != nil && ctx.Err() != nil {
		return err
	}

	var mu sync.Mutex
	printf := func(format string, v ...interface{}) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(a.Out, format, v...)
	}
	cancel := a.Store.Subscribe(func(snap session.Snapshot) {
		printf("%s\n", describe(snap))
	})
	defer cancel()

	err := a.Watcher.Watch(ctx, func() {
		if err := a.Store.Sync(ctx); err != nil {
			log.Printf("watch: sync failed: %v", err)
		}
	})
	if err != nil {
		return err
	}
	printf("watching %s\n%s\n", a.Watcher.Path(), describe(a.Store.Snapshot()))
	<-ctx.Done()
	return nil
}

func describe(snap session.Snapshot) string {
	user, ok := snap.User()
	if !ok {
		return "session: " + snap.State.String()
	}
	return fmt.Sprintf("session: %s as %s <%s> (%s)", snap.State, user.Name, user.Email, user.Role)
}

// FormatError renders err for the terminal, listing form field problems one
// per line.
func FormatError(err error) string {
	msg := apperr.UserMessage(err)
	fields := apperr.FieldErrors(err)
	if len(fields) == 0 {
		return msg
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(msg)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n  %s: %s", k, fields[k])
	}
	return b.String()
}
