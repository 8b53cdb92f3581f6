package session

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"wfh/attendance/internal/apperr"
)

type fakeAuth struct {
	mu           sync.Mutex
	session      Session
	loginErr     error
	loginCalls   int
	lastAdmin    bool
	verifyErr    error
	verifyCalls  int
	verifyGate   chan struct{}
	verifyCalled chan struct{}
}

func (f *fakeAuth) Login(_ context.Context, _, _ string, asAdmin bool) (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginCalls++
	f.lastAdmin = asAdmin
	if f.loginErr != nil {
		return Session{}, f.loginErr
	}
	return f.session, nil
}

func (f *fakeAuth) Verify(_ context.Context, _ string) error {
	f.mu.Lock()
	f.verifyCalls++
	gate, called, err := f.verifyGate, f.verifyCalled, f.verifyErr
	f.mu.Unlock()
	if called != nil {
		called <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	return err
}

type memPersister struct {
	mu      sync.Mutex
	session *Session
	saves   int
	clears  int
	loadErr error
	saveErr error
}

func (m *memPersister) Load(context.Context) (Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return Session{}, false, m.loadErr
	}
	if m.session == nil {
		return Session{}, false, nil
	}
	return *m.session, true, nil
}

func (m *memPersister) Save(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.session = &s
	return nil
}

func (m *memPersister) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clears++
	m.session = nil
	return nil
}

func (m *memPersister) current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	cp := *m.session
	return &cp
}

var (
	employee = User{ID: "7", Name: "Siti", Email: "siti@example.com", Role: RoleEmployee}
	admin    = User{ID: "1", Name: "Admin", Email: "admin@example.com", Role: RoleAdmin}
)

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func newTestStore(auth *fakeAuth, persist *memPersister) *Store {
	return New(auth, persist, WithLogger(quietLogger()))
}

func waitValidation(t *testing.T, v *Validation) (Snapshot, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	snap, err := v.Wait(ctx)
	if ctx.Err() != nil {
		t.Fatalf("validation did not finish")
	}
	return snap, err
}

func TestLoginLogoutRoundTrip(t *testing.T) {
	auth := &fakeAuth{session: Session{Token: "tok-1", User: employee}}
	persist := &memPersister{}
	store := newTestStore(auth, persist)

	user, err := store.Login(context.Background(), "siti@example.com", "secret", false)
	if err != nil {
		t.Fatalf("login error: %v", err)
	}
	if user != employee {
		t.Fatalf("unexpected user %+v", user)
	}
	if !store.IsAuthenticated() || store.IsAdmin() {
		t.Fatalf("expected authenticated employee")
	}
	saved := persist.current()
	if saved == nil || saved.Token != "tok-1" || saved.User != employee {
		t.Fatalf("persisted state does not match memory: %+v", saved)
	}
	if store.Token() != "tok-1" {
		t.Fatalf("expected token from store")
	}

	store.Logout(context.Background())
	if store.IsAuthenticated() {
		t.Fatalf("expected anonymous after logout")
	}
	if persist.current() != nil {
		t.Fatalf("expected persisted state cleared")
	}
	if store.State() != StateAnonymous {
		t.Fatalf("expected anonymous state, got %s", store.State())
	}
}

func TestLoginAsAdmin(t *testing.T) {
	auth := &fakeAuth{session: Session{Token: "tok-a", User: admin}}
	store := newTestStore(auth, &memPersister{})
	if _, err := store.Login(context.Background(), "admin@example.com", "secret", true); err != nil {
		t.Fatalf("login error: %v", err)
	}
	if !auth.lastAdmin {
		t.Fatalf("expected admin flag passed to authenticator")
	}
	if !store.IsAdmin() {
		t.Fatalf("expected admin session")
	}
}

func TestLoginFailureLeavesStateUntouched(t *testing.T) {
	backendErr := &apperr.Error{Kind: apperr.KindAuthentication, Code: "http_401", Message: "Invalid email or password", Status: 401}
	auth := &fakeAuth{loginErr: backendErr}
	persist := &memPersister{}
	store := newTestStore(auth, persist)
	store.Logout(context.Background())

	_, err := store.Login(context.Background(), "siti@example.com", "wrong", false)
	if !errors.Is(err, apperr.ErrAuthentication) {
		t.Fatalf("expected authentication failure, got %v", err)
	}
	if apperr.UserMessage(err) != "Invalid email or password" {
		t.Fatalf("expected backend message, got %q", apperr.UserMessage(err))
	}
	if store.IsAuthenticated() || persist.saves != 0 {
		t.Fatalf("expected no state change and no writes")
	}
}

func TestLoginFailureFallbackMessage(t *testing.T) {
	auth := &fakeAuth{loginErr: errors.New("boom")}
	store := newTestStore(auth, &memPersister{})
	_, err := store.Login(context.Background(), "siti@example.com", "pw", false)
	if apperr.UserMessage(err) != "Login failed" {
		t.Fatalf("expected fallback message, got %q", apperr.UserMessage(err))
	}

	auth.loginErr = apperr.Wrap(errors.New("dial tcp: refused"), apperr.KindNetwork, "network_error", "")
	_, err = store.Login(context.Background(), "siti@example.com", "pw", false)
	if !errors.Is(err, apperr.ErrNetwork) || apperr.UserMessage(err) != "Login failed" {
		t.Fatalf("expected network failure with generic message, got %v", err)
	}
}

func TestLoginFormValidationSkipsNetwork(t *testing.T) {
	auth := &fakeAuth{session: Session{Token: "tok", User: employee}}
	store := newTestStore(auth, &memPersister{})
	_, err := store.Login(context.Background(), "not-an-email", "", false)
	if !errors.Is(err, apperr.ErrForm) {
		t.Fatalf("expected form error, got %v", err)
	}
	fields := apperr.FieldErrors(err)
	if fields["email"] != "Email is invalid" || fields["password"] != "Password is required" {
		t.Fatalf("unexpected field errors %v", fields)
	}
	if auth.loginCalls != 0 {
		t.Fatalf("expected no backend call")
	}
}

func TestLoginSaveFailureIsNotPartial(t *testing.T) {
	auth := &fakeAuth{session: Session{Token: "tok", User: employee}}
	persist := &memPersister{saveErr: errors.New("disk full")}
	store := newTestStore(auth, persist)
	_, err := store.Login(context.Background(), "siti@example.com", "pw", false)
	if apperr.KindOf(err) != apperr.KindStorage {
		t.Fatalf("expected storage failure, got %v", err)
	}
	if store.IsAuthenticated() {
		t.Fatalf("expected no session after failed save")
	}
}

func TestRestoreWithoutSavedSession(t *testing.T) {
	store := newTestStore(&fakeAuth{}, &memPersister{})
	snap, err := waitValidation(t, store.Restore(context.Background()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.State != StateAnonymous {
		t.Fatalf("expected anonymous, got %s", snap.State)
	}
}

func TestRestoreOptimisticThenRejected(t *testing.T) {
	saved := Session{Token: "old", User: employee}
	persist := &memPersister{session: &saved}
	auth := &fakeAuth{verifyErr: errors.New("401"), verifyGate: make(chan struct{})}
	store := newTestStore(auth, persist)

	var mu sync.Mutex
	var seen []Snapshot
	store.Subscribe(func(s Snapshot) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})

	v := store.Restore(context.Background())
	optimistic := store.Snapshot()
	if !optimistic.Authenticated() || !optimistic.Verifying {
		t.Fatalf("expected optimistic authenticated state, got %+v", optimistic)
	}
	if !store.IsAuthenticated() {
		t.Fatalf("expected best-effort read to be authenticated")
	}
	close(auth.verifyGate)

	snap, err := waitValidation(t, v)
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation failure, got %v", err)
	}
	if snap.State != StateAnonymous || store.IsAuthenticated() {
		t.Fatalf("expected anonymous after rejection, got %+v", snap)
	}
	if persist.current() != nil {
		t.Fatalf("expected persisted state cleared")
	}

	mu.Lock()
	defer mu.Unlock()
	want := []State{StateRestoring, StateAuthenticated, StateAnonymous}
	if len(seen) != len(want) {
		t.Fatalf("expected %d notifications, got %d", len(want), len(seen))
	}
	for i, state := range want {
		if seen[i].State != state {
			t.Fatalf("notification %d expected %s, got %s", i, state, seen[i].State)
		}
	}
}

func TestRestoreVerified(t *testing.T) {
	saved := Session{Token: "good", User: admin}
	store := newTestStore(&fakeAuth{}, &memPersister{session: &saved})
	v := store.Restore(context.Background())
	snap, err := waitValidation(t, v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !snap.Authenticated() || snap.Verifying || !snap.Admin() {
		t.Fatalf("expected verified admin session, got %+v", snap)
	}
	if store.Restore(context.Background()) != v {
		t.Fatalf("expected restore to run once")
	}
}

func TestRestoreUnreadableSession(t *testing.T) {
	persist := &memPersister{loadErr: errors.New("bad json")}
	store := newTestStore(&fakeAuth{}, persist)
	snap, err := waitValidation(t, store.Restore(context.Background()))
	if apperr.KindOf(err) != apperr.KindStorage {
		t.Fatalf("expected storage error, got %v", err)
	}
	if snap.State != StateAnonymous || persist.clears != 1 {
		t.Fatalf("expected anonymous with cleared storage")
	}
}

func TestLateValidationFailureDoesNotResurrectOrKill(t *testing.T) {
	saved := Session{Token: "old", User: employee}
	persist := &memPersister{session: &saved}
	auth := &fakeAuth{
		session:    Session{Token: "fresh", User: employee},
		verifyErr:  errors.New("network down"),
		verifyGate: make(chan struct{}),
	}
	store := newTestStore(auth, persist)

	v := store.Restore(context.Background())
	store.Logout(context.Background())
	if _, err := store.Login(context.Background(), "siti@example.com", "pw", false); err != nil {
		t.Fatalf("login error: %v", err)
	}
	close(auth.verifyGate)
	waitValidation(t, v)

	sess, ok := store.Session()
	if !ok || sess.Token != "fresh" {
		t.Fatalf("expected new session to survive stale validation, got %+v ok=%v", sess, ok)
	}
	if cur := persist.current(); cur == nil || cur.Token != "fresh" {
		t.Fatalf("expected fresh session persisted, got %+v", cur)
	}
}

func TestLateValidationAfterLogoutStaysAnonymous(t *testing.T) {
	saved := Session{Token: "old", User: employee}
	persist := &memPersister{session: &saved}
	auth := &fakeAuth{verifyGate: make(chan struct{})}
	store := newTestStore(auth, persist)

	v := store.Restore(context.Background())
	store.Logout(context.Background())
	close(auth.verifyGate)
	snap, _ := waitValidation(t, v)
	if snap.Authenticated() || store.IsAuthenticated() {
		t.Fatalf("expected logout to win over late validation")
	}
}

func TestUpdateUser(t *testing.T) {
	persist := &memPersister{}
	auth := &fakeAuth{session: Session{Token: "tok", User: employee}}
	store := newTestStore(auth, persist)

	if err := store.UpdateUser(context.Background(), employee); !errors.Is(err, apperr.ErrNotAuthenticated) {
		t.Fatalf("expected not authenticated, got %v", err)
	}

	if _, err := store.Login(context.Background(), "siti@example.com", "pw", false); err != nil {
		t.Fatalf("login error: %v", err)
	}
	updated := employee
	updated.Phone = "0812"
	updated.PhotoURL = "/uploads/siti.png"
	if err := store.UpdateUser(context.Background(), updated); err != nil {
		t.Fatalf("update error: %v", err)
	}
	sess, _ := store.Session()
	if sess.Token != "tok" || sess.User != updated {
		t.Fatalf("expected token unchanged and user replaced, got %+v", sess)
	}
	if cur := persist.current(); cur == nil || cur.User != updated || cur.Token != "tok" {
		t.Fatalf("expected updated user persisted")
	}
}

func TestUpdateUserDuringVerificationKeepsIt(t *testing.T) {
	saved := Session{Token: "old", User: employee}
	auth := &fakeAuth{verifyGate: make(chan struct{})}
	store := newTestStore(auth, &memPersister{session: &saved})
	v := store.Restore(context.Background())

	updated := employee
	updated.Name = "Siti R."
	if err := store.UpdateUser(context.Background(), updated); err != nil {
		t.Fatalf("update error: %v", err)
	}
	close(auth.verifyGate)
	snap, err := waitValidation(t, v)
	if err != nil || snap.Verifying || snap.Session.User.Name != "Siti R." {
		t.Fatalf("expected verified updated session, got %+v err=%v", snap, err)
	}
}

func TestSubscribeCancel(t *testing.T) {
	store := newTestStore(&fakeAuth{session: Session{Token: "t", User: employee}}, &memPersister{})
	count := 0
	cancel := store.Subscribe(func(Snapshot) { count++ })
	store.Logout(context.Background())
	cancel()
	store.Logout(context.Background())
	if count != 1 {
		t.Fatalf("expected one notification, got %d", count)
	}
}

func TestSubscribersNeverSeeLogoutUndone(t *testing.T) {
	saved := Session{Token: "old", User: employee}
	auth := &fakeAuth{verifyGate: make(chan struct{})}
	store := newTestStore(auth, &memPersister{session: &saved})

	held := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	var seen []Snapshot
	store.Subscribe(func(s Snapshot) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
		if s.Authenticated() && !s.Verifying {
			close(held)
			<-release
		}
	})

	v := store.Restore(context.Background())
	close(auth.verifyGate)
	select {
	case <-held:
	case <-time.After(2 * time.Second):
		t.Fatalf("verified snapshot was never delivered")
	}

	logoutDone := make(chan struct{})
	go func() {
		store.Logout(context.Background())
		close(logoutDone)
	}()
	select {
	case <-logoutDone:
	case <-time.After(2 * time.Second):
		t.Fatalf("logout blocked on a running subscriber")
	}
	close(release)
	waitValidation(t, v)

	mu.Lock()
	defer mu.Unlock()
	last := seen[len(seen)-1]
	if store.State() != StateAnonymous || last.State != StateAnonymous {
		t.Fatalf("store state=%s, last delivered state=%s", store.State(), last.State)
	}
}

func TestSubscriberCallbacksDoNotOverlap(t *testing.T) {
	store := newTestStore(&fakeAuth{session: Session{Token: "t", User: employee}}, &memPersister{})
	var mu sync.Mutex
	running, overlaps, calls := 0, 0, 0
	store.Subscribe(func(Snapshot) {
		mu.Lock()
		running++
		calls++
		if running > 1 {
			overlaps++
		}
		mu.Unlock()
		time.Sleep(time.Millisecond)
		mu.Lock()
		running--
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Logout(context.Background())
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if overlaps != 0 {
		t.Fatalf("expected serialized callbacks, got %d overlaps", overlaps)
	}
	if calls == 0 {
		t.Fatalf("expected at least one notification")
	}
}

func TestSubscriberMayCallStore(t *testing.T) {
	store := newTestStore(&fakeAuth{session: Session{Token: "t", User: employee}}, &memPersister{})
	var states []State
	store.Subscribe(func(s Snapshot) {
		states = append(states, s.State)
		if s.Authenticated() {
			store.Logout(context.Background())
		}
	})
	if _, err := store.Login(context.Background(), "siti@example.com", "pw", false); err != nil {
		t.Fatalf("login error: %v", err)
	}
	if len(states) != 2 || states[0] != StateAuthenticated || states[1] != StateAnonymous {
		t.Fatalf("unexpected notifications %v", states)
	}
}

func TestRevalidate(t *testing.T) {
	auth := &fakeAuth{session: Session{Token: "t", User: employee}}
	persist := &memPersister{}
	store := newTestStore(auth, persist)

	if err := store.Revalidate(context.Background()); !errors.Is(err, apperr.ErrNotAuthenticated) {
		t.Fatalf("expected not authenticated, got %v", err)
	}
	if _, err := store.Login(context.Background(), "siti@example.com", "pw", false); err != nil {
		t.Fatalf("login error: %v", err)
	}
	if err := store.Revalidate(context.Background()); err != nil {
		t.Fatalf("expected valid token, got %v", err)
	}
	auth.mu.Lock()
	auth.verifyErr = errors.New("expired")
	auth.mu.Unlock()
	if err := store.Revalidate(context.Background()); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if store.IsAuthenticated() || persist.current() != nil {
		t.Fatalf("expected forced logout")
	}
}

func TestRevalidateCancelledContextKeepsSession(t *testing.T) {
	auth := &fakeAuth{session: Session{Token: "t", User: employee}, verifyErr: context.Canceled}
	store := newTestStore(auth, &memPersister{})
	if _, err := store.Login(context.Background(), "siti@example.com", "pw", false); err != nil {
		t.Fatalf("login error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := store.Revalidate(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
	if !store.IsAuthenticated() {
		t.Fatalf("expected session kept on shutdown")
	}
}

func TestSync(t *testing.T) {
	persist := &memPersister{}
	store := newTestStore(&fakeAuth{session: Session{Token: "t", User: employee}}, persist)
	if _, err := store.Login(context.Background(), "siti@example.com", "pw", false); err != nil {
		t.Fatalf("login error: %v", err)
	}

	persist.Clear(context.Background())
	if err := store.Sync(context.Background()); err != nil {
		t.Fatalf("sync error: %v", err)
	}
	if store.IsAuthenticated() {
		t.Fatalf("expected external logout to be picked up")
	}

	other := Session{Token: "other", User: admin}
	persist.Save(context.Background(), other)
	if err := store.Sync(context.Background()); err != nil {
		t.Fatalf("sync error: %v", err)
	}
	if !store.IsAdmin() || store.Token() != "other" {
		t.Fatalf("expected external login to be picked up")
	}
}
