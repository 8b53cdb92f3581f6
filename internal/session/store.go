package session

import (
	"context"
	"errors"
	"log"
	"regexp"
	"strings"
	"sync"

	"wfh/attendance/internal/apperr"
)

// Authenticator is the backend half of the session: credential exchange and
// token verification.
type Authenticator interface {
	Login(ctx context.Context, email, password string, asAdmin bool) (Session, error)
	Verify(ctx context.Context, token string) error
}

// Persister keeps the token and user entries across process restarts. Save
// and Clear must write both entries or neither.
type Persister interface {
	Load(ctx context.Context) (Session, bool, error)
	Save(ctx context.Context, s Session) error
	Clear(ctx context.Context) error
}

const loginFailedMessage = "Login failed"

var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

type Option func(*Store)

func WithLogger(logger *log.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Store is the single owner of the client's session. Readers use Snapshot or
// Subscribe; every state change goes through the methods below.
type Store struct {
	auth    Authenticator
	persist Persister
	logger  *log.Logger

	mu        sync.Mutex
	state     State
	session   *Session
	verifying bool
	// epoch changes on every transition; async results started under an
	// older epoch are dropped.
	epoch uint64

	restoreOnce sync.Once
	validation  *Validation

	// seq numbers published snapshots in transition order; guarded by mu.
	seq uint64

	subMu      sync.Mutex
	subs       []subscriber
	nextSub    int
	pending    []published
	queued     uint64
	delivering bool
}

type published struct {
	seq  uint64
	snap Snapshot
}

type subscriber struct {
	id int
	fn func(Snapshot)
}

func New(auth Authenticator, persist Persister, opts ...Option) *Store {
	s := &Store{
		auth:    auth,
		persist: persist,
		logger:  log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Validation tracks the background verification started by Restore.
type Validation struct {
	done   chan struct{}
	result Snapshot
	err    error
}

func newValidation() *Validation {
	return &Validation{done: make(chan struct{})}
}

func (v *Validation) finish(result Snapshot, err error) {
	v.result = result
	v.err = err
	close(v.done)
}

func (v *Validation) Done() <-chan struct{} { return v.done }

// Wait blocks until the restored session has been verified or dropped and
// returns the store's state at that moment. The error is the verification
// failure, if any; it is informational since the store already acted on it.
func (v *Validation) Wait(ctx context.Context) (Snapshot, error) {
	select {
	case <-v.done:
		return v.result, v.err
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// Restore loads the persisted session once per store. A found session is
// published as authenticated right away and verified in the background.
func (s *Store) Restore(ctx context.Context) *Validation {
	s.restoreOnce.Do(func() {
		s.validation = s.restore(ctx)
	})
	return s.validation
}

func (s *Store) restore(ctx context.Context) *Validation {
	v := newValidation()

	s.mu.Lock()
	if s.state != StateUnknown {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		v.finish(snap, nil)
		return v
	}
	epoch := s.transitionLocked(StateRestoring, nil, false)
	p := s.publishLocked()
	s.mu.Unlock()
	s.notify(p)

	saved, ok, err := s.persist.Load(ctx)
	if err != nil {
		s.logger.Printf("session restore: load failed: %v", err)
		s.dropSession(ctx, epoch)
		v.finish(s.Snapshot(), apperr.Wrap(err, apperr.KindStorage, "load_failed", "Saved session could not be read"))
		return v
	}
	if !ok || !saved.Valid() {
		s.mu.Lock()
		if s.epoch == epoch {
			s.transitionLocked(StateAnonymous, nil, false)
		}
		p = s.publishLocked()
		s.mu.Unlock()
		s.notify(p)
		v.finish(p.snap, nil)
		return v
	}

	s.mu.Lock()
	if s.epoch != epoch {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		v.finish(snap, nil)
		return v
	}
	epoch = s.transitionLocked(StateAuthenticated, &saved, true)
	p = s.publishLocked()
	s.mu.Unlock()
	s.notify(p)

	verifyCtx := context.WithoutCancel(ctx)
	go func() {
		err := s.auth.Verify(verifyCtx, saved.Token)
		if err != nil {
			s.logger.Printf("session restore: token rejected: %v", err)
			s.dropSession(verifyCtx, epoch)
			v.finish(s.Snapshot(), validationError(err))
			return
		}
		s.mu.Lock()
		if s.epoch != epoch {
			snap := s.snapshotLocked()
			s.mu.Unlock()
			v.finish(snap, nil)
			return
		}
		s.transitionLocked(StateAuthenticated, s.session, false)
		p := s.publishLocked()
		s.mu.Unlock()
		s.notify(p)
		v.finish(p.snap, nil)
	}()
	return v
}

// dropSession ends the session started under epoch. It does nothing when the
// user has logged out or in since then.
func (s *Store) dropSession(ctx context.Context, epoch uint64) {
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		s.logger.Printf("session: ignoring stale validation result")
		return
	}
	if err := s.persist.Clear(ctx); err != nil {
		s.logger.Printf("session: clear failed: %v", err)
	}
	s.transitionLocked(StateAnonymous, nil, false)
	p := s.publishLocked()
	s.mu.Unlock()
	s.notify(p)
}

func validationError(err error) error {
	return apperr.Wrap(err, apperr.KindValidation, "session_invalid", "Your session has expired. Please log in again")
}

// Login exchanges credentials for a session. Nothing is written and the state
// is unchanged unless the backend accepts the credentials.
func (s *Store) Login(ctx context.Context, email, password string, asAdmin bool) (User, error) {
	email = strings.TrimSpace(email)
	if err := validateCredentials(email, password); err != nil {
		return User{}, err
	}

	sess, err := s.auth.Login(ctx, email, password, asAdmin)
	if err != nil {
		return User{}, loginError(err)
	}
	if !sess.Valid() {
		return User{}, apperr.New(apperr.KindAuthentication, "login_failed", loginFailedMessage)
	}

	s.mu.Lock()
	if err := s.persist.Save(ctx, sess); err != nil {
		s.mu.Unlock()
		s.logger.Printf("session login: save failed: %v", err)
		return User{}, apperr.Wrap(err, apperr.KindStorage, "save_failed", loginFailedMessage)
	}
	s.transitionLocked(StateAuthenticated, &sess, false)
	p := s.publishLocked()
	s.mu.Unlock()
	s.notify(p)

	return sess.User, nil
}

func validateCredentials(email, password string) error {
	fields := map[string]string{}
	if email == "" {
		fields["email"] = "Email is required"
	} else if !emailPattern.MatchString(email) {
		fields["email"] = "Email is invalid"
	}
	if password == "" {
		fields["password"] = "Password is required"
	}
	return apperr.Form(fields)
}

func loginError(err error) error {
	if apperr.KindOf(err) == apperr.KindNetwork {
		return apperr.Wrap(err, apperr.KindNetwork, "login_failed", loginFailedMessage)
	}
	message := ""
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	if message == "" {
		message = loginFailedMessage
	}
	return apperr.Wrap(err, apperr.KindAuthentication, "login_failed", message)
}

// Logout always succeeds; a storage failure is only logged.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	if err := s.persist.Clear(ctx); err != nil {
		s.logger.Printf("session logout: clear failed: %v", err)
	}
	s.transitionLocked(StateAnonymous, nil, false)
	p := s.publishLocked()
	s.mu.Unlock()
	s.notify(p)
}

// UpdateUser swaps the user half of the session after a profile edit.
func (s *Store) UpdateUser(ctx context.Context, user User) error {
	s.mu.Lock()
	if s.state != StateAuthenticated || s.session == nil {
		s.mu.Unlock()
		return apperr.ErrNotAuthenticated
	}
	next := Session{Token: s.session.Token, User: user}
	if err := s.persist.Save(ctx, next); err != nil {
		s.mu.Unlock()
		return apperr.Wrap(err, apperr.KindStorage, "save_failed", "Profile could not be saved locally")
	}
	// Same token, so a pending verification still applies: keep the epoch.
	s.session = &next
	p := s.publishLocked()
	s.mu.Unlock()
	s.notify(p)
	return nil
}

// Revalidate asks the backend whether the current token is still good and
// logs out when it is not. A cancelled ctx leaves the session alone.
func (s *Store) Revalidate(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateAuthenticated || s.session == nil {
		s.mu.Unlock()
		return apperr.ErrNotAuthenticated
	}
	token := s.session.Token
	epoch := s.epoch
	s.mu.Unlock()

	err := s.auth.Verify(ctx, token)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	s.logger.Printf("session revalidate: token rejected: %v", err)
	s.dropSession(ctx, epoch)
	return validationError(err)
}

// Sync re-reads persisted state after something outside this store changed
// it, such as another process logging out.
func (s *Store) Sync(ctx context.Context) error {
	saved, ok, err := s.persist.Load(ctx)
	if err != nil {
		return apperr.Wrap(err, apperr.KindStorage, "load_failed", "Saved session could not be read")
	}

	s.mu.Lock()
	switch {
	case !ok || !saved.Valid():
		if s.session == nil && s.state == StateAnonymous {
			s.mu.Unlock()
			return nil
		}
		s.transitionLocked(StateAnonymous, nil, false)
	case s.session != nil && *s.session == saved:
		s.mu.Unlock()
		return nil
	default:
		s.transitionLocked(StateAuthenticated, &saved, false)
	}
	p := s.publishLocked()
	s.mu.Unlock()
	s.notify(p)
	return nil
}

func (s *Store) transitionLocked(state State, sess *Session, verifying bool) uint64 {
	s.state = state
	if sess != nil {
		cp := *sess
		s.session = &cp
	} else {
		s.session = nil
	}
	s.verifying = verifying
	s.epoch++
	return s.epoch
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{State: s.state, Verifying: s.verifying}
	if s.session != nil {
		cp := *s.session
		snap.Session = &cp
	}
	return snap
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Session returns a copy of the current session, including an optimistic one
// still being verified.
func (s *Store) Session() (Session, bool) {
	snap := s.Snapshot()
	if !snap.Authenticated() {
		return Session{}, false
	}
	return *snap.Session, true
}

// Token implements the API client's token source.
func (s *Store) Token() string {
	sess, _ := s.Session()
	return sess.Token
}

func (s *Store) IsAuthenticated() bool { return s.Snapshot().Authenticated() }

func (s *Store) IsAdmin() bool { return s.Snapshot().Admin() }

// Subscribe registers fn for every later transition. Callbacks run outside
// the store lock, one at a time and in transition order. A callback may call
// back into the store; the snapshots it causes are delivered after it returns.
func (s *Store) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.subMu.Lock()
	s.nextSub++
	id := s.nextSub
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) publishLocked() published {
	s.seq++
	return published{seq: s.seq, snap: s.snapshotLocked()}
}

// notify queues p and, unless another goroutine is already delivering,
// drains the queue. A snapshot older than one already queued is dropped so
// subscribers never move backwards.
func (s *Store) notify(p published) {
	s.subMu.Lock()
	if p.seq <= s.queued {
		s.subMu.Unlock()
		return
	}
	s.queued = p.seq
	s.pending = append(s.pending, p)
	if s.delivering {
		s.subMu.Unlock()
		return
	}
	s.delivering = true
	for len(s.pending) > 0 {
		next := s.pending[0]
		s.pending = s.pending[1:]
		subs := make([]subscriber, len(s.subs))
		copy(subs, s.subs)
		s.subMu.Unlock()
		for _, sub := range subs {
			sub.fn(next.snap)
		}
		s.subMu.Lock()
	}
	s.delivering = false
	s.subMu.Unlock()
}
