package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"dymgr/internal/api"
	"dymgr/internal/credential"
	"dymgr/internal/dispatch"
	"dymgr/internal/logging"
	"dymgr/internal/services"
)

const (
	defaultLoginMessage    = "login failed"
	defaultRegisterMessage = "registration failed"
)

// AuthAPI is the subset of the endpoint catalog the session drives.
type AuthAPI interface {
	Token(ctx context.Context, creds api.Credentials) (*api.TokenResponse, error)
	Register(ctx context.Context, reg api.Registration) (*api.User, error)
	Me(ctx context.Context) (*api.User, error)
}

// Option customises Store construction.
type Option func(*Store)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logging.NewComponentLogger(logger, "session")
	}
}

// WithValidation selects the startup check performed by Restore.
func WithValidation(mode Validation) Option {
	return func(s *Store) {
		if mode != "" {
			s.validation = mode
		}
	}
}

// WithClock overrides the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store is the session store. The zero value is not usable; call New.
type Store struct {
	auth       AuthAPI
	slot       credential.Store
	logger     *slog.Logger
	validation Validation
	now        func() time.Time

	notifyMu       sync.Mutex
	mu             sync.RWMutex
	user           *api.User
	token          string
	busy           int
	authenticating int
	subscribers    map[int]func(Snapshot)
	nextSubscriber int

	flight  singleflight.Group
	loginMu sync.Mutex
	login   *loginClaim
}

// loginClaim tracks the callers sharing one username's token exchange. The
// exchange runs on ctx, which is cancelled only once every caller has gone.
type loginClaim struct {
	username string
	ctx      context.Context
	cancel   context.CancelFunc
	holders  int
	live     int
}

var _ dispatch.TokenSource = (*Store)(nil)

// New builds a Store and restores any persisted token from slot.
func New(auth AuthAPI, slot credential.Store, opts ...Option) (*Store, error) {
	if auth == nil {
		return nil, services.Wrap(services.ErrConfiguration, "session", "init", "auth client is required", nil)
	}
	if slot == nil {
		return nil, services.Wrap(services.ErrConfiguration, "session", "init", "credential slot is required", nil)
	}
	s := &Store{
		auth:        auth,
		slot:        slot,
		logger:      logging.NewComponentLogger(nil, "session"),
		validation:  ValidateNone,
		now:         time.Now,
		subscribers: make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	token, err := slot.Load()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "session", "init", "read persisted credential", err)
	}
	s.token = strings.TrimSpace(token)
	return s, nil
}

// Token returns the current bearer token. It satisfies dispatch.TokenSource.
func (s *Store) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

// User returns a copy of the profile, or nil when none is loaded.
func (s *Store) User() *api.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyUser(s.user)
}

// Loading reports whether a Login or Register call is in progress.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.busy > 0
}

// State reports the current authentication phase.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

// Snapshot returns a consistent copy of the whole session.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to receive a Snapshot after every change, including
// busy flag transitions. Snapshots are delivered one at a time in the order
// the changes were applied. fn runs synchronously on the mutating goroutine
// and must not call back into mutating Store methods. The returned func
// removes it.
func (s *Store) Subscribe(fn func(Snapshot)) (cancel func()) {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	id := s.nextSubscriber
	s.nextSubscriber++
	s.subscribers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			s.mu.Unlock()
		})
	}
}

// Login exchanges creds for a bearer token, persists it, and then fetches the
// profile. A profile failure does not fail the login.
//
// Overlapping calls for the same username share one exchange. Cancelling ctx
// returns this caller early; the shared exchange is only cancelled when every
// caller waiting on it has cancelled.
func (s *Store) Login(ctx context.Context, creds api.Credentials) Result {
	if ctx == nil {
		ctx = context.Background()
	}
	s.update(func() { s.busy++ })
	defer s.update(func() { s.busy-- })

	username := strings.TrimSpace(creds.Username)
	flightCtx, release, ok := s.claimLogin(ctx, username)
	if !ok {
		err := services.Wrap(services.ErrLoginInProgress, "session", "login", fmt.Sprintf("login for another user is in flight; rejected %q", username), nil)
		return Result{Error: services.ErrLoginInProgress.Error(), Err: err}
	}
	defer release()

	s.update(func() { s.authenticating++ })
	defer s.update(func() { s.authenticating-- })

	flight := s.flight.DoChan(username, func() (any, error) {
		return nil, s.exchange(flightCtx, creds)
	})
	var err error
	shared := false
	select {
	case res := <-flight:
		err, shared = res.Err, res.Shared
	case <-ctx.Done():
		err = ctx.Err()
	}
	logger := logging.WithContext(ctx, s.logger)
	if err != nil {
		result := loginFailure(err)
		logger.Info("login failed",
			logging.String("username", username),
			logging.String(logging.FieldErrorKind, services.Kind(result.Err)),
			logging.String("reason", result.Error),
		)
		return result
	}
	logger.Info("login succeeded",
		logging.String("username", username),
		logging.Bool("shared", shared),
	)
	return succeeded()
}

// exchange performs the token request, persists the result, and fetches the
// profile. It runs once per group of overlapping same-user logins.
func (s *Store) exchange(ctx context.Context, creds api.Credentials) error {
	resp, err := s.auth.Token(ctx, creds)
	if err != nil {
		return err
	}
	token := ""
	if resp != nil {
		token = strings.TrimSpace(resp.AccessToken)
	}
	if token == "" {
		return services.Wrap(services.ErrAuthFailed, "session", "login", "token response carried no access token", nil)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.slot.Save(token); err != nil {
		return services.Wrap(services.ErrAuthFailed, "session", "login", "persist credential", err)
	}
	s.update(func() {
		if s.token != token {
			s.user = nil
		}
		s.token = token
	})
	s.FetchProfile(ctx)
	return nil
}

// Register creates an account. It never logs in.
func (s *Store) Register(ctx context.Context, reg api.Registration) Result {
	if ctx == nil {
		ctx = context.Background()
	}
	s.update(func() { s.busy++ })
	defer s.update(func() { s.busy-- })

	logger := logging.WithContext(ctx, s.logger)
	if _, err := s.auth.Register(ctx, reg); err != nil {
		result := failure(err, "register", defaultRegisterMessage)
		logger.Info("registration failed",
			logging.String("username", reg.Username),
			logging.String(logging.FieldErrorKind, services.Kind(result.Err)),
			logging.String("reason", result.Error),
		)
		return result
	}
	logger.Info("registration succeeded", logging.String("username", reg.Username))
	return succeeded()
}

// FetchProfile refreshes the user record. Failures are logged and absorbed;
// they never alter the token or state.
func (s *Store) FetchProfile(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.fetchProfile(ctx); err != nil {
		logging.WarnWithContext(ctx, s.logger, "profile fetch failed", "profile_fetch_failed",
			logging.String(logging.FieldErrorKind, services.Kind(err)),
			logging.String(logging.FieldErrorHint, "run dymgr whoami to retry"),
			logging.String(logging.FieldImpact, "session kept; profile details unavailable"),
			logging.Error(err),
		)
	}
}

func (s *Store) fetchProfile(ctx context.Context) error {
	token, ok := s.Token()
	if !ok {
		return nil
	}
	user, err := s.auth.Me(ctx)
	if err != nil {
		return services.Wrap(services.ErrProfileFetch, "session", "fetch profile", "", err)
	}
	applied := false
	s.update(func() {
		// Discard the result if the session was logged out or replaced meanwhile.
		if s.token == token {
			s.user = copyUser(user)
			applied = true
		}
	})
	if !applied {
		s.logger.Debug("discarded stale profile", logging.Int("user_id", int(user.ID)))
	}
	return nil
}

// Logout clears the session and the persisted slot. It never fails and is
// idempotent; slot removal errors are logged.
func (s *Store) Logout() {
	s.clear("logout")
}

func (s *Store) clear(reason string) {
	s.update(func() {
		s.user = nil
		s.token = ""
	})
	if err := s.slot.Remove(); err != nil {
		logging.WarnWithContext(context.Background(), s.logger, "credential removal failed", "credential_remove_failed",
			logging.String("reason", reason),
			logging.String(logging.FieldErrorHint, "delete the credential file manually"),
			logging.String(logging.FieldImpact, "stale token may be restored on next start"),
			logging.Error(err),
		)
		return
	}
	s.logger.Debug("session cleared", logging.String("reason", reason))
}

// update applies mutate under the write lock and then notifies subscribers
// outside it. notifyMu keeps deliveries in mutation order.
func (s *Store) update(mutate func()) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	s.mu.Lock()
	mutate()
	snap := s.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.Unlock()
	for _, fn := range subs {
		fn(snap)
	}
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		User:    copyUser(s.user),
		Token:   s.token,
		Loading: s.busy > 0,
		State:   s.stateLocked(),
	}
}

func (s *Store) stateLocked() State {
	switch {
	case s.authenticating > 0:
		return StateAuthenticating
	case s.token != "":
		return StateAuthenticated
	default:
		return StateAnonymous
	}
}

// claimLogin joins or starts the login claim for username. It fails when a
// different username holds the claim. The returned context carries ctx's
// values but outlives ctx while other callers still wait on the exchange.
func (s *Store) claimLogin(ctx context.Context, username string) (context.Context, func(), bool) {
	s.loginMu.Lock()
	defer s.loginMu.Unlock()
	claim := s.login
	if claim != nil && claim.username != username {
		return nil, nil, false
	}
	if claim == nil {
		flightCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		claim = &loginClaim{username: username, ctx: flightCtx, cancel: cancel}
		s.login = claim
	}
	claim.holders++
	claim.live++

	stop := context.AfterFunc(ctx, func() {
		s.loginMu.Lock()
		defer s.loginMu.Unlock()
		claim.live--
		if claim.live <= 0 {
			claim.cancel()
		}
	})
	release := func() {
		s.loginMu.Lock()
		defer s.loginMu.Unlock()
		if stop() {
			claim.live--
		}
		claim.holders--
		if claim.holders <= 0 {
			claim.cancel()
			if s.login == claim {
				s.login = nil
			}
		}
	}
	return claim.ctx, release, true
}

func loginFailure(err error) Result {
	return failure(err, "login", defaultLoginMessage)
}

// failure converts an auth error into a Result. Timeouts, transport failures,
// and caller cancellation keep their own markers; everything else is
// classified as an authentication failure.
func failure(err error, operation, fallback string) Result {
	message := dispatch.DetailOf(err)
	if message == "" {
		message = fallback
	}
	classified := err
	switch {
	case errors.Is(err, services.ErrTimeout),
		errors.Is(err, services.ErrNetwork),
		errors.Is(err, services.ErrAuthFailed),
		errors.Is(err, context.Canceled):
	default:
		classified = services.Wrap(services.ErrAuthFailed, "session", operation, message, err)
	}
	return Result{Error: message, Err: classified}
}

func copyUser(user *api.User) *api.User {
	if user == nil {
		return nil
	}
	clone := *user
	if user.DouyinUserID != nil {
		id := *user.DouyinUserID
		clone.DouyinUserID = &id
	}
	return &clone
}
