package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nkiryanov/fuowallet/internal/apperrors"
	"github.com/nkiryanov/fuowallet/internal/logger"
	"github.com/nkiryanov/fuowallet/internal/models"
)

// Storage keys the session is persisted under
const (
	KeyCredential = "authToken"
	KeyProfile    = "profile"
)

// Reasons the session ended with
const (
	ReasonLogout   = "logout"
	ReasonExpired  = "expired"
	ReasonRejected = "rejected"
	ReasonInvalid  = "invalid"
)

const defaultCheckInterval = time.Minute

type State int

const (
	Uninitialized State = iota
	Unauthenticated
	Authenticated
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticated:
		return "authenticated"
	default:
		return "uninitialized"
	}
}

// Durable storage the session survives restarts in
type Storage interface {
	// Has to return apperrors.ErrKeyNotFound if key not set
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	Remove(ctx context.Context, key string) error
}

// Observer is notified about session lifecycle
// Called outside of the store lock, so it may call the store back
type Observer interface {
	SessionStarted(ctx context.Context, claims Claims, profile models.Profile)
	SessionEnded(ctx context.Context, reason string)
}

type Config struct {
	// How often the held credential is checked for expiry
	// If not set than default is used
	CheckInterval time.Duration

	// Clock to check credential expiry against
	// If not set than time.Now is used
	Now func() time.Time

	Logger   logger.Logger
	Observer Observer
}

// Store is the single source of truth about who is signed in
type Store struct {
	storage  Storage
	now      func() time.Time
	interval time.Duration
	logger   logger.Logger
	observer Observer

	mu      sync.Mutex
	state   State
	token   string
	claims  Claims
	profile *models.Profile

	// Expiry watcher of the current session
	stopWatch context.CancelFunc
	watchers  sync.WaitGroup

	initOnce sync.Once
	ready    chan struct{}
}

func New(storage Storage, cfg Config) (*Store, error) {
	if storage == nil {
		return nil, errors.New("storage must not be nil")
	}

	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = defaultCheckInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoOpLogger()
	}

	return &Store{
		storage:  storage,
		now:      cfg.Now,
		interval: cfg.CheckInterval,
		logger:   cfg.Logger,
		observer: cfg.Observer,
		ready:    make(chan struct{}),
	}, nil
}

// Initialize hydrates the session from storage. Runs once, later calls are no-op
// Invalid or incomplete persisted session is erased before anyone may observe it
func (s *Store) Initialize(ctx context.Context) error {
	var err error

	s.initOnce.Do(func() {
		defer close(s.ready)

		var started bool
		started, err = s.hydrate(ctx)
		if started {
			s.notifyStarted(ctx)
		}
	})

	return err
}

// Ready is closed when Initialize completed
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

func (s *Store) hydrate(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = Unauthenticated

	token, err := s.storage.Get(ctx, KeyCredential)
	switch {
	case errors.Is(err, apperrors.ErrKeyNotFound):
		// Profile without credential must not survive
		return false, s.clearStorage(ctx)
	case err != nil:
		s.logger.Warn("Failed to read persisted credential, discarding session", "error", err)
		if clearErr := s.clearStorage(ctx); clearErr != nil {
			return false, fmt.Errorf("%w: read credential: %w", apperrors.ErrStorage, err)
		}
		return false, nil
	}

	claims, err := ParseClaims(token)
	if err != nil {
		s.logger.Info("Persisted credential is malformed, discarding session", "error", err)
		return false, s.clearStorage(ctx)
	}
	if !claims.ValidAt(s.now()) {
		s.logger.Info("Persisted credential expired, discarding session", "expired_at", claims.ExpiresAtTime())
		return false, s.clearStorage(ctx)
	}

	profile, err := s.readProfile(ctx)
	if err != nil {
		s.logger.Info("Persisted profile unavailable, discarding session", "error", err)
		return false, s.clearStorage(ctx)
	}

	s.setLocked(token, claims, profile)
	s.logger.Debug("Session restored", "subject", claims.Subject, "expires_at", claims.ExpiresAtTime())

	return true, nil
}

func (s *Store) readProfile(ctx context.Context) (models.Profile, error) {
	var profile models.Profile

	raw, err := s.storage.Get(ctx, KeyProfile)
	if err != nil {
		return profile, err
	}

	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		return profile, fmt.Errorf("error while decoding profile. Err: %w", err)
	}

	return profile, nil
}

// Login establishes the session from credential and profile got on successful sign in
//
// Invalid credential is refused and existing session stays untouched.
// Storage is written best-effort: if persisting fails the session still lives
// in memory and the error is returned wrapped with apperrors.ErrStorage
func (s *Store) Login(ctx context.Context, token string, profile models.Profile) error {
	claims, err := ParseClaims(token)
	if err == nil && !claims.ValidAt(s.now()) {
		err = apperrors.ErrCredentialExpired
	}
	if err != nil {
		s.logger.Warn("Refusing to start session with invalid credential", "error", err)
		return fmt.Errorf("%w: %w", apperrors.ErrCredentialInvalid, err)
	}

	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("error while encoding profile. Err: %w", err)
	}

	s.mu.Lock()
	persistErr := s.persist(ctx, token, string(raw))
	s.setLocked(token, claims, profile)
	s.mu.Unlock()

	s.logger.Info("Session started", "subject", claims.Subject, "expires_at", claims.ExpiresAtTime())
	s.notifyStarted(ctx)

	if persistErr != nil {
		s.logger.Warn("Session is not persisted, it won't survive restart", "error", persistErr)
		return persistErr
	}
	return nil
}

// Credential first, then profile
func (s *Store) persist(ctx context.Context, token string, profile string) error {
	if err := s.storage.Set(ctx, KeyCredential, token); err != nil {
		return fmt.Errorf("%w: write credential: %w", apperrors.ErrStorage, err)
	}
	if err := s.storage.Set(ctx, KeyProfile, profile); err != nil {
		return fmt.Errorf("%w: write profile: %w", apperrors.ErrStorage, err)
	}
	return nil
}

// Logout erases the session from memory and storage. Idempotent
// Memory is cleared even if storage fails
func (s *Store) Logout(ctx context.Context) error {
	_, err := s.end(ctx, ReasonLogout, func() bool { return true })
	return err
}

// Invalidate forcibly ends the session the credential belongs to
//
// Newer session (started with another credential while the caller was busy) is kept.
// Returns true only if an active session was ended by this call
func (s *Store) Invalidate(ctx context.Context, credential string, reason string) bool {
	ended, err := s.end(ctx, reason, func() bool {
		return s.token == "" || s.token == credential
	})
	if err != nil {
		s.logger.Warn("Failed to erase persisted session", "reason", reason, "error", err)
	}
	return ended
}

// CheckExpiry ends the session if its credential is no longer valid
// It is what the watcher does on every tick
func (s *Store) CheckExpiry(ctx context.Context) bool {
	ended, err := s.end(ctx, ReasonExpired, func() bool {
		return s.token != "" && !s.claims.ValidAt(s.now())
	})
	if err != nil {
		s.logger.Warn("Failed to erase expired session", "error", err)
	}
	return ended
}

// end clears the session if cond (evaluated under lock) holds
func (s *Store) end(ctx context.Context, reason string, cond func() bool) (bool, error) {
	s.mu.Lock()
	if !cond() {
		s.mu.Unlock()
		return false, nil
	}

	active := s.token != ""
	subject := s.claims.Subject

	s.stopWatchLocked()
	err := s.clearStorage(ctx)
	s.token, s.claims, s.profile = "", Claims{}, nil
	s.state = Unauthenticated
	s.mu.Unlock()

	if active {
		s.logger.Info("Session ended", "subject", subject, "reason", reason)
		if s.observer != nil {
			s.observer.SessionEnded(ctx, reason)
		}
	}

	return active, err
}

// Credential first, then profile; both attempted
func (s *Store) clearStorage(ctx context.Context) error {
	err := errors.Join(
		s.storage.Remove(ctx, KeyCredential),
		s.storage.Remove(ctx, KeyProfile),
	)
	if err != nil {
		return fmt.Errorf("%w: erase session: %w", apperrors.ErrStorage, err)
	}
	return nil
}

func (s *Store) setLocked(token string, claims Claims, profile models.Profile) {
	s.token = token
	s.claims = claims
	s.profile = &profile
	s.state = Authenticated
	s.startWatchLocked()
}

// Credential returns the persisted credential
// On storage failure falls back to the one held in memory
func (s *Store) Credential(ctx context.Context) (string, bool) {
	token, err := s.storage.Get(ctx, KeyCredential)
	switch {
	case err == nil:
		return token, true
	case errors.Is(err, apperrors.ErrKeyNotFound):
		return "", false
	}

	s.logger.Warn("Failed to read persisted credential, using in-memory one", "error", err)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.token != ""
}

// IsValid checks credential against the store clock
func (s *Store) IsValid(token string) bool {
	return IsValid(token, s.now())
}

// IsAuthenticated: credential present and not expired
func (s *Store) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.token != "" && s.claims.ValidAt(s.now())
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.token
}

func (s *Store) Claims() (Claims, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.claims, s.token != ""
}

func (s *Store) Profile() (models.Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.profile == nil {
		return models.Profile{}, false
	}
	return *s.profile, true
}

// Close stops the expiry watcher keeping the session as is
func (s *Store) Close() {
	s.mu.Lock()
	s.stopWatchLocked()
	s.mu.Unlock()

	s.watchers.Wait()
}

func (s *Store) notifyStarted(ctx context.Context) {
	if s.observer == nil {
		return
	}

	s.mu.Lock()
	claims, profile, ok := s.claims, s.profile, s.token != ""
	s.mu.Unlock()

	if ok {
		s.observer.SessionStarted(ctx, claims, *profile)
	}
}
