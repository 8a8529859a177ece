package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/fuowallet/internal/apperrors"
	"github.com/nkiryanov/fuowallet/internal/models"
	"github.com/nkiryanov/fuowallet/internal/storage/memory"
	"github.com/nkiryanov/fuowallet/internal/testutil"
)

var (
	t0      = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	profile = models.Profile{Username: "jane", Email: "jane@example.com", FirstName: "Jane", LastName: "Doe"}
)

// Storage that fails on demand
type faultyStorage struct {
	*memory.Storage

	failGet    atomic.Bool
	failSet    atomic.Bool
	failRemove atomic.Bool
}

var errBroken = errors.New("disk on fire")

func (s *faultyStorage) Get(ctx context.Context, key string) (string, error) {
	if s.failGet.Load() {
		return "", errBroken
	}
	return s.Storage.Get(ctx, key)
}

func (s *faultyStorage) Set(ctx context.Context, key string, value string) error {
	if s.failSet.Load() {
		return errBroken
	}
	return s.Storage.Set(ctx, key, value)
}

func (s *faultyStorage) Remove(ctx context.Context, key string) error {
	if s.failRemove.Load() {
		return errBroken
	}
	return s.Storage.Remove(ctx, key)
}

type event struct {
	name   string
	reason string
	claims Claims
}

// Records lifecycle events
type recorder struct {
	mu     sync.Mutex
	events []event
}

func (r *recorder) SessionStarted(_ context.Context, claims Claims, _ models.Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{name: "started", claims: claims})
}

func (r *recorder) SessionEnded(_ context.Context, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{name: "ended", reason: reason})
}

func (r *recorder) Events() []event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event(nil), r.events...)
}

func newTestStore(t *testing.T, st Storage, clock *testutil.Clock, obs Observer) *Store {
	t.Helper()

	s, err := New(st, Config{
		// Ticker must not interfere with manual ticks
		CheckInterval: time.Hour,
		Now:           clock.Now,
		Observer:      obs,
	})
	require.NoError(t, err)
	t.Cleanup(s.Close)

	return s
}

func requireStorageEmpty(t *testing.T, st *memory.Storage) {
	t.Helper()
	require.Zero(t, st.Len(), "storage has to be empty")
}

func TestStore_New(t *testing.T) {
	_, err := New(nil, Config{})
	require.Error(t, err)

	s, err := New(memory.New(), Config{})
	require.NoError(t, err)
	defer s.Close()

	require.Equal(t, Uninitialized, s.State())
	require.Equal(t, defaultCheckInterval, s.interval)
}

func TestStore_Login(t *testing.T) {
	t.Run("valid credential", func(t *testing.T) {
		st := memory.New()
		clock := testutil.NewClock(t0)
		rec := &recorder{}
		s := newTestStore(t, st, clock, rec)
		token := testutil.IssueToken(t, testutil.Token{Subject: "jane", UserID: "7", ExpiresAt: t0.Add(time.Hour)})

		err := s.Login(t.Context(), token, profile)

		require.NoError(t, err)
		require.True(t, s.IsAuthenticated())
		require.Equal(t, Authenticated, s.State())
		require.Equal(t, token, s.Token())

		got, ok := s.Profile()
		require.True(t, ok)
		require.Equal(t, profile, got)

		claims, ok := s.Claims()
		require.True(t, ok)
		require.Equal(t, UserID("7"), claims.UserID)

		stored, err := st.Get(t.Context(), KeyCredential)
		require.NoError(t, err)
		require.Equal(t, token, stored)

		storedProfile, err := st.Get(t.Context(), KeyProfile)
		require.NoError(t, err)
		require.JSONEq(t, `{
			"firstName": "Jane",
			"lastName": "Doe",
			"username": "jane",
			"email": "jane@example.com",
			"stellarPublicKey": "",
			"stellarSecretKey": ""
		}`, storedProfile)

		events := rec.Events()
		require.Len(t, events, 1)
		require.Equal(t, "started", events[0].name)
		require.Equal(t, "jane", events[0].claims.Subject)
	})

	t.Run("invalid credential refused", func(t *testing.T) {
		tests := []struct {
			name  string
			token string
		}{
			{"expired", testutil.IssueToken(t, testutil.Token{ExpiresAt: t0.Add(-time.Second)})},
			{"expires now", testutil.IssueToken(t, testutil.Token{ExpiresAt: t0})},
			{"malformed", "garbage"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				st := memory.New()
				s := newTestStore(t, st, testutil.NewClock(t0), nil)

				err := s.Login(t.Context(), tt.token, profile)

				require.ErrorIs(t, err, apperrors.ErrCredentialInvalid)
				require.False(t, s.IsAuthenticated())
				require.Empty(t, s.Token())
				requireStorageEmpty(t, st)
			})
		}
	})

	t.Run("invalid credential keeps existing session", func(t *testing.T) {
		st := memory.New()
		s := newTestStore(t, st, testutil.NewClock(t0), nil)
		token := testutil.IssueToken(t, testutil.Token{ExpiresAt: t0.Add(time.Hour)})
		require.NoError(t, s.Login(t.Context(), token, profile))

		err := s.Login(t.Context(), "garbage", models.Profile{Username: "mallory"})

		require.ErrorIs(t, err, apperrors.ErrCredentialInvalid)
		require.Equal(t, token, s.Token())
		got, _ := s.Profile()
		require.Equal(t, "jane", got.Username)
	})

	t.Run("second login replaces session", func(t *testing.T) {
		st := memory.New()
		s := newTestStore(t, st, testutil.NewClock(t0), nil)
		first := testutil.IssueToken(t, testutil.Token{Subject: "jane", ExpiresAt: t0.Add(time.Hour)})
		second := testutil.IssueToken(t, testutil.Token{Subject: "john", ExpiresAt: t0.Add(2 * time.Hour)})

		require.NoError(t, s.Login(t.Context(), first, profile))
		require.NoError(t, s.Login(t.Context(), second, models.Profile{Username: "john"}))

		require.Equal(t, second, s.Token())
		stored, err := st.Get(t.Context(), KeyCredential)
		require.NoError(t, err)
		require.Equal(t, second, stored)
	})

	t.Run("storage failure keeps in-memory session", func(t *testing.T) {
		st := &faultyStorage{Storage: memory.New()}
		st.failSet.Store(true)
		s := newTestStore(t, st, testutil.NewClock(t0), nil)
		token := testutil.IssueToken(t, testutil.Token{ExpiresAt: t0.Add(time.Hour)})

		err := s.Login(t.Context(), token, profile)

		require.ErrorIs(t, err, apperrors.ErrStorage)
		require.ErrorIs(t, err, errBroken)
		require.True(t, s.IsAuthenticated())
		require.Equal(t, token, s.Token())
	})
}

func TestStore_Logout(t *testing.T) {
	t.Run("clears memory and storage", func(t *testing.T) {
		st := memory.New()
		rec := &recorder{}
		s := newTestStore(t, st, testutil.NewClock(t0), rec)
		token := testutil.IssueToken(t, testutil.Token{ExpiresAt: t0.Add(time.Hour)})
		require.NoError(t, s.Login(t.Context(), token, profile))

		err := s.Logout(t.Context())

		require.NoError(t, err)
		require.False(t, s.IsAuthenticated())
		require.Equal(t, Unauthenticated, s.State())
		require.Empty(t, s.Token())
		_, ok := s.Profile()
		require.False(t, ok)
		requireStorageEmpty(t, st)

		events := rec.Events()
		require.Len(t, events, 2)
		require.Equal(t, event{name: "ended", reason: ReasonLogout}, events[1])
	})

	t.Run("idempotent", func(t *testing.T) {
		st := memory.New()
		rec := &recorder{}
		s := newTestStore(t, st, testutil.NewClock(t0), rec)

		require.NoError(t, s.Logout(t.Context()))
		require.NoError(t, s.Logout(t.Context()))

		require.False(t, s.IsAuthenticated())
		require.Empty(t, rec.Events(), "nothing ended, nothing to notify")
	})

	t.Run("storage failure still clears memory", func(t *testing.T) {
		st := &faultyStorage{Storage: memory.New()}
		s := newTestStore(t, st, testutil.NewClock(t0), nil)
		token := testutil.IssueToken(t, testutil.Token{ExpiresAt: t0.Add(time.Hour)})
		require.NoError(t, s.Login(t.Context(), token, profile))
		st.failRemove.Store(true)

		err := s.Logout(t.Context())

		require.ErrorIs(t, err, apperrors.ErrStorage)
		require.False(t, s.IsAuthenticated())
		require.Empty(t, s.Token())
	})
}

func TestStore_Initialize(t *testing.T) {
	seed := func(t *testing.T, st *memory.Storage, token string, profile string) {
		t.Helper()
		if token != "" {
			require.NoError(t, st.Set(t.Context(), KeyCredential, token))
		}
		if profile != "" {
			require.NoError(t, st.Set(t.Context(), KeyProfile, profile))
		}
	}

	t.Run("valid session hydrated", func(t *testing.T) {
		st := memory.New()
		rec := &recorder{}
		token := testutil.IssueToken(t, testutil.Token{Subject: "jane", ExpiresAt: t0.Add(time.Hour)})
		seed(t, st, token, `{"username": "jane", "email": "jane@example.com"}`)
		s := newTestStore(t, st, testutil.NewClock(t0), rec)

		err := s.Initialize(t.Context())

		require.NoError(t, err)
		require.True(t, s.IsAuthenticated())
		require.Equal(t, token, s.Token())
		got, ok := s.Profile()
		require.True(t, ok)
		require.Equal(t, "jane@example.com", got.Email)
		require.Len(t, rec.Events(), 1)
	})

	t.Run("discarded", func(t *testing.T) {
		valid := testutil.IssueToken(t, testutil.Token{ExpiresAt: t0.Add(time.Hour)})
		expired := testutil.IssueToken(t, testutil.Token{ExpiresAt: t0.Add(-time.Minute)})

		tests := []struct {
			name    string
			token   string
			profile string
		}{
			{"expired credential", expired, `{"username": "jane"}`},
			{"malformed credential", "garbage", `{"username": "jane"}`},
			{"profile without credential", "", `{"username": "jane"}`},
			{"credential without profile", valid, ""},
			{"profile not decodable", valid, `not-json`},
			{"nothing", "", ""},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				st := memory.New()
				rec := &recorder{}
				seed(t, st, tt.token, tt.profile)
				s := newTestStore(t, st, testutil.NewClock(t0), rec)

				err := s.Initialize(t.Context())

				require.NoError(t, err)
				require.False(t, s.IsAuthenticated())
				require.Equal(t, Unauthenticated, s.State())
				requireStorageEmpty(t, st)
				require.Empty(t, rec.Events())
			})
		}
	})

	t.Run("ready closed", func(t *testing.T) {
		s := newTestStore(t, memory.New(), testutil.NewClock(t0), nil)

		select {
		case <-s.Ready():
			t.Fatal("ready before initialize")
		default:
		}

		require.NoError(t, s.Initialize(t.Context()))

		select {
		case <-s.Ready():
		default:
			t.Fatal("ready has to be closed after initialize")
		}
	})

	t.Run("ready closed on storage failure", func(t *testing.T) {
		st := &faultyStorage{Storage: memory.New()}
		st.failGet.Store(true)
		st.failRemove.Store(true)
		s := newTestStore(t, st, testutil.NewClock(t0), nil)

		err := s.Initialize(t.Context())

		require.ErrorIs(t, err, apperrors.ErrStorage)
		require.Equal(t, Unauthenticated, s.State())
		<-s.Ready()
	})

	t.Run("runs once", func(t *testing.T) {
		st := memory.New()
		s := newTestStore(t, st, testutil.NewClock(t0), nil)
		require.NoError(t, s.Initialize(t.Context()))

		// Credential persisted after initialize is not picked up
		seed(t, st, testutil.IssueToken(t, testutil.Token{ExpiresAt: t0.Add(time.Hour)}), `{"username": "jane"}`)
		require.NoError(t, s.Initialize(t.Context()))

		require.False(t, s.IsAuthenticated())
	})
}

func TestStore_CheckExpiry(t *testing.T) {
	t.Run("session ends after expiry", func(t *testing.T) {
		st := memory.New()
		clock := testutil.NewClock(t0)
		rec := &recorder{}
		s := newTestStore(t, st, clock, rec)
		token := testutil.IssueToken(t, testutil.Token{ExpiresAt: t0.Add(3600 * time.Second)})
		require.NoError(t, s.Login(t.Context(), token, profile))
		require.True(t, s.IsAuthenticated())

		clock.Advance(3601 * time.Second)
		require.False(t, s.IsAuthenticated(), "expired credential is not authenticated even before tick")

		ended := s.CheckExpiry(t.Context())

		require.True(t, ended)
		require.False(t, s.IsAuthenticated())
		require.Empty(t, s.Token())
		requireStorageEmpty(t, st)
		require.Equal(t, event{name: "ended", reason: ReasonExpired}, rec.Events()[1])
	})

	t.Run("valid session kept", func(t *testing.T) {
		st := memory.New()
		clock := testutil.NewClock(t0)
		s := newTestStore(t, st, clock, nil)
		token := testutil.IssueToken(t, testutil.Token{ExpiresAt: t0.Add(time.Hour)})
		require.NoError(t, s.Login(t.Context(), token, profile))
		clock.Advance(59 * time.Minute)

		ended := s.CheckExpiry(t.Context())

		require.False(t, ended)
		require.True(t, s.IsAuthenticated())
		require.Equal(t, 2, st.Len())
	})

	t.Run("no session", func(t *testing.T) {
		s := newTestStore(t, memory.New(), testutil.NewClock(t0), nil)

		require.False(t, s.CheckExpiry(t.Context()))
	})
}

func TestStore_Watcher(t *testing.T) {
	st := memory.New()
	clock := testutil.NewClock(t0)
	s, err := New(st, Config{CheckInterval: 10 * time.Millisecond, Now: clock.Now})
	require.NoError(t, err)
	defer s.Close()

	token := testutil.IssueToken(t, testutil.Token{ExpiresAt: t0.Add(time.Hour)})
	require.NoError(t, s.Login(t.Context(), token, profile))

	// Ticks happen but credential is still valid
	time.Sleep(50 * time.Millisecond)
	require.True(t, s.IsAuthenticated())
	require.Equal(t, 2, st.Len())

	clock.Advance(time.Hour)

	require.Eventually(t, func() bool {
		return s.State() == Unauthenticated && st.Len() == 0
	}, time.Second, 10*time.Millisecond, "watcher has to end expired session")
}

func TestStore_Close(t *testing.T) {
	st := memory.New()
	clock := testutil.NewClock(t0)
	s, err := New(st, Config{CheckInterval: 5 * time.Millisecond, Now: clock.Now})
	require.NoError(t, err)

	token := testutil.IssueToken(t, testutil.Token{ExpiresAt: t0.Add(time.Hour)})
	require.NoError(t, s.Login(t.Context(), token, profile))

	s.Close()
	clock.Advance(2 * time.Hour)
	time.Sleep(30 * time.Millisecond)

	require.Equal(t, token, s.Token(), "stopped watcher must not touch the session")
	require.Equal(t, 2, st.Len())
}

func TestStore_Invalidate(t *testing.T) {
	t.Run("ends session of the credential", func(t *testing.T) {
		st := memory.New()
		rec := &recorder{}
		s := newTestStore(t, st, testutil.NewClock(t0), rec)
		token := testutil.IssueToken(t, testutil.Token{ExpiresAt: t0.Add(time.Hour)})
		require.NoError(t, s.Login(t.Context(), token, profile))

		require.True(t, s.Invalidate(t.Context(), token, ReasonRejected))
		require.False(t, s.Invalidate(t.Context(), token, ReasonRejected), "second call has nothing to end")

		require.False(t, s.IsAuthenticated())
		requireStorageEmpty(t, st)
		events := rec.Events()
		require.Len(t, events, 2)
		require.Equal(t, event{name: "ended", reason: ReasonRejected}, events[1])
	})

	t.Run("newer session kept", func(t *testing.T) {
		st := memory.New()
		s := newTestStore(t, st, testutil.NewClock(t0), nil)
		stale := testutil.IssueToken(t, testutil.Token{Subject: "old", ExpiresAt: t0.Add(time.Minute)})
		fresh := testutil.IssueToken(t, testutil.Token{Subject: "new", ExpiresAt: t0.Add(time.Hour)})
		require.NoError(t, s.Login(t.Context(), fresh, profile))

		ended := s.Invalidate(t.Context(), stale, ReasonRejected)

		require.False(t, ended)
		require.Equal(t, fresh, s.Token())
		require.Equal(t, 2, st.Len())
	})

	t.Run("concurrent callers end session once", func(t *testing.T) {
		st := memory.New()
		rec := &recorder{}
		s := newTestStore(t, st, testutil.NewClock(t0), rec)
		token := testutil.IssueToken(t, testutil.Token{ExpiresAt: t0.Add(time.Hour)})
		require.NoError(t, s.Login(t.Context(), token, profile))

		var ended atomic.Int32
		var wg sync.WaitGroup
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if s.Invalidate(context.Background(), token, ReasonRejected) {
					ended.Add(1)
				}
			}()
		}
		wg.Wait()

		require.EqualValues(t, 1, ended.Load())
		require.Len(t, rec.Events(), 2)
		requireStorageEmpty(t, st)
	})
}

func TestStore_Credential(t *testing.T) {
	t.Run("from storage", func(t *testing.T) {
		st := memory.New()
		s := newTestStore(t, st, testutil.NewClock(t0), nil)
		require.NoError(t, st.Set(t.Context(), KeyCredential, "persisted"))

		token, ok := s.Credential(t.Context())

		require.True(t, ok)
		require.Equal(t, "persisted", token)
	})

	t.Run("none", func(t *testing.T) {
		s := newTestStore(t, memory.New(), testutil.NewClock(t0), nil)

		_, ok := s.Credential(t.Context())

		require.False(t, ok)
	})

	t.Run("storage failure falls back to memory", func(t *testing.T) {
		st := &faultyStorage{Storage: memory.New()}
		s := newTestStore(t, st, testutil.NewClock(t0), nil)
		token := testutil.IssueToken(t, testutil.Token{ExpiresAt: t0.Add(time.Hour)})
		require.NoError(t, s.Login(t.Context(), token, profile))
		st.failGet.Store(true)

		got, ok := s.Credential(t.Context())

		require.True(t, ok)
		require.Equal(t, token, got)
	})
}

// Observer calling back into store must not deadlock
type reentrantObserver struct {
	s        *Store
	sawState atomic.Value
}

func (o *reentrantObserver) SessionStarted(context.Context, Claims, models.Profile) {
	o.sawState.Store(o.s.State())
}

func (o *reentrantObserver) SessionEnded(context.Context, string) {
	o.sawState.Store(o.s.State())
}

func TestStore_ObserverOutsideLock(t *testing.T) {
	obs := &reentrantObserver{}
	s, err := New(memory.New(), Config{Now: testutil.NewClock(t0).Now, Observer: obs})
	require.NoError(t, err)
	defer s.Close()
	obs.s = s

	token := testutil.IssueToken(t, testutil.Token{ExpiresAt: t0.Add(time.Hour)})
	require.NoError(t, s.Login(t.Context(), token, profile))
	require.Equal(t, Authenticated, obs.sawState.Load())

	require.NoError(t, s.Logout(t.Context()))
	require.Equal(t, Unauthenticated, obs.sawState.Load())
}
