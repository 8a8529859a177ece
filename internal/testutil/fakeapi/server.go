// Package fakeapi is in-process wallet backend for tests.
package fakeapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nkiryanov/fuowallet/internal/models"
)

const defaultTokenTTL = time.Hour

type Options struct {
	// Clock tokens are issued and checked with
	// If not set than time.Now is used
	Now func() time.Time

	// Lifetime of issued tokens
	// If not set than default is used
	TokenTTL time.Duration
}

// Request received by the server
type Request struct {
	Method        string
	Path          string
	Authorization string
	Status        int
}

type account struct {
	id       string
	password string
	profile  models.Profile
}

type Server struct {
	// Base url clients have to use, with /api prefix
	URL string

	srv      *httptest.Server
	now      func() time.Time
	tokenTTL time.Duration

	mu           sync.Mutex
	nextID       int
	accounts     map[string]*account // by id
	balances     map[string][]models.Balance
	transactions map[string][]models.Transaction // by user id
	resetTokens  map[string]string               // token -> user id
	rejectStatus int
	requests     []Request
}

// Start server stopped on test cleanup
func Start(t testing.TB, opts Options) *Server {
	t.Helper()

	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.TokenTTL == 0 {
		opts.TokenTTL = defaultTokenTTL
	}

	s := &Server{
		now:          opts.Now,
		tokenTTL:     opts.TokenTTL,
		nextID:       1,
		accounts:     make(map[string]*account),
		balances:     make(map[string][]models.Balance),
		transactions: make(map[string][]models.Transaction),
		resetTokens:  make(map[string]string),
	}

	s.srv = httptest.NewServer(s.routes())
	s.URL = s.srv.URL + "/api"
	t.Cleanup(s.srv.Close)

	return s
}

// chain applies middlewares in the given order: m1(m2(...(h)))
func chain(h http.Handler, mds ...func(next http.Handler) http.Handler) http.Handler {
	for i := len(mds) - 1; i >= 0; i-- {
		h = mds[i](h)
	}
	return h
}

func (s *Server) routes() http.Handler {
	withAuth := s.auth

	api := http.NewServeMux()

	api.HandleFunc("POST /users/login", s.handleLogin)
	api.HandleFunc("POST /users/signup", s.handleSignup)
	api.HandleFunc("POST /users/send-reset-password-email", s.handleSendResetEmail)
	api.HandleFunc("POST /users/reset-password", s.handleResetPassword)

	api.Handle("GET /users/profile", withAuth(http.HandlerFunc(s.handleProfile)))
	api.Handle("GET /stellar/check-balance/{publicKey}", withAuth(http.HandlerFunc(s.handleBalance)))
	api.Handle("POST /stellar/transfer", withAuth(http.HandlerFunc(s.handleTransfer)))
	api.Handle("GET /stellar/transactions/{userId}", withAuth(http.HandlerFunc(s.handleTransactions)))
	api.Handle("POST /paystack/create-payment-intent", withAuth(http.HandlerFunc(s.handlePaymentIntent)))

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", api))

	return chain(root, s.record)
}

// AddUser registers user, returns its id
func (s *Server) AddUser(t testing.TB, password string, profile models.Profile) string {
	t.Helper()

	hash, err := hashPassword(password)
	require.NoError(t, err, "error while hashing password")

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.addAccountLocked(hash, profile)
}

func (s *Server) addAccountLocked(hash string, profile models.Profile) string {
	id := strconv.Itoa(s.nextID)
	s.nextID++

	s.accounts[id] = &account{id: id, password: hash, profile: profile}
	return id
}

// Token issues credential for the user as login would
func (s *Server) Token(t testing.TB, userID string) string {
	t.Helper()

	s.mu.Lock()
	a, ok := s.accounts[userID]
	s.mu.Unlock()
	require.True(t, ok, "no user with id %s", userID)

	token, err := s.issueToken(a)
	require.NoError(t, err)
	return token
}

func (s *Server) SetBalances(publicKey string, balances []models.Balance) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.balances[publicKey] = balances
}

func (s *Server) Balances(publicKey string) []models.Balance {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]models.Balance(nil), s.balances[publicKey]...)
}

func (s *Server) AddTransaction(userID string, tx models.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.transactions[userID] = append(s.transactions[userID], tx)
}

// ResetToken returns the token sent by email to the user, empty if none
func (s *Server) ResetToken(userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, id := range s.resetTokens {
		if id == userID {
			return token
		}
	}
	return ""
}

// RejectSessions makes every authenticated endpoint reply with the code
// Zero turns it off
func (s *Server) RejectSessions(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rejectStatus = code
}

// Requests received so far
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Request(nil), s.requests...)
}

type ctxKey string

const userKey ctxKey = "user"

func withUser(ctx context.Context, a *account) context.Context {
	return context.WithValue(ctx, userKey, a)
}

func userFromContext(ctx context.Context) *account {
	a, _ := ctx.Value(userKey).(*account)
	return a
}
