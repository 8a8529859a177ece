package navigator

import (
	"strings"
	"sync"

	"github.com/nkiryanov/fuowallet/internal/logger"
)

// Views of the wallet
const (
	PathRoot           = "/"
	PathSignIn         = "/signin"
	PathSignUp         = "/signup"
	PathForgotPassword = "/forgot-password"
	PathResetPassword  = "/reset-password"

	PathDashboard    = "/dashboard"
	PathProfile      = "/dashboard/profile"
	PathFundWallet   = "/dashboard/fund-wallet"
	PathBalance      = "/dashboard/balance"
	PathTransfer     = "/dashboard/transfer"
	PathTransactions = "/dashboard/transactions"
)

type access int

const (
	// Reachable only while signed out, signed in user is sent to dashboard
	guestOnly access = iota
	public
	protected
)

var routes = map[string]access{
	PathSignIn:         guestOnly,
	PathSignUp:         guestOnly,
	PathForgotPassword: public,
	PathResetPassword:  public,
	PathProfile:        protected,
	PathFundWallet:     protected,
	PathBalance:        protected,
	PathTransfer:       protected,
	PathTransactions:   protected,
}

type authChecker interface {
	IsAuthenticated() bool
}

// Router knows which view is shown and where a path leads given the auth state
type Router struct {
	auth   authChecker
	logger logger.Logger

	mu       sync.Mutex
	current  string
	onSignIn func()
}

func New(auth authChecker, l logger.Logger) *Router {
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &Router{
		auth:    auth,
		logger:  l,
		current: PathRoot,
	}
}

// OnSignIn sets hook called every time the user is sent to sign-in view
func (r *Router) OnSignIn(hook func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.onSignIn = hook
}

// Resolve returns the view the path ends up at
func (r *Router) Resolve(path string) string {
	path = normalize(path)
	authenticated := r.auth.IsAuthenticated()

	if path == PathDashboard {
		path = PathProfile
	}

	acc, ok := routes[path]
	switch {
	case !ok:
		// Root and unknown paths
		if authenticated {
			return PathProfile
		}
		return PathSignIn
	case acc == guestOnly && authenticated:
		return PathProfile
	case acc == protected && !authenticated:
		return PathSignIn
	default:
		return path
	}
}

// Navigate shows the view path resolves to and returns it
func (r *Router) Navigate(path string) string {
	target := r.Resolve(path)

	r.mu.Lock()
	r.current = target
	r.mu.Unlock()

	if target != normalize(path) {
		r.logger.Debug("Redirected", "from", path, "to", target)
	}

	return target
}

func (r *Router) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.current
}

// ToSignIn sends the user to the sign-in view
// No-op if it is already shown; returns true only if the view changed
func (r *Router) ToSignIn() bool {
	r.mu.Lock()
	if r.current == PathSignIn {
		r.mu.Unlock()
		return false
	}

	from := r.current
	r.current = PathSignIn
	hook := r.onSignIn
	r.mu.Unlock()

	r.logger.Info("Sent to sign in", "from", from)
	if hook != nil {
		hook()
	}

	return true
}

func normalize(path string) string {
	path, _, _ = strings.Cut(path, "?")
	if path != PathRoot {
		path = strings.TrimSuffix(path, "/")
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}
