package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"

	"github.com/nkiryanov/fuowallet/internal/api"
	"github.com/nkiryanov/fuowallet/internal/apperrors"
	"github.com/nkiryanov/fuowallet/internal/navigator"
	"github.com/nkiryanov/fuowallet/internal/output"
	"github.com/nkiryanov/fuowallet/internal/validate"
)

var (
	errNotSignedIn     = fmt.Errorf("please sign in: %w", apperrors.ErrNotAuthenticated)
	errUnknownCommand  = errors.New("unknown command")
	errSessionFinished = errors.New("your session has ended, please sign in again")
)

type command struct {
	name  string
	usage string

	// View the command shows, empty if it doesn't depend on session
	route string

	run func(ctx context.Context, a *App, args []string) error
}

func commands() map[string]command {
	list := []command{
		{name: "signin", route: navigator.PathSignIn, usage: "Sign in with username or email", run: cmdSignIn},
		{name: "signup", route: navigator.PathSignUp, usage: "Create an account", run: cmdSignUp},
		{name: "forgot-password", route: navigator.PathForgotPassword, usage: "Send password reset email", run: cmdForgotPassword},
		{name: "reset-password", route: navigator.PathResetPassword, usage: "Set new password with token from email", run: cmdResetPassword},
		{name: "signout", usage: "Sign out", run: cmdSignOut},
		{name: "status", usage: "Show session state", run: cmdStatus},
		{name: "profile", route: navigator.PathProfile, usage: "Show profile", run: cmdProfile},
		{name: "balance", route: navigator.PathBalance, usage: "Show wallet balances", run: cmdBalance},
		{name: "transfer", route: navigator.PathTransfer, usage: "Send tokens to Stellar account", run: cmdTransfer},
		{name: "transactions", route: navigator.PathTransactions, usage: "List wallet transactions", run: cmdTransactions},
		{name: "fund", route: navigator.PathFundWallet, usage: "Fund wallet with card payment", run: cmdFund},
		{name: "shell", usage: "Run interactive wallet shell", run: cmdShell},
	}

	m := make(map[string]command, len(list))
	for _, c := range list {
		m[c.name] = c
	}
	return m
}

// Exec routes command through navigator and runs it
func (a *App) Exec(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "help" {
		return a.usage()
	}

	cmd, ok := commands()[args[0]]
	if !ok {
		return fmt.Errorf("%w %q, run 'fuowallet help'", errUnknownCommand, args[0])
	}

	if cmd.route != "" {
		switch view := a.router.Navigate(cmd.route); {
		case view == cmd.route:
		case view == navigator.PathSignIn:
			return errNotSignedIn
		default:
			claims, _ := a.store.Claims()
			return fmt.Errorf("already signed in as %s, sign out first", claims.Subject)
		}
	}

	// Failed sign in is rejected too, but there was no session to end
	hadSession := a.store.IsAuthenticated()

	err := cmd.run(ctx, a, args[1:])
	if hadSession && (errors.Is(err, apperrors.ErrSessionRejected) || errors.Is(err, apperrors.ErrCredentialExpired)) {
		a.logger.Debug("Command failed on ended session", "command", cmd.name, "error", err)
		return errSessionFinished
	}

	return err
}

func (a *App) usage() error {
	cmds := commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("Usage: fuowallet [global flags] <command> [flags]\n\nCommands:\n")
	for _, name := range names {
		fmt.Fprintf(&b, "  %-16s %s\n", name, cmds[name].usage)
	}

	_, err := io.WriteString(a.stdout, b.String())
	return err
}

func newFlagSet(name string) *pflag.FlagSet {
	return pflag.NewFlagSet(name, pflag.ContinueOnError)
}

// Read secret from stdin if not given with flag
func (a *App) readSecret(prompt string, value string) (string, error) {
	if value != "" {
		return value, nil
	}

	if _, err := fmt.Fprint(a.stdout, prompt+": "); err != nil {
		return "", err
	}

	// Shell owns stdin and hands lines over
	if a.lines != nil {
		line, ok := <-a.lines
		if !ok {
			return "", io.EOF
		}
		return line, nil
	}

	line, err := a.stdin.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func cmdSignIn(ctx context.Context, a *App, args []string) error {
	fs := newFlagSet("signin")
	identifier := fs.StringP("identifier", "u", "", "Username or email")
	password := fs.StringP("password", "p", "", "Password (read from stdin if omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	pass, err := a.readSecret("Password", *password)
	if err != nil {
		return err
	}

	resp, err := a.client.Login(ctx, *identifier, pass)
	if err != nil {
		return fmt.Errorf("sign in failed: %w", err)
	}

	err = a.store.Login(ctx, resp.Token, resp.Profile)
	switch {
	case errors.Is(err, apperrors.ErrStorage):
		a.logger.Warn("Session is not saved and ends with the process", "error", err)
	case err != nil:
		return fmt.Errorf("sign in failed: %w", err)
	}

	a.router.Navigate(navigator.PathDashboard)
	return a.message("Signed in as %s", resp.Profile.Username)
}

func cmdSignUp(ctx context.Context, a *App, args []string) error {
	var req api.SignupRequest

	fs := newFlagSet("signup")
	fs.StringVar(&req.Username, "username", "", "Username")
	fs.StringVar(&req.Email, "email", "", "Email")
	fs.StringVar(&req.FirstName, "first-name", "", "First name")
	fs.StringVar(&req.LastName, "last-name", "", "Last name")
	password := fs.StringP("password", "p", "", "Password, at least 6 characters (read from stdin if omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var err error
	if req.Password, err = a.readSecret("Password", *password); err != nil {
		return err
	}

	msg, err := a.client.Signup(ctx, req)
	if err != nil {
		return fmt.Errorf("sign up failed: %w", err)
	}

	return a.message("%s Now sign in with 'fuowallet signin'", msg)
}

func cmdForgotPassword(ctx context.Context, a *App, args []string) error {
	fs := newFlagSet("forgot-password")
	email := fs.String("email", "", "Email of the account")
	if err := fs.Parse(args); err != nil {
		return err
	}

	msg, err := a.client.SendResetPasswordEmail(ctx, *email)
	if err != nil {
		return fmt.Errorf("failed to send reset email: %w", err)
	}

	return a.message("%s", msg)
}

type resetPasswordForm struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
	Confirm  string `json:"confirm" validate:"required,eqfield=Password"`
}

func cmdResetPassword(ctx context.Context, a *App, args []string) error {
	var form resetPasswordForm

	fs := newFlagSet("reset-password")
	fs.StringVar(&form.Token, "token", "", "Token from reset email")
	password := fs.StringP("password", "p", "", "New password (read from stdin if omitted)")
	confirm := fs.String("confirm", "", "New password once again (read from stdin if omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var err error
	if form.Password, err = a.readSecret("New password", *password); err != nil {
		return err
	}
	if form.Confirm, err = a.readSecret("Confirm password", *confirm); err != nil {
		return err
	}

	if err := validate.Struct(form); err != nil {
		return err
	}

	msg, err := a.client.ResetPassword(ctx, form.Token, form.Password)
	if err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}

	a.router.Navigate(navigator.PathSignIn)
	return a.message("%s", msg)
}

func cmdSignOut(ctx context.Context, a *App, _ []string) error {
	if err := a.store.Logout(ctx); err != nil {
		a.logger.Warn("Signed out, but stored session was not erased", "error", err)
		return fmt.Errorf("stored session was not erased: %w", err)
	}

	a.router.Navigate(navigator.PathSignIn)
	return a.message("Signed out")
}

func cmdStatus(_ context.Context, a *App, _ []string) error {
	return a.print(newStatusView(a.store))
}

func cmdProfile(ctx context.Context, a *App, args []string) error {
	fs := newFlagSet("profile")
	showSecret := fs.Bool("show-secret", false, "Show wallet secret key")
	if err := fs.Parse(args); err != nil {
		return err
	}

	profile, err := a.client.Profile(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch profile: %w", err)
	}

	if !*showSecret {
		profile = profile.Masked()
	}

	return a.print(profileView(profile))
}

func cmdBalance(ctx context.Context, a *App, _ []string) error {
	profile, _ := a.store.Profile()

	balances, err := a.client.Balances(ctx, profile.PublicKey)
	if err != nil {
		return fmt.Errorf("failed to fetch balances: %w", err)
	}

	return a.print(balancesView(balances))
}

func cmdTransfer(ctx context.Context, a *App, args []string) error {
	fs := newFlagSet("transfer")
	to := fs.String("to", "", "Receiver Stellar public key")
	amount := fs.String("amount", "", "Amount of tokens to send")
	if err := fs.Parse(args); err != nil {
		return err
	}

	value, err := decimal.NewFromString(*amount)
	if err != nil {
		return fmt.Errorf("%w: amount: must be a number", apperrors.ErrValidation)
	}

	_, err = a.client.Transfer(ctx, api.TransferRequest{Receiver: *to, Amount: value})
	if err != nil {
		return fmt.Errorf("transfer failed: %w", err)
	}

	return a.message("Successfully transferred %s FUC tokens!", value.String())
}

func cmdTransactions(ctx context.Context, a *App, _ []string) error {
	claims, _ := a.store.Claims()
	profile, _ := a.store.Profile()

	txs, err := a.client.Transactions(ctx, string(claims.UserID))
	if err != nil {
		return fmt.Errorf("failed to fetch transactions: %w", err)
	}

	return a.print(newTransactionsView(txs, profile.PublicKey))
}

func cmdFund(ctx context.Context, a *App, args []string) error {
	fs := newFlagSet("fund")
	amount := fs.String("amount", "", "Amount in NGN, from 1 to 1000000")
	if err := fs.Parse(args); err != nil {
		return err
	}

	value, err := decimal.NewFromString(*amount)
	if err != nil {
		return fmt.Errorf("%w: amount: must be a number", apperrors.ErrValidation)
	}

	intent, err := a.client.CreatePaymentIntent(ctx, api.PaymentIntentRequest{Amount: value})
	if err != nil {
		return fmt.Errorf("failed to fund wallet: %w", err)
	}

	if a.format != output.FormatTable {
		return a.print(intent)
	}
	return a.message("Complete the payment at: %s\nYour balance will be updated shortly after", intent.AuthorizationURL)
}
