package main

import (
	"time"

	"github.com/nkiryanov/fuowallet/internal/models"
	"github.com/nkiryanov/fuowallet/internal/output"
	"github.com/nkiryanov/fuowallet/internal/session"
)

const keepChars = 8

type profileView models.Profile

func (p profileView) Table() output.Table {
	return output.Table{
		Headers: []string{"FIELD", "VALUE"},
		Rows: [][]string{
			{"Username", p.Username},
			{"Email", p.Email},
			{"First name", p.FirstName},
			{"Last name", p.LastName},
			{"Public key", p.PublicKey},
			{"Secret key", p.SecretKey},
		},
	}
}

type balancesView []models.Balance

func (b balancesView) Table() output.Table {
	t := output.Table{Headers: []string{"ASSET", "BALANCE"}}
	for _, balance := range b {
		t.Rows = append(t.Rows, []string{balance.Asset(), balance.Amount.String()})
	}
	return t
}

type transactionRow struct {
	Date      time.Time `json:"date" yaml:"date"`
	Direction string    `json:"direction" yaml:"direction"`
	From      string    `json:"from" yaml:"from"`
	To        string    `json:"to" yaml:"to"`
	Amount    string    `json:"amount" yaml:"amount"`
	Asset     string    `json:"asset" yaml:"asset"`
	LedgerTx  string    `json:"ledger_tx" yaml:"ledger_tx"`
}

type transactionsView []transactionRow

func newTransactionsView(txs []models.Transaction, publicKey string) transactionsView {
	view := make(transactionsView, 0, len(txs))
	for _, tx := range txs {
		view = append(view, transactionRow{
			Date:      tx.CreatedAt,
			Direction: tx.Direction(publicKey),
			From:      tx.From,
			To:        tx.To,
			Amount:    tx.AssetAmount.String(),
			Asset:     tx.AssetCode,
			LedgerTx:  tx.LedgerTxID,
		})
	}
	return view
}

func (v transactionsView) Table() output.Table {
	t := output.Table{Headers: []string{"DATE", "TYPE", "FROM", "TO", "AMOUNT", "ASSET", "LEDGER TX"}}
	for _, row := range v {
		t.Rows = append(t.Rows, []string{
			row.Date.Local().Format(time.DateTime),
			row.Direction,
			output.Shorten(row.From, keepChars),
			output.Shorten(row.To, keepChars),
			row.Amount,
			row.Asset,
			output.Shorten(row.LedgerTx, keepChars),
		})
	}
	return t
}

type statusView struct {
	State     string     `json:"state" yaml:"state"`
	Subject   string     `json:"subject,omitempty" yaml:"subject,omitempty"`
	UserID    string     `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	Username  string     `json:"username,omitempty" yaml:"username,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
	Remaining string     `json:"remaining,omitempty" yaml:"remaining,omitempty"`
}

func newStatusView(store *session.Store) statusView {
	if !store.IsAuthenticated() {
		return statusView{State: session.Unauthenticated.String()}
	}

	claims, _ := store.Claims()
	profile, _ := store.Profile()
	expiresAt := claims.ExpiresAtTime()

	return statusView{
		State:     session.Authenticated.String(),
		Subject:   claims.Subject,
		UserID:    string(claims.UserID),
		Username:  profile.Username,
		ExpiresAt: &expiresAt,
		Remaining: time.Until(expiresAt).Truncate(time.Second).String(),
	}
}

func (s statusView) Table() output.Table {
	if s.ExpiresAt == nil {
		return output.Table{Rows: [][]string{{"Not signed in"}}}
	}

	return output.Table{
		Rows: [][]string{
			{"State", s.State},
			{"User", s.Username},
			{"User ID", s.UserID},
			{"Expires at", s.ExpiresAt.Local().Format(time.DateTime)},
			{"Remaining", s.Remaining},
		},
	}
}
