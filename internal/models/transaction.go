package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	DirectionSent     = "sent"
	DirectionReceived = "received"
	DirectionUnknown  = "unknown"
)

type Transaction struct {
	ID          string          `json:"transactionId" yaml:"id"`
	From        string          `json:"from" yaml:"from"`
	To          string          `json:"to" yaml:"to"`
	AssetCode   string          `json:"assetCode" yaml:"asset_code"`
	AssetAmount decimal.Decimal `json:"assetAmount" yaml:"asset_amount"`
	LedgerTxID  string          `json:"stellarTransactionId" yaml:"ledger_tx_id"`
	CreatedAt   time.Time       `json:"createdAt" yaml:"created_at"`
}

// Direction of the transaction relative to the account with publicKey
func (t Transaction) Direction(publicKey string) string {
	switch {
	case publicKey == "":
		return DirectionUnknown
	case t.From == publicKey:
		return DirectionSent
	default:
		return DirectionReceived
	}
}
