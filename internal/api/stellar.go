package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/nkiryanov/fuowallet/internal/models"
	"github.com/nkiryanov/fuowallet/internal/validate"
)

const msgReceiverNotExist = "The receiver account does not exist!"

// Transfer of wallet tokens to another Stellar account
type TransferRequest struct {
	Receiver string          `json:"receiverPublicKey" validate:"required,len=56,stellar_pubkey"`
	Amount   decimal.Decimal `json:"amount" validate:"gte=0.0000001,lte=1000000"`
}

// Amount goes as json number
type transferBody struct {
	Receiver string      `json:"receiverPublicKey"`
	Amount   json.Number `json:"amount"`
}

type TransferReceipt struct {
	Message string `json:"message,omitempty"`
	Hash    string `json:"hash,omitempty"`
}

type balancesResponse struct {
	Balances []models.Balance `json:"balances"`
}

// Balances of the Stellar account
func (c *Client) Balances(ctx context.Context, publicKey string) ([]models.Balance, error) {
	if publicKey == "" {
		return nil, errors.New("public key not found, make sure you are signed in")
	}

	var resp balancesResponse
	err := c.do(ctx, c.client, http.MethodGet, "/stellar/check-balance/"+url.PathEscape(publicKey), nil, &resp)
	if err != nil {
		return nil, err
	}

	if resp.Balances == nil {
		resp.Balances = []models.Balance{}
	}
	return resp.Balances, nil
}

// Transfer sends tokens from the signed-in user's wallet
func (c *Client) Transfer(ctx context.Context, req TransferRequest) (TransferReceipt, error) {
	var receipt TransferReceipt

	if err := validate.Struct(req); err != nil {
		return receipt, err
	}

	body := transferBody{Receiver: req.Receiver, Amount: json.Number(req.Amount.String())}
	err := c.do(ctx, c.client, http.MethodPost, "/stellar/transfer", body, &receipt)

	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest && apiErr.Message == msgReceiverNotExist {
		apiErr.Message = "The receiver's public key is invalid! Please check and try again."
	}

	return receipt, err
}

// Transactions of the user, userID is taken from credential claims
func (c *Client) Transactions(ctx context.Context, userID string) ([]models.Transaction, error) {
	if userID == "" {
		return nil, errors.New("user id not found in credential")
	}

	var txs []models.Transaction
	err := c.do(ctx, c.client, http.MethodGet, "/stellar/transactions/"+url.PathEscape(userID), nil, &txs)
	if err != nil {
		return nil, err
	}

	if txs == nil {
		txs = []models.Transaction{}
	}
	return txs, nil
}
