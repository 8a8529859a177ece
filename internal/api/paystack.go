package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/nkiryanov/fuowallet/internal/models"
	"github.com/nkiryanov/fuowallet/internal/validate"
)

// Funding of the wallet, amount in NGN
type PaymentIntentRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"gte=1,lte=1000000"`
}

type paymentIntentBody struct {
	Amount json.Number `json:"amount"`
}

type paymentIntentResponse struct {
	Status  bool                 `json:"status"`
	Message string               `json:"message"`
	Data    models.PaymentIntent `json:"data"`
}

var ErrNoAuthorizationURL = errors.New("failed to create payment intent")

// CreatePaymentIntent starts wallet funding
// User has to complete the payment following returned authorization url
func (c *Client) CreatePaymentIntent(ctx context.Context, req PaymentIntentRequest) (models.PaymentIntent, error) {
	if err := validate.Struct(req); err != nil {
		return models.PaymentIntent{}, err
	}

	var resp paymentIntentResponse
	body := paymentIntentBody{Amount: json.Number(req.Amount.String())}
	if err := c.do(ctx, c.client, http.MethodPost, "/paystack/create-payment-intent", body, &resp); err != nil {
		return models.PaymentIntent{}, err
	}

	if resp.Data.AuthorizationURL == "" {
		return models.PaymentIntent{}, ErrNoAuthorizationURL
	}

	return resp.Data, nil
}
