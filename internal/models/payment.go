package models

// PaymentIntent created by the payment gateway to fund the wallet
// User has to open AuthorizationURL to complete the payment
type PaymentIntent struct {
	AuthorizationURL string `json:"authorization_url" yaml:"authorization_url"`
	AccessCode       string `json:"access_code" yaml:"access_code"`
	Reference        string `json:"reference" yaml:"reference"`
}
