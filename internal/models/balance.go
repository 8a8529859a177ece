package models

import (
	"github.com/shopspring/decimal"
)

const (
	AssetTypeNative           = "native"
	AssetTypeCreditAlphanum4  = "credit_alphanum4"
	AssetTypeCreditAlphanum12 = "credit_alphanum12"
)

// Balance of one asset held by the wallet account
type Balance struct {
	AssetType   string          `json:"asset_type" yaml:"asset_type"`
	AssetCode   string          `json:"asset_code,omitempty" yaml:"asset_code,omitempty"`
	AssetIssuer string          `json:"asset_issuer,omitempty" yaml:"asset_issuer,omitempty"`
	Amount      decimal.Decimal `json:"balance" yaml:"balance"`
}

// Asset returns human readable asset name
func (b Balance) Asset() string {
	switch {
	case b.AssetType == AssetTypeNative:
		return "XLM"
	case b.AssetCode != "":
		return b.AssetCode
	default:
		return b.AssetType
	}
}
