package models

import (
	"github.com/shopspring/decimal"
)

// PriceBreakdown is the monetary split of one hold: what the purchaser
// pays, the tax component, the platform's cut and what the organizer
// receives. Computed on demand, never persisted.
type PriceBreakdown struct {
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Currency  string          `json:"currency"`

	Subtotal decimal.Decimal `json:"subtotal"`
	Net      decimal.Decimal `json:"net"`
	VAT      decimal.Decimal `json:"vat"`
	Gross    decimal.Decimal `json:"gross"`

	CommissionRate  decimal.Decimal `json:"commission_rate"`
	Commission      decimal.Decimal `json:"commission"`
	CommissionNet   decimal.Decimal `json:"commission_net"`
	CommissionVAT   decimal.Decimal `json:"commission_vat"`
	OrganizerPayout decimal.Decimal `json:"organizer_payout"`
}
