package services

import (
	"ticket-engine/config"
	"ticket-engine/models"

	"github.com/shopspring/decimal"
)

// PricingEngine turns a ticket type and quantity into the full monetary
// breakdown: net price, VAT, gross charge, platform commission and
// organizer payout. It is pure and keeps no state beyond its rates.
//
// Every derived value is rounded half-up to 2 decimal places exactly
// once, at the end; intermediates are carried at full precision so no
// value is ever computed from an already-rounded one.
type PricingEngine struct {
	vatRate               decimal.Decimal
	commissionRate        decimal.Decimal
	commissionMinFee      decimal.Decimal
	commissionVATIncluded bool
	currency              string
}

func NewPricingEngine(cfg *config.Config) *PricingEngine {
	return &PricingEngine{
		vatRate:               decimal.NewFromFloat(cfg.VATRate),
		commissionRate:        decimal.NewFromFloat(cfg.CommissionRate),
		commissionMinFee:      decimal.NewFromFloat(cfg.CommissionMinFee),
		commissionVATIncluded: cfg.CommissionVATIncluded,
		currency:              cfg.Currency,
	}
}

// Quote prices a hold of quantity units of the given ticket type.
func (p *PricingEngine) Quote(tt *models.TicketType, quantity int) models.PriceBreakdown {
	vatRate := p.vatRate
	if tt.VATRate > 0 {
		vatRate = decimal.NewFromFloat(tt.VATRate)
	}
	return p.Breakdown(decimal.NewFromFloat(tt.UnitPrice), quantity, vatRate, tt.VATIncluded)
}

// Breakdown computes the split for an arbitrary unit price. The VAT
// treatment of the ticket price follows vatIncluded; the commission is
// max(gross*rate, minFee) and carries its own VAT the same way the
// platform's commission is configured.
func (p *PricingEngine) Breakdown(unitPrice decimal.Decimal, quantity int, vatRate decimal.Decimal, vatIncluded bool) models.PriceBreakdown {
	qty := decimal.NewFromInt(int64(quantity))
	subtotal := unitPrice.Mul(qty)

	var netExact, vatExact, grossExact decimal.Decimal
	if vatIncluded {
		// Sticker price already contains VAT: reverse extraction.
		vatExact = subtotal.Mul(vatRate).Div(decimal.NewFromInt(1).Add(vatRate))
		netExact = subtotal.Sub(vatExact)
		grossExact = subtotal
	} else {
		vatExact = subtotal.Mul(vatRate)
		netExact = subtotal
		grossExact = subtotal.Add(vatExact)
	}

	commissionExact := grossExact.Mul(p.commissionRate)
	if commissionExact.LessThan(p.commissionMinFee) {
		commissionExact = p.commissionMinFee
	}

	var commissionNetExact, commissionVATExact, commissionTotalExact decimal.Decimal
	if p.commissionVATIncluded {
		commissionVATExact = commissionExact.Mul(vatRate).Div(decimal.NewFromInt(1).Add(vatRate))
		commissionNetExact = commissionExact.Sub(commissionVATExact)
		commissionTotalExact = commissionExact
	} else {
		commissionVATExact = commissionExact.Mul(vatRate)
		commissionNetExact = commissionExact
		commissionTotalExact = commissionExact.Add(commissionVATExact)
	}

	payoutExact := grossExact.Sub(commissionTotalExact)

	return models.PriceBreakdown{
		UnitPrice: unitPrice,
		Quantity:  quantity,
		Currency:  p.currency,

		Subtotal: round2(subtotal),
		Net:      round2(netExact),
		VAT:      round2(vatExact),
		Gross:    round2(grossExact),

		CommissionRate:  p.commissionRate,
		Commission:      round2(commissionTotalExact),
		CommissionNet:   round2(commissionNetExact),
		CommissionVAT:   round2(commissionVATExact),
		OrganizerPayout: round2(payoutExact),
	}
}

// round2 rounds half-up to currency precision. decimal.Round rounds
// half away from zero, which is half-up for the non-negative amounts
// handled here.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
