package services

import (
	"testing"
	"ticket-engine/config"
	"ticket-engine/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func setupTestPricingEngine() *PricingEngine {
	cfg := &config.Config{
		Currency:              "ETB",
		VATRate:               0.15,
		CommissionRate:        0.10,
		CommissionMinFee:      5,
		CommissionVATIncluded: true,
	}
	return NewPricingEngine(cfg)
}

func TestPricingEngine_Quote_VATInclusive(t *testing.T) {
	engine := setupTestPricingEngine()

	tt := &models.TicketType{
		ID:          "tt-1",
		UnitPrice:   500,
		VATIncluded: true,
	}

	bd := engine.Quote(tt, 1)

	// 500 inclusive of 15% VAT: vat = 500*0.15/1.15
	assert.Equal(t, "500.00", bd.Subtotal.StringFixed(2))
	assert.Equal(t, "65.22", bd.VAT.StringFixed(2))
	assert.Equal(t, "434.78", bd.Net.StringFixed(2))
	assert.Equal(t, "500.00", bd.Gross.StringFixed(2))
	assert.Equal(t, "ETB", bd.Currency)
	assert.Equal(t, 1, bd.Quantity)
}

func TestPricingEngine_Quote_Commission(t *testing.T) {
	engine := setupTestPricingEngine()

	tt := &models.TicketType{
		ID:          "tt-1",
		UnitPrice:   500,
		VATIncluded: true,
	}

	bd := engine.Quote(tt, 2)

	// Gross 1000, commission 10% = 100, itself VAT inclusive
	assert.Equal(t, "1000.00", bd.Gross.StringFixed(2))
	assert.Equal(t, "100.00", bd.Commission.StringFixed(2))
	assert.Equal(t, "13.04", bd.CommissionVAT.StringFixed(2))
	assert.Equal(t, "86.96", bd.CommissionNet.StringFixed(2))
	assert.Equal(t, "900.00", bd.OrganizerPayout.StringFixed(2))
}

func TestPricingEngine_Quote_MinimumCommission(t *testing.T) {
	engine := setupTestPricingEngine()

	tt := &models.TicketType{
		ID:          "tt-cheap",
		UnitPrice:   20,
		VATIncluded: true,
	}

	bd := engine.Quote(tt, 1)

	// 10% of 20 is 2, below the 5 minimum fee
	assert.Equal(t, "5.00", bd.Commission.StringFixed(2))
	assert.Equal(t, "15.00", bd.OrganizerPayout.StringFixed(2))
}

func TestPricingEngine_Breakdown_VATExclusive(t *testing.T) {
	engine := setupTestPricingEngine()

	bd := engine.Breakdown(decimal.NewFromInt(100), 2, decimal.NewFromFloat(0.15), false)

	// VAT added on top of the sticker price
	assert.Equal(t, "200.00", bd.Subtotal.StringFixed(2))
	assert.Equal(t, "200.00", bd.Net.StringFixed(2))
	assert.Equal(t, "30.00", bd.VAT.StringFixed(2))
	assert.Equal(t, "230.00", bd.Gross.StringFixed(2))
	assert.Equal(t, "23.00", bd.Commission.StringFixed(2))
	assert.Equal(t, "207.00", bd.OrganizerPayout.StringFixed(2))
}

func TestPricingEngine_Quote_TicketTypeVATRateOverride(t *testing.T) {
	engine := setupTestPricingEngine()

	tt := &models.TicketType{
		ID:          "tt-zero",
		UnitPrice:   100,
		VATIncluded: true,
		VATRate:     0.05,
	}

	bd := engine.Quote(tt, 1)

	// 100 inclusive of 5% VAT
	assert.Equal(t, "4.76", bd.VAT.StringFixed(2))
	assert.Equal(t, "95.24", bd.Net.StringFixed(2))
}

func TestPricingEngine_Breakdown_PartsAddUp(t *testing.T) {
	engine := setupTestPricingEngine()

	cases := []struct {
		unitPrice float64
		quantity  int
	}{
		{499.99, 1},
		{33.33, 3},
		{1, 5},
		{1234.56, 2},
	}

	for _, tc := range cases {
		bd := engine.Breakdown(decimal.NewFromFloat(tc.unitPrice), tc.quantity, decimal.NewFromFloat(0.15), true)

		// Rounded parts must reconstruct the totals within a cent
		cent := decimal.New(1, -2)
		assert.True(t, bd.Net.Add(bd.VAT).Sub(bd.Gross).Abs().LessThanOrEqual(cent),
			"net+vat != gross for %v x%d", tc.unitPrice, tc.quantity)
		assert.True(t, bd.CommissionNet.Add(bd.CommissionVAT).Sub(bd.Commission).Abs().LessThanOrEqual(cent),
			"commission parts mismatch for %v x%d", tc.unitPrice, tc.quantity)
		assert.True(t, bd.OrganizerPayout.Add(bd.Commission).Sub(bd.Gross).Abs().LessThanOrEqual(cent),
			"payout+commission != gross for %v x%d", tc.unitPrice, tc.quantity)
	}
}
