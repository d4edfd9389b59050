package money

import (
	"github.com/shopspring/decimal"
)

// LineItem is one billable component of a booking, in integer cents.
type LineItem struct {
	Label           string `json:"label"`
	Quantity        int    `json:"quantity"`
	UnitPriceCents  int64  `json:"unitPriceCents"`
	TotalPriceCents int64  `json:"totalPriceCents"`
}

// Split is the derived financial breakdown of a booking.
type Split struct {
	ClientTotalCents  int64 `json:"clientTotalCents"`
	PlatformFeeCents  int64 `json:"platformFeeCents"`
	SitterPayoutCents int64 `json:"sitterPayoutCents"`
}

// DefaultFeePercent is the platform's cut of the client total.
var DefaultFeePercent = decimal.NewFromInt(10)

var hundred = decimal.NewFromInt(100)

type Calculator struct {
	// FeePercent is a percentage like 10 for 10%.
	FeePercent decimal.Decimal
}

func NewCalculator(feePercent decimal.Decimal) Calculator {
	if feePercent.Sign() <= 0 {
		feePercent = DefaultFeePercent
	}
	return Calculator{FeePercent: feePercent}
}

// Total sums the line item totals. Quantity × unit price is not re-checked here.
func Total(items []LineItem) int64 {
	var total int64
	for _, it := range items {
		total += it.TotalPriceCents
	}
	return total
}

// Split derives total, fee and payout from line items.
func (c Calculator) Split(items []LineItem) Split {
	return c.SplitTotal(Total(items))
}

// SplitTotal computes the fee by rounding total × FeePercent / 100 to whole cents,
// half away from zero. The payout is always total − fee, so fee + payout == total exactly.
func (c Calculator) SplitTotal(total int64) Split {
	fee := decimal.NewFromInt(total).
		Mul(c.FeePercent).
		Div(hundred).
		Round(0).
		IntPart()

	return Split{
		ClientTotalCents:  total,
		PlatformFeeCents:  fee,
		SitterPayoutCents: total - fee,
	}
}
