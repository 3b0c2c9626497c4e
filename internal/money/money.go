package money

import (
	"github.com/shopspring/decimal"

	"github.com/dhelbig/korrespondenz/internal/model"
)

var hundred = decimal.NewFromInt(100)

// Totals carries the computed amounts of an invoice or offer. It is the
// single value shared between persistence and rendering.
type Totals struct {
	Net   decimal.Decimal
	VAT   decimal.Decimal
	Gross decimal.Decimal
}

// Calculate sums the positions into net, VAT and gross totals. Line amounts
// accumulate exactly in decimal arithmetic; net and VAT are rounded to cents
// independently and gross is their sum, so gross == net + vat always holds.
// With the small-business exemption VAT is zero and gross equals net.
func Calculate(positions []model.Position, smallBusinessExempt bool) Totals {
	net := decimal.Zero
	vat := decimal.Zero
	for _, p := range positions {
		line := p.Net()
		net = net.Add(line)
		if !smallBusinessExempt {
			vat = vat.Add(line.Mul(p.VATRate).Div(hundred))
		}
	}
	net = net.Round(2)
	if smallBusinessExempt {
		return Totals{Net: net, VAT: decimal.Zero, Gross: net}
	}
	vat = vat.Round(2)
	return Totals{Net: net, VAT: vat, Gross: net.Add(vat)}
}
