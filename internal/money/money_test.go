package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhelbig/korrespondenz/internal/model"
)

func pos(qty, price, rate string) model.Position {
	return model.Position{
		Description: "Leistung",
		Quantity:    decimal.RequireFromString(qty),
		Unit:        "Stück",
		UnitPrice:   decimal.RequireFromString(price),
		VATRate:     decimal.RequireFromString(rate),
	}
}

func TestCalculate(t *testing.T) {
	tests := []struct {
		name      string
		positions []model.Position
		exempt    bool
		net       string
		vat       string
		gross     string
	}{
		{
			name:      "single position standard rate",
			positions: []model.Position{pos("2", "100", "19")},
			net:       "200",
			vat:       "38",
			gross:     "238",
		},
		{
			name: "mixed vat rates",
			positions: []model.Position{
				pos("1", "100", "19"),
				pos("1", "100", "7"),
			},
			net:   "200",
			vat:   "26",
			gross: "226",
		},
		{
			name:      "credit line reduces net",
			positions: []model.Position{pos("1", "100", "19"), pos("1", "-20", "19")},
			net:       "80",
			vat:       "15.2",
			gross:     "95.2",
		},
		{
			name:      "fractional quantities stay cent accurate",
			positions: []model.Position{pos("0.1", "0.1", "19"), pos("0.2", "0.1", "19")},
			net:       "0.03",
			vat:       "0.01",
			gross:     "0.04",
		},
		{
			name:      "small business exemption drops vat",
			positions: []model.Position{pos("3", "50", "19"), pos("1", "10", "7")},
			exempt:    true,
			net:       "160",
			vat:       "0",
			gross:     "160",
		},
		{
			name:      "zero quantity contributes nothing",
			positions: []model.Position{pos("0", "99.99", "19")},
			net:       "0",
			vat:       "0",
			gross:     "0",
		},
		{
			name:  "no positions",
			net:   "0",
			vat:   "0",
			gross: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Calculate(tt.positions, tt.exempt)
			assert.True(t, got.Net.Equal(decimal.RequireFromString(tt.net)), "net = %s", got.Net)
			assert.True(t, got.VAT.Equal(decimal.RequireFromString(tt.vat)), "vat = %s", got.VAT)
			assert.True(t, got.Gross.Equal(decimal.RequireFromString(tt.gross)), "gross = %s", got.Gross)
		})
	}
}

func TestCalculateGrossAlwaysNetPlusVAT(t *testing.T) {
	lists := [][]model.Position{
		{pos("1", "0.01", "19")},
		{pos("7", "13.37", "19"), pos("3", "0.99", "7"), pos("1", "-5.55", "19")},
		{pos("0.333", "9.99", "19"), pos("2.5", "19.95", "7")},
		{pos("1000000", "0.07", "19")},
	}
	for _, positions := range lists {
		for _, exempt := range []bool{false, true} {
			got := Calculate(positions, exempt)
			require.True(t, got.Gross.Equal(got.Net.Add(got.VAT)),
				"gross %s != net %s + vat %s", got.Gross, got.Net, got.VAT)
			require.True(t, got.Net.Equal(got.Net.Round(2)),
				"net must be cent precise, got %s", got.Net)
			if exempt {
				require.True(t, got.VAT.IsZero())
			}
		}
	}
}
