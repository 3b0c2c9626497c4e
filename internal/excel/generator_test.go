package excel

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/dhelbig/korrespondenz/internal/model"
)

func registerFixture() Register {
	date := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
	return Register{
		PeriodStart: time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2026, time.March, 31, 0, 0, 0, 0, time.UTC),
		Documents: []model.Document{
			{
				DocType:    model.DocTypeInvoice,
				DocNumber:  "RG-2026-0001",
				Status:     model.DocStatusFinal,
				DocDate:    date,
				Subject:    "Rechnung RG-2026-0001",
				NetTotal:   decimal.NewNullDecimal(decimal.NewFromInt(200)),
				VatTotal:   decimal.NewNullDecimal(decimal.NewFromInt(38)),
				GrossTotal: decimal.NewNullDecimal(decimal.NewFromInt(238)),
			},
			{
				DocType:   model.DocTypeLetterBusiness,
				DocNumber: "BRF-2026-0001",
				Status:    model.DocStatusSent,
				DocDate:   date,
				Subject:   "Vertragsunterlagen",
			},
		},
	}
}

func TestGenerateRegisterWorkbook(t *testing.T) {
	content, err := NewGenerator().Generate(registerFixture())
	require.NoError(t, err)
	require.NotEmpty(t, content)

	file, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer file.Close()

	sheets := file.GetSheetList()
	assert.Contains(t, sheets, "Übersicht")
	assert.Contains(t, sheets, "Rechnungen")
	assert.Contains(t, sheets, "Geschäftsbriefe")
	assert.NotContains(t, sheets, "Angebote", "empty types get no sheet")

	grossSum, err := file.GetCellValue("Übersicht", "B6")
	require.NoError(t, err)
	assert.Equal(t, "238.00", grossSum)

	number, err := file.GetCellValue("Rechnungen", "A2")
	require.NoError(t, err)
	assert.Equal(t, "RG-2026-0001", number)
}

func TestGenerateEmptyPeriod(t *testing.T) {
	content, err := NewGenerator().Generate(Register{
		PeriodStart: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2026, time.January, 31, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NotEmpty(t, content)

	file, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer file.Close()

	assert.Equal(t, []string{"Übersicht"}, file.GetSheetList())
}
