package render

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhelbig/korrespondenz/internal/config"
	"github.com/dhelbig/korrespondenz/internal/model"
	"github.com/dhelbig/korrespondenz/internal/money"
)

func invoiceInput() Input {
	due := time.Date(2025, 3, 29, 0, 0, 0, 0, time.UTC)
	positions := []model.Position{{
		Description: "Beratung",
		Quantity:    decimal.NewFromInt(2),
		Unit:        "Stunde",
		UnitPrice:   decimal.NewFromInt(100),
		VATRate:     decimal.NewFromInt(19),
	}}
	return Input{
		Kind:      KindInvoice,
		DocNumber: "RG-2025-0001",
		DocDate:   time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		DueDate:   &due,
		Sender:    config.Sender{Name: "Musterfirma", Street: "Weg 1", ZipCode: "10115", City: "Berlin", IBAN: "DE02120300000000202051"},
		Contact:   model.Contact{CompanyName: "TestCo GmbH", Street: "Allee 5", ZipCode: "20095", City: "Hamburg", Country: "Deutschland"},
		Positions: positions,
		Totals:    money.Calculate(positions, false),
	}
}

func TestOutputNameIsDeterministic(t *testing.T) {
	in := invoiceInput()
	assert.Equal(t, "rechnung_RG-2025-0001_20250315", OutputName(in))

	in.Kind = KindOffer
	in.DocNumber = "ANG-2025-0007"
	assert.Equal(t, "angebot_ANG-2025-0007_20250315", OutputName(in))

	in.Kind = KindLetterPrivate
	assert.Equal(t, "privat_ANG-2025-0007_20250315", OutputName(in))
}

func TestTemplateDataFormatsDatesAndAmounts(t *testing.T) {
	data := templateData(invoiceInput())

	assert.Equal(t, "15.03.2025", data["doc_date"])
	assert.Equal(t, "29.03.2025", data["due_date"])
	assert.Equal(t, "200.00", data["net_total"])
	assert.Equal(t, "38.00", data["vat_total"])
	assert.Equal(t, "238.00", data["gross_total"])

	rows, ok := data["positions"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, rows, 1)
	assert.Equal(t, "200.00", rows[0]["net"])
}

func TestTemplateDataPrivateSenderOmitsBusinessFields(t *testing.T) {
	in := invoiceInput()
	in.Kind = KindLetterPrivate
	in.Subject = "Kündigung"
	in.Content = "Hiermit kündige ich."

	data := templateData(in)
	sender, ok := data["sender"].(map[string]any)
	require.True(t, ok)
	assert.NotContains(t, sender, "iban")
	assert.NotContains(t, sender, "kleinunternehmer")
	assert.Equal(t, "private", data["letter_type"])
}

func TestFpdfRendererWritesInvoicePDF(t *testing.T) {
	r, err := NewFpdfRenderer(config.TypstConfig{OutputDir: t.TempDir()})
	require.NoError(t, err)

	path, err := r.Render(context.Background(), invoiceInput())
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
	assert.Contains(t, path, "rechnung_RG-2025-0001_20250315.pdf")
}

func TestFpdfRendererWritesLetterPDF(t *testing.T) {
	r, err := NewFpdfRenderer(config.TypstConfig{OutputDir: t.TempDir()})
	require.NoError(t, err)

	in := invoiceInput()
	in.Kind = KindLetterBusiness
	in.DocNumber = "BRF-2025-0001"
	in.Subject = "Vertragsverlängerung"
	in.Content = "Sehr geehrte Damen und Herren,\n\nwir verlängern den Vertrag.\n\nMit freundlichen Grüßen"
	in.Positions = nil

	path, err := r.Render(context.Background(), in)
	require.NoError(t, err)
	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestTypstRendererMissingTemplateFails(t *testing.T) {
	r, err := NewTypstRenderer(config.TypstConfig{
		Binary:       "/does/not/exist/typst",
		TemplatesDir: t.TempDir(),
		OutputDir:    t.TempDir(),
		Timeout:      time.Second,
	})
	require.NoError(t, err)

	_, err = r.Render(context.Background(), invoiceInput())
	require.Error(t, err)
}
