package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/dhelbig/korrespondenz/internal/config"
	"github.com/dhelbig/korrespondenz/internal/model"
)

// FpdfRenderer draws documents directly with gofpdf. It is the built-in
// fallback for installations without a typst binary; layout is plainer than
// the typst templates but carries the same data.
type FpdfRenderer struct {
	outputDir string
}

func NewFpdfRenderer(cfg config.TypstConfig) (*FpdfRenderer, error) {
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &FpdfRenderer{outputDir: cfg.OutputDir}, nil
}

func (r *FpdfRenderer) Render(ctx context.Context, in Input) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	drawSenderLine(pdf, tr, in.Sender)
	drawAddressBlock(pdf, tr, in.Contact)
	drawMetaLine(pdf, tr, in)

	switch in.Kind {
	case KindLetterBusiness, KindLetterPrivate:
		drawLetterBody(pdf, tr, in)
	case KindInvoice:
		drawHeading(pdf, tr, fmt.Sprintf("Rechnung %s", in.DocNumber))
		drawPositionTable(pdf, tr, in.Positions)
		drawTotals(pdf, tr, in)
		if in.DueDate != nil {
			pdf.Ln(4)
			pdf.SetFont("Helvetica", "", 10)
			pdf.CellFormat(0, 5, tr(fmt.Sprintf("Zahlbar bis zum %s.", in.DueDate.Format(dateLayout))), "", 1, "L", false, 0, "")
		}
		drawNotes(pdf, tr, in.Notes)
		drawBankFooter(pdf, tr, in.Sender)
	case KindOffer:
		drawHeading(pdf, tr, fmt.Sprintf("Angebot %s", in.DocNumber))
		if in.Subject != "" {
			pdf.SetFont("Helvetica", "B", 11)
			pdf.CellFormat(0, 6, tr(in.Subject), "", 1, "L", false, 0, "")
			pdf.Ln(2)
		}
		drawPositionTable(pdf, tr, in.Positions)
		drawTotals(pdf, tr, in)
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "", 10)
		if in.ValidUntil != nil {
			pdf.CellFormat(0, 5, tr(fmt.Sprintf("Dieses Angebot ist gültig bis zum %s.", in.ValidUntil.Format(dateLayout))), "", 1, "L", false, 0, "")
		}
		if in.PrepaymentPercent != nil {
			pdf.CellFormat(0, 5, tr(fmt.Sprintf("Anzahlung: %.0f %% der Angebotssumme.", *in.PrepaymentPercent)), "", 1, "L", false, 0, "")
		}
		drawNotes(pdf, tr, in.Notes)
		drawBankFooter(pdf, tr, in.Sender)
	default:
		return "", fmt.Errorf("unknown document kind %q", in.Kind)
	}

	outputPath := filepath.Join(r.outputDir, OutputName(in)+".pdf")
	if err := pdf.OutputFileAndClose(outputPath); err != nil {
		os.Remove(outputPath)
		return "", fmt.Errorf("write pdf: %w", err)
	}
	return outputPath, nil
}

func drawSenderLine(pdf *gofpdf.Fpdf, tr func(string) string, s config.Sender) {
	pdf.SetFont("Helvetica", "", 8)
	line := fmt.Sprintf("%s · %s · %s %s", s.Name, s.Street, s.ZipCode, s.City)
	pdf.CellFormat(0, 4, tr(line), "", 1, "L", false, 0, "")
	pdf.Ln(6)
}

func drawAddressBlock(pdf *gofpdf.Fpdf, tr func(string) string, c model.Contact) {
	pdf.SetFont("Helvetica", "", 11)
	lines := []string{}
	if c.CompanyName != "" {
		lines = append(lines, c.CompanyName)
	}
	name := strings.TrimSpace(strings.TrimSpace(c.Salutation) + " " + c.FirstName + " " + c.LastName)
	if name != "" {
		lines = append(lines, name)
	}
	if c.Street != "" {
		lines = append(lines, c.Street)
	}
	if c.ZipCode != "" || c.City != "" {
		lines = append(lines, strings.TrimSpace(c.ZipCode+" "+c.City))
	}
	if c.Country != "" && c.Country != "Deutschland" {
		lines = append(lines, c.Country)
	}
	for _, line := range lines {
		pdf.CellFormat(0, 5, tr(line), "", 1, "L", false, 0, "")
	}
	pdf.Ln(8)
}

func drawMetaLine(pdf *gofpdf.Fpdf, tr func(string) string, in Input) {
	pdf.SetFont("Helvetica", "", 9)
	meta := fmt.Sprintf("Nr. %s · %s", in.DocNumber, in.DocDate.Format(dateLayout))
	if in.Contact.CustomerNumber != "" {
		meta += fmt.Sprintf(" · Kundennr. %s", in.Contact.CustomerNumber)
	}
	pdf.CellFormat(0, 5, tr(meta), "", 1, "R", false, 0, "")
	pdf.Ln(6)
}

func drawHeading(pdf *gofpdf.Fpdf, tr func(string) string, title string) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, tr(title), "", 1, "L", false, 0, "")
	pdf.Ln(2)
}

func drawLetterBody(pdf *gofpdf.Fpdf, tr func(string) string, in Input) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 7, tr(in.Subject), "", 1, "L", false, 0, "")
	pdf.Ln(3)
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 5.5, tr(in.Content), "", "L", false)
}

func drawPositionTable(pdf *gofpdf.Fpdf, tr func(string) string, positions []model.Position) {
	headers := []string{"Pos.", "Beschreibung", "Menge", "Einheit", "Einzelpreis", "USt.", "Netto"}
	widths := []float64{12, 66, 18, 18, 24, 14, 24}

	pdf.SetFont("Helvetica", "B", 9)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, tr(h), "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for i, p := range positions {
		cols := []string{
			fmt.Sprintf("%d", i+1),
			p.Description,
			p.Quantity.String(),
			p.Unit,
			p.UnitPrice.StringFixed(2) + " €",
			p.VATRate.String() + " %",
			p.Net().Round(2).StringFixed(2) + " €",
		}
		for j, col := range cols {
			align := "L"
			if j >= 2 && j != 3 {
				align = "R"
			}
			pdf.CellFormat(widths[j], 6, tr(col), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(3)
}

func drawTotals(pdf *gofpdf.Fpdf, tr func(string) string, in Input) {
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 5, tr(fmt.Sprintf("Nettobetrag: %s €", in.Totals.Net.StringFixed(2))), "", 1, "R", false, 0, "")
	if in.SmallBusiness {
		pdf.CellFormat(0, 5, tr("Gemäß § 19 UStG wird keine Umsatzsteuer berechnet."), "", 1, "R", false, 0, "")
	} else {
		pdf.CellFormat(0, 5, tr(fmt.Sprintf("Umsatzsteuer: %s €", in.Totals.VAT.StringFixed(2))), "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Gesamtbetrag: %s €", in.Totals.Gross.StringFixed(2))), "", 1, "R", false, 0, "")
}

func drawNotes(pdf *gofpdf.Fpdf, tr func(string) string, notes string) {
	if strings.TrimSpace(notes) == "" {
		return
	}
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 5, tr(notes), "", "L", false)
}

func drawBankFooter(pdf *gofpdf.Fpdf, tr func(string) string, s config.Sender) {
	if s.IBAN == "" && s.VATID == "" && s.TaxNumber == "" {
		return
	}
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 8)
	if s.IBAN != "" {
		pdf.CellFormat(0, 4, tr(fmt.Sprintf("%s · IBAN %s · BIC %s", s.BankName, s.IBAN, s.BIC)), "", 1, "L", false, 0, "")
	}
	tax := taxLine(s)
	if tax != "" {
		pdf.CellFormat(0, 4, tr(tax), "", 1, "L", false, 0, "")
	}
}

func taxLine(s config.Sender) string {
	switch {
	case s.VATID != "" && s.TaxNumber != "":
		return fmt.Sprintf("USt-IdNr. %s · Steuernummer %s", s.VATID, s.TaxNumber)
	case s.VATID != "":
		return "USt-IdNr. " + s.VATID
	case s.TaxNumber != "":
		return "Steuernummer " + s.TaxNumber
	default:
		return ""
	}
}

var _ Renderer = (*FpdfRenderer)(nil)
var _ Renderer = (*TypstRenderer)(nil)
