package excel

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/dhelbig/korrespondenz/internal/model"
)

// Register is the input of the document-register export: all documents of a
// period, grouped into one workbook.
type Register struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
	Documents   []model.Document
}

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) Generate(register Register) ([]byte, error) {
	file := excelize.NewFile()

	summarySheet := "Übersicht"
	file.SetSheetName("Sheet1", summarySheet)
	if err := g.writeSummary(file, summarySheet, register); err != nil {
		return nil, err
	}

	for _, docType := range []model.DocType{
		model.DocTypeInvoice,
		model.DocTypeOffer,
		model.DocTypeLetterBusiness,
		model.DocTypeLetterPrivate,
	} {
		docs := documentsOfType(register.Documents, docType)
		if len(docs) == 0 {
			continue
		}
		sheet := typeLabel(docType)
		file.NewSheet(sheet)
		if err := g.writeDetail(file, sheet, docs); err != nil {
			return nil, err
		}
	}

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) writeSummary(file *excelize.File, sheet string, register Register) error {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	set("A1", "Zeitraum von")
	set("B1", formatDate(register.PeriodStart))
	set("A2", "Zeitraum bis")
	set("B2", formatDate(register.PeriodEnd))
	set("A3", "Dokumente gesamt")
	set("B3", len(register.Documents))
	set("A4", "Nettosumme Rechnungen")
	set("B4", sumTotals(register.Documents, model.DocTypeInvoice, net).StringFixed(2))
	set("A5", "Umsatzsteuer Rechnungen")
	set("B5", sumTotals(register.Documents, model.DocTypeInvoice, vat).StringFixed(2))
	set("A6", "Bruttosumme Rechnungen")
	set("B6", sumTotals(register.Documents, model.DocTypeInvoice, gross).StringFixed(2))

	tableRow := 8
	set(fmt.Sprintf("A%d", tableRow), "Dokumenttyp")
	set(fmt.Sprintf("B%d", tableRow), "Anzahl")
	set(fmt.Sprintf("C%d", tableRow), "Bruttosumme")

	row := tableRow + 1
	for _, docType := range []model.DocType{
		model.DocTypeInvoice,
		model.DocTypeOffer,
		model.DocTypeLetterBusiness,
		model.DocTypeLetterPrivate,
	} {
		docs := documentsOfType(register.Documents, docType)
		set(fmt.Sprintf("A%d", row), typeLabel(docType))
		set(fmt.Sprintf("B%d", row), len(docs))
		set(fmt.Sprintf("C%d", row), sumTotals(docs, docType, gross).StringFixed(2))
		row++
	}

	_ = file.SetColWidth(sheet, "A", "A", 30)
	_ = file.SetColWidth(sheet, "B", "C", 16)
	return nil
}

func (g *Generator) writeDetail(file *excelize.File, sheet string, docs []model.Document) error {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	headers := []string{
		"Nummer",
		"Datum",
		"Betreff",
		"Status",
		"Netto",
		"USt.",
		"Brutto",
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		set(cell, header)
	}

	for i, doc := range docs {
		row := i + 2
		set(fmt.Sprintf("A%d", row), doc.DocNumber)
		set(fmt.Sprintf("B%d", row), formatDate(doc.DocDate))
		set(fmt.Sprintf("C%d", row), doc.Subject)
		set(fmt.Sprintf("D%d", row), string(doc.Status))
		if doc.NetTotal.Valid {
			set(fmt.Sprintf("E%d", row), doc.NetTotal.Decimal.StringFixed(2))
			set(fmt.Sprintf("F%d", row), doc.VatTotal.Decimal.StringFixed(2))
			set(fmt.Sprintf("G%d", row), doc.GrossTotal.Decimal.StringFixed(2))
		}
	}

	_ = file.SetColWidth(sheet, "A", "A", 18)
	_ = file.SetColWidth(sheet, "B", "B", 12)
	_ = file.SetColWidth(sheet, "C", "C", 45)
	_ = file.SetColWidth(sheet, "D", "G", 12)
	return nil
}

type totalKind int

const (
	net totalKind = iota
	vat
	gross
)

func sumTotals(docs []model.Document, docType model.DocType, kind totalKind) decimal.Decimal {
	sum := decimal.Zero
	for _, doc := range docs {
		if doc.DocType != docType {
			continue
		}
		var total decimal.NullDecimal
		switch kind {
		case net:
			total = doc.NetTotal
		case vat:
			total = doc.VatTotal
		case gross:
			total = doc.GrossTotal
		}
		if total.Valid {
			sum = sum.Add(total.Decimal)
		}
	}
	return sum
}

func documentsOfType(docs []model.Document, docType model.DocType) []model.Document {
	var result []model.Document
	for _, doc := range docs {
		if doc.DocType == docType {
			result = append(result, doc)
		}
	}
	return result
}

func typeLabel(docType model.DocType) string {
	switch docType {
	case model.DocTypeInvoice:
		return "Rechnungen"
	case model.DocTypeOffer:
		return "Angebote"
	case model.DocTypeLetterBusiness:
		return "Geschäftsbriefe"
	case model.DocTypeLetterPrivate:
		return "Privatbriefe"
	default:
		return string(docType)
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("02.01.2006")
}
