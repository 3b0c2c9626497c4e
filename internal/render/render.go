package render

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dhelbig/korrespondenz/internal/config"
	"github.com/dhelbig/korrespondenz/internal/model"
	"github.com/dhelbig/korrespondenz/internal/money"
)

// ErrEngineUnavailable marks failures where the render backend itself is
// unreachable (missing binary), as opposed to a bad template or input.
var ErrEngineUnavailable = errors.New("render engine unavailable")

const dateLayout = "02.01.2006"

type Kind string

const (
	KindLetterBusiness Kind = "letter_business"
	KindLetterPrivate  Kind = "letter_private"
	KindInvoice        Kind = "invoice"
	KindOffer          Kind = "offer"
)

// FilePrefix is the type-specific part of the output file name.
func (k Kind) FilePrefix() string {
	switch k {
	case KindLetterBusiness:
		return "brief"
	case KindLetterPrivate:
		return "privat"
	case KindInvoice:
		return "rechnung"
	case KindOffer:
		return "angebot"
	default:
		return "dokument"
	}
}

func (k Kind) templateName() string {
	switch k {
	case KindInvoice:
		return "invoice/default.typ"
	case KindOffer:
		return "offer/default.typ"
	default:
		return "letter/default.typ"
	}
}

// Input is everything a renderer needs to produce one document. Totals come
// precomputed so renderers never redo monetary arithmetic.
type Input struct {
	Kind              Kind
	DocNumber         string
	DocDate           time.Time
	DueDate           *time.Time
	ValidUntil        *time.Time
	Sender            config.Sender
	Contact           model.Contact
	Subject           string
	Content           string
	Notes             string
	Positions         []model.Position
	Totals            money.Totals
	SmallBusiness     bool
	PrepaymentPercent *float64
}

// Renderer turns an input into a PDF on disk and returns its path. A failed
// render must leave no usable output behind.
type Renderer interface {
	Render(ctx context.Context, in Input) (string, error)
}

// OutputName is the deterministic output file name (without extension),
// collision safe because document numbers are unique.
func OutputName(in Input) string {
	return fmt.Sprintf("%s_%s_%s", in.Kind.FilePrefix(), in.DocNumber, in.DocDate.Format("20060102"))
}

// templateData flattens the input into the structure the templates consume.
// All dates are formatted DD.MM.YYYY and all amounts are fixed to cents.
func templateData(in Input) map[string]any {
	data := map[string]any{
		"doc_number": in.DocNumber,
		"doc_date":   in.DocDate.Format(dateLayout),
		"sender":     senderData(in.Sender, in.Kind, in.SmallBusiness),
		"contact":    contactData(in.Contact),
	}

	switch in.Kind {
	case KindLetterBusiness, KindLetterPrivate:
		data["subject"] = in.Subject
		data["content"] = in.Content
		data["letter_type"] = letterType(in.Kind)
	case KindInvoice:
		data["positions"] = positionData(in.Positions)
		data["net_total"] = in.Totals.Net.StringFixed(2)
		data["vat_total"] = in.Totals.VAT.StringFixed(2)
		data["gross_total"] = in.Totals.Gross.StringFixed(2)
		data["notes"] = in.Notes
		if in.DueDate != nil {
			data["due_date"] = in.DueDate.Format(dateLayout)
		}
	case KindOffer:
		data["subject"] = in.Subject
		data["positions"] = positionData(in.Positions)
		data["net_total"] = in.Totals.Net.StringFixed(2)
		data["vat_total"] = in.Totals.VAT.StringFixed(2)
		data["gross_total"] = in.Totals.Gross.StringFixed(2)
		data["notes"] = in.Notes
		if in.ValidUntil != nil {
			data["valid_until"] = in.ValidUntil.Format(dateLayout)
		}
		if in.PrepaymentPercent != nil {
			data["prepayment_percent"] = *in.PrepaymentPercent
		}
	}
	return data
}

func letterType(k Kind) string {
	if k == KindLetterPrivate {
		return "private"
	}
	return "business"
}

func senderData(s config.Sender, kind Kind, smallBusiness bool) map[string]any {
	data := map[string]any{
		"name":    s.Name,
		"street":  s.Street,
		"zip":     s.ZipCode,
		"city":    s.City,
		"country": s.Country,
		"phone":   s.Phone,
		"email":   s.Email,
	}
	if kind == KindLetterPrivate {
		return data
	}
	data["website"] = s.Website
	data["iban"] = s.IBAN
	data["bic"] = s.BIC
	data["bank_name"] = s.BankName
	data["vat_id"] = s.VATID
	data["tax_number"] = s.TaxNumber
	data["kleinunternehmer"] = smallBusiness
	return data
}

func contactData(c model.Contact) map[string]any {
	return map[string]any{
		"company_name":    c.CompanyName,
		"salutation":      c.Salutation,
		"first_name":      c.FirstName,
		"last_name":       c.LastName,
		"street":          c.Street,
		"zip_code":        c.ZipCode,
		"city":            c.City,
		"country":         c.Country,
		"email":           c.Email,
		"phone":           c.Phone,
		"customer_number": c.CustomerNumber,
	}
}

func positionData(positions []model.Position) []map[string]any {
	rows := make([]map[string]any, 0, len(positions))
	for _, p := range positions {
		rows = append(rows, map[string]any{
			"description": p.Description,
			"quantity":    p.Quantity.String(),
			"unit":        p.Unit,
			"unit_price":  p.UnitPrice.StringFixed(2),
			"vat_rate":    p.VATRate.String(),
			"net":         p.Net().Round(2).StringFixed(2),
		})
	}
	return rows
}
