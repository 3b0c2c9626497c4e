package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type DocType string

const (
	DocTypeLetterBusiness DocType = "letter_business"
	DocTypeLetterPrivate  DocType = "letter_private"
	DocTypeInvoice        DocType = "invoice"
	DocTypeOffer          DocType = "offer"
)

type DocStatus string

const (
	DocStatusDraft    DocStatus = "draft"
	DocStatusFinal    DocStatus = "final"
	DocStatusSent     DocStatus = "sent"
	DocStatusArchived DocStatus = "archived"
)

// Document is a persisted, numbered business artifact. The number is
// allocated in the same transaction as the insert and never changes.
// Monetary totals are set for invoices and offers only.
type Document struct {
	ID                uint                `gorm:"primaryKey" json:"id"`
	DocType           DocType             `gorm:"size:20;index" json:"doc_type"`
	DocNumber         string              `gorm:"size:50;uniqueIndex:uq_documents_doc_number" json:"doc_number"`
	ContactID         uint                `gorm:"index;not null" json:"contact_id"`
	Subject           string              `gorm:"size:500" json:"subject,omitempty"`
	Content           string              `gorm:"type:text" json:"content,omitempty"`
	Positions         PositionList        `gorm:"type:json" json:"positions,omitempty"`
	NetTotal          decimal.NullDecimal `gorm:"type:numeric(18,2)" json:"net_total"`
	VatTotal          decimal.NullDecimal `gorm:"type:numeric(18,2)" json:"vat_total"`
	GrossTotal        decimal.NullDecimal `gorm:"type:numeric(18,2)" json:"gross_total"`
	Notes             string              `gorm:"type:text" json:"notes,omitempty"`
	DocDate           time.Time           `json:"doc_date"`
	DueDate           *time.Time          `json:"due_date,omitempty"`
	ValidUntil        *time.Time          `json:"valid_until,omitempty"`
	PrepaymentPercent *float64            `gorm:"type:numeric(5,2)" json:"prepayment_percent,omitempty"`
	Status            DocStatus           `gorm:"size:20;default:draft;index" json:"status"`
	PdfPath           string              `gorm:"size:500" json:"pdf_path,omitempty"`
	ArchiveTaskID     string              `gorm:"size:100" json:"archive_task_id,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

// Title is the archive title: the document number, extended by the subject
// when one is set.
func (d Document) Title() string {
	if d.Subject != "" {
		return d.DocNumber + " - " + d.Subject
	}
	return d.DocNumber
}
