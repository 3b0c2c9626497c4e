package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dhelbig/korrespondenz/internal/config"
	"github.com/dhelbig/korrespondenz/internal/excel"
	"github.com/dhelbig/korrespondenz/internal/model"
	"github.com/dhelbig/korrespondenz/internal/money"
	"github.com/dhelbig/korrespondenz/internal/render"
	"github.com/dhelbig/korrespondenz/internal/repository"
	"github.com/dhelbig/korrespondenz/internal/sequence"
)

const (
	prefixLetterBusiness = "BRF"
	prefixLetterPrivate  = "PRV"
	prefixInvoice        = "RG"
	prefixOffer          = "ANG"
)

// Archiver is the external document-management collaborator. The status
// transition to archived happens only after Upload returned a task id.
type Archiver interface {
	IsAvailable(ctx context.Context) bool
	Upload(ctx context.Context, pdfPath, title, createdDate string) (string, error)
}

// RegisterExporter produces the document-register workbook.
type RegisterExporter interface {
	Generate(register excel.Register) ([]byte, error)
}

// DocumentService orchestrates document creation and the later lifecycle
// transitions. Creation is one store transaction: number allocation,
// rendering and the insert commit or roll back together.
type DocumentService struct {
	contacts  *repository.ContactRepository
	documents *repository.DocumentRepository
	seq       *sequence.Allocator
	renderer  render.Renderer
	archive   Archiver
	exporter  RegisterExporter
	cfg       *config.Config
	log       zerolog.Logger
}

func NewDocumentService(
	contacts *repository.ContactRepository,
	documents *repository.DocumentRepository,
	seq *sequence.Allocator,
	renderer render.Renderer,
	archiver Archiver,
	exporter RegisterExporter,
	cfg *config.Config,
	log zerolog.Logger,
) *DocumentService {
	return &DocumentService{
		contacts:  contacts,
		documents: documents,
		seq:       seq,
		renderer:  renderer,
		archive:   archiver,
		exporter:  exporter,
		cfg:       cfg,
		log:       log,
	}
}

type CreateLetterInput struct {
	ContactID  uint
	Subject    string
	Content    string
	LetterType string
	DocDate    time.Time
}

type CreateInvoiceInput struct {
	ContactID uint
	Positions []model.Position
	DocDate   time.Time
	DueDays   int
	Notes     string
}

type CreateOfferInput struct {
	ContactID         uint
	Subject           string
	Positions         []model.Position
	DocDate           time.Time
	ValidDays         int
	PrepaymentPercent *float64
	Notes             string
}

func (s *DocumentService) CreateLetter(ctx context.Context, in CreateLetterInput) (*model.Document, error) {
	if strings.TrimSpace(in.Subject) == "" {
		return nil, fmt.Errorf("%w: subject is required", ErrValidation)
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, fmt.Errorf("%w: content is required", ErrValidation)
	}

	prefix := prefixLetterBusiness
	kind := render.KindLetterBusiness
	docType := model.DocTypeLetterBusiness
	switch in.LetterType {
	case "", "business":
		in.LetterType = "business"
	case "private":
		prefix = prefixLetterPrivate
		kind = render.KindLetterPrivate
		docType = model.DocTypeLetterPrivate
	default:
		return nil, fmt.Errorf("%w: invalid letter_type %q", ErrValidation, in.LetterType)
	}

	contact, err := s.getContact(ctx, in.ContactID)
	if err != nil {
		return nil, err
	}

	docDate := dateOnly(in.DocDate)

	return s.createDocument(ctx, prefix, func(number string) (*model.Document, render.Input) {
		doc := &model.Document{
			DocType:   docType,
			DocNumber: number,
			ContactID: contact.ID,
			Subject:   in.Subject,
			Content:   in.Content,
			DocDate:   docDate,
			Status:    model.DocStatusFinal,
		}
		return doc, render.Input{
			Kind:      kind,
			DocNumber: number,
			DocDate:   docDate,
			Sender:    s.cfg.SenderFor(in.LetterType),
			Contact:   *contact,
			Subject:   in.Subject,
			Content:   in.Content,
		}
	})
}

func (s *DocumentService) CreateInvoice(ctx context.Context, in CreateInvoiceInput) (*model.Document, error) {
	positions, err := normalizePositions(in.Positions)
	if err != nil {
		return nil, err
	}

	contact, err := s.getContact(ctx, in.ContactID)
	if err != nil {
		return nil, err
	}

	docDate := dateOnly(in.DocDate)
	if in.DueDays <= 0 {
		in.DueDays = 14
	}
	dueDate := docDate.AddDate(0, 0, in.DueDays)

	smallBusiness := s.cfg.Sender.SmallBusiness
	totals := money.Calculate(positions, smallBusiness)

	return s.createDocument(ctx, prefixInvoice, func(number string) (*model.Document, render.Input) {
		doc := &model.Document{
			DocType:    model.DocTypeInvoice,
			DocNumber:  number,
			ContactID:  contact.ID,
			Subject:    "Rechnung " + number,
			Positions:  positions,
			NetTotal:   decimal.NewNullDecimal(totals.Net),
			VatTotal:   decimal.NewNullDecimal(totals.VAT),
			GrossTotal: decimal.NewNullDecimal(totals.Gross),
			Notes:      in.Notes,
			DocDate:    docDate,
			DueDate:    &dueDate,
			Status:     model.DocStatusFinal,
		}
		return doc, render.Input{
			Kind:          render.KindInvoice,
			DocNumber:     number,
			DocDate:       docDate,
			DueDate:       &dueDate,
			Sender:        s.cfg.Sender,
			Contact:       *contact,
			Notes:         in.Notes,
			Positions:     positions,
			Totals:        totals,
			SmallBusiness: smallBusiness,
		}
	})
}

func (s *DocumentService) CreateOffer(ctx context.Context, in CreateOfferInput) (*model.Document, error) {
	if strings.TrimSpace(in.Subject) == "" {
		return nil, fmt.Errorf("%w: subject is required", ErrValidation)
	}
	positions, err := normalizePositions(in.Positions)
	if err != nil {
		return nil, err
	}

	contact, err := s.getContact(ctx, in.ContactID)
	if err != nil {
		return nil, err
	}

	docDate := dateOnly(in.DocDate)
	if in.ValidDays <= 0 {
		in.ValidDays = 30
	}
	validUntil := docDate.AddDate(0, 0, in.ValidDays)

	smallBusiness := s.cfg.Sender.SmallBusiness
	totals := money.Calculate(positions, smallBusiness)

	return s.createDocument(ctx, prefixOffer, func(number string) (*model.Document, render.Input) {
		doc := &model.Document{
			DocType:           model.DocTypeOffer,
			DocNumber:         number,
			ContactID:         contact.ID,
			Subject:           in.Subject,
			Positions:         positions,
			NetTotal:          decimal.NewNullDecimal(totals.Net),
			VatTotal:          decimal.NewNullDecimal(totals.VAT),
			GrossTotal:        decimal.NewNullDecimal(totals.Gross),
			Notes:             in.Notes,
			DocDate:           docDate,
			ValidUntil:        &validUntil,
			PrepaymentPercent: in.PrepaymentPercent,
			Status:            model.DocStatusFinal,
		}
		return doc, render.Input{
			Kind:              render.KindOffer,
			DocNumber:         number,
			DocDate:           docDate,
			ValidUntil:        &validUntil,
			Sender:            s.cfg.Sender,
			Contact:           *contact,
			Subject:           in.Subject,
			Notes:             in.Notes,
			Positions:         positions,
			Totals:            totals,
			SmallBusiness:     smallBusiness,
			PrepaymentPercent: in.PrepaymentPercent,
		}
	})
}

// createDocument is the shared creation pipeline. The build callback gets the
// allocated number and returns the row to insert plus the render input. Any
// failure inside the transaction rolls back the allocation along with the
// insert; an already-rendered PDF of a failed creation is removed again.
func (s *DocumentService) createDocument(ctx context.Context, prefix string, build func(number string) (*model.Document, render.Input)) (*model.Document, error) {
	var doc *model.Document
	var pdfPath string

	err := s.documents.Transaction(ctx, func(tx *repository.DocumentRepository) error {
		number, err := s.seq.Allocate(ctx, tx.DB(), prefix)
		if err != nil {
			return err
		}

		var input render.Input
		doc, input = build(number)

		pdfPath, err = s.renderer.Render(ctx, input)
		if err != nil {
			return mapRenderError(err)
		}
		doc.PdfPath = pdfPath

		if err := tx.Create(ctx, doc); err != nil {
			if isConstraintViolation(err) {
				return fmt.Errorf("%w: document number %s already taken", ErrConflict, number)
			}
			return err
		}
		return nil
	})
	if err != nil {
		if pdfPath != "" {
			if rmErr := os.Remove(pdfPath); rmErr != nil && !os.IsNotExist(rmErr) {
				s.log.Warn().Err(rmErr).Str("pdf", pdfPath).Msg("failed to remove pdf of rolled back document")
			}
		}
		return nil, err
	}

	s.log.Info().Str("doc_number", doc.DocNumber).Str("doc_type", string(doc.DocType)).Msg("document created")
	return doc, nil
}

func (s *DocumentService) Get(ctx context.Context, id uint) (*model.Document, error) {
	doc, err := s.documents.Get(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: document %d", ErrNotFound, id)
		}
		return nil, err
	}
	return doc, nil
}

func (s *DocumentService) List(ctx context.Context, docType, status string, offset, limit int) ([]model.Document, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.documents.List(ctx, docType, status, offset, limit)
}

// PDFPath returns the path of a document's rendered PDF, verifying the file
// still exists on disk.
func (s *DocumentService) PDFPath(ctx context.Context, id uint) (string, string, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return "", "", err
	}
	if doc.PdfPath == "" {
		return "", "", fmt.Errorf("%w: document %d has no pdf", ErrNotFound, id)
	}
	if _, err := os.Stat(doc.PdfPath); err != nil {
		return "", "", fmt.Errorf("%w: pdf file of document %d", ErrNotFound, id)
	}
	return doc.PdfPath, doc.DocNumber + ".pdf", nil
}

// Archive hands the PDF to the archive collaborator and flips the status.
// The two steps are deliberately not atomic; the transition only happens
// after the upload was accepted.
func (s *DocumentService) Archive(ctx context.Context, id uint) (*model.Document, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.Status == model.DocStatusArchived {
		return nil, fmt.Errorf("%w: document %s is already archived", ErrConflict, doc.DocNumber)
	}
	if doc.PdfPath == "" {
		return nil, fmt.Errorf("%w: document %s has no pdf", ErrValidation, doc.DocNumber)
	}
	if _, err := os.Stat(doc.PdfPath); err != nil {
		return nil, fmt.Errorf("%w: pdf file of %s is missing", ErrValidation, doc.DocNumber)
	}
	if !s.archive.IsAvailable(ctx) {
		return nil, fmt.Errorf("%w: archive service is unreachable", ErrServiceUnavailable)
	}

	taskID, err := s.archive.Upload(ctx, doc.PdfPath, doc.Title(), doc.DocDate.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("archive upload failed: %w", err)
	}

	if err := s.documents.SetArchived(ctx, doc.ID, taskID); err != nil {
		return nil, err
	}
	doc.Status = model.DocStatusArchived
	doc.ArchiveTaskID = taskID

	s.log.Info().Str("doc_number", doc.DocNumber).Str("task_id", taskID).Msg("document archived")
	return doc, nil
}

// Delete removes the record and, best effort, its PDF. A failed file removal
// is logged as a warning and does not block the record deletion.
func (s *DocumentService) Delete(ctx context.Context, id uint) error {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if doc.PdfPath != "" {
		if err := os.Remove(doc.PdfPath); err != nil && !os.IsNotExist(err) {
			s.log.Warn().Err(err).Str("doc_number", doc.DocNumber).Str("pdf", doc.PdfPath).
				Msg("failed to remove pdf file")
		}
	}

	return s.documents.Delete(ctx, doc.ID)
}

// ExportRegister builds the xlsx document register for [from, to].
func (s *DocumentService) ExportRegister(ctx context.Context, from, to time.Time) (string, []byte, error) {
	if from.IsZero() || to.IsZero() {
		return "", nil, fmt.Errorf("%w: period dates are required", ErrValidation)
	}
	from = dateOnly(from)
	to = dateOnly(to)
	if from.After(to) {
		return "", nil, fmt.Errorf("%w: period start must not be after period end", ErrValidation)
	}

	docs, err := s.documents.ListForPeriod(ctx, from, to.AddDate(0, 0, 1))
	if err != nil {
		return "", nil, err
	}

	content, err := s.exporter.Generate(excel.Register{
		PeriodStart: from,
		PeriodEnd:   to,
		Documents:   docs,
	})
	if err != nil {
		return "", nil, err
	}

	fileName := fmt.Sprintf("dokumente-%s-%s.xlsx", from.Format("20060102"), to.Format("20060102"))
	return fileName, content, nil
}

func (s *DocumentService) getContact(ctx context.Context, id uint) (*model.Contact, error) {
	contact, err := s.contacts.Get(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: contact %d", ErrNotFound, id)
		}
		return nil, err
	}
	return contact, nil
}

func normalizePositions(positions []model.Position) ([]model.Position, error) {
	if len(positions) == 0 {
		return nil, fmt.Errorf("%w: at least one position is required", ErrValidation)
	}
	result := make([]model.Position, len(positions))
	for i, p := range positions {
		if strings.TrimSpace(p.Description) == "" {
			return nil, fmt.Errorf("%w: position %d has no description", ErrValidation, i+1)
		}
		if p.Quantity.IsNegative() {
			return nil, fmt.Errorf("%w: position %d has negative quantity", ErrValidation, i+1)
		}
		if p.VATRate.IsNegative() {
			return nil, fmt.Errorf("%w: position %d has negative vat rate", ErrValidation, i+1)
		}
		if p.Unit == "" {
			p.Unit = "Stück"
		}
		result[i] = p
	}
	return result, nil
}

func mapRenderError(err error) error {
	if errors.Is(err, render.ErrEngineUnavailable) {
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	return fmt.Errorf("%w: %v", ErrRenderingFailed, err)
}

func isConstraintViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") ||
		strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "constraint")
}

func dateOnly(t time.Time) time.Time {
	if t.IsZero() {
		t = time.Now()
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
