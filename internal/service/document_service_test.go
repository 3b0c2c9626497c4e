package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/dhelbig/korrespondenz/internal/config"
	"github.com/dhelbig/korrespondenz/internal/excel"
	"github.com/dhelbig/korrespondenz/internal/model"
	"github.com/dhelbig/korrespondenz/internal/render"
	"github.com/dhelbig/korrespondenz/internal/repository"
	"github.com/dhelbig/korrespondenz/internal/sequence"
)

// fileRenderer writes a placeholder PDF so lifecycle paths that stat or
// remove the file behave like production.
type fileRenderer struct {
	dir   string
	calls int
}

func (r *fileRenderer) Render(_ context.Context, in render.Input) (string, error) {
	r.calls++
	path := filepath.Join(r.dir, render.OutputName(in)+".pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4 test"), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

type failingRenderer struct{}

func (failingRenderer) Render(context.Context, render.Input) (string, error) {
	return "", fmt.Errorf("engine exploded")
}

type fakeArchiver struct {
	available bool
	taskID    string
	uploadErr error
	uploads   int
}

func (a *fakeArchiver) IsAvailable(context.Context) bool {
	return a.available
}

func (a *fakeArchiver) Upload(_ context.Context, pdfPath, title, createdDate string) (string, error) {
	a.uploads++
	if a.uploadErr != nil {
		return "", a.uploadErr
	}
	return a.taskID, nil
}

type documentFixture struct {
	service   *DocumentService
	contacts  *repository.ContactRepository
	documents *repository.DocumentRepository
	archiver  *fakeArchiver
	renderer  *fileRenderer
	contact   model.Contact
}

func setupDocumentService(t *testing.T, renderer render.Renderer) *documentFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?_busy_timeout=10000&_txlock=immediate",
		filepath.Join(t.TempDir(), "documents.db"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Contact{}, &model.Document{}, &model.NumberSequence{}))

	contactRepo := repository.NewContactRepository(db)
	documentRepo := repository.NewDocumentRepository(db)

	fr, _ := renderer.(*fileRenderer)
	if renderer == nil {
		fr = &fileRenderer{dir: t.TempDir()}
		renderer = fr
	}

	archiver := &fakeArchiver{available: true, taskID: "task-abc123"}

	cfg := &config.Config{
		Sender: config.Sender{
			Name:    "Testfirma GmbH",
			Street:  "Werkstr. 1",
			ZipCode: "10115",
			City:    "Berlin",
			Country: "Deutschland",
			IBAN:    "DE02120300000000202051",
		},
		SenderPrivate: config.Sender{
			Name:   "Dana Test",
			Street: "Privatweg 2",
			City:   "Berlin",
		},
	}

	svc := NewDocumentService(contactRepo, documentRepo, sequence.NewAllocator(),
		renderer, archiver, excel.NewGenerator(), cfg, zerolog.Nop())

	contact := model.Contact{
		ContactType: model.ContactTypeCompany,
		CompanyName: "Kunde AG",
		Street:      "Kundenallee 9",
		ZipCode:     "80331",
		City:        "München",
	}
	require.NoError(t, contactRepo.Create(context.Background(), &contact))

	return &documentFixture{
		service:   svc,
		contacts:  contactRepo,
		documents: documentRepo,
		archiver:  archiver,
		renderer:  fr,
		contact:   contact,
	}
}

func invoicePositions() []model.Position {
	return []model.Position{
		{
			Description: "Beratung",
			Quantity:    decimal.NewFromInt(2),
			Unit:        "Std.",
			UnitPrice:   decimal.NewFromInt(100),
			VATRate:     decimal.NewFromInt(19),
		},
	}
}

func TestCreateInvoiceComputesTotalsAndNumber(t *testing.T) {
	fx := setupDocumentService(t, nil)

	doc, err := fx.service.CreateInvoice(context.Background(), CreateInvoiceInput{
		ContactID: fx.contact.ID,
		Positions: invoicePositions(),
	})
	require.NoError(t, err)

	year := time.Now().Year()
	assert.Equal(t, fmt.Sprintf("RG-%d-0001", year), doc.DocNumber)
	assert.Equal(t, model.DocTypeInvoice, doc.DocType)
	assert.Equal(t, model.DocStatusFinal, doc.Status)

	assert.True(t, doc.NetTotal.Decimal.Equal(decimal.NewFromInt(200)), "net %s", doc.NetTotal.Decimal)
	assert.True(t, doc.VatTotal.Decimal.Equal(decimal.NewFromInt(38)), "vat %s", doc.VatTotal.Decimal)
	assert.True(t, doc.GrossTotal.Decimal.Equal(decimal.NewFromInt(238)), "gross %s", doc.GrossTotal.Decimal)

	require.NotNil(t, doc.DueDate)
	assert.Equal(t, doc.DocDate.AddDate(0, 0, 14), *doc.DueDate)

	require.NotEmpty(t, doc.PdfPath)
	_, err = os.Stat(doc.PdfPath)
	require.NoError(t, err, "pdf must exist on disk")
}

func TestCreateInvoiceRenderFailureRollsBackNumber(t *testing.T) {
	fx := setupDocumentService(t, failingRenderer{})

	_, err := fx.service.CreateInvoice(context.Background(), CreateInvoiceInput{
		ContactID: fx.contact.ID,
		Positions: invoicePositions(),
	})
	require.ErrorIs(t, err, ErrRenderingFailed)

	docs, err := fx.service.List(context.Background(), "", "", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, docs, "failed creation must not leave a row")
}

func TestCreateInvoiceRetryAfterFailureReusesNumber(t *testing.T) {
	fx := setupDocumentService(t, failingRenderer{})

	_, err := fx.service.CreateInvoice(context.Background(), CreateInvoiceInput{
		ContactID: fx.contact.ID,
		Positions: invoicePositions(),
	})
	require.ErrorIs(t, err, ErrRenderingFailed)

	// Swap in a working renderer; the rolled back allocation is free again.
	fx.service.renderer = &fileRenderer{dir: t.TempDir()}

	doc, err := fx.service.CreateInvoice(context.Background(), CreateInvoiceInput{
		ContactID: fx.contact.ID,
		Positions: invoicePositions(),
	})
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("RG-%d-0001", time.Now().Year()), doc.DocNumber)
}

func TestCreateInvoiceValidatesPositions(t *testing.T) {
	fx := setupDocumentService(t, nil)

	_, err := fx.service.CreateInvoice(context.Background(), CreateInvoiceInput{
		ContactID: fx.contact.ID,
	})
	require.ErrorIs(t, err, ErrValidation)

	_, err = fx.service.CreateInvoice(context.Background(), CreateInvoiceInput{
		ContactID: fx.contact.ID,
		Positions: []model.Position{{
			Description: "Gutschrift",
			Quantity:    decimal.NewFromInt(-1),
			UnitPrice:   decimal.NewFromInt(50),
			VATRate:     decimal.NewFromInt(19),
		}},
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestCreateInvoiceUnknownContact(t *testing.T) {
	fx := setupDocumentService(t, nil)

	_, err := fx.service.CreateInvoice(context.Background(), CreateInvoiceInput{
		ContactID: 9999,
		Positions: invoicePositions(),
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateLetterPrefixes(t *testing.T) {
	fx := setupDocumentService(t, nil)
	year := time.Now().Year()

	business, err := fx.service.CreateLetter(context.Background(), CreateLetterInput{
		ContactID: fx.contact.ID,
		Subject:   "Vertragsunterlagen",
		Content:   "anbei die Unterlagen.",
	})
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("BRF-%d-0001", year), business.DocNumber)
	assert.Equal(t, model.DocTypeLetterBusiness, business.DocType)

	private, err := fx.service.CreateLetter(context.Background(), CreateLetterInput{
		ContactID:  fx.contact.ID,
		Subject:    "Kündigung",
		Content:    "hiermit kündige ich.",
		LetterType: "private",
	})
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("PRV-%d-0001", year), private.DocNumber)
	assert.Equal(t, model.DocTypeLetterPrivate, private.DocType)

	_, err = fx.service.CreateLetter(context.Background(), CreateLetterInput{
		ContactID:  fx.contact.ID,
		Subject:    "x",
		Content:    "y",
		LetterType: "internal",
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestCreateOfferDefaultsValidity(t *testing.T) {
	fx := setupDocumentService(t, nil)

	doc, err := fx.service.CreateOffer(context.Background(), CreateOfferInput{
		ContactID: fx.contact.ID,
		Subject:   "Website-Relaunch",
		Positions: invoicePositions(),
	})
	require.NoError(t, err)

	assert.Equal(t, fmt.Sprintf("ANG-%d-0001", time.Now().Year()), doc.DocNumber)
	require.NotNil(t, doc.ValidUntil)
	assert.Equal(t, doc.DocDate.AddDate(0, 0, 30), *doc.ValidUntil)
}

func TestArchiveTransitionsAfterUpload(t *testing.T) {
	fx := setupDocumentService(t, nil)

	doc, err := fx.service.CreateInvoice(context.Background(), CreateInvoiceInput{
		ContactID: fx.contact.ID,
		Positions: invoicePositions(),
	})
	require.NoError(t, err)

	archived, err := fx.service.Archive(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocStatusArchived, archived.Status)
	assert.Equal(t, "task-abc123", archived.ArchiveTaskID)
	assert.Equal(t, 1, fx.archiver.uploads)

	stored, err := fx.service.Get(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocStatusArchived, stored.Status)

	// Archiving twice is refused.
	_, err = fx.service.Archive(context.Background(), doc.ID)
	require.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 1, fx.archiver.uploads)
}

func TestArchiveUnreachableServiceKeepsStatus(t *testing.T) {
	fx := setupDocumentService(t, nil)
	fx.archiver.available = false

	doc, err := fx.service.CreateInvoice(context.Background(), CreateInvoiceInput{
		ContactID: fx.contact.ID,
		Positions: invoicePositions(),
	})
	require.NoError(t, err)

	_, err = fx.service.Archive(context.Background(), doc.ID)
	require.ErrorIs(t, err, ErrServiceUnavailable)

	stored, err := fx.service.Get(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocStatusFinal, stored.Status)
	assert.Empty(t, stored.ArchiveTaskID)
}

func TestArchiveUploadErrorKeepsStatus(t *testing.T) {
	fx := setupDocumentService(t, nil)
	fx.archiver.uploadErr = errors.New("502 bad gateway")

	doc, err := fx.service.CreateInvoice(context.Background(), CreateInvoiceInput{
		ContactID: fx.contact.ID,
		Positions: invoicePositions(),
	})
	require.NoError(t, err)

	_, err = fx.service.Archive(context.Background(), doc.ID)
	require.Error(t, err)

	stored, err := fx.service.Get(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocStatusFinal, stored.Status)
}

func TestDeleteRemovesRecordAndPDF(t *testing.T) {
	fx := setupDocumentService(t, nil)

	doc, err := fx.service.CreateInvoice(context.Background(), CreateInvoiceInput{
		ContactID: fx.contact.ID,
		Positions: invoicePositions(),
	})
	require.NoError(t, err)

	require.NoError(t, fx.service.Delete(context.Background(), doc.ID))

	_, err = fx.service.Get(context.Background(), doc.ID)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = os.Stat(doc.PdfPath)
	require.True(t, os.IsNotExist(err), "pdf must be gone")
}

func TestPDFPathChecksFileOnDisk(t *testing.T) {
	fx := setupDocumentService(t, nil)

	doc, err := fx.service.CreateInvoice(context.Background(), CreateInvoiceInput{
		ContactID: fx.contact.ID,
		Positions: invoicePositions(),
	})
	require.NoError(t, err)

	path, fileName, err := fx.service.PDFPath(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.PdfPath, path)
	assert.Equal(t, doc.DocNumber+".pdf", fileName)

	require.NoError(t, os.Remove(doc.PdfPath))
	_, _, err = fx.service.PDFPath(context.Background(), doc.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListFiltersByTypeAndStatus(t *testing.T) {
	fx := setupDocumentService(t, nil)

	_, err := fx.service.CreateInvoice(context.Background(), CreateInvoiceInput{
		ContactID: fx.contact.ID,
		Positions: invoicePositions(),
	})
	require.NoError(t, err)
	_, err = fx.service.CreateLetter(context.Background(), CreateLetterInput{
		ContactID: fx.contact.ID,
		Subject:   "Info",
		Content:   "Text",
	})
	require.NoError(t, err)

	invoices, err := fx.service.List(context.Background(), string(model.DocTypeInvoice), "", 0, 10)
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Equal(t, model.DocTypeInvoice, invoices[0].DocType)

	all, err := fx.service.List(context.Background(), "", "", 0, 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestExportRegisterBuildsWorkbook(t *testing.T) {
	fx := setupDocumentService(t, nil)

	_, err := fx.service.CreateInvoice(context.Background(), CreateInvoiceInput{
		ContactID: fx.contact.ID,
		Positions: invoicePositions(),
	})
	require.NoError(t, err)

	from := time.Now().AddDate(0, 0, -1)
	to := time.Now().AddDate(0, 0, 1)

	fileName, content, err := fx.service.ExportRegister(context.Background(), from, to)
	require.NoError(t, err)
	assert.Contains(t, fileName, "dokumente-")
	assert.NotEmpty(t, content)

	_, _, err = fx.service.ExportRegister(context.Background(), to, from)
	require.ErrorIs(t, err, ErrValidation)
}
