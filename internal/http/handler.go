package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dhelbig/korrespondenz/internal/model"
	"github.com/dhelbig/korrespondenz/internal/service"
)

type Handler struct {
	documents *service.DocumentService
	contacts  *service.ContactService
	drafts    *service.DraftService
	health    *HealthInfo
	log       zerolog.Logger
}

// HealthInfo carries the availability probes of the optional collaborators.
type HealthInfo struct {
	Archive       service.Archiver
	ArchiveURL    string
	OllamaEnabled bool
	OllamaURL     string
	OllamaModel   string
	OllamaProbe   func(ctx context.Context) bool
}

func NewHandler(
	documents *service.DocumentService,
	contacts *service.ContactService,
	drafts *service.DraftService,
	health *HealthInfo,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		documents: documents,
		contacts:  contacts,
		drafts:    drafts,
		health:    health,
		log:       log,
	}
}

func (h *Handler) Register(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	router.GET("/health", h.healthCheck)
	router.GET("/health/services", h.servicesStatus)

	protected := router.Group("/")
	protected.Use(authMiddleware)

	protected.GET("/contacts", h.listContacts)
	protected.GET("/contacts/:id", h.getContact)
	protected.POST("/contacts", h.createContact)
	protected.PUT("/contacts/:id", h.updateContact)
	protected.DELETE("/contacts/:id", h.deleteContact)

	protected.GET("/documents", h.listDocuments)
	protected.GET("/documents/export", h.exportDocuments)
	protected.GET("/documents/:id", h.getDocument)
	protected.GET("/documents/:id/pdf", h.getDocumentPDF)
	protected.POST("/documents/letter", h.createLetter)
	protected.POST("/documents/invoice", h.createInvoice)
	protected.POST("/documents/offer", h.createOffer)
	protected.POST("/documents/:id/archive", h.archiveDocument)
	protected.DELETE("/documents/:id", h.deleteDocument)

	protected.POST("/ai/draft", h.draft)
}

// --- contacts ---

func (h *Handler) listContacts(c *gin.Context) {
	offset, limit := pagination(c)
	contacts, err := h.contacts.List(c.Request.Context(), offset, limit)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, contacts)
}

func (h *Handler) getContact(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	contact, err := h.contacts.Get(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, contact)
}

type contactRequest struct {
	ContactType    string `json:"contact_type"`
	CompanyName    string `json:"company_name"`
	Salutation     string `json:"salutation"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Street         string `json:"street"`
	ZipCode        string `json:"zip_code"`
	City           string `json:"city"`
	Country        string `json:"country"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	CustomerNumber string `json:"customer_number"`
	Notes          string `json:"notes"`
}

func (h *Handler) createContact(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contact, err := h.contacts.Create(c.Request.Context(), model.Contact{
		ContactType:    model.ContactType(req.ContactType),
		CompanyName:    req.CompanyName,
		Salutation:     req.Salutation,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Street:         req.Street,
		ZipCode:        req.ZipCode,
		City:           req.City,
		Country:        req.Country,
		Email:          req.Email,
		Phone:          req.Phone,
		CustomerNumber: req.CustomerNumber,
		Notes:          req.Notes,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, contact)
}

type contactUpdateRequest struct {
	ContactType    *string `json:"contact_type"`
	CompanyName    *string `json:"company_name"`
	Salutation     *string `json:"salutation"`
	FirstName      *string `json:"first_name"`
	LastName       *string `json:"last_name"`
	Street         *string `json:"street"`
	ZipCode        *string `json:"zip_code"`
	City           *string `json:"city"`
	Country        *string `json:"country"`
	Email          *string `json:"email"`
	Phone          *string `json:"phone"`
	CustomerNumber *string `json:"customer_number"`
	Notes          *string `json:"notes"`
}

func (h *Handler) updateContact(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req contactUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	in := service.UpdateContactInput{
		CompanyName:    req.CompanyName,
		Salutation:     req.Salutation,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Street:         req.Street,
		ZipCode:        req.ZipCode,
		City:           req.City,
		Country:        req.Country,
		Email:          req.Email,
		Phone:          req.Phone,
		CustomerNumber: req.CustomerNumber,
		Notes:          req.Notes,
	}
	if req.ContactType != nil {
		contactType := model.ContactType(*req.ContactType)
		in.ContactType = &contactType
	}

	contact, err := h.contacts.Update(c.Request.Context(), id, in)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, contact)
}

func (h *Handler) deleteContact(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.contacts.Delete(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "contact deleted"})
}

// --- documents ---

func (h *Handler) listDocuments(c *gin.Context) {
	offset, limit := pagination(c)
	docs, err := h.documents.List(c.Request.Context(),
		c.Query("doc_type"), c.Query("status"), offset, limit)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

func (h *Handler) getDocument(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	doc, err := h.documents.Get(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *Handler) getDocumentPDF(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	path, fileName, err := h.documents.PDFPath(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.FileAttachment(path, fileName)
}

type positionRequest struct {
	Description string           `json:"description" binding:"required"`
	Quantity    *decimal.Decimal `json:"quantity"`
	Unit        string           `json:"unit"`
	UnitPrice   decimal.Decimal  `json:"unit_price"`
	VATRate     *decimal.Decimal `json:"vat_rate"`
}

func (r positionRequest) toModel() model.Position {
	quantity := decimal.NewFromInt(1)
	if r.Quantity != nil {
		quantity = *r.Quantity
	}
	vatRate := decimal.NewFromInt(19)
	if r.VATRate != nil {
		vatRate = *r.VATRate
	}
	return model.Position{
		Description: r.Description,
		Quantity:    quantity,
		Unit:        r.Unit,
		UnitPrice:   r.UnitPrice,
		VATRate:     vatRate,
	}
}

func toPositions(reqs []positionRequest) []model.Position {
	positions := make([]model.Position, len(reqs))
	for i, r := range reqs {
		positions[i] = r.toModel()
	}
	return positions
}

type letterCreateRequest struct {
	ContactID  uint   `json:"contact_id" binding:"required"`
	Subject    string `json:"subject" binding:"required"`
	Content    string `json:"content" binding:"required"`
	LetterType string `json:"letter_type"`
	DocDate    string `json:"doc_date"`
}

func (h *Handler) createLetter(c *gin.Context) {
	var req letterCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	docDate, ok := optionalDate(c, req.DocDate)
	if !ok {
		return
	}

	doc, err := h.documents.CreateLetter(c.Request.Context(), service.CreateLetterInput{
		ContactID:  req.ContactID,
		Subject:    req.Subject,
		Content:    req.Content,
		LetterType: req.LetterType,
		DocDate:    docDate,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

type invoiceCreateRequest struct {
	ContactID uint              `json:"contact_id" binding:"required"`
	Positions []positionRequest `json:"positions" binding:"required"`
	DocDate   string            `json:"doc_date"`
	DueDays   int               `json:"due_days"`
	Notes     string            `json:"notes"`
}

func (h *Handler) createInvoice(c *gin.Context) {
	var req invoiceCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	docDate, ok := optionalDate(c, req.DocDate)
	if !ok {
		return
	}

	doc, err := h.documents.CreateInvoice(c.Request.Context(), service.CreateInvoiceInput{
		ContactID: req.ContactID,
		Positions: toPositions(req.Positions),
		DocDate:   docDate,
		DueDays:   req.DueDays,
		Notes:     req.Notes,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

type offerCreateRequest struct {
	ContactID         uint              `json:"contact_id" binding:"required"`
	Subject           string            `json:"subject" binding:"required"`
	Positions         []positionRequest `json:"positions" binding:"required"`
	DocDate           string            `json:"doc_date"`
	ValidDays         int               `json:"valid_days"`
	PrepaymentPercent *float64          `json:"prepayment_percent"`
	Notes             string            `json:"notes"`
}

func (h *Handler) createOffer(c *gin.Context) {
	var req offerCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	docDate, ok := optionalDate(c, req.DocDate)
	if !ok {
		return
	}

	doc, err := h.documents.CreateOffer(c.Request.Context(), service.CreateOfferInput{
		ContactID:         req.ContactID,
		Subject:           req.Subject,
		Positions:         toPositions(req.Positions),
		DocDate:           docDate,
		ValidDays:         req.ValidDays,
		PrepaymentPercent: req.PrepaymentPercent,
		Notes:             req.Notes,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

func (h *Handler) archiveDocument(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	doc, err := h.documents.Archive(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":     "document handed over for archiving",
		"task_id":     doc.ArchiveTaskID,
		"document_id": doc.ID,
	})
}

func (h *Handler) deleteDocument(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.documents.Delete(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "document deleted"})
}

func (h *Handler) exportDocuments(c *gin.Context) {
	from, err := parseDate(c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from date"})
		return
	}
	to, err := parseDate(c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to date"})
		return
	}

	fileName, content, err := h.documents.ExportRegister(c.Request.Context(), from, to)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=\""+fileName+"\"")
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", content)
}

// --- drafts / health ---

type draftRequest struct {
	DocType   string `json:"doc_type"`
	Context   string `json:"context" binding:"required"`
	Tone      string `json:"tone"`
	ContactID uint   `json:"contact_id"`
}

func (h *Handler) draft(c *gin.Context) {
	var req draftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.drafts.Draft(c.Request.Context(), service.DraftInput{
		DocType:   req.DocType,
		Context:   req.Context,
		Tone:      req.Tone,
		ContactID: req.ContactID,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": result.Text, "model": result.Model})
}

func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) servicesStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"paperless": gin.H{
			"url":       h.health.ArchiveURL,
			"available": h.health.Archive.IsAvailable(c.Request.Context()),
		},
		"ollama": gin.H{
			"configured": h.health.OllamaEnabled,
			"url":        h.health.OllamaURL,
			"model":      h.health.OllamaModel,
			"available":  h.health.OllamaProbe(c.Request.Context()),
		},
	})
}

// --- helpers ---

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrServiceUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrRenderingFailed):
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		h.log.Error().Err(err).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func idParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

func pagination(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "100"))
	return offset, limit
}

func optionalDate(c *gin.Context, raw string) (time.Time, bool) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, true
	}
	parsed, err := parseDate(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid doc_date"})
		return time.Time{}, false
	}
	return parsed, true
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("empty date")
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02",
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, errors.New("unsupported date format")
}
