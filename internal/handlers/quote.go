package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fvictoire59va/ERP-BTP-sub000/internal/httpx"
	"github.com/fvictoire59va/ERP-BTP-sub000/internal/metrics"
	"github.com/fvictoire59va/ERP-BTP-sub000/internal/models"
	"github.com/fvictoire59va/ERP-BTP-sub000/internal/services"
)

// QuoteHandler exposes quote composition: header creation, line-tree edits,
// coefficient application, and the totals report consumed by the document
// rendering collaborator.
type QuoteHandler struct {
	DB      *gorm.DB
	Pricing *services.PricingService
	Lines   *services.LineService
	Totals  *services.TotalsService
}

func NewQuoteHandler(db *gorm.DB, pricing *services.PricingService, lines *services.LineService, totals *services.TotalsService) *QuoteHandler {
	return &QuoteHandler{DB: db, Pricing: pricing, Lines: lines, Totals: totals}
}

// Create: POST /quotes
func (h *QuoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClientRef         string  `json:"client_ref"`
		Subject           string  `json:"subject"`
		MarginCoefficient float64 `json:"margin_coefficient"`
		VATRate           *float64 `json:"vat_rate"`
		ValidityDays      int     `json:"validity_days"`
	}
	if !httpx.Decode(w, r, &req) {
		return
	}
	if req.ClientRef == "" {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"client_ref": "required"})
		return
	}
	now := time.Now()
	quote := models.Quote{
		IssueDate:         now,
		ClientRef:         req.ClientRef,
		Subject:           req.Subject,
		MarginCoefficient: req.MarginCoefficient,
		VATRate:           20,
		ValidityDays:      req.ValidityDays,
		Status:            models.QuoteStatusDraft,
		NextLineNo:        1,
	}
	if quote.MarginCoefficient <= 0 {
		quote.MarginCoefficient = 1
	}
	if req.VATRate != nil {
		quote.VATRate = *req.VATRate
	}
	if quote.ValidityDays <= 0 {
		quote.ValidityDays = 30
	}
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		number, err := models.GenerateQuoteNumber(tx, now.Year())
		if err != nil {
			return err
		}
		quote.Number = number
		return tx.Create(&quote).Error
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_quote", nil)
		return
	}
	metrics.QuotesCreated.Inc()
	httpx.JSON(w, http.StatusCreated, quote)
}

// Get: GET /quotes?id=... – quote with its ordered lines and totals.
func (h *QuoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	quote, ok := h.loadQuote(w, r.URL.Query().Get("id"))
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"quote":      quote,
		"total_ht":   quote.TotalHT(),
		"vat_amount": quote.VATAmount(),
		"total_ttc":  quote.TotalTTC(),
	})
}

// TotalsReport: GET /quotes/totals?id=... – chapter subtotals plus HT/VAT/TTC.
// This is the contract surface toward the document-rendering collaborator.
func (h *QuoteHandler) TotalsReport(w http.ResponseWriter, r *http.Request) {
	quote, ok := h.loadQuote(w, r.URL.Query().Get("id"))
	if !ok {
		return
	}
	report := h.Totals.ComputeChapterTotals(quote.Lines)
	httpx.JSON(w, http.StatusOK, map[string]any{
		"number":     quote.Number,
		"chapters":   report.Chapters,
		"total_ht":   quote.TotalHT(),
		"vat_amount": quote.VATAmount(),
		"total_ttc":  quote.TotalTTC(),
	})
}

// AddLine: POST /quotes/lines – insert a chapter, text, or work-item line.
func (h *QuoteHandler) AddLine(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QuoteID    uint            `json:"quote_id"`
		Kind       models.LineKind `json:"kind"`
		Title      string          `json:"title"`
		Text       string          `json:"text"`
		Depth      int             `json:"depth"`
		AssemblyID uint            `json:"assembly_id"`
		Quantity   float64         `json:"quantity"`
	}
	if !httpx.Decode(w, r, &req) {
		return
	}
	quote, ok := h.loadEditableQuote(w, req.QuoteID)
	if !ok {
		return
	}
	var line *models.QuoteLine
	switch req.Kind {
	case models.LineKindChapter:
		line = h.Lines.InsertChapter(quote, req.Title, req.Depth)
	case models.LineKindText:
		line = h.Lines.InsertText(quote, req.Text, req.Depth)
	case models.LineKindWorkItem:
		if req.Quantity < 0 {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"quantity": "must_be_non_negative"})
			return
		}
		var asm models.Assembly
		if err := h.DB.Preload("Components").First(&asm, req.AssemblyID).Error; err != nil {
			httpx.JSONError(w, http.StatusNotFound, "assembly_not_found", nil)
			return
		}
		var err error
		line, err = h.Lines.InsertWorkItem(quote, &asm, req.Quantity)
		if err != nil {
			httpx.JSONError(w, http.StatusNotFound, "assembly_not_found", nil)
			return
		}
	default:
		httpx.JSONError(w, http.StatusBadRequest, "unknown_line_kind", nil)
		return
	}
	if err := h.persistQuote(quote, nil); err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_save_quote", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, line)
}

// MoveLine: POST /quotes/lines/move – swap a line with its neighbor.
func (h *QuoteHandler) MoveLine(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QuoteID   uint   `json:"quote_id"`
		LineNo    int    `json:"line_no"`
		Direction string `json:"direction"`
	}
	if !httpx.Decode(w, r, &req) {
		return
	}
	dir := services.MoveDirection(req.Direction)
	if dir != services.MoveUp && dir != services.MoveDown {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_direction", nil)
		return
	}
	quote, ok := h.loadEditableQuote(w, req.QuoteID)
	if !ok {
		return
	}
	if err := h.Lines.Move(quote, req.LineNo, dir); err != nil {
		httpx.JSONError(w, http.StatusNotFound, "line_not_found", nil)
		return
	}
	if err := h.persistQuote(quote, nil); err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_save_quote", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, quote.Lines)
}

// DuplicateLine: POST /quotes/lines/duplicate
func (h *QuoteHandler) DuplicateLine(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QuoteID uint `json:"quote_id"`
		LineNo  int  `json:"line_no"`
	}
	if !httpx.Decode(w, r, &req) {
		return
	}
	quote, ok := h.loadEditableQuote(w, req.QuoteID)
	if !ok {
		return
	}
	line, err := h.Lines.Duplicate(quote, req.LineNo)
	if err != nil {
		httpx.JSONError(w, http.StatusNotFound, "line_not_found", nil)
		return
	}
	if err := h.persistQuote(quote, nil); err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_save_quote", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, line)
}

// RemoveLine: POST /quotes/lines/remove
func (h *QuoteHandler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QuoteID uint `json:"quote_id"`
		LineNo  int  `json:"line_no"`
	}
	if !httpx.Decode(w, r, &req) {
		return
	}
	quote, ok := h.loadEditableQuote(w, req.QuoteID)
	if !ok {
		return
	}
	var removedID uint
	for i := range quote.Lines {
		if quote.Lines[i].LineNo == req.LineNo {
			removedID = quote.Lines[i].ID
			break
		}
	}
	if err := h.Lines.Remove(quote, req.LineNo); err != nil {
		httpx.JSONError(w, http.StatusNotFound, "line_not_found", nil)
		return
	}
	if err := h.persistQuote(quote, []uint{removedID}); err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_save_quote", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, quote.Lines)
}

// UpdateComponent: POST /quotes/lines/component – edit one frozen component
// in place; only the owning line is repriced.
func (h *QuoteHandler) UpdateComponent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QuoteID     uint    `json:"quote_id"`
		LineNo      int     `json:"line_no"`
		ComponentID uint    `json:"component_id"`
		Quantity    float64 `json:"quantity"`
		UnitPrice   float64 `json:"unit_price"`
	}
	if !httpx.Decode(w, r, &req) {
		return
	}
	if req.Quantity <= 0 || req.UnitPrice < 0 {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"quantity": "must_be_positive", "unit_price": "must_be_non_negative"})
		return
	}
	quote, ok := h.loadEditableQuote(w, req.QuoteID)
	if !ok {
		return
	}
	var line *models.QuoteLine
	for i := range quote.Lines {
		if quote.Lines[i].LineNo == req.LineNo {
			line = &quote.Lines[i]
			break
		}
	}
	if line == nil {
		httpx.JSONError(w, http.StatusNotFound, "line_not_found", nil)
		return
	}
	if err := h.Pricing.UpdateLineComponent(line, req.ComponentID, req.Quantity, req.UnitPrice); err != nil {
		switch {
		case errors.Is(err, services.ErrComponentNotFound):
			httpx.JSONError(w, http.StatusNotFound, "component_not_found", nil)
		default:
			httpx.JSONError(w, http.StatusBadRequest, "not_a_work_item", nil)
		}
		return
	}
	if err := h.persistQuote(quote, nil); err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_save_quote", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, line)
}

// ApplyCoefficient: POST /quotes/coefficient – set the quote-wide margin
// coefficient and re-derive every work-item sale price.
func (h *QuoteHandler) ApplyCoefficient(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QuoteID     uint    `json:"quote_id"`
		Coefficient float64 `json:"coefficient"`
	}
	if !httpx.Decode(w, r, &req) {
		return
	}
	if req.Coefficient <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"coefficient": "must_be_positive"})
		return
	}
	quote, ok := h.loadEditableQuote(w, req.QuoteID)
	if !ok {
		return
	}
	h.Pricing.ApplyCoefficientToQuote(quote, req.Coefficient)
	if err := h.persistQuote(quote, nil); err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_save_quote", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"coefficient": quote.MarginCoefficient,
		"total_ht":    quote.TotalHT(),
	})
}

// UpdateStatus: POST /quotes/status
func (h *QuoteHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QuoteID uint               `json:"quote_id"`
		Status  models.QuoteStatus `json:"status"`
	}
	if !httpx.Decode(w, r, &req) {
		return
	}
	switch req.Status {
	case models.QuoteStatusDraft, models.QuoteStatusSent, models.QuoteStatusRejected, models.QuoteStatusAccepted:
	default:
		httpx.JSONError(w, http.StatusBadRequest, "unknown_status", nil)
		return
	}
	var quote models.Quote
	if err := h.DB.First(&quote, req.QuoteID).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "quote_not_found", nil)
		return
	}
	if err := h.DB.Model(&quote).Update("status", req.Status).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_status", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"id": quote.ID, "status": req.Status})
}

// loadQuote fetches a quote with its lines ordered by position.
func (h *QuoteHandler) loadQuote(w http.ResponseWriter, idStr string) (*models.Quote, bool) {
	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return nil, false
	}
	var quote models.Quote
	err = h.DB.
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Lines.Components").
		First(&quote, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "quote_not_found", nil)
		} else {
			httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_quote", nil)
		}
		return nil, false
	}
	return &quote, true
}

func (h *QuoteHandler) loadEditableQuote(w http.ResponseWriter, id uint) (*models.Quote, bool) {
	quote, ok := h.loadQuote(w, strconv.Itoa(int(id)))
	if !ok {
		return nil, false
	}
	if !quote.CanEdit() {
		httpx.JSONError(w, http.StatusConflict, "quote_locked", map[string]string{"status": string(quote.Status)})
		return nil, false
	}
	return quote, true
}

// persistQuote saves the quote header and every line (with components) in one
// transaction, deleting the given line ids first. Line slices are mutated in
// memory by the services; this is the single write-back point.
func (h *QuoteHandler) persistQuote(quote *models.Quote, deletedLineIDs []uint) error {
	return h.DB.Transaction(func(tx *gorm.DB) error {
		for _, id := range deletedLineIDs {
			if id == 0 {
				continue
			}
			if err := tx.Where("line_id = ?", id).Delete(&models.LineComponent{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&models.QuoteLine{}, id).Error; err != nil {
				return err
			}
		}
		if err := tx.Omit(clause.Associations).Save(quote).Error; err != nil {
			return err
		}
		for i := range quote.Lines {
			quote.Lines[i].QuoteID = quote.ID
			if err := tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(&quote.Lines[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
