package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/fvictoire59va/ERP-BTP-sub000/internal/httpx"
	"github.com/fvictoire59va/ERP-BTP-sub000/internal/metrics"
	"github.com/fvictoire59va/ERP-BTP-sub000/internal/models"
	"github.com/fvictoire59va/ERP-BTP-sub000/internal/services"
)

// ProjectHandler drives the project (chantier) lifecycle and the
// forecast/actual/variance reports.
type ProjectHandler struct {
	DB    *gorm.DB
	Recon *services.ReconciliationService
}

func NewProjectHandler(db *gorm.DB, recon *services.ReconciliationService) *ProjectHandler {
	return &ProjectHandler{DB: db, Recon: recon}
}

// GormQuoteLookup resolves quote numbers against the database with lines and
// frozen components materialized, satisfying services.QuoteLookup.
type GormQuoteLookup struct {
	DB *gorm.DB
}

func (l *GormQuoteLookup) QuoteByNumber(number string) (*models.Quote, error) {
	var quote models.Quote
	err := l.DB.
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Lines.Components").
		Where("number = ?", number).
		First(&quote).Error
	if err != nil {
		return nil, err
	}
	return &quote, nil
}

// Create: POST /projects – create a project from an accepted quote.
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QuoteNumber string `json:"quote_number"`
		SiteAddress string `json:"site_address"`
	}
	if !httpx.Decode(w, r, &req) {
		return
	}
	if req.QuoteNumber == "" {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"quote_number": "required"})
		return
	}
	var quote models.Quote
	if err := h.DB.Where("number = ?", req.QuoteNumber).First(&quote).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "quote_not_found", nil)
		return
	}
	if !quote.IsAccepted() {
		httpx.JSONError(w, http.StatusConflict, "quote_not_accepted", map[string]string{"status": string(quote.Status)})
		return
	}
	now := time.Now()
	project := models.Project{
		ClientRef:   quote.ClientRef,
		SiteAddress: req.SiteAddress,
		StartDate:   now,
		Status:      models.ProjectStatusPending,
		LinkedQuotes: []models.ProjectQuote{
			{QuoteNumber: quote.Number},
		},
	}
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		number, err := models.GenerateProjectNumber(tx, now.Year())
		if err != nil {
			return err
		}
		project.Number = number
		return tx.Create(&project).Error
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_project", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, project)
}

// Get: GET /projects?id=...
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	project, ok := h.loadProject(w, r.URL.Query().Get("id"))
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, project)
}

// AttachQuote: POST /projects/quotes/attach
func (h *ProjectHandler) AttachQuote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProjectID   uint   `json:"project_id"`
		QuoteNumber string `json:"quote_number"`
	}
	if !httpx.Decode(w, r, &req) {
		return
	}
	project, ok := h.loadProject(w, strconv.Itoa(int(req.ProjectID)))
	if !ok {
		return
	}
	var quote models.Quote
	if err := h.DB.Where("number = ?", req.QuoteNumber).First(&quote).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "quote_not_found", nil)
		return
	}
	if err := project.AttachQuote(req.QuoteNumber); err != nil {
		httpx.JSONError(w, http.StatusConflict, "quote_already_linked", nil)
		return
	}
	link := project.LinkedQuotes[len(project.LinkedQuotes)-1]
	if err := h.DB.Create(&link).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_attach_quote", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"project": project.Number, "linked_quotes": project.QuoteNumbers()})
}

// DetachQuote: POST /projects/quotes/detach – rejected when it would leave the
// project without any linked quote; nothing is mutated in that case.
func (h *ProjectHandler) DetachQuote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProjectID   uint   `json:"project_id"`
		QuoteNumber string `json:"quote_number"`
	}
	if !httpx.Decode(w, r, &req) {
		return
	}
	project, ok := h.loadProject(w, strconv.Itoa(int(req.ProjectID)))
	if !ok {
		return
	}
	if err := project.DetachQuote(req.QuoteNumber); err != nil {
		switch {
		case errors.Is(err, models.ErrLastLinkedQuote):
			httpx.JSONError(w, http.StatusConflict, "last_linked_quote", nil)
		case errors.Is(err, models.ErrQuoteNotLinked):
			httpx.JSONError(w, http.StatusNotFound, "quote_not_linked", nil)
		default:
			httpx.JSONError(w, http.StatusInternalServerError, "failed_to_detach_quote", nil)
		}
		return
	}
	if err := h.DB.Where("project_id = ? AND quote_number = ?", project.ID, req.QuoteNumber).
		Delete(&models.ProjectQuote{}).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_detach_quote", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"project": project.Number, "linked_quotes": project.QuoteNumbers()})
}

// AddExpense: POST /projects/expenses – append one logged real cost entry.
func (h *ProjectHandler) AddExpense(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProjectID     uint            `json:"project_id"`
		Type          models.ItemType `json:"type"`
		Designation   string          `json:"designation"`
		Quantity      float64         `json:"quantity"`
		UnitPrice     float64         `json:"unit_price"`
		Date          *time.Time      `json:"date"`
		CatalogItemID *uint           `json:"catalog_item_id"`
	}
	if !httpx.Decode(w, r, &req) {
		return
	}
	details := map[string]string{}
	if !req.Type.Valid() {
		details["type"] = "unknown_item_type"
	}
	if req.Quantity <= 0 {
		details["quantity"] = "must_be_positive"
	}
	if req.UnitPrice < 0 {
		details["unit_price"] = "must_be_non_negative"
	}
	if len(details) > 0 {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", details)
		return
	}
	project, ok := h.loadProject(w, strconv.Itoa(int(req.ProjectID)))
	if !ok {
		return
	}
	expense := models.ActualExpense{
		ProjectID:     project.ID,
		Type:          req.Type,
		Designation:   req.Designation,
		Quantity:      req.Quantity,
		UnitPrice:     req.UnitPrice,
		Date:          time.Now(),
		CatalogItemID: req.CatalogItemID,
	}
	if req.Date != nil {
		expense.Date = *req.Date
	}
	if err := h.DB.Create(&expense).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_add_expense", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, expense)
}

// UpdateStatus: POST /projects/status
func (h *ProjectHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProjectID uint                 `json:"project_id"`
		Status    models.ProjectStatus `json:"status"`
	}
	if !httpx.Decode(w, r, &req) {
		return
	}
	switch req.Status {
	case models.ProjectStatusPending, models.ProjectStatusActive, models.ProjectStatusDone, models.ProjectStatusCancelled:
	default:
		httpx.JSONError(w, http.StatusBadRequest, "unknown_status", nil)
		return
	}
	var project models.Project
	if err := h.DB.First(&project, req.ProjectID).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "project_not_found", nil)
		return
	}
	if err := h.DB.Model(&project).Update("status", req.Status).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_status", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"id": project.ID, "status": req.Status})
}

// Forecast: GET /projects/forecast?id=...
func (h *ProjectHandler) Forecast(w http.ResponseWriter, r *http.Request) {
	project, ok := h.loadProject(w, r.URL.Query().Get("id"))
	if !ok {
		return
	}
	report := h.Recon.Forecast(project, &GormQuoteLookup{DB: h.DB})
	metrics.ReportsGenerated.WithLabelValues("forecast").Inc()
	httpx.JSON(w, http.StatusOK, report)
}

// Actual: GET /projects/actual?id=...
func (h *ProjectHandler) Actual(w http.ResponseWriter, r *http.Request) {
	project, ok := h.loadProject(w, r.URL.Query().Get("id"))
	if !ok {
		return
	}
	report := h.Recon.Actual(project)
	metrics.ReportsGenerated.WithLabelValues("actual").Inc()
	httpx.JSON(w, http.StatusOK, report)
}

// Variance: GET /projects/variance?id=...
func (h *ProjectHandler) Variance(w http.ResponseWriter, r *http.Request) {
	project, ok := h.loadProject(w, r.URL.Query().Get("id"))
	if !ok {
		return
	}
	report := h.Recon.Variance(project, &GormQuoteLookup{DB: h.DB})
	metrics.ReportsGenerated.WithLabelValues("variance").Inc()
	httpx.JSON(w, http.StatusOK, report)
}

func (h *ProjectHandler) loadProject(w http.ResponseWriter, idStr string) (*models.Project, bool) {
	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return nil, false
	}
	var project models.Project
	err = h.DB.
		Preload("LinkedQuotes").
		Preload("Expenses").
		First(&project, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.JSONError(w, http.StatusNotFound, "project_not_found", nil)
		} else {
			httpx.JSONError(w, http.StatusInternalServerError, "failed_to_load_project", nil)
		}
		return nil, false
	}
	return &project, true
}
