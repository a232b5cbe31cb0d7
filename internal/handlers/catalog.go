package handlers

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/fvictoire59va/ERP-BTP-sub000/internal/httpx"
	"github.com/fvictoire59va/ERP-BTP-sub000/internal/models"
)

// CatalogHandler exposes the read/write surface of the catalog side: priced
// items and reusable assemblies. The pricing core only ever reads these.
type CatalogHandler struct {
	DB *gorm.DB
}

func NewCatalogHandler(db *gorm.DB) *CatalogHandler { return &CatalogHandler{DB: db} }

var unsafeQueryChars = regexp.MustCompile(`[^a-zA-Z0-9 \-_]`)

// ListItems: GET /catalog/items
func (h *CatalogHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	offset := 0
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			offset = (n - 1) * limit
		}
	}
	dbq := h.DB.Model(&models.CatalogItem{})
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		like := "%" + strings.ToLower(unsafeQueryChars.ReplaceAllString(q, "")) + "%"
		dbq = dbq.Where("lower(name) LIKE ? OR lower(code) LIKE ?", like, like)
	}
	if t := r.URL.Query().Get("type"); t != "" {
		dbq = dbq.Where("type = ?", t)
	}
	var total int64
	dbq.Count(&total)
	var items []models.CatalogItem
	if err := dbq.Order("code").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_items", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "total": total, "limit": limit, "offset": offset})
}

// CreateItem: POST /catalog/items
func (h *CatalogHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code      string          `json:"code"`
		Name      string          `json:"name"`
		Unit      string          `json:"unit"`
		UnitPrice float64         `json:"unit_price"`
		Type      models.ItemType `json:"type"`
		Category  string          `json:"category"`
	}
	if !httpx.Decode(w, r, &req) {
		return
	}
	details := map[string]string{}
	if strings.TrimSpace(req.Code) == "" {
		details["code"] = "required"
	}
	if strings.TrimSpace(req.Name) == "" {
		details["name"] = "required"
	}
	if req.UnitPrice < 0 {
		details["unit_price"] = "must_be_non_negative"
	}
	if !req.Type.Valid() {
		details["type"] = "unknown_item_type"
	}
	if len(details) > 0 {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", details)
		return
	}
	item := models.CatalogItem{
		Code:      strings.TrimSpace(req.Code),
		Name:      strings.TrimSpace(req.Name),
		Unit:      req.Unit,
		UnitPrice: req.UnitPrice,
		Type:      req.Type,
		Category:  req.Category,
	}
	if item.Unit == "" {
		item.Unit = "pce"
	}
	if err := h.DB.Create(&item).Error; err != nil {
		httpx.JSONError(w, http.StatusConflict, "failed_to_create_item", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}

// ListAssemblies: GET /catalog/assemblies
func (h *CatalogHandler) ListAssemblies(w http.ResponseWriter, r *http.Request) {
	var assemblies []models.Assembly
	dbq := h.DB.Preload("Components")
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		like := "%" + strings.ToLower(unsafeQueryChars.ReplaceAllString(q, "")) + "%"
		dbq = dbq.Where("lower(name) LIKE ? OR lower(code) LIKE ?", like, like)
	}
	if err := dbq.Order("code").Find(&assemblies).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_assemblies", nil)
		return
	}
	type assemblyOut struct {
		models.Assembly
		CostPerUnit float64 `json:"cost_per_unit"`
	}
	out := make([]assemblyOut, len(assemblies))
	for i := range assemblies {
		out[i] = assemblyOut{Assembly: assemblies[i], CostPerUnit: assemblies[i].CostPerUnit()}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": out, "total": len(out)})
}

// CreateAssembly: POST /catalog/assemblies
func (h *CatalogHandler) CreateAssembly(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code       string `json:"code"`
		Name       string `json:"name"`
		Category   string `json:"category"`
		Unit       string `json:"unit"`
		Components []struct {
			CatalogItemID uint    `json:"catalog_item_id"`
			Quantity      float64 `json:"quantity"`
		} `json:"components"`
	}
	if !httpx.Decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Code) == "" || strings.TrimSpace(req.Name) == "" {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"code": "required", "name": "required"})
		return
	}
	ids := make([]uint, 0, len(req.Components))
	for _, c := range req.Components {
		if c.CatalogItemID == 0 || c.Quantity <= 0 {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"components": "invalid_item_or_quantity"})
			return
		}
		ids = append(ids, c.CatalogItemID)
	}
	var items []models.CatalogItem
	if len(ids) > 0 {
		if err := h.DB.Where("id IN ?", ids).Find(&items).Error; err != nil || len(items) != len(ids) {
			httpx.JSONError(w, http.StatusBadRequest, "unknown_catalog_items", nil)
			return
		}
	}
	itemByID := map[uint]*models.CatalogItem{}
	for i := range items {
		itemByID[items[i].ID] = &items[i]
	}
	asm := models.Assembly{
		Code:     strings.TrimSpace(req.Code),
		Name:     strings.TrimSpace(req.Name),
		Category: req.Category,
		Unit:     req.Unit,
	}
	if asm.Unit == "" {
		asm.Unit = "u"
	}
	for _, c := range req.Components {
		asm.Components = append(asm.Components, models.NewComponent(itemByID[c.CatalogItemID], c.Quantity))
	}
	if err := h.DB.Create(&asm).Error; err != nil {
		httpx.JSONError(w, http.StatusConflict, "failed_to_create_assembly", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"id":            asm.ID,
		"code":          asm.Code,
		"cost_per_unit": asm.CostPerUnit(),
	})
}
