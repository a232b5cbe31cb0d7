package handlers

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fvictoire59va/ERP-BTP-sub000/internal/models"
)

func postJSON(t *testing.T, handler http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func getPath(t *testing.T, handler http.HandlerFunc, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func createQuote(t *testing.T, h *QuoteHandler) models.Quote {
	t.Helper()
	w := postJSON(t, h.Create, "/quotes", `{"client_ref":"CL-001","subject":"Extension garage","margin_coefficient":1.35}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create quote: expected 201 got %d body=%s", w.Code, w.Body.String())
	}
	var q models.Quote
	if err := json.Unmarshal(w.Body.Bytes(), &q); err != nil {
		t.Fatalf("decode quote: %v", err)
	}
	return q
}

func TestQuoteCreate_NumberFormat(t *testing.T) {
	db := setupTestDB(t)
	h := newQuoteHandler(db)

	q1 := createQuote(t, h)
	q2 := createQuote(t, h)

	if !strings.HasPrefix(q1.Number, "DEV-") || !strings.HasSuffix(q1.Number, "-0001") {
		t.Errorf("first number = %s", q1.Number)
	}
	if !strings.HasSuffix(q2.Number, "-0002") {
		t.Errorf("second number = %s", q2.Number)
	}
	if q1.Status != models.QuoteStatusDraft {
		t.Errorf("status = %s, want draft", q1.Status)
	}
}

func TestQuoteAddLines_PricingAndDepth(t *testing.T) {
	db := setupTestDB(t)
	_, _, asm := seedCatalogFixtures(t, db)
	h := newQuoteHandler(db)
	q := createQuote(t, h)

	w := postJSON(t, h.AddLine, "/quotes/lines",
		fmt.Sprintf(`{"quote_id":%d,"kind":"chapter","title":"Maçonnerie","depth":1}`, q.ID))
	if w.Code != http.StatusCreated {
		t.Fatalf("add chapter: %d body=%s", w.Code, w.Body.String())
	}

	w = postJSON(t, h.AddLine, "/quotes/lines",
		fmt.Sprintf(`{"quote_id":%d,"kind":"work","assembly_id":%d,"quantity":12}`, q.ID, asm.ID))
	if w.Code != http.StatusCreated {
		t.Fatalf("add work item: %d body=%s", w.Code, w.Body.String())
	}
	var line models.QuoteLine
	if err := json.Unmarshal(w.Body.Bytes(), &line); err != nil {
		t.Fatalf("decode line: %v", err)
	}
	if line.Depth != 1 || line.LineNo != 2 {
		t.Errorf("line depth/no = %d/%d", line.Depth, line.LineNo)
	}
	// Assembly cost 100, coefficient 1.35.
	if math.Abs(line.UnitSalePrice-135) > 0.001 {
		t.Errorf("unit sale price = %v, want 135", line.UnitSalePrice)
	}
	if len(line.Components) != 2 {
		t.Errorf("frozen components = %d, want 2", len(line.Components))
	}

	// Unknown assembly is a hard NotFound: the caller must not proceed.
	w = postJSON(t, h.AddLine, "/quotes/lines",
		fmt.Sprintf(`{"quote_id":%d,"kind":"work","assembly_id":9999,"quantity":1}`, q.ID))
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown assembly: expected 404 got %d", w.Code)
	}
}

func TestQuoteTotalsReport(t *testing.T) {
	db := setupTestDB(t)
	_, _, asm := seedCatalogFixtures(t, db)
	h := newQuoteHandler(db)
	q := createQuote(t, h)

	add := func(body string) {
		t.Helper()
		w := postJSON(t, h.AddLine, "/quotes/lines", body)
		if w.Code != http.StatusCreated {
			t.Fatalf("add line: %d body=%s", w.Code, w.Body.String())
		}
	}
	add(fmt.Sprintf(`{"quote_id":%d,"kind":"chapter","title":"Gros œuvre","depth":1}`, q.ID))
	add(fmt.Sprintf(`{"quote_id":%d,"kind":"work","assembly_id":%d,"quantity":2}`, q.ID, asm.ID))
	add(fmt.Sprintf(`{"quote_id":%d,"kind":"chapter","title":"Détail","depth":2}`, q.ID))
	add(fmt.Sprintf(`{"quote_id":%d,"kind":"work","assembly_id":%d,"quantity":1}`, q.ID, asm.ID))

	w := getPath(t, h.TotalsReport, fmt.Sprintf("/quotes/totals?id=%d", q.ID))
	if w.Code != http.StatusOK {
		t.Fatalf("totals: %d body=%s", w.Code, w.Body.String())
	}
	var report struct {
		Chapters []struct {
			Title string  `json:"title"`
			Total float64 `json:"total"`
		} `json:"chapters"`
		TotalHT   float64 `json:"total_ht"`
		VATAmount float64 `json:"vat_amount"`
		TotalTTC  float64 `json:"total_ttc"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	// Work items: 2×135 and 1×135.
	if math.Abs(report.TotalHT-405) > 0.001 {
		t.Errorf("total HT = %v, want 405", report.TotalHT)
	}
	if math.Abs(report.VATAmount-81) > 0.001 {
		t.Errorf("VAT = %v, want 81", report.VATAmount)
	}
	if math.Abs(report.TotalTTC-486) > 0.001 {
		t.Errorf("TTC = %v, want 486", report.TotalTTC)
	}
	if len(report.Chapters) != 2 {
		t.Fatalf("chapters = %+v", report.Chapters)
	}
	if report.Chapters[0].Title != "Gros œuvre" || math.Abs(report.Chapters[0].Total-405) > 0.001 {
		t.Errorf("outer chapter = %+v", report.Chapters[0])
	}
	if report.Chapters[1].Title != "Détail" || math.Abs(report.Chapters[1].Total-135) > 0.001 {
		t.Errorf("inner chapter = %+v", report.Chapters[1])
	}
}

func TestQuoteApplyCoefficient_Persisted(t *testing.T) {
	db := setupTestDB(t)
	_, _, asm := seedCatalogFixtures(t, db)
	h := newQuoteHandler(db)
	q := createQuote(t, h)

	w := postJSON(t, h.AddLine, "/quotes/lines",
		fmt.Sprintf(`{"quote_id":%d,"kind":"work","assembly_id":%d,"quantity":1}`, q.ID, asm.ID))
	if w.Code != http.StatusCreated {
		t.Fatalf("add work item: %d", w.Code)
	}

	w = postJSON(t, h.ApplyCoefficient, "/quotes/coefficient",
		fmt.Sprintf(`{"quote_id":%d,"coefficient":1.5}`, q.ID))
	if w.Code != http.StatusOK {
		t.Fatalf("apply coefficient: %d body=%s", w.Code, w.Body.String())
	}

	var reloaded models.Quote
	if err := db.Preload("Lines").First(&reloaded, q.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.MarginCoefficient != 1.5 {
		t.Errorf("coefficient = %v", reloaded.MarginCoefficient)
	}
	if math.Abs(reloaded.Lines[0].UnitSalePrice-150) > 0.001 {
		t.Errorf("repriced line = %v, want 150", reloaded.Lines[0].UnitSalePrice)
	}

	w = postJSON(t, h.ApplyCoefficient, "/quotes/coefficient",
		fmt.Sprintf(`{"quote_id":%d,"coefficient":0}`, q.ID))
	if w.Code != http.StatusBadRequest {
		t.Errorf("zero coefficient: expected 400 got %d", w.Code)
	}
}

func TestQuoteRemoveLine_KeepsNumbers(t *testing.T) {
	db := setupTestDB(t)
	_, _, asm := seedCatalogFixtures(t, db)
	h := newQuoteHandler(db)
	q := createQuote(t, h)

	for i := 0; i < 2; i++ {
		w := postJSON(t, h.AddLine, "/quotes/lines",
			fmt.Sprintf(`{"quote_id":%d,"kind":"work","assembly_id":%d,"quantity":1}`, q.ID, asm.ID))
		if w.Code != http.StatusCreated {
			t.Fatalf("add work item: %d", w.Code)
		}
	}

	w := postJSON(t, h.RemoveLine, "/quotes/lines/remove",
		fmt.Sprintf(`{"quote_id":%d,"line_no":1}`, q.ID))
	if w.Code != http.StatusOK {
		t.Fatalf("remove: %d body=%s", w.Code, w.Body.String())
	}

	var lines []models.QuoteLine
	if err := db.Where("quote_id = ?", q.ID).Order("position").Find(&lines).Error; err != nil {
		t.Fatalf("list lines: %v", err)
	}
	if len(lines) != 1 || lines[0].LineNo != 2 {
		t.Fatalf("surviving lines: %+v", lines)
	}

	// A new line continues the sequence instead of reusing 1.
	w = postJSON(t, h.AddLine, "/quotes/lines",
		fmt.Sprintf(`{"quote_id":%d,"kind":"chapter","title":"Suite","depth":1}`, q.ID))
	if w.Code != http.StatusCreated {
		t.Fatalf("add after remove: %d", w.Code)
	}
	var line models.QuoteLine
	_ = json.Unmarshal(w.Body.Bytes(), &line)
	if line.LineNo != 3 {
		t.Errorf("new line no = %d, want 3", line.LineNo)
	}
}

func TestQuoteLocked_AfterAccept(t *testing.T) {
	db := setupTestDB(t)
	_, _, asm := seedCatalogFixtures(t, db)
	h := newQuoteHandler(db)
	q := createQuote(t, h)

	w := postJSON(t, h.UpdateStatus, "/quotes/status",
		fmt.Sprintf(`{"quote_id":%d,"status":"accepted"}`, q.ID))
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d body=%s", w.Code, w.Body.String())
	}

	w = postJSON(t, h.AddLine, "/quotes/lines",
		fmt.Sprintf(`{"quote_id":%d,"kind":"work","assembly_id":%d,"quantity":1}`, q.ID, asm.ID))
	if w.Code != http.StatusConflict {
		t.Errorf("edit accepted quote: expected 409 got %d", w.Code)
	}
}

func TestQuoteUpdateComponent_RepricesLineOnly(t *testing.T) {
	db := setupTestDB(t)
	_, _, asm := seedCatalogFixtures(t, db)
	h := newQuoteHandler(db)
	q := createQuote(t, h)

	w := postJSON(t, h.AddLine, "/quotes/lines",
		fmt.Sprintf(`{"quote_id":%d,"kind":"work","assembly_id":%d,"quantity":1}`, q.ID, asm.ID))
	if w.Code != http.StatusCreated {
		t.Fatalf("add work item: %d", w.Code)
	}
	var line models.QuoteLine
	_ = json.Unmarshal(w.Body.Bytes(), &line)

	var compID uint
	var reloaded models.QuoteLine
	if err := db.Preload("Components").Where("quote_id = ? AND line_no = ?", q.ID, line.LineNo).First(&reloaded).Error; err != nil {
		t.Fatalf("reload line: %v", err)
	}
	for _, c := range reloaded.Components {
		if c.Type == models.ItemTypeMaterial {
			compID = c.ID
		}
	}
	if compID == 0 {
		t.Fatalf("no material component: %+v", reloaded.Components)
	}

	// Double the material quantity: cost becomes 20×1.45 + 2.25×38 = 114.5,
	// and the line is repriced from components only.
	w = postJSON(t, h.UpdateComponent, "/quotes/lines/component",
		fmt.Sprintf(`{"quote_id":%d,"line_no":%d,"component_id":%d,"quantity":20,"unit_price":1.45}`, q.ID, line.LineNo, compID))
	if w.Code != http.StatusOK {
		t.Fatalf("update component: %d body=%s", w.Code, w.Body.String())
	}
	if err := db.Where("quote_id = ? AND line_no = ?", q.ID, line.LineNo).First(&reloaded).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if math.Abs(reloaded.UnitSalePrice-114.5) > 0.001 {
		t.Errorf("unit sale price = %v, want 114.5", reloaded.UnitSalePrice)
	}
}
