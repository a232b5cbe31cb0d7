package services

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/fvictoire59va/ERP-BTP-sub000/internal/models"
)

// QuoteLookup resolves a quote number to its materialized quote (lines and
// frozen components loaded). Implemented by the persistence boundary in
// production and by in-memory maps in tests.
type QuoteLookup interface {
	QuoteByNumber(number string) (*models.Quote, error)
}

// costKey identifies an aggregation bucket: catalog item × cost family.
// Expenses without a catalog link fall into the zero-item bucket of their type.
type costKey struct {
	ItemID uint
	Type   models.ItemType
}

// CostLine is one aggregated row of a forecast or actual report.
type CostLine struct {
	CatalogItemID uint            `json:"catalog_item_id"`
	Type          models.ItemType `json:"type"`
	Designation   string          `json:"designation"`
	Unit          string          `json:"unit"`
	UnitPrice     float64         `json:"unit_price"`
	Quantity      float64         `json:"quantity"`
	Cost          float64         `json:"cost"`
}

// ForecastReport aggregates planned quantities and costs across every
// resolvable linked quote of a project.
type ForecastReport struct {
	Items      []CostLine                   `json:"items"`
	ByType     map[models.ItemType]float64  `json:"by_type"`
	LaborHours float64                      `json:"labor_hours"`
	TotalCost  float64                      `json:"total_cost"`
	Skipped    []string                     `json:"skipped_quotes,omitempty"`
}

// ActualReport aggregates logged expenses with the same shape.
type ActualReport struct {
	Items      []CostLine                  `json:"items"`
	ByType     map[models.ItemType]float64 `json:"by_type"`
	LaborHours float64                     `json:"labor_hours"`
	TotalCost  float64                     `json:"total_cost"`
}

// VarianceLine compares one bucket. Positive variance means over budget.
type VarianceLine struct {
	Forecast    float64 `json:"forecast"`
	Actual      float64 `json:"actual"`
	Variance    float64 `json:"variance"`
	VariancePct float64 `json:"variance_pct"`
}

// VarianceReport holds per-type buckets and the project-level total.
type VarianceReport struct {
	ByType map[models.ItemType]VarianceLine `json:"by_type"`
	Total  VarianceLine                     `json:"total"`
}

// ReconciliationService builds forecast, actual, and variance reports for a
// project. Unresolvable linked quotes are skipped with a warning instead of
// failing the whole report: a partial forecast beats none when historical
// quotes have been pruned.
type ReconciliationService struct {
	log *zap.Logger
}

func NewReconciliationService(log *zap.Logger) *ReconciliationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReconciliationService{log: log}
}

// Forecast accumulates, for every work-item line of every linked quote, each
// frozen component's quantity × line quantity into per-(item, type) buckets.
// The authoritative total cost is the sum of the quotes' own HT totals (sale
// side); the per-item rows carry the cost side.
func (s *ReconciliationService) Forecast(p *models.Project, lookup QuoteLookup) *ForecastReport {
	report := &ForecastReport{ByType: map[models.ItemType]float64{}}
	buckets := map[costKey]*CostLine{}
	var order []costKey

	for _, number := range p.QuoteNumbers() {
		quote, err := lookup.QuoteByNumber(number)
		if err != nil || quote == nil {
			s.log.Warn("skipping unresolved linked quote",
				zap.String("project", p.Number),
				zap.String("quote", number),
				zap.Error(err))
			report.Skipped = append(report.Skipped, number)
			continue
		}
		report.TotalCost += quote.TotalHT()
		for i := range quote.Lines {
			line := &quote.Lines[i]
			if !line.IsWorkItem() {
				continue
			}
			lineQty := sanitize(line.Quantity)
			for j := range line.Components {
				comp := &line.Components[j]
				key := costKey{ItemID: comp.CatalogItemID, Type: comp.Type}
				row, ok := buckets[key]
				if !ok {
					row = &CostLine{CatalogItemID: comp.CatalogItemID, Type: comp.Type}
					buckets[key] = row
					order = append(order, key)
				}
				qty := sanitize(comp.Quantity) * lineQty
				row.Quantity += qty
				// Last-seen snapshot wins for display fields.
				row.Designation = comp.Designation
				row.Unit = comp.Unit
				row.UnitPrice = sanitize(comp.UnitPrice)
				if comp.Type == models.ItemTypeLabor && isHourUnit(comp.Unit) {
					report.LaborHours += qty
				}
			}
		}
	}

	report.Items = finalizeRows(buckets, order)
	for i := range report.Items {
		report.ByType[report.Items[i].Type] += report.Items[i].Cost
	}
	return report
}

// Actual aggregates the project's logged expenses into the same shape,
// keyed by (catalog item, expense type).
func (s *ReconciliationService) Actual(p *models.Project) *ActualReport {
	report := &ActualReport{ByType: map[models.ItemType]float64{}}
	buckets := map[costKey]*CostLine{}
	var order []costKey

	for i := range p.Expenses {
		exp := &p.Expenses[i]
		var itemID uint
		if exp.CatalogItemID != nil {
			itemID = *exp.CatalogItemID
		}
		key := costKey{ItemID: itemID, Type: exp.Type}
		row, ok := buckets[key]
		if !ok {
			row = &CostLine{CatalogItemID: itemID, Type: exp.Type}
			buckets[key] = row
			order = append(order, key)
		}
		qty := sanitize(exp.Quantity)
		row.Quantity += qty
		row.Designation = exp.Designation
		row.UnitPrice = sanitize(exp.UnitPrice)
		row.Cost += exp.Amount()
		report.TotalCost += exp.Amount()
		if exp.Type == models.ItemTypeLabor {
			report.LaborHours += qty
		}
	}

	// Actual rows accumulate Cost directly (expenses at possibly varying unit
	// prices); skip the quantity × last-price recomputation.
	rows := make([]CostLine, 0, len(order))
	for _, key := range order {
		rows = append(rows, *buckets[key])
	}
	sortRows(rows)
	report.Items = rows
	for i := range rows {
		report.ByType[rows[i].Type] += rows[i].Cost
	}
	return report
}

// Variance computes actual − forecast per item-type bucket and in total.
// A zero forecast yields a zero percentage (never NaN), while the absolute
// variance still reports the difference.
func (s *ReconciliationService) Variance(p *models.Project, lookup QuoteLookup) *VarianceReport {
	forecast := s.Forecast(p, lookup)
	actual := s.Actual(p)

	report := &VarianceReport{ByType: map[models.ItemType]VarianceLine{}}
	for _, t := range []models.ItemType{models.ItemTypeMaterial, models.ItemTypeSupply, models.ItemTypeLabor, models.ItemTypeConsumable} {
		f := forecast.ByType[t]
		a := actual.ByType[t]
		if f == 0 && a == 0 {
			continue
		}
		report.ByType[t] = varianceLine(f, a)
	}
	report.Total = varianceLine(forecast.TotalCost, actual.TotalCost)
	return report
}

func varianceLine(forecast, actual float64) VarianceLine {
	line := VarianceLine{Forecast: forecast, Actual: actual, Variance: actual - forecast}
	if forecast != 0 {
		line.VariancePct = line.Variance / forecast * 100
	}
	return line
}

// finalizeRows prices forecast rows (quantity × last-seen unit price) and
// returns them in stable order.
func finalizeRows(buckets map[costKey]*CostLine, order []costKey) []CostLine {
	rows := make([]CostLine, 0, len(order))
	for _, key := range order {
		row := *buckets[key]
		row.Cost = row.Quantity * row.UnitPrice
		rows = append(rows, row)
	}
	sortRows(rows)
	return rows
}

func sortRows(rows []CostLine) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Type != rows[j].Type {
			return rows[i].Type < rows[j].Type
		}
		return rows[i].CatalogItemID < rows[j].CatalogItemID
	})
}

// isHourUnit recognizes the hour units used by the catalog (h, heure, hour).
func isHourUnit(unit string) bool {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "h", "heure", "heures", "hour", "hours":
		return true
	}
	return false
}

// sanitize maps negative and NaN numeric inputs to zero, mirroring the model
// layer's defensive stance for aggregation.
func sanitize(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	return v
}
