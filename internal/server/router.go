package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fvictoire59va/ERP-BTP-sub000/internal/handlers"
	"github.com/fvictoire59va/ERP-BTP-sub000/internal/httpx"
	"github.com/fvictoire59va/ERP-BTP-sub000/internal/metrics"
	"github.com/fvictoire59va/ERP-BTP-sub000/internal/services"
)

// Options tunes the optional surfaces of the router.
type Options struct {
	Metrics bool
}

// New constructs the root http.Handler with all routes and middlewares applied.
func New(db *gorm.DB, log *zap.Logger, opts Options) http.Handler {
	mux := http.NewServeMux()

	// --- Health endpoints ---
	//revive:disable:unused-parameter simple handlers intentionally ignore *http.Request
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		// Lightweight DB check (SELECT 1); detailed errors stay out of the body.
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if opts.Metrics {
		mux.Handle("/metrics", promhttp.Handler())
	}

	pricing := services.NewPricingService()
	lines := services.NewLineService(pricing)
	totals := services.NewTotalsService()
	recon := services.NewReconciliationService(log)

	// Catalog endpoints (read/write surface of the catalog collaborator)
	ch := handlers.NewCatalogHandler(db)
	mux.Handle("/catalog/items", getPost(ch.ListItems, ch.CreateItem))
	mux.Handle("/catalog/assemblies", getPost(ch.ListAssemblies, ch.CreateAssembly))

	// Quote endpoints
	qh := handlers.NewQuoteHandler(db, pricing, lines, totals)
	mux.Handle("/quotes", getPost(qh.Get, qh.Create))
	mux.HandleFunc("/quotes/totals", qh.TotalsReport)
	mux.HandleFunc("/quotes/lines", qh.AddLine)
	mux.HandleFunc("/quotes/lines/move", qh.MoveLine)
	mux.HandleFunc("/quotes/lines/duplicate", qh.DuplicateLine)
	mux.HandleFunc("/quotes/lines/remove", qh.RemoveLine)
	mux.HandleFunc("/quotes/lines/component", qh.UpdateComponent)
	mux.HandleFunc("/quotes/coefficient", qh.ApplyCoefficient)
	mux.HandleFunc("/quotes/status", qh.UpdateStatus)

	// Project endpoints
	ph := handlers.NewProjectHandler(db, recon)
	mux.Handle("/projects", getPost(ph.Get, ph.Create))
	mux.HandleFunc("/projects/quotes/attach", ph.AttachQuote)
	mux.HandleFunc("/projects/quotes/detach", ph.DetachQuote)
	mux.HandleFunc("/projects/expenses", ph.AddExpense)
	mux.HandleFunc("/projects/status", ph.UpdateStatus)
	mux.HandleFunc("/projects/forecast", ph.Forecast)
	mux.HandleFunc("/projects/actual", ph.Actual)
	mux.HandleFunc("/projects/variance", ph.Variance)

	// Root placeholder
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if _, werr := w.Write([]byte("ERP-BTP API")); werr != nil {
			_ = werr
		}
	})
	//revive:enable:unused-parameter

	return withRecover(withLogging(log, mux))
}

// getPost dispatches GET and POST to separate handlers, everything else to 405.
func getPost(get, post http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			get(w, r)
		case http.MethodPost:
			post(w, r)
		default:
			w.Header().Set("Allow", "GET,POST")
			httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
		}
	})
}

func withLogging(log *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		metrics.HTTPRequests.WithLabelValues(r.Method, r.URL.Path).Inc()
		log.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)))
	})
}

func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
