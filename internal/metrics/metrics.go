package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts requests by method and path pattern.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "erpbtp_http_requests_total",
		Help: "Total HTTP requests processed",
	}, []string{"method", "path"})

	// QuotesCreated counts new quotes.
	QuotesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "erpbtp_quotes_created_total",
		Help: "Total quotes created",
	})

	// ReportsGenerated counts reconciliation reports by kind
	// (forecast, actual, variance).
	ReportsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "erpbtp_reports_generated_total",
		Help: "Total reconciliation reports generated",
	}, []string{"kind"})
)
