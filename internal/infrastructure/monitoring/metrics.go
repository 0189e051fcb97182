package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type DBMetrics struct {
	QueryDuration *prometheus.HistogramVec
}

type BusinessMetrics struct {
	PaymentsTotal    *prometheus.CounterVec
	SettlementsTotal *prometheus.CounterVec
	PurchasesTotal   prometheus.Counter
	ImportsTotal     *prometheus.CounterVec
}

var (
	DB = DBMetrics{
		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fiado_ledger_db_query_duration_seconds",
				Help:    "Histogram of database query latencies.",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"query_name", "status"},
		),
	}

	Business = BusinessMetrics{
		PaymentsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fiado_ledger_payments_total",
				Help: "Total number of payment attempts by outcome.",
			},
			[]string{"status"},
		),
		SettlementsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fiado_ledger_settlements_total",
				Help: "Total number of debt settlements by trigger.",
			},
			[]string{"reason"},
		),
		PurchasesTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "fiado_ledger_purchases_total",
				Help: "Total number of purchases added to the ledger.",
			},
		),
		ImportsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fiado_ledger_import_records_total",
				Help: "Total number of processed import records by outcome.",
			},
			[]string{"status"},
		),
	}
)

func RecordDBQuery(queryName, status string, duration time.Duration) {
	DB.QueryDuration.WithLabelValues(queryName, status).Observe(duration.Seconds())
}

func RecordPayment(status string) {
	Business.PaymentsTotal.WithLabelValues(status).Inc()
}

func RecordSettlement(reason string) {
	Business.SettlementsTotal.WithLabelValues(reason).Inc()
}

func RecordPurchaseAdded() {
	Business.PurchasesTotal.Inc()
}

func RecordImportRecord(status string) {
	Business.ImportsTotal.WithLabelValues(status).Inc()
}
