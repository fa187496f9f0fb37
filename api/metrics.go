/*
metrics.go - Prometheus instrumentation

PURPOSE:
  Counts purchase outcomes and tracks sale inventory for operational
  dashboards. Exposed at /metrics in Prometheus text format.

METRICS:
  sale_engine_sales_configured_total     Sales configured since start
  sale_engine_purchases_completed_total  Committed purchase requests
  sale_engine_units_sold_total           Units delivered across receipts
  sale_engine_purchases_rejected_total   Rejections, labeled by reason
  sale_engine_active_sales               Currently active sales (gauge)

DESIGN:
  Each Metrics value owns a private registry instead of using the
  package-global default. Test servers can then be built side by side
  without duplicate-registration panics.

SEE ALSO:
  - handlers.go: Increments counters on purchase outcomes
  - server.go: Mounts the scrape endpoint
*/
package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/warp/sale-engine/engine"
)

// Metrics bundles the instrumentation for one engine instance.
type Metrics struct {
	registry *prometheus.Registry

	SalesConfigured    prometheus.Counter
	PurchasesCompleted prometheus.Counter
	UnitsSold          prometheus.Counter
	PurchasesRejected  *prometheus.CounterVec
}

// NewMetrics builds and registers the metric set. The active-sales
// gauge reads the engine directly at scrape time.
func NewMetrics(eng *engine.Engine) *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		SalesConfigured: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sale_engine_sales_configured_total",
			Help: "Number of sales configured since process start.",
		}),
		PurchasesCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sale_engine_purchases_completed_total",
			Help: "Number of purchase requests that committed.",
		}),
		UnitsSold: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sale_engine_units_sold_total",
			Help: "Total units delivered across all receipts.",
		}),
		PurchasesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sale_engine_purchases_rejected_total",
			Help: "Number of rejected purchase requests by reason.",
		}, []string{"reason"}),
	}

	activeSales := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "sale_engine_active_sales",
		Help: "Number of currently active sales.",
	}, func() float64 {
		return float64(len(eng.ActiveItems()))
	})

	reg.MustRegister(m.SalesConfigured, m.PurchasesCompleted, m.UnitsSold, m.PurchasesRejected, activeSales)
	return m
}

// ServeHTTP serves the scrape endpoint for this metric set.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
}
