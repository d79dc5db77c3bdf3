package status

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments report generation and the cache in front of it.
type Metrics struct {
	ReportsGenerated prometheus.Counter
	ClientEvalErrors prometheus.Counter
	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter
	ClientsByStatus  *prometheus.GaugeVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ReportsGenerated: factory.NewCounter(prometheus.CounterOpts{
			Name: "taxtrail_status_reports_generated_total",
			Help: "Number of status reports computed (cache misses included).",
		}),
		ClientEvalErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "taxtrail_status_client_eval_errors_total",
			Help: "Clients whose status could not be computed during a report.",
		}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "taxtrail_status_cache_hits_total",
			Help: "Status report cache hits.",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "taxtrail_status_cache_misses_total",
			Help: "Status report cache misses.",
		}),
		ClientsByStatus: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "taxtrail_clients_by_status",
			Help: "Clients per collection status, refreshed by the sweep worker.",
		}, []string{"status"}),
	}
}
