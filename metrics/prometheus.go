package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// PrometheusCollector records orchestrator events as Prometheus metrics.
type PrometheusCollector struct {
	reg *prometheus.Registry

	rowsProcessed *prometheus.CounterVec   // masquerade_rows_processed_total
	rowsFailed    *prometheus.CounterVec   // masquerade_rows_failed_total
	ruleSets      *prometheus.CounterVec   // masquerade_rule_sets_total
	duration      *prometheus.HistogramVec // masquerade_rule_set_duration_seconds
}

// NewPrometheusCollector registers the collector's metrics on a fresh registry.
func NewPrometheusCollector() (*PrometheusCollector, error) {
	reg := prometheus.NewRegistry()

	rowsProcessed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "masquerade_rows_processed_total",
			Help: "Rows fetched and run through generators, per table.",
		},
		[]string{"table"},
	)
	rowsFailed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "masquerade_rows_failed_total",
			Help: "Rows with at least one failed column or write, per table and failure class.",
		},
		[]string{"table", "class"},
	)
	ruleSets := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "masquerade_rule_sets_total",
			Help: "Finished rule sets, per table and status.",
		},
		[]string{"table", "status"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "masquerade_rule_set_duration_seconds",
			Help:    "Wall time of rule sets in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		},
		[]string{"table", "status"},
	)

	for name, c := range map[string]prometheus.Collector{
		"rows processed counter": rowsProcessed,
		"rows failed counter":    rowsFailed,
		"rule sets counter":      ruleSets,
		"duration histogram":     duration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register %s: %w", name, err)
		}
	}

	return &PrometheusCollector{
		reg:           reg,
		rowsProcessed: rowsProcessed,
		rowsFailed:    rowsFailed,
		ruleSets:      ruleSets,
		duration:      duration,
	}, nil
}

// Registry exposes the registry for scraping.
func (p *PrometheusCollector) Registry() *prometheus.Registry {
	return p.reg
}

func (p *PrometheusCollector) RowProcessed(table string) {
	p.rowsProcessed.WithLabelValues(table).Inc()
}

func (p *PrometheusCollector) RowFailed(table, class string) {
	p.rowsFailed.WithLabelValues(table, class).Inc()
}

func (p *PrometheusCollector) RuleSetFinished(s RuleSetSummary) {
	status := string(s.Status)
	p.ruleSets.WithLabelValues(s.Table, status).Inc()
	p.duration.WithLabelValues(s.Table, status).Observe(s.Duration.Seconds())
}

// Push sends the current metrics to a Pushgateway under job.
func (p *PrometheusCollector) Push(ctx context.Context, gatewayURL, job string) error {
	if gatewayURL == "" {
		return fmt.Errorf("pushgateway URL is required")
	}
	if job == "" {
		job = "masquerade"
	}
	return push.New(gatewayURL, job).Gatherer(p.reg).PushContext(ctx)
}
