package commerce

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the prometheus collectors for commerce operations.
type Metrics struct {
	// Operations counts commerce operations by name and outcome
	// (ok, rejected, not_found, error).
	Operations *prometheus.CounterVec
}

// NewMetrics creates and registers the commerce collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "telemart_commerce_operations_total",
				Help: "Commerce operations by name and outcome",
			},
			[]string{"op", "outcome"},
		),
	}
	reg.MustRegister(m.Operations)
	return m
}
