package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	validatorOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stakecore",
		Subsystem: "validator",
		Name:      "operations_total",
		Help:      "Count of block validation, connect and audit runs.",
	}, []string{"operation", "network", "status"})

	validatorOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "stakecore",
		Subsystem: "validator",
		Name:      "operation_duration_seconds",
		Help:      "Duration of block validation, connect and audit runs.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "network", "status"})
)

// Validator records validator and auditor operations for one network.
type Validator struct {
	network string
}

// NewValidator constructs a Validator recorder.
func NewValidator(network string) *Validator {
	if network == "" {
		network = "unknown"
	}
	return &Validator{network: network}
}

// Observe records the outcome and duration of operation.
func (m Validator) Observe(operation string, err error, started time.Time) {
	s := status(err)
	validatorOperationsTotal.WithLabelValues(operation, m.network, s).Inc()
	validatorOperationDuration.WithLabelValues(operation, m.network, s).Observe(time.Since(started).Seconds())
}
