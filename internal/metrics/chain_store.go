package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	chainStoreOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "stakecore",
		Subsystem: "chain_store",
		Name:      "operations_total",
		Help:      "Count of chain store operations.",
	}, []string{"operation", "network", "status"})

	chainStoreOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "stakecore",
		Subsystem: "chain_store",
		Name:      "operation_duration_seconds",
		Help:      "Duration of chain store operations.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
	}, []string{"operation", "network", "status"})
)

// ChainStore records chain store operations for one network.
type ChainStore struct {
	network string
}

// NewChainStore constructs a ChainStore recorder.
func NewChainStore(network string) *ChainStore {
	if network == "" {
		network = "unknown"
	}
	return &ChainStore{network: network}
}

// Observe records the outcome and duration of operation.
func (m ChainStore) Observe(operation string, err error, started time.Time) {
	s := status(err)
	chainStoreOperationsTotal.WithLabelValues(operation, m.network, s).Inc()
	chainStoreOperationDuration.WithLabelValues(operation, m.network, s).Observe(time.Since(started).Seconds())
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
