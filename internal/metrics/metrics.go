// Package metrics provides Prometheus metrics for share operations.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Transfer directions.
const (
	DirectionUpload   = "upload"
	DirectionDownload = "download"
)

// Collector groups the gateway metrics on a private registry. A nil
// *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	operationsTotal   *prometheus.CounterVec
	transferBytes     *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
}

// New creates a collector with its own registry.
func New() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		operationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sharegate_operations_total",
				Help: "Total number of share operations",
			},
			[]string{"op", "status"},
		),
		transferBytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sharegate_transfer_bytes_total",
				Help: "Total bytes moved between local files and the share",
			},
			[]string{"direction"},
		),
		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sharegate_operation_duration_seconds",
				Help:    "Share operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
	}
}

// Registry returns the registry holding the collector's metrics.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// ObserveOperation records the outcome and duration of one operation.
func (c *Collector) ObserveOperation(op string, err error, d time.Duration) {
	if c == nil {
		return
	}

	status := "ok"
	if err != nil {
		status = "error"
	}
	c.operationsTotal.WithLabelValues(op, status).Inc()
	c.operationDuration.WithLabelValues(op).Observe(d.Seconds())
}

// AddBytes counts transferred bytes.
func (c *Collector) AddBytes(direction string, n int64) {
	if c == nil || n <= 0 {
		return
	}
	c.transferBytes.WithLabelValues(direction).Add(float64(n))
}

// WriteTextfile writes the metrics in the node_exporter textfile format.
func (c *Collector) WriteTextfile(path string) error {
	if c == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
