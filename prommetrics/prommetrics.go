// Package prommetrics exports adaptation metrics to Prometheus.
//
//	reg := prometheus.NewRegistry()
//	c, err := prommetrics.New(reg)
//	a, err := meshadapt.New(m, t, meshadapt.WithMetricsCollector(c))
package prommetrics

import (
	"errors"
	"time"

	"github.com/hupe1980/meshadapt"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "meshadapt"

var _ meshadapt.MetricsCollector = (*Collector)(nil)

// Collector implements meshadapt.MetricsCollector with Prometheus vectors.
type Collector struct {
	opLatency  *prometheus.HistogramVec
	exchanges  *prometheus.CounterVec
	records    *prometheus.CounterVec
	bytes      *prometheus.CounterVec
	duplicates *prometheus.CounterVec
	renumbered *prometheus.CounterVec
}

// New creates a Collector and registers it with reg. A nil reg registers
// with the default registerer.
func New(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collector{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of collective adaptation operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "status"}),
		exchanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "exchange",
			Name:      "rounds_total",
			Help:      "Exchange rounds completed.",
		}, []string{"kind"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "exchange",
			Name:      "records_total",
			Help:      "Records packed or unpacked in exchange rounds.",
		}, []string{"kind", "direction"}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "exchange",
			Name:      "sent_bytes_total",
			Help:      "Payload bytes sent in exchange rounds.",
		}, []string{"kind"}),
		duplicates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_removed_total",
			Help:      "Co-located duplicates removed.",
		}, []string{"kind"}),
		renumbered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renumbered_total",
			Help:      "Entities given a location-derived global id.",
		}, []string{"kind"}),
	}

	var err error
	if c.opLatency, err = register(reg, c.opLatency); err != nil {
		return nil, err
	}
	for _, vec := range []**prometheus.CounterVec{&c.exchanges, &c.records, &c.bytes, &c.duplicates, &c.renumbered} {
		if *vec, err = register(reg, *vec); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// register registers col, or returns the collector already registered under
// the same descriptor.
func register[T prometheus.Collector](reg prometheus.Registerer, col T) (T, error) {
	err := reg.Register(col)
	if err == nil {
		return col, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			return existing, nil
		}
	}
	return col, err
}

// RecordOperation implements meshadapt.MetricsCollector.
func (c *Collector) RecordOperation(op string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	c.opLatency.WithLabelValues(op, status).Observe(duration.Seconds())
}

// RecordExchange implements meshadapt.MetricsCollector.
func (c *Collector) RecordExchange(kind string, sent, received, bytes int) {
	c.exchanges.WithLabelValues(kind).Inc()
	c.records.WithLabelValues(kind, "sent").Add(float64(sent))
	c.records.WithLabelValues(kind, "received").Add(float64(received))
	c.bytes.WithLabelValues(kind).Add(float64(bytes))
}

// RecordDuplicates implements meshadapt.MetricsCollector.
func (c *Collector) RecordDuplicates(elements, nodes int) {
	c.duplicates.WithLabelValues("elements").Add(float64(elements))
	c.duplicates.WithLabelValues("nodes").Add(float64(nodes))
}

// RecordRenumber implements meshadapt.MetricsCollector.
func (c *Collector) RecordRenumber(kind string, count int) {
	c.renumbered.WithLabelValues(kind).Add(float64(count))
}
