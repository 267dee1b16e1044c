// Package metrics exposes Prometheus counters for the sync controller.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sensorwatch"

// Fetch modes.
const (
	ModeForeground = "foreground"
	ModeSilent     = "silent"
)

// Outcomes.
const (
	ResultOK    = "ok"
	ResultError = "error"
	ResultStale = "stale"
	ResultNew   = "new"
	ResultNone  = "none"
)

// Metrics groups the controller's collectors.
type Metrics struct {
	// FullFetches counts full fetches by sensor, mode and result.
	FullFetches *prometheus.CounterVec
	// DataChecks counts check-new-data polls by sensor and result.
	DataChecks *prometheus.CounterVec
	// DisplayRecords is the current display window size per sensor.
	DisplayRecords *prometheus.GaugeVec
}

// New builds the collectors and registers them with reg. A nil reg skips
// registration, which keeps tests independent of the global registry.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		FullFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "full_fetches_total",
				Help:      "Total number of full record fetches",
			},
			[]string{"sensor", "mode", "result"},
		),
		DataChecks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "data_checks_total",
				Help:      "Total number of check-new-data polls",
			},
			[]string{"sensor", "result"},
		),
		DisplayRecords: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "display_records",
				Help:      "Records currently in the display window",
			},
			[]string{"sensor"},
		),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.FullFetches, m.DataChecks, m.DisplayRecords} {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return nil, err
		}
	}
	return m, nil
}

// Fetch records one full fetch outcome. Safe on a nil receiver.
func (m *Metrics) Fetch(sensor, mode, result string) {
	if m == nil {
		return
	}
	m.FullFetches.WithLabelValues(sensor, mode, result).Inc()
}

// Check records one poll outcome. Safe on a nil receiver.
func (m *Metrics) Check(sensor, result string) {
	if m == nil {
		return
	}
	m.DataChecks.WithLabelValues(sensor, result).Inc()
}

// Display sets the display window size. Safe on a nil receiver.
func (m *Metrics) Display(sensor string, n int) {
	if m == nil {
		return
	}
	m.DisplayRecords.WithLabelValues(sensor).Set(float64(n))
}

// Handler serves the registry in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
