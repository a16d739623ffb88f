// Package metrics records external tool invocations and pipeline outcomes
// in a Prometheus registry that can be dumped to a textfile on exit.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeError   = "error"
)

// Recorder owns a private registry so tests and the CLI never share state
type Recorder struct {
	registry *prometheus.Registry

	ToolInvocations  *prometheus.CounterVec
	ToolDuration     *prometheus.HistogramVec
	SeriesDiscovered *prometheus.CounterVec
	MeshExports      *prometheus.CounterVec
}

// NewRecorder creates and registers all collectors
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),

		ToolInvocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "medpipe_tool_invocations_total",
				Help: "External tool invocations by outcome",
			},
			[]string{"tool", "outcome"},
		),

		ToolDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "medpipe_tool_duration_seconds",
				Help:    "Wall time of external tool invocations",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 600, 1800},
			},
			[]string{"tool"},
		),

		SeriesDiscovered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "medpipe_series_discoveries_total",
				Help: "DICOM directory browses by result",
			},
			[]string{"result"},
		),

		MeshExports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "medpipe_mesh_exports_total",
				Help: "Mesh exports by outcome",
			},
			[]string{"outcome"},
		),
	}

	r.registry.MustRegister(r.ToolInvocations, r.ToolDuration, r.SeriesDiscovered, r.MeshExports)
	return r
}

// ObserveTool records one finished invocation
func (r *Recorder) ObserveTool(tool, outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.ToolInvocations.WithLabelValues(tool, outcome).Inc()
	r.ToolDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// ObserveDiscovery records a series discovery result ("found", "none", "error")
func (r *Recorder) ObserveDiscovery(result string) {
	if r == nil {
		return
	}
	r.SeriesDiscovered.WithLabelValues(result).Inc()
}

// ObserveMeshExport records a mesh export outcome
func (r *Recorder) ObserveMeshExport(outcome string) {
	if r == nil {
		return
	}
	r.MeshExports.WithLabelValues(outcome).Inc()
}

// Gatherer exposes the registry
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile writes the registry in the text exposition format,
// suitable for node_exporter's textfile collector
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
