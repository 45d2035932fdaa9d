// Package metrics instruments the make phase with Prometheus collectors.
//
// Each Metrics value owns its registry, so several engines (or tests) can
// run in one process. All methods are safe on a nil *Metrics.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "leapbundle"

// Module outcomes of the add step.
const (
	OutcomeAdded     = "added"
	OutcomeDuplicate = "duplicate"
	OutcomeSelf      = "self"
)

// Metrics holds the collectors for one engine.
type Metrics struct {
	registry *prometheus.Registry

	// TasksTotal counts finished tasks. Labels: task, type (sync, async), status (ok, error)
	TasksTotal *prometheus.CounterVec
	// TaskDurationSeconds measures task run time. Labels: task, type
	TaskDurationSeconds *prometheus.HistogramVec
	// ModulesTotal counts add step outcomes. Labels: outcome
	ModulesTotal *prometheus.CounterVec
	// EdgesResolvedTotal counts dependencies resolved to a node
	EdgesResolvedTotal prometheus.Counter
	// CacheLookupsTotal counts artifact cache lookups. Labels: result (hit, miss)
	CacheLookupsTotal *prometheus.CounterVec
	// GenerationsTotal counts make generations. Labels: status
	GenerationsTotal *prometheus.CounterVec
	// GraphModules is the node count of the authoritative graph
	GraphModules prometheus.Gauge
}

// New creates metrics registered on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		TasksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "taskloop",
			Name:      "tasks_total",
			Help:      "Total number of tasks run by task, type and status",
		}, []string{"task", "type", "status"}),
		TaskDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "taskloop",
			Name:      "task_duration_seconds",
			Help:      "Task run time in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"task", "type"}),
		ModulesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "make",
			Name:      "modules_total",
			Help:      "Modules handled by the add step by outcome",
		}, []string{"outcome"}),
		EdgesResolvedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "make",
			Name:      "edges_resolved_total",
			Help:      "Dependencies resolved to a module graph node",
		}),
		CacheLookupsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Build artifact cache lookups by result",
		}, []string{"result"}),
		GenerationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "make",
			Name:      "generations_total",
			Help:      "Make generations by status",
		}, []string{"status"}),
		GraphModules: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "make",
			Name:      "graph_modules",
			Help:      "Number of modules in the module graph",
		}),
	}
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveTask records one finished task.
func (m *Metrics) ObserveTask(task, typ string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.TasksTotal.WithLabelValues(task, typ, status).Inc()
	m.TaskDurationSeconds.WithLabelValues(task, typ).Observe(elapsed.Seconds())
}

// ModuleOutcome records an add step outcome.
func (m *Metrics) ModuleOutcome(outcome string) {
	if m == nil {
		return
	}
	m.ModulesTotal.WithLabelValues(outcome).Inc()
}

// EdgesResolved adds n resolved edges.
func (m *Metrics) EdgesResolved(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.EdgesResolvedTotal.Add(float64(n))
}

// CacheLookup records a cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookupsTotal.WithLabelValues(result).Inc()
}

// Generation records a finished generation and the resulting graph size.
func (m *Metrics) Generation(status string, modules int) {
	if m == nil {
		return
	}
	m.GenerationsTotal.WithLabelValues(status).Inc()
	m.GraphModules.Set(float64(modules))
}

// WriteToTextfile writes every metric in the text exposition format, for the
// node exporter textfile collector or for inspection.
func (m *Metrics) WriteToTextfile(path string) error {
	if m == nil {
		return fmt.Errorf("metrics are not enabled")
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
