package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_ObserveTask(t *testing.T) {
	m := New()

	m.ObserveTask("AddTask", "sync", time.Millisecond, nil)
	m.ObserveTask("AddTask", "sync", time.Millisecond, nil)
	m.ObserveTask("buildTask", "async", time.Millisecond, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.TasksTotal.WithLabelValues("AddTask", "sync", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TasksTotal.WithLabelValues("buildTask", "async", "error")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.TaskDurationSeconds))
}

func TestMetrics_MakePhase(t *testing.T) {
	m := New()

	m.ModuleOutcome(OutcomeAdded)
	m.ModuleOutcome(OutcomeAdded)
	m.ModuleOutcome(OutcomeDuplicate)
	m.ModuleOutcome(OutcomeSelf)
	m.EdgesResolved(3)
	m.EdgesResolved(0)
	m.CacheLookup(true)
	m.CacheLookup(false)
	m.CacheLookup(false)
	m.Generation("completed", 5)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ModulesTotal.WithLabelValues(OutcomeAdded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ModulesTotal.WithLabelValues(OutcomeDuplicate)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ModulesTotal.WithLabelValues(OutcomeSelf)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.EdgesResolvedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookupsTotal.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheLookupsTotal.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GenerationsTotal.WithLabelValues("completed")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.GraphModules))
}

func TestMetrics_IsolatedRegistries(t *testing.T) {
	a, b := New(), New()
	a.EdgesResolved(1)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.EdgesResolvedTotal))
	assert.NotSame(t, a.Registry(), b.Registry())
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveTask("x", "sync", 0, nil)
		m.ModuleOutcome(OutcomeAdded)
		m.EdgesResolved(1)
		m.CacheLookup(true)
		m.Generation("failed", 0)
	})
	assert.Nil(t, m.Registry())
	assert.Error(t, m.WriteToTextfile(filepath.Join(t.TempDir(), "m.prom")))
}

func TestMetrics_WriteToTextfile(t *testing.T) {
	m := New()
	m.ModuleOutcome(OutcomeAdded)

	path := filepath.Join(t.TempDir(), "leapbundle.prom")
	require.NoError(t, m.WriteToTextfile(path))

	data, err := os.ReadFile(path) //nolint:gosec // G304: test temp file
	require.NoError(t, err)
	assert.Contains(t, string(data), `leapbundle_make_modules_total{outcome="added"} 1`)
}
