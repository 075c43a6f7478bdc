package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.PackageExecuted("output")
	m.PackageExecuted("output")
	m.PackageExecuted("buffer")
	m.QueueDepth("cpu", 7)
	m.TaskDone("cpu", time.Millisecond, nil)
	m.TaskDone("gpu", time.Millisecond, errors.New("boom"))
	m.TierDone("high", 20*time.Millisecond)
	m.EvaluationDone(nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PackagesExecuted.WithLabelValues("output")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PackagesExecuted.WithLabelValues("buffer")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.QueueDepthGauge.WithLabelValues("cpu")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TileErrors.WithLabelValues("gpu")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Evaluations.WithLabelValues("success")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "gridcomp_tier_duration_seconds")
	assert.Contains(t, names, "gridcomp_tile_duration_seconds")
}

func TestNewTwiceOnSeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
