package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/Go-routine-4595/sensor-watch/model"
)

func TestPromObsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs := NewPromObs(reg)

	obs.IncCounter(model.MetricRecordsIngested, 5)
	assert.Equal(t, 5.0, testutil.ToFloat64(obs.counters[model.MetricRecordsIngested]))

	obs.IncCounter(model.MetricNotificationsDropped, 2)
	assert.Equal(t, 2.0, testutil.ToFloat64(obs.counters[model.MetricNotificationsDropped]))

	obs.SetGauge(model.MetricSystemFault, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(obs.gauges[model.MetricSystemFault]))

	// unknown names are ignored
	obs.IncCounter("nope", 1)
	obs.SetGauge("nope", 1)

	families, err := reg.Gather()
	assert.NoError(t, err)
	assert.Len(t, families, len(obs.counters)+len(obs.gauges))
}
