package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Go-routine-4595/sensor-watch/model"
)

// PromObs implements model.IMetrics on top of Prometheus collectors.
type PromObs struct {
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
}

func NewPromObs(reg prometheus.Registerer) *PromObs {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
	}

	p := &PromObs{
		counters: map[string]prometheus.Counter{
			model.MetricRecordsIngested:        counter(model.MetricRecordsIngested, "Records decoded and committed."),
			model.MetricDecodeErrors:           counter(model.MetricDecodeErrors, "Frames dropped because they did not decode."),
			model.MetricFrameErrors:            counter(model.MetricFrameErrors, "Frames dropped or reads failed at the transport."),
			model.MetricUntimedRecords:         counter(model.MetricUntimedRecords, "Records without a usable timestamp."),
			model.MetricUnconfiguredRecords:    counter(model.MetricUnconfiguredRecords, "Records for sensors without configured bounds."),
			model.MetricAlarmsTriggered:        counter(model.MetricAlarmsTriggered, "Alarm transitions raised."),
			model.MetricNotificationsDelivered: counter(model.MetricNotificationsDelivered, "Alarm notifications accepted by a sink."),
			model.MetricNotificationsFailed:    counter(model.MetricNotificationsFailed, "Alarm notifications a sink failed to accept."),
			model.MetricNotificationsDropped:   counter(model.MetricNotificationsDropped, "Alarm notifications dropped on a full queue."),
		},
		gauges: map[string]prometheus.Gauge{
			model.MetricSystemFault:       gauge(model.MetricSystemFault, "1 when the aggregate system status is FAULT."),
			model.MetricNotificationQueue: gauge(model.MetricNotificationQueue, "Notifications waiting for a worker."),
		},
	}

	for _, c := range p.counters {
		reg.MustRegister(c)
	}
	for _, g := range p.gauges {
		reg.MustRegister(g)
	}
	return p
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

var _ model.IMetrics = (*PromObs)(nil)
