// Package notify delivers alarm events to external sinks without blocking
// the ingestion path.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Go-routine-4595/sensor-watch/model"
)

const (
	DefaultWorkers   = 4
	DefaultQueueSize = 512
	DefaultTimeout   = 5 * time.Second
)

// Sink is a named delivery target.
type Sink struct {
	Name string
	Sink model.ISink
}

type job struct {
	sink  Sink
	event model.AlarmEvent
}

type Option func(*Dispatcher)

func WithWorkers(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queueSize = n
		}
	}
}

func WithTimeout(t time.Duration) Option {
	return func(d *Dispatcher) {
		if t > 0 {
			d.timeout = t
		}
	}
}

func WithMetrics(m model.IMetrics) Option {
	return func(d *Dispatcher) {
		if m != nil {
			d.metrics = m
		}
	}
}

// Dispatcher is a fixed pool of workers reading a bounded queue. Every
// delivery is attempted once; failures are logged and dropped.
type Dispatcher struct {
	sinks     []Sink
	workers   int
	queueSize int
	timeout   time.Duration
	queue     chan job
	logger    zerolog.Logger
	metrics   model.IMetrics
}

func NewDispatcher(logger zerolog.Logger, sinks []Sink, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sinks:     sinks,
		workers:   DefaultWorkers,
		queueSize: DefaultQueueSize,
		timeout:   DefaultTimeout,
		logger:    logger,
		metrics:   model.NopMetrics{},
	}
	for _, opt := range opts {
		opt(d)
	}
	d.queue = make(chan job, d.queueSize)
	return d
}

// Dispatch queues event for every sink and returns immediately. It returns
// false if at least one delivery was dropped because the queue was full.
func (d *Dispatcher) Dispatch(event model.AlarmEvent) bool {
	queued := true
	for _, s := range d.sinks {
		select {
		case d.queue <- job{sink: s, event: event}:
		default:
			queued = false
			d.metrics.IncCounter(model.MetricNotificationsDropped, 1)
			d.logger.Error().
				Str("sink", s.Name).
				Str("sensor", event.Sensor).
				Str("event_id", event.ID.String()).
				Msg("notification queue full, event dropped")
		}
	}
	d.metrics.SetGauge(model.MetricNotificationQueue, float64(len(d.queue)))
	return queued
}

// Start launches the workers. They stop when ctx is cancelled; queued events
// left at that point are discarded.
func (d *Dispatcher) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(d.workers)
	for i := 0; i < d.workers; i++ {
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case j := <-d.queue:
					d.deliver(ctx, j)
				}
			}
		}()
	}
	d.logger.Info().Int("workers", d.workers).Int("sinks", len(d.sinks)).Msg("notification dispatcher started")
}

func (d *Dispatcher) deliver(ctx context.Context, j job) {
	var (
		err    error
		start  time.Time
		cctx   context.Context
		cancel context.CancelFunc
	)

	defer func() {
		if r := recover(); r != nil {
			d.metrics.IncCounter(model.MetricNotificationsFailed, 1)
			d.logger.Error().Str("sink", j.sink.Name).Str("panic", fmt.Sprint(r)).Msg("notification sink panicked")
		}
	}()

	cctx, cancel = context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start = time.Now()
	err = j.sink.Sink.SendAlarm(cctx, j.event)
	if err != nil {
		d.metrics.IncCounter(model.MetricNotificationsFailed, 1)
		d.logger.Error().Err(err).
			Str("sink", j.sink.Name).
			Str("sensor", j.event.Sensor).
			Str("event_id", j.event.ID.String()).
			Dur("elapsed", time.Since(start)).
			Msg("notification delivery failed")
		return
	}
	d.metrics.IncCounter(model.MetricNotificationsDelivered, 1)
	d.logger.Debug().
		Str("sink", j.sink.Name).
		Str("sensor", j.event.Sensor).
		Str("event_id", j.event.ID.String()).
		Dur("elapsed", time.Since(start)).
		Msg("notification delivered")
}
