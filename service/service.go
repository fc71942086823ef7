// Package service wires the decoder, the rolling series buffer and the alarm
// evaluator into the per record ingestion step.
package service

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Go-routine-4595/sensor-watch/model"
	"github.com/Go-routine-4595/sensor-watch/service/alarm"
	"github.com/Go-routine-4595/sensor-watch/service/decode"
	"github.com/Go-routine-4595/sensor-watch/service/series"
)

// INotifier queues an alarm event for delivery without blocking.
const DefaultMaxUnconfigured = 64

type INotifier interface {
	Dispatch(event model.AlarmEvent) bool
}

type Option func(*Service)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

func WithMetrics(m model.IMetrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithMaxUnconfigured caps how many distinct unconfigured sensor names are
// tracked and buffered. Records for names beyond the cap are counted and
// evaluated for nothing else.
func WithMaxUnconfigured(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxUnconfigured = n
		}
	}
}

func WithObserver(o model.IObserver) Option {
	return func(s *Service) {
		s.observers = append(s.observers, o)
	}
}

// Service is driven by a single ingestion goroutine and read concurrently by
// the query surface.
type Service struct {
	buffer    *series.Buffer
	evaluator *alarm.Evaluator
	notifier  INotifier
	observers []model.IObserver
	metrics   model.IMetrics
	logger    zerolog.Logger

	mu              sync.RWMutex
	unconfigured    map[string]model.SensorState
	maxUnconfigured int
	capWarned       bool
}

func NewService(buffer *series.Buffer, evaluator *alarm.Evaluator, notifier INotifier, opts ...Option) *Service {
	s := &Service{
		buffer:          buffer,
		evaluator:       evaluator,
		notifier:        notifier,
		metrics:         model.NopMetrics{},
		logger:          zerolog.Nop(),
		unconfigured:    make(map[string]model.SensorState),
		maxUnconfigured: DefaultMaxUnconfigured,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Process decodes one frame and commits it. A frame that does not decode is
// logged, counted and returned as an error; no state is touched.
func (s *Service) Process(line string) error {
	rec, err := decode.Decode(line)
	if err != nil {
		s.metrics.IncCounter(model.MetricDecodeErrors, 1)
		s.logger.Warn().Err(err).Str("frame", line).Msg("dropping frame")
		return err
	}
	s.Commit(rec)
	return nil
}

// Commit applies a decoded record to the buffer and the evaluator, notifies
// observers, then hands any alarm event to the notifier. The notifier is
// called after every state lock has been released.
func (s *Service) Commit(rec model.Record) {
	var (
		res        alarm.Result
		err        error
		configured bool
		buffered   = true
	)

	s.metrics.IncCounter(model.MetricRecordsIngested, 1)

	configured = s.evaluator.Configured(rec.Name)
	if !configured {
		s.metrics.IncCounter(model.MetricUnconfiguredRecords, 1)
		buffered = s.trackUnconfigured(rec)
	}

	if buffered && !s.buffer.Insert(rec.Name, rec.Timestamp, rec.Value) {
		s.metrics.IncCounter(model.MetricUntimedRecords, 1)
		s.logger.Debug().Str("sensor", rec.Name).Msg("untimed record kept out of the rolling window")
	}

	if configured {
		res, err = s.evaluator.Evaluate(rec)
		if err != nil {
			s.logger.Error().Err(err).Str("sensor", rec.Name).Msg("alarm evaluation failed")
		}
	}

	if s.evaluator.Status() == model.SystemFault {
		s.metrics.SetGauge(model.MetricSystemFault, 1)
	} else {
		s.metrics.SetGauge(model.MetricSystemFault, 0)
	}

	for _, o := range s.observers {
		o.Observe(rec)
	}

	if res.Event != nil {
		s.metrics.IncCounter(model.MetricAlarmsTriggered, 1)
		s.notifier.Dispatch(*res.Event)
	}
}

// trackUnconfigured keeps the last reading of a sensor without bounds and
// warns the first time the sensor shows up. It returns false once the cap of
// tracked names is reached and rec names a new sensor.
func (s *Service) trackUnconfigured(rec model.Record) bool {
	var (
		known    bool
		full     bool
		warnFull bool
	)

	s.mu.Lock()
	_, known = s.unconfigured[rec.Name]
	full = !known && len(s.unconfigured) >= s.maxUnconfigured
	if full {
		warnFull = !s.capWarned
		s.capWarned = true
	} else {
		s.unconfigured[rec.Name] = model.SensorState{
			Name:      rec.Name,
			Seen:      true,
			Value:     rec.Value,
			Timestamp: rec.Timestamp,
			Status:    rec.Status,
		}
	}
	s.mu.Unlock()

	switch {
	case warnFull:
		s.logger.Warn().
			Str("sensor", rec.Name).
			Int("limit", s.maxUnconfigured).
			Msg("too many unconfigured sensors, new names are no longer tracked")
	case !full && !known:
		s.logger.Warn().Str("sensor", rec.Name).Msg("unconfigured sensor, alarm evaluation skipped")
	}
	return !full
}

// Sensors returns configured sensors in registry order followed by
// unconfigured ones sorted by name.
func (s *Service) Sensors() []model.SensorState {
	var (
		out   []model.SensorState
		extra []model.SensorState
	)

	out = s.evaluator.States()

	s.mu.RLock()
	for _, st := range s.unconfigured {
		extra = append(extra, st)
	}
	s.mu.RUnlock()

	sort.Slice(extra, func(i, j int) bool { return extra[i].Name < extra[j].Name })
	return append(out, extra...)
}

func (s *Service) Sensor(name string) (model.SensorState, bool) {
	if st, ok := s.evaluator.State(name); ok {
		return st, true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.unconfigured[name]
	return st, ok
}

func (s *Service) Series(name string) []model.Point {
	return s.buffer.Snapshot(name)
}

func (s *Service) Status() model.SystemStatus {
	return s.evaluator.Status()
}

func (s *Service) History() []string {
	return s.evaluator.History()
}
