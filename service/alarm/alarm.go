// Package alarm evaluates records against configured bounds and tracks the
// edge triggered alarm state of every configured sensor.
package alarm

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Go-routine-4595/sensor-watch/model"
)

var ErrUnconfiguredSensor = errors.New("unconfigured sensor")

const logTimeFormat = "2006-01-02 15:04:05"

// Result is the outcome of one evaluation. Event is set only when the record
// raised the alarm flag of its sensor.
type Result struct {
	State model.AlarmState
	Event *model.AlarmEvent
}

type entry struct {
	mu     sync.RWMutex
	bounds model.Bounds
	state  model.SensorState
}

type Option func(*Evaluator)

func WithLogger(l zerolog.Logger) Option {
	return func(e *Evaluator) {
		e.logger = l
	}
}

func WithHistorySize(n int) Option {
	return func(e *Evaluator) {
		e.history = NewHistory(n)
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) {
		e.now = now
	}
}

// Evaluator holds one state machine per configured sensor. Each sensor is
// guarded by its own lock; nothing here blocks on I/O.
type Evaluator struct {
	registry *model.Registry
	entries  []*entry
	history  *History
	logger   zerolog.Logger
	now      func() time.Time
}

func NewEvaluator(reg *model.Registry, opts ...Option) *Evaluator {
	e := &Evaluator{
		registry: reg,
		entries:  make([]*entry, reg.Len()),
		history:  NewHistory(DefaultHistorySize),
		logger:   zerolog.Nop(),
		now:      time.Now,
	}
	for i := range e.entries {
		b, _ := reg.Bounds(model.SensorID(i))
		e.entries[i] = &entry{
			bounds: b,
			state: model.SensorState{
				Name:       reg.Name(model.SensorID(i)),
				Configured: true,
			},
		}
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Classify applies the transition rules in order, first match wins. The second
// result is false when no rule matched and the state must stay as it is.
func Classify(b model.Bounds, rec model.Record) (model.AlarmKind, bool) {
	switch {
	case b.Contains(rec.Value) && rec.Status == model.StatusOK:
		return model.AlarmNone, true
	case rec.Value < b.Low:
		return model.AlarmLow, true
	case rec.Value > b.High:
		return model.AlarmHigh, true
	case rec.Status == model.StatusFaulty:
		return model.AlarmFaulty, true
	}
	return model.AlarmNone, false
}

// Configured reports whether name has bounds in the registry.
func (e *Evaluator) Configured(name string) bool {
	return e.registry.Resolve(name) != model.UnknownSensor
}

// Evaluate advances the state machine of rec's sensor. A record for a sensor
// outside the registry returns ErrUnconfiguredSensor and changes nothing.
func (e *Evaluator) Evaluate(rec model.Record) (Result, error) {
	var (
		id    model.SensorID
		en    *entry
		kind  model.AlarmKind
		ok    bool
		event *model.AlarmEvent
		res   Result
	)

	id = e.registry.Resolve(rec.Name)
	if id == model.UnknownSensor {
		return Result{}, fmt.Errorf("%w %q", ErrUnconfiguredSensor, rec.Name)
	}
	en = e.entries[id]

	en.mu.Lock()
	kind, ok = Classify(en.bounds, rec)
	en.state.Seen = true
	en.state.Value = rec.Value
	en.state.Timestamp = rec.Timestamp
	en.state.Status = rec.Status
	if ok {
		switch {
		case kind == model.AlarmNone:
			en.state.Alarm = model.AlarmState{}
		case !en.state.Alarm.Active:
			ev := model.NewAlarmEvent(kind, rec, message(rec.Name, kind))
			event = &ev
			fallthrough
		default:
			en.state.Alarm = model.AlarmState{Active: true, Kind: kind}
		}
	}
	res = Result{State: en.state.Alarm, Event: event}
	en.mu.Unlock()

	if event != nil {
		e.record(rec, kind, event)
	}
	return res, nil
}

func (e *Evaluator) record(rec model.Record, kind model.AlarmKind, event *model.AlarmEvent) {
	line := "[" + e.now().Format(logTimeFormat) + "] ALARM: " + describe(rec, kind)
	e.history.Add(line)
	e.logger.Warn().
		Str("sensor", rec.Name).
		Str("kind", kind.String()).
		Float64("value", rec.Value).
		Int64("timestamp", rec.Timestamp).
		Str("event_id", event.ID.String()).
		Msg(line)
}

// State returns the state of a configured sensor.
func (e *Evaluator) State(name string) (model.SensorState, bool) {
	id := e.registry.Resolve(name)
	if id == model.UnknownSensor {
		return model.SensorState{}, false
	}
	en := e.entries[id]

	en.mu.RLock()
	defer en.mu.RUnlock()
	return en.state, true
}

// States returns every configured sensor in registry order.
func (e *Evaluator) States() []model.SensorState {
	out := make([]model.SensorState, len(e.entries))
	for i, en := range e.entries {
		en.mu.RLock()
		out[i] = en.state
		en.mu.RUnlock()
	}
	return out
}

func (e *Evaluator) Status() model.SystemStatus {
	return Reduce(e.States())
}

func (e *Evaluator) History() []string {
	return e.history.Lines()
}

func message(name string, kind model.AlarmKind) string {
	switch kind {
	case model.AlarmLow:
		return name + " Below Low limit"
	case model.AlarmHigh:
		return name + " Above High limit"
	case model.AlarmFaulty:
		return name + " Sensor Faulty"
	}
	return name
}

func describe(rec model.Record, kind model.AlarmKind) string {
	value := strconv.FormatFloat(rec.Value, 'f', -1, 64)
	switch kind {
	case model.AlarmLow:
		return rec.Name + " value below Low limit! (Value: " + value + ")"
	case model.AlarmHigh:
		return rec.Name + " value above High limit! (Value: " + value + ")"
	case model.AlarmFaulty:
		return rec.Name + " Sensor is FAULTY!"
	}
	return rec.Name
}
