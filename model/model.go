package model

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

const (
	StatusOK     = "OK"
	StatusFaulty = "FAULTY"

	EventAlarmTriggered = "ALARM_TRIGGERED"
)

// Record is one decoded telemetry reading. A zero Timestamp means the
// reading carried no usable time and must stay out of window comparisons.
type Record struct {
	Name      string  `json:"name"`
	Value     float64 `json:"value"`
	Timestamp int64   `json:"timestamp"`
	Status    string  `json:"status"`
}

func (r Record) Timed() bool {
	return r.Timestamp > 0
}

// Bounds is the inclusive acceptable range of a sensor.
type Bounds struct {
	Low  float64 `json:"low" yaml:"low"`
	High float64 `json:"high" yaml:"high"`
}

func (b Bounds) Contains(v float64) bool {
	return b.Low <= v && v <= b.High
}

type AlarmKind int

const (
	AlarmNone AlarmKind = iota
	AlarmLow
	AlarmHigh
	AlarmFaulty
)

func (k AlarmKind) String() string {
	switch k {
	case AlarmNone:
		return "NONE"
	case AlarmLow:
		return "LOW"
	case AlarmHigh:
		return "HIGH"
	case AlarmFaulty:
		return "FAULTY"
	}
	return fmt.Sprintf("AlarmKind(%d)", int(k))
}

func (k AlarmKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

type AlarmState struct {
	Active bool      `json:"active"`
	Kind   AlarmKind `json:"kind"`
}

// SensorState is the last known reading of a sensor together with its alarm state.
type SensorState struct {
	Name       string     `json:"name"`
	Configured bool       `json:"configured"`
	Seen       bool       `json:"seen"`
	Value      float64    `json:"value"`
	Timestamp  int64      `json:"timestamp"`
	Status     string     `json:"status"`
	Alarm      AlarmState `json:"alarm"`
}

// Point is one rolling window sample, Offset in seconds from the oldest retained point.
type Point struct {
	Offset float64 `json:"t"`
	Value  float64 `json:"value"`
}

type SystemStatus string

const (
	SystemOK    SystemStatus = "OK"
	SystemFault SystemStatus = "FAULT"
)

// AlarmEvent is the outbound notification body. ID and Kind never leave the process
// as part of the payload.
type AlarmEvent struct {
	ID        uuid.UUID `json:"-"`
	Kind      AlarmKind `json:"-"`
	Event     string    `json:"event"`
	Sensor    string    `json:"sensor"`
	Value     float64   `json:"value"`
	Timestamp int64     `json:"timestamp"`
	Message   string    `json:"message"`
}

func NewAlarmEvent(kind AlarmKind, rec Record, message string) AlarmEvent {
	return AlarmEvent{
		ID:        uuid.New(),
		Kind:      kind,
		Event:     EventAlarmTriggered,
		Sensor:    rec.Name,
		Value:     rec.Value,
		Timestamp: rec.Timestamp,
		Message:   message,
	}
}

// ISink delivers alarm events to an external system.
type ISink interface {
	SendAlarm(ctx context.Context, event AlarmEvent) error
}

// IObserver is notified of every record committed by the pipeline.
type IObserver interface {
	Observe(rec Record)
}

// SinkFunc adapts a function to ISink.
type SinkFunc func(ctx context.Context, event AlarmEvent) error

func (f SinkFunc) SendAlarm(ctx context.Context, event AlarmEvent) error {
	return f(ctx, event)
}
