// Package decode turns one wire frame into a model.Record.
package decode

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"

	"github.com/Go-routine-4595/sensor-watch/model"
)

const (
	FieldName      = "name"
	FieldValue     = "value"
	FieldTimestamp = "timestamp"
	FieldStatus    = "status"
)

var (
	ErrMalformedJSON = errors.New("malformed json")
	ErrMissingField  = errors.New("missing field")
	ErrInvalidField  = errors.New("invalid field")
)

// Error describes why a line was rejected. Kind is one of ErrMalformedJSON,
// ErrMissingField or ErrInvalidField, so errors.Is works against the sentinels.
type Error struct {
	Kind  error
	Field string
	Err   error
}

func (e *Error) Error() string {
	var msg string

	msg = "decode: " + e.Kind.Error()
	if e.Field != "" {
		msg += " \"" + e.Field + "\""
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

var null = []byte("null")

// Decode parses a JSON object line. name, value and status are required; a
// missing or unreadable timestamp yields an untimed record (Timestamp 0).
func Decode(line string) (model.Record, error) {
	var (
		raw map[string]json.RawMessage
		rec model.Record
		err error
	)

	err = json.Unmarshal([]byte(line), &raw)
	if err != nil {
		return model.Record{}, &Error{Kind: ErrMalformedJSON, Err: err}
	}
	if raw == nil {
		return model.Record{}, &Error{Kind: ErrMalformedJSON}
	}

	rec.Name, err = stringField(raw, FieldName)
	if err != nil {
		return model.Record{}, err
	}
	if rec.Name == "" {
		return model.Record{}, &Error{Kind: ErrMissingField, Field: FieldName}
	}

	rec.Value, err = numberField(raw, FieldValue)
	if err != nil {
		return model.Record{}, err
	}

	rec.Status, err = stringField(raw, FieldStatus)
	if err != nil {
		return model.Record{}, err
	}

	rec.Timestamp = timestampField(raw)

	return rec, nil
}

func present(raw map[string]json.RawMessage, field string) (json.RawMessage, bool) {
	v, ok := raw[field]
	if !ok || bytes.Equal(bytes.TrimSpace(v), null) {
		return nil, false
	}
	return v, true
}

func stringField(raw map[string]json.RawMessage, field string) (string, error) {
	var s string

	v, ok := present(raw, field)
	if !ok {
		return "", &Error{Kind: ErrMissingField, Field: field}
	}
	if err := json.Unmarshal(v, &s); err != nil {
		return "", &Error{Kind: ErrInvalidField, Field: field, Err: err}
	}
	return s, nil
}

func numberField(raw map[string]json.RawMessage, field string) (float64, error) {
	var f float64

	v, ok := present(raw, field)
	if !ok {
		return 0, &Error{Kind: ErrMissingField, Field: field}
	}
	if err := json.Unmarshal(v, &f); err != nil {
		return 0, &Error{Kind: ErrInvalidField, Field: field, Err: err}
	}
	return f, nil
}

func timestampField(raw map[string]json.RawMessage) int64 {
	var f float64

	v, ok := present(raw, FieldTimestamp)
	if !ok {
		return 0
	}
	if err := json.Unmarshal(v, &f); err != nil {
		return 0
	}
	if f <= 0 || f >= math.MaxInt64 {
		return 0
	}
	return int64(f)
}
