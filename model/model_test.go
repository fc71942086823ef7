package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry(map[string]Bounds{
		"Temperature": {Low: 10, High: 40},
		"Counter":     {Low: 0, High: 1000},
	})

	assert.Equal(t, 2, r.Len())
	assert.Equal(t, []string{"Counter", "Temperature"}, r.Names())

	id := r.Resolve("Temperature")
	assert.Equal(t, SensorID(1), id)
	assert.Equal(t, "Temperature", r.Name(id))
	b, ok := r.Bounds(id)
	require.True(t, ok)
	assert.Equal(t, Bounds{Low: 10, High: 40}, b)

	assert.Equal(t, UnknownSensor, r.Resolve("Unknown"))
	_, ok = r.Bounds(UnknownSensor)
	assert.False(t, ok)
	assert.Empty(t, r.Name(UnknownSensor))
}

func TestBoundsAreInclusive(t *testing.T) {
	b := Bounds{Low: 10, High: 100}
	assert.True(t, b.Contains(10))
	assert.True(t, b.Contains(100))
	assert.False(t, b.Contains(9.99))
	assert.False(t, b.Contains(100.01))
}

func TestAlarmEventWireFormat(t *testing.T) {
	ev := NewAlarmEvent(AlarmHigh, Record{Name: "Pressure", Value: 7, Timestamp: 1700000000, Status: "OK"}, "Pressure Above High limit")
	buf, err := json.Marshal(ev)
	require.NoError(t, err)

	assert.JSONEq(t, `{"event":"ALARM_TRIGGERED","sensor":"Pressure","value":7,"timestamp":1700000000,"message":"Pressure Above High limit"}`, string(buf))
	assert.NotEqual(t, ev.ID, NewAlarmEvent(AlarmHigh, Record{}, "").ID)
}

func TestAlarmKindString(t *testing.T) {
	assert.Equal(t, "NONE", AlarmNone.String())
	assert.Equal(t, "FAULTY", AlarmFaulty.String())
	assert.Equal(t, "AlarmKind(9)", AlarmKind(9).String())
}
