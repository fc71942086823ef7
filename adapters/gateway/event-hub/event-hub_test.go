package event_hub

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Go-routine-4595/sensor-watch/model"
)

func TestCreateEventForAlarm(t *testing.T) {
	ev := model.NewAlarmEvent(model.AlarmLow, model.Record{Name: "Humidity", Value: 3, Timestamp: 1700000000, Status: "OK"}, "Humidity Below Low limit")
	buf, err := json.Marshal(ev)
	require.NoError(t, err)

	data := createEventForAlarm(ev, buf)

	assert.Equal(t, buf, data.Body)
	require.NotNil(t, data.MessageID)
	assert.Equal(t, ev.ID.String(), *data.MessageID)
	require.NotNil(t, data.ContentType)
	assert.Equal(t, "application/json", *data.ContentType)
	assert.Equal(t, "LOW", data.Properties["kind"])
}
