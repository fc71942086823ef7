package alarm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Go-routine-4595/sensor-watch/model"
)

func seen(name, status string) model.SensorState {
	return model.SensorState{Name: name, Configured: true, Seen: true, Status: status}
}

func TestReduce(t *testing.T) {
	assert.Equal(t, model.SystemFault, Reduce([]model.SensorState{seen("A", "OK"), seen("B", "FAULTY")}))
	assert.Equal(t, model.SystemOK, Reduce([]model.SensorState{seen("A", "OK"), seen("B", "OK")}))
	assert.Equal(t, model.SystemFault, Reduce([]model.SensorState{seen("A", "OK"), seen("B", "WARNING")}))
	assert.Equal(t, model.SystemFault, Reduce([]model.SensorState{seen("A", "OK"), {Name: "B", Configured: true}}))
	assert.Equal(t, model.SystemOK, Reduce(nil))
}

func TestReduceIsIdempotent(t *testing.T) {
	states := []model.SensorState{seen("A", "OK"), seen("B", "FAULTY")}
	assert.Equal(t, Reduce(states), Reduce(states))
}
