package alarm

import "github.com/Go-routine-4595/sensor-watch/model"

// Reduce derives the system status from the last known status of every
// configured sensor. A sensor that never reported has no known status and
// counts as not OK.
func Reduce(states []model.SensorState) model.SystemStatus {
	for _, s := range states {
		if !s.Seen || s.Status != model.StatusOK {
			return model.SystemFault
		}
	}
	return model.SystemOK
}
