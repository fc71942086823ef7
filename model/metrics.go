package model

const (
	MetricRecordsIngested        = "sensorwatch_records_ingested_total"
	MetricDecodeErrors           = "sensorwatch_decode_errors_total"
	MetricFrameErrors            = "sensorwatch_frame_errors_total"
	MetricUntimedRecords         = "sensorwatch_untimed_records_total"
	MetricUnconfiguredRecords    = "sensorwatch_unconfigured_records_total"
	MetricAlarmsTriggered        = "sensorwatch_alarms_triggered_total"
	MetricNotificationsDelivered = "sensorwatch_notifications_delivered_total"
	MetricNotificationsFailed    = "sensorwatch_notifications_failed_total"
	MetricNotificationsDropped   = "sensorwatch_notifications_dropped_total"
	MetricSystemFault            = "sensorwatch_system_fault"
	MetricNotificationQueue      = "sensorwatch_notification_queue_length"
)

// IMetrics records pipeline counters and gauges by name. Unknown names are ignored.
type IMetrics interface {
	IncCounter(name string, v float64)
	SetGauge(name string, v float64)
}

type NopMetrics struct{}

func (NopMetrics) IncCounter(string, float64) {}

func (NopMetrics) SetGauge(string, float64) {}
