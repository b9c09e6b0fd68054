package telemetry

import (
	"context"

	"github.com/nerrad567/irhvac-core/internal/hvac"
)

// Measurement names written to InfluxDB.
const (
	MeasurementState   = "hvac_state"
	MeasurementCommand = "hvac_command"
)

// PointWriter is the write side of the InfluxDB client.
type PointWriter interface {
	WritePoint(measurement string, tags map[string]string, fields map[string]interface{})
}

// InfluxRecorder writes state changes and command outcomes as points.
type InfluxRecorder struct {
	w PointWriter
}

// NewInfluxRecorder returns a recorder writing through w.
func NewInfluxRecorder(w PointWriter) *InfluxRecorder {
	return &InfluxRecorder{w: w}
}

// HandleState implements hvac.StateSink.
func (r *InfluxRecorder) HandleState(_ context.Context, change hvac.StateChange) {
	msg := change.Message
	r.w.WritePoint(MeasurementState,
		map[string]string{"device_id": msg.ID},
		map[string]interface{}{
			"setpoint":     msg.Setpoint,
			"current_temp": msg.CurrentTemp,
			"power":        msg.Power == "on",
			"light":        msg.Light == "on",
			"mode":         string(msg.Mode),
			"fan":          string(msg.Fan),
		},
	)
}

// HandleCommand implements hvac.CommandSink.
func (r *InfluxRecorder) HandleCommand(_ context.Context, rec hvac.CommandRecord) {
	tags := map[string]string{
		"cmd":    commandLabel(rec.Command),
		"source": rec.Source,
	}
	if rec.DeviceID != "" {
		tags["device_id"] = rec.DeviceID
	}
	r.w.WritePoint(MeasurementCommand, tags, map[string]interface{}{
		"ok":          rec.OK,
		"duration_us": rec.Duration.Microseconds(),
	})
}
