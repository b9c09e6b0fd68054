package telemetry

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/nerrad567/irhvac-core/internal/hvac"
)

func TestMetricsHandleCommand(t *testing.T) {
	m := NewMetrics()
	ctx := context.Background()

	m.HandleCommand(ctx, hvac.CommandRecord{Command: "send", Source: hvac.SourceLine, OK: true, Duration: time.Millisecond})
	m.HandleCommand(ctx, hvac.CommandRecord{Command: "send", Source: hvac.SourceLine, Error: hvac.CodeUnknownID})
	m.HandleCommand(ctx, hvac.CommandRecord{Command: "reboot", Source: hvac.SourceWeb, Error: hvac.CodeUnknownCmd})

	if got := testutil.ToFloat64(m.commands.WithLabelValues("send", "line", "ok")); got != 1 {
		t.Errorf("send ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.commands.WithLabelValues("send", "line", "unknown_id")); got != 1 {
		t.Errorf("send unknown_id = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.commands.WithLabelValues("unknown", "web", "unknown_cmd")); got != 1 {
		t.Errorf("unknown cmd = %v, want 1", got)
	}
}

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()

	m.HandleState(context.Background(), hvac.StateChange{Message: hvac.StateMessage{ID: "lounge"}, Source: hvac.SourceWeb})
	m.ObserveTransmit(0, "ac", nil)
	m.ObserveTransmit(0, "ac", errors.New("boom"))
	m.InvalidJSON(hvac.SourceLine)
	m.ObserverRefused("line")
	m.BroadcastDropped("websocket")(2)

	checks := []struct {
		name string
		got  float64
	}{
		{"state changes", testutil.ToFloat64(m.stateChanges.WithLabelValues("lounge", "web"))},
		{"transmit ok", testutil.ToFloat64(m.transmissions.WithLabelValues("0", "ac", "ok"))},
		{"transmit error", testutil.ToFloat64(m.transmissions.WithLabelValues("0", "ac", "error"))},
		{"invalid json", testutil.ToFloat64(m.invalidJSON.WithLabelValues("line"))},
		{"refused", testutil.ToFloat64(m.observerRefused.WithLabelValues("line"))},
		{"dropped", testutil.ToFloat64(m.broadcastDropped.WithLabelValues("websocket"))},
	}
	for _, c := range checks {
		if c.got != 1 {
			t.Errorf("%s = %v, want 1", c.name, c.got)
		}
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.HandleCommand(context.Background(), hvac.CommandRecord{})
	m.HandleState(context.Background(), hvac.StateChange{})
	m.ObserveTransmit(0, "gc", nil)
	m.InvalidJSON("line")
	m.ObserverRefused("line")
	m.BroadcastDropped("line")(0)
	m.ObservePool("line", func() int { return 0 })
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics()
	m.ObservePool("line", func() int { return 3 })
	m.ObserveDispatcher(func() uint64 { return 7 })

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		`irhvac_observers_live{pool="line"} 3`,
		`irhvac_events_dropped_total 7`,
		"go_goroutines",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

type point struct {
	measurement string
	tags        map[string]string
	fields      map[string]interface{}
}

type fakeWriter struct {
	points []point
}

func (f *fakeWriter) WritePoint(m string, tags map[string]string, fields map[string]interface{}) {
	f.points = append(f.points, point{measurement: m, tags: tags, fields: fields})
}

func TestInfluxRecorder(t *testing.T) {
	w := &fakeWriter{}
	r := NewInfluxRecorder(w)
	ctx := context.Background()

	st := hvac.DefaultState()
	st.Power = true
	st.Mode = hvac.ModeCool
	r.HandleState(ctx, hvac.StateChange{Message: st.Message("lounge"), Source: hvac.SourceLine})
	r.HandleCommand(ctx, hvac.CommandRecord{Command: "raw", Source: hvac.SourceWeb, OK: true, Duration: 1500 * time.Microsecond})

	if len(w.points) != 2 {
		t.Fatalf("points = %d, want 2", len(w.points))
	}

	state := w.points[0]
	if state.measurement != MeasurementState || state.tags["device_id"] != "lounge" {
		t.Errorf("state point = %+v", state)
	}
	if state.fields["power"] != true || state.fields["mode"] != "cool" || state.fields["setpoint"] != 24.0 {
		t.Errorf("state fields = %v", state.fields)
	}

	cmd := w.points[1]
	if cmd.measurement != MeasurementCommand || cmd.tags["cmd"] != "raw" {
		t.Errorf("command point = %+v", cmd)
	}
	if _, ok := cmd.tags["device_id"]; ok {
		t.Error("raw command point should carry no device_id tag")
	}
	if cmd.fields["duration_us"] != int64(1500) {
		t.Errorf("duration_us = %v, want 1500", cmd.fields["duration_us"])
	}
}
