package hvac

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nerrad567/irhvac-core/internal/acproto"
	"github.com/nerrad567/irhvac-core/internal/infrastructure/config"
)

func TestExecuteUnknownCommand(t *testing.T) {
	rig := newTestRig(t)

	reply := rig.exec(t, `{"cmd":"reboot"}`, WebOrigin)
	if reply.OK || reply.Error != CodeUnknownCmd {
		t.Errorf("reply = %+v, want unknown_cmd", reply)
	}
	if len(rig.events.commands) != 1 || rig.events.commands[0].Command != "reboot" {
		t.Errorf("command records = %+v", rig.events.commands)
	}
}

func TestExecuteList(t *testing.T) {
	rig := newTestRig(t)

	reply := rig.exec(t, `{"cmd":"list"}`, WebOrigin)
	if !reply.OK || reply.ListResult == nil {
		t.Fatalf("reply = %+v", reply)
	}

	wantEmitters := []EmitterInfo{{Index: 0, GPIO: 4}, {Index: 1, GPIO: 5}}
	if diff := cmp.Diff(wantEmitters, reply.Emitters); diff != "" {
		t.Errorf("emitters mismatch (-want +got):\n%s", diff)
	}

	wantDevices := []DeviceInfo{
		{ID: "lounge", Protocol: "DAIKIN", Emitter: 0, Model: -1},
		{ID: "bedroom", Protocol: config.ProtocolCustom, Emitter: 0, Model: -1, Custom: true},
		{ID: "study", Protocol: config.ProtocolCustom, Emitter: 1, Model: -1, Custom: true},
	}
	if diff := cmp.Diff(wantDevices, reply.HVACs); diff != "" {
		t.Errorf("devices mismatch (-want +got):\n%s", diff)
	}
}

func TestExecuteHelp(t *testing.T) {
	rig := newTestRig(t)

	reply := rig.exec(t, `{"cmd":"help"}`, WebOrigin)
	if !reply.OK || reply.Help == nil {
		t.Fatalf("reply = %+v", reply)
	}
	want := []string{"list", "send", "get", "get_all", "raw", "help"}
	if diff := cmp.Diff(want, reply.Help.Commands); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}
}

func TestExecuteGet(t *testing.T) {
	rig := newTestRig(t)

	tests := []struct {
		name string
		line string
		want ErrorCode
	}{
		{"missing id", `{"cmd":"get"}`, CodeMissingID},
		{"empty id", `{"cmd":"get","id":""}`, CodeMissingID},
		{"unknown id", `{"cmd":"get","id":"garage"}`, CodeUnknownID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := rig.exec(t, tt.line, WebOrigin)
			if reply.OK || reply.Error != tt.want {
				t.Errorf("reply = %+v, want %s", reply, tt.want)
			}
		})
	}

	t.Run("lazy init", func(t *testing.T) {
		reply := rig.exec(t, `{"cmd":"get","id":"lounge"}`, WebOrigin)
		if !reply.OK || reply.StateMessage == nil {
			t.Fatalf("reply = %+v", reply)
		}
		want := DefaultState().Message("lounge")
		if diff := cmp.Diff(want, *reply.StateMessage); diff != "" {
			t.Errorf("state mismatch (-want +got):\n%s", diff)
		}
		if !rig.proc.store.Peek(0).Initialized {
			t.Error("get should initialise the device")
		}
		if len(rig.bcast.got) != 0 {
			t.Errorf("get broadcast %d messages, want 0", len(rig.bcast.got))
		}
	})
}

func TestExecuteGetAll(t *testing.T) {
	rig := newTestRig(t)

	reply := rig.exec(t, `{"cmd":"get_all"}`, WebOrigin)
	if !reply.OK || reply.StatesResult == nil {
		t.Fatalf("reply = %+v", reply)
	}
	if len(reply.States) != 3 {
		t.Fatalf("states = %d, want 3", len(reply.States))
	}
	for i, id := range []string{"lounge", "bedroom", "study"} {
		if reply.States[i].ID != id {
			t.Errorf("states[%d].ID = %q, want %q", i, reply.States[i].ID, id)
		}
	}
}

func TestPoweredOn(t *testing.T) {
	rig := newTestRig(t)

	if n := rig.proc.PoweredOn(); n != 0 {
		t.Fatalf("PoweredOn() = %d before any command, want 0", n)
	}
	rig.exec(t, `{"id":"lounge","power":"on"}`, WebOrigin)
	rig.exec(t, `{"cmd":"get","id":"study"}`, WebOrigin)

	if n := rig.proc.PoweredOn(); n != 1 {
		t.Errorf("PoweredOn() = %d, want 1", n)
	}
	if st := rig.proc.store.Peek(1); st.Initialized {
		t.Error("PoweredOn() initialised an untouched device")
	}
}

func TestExecuteSendTwiceBroadcastsOnce(t *testing.T) {
	rig := newTestRig(t)
	line := `{"cmd":"send","id":"lounge","power":"on","mode":"cool","temp":22,"fan":"auto"}`

	for i := 0; i < 2; i++ {
		if reply := rig.exec(t, line, LineOrigin(1)); !reply.OK {
			t.Fatalf("send %d reply = %+v", i, reply)
		}
	}

	if len(rig.ac.sent) != 2 {
		t.Errorf("transmissions = %d, want 2", len(rig.ac.sent))
	}
	if len(rig.bcast.got) != 1 {
		t.Fatalf("broadcasts = %d, want 1", len(rig.bcast.got))
	}
	if rig.bcast.got[0].exclude != 1 {
		t.Errorf("broadcast exclude = %d, want 1", rig.bcast.got[0].exclude)
	}
	if len(rig.events.states) != 1 || rig.events.states[0].Source != SourceLine {
		t.Errorf("state events = %+v", rig.events.states)
	}

	msg := rig.bcast.got[0].msg
	if msg.Power != "on" || msg.Mode != ModeCool || msg.Setpoint != 22 || msg.CurrentTemp != 22 {
		t.Errorf("broadcast = %+v", msg)
	}
}

func TestExecuteSendIgnoresNonFiniteTemps(t *testing.T) {
	rig := newTestRig(t)

	reply := rig.proc.Execute(Send{
		ID:          TextValue("lounge"),
		Temp:        NumberValue(math.NaN()),
		CurrentTemp: NumberValue(math.Inf(1)),
	}, WebOrigin)
	if !reply.OK || reply.StateMessage == nil {
		t.Fatalf("reply = %+v", reply)
	}
	if reply.Setpoint != DefaultSetpoint || reply.CurrentTemp != DefaultSetpoint {
		t.Errorf("state = %+v, want setpoint and current temp %v", *reply.StateMessage, DefaultSetpoint)
	}
	if got := rig.ac.sent[0].Degrees; got != DefaultSetpoint {
		t.Errorf("transmitted degrees = %v, want %v", got, DefaultSetpoint)
	}

	all := rig.exec(t, `{"cmd":"get_all"}`, WebOrigin)
	if _, err := json.Marshal(all); err != nil {
		t.Errorf("get_all reply does not encode: %v", err)
	}
}

func TestExecuteSendCurrentTempHysteresis(t *testing.T) {
	rig := newTestRig(t)

	rig.exec(t, `{"id":"lounge","temp":22,"current_temp":24}`, WebOrigin)
	rig.exec(t, `{"id":"lounge","temp":22,"current_temp":23.95}`, WebOrigin)

	if len(rig.bcast.got) != 1 {
		t.Errorf("broadcasts = %d, want 1", len(rig.bcast.got))
	}
	if got := rig.proc.store.Peek(0).CurrentTemp; got != 23.95 {
		t.Errorf("current temp = %v, want 23.95 committed", got)
	}
}

func TestExecuteSendFirstCurrentTempNotNumeric(t *testing.T) {
	rig := newTestRig(t)

	reply := rig.exec(t, `{"id":"lounge","temp":19,"current_temp":"abc"}`, WebOrigin)
	if !reply.OK {
		t.Fatalf("reply = %+v", reply)
	}
	if reply.CurrentTemp != 19 {
		t.Errorf("current temp = %v, want setpoint 19", reply.CurrentTemp)
	}
}

func TestExecuteSendNamedParams(t *testing.T) {
	rig := newTestRig(t)

	reply := rig.exec(t, `{"id":"lounge","mode":"heat","temp":"21.5","fan":"hi","swingv":"auto","quiet":"on","model":2,"sleep":30}`, WebOrigin)
	if !reply.OK {
		t.Fatalf("reply = %+v", reply)
	}

	want := acproto.Params{
		Protocol: "DAIKIN",
		Model:    2,
		Power:    true,
		Mode:     acproto.ModeHeat,
		Degrees:  21.5,
		Celsius:  true,
		Fan:      acproto.FanHigh,
		SwingV:   acproto.SwingVAuto,
		SwingH:   acproto.SwingHOff,
		Quiet:    true,
		Sleep:    30,
		Clock:    -1,
	}
	if len(rig.ac.sent) != 1 {
		t.Fatalf("transmissions = %d, want 1", len(rig.ac.sent))
	}
	if diff := cmp.Diff(want, rig.ac.sent[0]); diff != "" {
		t.Errorf("params mismatch (-want +got):\n%s", diff)
	}
	if reply.Fan != FanHigh || reply.Mode != ModeHeat {
		t.Errorf("reply state = %+v", reply.StateMessage)
	}
}

func TestExecuteSendCommandOff(t *testing.T) {
	rig := newTestRig(t)

	reply := rig.exec(t, `{"id":"lounge","power":"on","command":"off","mode":"cool"}`, WebOrigin)
	if !reply.OK {
		t.Fatalf("reply = %+v", reply)
	}
	if p := rig.ac.sent[0]; p.Power || p.Mode != acproto.ModeOff {
		t.Errorf("params power/mode = %v/%q, want false/off", p.Power, p.Mode)
	}
	if reply.Power != "off" || reply.Mode != ModeOff {
		t.Errorf("reply = %+v", reply.StateMessage)
	}
}

func TestExecuteSendCustom(t *testing.T) {
	rig := newTestRig(t)

	reply := rig.exec(t, `{"id":"bedroom","power":"on","mode":"cool","temp":21.6,"light":true,"current_temp":25}`, WebOrigin)
	if !reply.OK {
		t.Fatalf("reply = %+v", reply)
	}
	if diff := cmp.Diff([][]uint16{{38000, 1, 1, 22, 22}}, rig.raw.gc); diff != "" {
		t.Errorf("gc sends mismatch (-want +got):\n%s", diff)
	}

	want := StateMessage{
		Type: "state", ID: "bedroom", Power: "on", Mode: ModeCool,
		Setpoint: 21.6, CurrentTemp: 25, Fan: FanAuto, Light: "on",
	}
	if diff := cmp.Diff(want, *reply.StateMessage); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}

	// Off keeps the previous fan and setpoint and forces mode off.
	reply = rig.exec(t, `{"id":"bedroom","power":"off"}`, WebOrigin)
	if !reply.OK {
		t.Fatalf("off reply = %+v", reply)
	}
	if got := rig.raw.gc[1]; got[3] != 10 {
		t.Errorf("off code = %v, want the configured off code", got)
	}
	if reply.Mode != ModeOff || reply.Setpoint != 21.6 || reply.Light != "on" {
		t.Errorf("off state = %+v", reply.StateMessage)
	}
}

func TestExecuteSendCustomExplicitCode(t *testing.T) {
	rig := newTestRig(t)

	reply := rig.exec(t, `{"id":"study","code":"0000 006D 0000 0002 0010 0020 0010 0020","encoding":"pronto"}`, WebOrigin)
	if !reply.OK {
		t.Fatalf("reply = %+v", reply)
	}
	if len(rig.raw1.pronto) != 1 {
		t.Errorf("pronto sends = %d, want 1", len(rig.raw1.pronto))
	}
}

func TestExecuteSendFailuresLeaveStateUntouched(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		setup func(*testRig)
		want  ErrorCode
	}{
		{"missing id", `{"power":"on"}`, nil, CodeMissingID},
		{"unknown id", `{"id":"garage"}`, nil, CodeUnknownID},
		{"missing custom off", `{"id":"study","power":"off"}`, nil, CodeMissingCustomOff},
		{"missing temp code", `{"id":"bedroom","temp":18}`, nil, CodeMissingTempCode},
		{"missing code", `{"id":"bedroom","mode":"cool"}`, nil, CodeMissingCode},
		{"invalid code", `{"id":"study","code":"zz"}`, nil, CodeSendFailed},
		{"bad encoding override", `{"id":"study","code":"1,2","encoding":"morse"}`, nil, CodeSendFailed},
		{"transmit error", `{"id":"lounge"}`, func(r *testRig) { r.ac.err = errTransmit }, CodeSendFailed},
		{"unsupported protocol", `{"id":"lounge"}`, func(r *testRig) {
			r.proc.registry.devices[0].Protocol = "NOT_A_PROTOCOL"
		}, CodeUnsupportedProtocol},
		{"emitter without protocol sender", `{"id":"lounge"}`, func(r *testRig) {
			h, _ := r.proc.emitters.Lookup(0)
			h.AC = nil
		}, CodeInvalidEmitter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rig := newTestRig(t)
			if tt.setup != nil {
				tt.setup(rig)
			}
			before := append([]State(nil), rig.proc.store.states...)

			reply := rig.exec(t, tt.line, WebOrigin)
			if reply.OK || reply.Error != tt.want {
				t.Fatalf("reply = %+v, want %s", reply, tt.want)
			}
			if diff := cmp.Diff(before, rig.proc.store.states); diff != "" {
				t.Errorf("store changed (-before +after):\n%s", diff)
			}
			if len(rig.bcast.got) != 0 {
				t.Errorf("broadcasts = %d, want 0", len(rig.bcast.got))
			}
		})
	}
}

func TestExecuteRaw(t *testing.T) {
	rig := newTestRig(t)

	reply := rig.exec(t, `{"cmd":"raw","code":"0000 006D 0000 0002 0010 0020 0010 0020"}`, WebOrigin)
	if !reply.OK {
		t.Fatalf("reply = %+v", reply)
	}
	if len(rig.raw.pronto) != 1 {
		t.Errorf("pronto sends on emitter 0 = %d, want 1", len(rig.raw.pronto))
	}

	reply = rig.exec(t, `{"cmd":"raw","emitter":1,"encoding":"gc","code":"38000,1,1,5,5"}`, WebOrigin)
	if !reply.OK || len(rig.raw1.gc) != 1 {
		t.Errorf("gc raw on emitter 1: reply = %+v, sends = %d", reply, len(rig.raw1.gc))
	}

	for _, line := range []string{
		`{"cmd":"raw","emitter":9,"code":"1"}`,
		`{"cmd":"raw","emitter":-1,"code":"1"}`,
	} {
		if reply := rig.exec(t, line, WebOrigin); reply.Error != CodeInvalidEmitter {
			t.Errorf("%s: error = %q, want invalid_emitter", line, reply.Error)
		}
	}
	if reply := rig.exec(t, `{"cmd":"raw","code":""}`, WebOrigin); reply.Error != CodeSendFailed {
		t.Errorf("empty code error = %q, want send_failed", reply.Error)
	}

	for i, st := range rig.proc.store.states {
		if st.Initialized {
			t.Errorf("raw initialised device %d", i)
		}
	}
	if len(rig.bcast.got) != 0 {
		t.Errorf("broadcasts = %d, want 0", len(rig.bcast.got))
	}
}

func TestReplyJSON(t *testing.T) {
	tests := []struct {
		name     string
		reply    Reply
		contains []string
		excludes []string
	}{
		{
			name:     "error",
			reply:    ErrorReply(CodeUnknownID),
			contains: []string{`"ok":false`, `"error":"unknown_id"`},
			excludes: []string{`"type"`, `"help"`},
		},
		{
			name: "state",
			reply: func() Reply {
				msg := DefaultState().Message("lounge")
				return Reply{OK: true, StateMessage: &msg}
			}(),
			contains: []string{`"ok":true`, `"type":"state"`, `"id":"lounge"`, `"power":"off"`, `"current_temp":24`},
			excludes: []string{`"error"`},
		},
		{
			name:     "empty list",
			reply:    Reply{OK: true, ListResult: &ListResult{Emitters: []EmitterInfo{}, HVACs: []DeviceInfo{}}},
			contains: []string{`"emitters":[]`, `"hvacs":[]`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.reply)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			for _, s := range tt.contains {
				if !strings.Contains(string(data), s) {
					t.Errorf("%s missing %s", data, s)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(string(data), s) {
					t.Errorf("%s should not contain %s", data, s)
				}
			}
		})
	}
}

func TestReconfigure(t *testing.T) {
	rig := newTestRig(t)
	rig.exec(t, `{"id":"lounge","mode":"cool","temp":20}`, WebOrigin)
	rig.exec(t, `{"id":"bedroom","temp":22}`, WebOrigin)

	cfgs := testDevices()
	cfgs[1].Custom.Off = "38000,1,1,11,21"
	cfgs = append(cfgs[:2], config.HVACConfig{ID: "office", Protocol: "GREE", Emitter: 1})
	reg, err := NewRegistry(cfgs, 2)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	rig.proc.Reconfigure(reg, rig.proc.emitters)

	if st := rig.proc.store.Peek(0); !st.Initialized || st.Setpoint != 20 {
		t.Errorf("unchanged device state = %+v, want kept", st)
	}
	if st := rig.proc.store.Peek(1); st.Initialized {
		t.Errorf("changed device state = %+v, want reset", st)
	}
	if st := rig.proc.store.Peek(2); st.Initialized {
		t.Errorf("new device state = %+v, want uninitialised", st)
	}
}
