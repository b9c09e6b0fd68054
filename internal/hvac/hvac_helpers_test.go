package hvac

import (
	"errors"
	"testing"

	"github.com/nerrad567/irhvac-core/internal/acproto"
	"github.com/nerrad567/irhvac-core/internal/emitter"
	"github.com/nerrad567/irhvac-core/internal/infrastructure/config"
	"github.com/nerrad567/irhvac-core/internal/ir"
)

var errTransmit = errors.New("transmit failed")

type fakeRaw struct {
	gc     [][]uint16
	pronto []ir.Pronto
	waves  []ir.Waveform
	err    error
}

func (f *fakeRaw) SendGC(codes []uint16) error {
	if f.err != nil {
		return f.err
	}
	f.gc = append(f.gc, codes)
	return nil
}

func (f *fakeRaw) SendPronto(p ir.Pronto) error {
	if f.err != nil {
		return f.err
	}
	f.pronto = append(f.pronto, p)
	return nil
}

func (f *fakeRaw) SendWaveform(w ir.Waveform) error {
	if f.err != nil {
		return f.err
	}
	f.waves = append(f.waves, w)
	return nil
}

func (f *fakeRaw) sends() int { return len(f.gc) + len(f.pronto) + len(f.waves) }

type fakeAC struct {
	sent []acproto.Params
	err  error
}

func (f *fakeAC) SendAC(p acproto.Params) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, p)
	return nil
}

type fakeEmitters []*emitter.Handle

func (f fakeEmitters) Lookup(i int) (*emitter.Handle, bool) {
	if i < 0 || i >= len(f) {
		return nil, false
	}
	return f[i], true
}

func (f fakeEmitters) Handles() []*emitter.Handle { return f }

type broadcast struct {
	msg     StateMessage
	exclude int
}

type recordingBroadcaster struct {
	got []broadcast
}

func (r *recordingBroadcaster) Broadcast(msg StateMessage, exclude int) {
	r.got = append(r.got, broadcast{msg: msg, exclude: exclude})
}

type recordingEvents struct {
	states   []StateChange
	commands []CommandRecord
}

func (r *recordingEvents) StateChanged(c StateChange)  { r.states = append(r.states, c) }
func (r *recordingEvents) CommandDone(c CommandRecord) { r.commands = append(r.commands, c) }

// testRig is a processor over two devices sharing emitter 0:
// "lounge" (DAIKIN) and "bedroom" (custom GC codes with an off code),
// plus "study" (custom without an off code) on emitter 1.
type testRig struct {
	proc   *Processor
	raw    *fakeRaw
	raw1   *fakeRaw
	ac     *fakeAC
	bcast  *recordingBroadcaster
	events *recordingEvents
}

func testDevices() []config.HVACConfig {
	return []config.HVACConfig{
		{ID: "lounge", Protocol: "daikin", Emitter: 0},
		{ID: "bedroom", Emitter: 0, Custom: &config.CustomConfig{
			Encoding: "gc",
			Off:      "38000,1,1,10,20",
			Temps: map[string]string{
				"22": "38000,1,1,22,22",
				"24": "38000,1,1,24,24",
			},
		}},
		{ID: "study", Emitter: 1, Custom: &config.CustomConfig{Encoding: "gc"}},
	}
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()

	reg, err := NewRegistry(testDevices(), 2)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	rig := &testRig{
		raw:    &fakeRaw{},
		raw1:   &fakeRaw{},
		ac:     &fakeAC{},
		bcast:  &recordingBroadcaster{},
		events: &recordingEvents{},
	}
	emitters := fakeEmitters{
		{Index: 0, GPIO: 4, Raw: rig.raw, AC: rig.ac},
		{Index: 1, GPIO: 5, Raw: rig.raw1},
	}
	rig.proc = NewProcessor(reg, emitters, ProcessorOptions{
		Broadcaster: rig.bcast,
		Events:      rig.events,
	})
	return rig
}

func (r *testRig) exec(t *testing.T, line string, origin Origin) Reply {
	t.Helper()
	cmd, err := Decode([]byte(line))
	if err != nil {
		t.Fatalf("Decode(%s) error = %v", line, err)
	}
	return r.proc.Execute(cmd, origin)
}
