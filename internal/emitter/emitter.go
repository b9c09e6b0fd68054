package emitter

import (
	"errors"
	"fmt"

	"github.com/nerrad567/irhvac-core/internal/acproto"
	"github.com/nerrad567/irhvac-core/internal/infrastructure/config"
	"github.com/nerrad567/irhvac-core/internal/ir"
)

var (
	ErrNoPublisher      = errors.New("emitter: mqtt transport needs a publisher")
	ErrUnknownTransport = errors.New("emitter: unknown transport")
	ErrTooMany          = errors.New("emitter: too many emitters")
)

// Transmission kinds reported to OnTransmit.
const (
	KindGC       = "gc"
	KindPronto   = "pronto"
	KindWaveform = "waveform"
	KindAC       = "ac"
)

// Publisher is the subset of the MQTT client the mqtt transport needs.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Logger is the logging interface used by the log transport.
type Logger interface {
	Info(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}

// Options supplies the collaborators the transports need.
type Options struct {
	Publisher Publisher
	// Topic maps an emitter index to its MQTT topic.
	Topic  func(index int) string
	QoS    byte
	Logger Logger

	// OnTransmit, if set, is called after every send attempt.
	OnTransmit func(index int, kind string, err error)
}

// Handle is one emitter's capabilities.
type Handle struct {
	Index int
	GPIO  int
	Raw   ir.PulseSender

	// AC is nil when the emitter has no named-protocol sender.
	AC acproto.Sender
}

// Manager holds the live set of emitters.
type Manager struct {
	handles []*Handle
}

// NewManager builds one Handle per emitter entry, in order.
func NewManager(cfgs []config.EmitterConfig, opts Options) (*Manager, error) {
	if len(cfgs) > config.MaxEmitters {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooMany, len(cfgs), config.MaxEmitters)
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}

	m := &Manager{handles: make([]*Handle, 0, len(cfgs))}
	for i, c := range cfgs {
		t, err := newTransport(i, c, opts)
		if err != nil {
			return nil, fmt.Errorf("emitter %d: %w", i, err)
		}
		if opts.OnTransmit != nil {
			t = &instrumented{index: i, next: t, observe: opts.OnTransmit}
		}

		h := &Handle{Index: i, GPIO: c.GPIO, Raw: t}
		if !c.DisableProtocols {
			h.AC = t
		}
		m.handles = append(m.handles, h)
	}
	return m, nil
}

// Lookup returns the emitter at index.
func (m *Manager) Lookup(index int) (*Handle, bool) {
	if m == nil || index < 0 || index >= len(m.handles) {
		return nil, false
	}
	return m.handles[index], true
}

// Len returns the number of emitters.
func (m *Manager) Len() int {
	if m == nil {
		return 0
	}
	return len(m.handles)
}

// Handles returns the emitters in index order.
func (m *Manager) Handles() []*Handle {
	if m == nil {
		return nil
	}
	out := make([]*Handle, len(m.handles))
	copy(out, m.handles)
	return out
}

type transport interface {
	ir.PulseSender
	acproto.Sender
}

func newTransport(index int, c config.EmitterConfig, opts Options) (transport, error) {
	switch c.Transport {
	case config.TransportLog, "":
		return &logTransport{index: index, gpio: c.GPIO, logger: opts.Logger}, nil
	case config.TransportMQTT:
		if opts.Publisher == nil || opts.Topic == nil {
			return nil, ErrNoPublisher
		}
		return &mqttTransport{
			pub:   opts.Publisher,
			topic: opts.Topic(index),
			qos:   opts.QoS,
			gpio:  c.GPIO,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, c.Transport)
	}
}

// instrumented reports every send to an observer.
type instrumented struct {
	index   int
	next    transport
	observe func(index int, kind string, err error)
}

func (t *instrumented) SendGC(codes []uint16) error {
	err := t.next.SendGC(codes)
	t.observe(t.index, KindGC, err)
	return err
}

func (t *instrumented) SendPronto(p ir.Pronto) error {
	err := t.next.SendPronto(p)
	t.observe(t.index, KindPronto, err)
	return err
}

func (t *instrumented) SendWaveform(w ir.Waveform) error {
	err := t.next.SendWaveform(w)
	t.observe(t.index, KindWaveform, err)
	return err
}

func (t *instrumented) SendAC(p acproto.Params) error {
	err := t.next.SendAC(p)
	t.observe(t.index, KindAC, err)
	return err
}
