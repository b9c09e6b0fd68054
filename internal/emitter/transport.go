package emitter

import (
	"encoding/json"
	"fmt"

	"github.com/nerrad567/irhvac-core/internal/acproto"
	"github.com/nerrad567/irhvac-core/internal/ir"
)

// logTransport writes every program to the log instead of driving an LED.
type logTransport struct {
	index  int
	gpio   int
	logger Logger
}

func (t *logTransport) SendGC(codes []uint16) error {
	t.logger.Info("ir transmit", "emitter", t.index, "gpio", t.gpio,
		"kind", KindGC, "code", ir.FormatGC(codes))
	return nil
}

func (t *logTransport) SendPronto(p ir.Pronto) error {
	t.logger.Info("ir transmit", "emitter", t.index, "gpio", t.gpio,
		"kind", KindPronto, "words", len(p.Codes), "repeats", p.Repeats)
	return nil
}

func (t *logTransport) SendWaveform(w ir.Waveform) error {
	t.logger.Info("ir transmit", "emitter", t.index, "gpio", t.gpio,
		"kind", KindWaveform, "frequency", w.FrequencyHz, "pulses", len(w.Pulses))
	return nil
}

func (t *logTransport) SendAC(p acproto.Params) error {
	t.logger.Info("ir transmit", "emitter", t.index, "gpio", t.gpio,
		"kind", KindAC, "protocol", p.Protocol, "model", p.Model,
		"power", p.Power, "mode", p.Mode, "degrees", p.Degrees, "fan", p.Fan)
	return nil
}

// Frame is the JSON document the mqtt transport publishes.
type Frame struct {
	Kind     string          `json:"kind"`
	GPIO     int             `json:"gpio"`
	GC       []uint16        `json:"gc,omitempty"`
	Pronto   *ir.Pronto      `json:"pronto,omitempty"`
	Waveform *ir.Waveform    `json:"waveform,omitempty"`
	AC       *acproto.Params `json:"ac,omitempty"`
}

type mqttTransport struct {
	pub   Publisher
	topic string
	qos   byte
	gpio  int
}

func (t *mqttTransport) publish(f Frame) error {
	f.GPIO = t.gpio
	payload, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encoding %s frame: %w", f.Kind, err)
	}
	if err := t.pub.Publish(t.topic, payload, t.qos, false); err != nil {
		return fmt.Errorf("publishing %s frame: %w", f.Kind, err)
	}
	return nil
}

func (t *mqttTransport) SendGC(codes []uint16) error {
	return t.publish(Frame{Kind: KindGC, GC: codes})
}

func (t *mqttTransport) SendPronto(p ir.Pronto) error {
	return t.publish(Frame{Kind: KindPronto, Pronto: &p})
}

func (t *mqttTransport) SendWaveform(w ir.Waveform) error {
	return t.publish(Frame{Kind: KindWaveform, Waveform: &w})
}

func (t *mqttTransport) SendAC(p acproto.Params) error {
	return t.publish(Frame{Kind: KindAC, AC: &p})
}
