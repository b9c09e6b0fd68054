package hvac

import (
	"time"

	"github.com/nerrad567/irhvac-core/internal/acproto"
	"github.com/nerrad567/irhvac-core/internal/emitter"
	"github.com/nerrad567/irhvac-core/internal/ir"
)

// Command sources recorded on events.
const (
	SourceLine = "line"
	SourceWeb  = "web"
	SourceMQTT = "mqtt"
)

// NoSlot marks a command that did not come from an observer session.
const NoSlot = -1

// Origin identifies where a command came from. Slot is the observer slot
// excluded from the resulting broadcast, or NoSlot.
type Origin struct {
	Slot   int
	Source string
}

// LineOrigin is the origin of a command read from line-protocol session slot.
func LineOrigin(slot int) Origin {
	return Origin{Slot: slot, Source: SourceLine}
}

// WebOrigin is the origin of web form and REST commands.
var WebOrigin = Origin{Slot: NoSlot, Source: SourceWeb}

// MQTTOrigin is the origin of commands received over MQTT.
var MQTTOrigin = Origin{Slot: NoSlot, Source: SourceMQTT}

// Emitters resolves emitter indices to their capabilities.
type Emitters interface {
	Lookup(index int) (*emitter.Handle, bool)
	Handles() []*emitter.Handle
}

// Broadcaster delivers a state notification to every observer except the
// one in slot exclude.
type Broadcaster interface {
	Broadcast(msg StateMessage, exclude int)
}

// Events receives state changes and command outcomes. Implementations must
// not block; the Dispatcher queues them for asynchronous sinks.
type Events interface {
	StateChanged(StateChange)
	CommandDone(CommandRecord)
}

// Logger is the logging interface used by the processor.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type noopBroadcaster struct{}

func (noopBroadcaster) Broadcast(StateMessage, int) {}

type noopEvents struct{}

func (noopEvents) StateChanged(StateChange)  {}
func (noopEvents) CommandDone(CommandRecord) {}

// ProcessorOptions holds the optional collaborators of a Processor.
type ProcessorOptions struct {
	Broadcaster Broadcaster
	Events      Events
	Logger      Logger
}

// Processor interprets commands against the registry and state store.
// It is not safe for concurrent use; run it on a Loop.
type Processor struct {
	registry    *Registry
	emitters    Emitters
	store       *Store
	broadcaster Broadcaster
	events      Events
	logger      Logger
	now         func() time.Time
}

// NewProcessor returns a Processor with every device uninitialised.
func NewProcessor(reg *Registry, emitters Emitters, opts ProcessorOptions) *Processor {
	p := &Processor{
		registry:    reg,
		emitters:    emitters,
		store:       NewStore(reg.Len()),
		broadcaster: opts.Broadcaster,
		events:      opts.Events,
		logger:      opts.Logger,
		now:         time.Now,
	}
	if p.broadcaster == nil {
		p.broadcaster = noopBroadcaster{}
	}
	if p.events == nil {
		p.events = noopEvents{}
	}
	if p.logger == nil {
		p.logger = noopLogger{}
	}
	return p
}

// SetBroadcaster replaces the broadcast target.
func (p *Processor) SetBroadcaster(b Broadcaster) {
	if b == nil {
		b = noopBroadcaster{}
	}
	p.broadcaster = b
}

// Registry returns the active registry.
func (p *Processor) Registry() *Registry {
	return p.registry
}

// Execute runs one command and returns its reply. On failure the store is
// left exactly as it was.
func (p *Processor) Execute(cmd Command, origin Origin) Reply {
	start := p.now()
	var (
		reply    Reply
		deviceID string
	)

	switch c := cmd.(type) {
	case List:
		reply = p.list()
	case Help:
		info := helpInfo
		reply = Reply{OK: true, Help: &info}
	case Get:
		deviceID = c.ID.Text()
		reply = p.get(deviceID)
	case GetAll:
		reply = Reply{OK: true, StatesResult: &StatesResult{States: p.Snapshot()}}
	case Raw:
		reply = p.raw(c)
	case Send:
		deviceID = c.ID.Text()
		reply = p.send(c, origin)
	default:
		reply = ErrorReply(CodeUnknownCmd)
	}

	rec := CommandRecord{
		Command:  cmd.Name(),
		DeviceID: deviceID,
		Source:   origin.Source,
		OK:       reply.OK,
		Error:    reply.Error,
		Duration: p.now().Sub(start),
		At:       start,
	}
	p.events.CommandDone(rec)
	p.logger.Debug("command executed",
		"cmd", rec.Command,
		"device_id", deviceID,
		"source", origin.Source,
		"ok", reply.OK,
		"error", string(reply.Error),
	)
	return reply
}

// Snapshot returns every device state in registry order, initialising any
// device not yet referenced.
func (p *Processor) Snapshot() []StateMessage {
	out := make([]StateMessage, 0, p.registry.Len())
	for i, d := range p.registry.devices {
		out = append(out, p.store.Ensure(i).Message(d.ID))
	}
	return out
}

// PoweredOn counts devices whose tracked state is on. Untouched devices
// are not initialised.
func (p *Processor) PoweredOn() int {
	n := 0
	for i := 0; i < p.store.Len(); i++ {
		if st := p.store.Peek(i); st.Initialized && st.Power {
			n++
		}
	}
	return n
}

// Reconfigure swaps in a new registry and emitter set. Devices whose
// configuration is unchanged keep their state; all others start over.
func (p *Processor) Reconfigure(reg *Registry, emitters Emitters) {
	store := NewStore(reg.Len())
	for i, d := range reg.devices {
		oldIdx, old, ok := p.registry.Lookup(d.ID)
		if ok && old.equal(d) {
			store.Commit(i, p.store.Peek(oldIdx))
		}
	}
	p.registry = reg
	p.emitters = emitters
	p.store = store
	p.logger.Info("hvac configuration applied", "devices", reg.Len(), "emitters", len(emitters.Handles()))
}

func (p *Processor) list() Reply {
	handles := p.emitters.Handles()
	res := &ListResult{
		Emitters: make([]EmitterInfo, 0, len(handles)),
		HVACs:    make([]DeviceInfo, 0, p.registry.Len()),
	}
	for _, h := range handles {
		res.Emitters = append(res.Emitters, EmitterInfo{Index: h.Index, GPIO: h.GPIO})
	}
	for _, d := range p.registry.devices {
		res.HVACs = append(res.HVACs, DeviceInfo{
			ID:       d.ID,
			Protocol: d.Protocol,
			Emitter:  d.Emitter,
			Model:    d.Model,
			Custom:   d.IsCustom(),
		})
	}
	return Reply{OK: true, ListResult: res}
}

func (p *Processor) get(id string) Reply {
	if id == "" {
		return ErrorReply(CodeMissingID)
	}
	i, d, ok := p.registry.Lookup(id)
	if !ok {
		return ErrorReply(CodeUnknownID)
	}
	msg := p.store.Ensure(i).Message(d.ID)
	return Reply{OK: true, StateMessage: &msg}
}

func (p *Processor) raw(c Raw) Reply {
	h, ok := p.emitters.Lookup(c.Emitter.IntOr(0))
	if !ok || h.Raw == nil {
		return ErrorReply(CodeInvalidEmitter)
	}
	enc, err := ir.ParseEncoding(c.Encoding.TextOr(ir.EncodingPronto.String()))
	if err != nil {
		return ErrorReply(CodeSendFailed)
	}
	if err := ir.Send(h.Raw, enc, c.Code.Text(), 0); err != nil {
		p.logger.Warn("raw send failed", "emitter", h.Index, "error", err)
		return ErrorReply(CodeSendFailed)
	}
	return Reply{OK: true}
}

func (p *Processor) send(c Send, origin Origin) Reply {
	id := c.ID.Text()
	if id == "" {
		return ErrorReply(CodeMissingID)
	}
	i, d, ok := p.registry.Lookup(id)
	if !ok {
		return ErrorReply(CodeUnknownID)
	}
	h, ok := p.emitters.Lookup(d.Emitter)
	if !ok {
		return ErrorReply(CodeInvalidEmitter)
	}

	before := p.store.Peek(i)
	base := before
	if !base.Initialized {
		base = DefaultState()
	}

	var (
		next State
		code ErrorCode
	)
	if d.IsCustom() {
		next, code = p.sendCustom(d, h, c, base)
	} else {
		next, code = p.sendNamed(d, h, c, base)
	}
	if code != "" {
		return ErrorReply(code)
	}

	if t, ok := c.CurrentTemp.Float(); ok {
		next.CurrentTemp = t
	} else if !before.Initialized {
		next.CurrentTemp = next.Setpoint
	}
	p.store.Commit(i, next)

	msg := next.Message(d.ID)
	if Changed(before, next) {
		p.broadcaster.Broadcast(msg, origin.Slot)
		p.events.StateChanged(StateChange{Message: msg, Source: origin.Source, At: p.now()})
	}
	return Reply{OK: true, StateMessage: &msg}
}

// requestedPower resolves power, which defaults to on and is forced off
// by command:"off".
func requestedPower(c Send) bool {
	power := c.Power.Bool(true, false)
	if c.Command.Text() == "off" {
		power = false
	}
	return power
}

func (p *Processor) sendCustom(d DeviceConfig, h *emitter.Handle, c Send, base State) (State, ErrorCode) {
	if h.Raw == nil {
		return State{}, CodeInvalidEmitter
	}
	enc := d.Custom.Encoding
	if c.Encoding.Present() {
		parsed, err := ir.ParseEncoding(c.Encoding.Text())
		if err != nil {
			return State{}, CodeSendFailed
		}
		enc = parsed
	}

	power := requestedPower(c)
	code := c.Code.Text()
	switch {
	case !power:
		if d.Custom.Off == "" {
			return State{}, CodeMissingCustomOff
		}
		code = d.Custom.Off
	case code == "" && c.Temp.Present():
		t, ok := c.Temp.Float()
		if !ok {
			return State{}, CodeMissingTempCode
		}
		code, ok = d.Custom.CodeFor(t)
		if !ok {
			return State{}, CodeMissingTempCode
		}
	}
	if code == "" {
		return State{}, CodeMissingCode
	}

	next := base
	next.Initialized = true
	next.Power = power
	next.Mode = ModeOff
	if power {
		next.Mode = NormalizeMode(c.Mode.TextOr(string(base.Mode)))
	}
	next.Fan = NormalizeFan(c.Fan.TextOr(string(base.Fan)))
	next.Setpoint = c.Temp.FloatOr(base.Setpoint)
	next.Light = c.Light.Bool(base.Light, false)

	if err := ir.Send(h.Raw, enc, code, 0); err != nil {
		p.logger.Warn("custom send failed", "device_id", d.ID, "encoding", enc.String(), "error", err)
		return State{}, CodeSendFailed
	}
	return next, ""
}

func (p *Processor) sendNamed(d DeviceConfig, h *emitter.Handle, c Send, base State) (State, ErrorCode) {
	if h.AC == nil {
		return State{}, CodeInvalidEmitter
	}
	if !acproto.IsSupported(d.Protocol) {
		return State{}, CodeUnsupportedProtocol
	}

	power := requestedPower(c)
	mode := acproto.ParseOpMode(c.Mode.Text(), acproto.ModeAuto)
	if !power {
		mode = acproto.ModeOff
	}
	params := acproto.Params{
		Protocol: d.Protocol,
		Model:    c.Model.IntOr(d.Model),
		Power:    power,
		Mode:     mode,
		Degrees:  c.Temp.FloatOr(DefaultSetpoint),
		Celsius:  c.Celsius.Bool(true, true),
		Fan:      acproto.ParseFanSpeed(c.Fan.Text(), acproto.FanAuto),
		SwingV:   acproto.ParseSwingV(c.SwingV.Text(), acproto.SwingVOff),
		SwingH:   acproto.ParseSwingH(c.SwingH.Text(), acproto.SwingHOff),
		Quiet:    c.Quiet.Bool(false, false),
		Turbo:    c.Turbo.Bool(false, false),
		Econo:    c.Econo.Bool(false, false),
		Light:    c.Light.Bool(base.Light, false),
		Filter:   c.Filter.Bool(false, false),
		Clean:    c.Clean.Bool(false, false),
		Beep:     c.Beep.Bool(false, false),
		Sleep:    c.Sleep.IntOr(-1),
		Clock:    c.Clock.IntOr(-1),
	}

	next := base
	next.Initialized = true
	next.Power = power
	next.Mode = NormalizeMode(string(params.Mode))
	next.Setpoint = params.Degrees
	next.Fan = NormalizeFan(string(params.Fan))
	next.Light = params.Light

	if err := h.AC.SendAC(params); err != nil {
		p.logger.Warn("protocol send failed", "device_id", d.ID, "protocol", d.Protocol, "error", err)
		return State{}, CodeSendFailed
	}
	return next, ""
}
