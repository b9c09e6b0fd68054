package hvac

import (
	"math"
	"strings"
)

// Mode is a device's operating mode.
type Mode string

const (
	ModeAuto Mode = "auto"
	ModeCool Mode = "cool"
	ModeHeat Mode = "heat"
	ModeDry  Mode = "dry"
	ModeFan  Mode = "fan"
	ModeOff  Mode = "off"
)

// Fan is a device's fan speed.
type Fan string

const (
	FanAuto   Fan = "auto"
	FanMin    Fan = "min"
	FanLow    Fan = "low"
	FanMedium Fan = "medium"
	FanHigh   Fan = "high"
	FanMax    Fan = "max"
)

// DefaultSetpoint is the setpoint of a freshly initialised device.
const DefaultSetpoint = 24.0

// floatEpsilon is the largest setpoint or temperature delta that does not
// count as a change. floatSlack absorbs float64 rounding, so 24 against
// 23.95 stays within it.
const (
	floatEpsilon = 0.05
	floatSlack   = 1e-9
)

// NormalizeMode maps s onto a Mode; unrecognised input becomes auto.
func NormalizeMode(s string) Mode {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeCool, ModeHeat, ModeDry, ModeFan, ModeOff:
		return m
	}
	return ModeAuto
}

// NormalizeFan maps s onto a Fan; unrecognised input becomes auto.
func NormalizeFan(s string) Fan {
	switch f := Fan(strings.ToLower(strings.TrimSpace(s))); f {
	case FanMin, FanLow, FanMedium, FanHigh, FanMax:
		return f
	}
	return FanAuto
}

// State is the runtime state of one device.
type State struct {
	Initialized bool
	Power       bool
	Mode        Mode
	Setpoint    float64
	CurrentTemp float64
	Fan         Fan
	Light       bool
}

// DefaultState is the state a device takes on first reference.
func DefaultState() State {
	return State{
		Initialized: true,
		Power:       false,
		Mode:        ModeOff,
		Setpoint:    DefaultSetpoint,
		CurrentTemp: DefaultSetpoint,
		Fan:         FanAuto,
		Light:       false,
	}
}

// Changed reports whether b differs materially from a. Floats within
// 0.05 of each other are equal.
func Changed(a, b State) bool {
	if a.Initialized != b.Initialized {
		return true
	}
	if !a.Initialized {
		return false
	}
	return a.Power != b.Power ||
		a.Mode != b.Mode ||
		a.Fan != b.Fan ||
		a.Light != b.Light ||
		math.Abs(a.Setpoint-b.Setpoint) > floatEpsilon+floatSlack ||
		math.Abs(a.CurrentTemp-b.CurrentTemp) > floatEpsilon+floatSlack
}

// Store holds one State per registry index.
type Store struct {
	states []State
}

// NewStore returns a store for n devices, all uninitialised.
func NewStore(n int) *Store {
	return &Store{states: make([]State, n)}
}

// Peek returns the state at i without initialising it.
func (s *Store) Peek(i int) State {
	return s.states[i]
}

// Ensure initialises the state at i if needed and returns it.
func (s *Store) Ensure(i int) State {
	if !s.states[i].Initialized {
		s.states[i] = DefaultState()
	}
	return s.states[i]
}

// Commit replaces the state at i.
func (s *Store) Commit(i int, st State) {
	s.states[i] = st
}

// Len returns the number of slots.
func (s *Store) Len() int {
	return len(s.states)
}

// Message renders the state as the wire notification for device id.
func (s State) Message(id string) StateMessage {
	return StateMessage{
		Type:        "state",
		ID:          id,
		Power:       onOff(s.Power),
		Mode:        s.Mode,
		Setpoint:    s.Setpoint,
		CurrentTemp: s.CurrentTemp,
		Fan:         s.Fan,
		Light:       onOff(s.Light),
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
