package acproto

import "strings"

// OpMode is an operating mode understood by every named protocol.
type OpMode string

const (
	ModeOff  OpMode = "off"
	ModeAuto OpMode = "auto"
	ModeCool OpMode = "cool"
	ModeHeat OpMode = "heat"
	ModeDry  OpMode = "dry"
	ModeFan  OpMode = "fan"
)

// FanSpeed is a normalised fan speed.
type FanSpeed string

const (
	FanAuto   FanSpeed = "auto"
	FanMin    FanSpeed = "min"
	FanLow    FanSpeed = "low"
	FanMedium FanSpeed = "medium"
	FanHigh   FanSpeed = "high"
	FanMax    FanSpeed = "max"
)

// SwingV is a vertical vane position.
type SwingV string

const (
	SwingVOff     SwingV = "off"
	SwingVAuto    SwingV = "auto"
	SwingVHighest SwingV = "highest"
	SwingVHigh    SwingV = "high"
	SwingVMiddle  SwingV = "middle"
	SwingVLow     SwingV = "low"
	SwingVLowest  SwingV = "lowest"
)

// SwingH is a horizontal vane position.
type SwingH string

const (
	SwingHOff      SwingH = "off"
	SwingHAuto     SwingH = "auto"
	SwingHLeftMax  SwingH = "leftmax"
	SwingHLeft     SwingH = "left"
	SwingHMiddle   SwingH = "middle"
	SwingHRight    SwingH = "right"
	SwingHRightMax SwingH = "rightmax"
	SwingHWide     SwingH = "wide"
)

// DefaultModel asks the protocol encoder for its default model variant.
const DefaultModel = -1

// Params is the full parameter set of one named-protocol transmission.
type Params struct {
	Protocol string   `json:"protocol"`
	Model    int      `json:"model"`
	Power    bool     `json:"power"`
	Mode     OpMode   `json:"mode"`
	Degrees  float64  `json:"degrees"`
	Celsius  bool     `json:"celsius"`
	Fan      FanSpeed `json:"fan"`
	SwingV   SwingV   `json:"swingv"`
	SwingH   SwingH   `json:"swingh"`
	Quiet    bool     `json:"quiet"`
	Turbo    bool     `json:"turbo"`
	Econo    bool     `json:"econo"`
	Light    bool     `json:"light"`
	Filter   bool     `json:"filter"`
	Clean    bool     `json:"clean"`
	Beep     bool     `json:"beep"`
	Sleep    int      `json:"sleep"`
	Clock    int      `json:"clock"`
}

// Sender encodes and transmits Params with a named protocol.
type Sender interface {
	SendAC(p Params) error
}

// ParseBool coerces on/off style words. Anything else yields def.
func ParseBool(s string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "1", "true", "yes":
		return true
	case "off", "0", "false", "no":
		return false
	}
	return def
}

// ParseOpMode coerces a mode word, returning def when unrecognised.
func ParseOpMode(s string, def OpMode) OpMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "auto", "automatic":
		return ModeAuto
	case "off", "stop":
		return ModeOff
	case "cool", "cooling":
		return ModeCool
	case "heat", "heating":
		return ModeHeat
	case "dry", "drying", "dehumidify":
		return ModeDry
	case "fan", "fanonly", "fan_only", "fan only", "vent":
		return ModeFan
	}
	return def
}

// ParseFanSpeed coerces a fan word, returning def when unrecognised.
func ParseFanSpeed(s string, def FanSpeed) FanSpeed {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "auto", "automatic":
		return FanAuto
	case "min", "minimum", "lowest":
		return FanMin
	case "low", "lo":
		return FanLow
	case "med", "medium", "mid":
		return FanMedium
	case "high", "hi":
		return FanHigh
	case "max", "maximum", "highest":
		return FanMax
	}
	return def
}

// ParseSwingV coerces a vertical swing word, returning def when unrecognised.
func ParseSwingV(s string, def SwingV) SwingV {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "stop":
		return SwingVOff
	case "auto", "on", "swing":
		return SwingVAuto
	case "highest", "max", "top":
		return SwingVHighest
	case "high", "hi":
		return SwingVHigh
	case "middle", "mid", "med", "centre", "center":
		return SwingVMiddle
	case "low", "lo":
		return SwingVLow
	case "lowest", "min", "bottom":
		return SwingVLowest
	}
	return def
}

// ParseSwingH coerces a horizontal swing word, returning def when unrecognised.
func ParseSwingH(s string, def SwingH) SwingH {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "stop":
		return SwingHOff
	case "auto", "on", "swing":
		return SwingHAuto
	case "leftmax", "left max", "maxleft", "max left":
		return SwingHLeftMax
	case "left":
		return SwingHLeft
	case "middle", "mid", "centre", "center":
		return SwingHMiddle
	case "right":
		return SwingHRight
	case "rightmax", "right max", "maxright", "max right":
		return SwingHRightMax
	case "wide":
		return SwingHWide
	}
	return def
}
