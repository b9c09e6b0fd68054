package hvac

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/nerrad567/irhvac-core/internal/acproto"
)

type valueKind uint8

const (
	kindAbsent valueKind = iota
	kindString
	kindNumber
	kindBool
	kindOther
)

// Value is one loosely typed command field. Clients send the same field as
// a string, number or boolean, so interpretation is deferred to the reader.
// The zero Value is absent.
type Value struct {
	kind valueKind
	str  string
	num  float64
	b    bool
}

// TextValue returns a string Value.
func TextValue(s string) Value { return Value{kind: kindString, str: s} }

// NumberValue returns a numeric Value.
func NumberValue(f float64) Value { return Value{kind: kindNumber, num: f} }

// BoolValue returns a boolean Value.
func BoolValue(b bool) Value { return Value{kind: kindBool, b: b} }

// UnmarshalJSON implements json.Unmarshaler. null decodes as absent.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case 'n':
		*v = Value{}
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = TextValue(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = BoolValue(b)
	case '{', '[':
		*v = Value{kind: kindOther}
	default:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return err
		}
		*v = NumberValue(f)
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindString:
		return json.Marshal(v.str)
	case kindNumber:
		return json.Marshal(v.num)
	case kindBool:
		return json.Marshal(v.b)
	}
	return []byte("null"), nil
}

// Present reports whether the field was supplied.
func (v Value) Present() bool {
	return v.kind != kindAbsent
}

// Text returns the field as a string. Numbers and booleans are formatted;
// absent and structured values give "".
func (v Value) Text() string {
	switch v.kind {
	case kindString:
		return v.str
	case kindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case kindBool:
		return strconv.FormatBool(v.b)
	}
	return ""
}

// TextOr returns Text, or def when the field is absent.
func (v Value) TextOr(def string) string {
	if !v.Present() {
		return def
	}
	return v.Text()
}

// Float returns the field as a number; numeric strings are accepted.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case kindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return 0, false
		}
		return v.num, true
	case kindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// FloatOr returns Float, or def when the field is absent or not numeric.
func (v Value) FloatOr(def float64) float64 {
	if f, ok := v.Float(); ok {
		return f
	}
	return def
}

// IntOr returns the field truncated to an int, or def when absent or not numeric.
func (v Value) IntOr(def int) int {
	f, ok := v.Float()
	if !ok || f > math.MaxInt32 || f < math.MinInt32 {
		return def
	}
	return int(f)
}

// Bool interprets the field as a flag. ifAbsent is returned for a missing
// field and ifUnknown for a string that is not a recognised boolean word.
func (v Value) Bool(ifAbsent, ifUnknown bool) bool {
	switch v.kind {
	case kindAbsent:
		return ifAbsent
	case kindBool:
		return v.b
	case kindNumber:
		return v.num != 0
	case kindString:
		return acproto.ParseBool(v.str, ifUnknown)
	}
	return ifUnknown
}

// Command is one decoded client request. The concrete types are List,
// Help, Get, GetAll, Raw, Send and Unknown.
type Command interface {
	// Name is the cmd value the request carried.
	Name() string
	command()
}

// List asks for the configured emitters and devices.
type List struct{}

// Help asks for the command summary.
type Help struct{}

// GetAll asks for every device state.
type GetAll struct{}

// Get asks for one device state.
type Get struct {
	ID Value `json:"id"`
}

// Raw transmits a code directly, bypassing device state.
type Raw struct {
	Emitter  Value `json:"emitter"`
	Encoding Value `json:"encoding"`
	Code     Value `json:"code"`
}

// Send drives a device. Custom devices read Code, Encoding and Temp to
// choose a code; named-protocol devices read the remaining fields.
type Send struct {
	ID          Value `json:"id"`
	Command     Value `json:"command"`
	Power       Value `json:"power"`
	Mode        Value `json:"mode"`
	Temp        Value `json:"temp"`
	Fan         Value `json:"fan"`
	Light       Value `json:"light"`
	CurrentTemp Value `json:"current_temp"`

	Code     Value `json:"code"`
	Encoding Value `json:"encoding"`

	Model   Value `json:"model"`
	Celsius Value `json:"celsius"`
	SwingV  Value `json:"swingv"`
	SwingH  Value `json:"swingh"`
	Quiet   Value `json:"quiet"`
	Turbo   Value `json:"turbo"`
	Econo   Value `json:"econo"`
	Filter  Value `json:"filter"`
	Clean   Value `json:"clean"`
	Beep    Value `json:"beep"`
	Sleep   Value `json:"sleep"`
	Clock   Value `json:"clock"`
}

// Unknown is any request whose cmd is not recognised.
type Unknown struct {
	Cmd string
}

func (List) Name() string      { return "list" }
func (Help) Name() string      { return "help" }
func (GetAll) Name() string    { return "get_all" }
func (Get) Name() string       { return "get" }
func (Raw) Name() string       { return "raw" }
func (Send) Name() string      { return "send" }
func (u Unknown) Name() string { return u.Cmd }

func (List) command()    {}
func (Help) command()    {}
func (GetAll) command()  {}
func (Get) command()     {}
func (Raw) command()     {}
func (Send) command()    {}
func (Unknown) command() {}

// wireCommand is the union of every field any command reads.
type wireCommand struct {
	Cmd     Value `json:"cmd"`
	Emitter Value `json:"emitter"`
	Send
}

// Decode parses one JSON object into a Command. A missing cmd means send.
func Decode(data []byte) (Command, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrInvalidJSON
	}

	var w wireCommand
	if err := json.Unmarshal(trimmed, &w); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
	}

	switch name := w.Cmd.TextOr("send"); name {
	case "send":
		return w.Send, nil
	case "list":
		return List{}, nil
	case "get":
		return Get{ID: w.ID}, nil
	case "get_all":
		return GetAll{}, nil
	case "raw":
		return Raw{Emitter: w.Emitter, Encoding: w.Encoding, Code: w.Code}, nil
	case "help":
		return Help{}, nil
	default:
		return Unknown{Cmd: name}, nil
	}
}
