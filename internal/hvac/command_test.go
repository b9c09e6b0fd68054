package hvac

import (
	"errors"
	"math"
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{"default is send", `{"id":"lounge","power":"on"}`, "send"},
		{"explicit send", `{"cmd":"send","id":"lounge"}`, "send"},
		{"list", `{"cmd":"list"}`, "list"},
		{"get", `{"cmd":"get","id":"lounge"}`, "get"},
		{"get_all", `{"cmd":"get_all"}`, "get_all"},
		{"raw", `{"cmd":"raw","code":"0000"}`, "raw"},
		{"help", `{"cmd":"help"}`, "help"},
		{"unknown", `{"cmd":"reboot"}`, "reboot"},
		{"duplicate key keeps last", `{"cmd":"list","cmd":"help"}`, "help"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := Decode([]byte(tt.line))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if cmd.Name() != tt.want {
				t.Errorf("Name() = %q, want %q", cmd.Name(), tt.want)
			}
		})
	}
}

func TestDecodeInvalid(t *testing.T) {
	for _, line := range []string{``, `not json`, `{"cmd":`, `[1,2]`, `"list"`, `42`} {
		if _, err := Decode([]byte(line)); !errors.Is(err, ErrInvalidJSON) {
			t.Errorf("Decode(%q) error = %v, want ErrInvalidJSON", line, err)
		}
	}
}

func TestDecodeFields(t *testing.T) {
	cmd, err := Decode([]byte(`{"id":"lounge","temp":"22.5","power":false,"light":"on","model":3,"current_temp":null}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	send, ok := cmd.(Send)
	if !ok {
		t.Fatalf("Decode() = %T, want Send", cmd)
	}

	if got := send.ID.Text(); got != "lounge" {
		t.Errorf("ID = %q, want lounge", got)
	}
	if got := send.Temp.FloatOr(0); got != 22.5 {
		t.Errorf("Temp = %v, want 22.5", got)
	}
	if send.Power.Bool(true, true) {
		t.Error("Power = true, want false from JSON bool")
	}
	if !send.Light.Bool(false, false) {
		t.Error("Light = false, want true from \"on\"")
	}
	if got := send.Model.IntOr(-1); got != 3 {
		t.Errorf("Model = %d, want 3", got)
	}
	if send.CurrentTemp.Present() {
		t.Error("null current_temp should be absent")
	}
	if send.Mode.Present() {
		t.Error("missing mode should be absent")
	}
}

func TestValueBool(t *testing.T) {
	tests := []struct {
		name      string
		v         Value
		ifAbsent  bool
		ifUnknown bool
		want      bool
	}{
		{"absent", Value{}, true, false, true},
		{"bool true", BoolValue(true), false, false, true},
		{"bool false", BoolValue(false), true, true, false},
		{"number nonzero", NumberValue(1), false, false, true},
		{"number zero", NumberValue(0), true, true, false},
		{"word on", TextValue("on"), false, false, true},
		{"word off", TextValue("OFF"), true, true, false},
		{"unknown word", TextValue("maybe"), true, false, false},
		{"unknown word keeps fallback", TextValue("maybe"), false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.Bool(tt.ifAbsent, tt.ifUnknown); got != tt.want {
				t.Errorf("Bool() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValueText(t *testing.T) {
	if got := NumberValue(1).Text(); got != "1" {
		t.Errorf("NumberValue(1).Text() = %q, want 1", got)
	}
	if got := (Value{}).TextOr("send"); got != "send" {
		t.Errorf("TextOr() = %q, want send", got)
	}
	if got := TextValue("").TextOr("send"); got != "" {
		t.Errorf("TextOr() on empty string = %q, want empty", got)
	}
	if got := TextValue("abc").IntOr(7); got != 7 {
		t.Errorf("IntOr() = %d, want 7", got)
	}
}

func TestValueFloatRejectsNonFinite(t *testing.T) {
	tests := []struct {
		name string
		v    Value
	}{
		{"number NaN", NumberValue(math.NaN())},
		{"number +Inf", NumberValue(math.Inf(1))},
		{"number -Inf", NumberValue(math.Inf(-1))},
		{"text NaN", TextValue("NaN")},
		{"text inf", TextValue("-inf")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if f, ok := tt.v.Float(); ok {
				t.Errorf("Float() = %v, true; want not ok", f)
			}
			if got := tt.v.FloatOr(21); got != 21 {
				t.Errorf("FloatOr(21) = %v, want 21", got)
			}
		})
	}
}
