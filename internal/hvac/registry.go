package hvac

import (
	"fmt"
	"maps"
	"math"
	"strconv"

	"github.com/nerrad567/irhvac-core/internal/acproto"
	"github.com/nerrad567/irhvac-core/internal/infrastructure/config"
	"github.com/nerrad567/irhvac-core/internal/ir"
)

// DeviceConfig is the immutable configuration of one climate device.
type DeviceConfig struct {
	ID       string
	Protocol string
	Emitter  int
	Model    int

	// Custom is non-nil for devices driven by user-supplied codes.
	Custom *CustomCodes
}

// IsCustom reports whether the device is driven by user-supplied codes.
func (d DeviceConfig) IsCustom() bool {
	return d.Custom != nil
}

// CustomCodes holds the code strings of a custom device.
type CustomCodes struct {
	Encoding ir.Encoding
	Off      string
	Temps    map[int]string
}

// CodeFor returns the code for the integer-rounded temperature.
func (c *CustomCodes) CodeFor(temp float64) (string, bool) {
	code, ok := c.Temps[int(math.Round(temp))]
	return code, ok && code != ""
}

func (c *CustomCodes) equal(o *CustomCodes) bool {
	if c == nil || o == nil {
		return c == o
	}
	return c.Encoding == o.Encoding && c.Off == o.Off && maps.Equal(c.Temps, o.Temps)
}

func (d DeviceConfig) equal(o DeviceConfig) bool {
	return d.ID == o.ID && d.Protocol == o.Protocol && d.Emitter == o.Emitter &&
		d.Model == o.Model && d.Custom.equal(o.Custom)
}

// Registry maps device identifiers to configuration. It is immutable once
// built; reconfiguration replaces the whole Registry.
type Registry struct {
	devices []DeviceConfig
	index   map[string]int
}

// NewRegistry builds a Registry from configuration, rejecting bindings to
// emitters outside [0, emitterCount).
func NewRegistry(cfgs []config.HVACConfig, emitterCount int) (*Registry, error) {
	if len(cfgs) > config.MaxHVACs {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyDevices, len(cfgs), config.MaxHVACs)
	}

	r := &Registry{
		devices: make([]DeviceConfig, 0, len(cfgs)),
		index:   make(map[string]int, len(cfgs)),
	}
	for i, c := range cfgs {
		if c.ID == "" {
			return nil, fmt.Errorf("%w: entry %d", ErrEmptyID, i)
		}
		if _, dup := r.index[c.ID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateID, c.ID)
		}
		if c.Emitter < 0 || c.Emitter >= emitterCount {
			return nil, fmt.Errorf("%w: %q uses emitter %d", ErrUnboundEmitter, c.ID, c.Emitter)
		}

		d := DeviceConfig{
			ID:       c.ID,
			Protocol: c.Protocol,
			Emitter:  c.Emitter,
			Model:    c.ModelOrDefault(),
		}
		if c.IsCustom() {
			codes, err := customCodes(c.Custom)
			if err != nil {
				return nil, fmt.Errorf("%w: %q: %w", ErrInvalidCustom, c.ID, err)
			}
			d.Custom = codes
			d.Protocol = config.ProtocolCustom
		} else {
			d.Protocol = acproto.Canonical(c.Protocol)
		}

		r.index[c.ID] = len(r.devices)
		r.devices = append(r.devices, d)
	}
	return r, nil
}

func customCodes(c *config.CustomConfig) (*CustomCodes, error) {
	if c == nil {
		return nil, fmt.Errorf("missing custom section")
	}
	enc, err := ir.ParseEncoding(c.Encoding)
	if err != nil {
		return nil, err
	}
	if len(c.Temps) > config.MaxCustomTemps {
		return nil, fmt.Errorf("%d temperature codes, limit is %d", len(c.Temps), config.MaxCustomTemps)
	}

	temps := make(map[int]string, len(c.Temps))
	for key, code := range c.Temps {
		t, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("temperature %q is not an integer", key)
		}
		if _, dup := temps[t]; dup {
			return nil, fmt.Errorf("temperature %d listed twice", t)
		}
		temps[t] = code
	}
	return &CustomCodes{Encoding: enc, Off: c.Off, Temps: temps}, nil
}

// Lookup returns the device and its arena index.
func (r *Registry) Lookup(id string) (int, DeviceConfig, bool) {
	i, ok := r.index[id]
	if !ok {
		return -1, DeviceConfig{}, false
	}
	return i, r.devices[i], true
}

// Device returns the device at arena index i.
func (r *Registry) Device(i int) DeviceConfig {
	return r.devices[i]
}

// Len returns the number of devices.
func (r *Registry) Len() int {
	return len(r.devices)
}

// Devices returns the devices in configuration order.
func (r *Registry) Devices() []DeviceConfig {
	out := make([]DeviceConfig, len(r.devices))
	copy(out, r.devices)
	return out
}
