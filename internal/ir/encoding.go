package ir

import (
	"errors"
	"fmt"
	"strings"
)

// Encoding identifies the textual format of an IR code.
type Encoding uint8

const (
	EncodingPronto Encoding = iota
	EncodingGC
	EncodingRacepoint
)

// Errors returned by the decoders.
var (
	ErrUnknownEncoding = errors.New("ir: unknown encoding")
	ErrEmptyCode       = errors.New("ir: code has no tokens")
	ErrInvalidToken    = errors.New("ir: invalid token")
	ErrProntoTooShort  = errors.New("ir: pronto code too short")
	ErrRacepointLength = errors.New("ir: racepoint code must hold a multiple of 4 hex digits, at least 8")
	ErrNoCarrier       = errors.New("ir: racepoint code has no carrier frequency word")
	ErrNoPulses        = errors.New("ir: racepoint code has no pulses")
)

var encodingNames = [...]string{
	EncodingPronto:    "pronto",
	EncodingGC:        "gc",
	EncodingRacepoint: "racepoint",
}

// ParseEncoding maps an encoding name to its Encoding. Matching ignores case.
func ParseEncoding(name string) (Encoding, error) {
	for i, n := range encodingNames {
		if strings.EqualFold(name, n) {
			return Encoding(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
}

func (e Encoding) String() string {
	if int(e) < len(encodingNames) {
		return encodingNames[e]
	}
	return fmt.Sprintf("Encoding(%d)", uint8(e))
}

// MarshalText implements encoding.TextMarshaler.
func (e Encoding) MarshalText() ([]byte, error) {
	if int(e) >= len(encodingNames) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownEncoding, uint8(e))
	}
	return []byte(encodingNames[e]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *Encoding) UnmarshalText(text []byte) error {
	v, err := ParseEncoding(string(text))
	if err != nil {
		return err
	}
	*e = v
	return nil
}
