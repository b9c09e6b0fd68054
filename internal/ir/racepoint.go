package ir

const (
	minCarrierHz = 20000
	maxCarrierHz = 60000

	// MaxMarkMicros is the longest single mark the LED driver accepts.
	MaxMarkMicros = 65535

	hexDigitsPerWord = 4
	minHexDigits     = 8
)

// Pulse is one mark (LED modulated) or space (LED off) period.
type Pulse struct {
	Mark   bool   `json:"mark"`
	Micros uint32 `json:"us"`
}

// Waveform is a synthesised pulse program at a fixed carrier frequency.
// It always ends with a zero length space.
type Waveform struct {
	FrequencyHz uint32  `json:"frequency"`
	Pulses      []Pulse `json:"pulses"`
}

// MarkTotal returns the summed mark time in microseconds.
func (w Waveform) MarkTotal() uint64 {
	var n uint64
	for _, p := range w.Pulses {
		if p.Mark {
			n += uint64(p.Micros)
		}
	}
	return n
}

// DecodeRacepoint synthesises a waveform from a racepoint hex code.
//
// Non-hex characters are ignored. The first 16-bit word in
// [20000, 60000] is the carrier frequency; words before it are discarded
// and trailing zero words after it are trimmed. Each remaining word is a
// duration in carrier half-cycles, alternating mark and space.
func DecodeRacepoint(code string) (Waveform, error) {
	digits := make([]byte, 0, len(code))
	for i := 0; i < len(code); i++ {
		if _, ok := hexValue(code[i]); ok {
			digits = append(digits, code[i])
		}
	}
	if len(digits) < minHexDigits || len(digits)%hexDigitsPerWord != 0 {
		return Waveform{}, ErrRacepointLength
	}

	words := make([]uint16, 0, len(digits)/hexDigitsPerWord)
	for i := 0; i < len(digits); i += hexDigitsPerWord {
		var w uint16
		for _, c := range digits[i : i+hexDigitsPerWord] {
			v, _ := hexValue(c)
			w = w<<4 | uint16(v)
		}
		words = append(words, w)
	}

	start := -1
	for i, w := range words {
		if w >= minCarrierHz && w <= maxCarrierHz {
			start = i
			break
		}
	}
	if start < 0 {
		return Waveform{}, ErrNoCarrier
	}
	freq := uint64(words[start])
	timings := words[start+1:]

	for len(timings) > 0 && timings[len(timings)-1] == 0 {
		timings = timings[:len(timings)-1]
	}
	if len(timings) == 0 {
		return Waveform{}, ErrNoPulses
	}

	wf := Waveform{
		FrequencyHz: uint32(freq),
		Pulses:      make([]Pulse, 0, len(timings)+1),
	}
	for i, t := range timings {
		us := uint32((uint64(t)*1_000_000 + freq/2) / freq)
		if i%2 == 1 {
			wf.Pulses = append(wf.Pulses, Pulse{Mark: false, Micros: us})
			continue
		}
		for us > MaxMarkMicros {
			wf.Pulses = append(wf.Pulses, Pulse{Mark: true, Micros: MaxMarkMicros})
			us -= MaxMarkMicros
		}
		wf.Pulses = append(wf.Pulses, Pulse{Mark: true, Micros: us})
	}
	wf.Pulses = append(wf.Pulses, Pulse{Mark: false, Micros: 0})
	return wf, nil
}

func hexValue(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
