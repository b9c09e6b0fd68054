package ir

import "fmt"

// PulseSender drives a raw IR output.
type PulseSender interface {
	SendGC(codes []uint16) error
	SendPronto(p Pronto) error
	SendWaveform(w Waveform) error
}

// Send decodes code in the given encoding and hands the result to s.
// prontoRepeats is used when a pronto code carries no R<n> token.
func Send(s PulseSender, enc Encoding, code string, prontoRepeats uint16) error {
	switch enc {
	case EncodingGC:
		codes, err := ParseGC(code)
		if err != nil {
			return err
		}
		return s.SendGC(codes)
	case EncodingPronto:
		p, err := ParsePronto(code, prontoRepeats)
		if err != nil {
			return err
		}
		return s.SendPronto(p)
	case EncodingRacepoint:
		w, err := DecodeRacepoint(code)
		if err != nil {
			return err
		}
		return s.SendWaveform(w)
	default:
		return fmt.Errorf("%w: %d", ErrUnknownEncoding, uint8(enc))
	}
}
