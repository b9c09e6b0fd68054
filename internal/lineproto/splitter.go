package lineproto

// MaxLineLength bounds one accumulated line. Bytes past the limit are
// discarded, so an overlong line decodes as invalid JSON.
const MaxLineLength = 4096

// Splitter turns a byte stream into lines.
type Splitter struct {
	buf []byte
}

// Feed consumes p and calls emit for every completed non-empty line. The
// slice passed to emit is only valid for the duration of the call.
func (s *Splitter) Feed(p []byte, emit func(line []byte)) {
	for _, c := range p {
		switch c {
		case '\r':
		case '\n':
			if len(s.buf) > 0 {
				emit(s.buf)
				s.buf = s.buf[:0]
			}
		default:
			if len(s.buf) < MaxLineLength {
				s.buf = append(s.buf, c)
			}
		}
	}
}

// Pending returns the number of bytes buffered towards the next line.
func (s *Splitter) Pending() int {
	return len(s.buf)
}
