package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// ProntoMinLength is the fewest data words a pronto code may carry.
const ProntoMinLength = 6

func isSeparator(r rune) bool {
	return r == ',' || r == ';' || r == ' ' || r == '\t'
}

// tokenize splits on runs of separators, ignoring leading and trailing ones.
func tokenize(code string) []string {
	return strings.FieldsFunc(code, isSeparator)
}

// ParseGC decodes a Global Caché style code into its integer sequence.
// Optional "sendir," and "1:1,1," prefixes are stripped first.
func ParseGC(code string) ([]uint16, error) {
	code = strings.TrimSpace(code)
	code = strings.TrimPrefix(code, "sendir,")
	code = strings.TrimPrefix(code, "1:1,1,")

	tokens := tokenize(code)
	if len(tokens) == 0 {
		return nil, ErrEmptyCode
	}

	out := make([]uint16, 0, len(tokens))
	for _, tok := range tokens {
		v, err := strconv.ParseUint(tok, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidToken, tok)
		}
		out = append(out, uint16(v))
	}
	return out, nil
}

// FormatGC renders codes back into the comma separated GC form.
func FormatGC(codes []uint16) string {
	var b strings.Builder
	for i, c := range codes {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatUint(uint64(c), 10))
	}
	return b.String()
}

// Pronto is a decoded pronto code.
type Pronto struct {
	Codes   []uint16 `json:"codes"`
	Repeats uint16   `json:"repeats"`
}

// ParsePronto decodes a pronto hex code. A leading R<digits> token overrides
// defaultRepeats and is not counted as data.
func ParsePronto(code string, defaultRepeats uint16) (Pronto, error) {
	tokens := tokenize(code)
	if len(tokens) == 0 {
		return Pronto{}, ErrEmptyCode
	}

	p := Pronto{Repeats: defaultRepeats}
	if n, ok := repeatToken(tokens[0]); ok {
		p.Repeats = n
		tokens = tokens[1:]
	}
	if len(tokens) < ProntoMinLength {
		return Pronto{}, fmt.Errorf("%w: %d words, need %d", ErrProntoTooShort, len(tokens), ProntoMinLength)
	}

	p.Codes = make([]uint16, 0, len(tokens))
	for _, tok := range tokens {
		v, err := strconv.ParseUint(tok, 16, 16)
		if err != nil {
			return Pronto{}, fmt.Errorf("%w: %q", ErrInvalidToken, tok)
		}
		p.Codes = append(p.Codes, uint16(v))
	}
	return p, nil
}

func repeatToken(tok string) (uint16, bool) {
	if len(tok) < 2 || (tok[0] != 'R' && tok[0] != 'r') {
		return 0, false
	}
	for i := 1; i < len(tok); i++ {
		if tok[i] < '0' || tok[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseUint(tok[1:], 10, 16)
	if err != nil {
		return 0, false
	}
	return uint16(n), true
}
