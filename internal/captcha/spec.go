package captcha

import "strings"

// Alphabet restricts which characters of a model answer survive
// normalization.
type Alphabet int

const (
	Alphanumeric Alphabet = iota
	Numeric
)

// Spec describes one site's expected CAPTCHA answer shape. MinLen == MaxLen
// expresses an exact-length requirement.
type Spec struct {
	Alphabet Alphabet
	MinLen   int
	MaxLen   int
	Prompt   string
}

func (a Alphabet) keep(r rune) bool {
	switch a {
	case Numeric:
		return r >= '0' && r <= '9'
	default:
		return r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'
	}
}

// Normalize strips the raw model answer to the spec alphabet and reports
// whether the result satisfies the length constraint.
func (s Spec) Normalize(raw string) (string, bool) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		if s.Alphabet.keep(r) {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if len(cleaned) < s.MinLen || len(cleaned) > s.MaxLen {
		return cleaned, false
	}
	return cleaned, true
}
