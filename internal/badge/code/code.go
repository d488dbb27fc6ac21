// Package code builds the human-readable badge codes printed on badges.
package code

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	fallbackPrefix = "BADGE"
	maxWordLen     = 20
	minSuffix      = 1000
	maxSuffix      = 9999
)

// Source yields the numeric suffix. Tests supply a deterministic one.
type Source interface {
	IntN(n int) int
}

type defaultSource struct{}

func (defaultSource) IntN(n int) int { return rand.IntN(n) }

// Generator produces FIRST-LAST-NNNN codes.
type Generator struct {
	src Source
}

func NewGenerator(src Source) *Generator {
	if src == nil {
		src = defaultSource{}
	}
	return &Generator{src: src}
}

// Generate returns a code for name. Accents are folded and anything but
// ASCII letters dropped; the first and last remaining words form the
// prefix, each cut to 20 letters so a code stays short enough to type.
// Names with no usable letters get BADGE-NNNN.
func (g *Generator) Generate(name string) string {
	suffix := minSuffix + g.src.IntN(maxSuffix-minSuffix+1)
	return fmt.Sprintf("%s-%04d", Prefix(name), suffix)
}

// Prefix returns the name-derived part of a code.
func Prefix(name string) string {
	words := strings.Fields(fold(name))
	switch len(words) {
	case 0:
		return fallbackPrefix
	case 1:
		return truncate(words[0])
	default:
		return truncate(words[0]) + "-" + truncate(words[len(words)-1])
	}
}

func truncate(word string) string {
	if len(word) > maxWordLen {
		return word[:maxWordLen]
	}
	return word
}

// Normalize canonicalizes user-entered codes for lookup.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			b.WriteRune(unicode.ToUpper(r))
		case unicode.IsSpace(r), r == '-', r == '_', r == '.':
			b.WriteRune(' ')
		}
	}
	return b.String()
}
