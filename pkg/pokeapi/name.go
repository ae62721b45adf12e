package pokeapi

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeName returns the canonical lookup form of a creature name:
// surrounding whitespace trimmed, all letters lowercased.
func NormalizeName(name string) string {
	// Casers are stateful; one per call.
	return cases.Lower(language.Und).String(strings.TrimSpace(name))
}

// Capitalize returns the display form of a name: first letter uppercased,
// the rest lowercased ("PIKACHU" and "pikachu" both give "Pikachu").
func Capitalize(name string) string {
	s := NormalizeName(name)
	if s == "" {
		return s
	}
	_, size := utf8.DecodeRuneInString(s)
	return cases.Upper(language.Und).String(s[:size]) + s[size:]
}
