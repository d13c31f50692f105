// Package slug generates and checks the short identifiers used in public links.
package slug

import (
	"fmt"
	"regexp"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// Alphabet holds the symbols generated slugs are drawn from.
	Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	// Length is the length of generated slugs.
	Length = 6
	// MaxLength is the longest slug accepted in a request path.
	MaxLength = 32
)

var pattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,32}$`)

// Generator produces random slugs. It holds no state and is safe for concurrent use.
type Generator struct{}

// NewGenerator creates a new slug generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate returns a new random slug. Uniqueness is not guaranteed.
func (g *Generator) Generate() (string, error) {
	const op = "slug.Generator.Generate"

	s, err := gonanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("%s: failed to generate slug: %w", op, err)
	}

	return s, nil
}

// IsValid reports whether s is acceptable as a slug in a request path.
func IsValid(s string) bool {
	return pattern.MatchString(s)
}
