// Package shortcode generates and validates the short codes that key shortened URLs.
package shortcode

import (
	"fmt"

	"github.com/vadimbarashkov/shorturls/internal/entity"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// Alphabet is the set of characters a short code may consist of.
	Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	// MaxLength is the maximum length of a short code.
	MaxLength = 20
	// DefaultLength is the length of generated codes when none is configured.
	DefaultLength = 6
)

// Generator produces random alphanumeric short codes.
// Generated codes carry no uniqueness guarantee; callers must handle collisions.
type Generator struct {
	length int
}

// NewGenerator returns a Generator producing codes of the given length.
// Lengths outside 1..MaxLength fall back to DefaultLength.
func NewGenerator(length int) *Generator {
	if length <= 0 || length > MaxLength {
		length = DefaultLength
	}
	return &Generator{length: length}
}

// Length returns the length of generated codes.
func (g *Generator) Length() int {
	return g.length
}

// Generate returns a new random short code.
func (g *Generator) Generate() (string, error) {
	const op = "shortcode.Generator.Generate"

	code, err := gonanoid.Generate(Alphabet, g.length)
	if err != nil {
		return "", fmt.Errorf("%s: failed to generate short code: %w", op, err)
	}

	return code, nil
}

// Validate checks that code is a non-empty ASCII alphanumeric string of at most MaxLength characters.
func Validate(code string) error {
	if code == "" || len(code) > MaxLength {
		return entity.ErrInvalidShortCode
	}

	for i := 0; i < len(code); i++ {
		if !isAlphanumeric(code[i]) {
			return entity.ErrInvalidShortCode
		}
	}

	return nil
}

func isAlphanumeric(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}
