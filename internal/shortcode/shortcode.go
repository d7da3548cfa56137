// Package shortcode produces random candidate short codes.
//
// A Generator never checks candidates for uniqueness itself. Callers insert
// the candidate into a store and ask for another one when the insert reports
// a collision.
package shortcode

import (
	"errors"
	"fmt"
	"unicode/utf8"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// DefaultAlphabet holds the URL-safe symbols used when no alphabet is configured.
	DefaultAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	// DefaultLength is the number of symbols in a generated short code.
	DefaultLength = 7
)

var (
	ErrInvalidAlphabet = errors.New("alphabet must contain between 2 and 255 symbols")
	ErrInvalidLength   = errors.New("length must be positive")
)

// Generator draws short codes of a fixed length from a fixed alphabet.
// It is safe for concurrent use.
type Generator struct {
	alphabet string
	length   int
}

// New returns a Generator for the given alphabet and length.
// Empty alphabet or zero length fall back to the defaults.
func New(alphabet string, length int) (*Generator, error) {
	const op = "shortcode.New"

	if alphabet == "" {
		alphabet = DefaultAlphabet
	}
	if length == 0 {
		length = DefaultLength
	}

	if n := utf8.RuneCountInString(alphabet); n < 2 || n > 255 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidAlphabet)
	}
	if length < 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidLength)
	}

	return &Generator{
		alphabet: alphabet,
		length:   length,
	}, nil
}

// Generate returns a new random candidate.
func (g *Generator) Generate() (string, error) {
	const op = "shortcode.Generator.Generate"

	code, err := gonanoid.Generate(g.alphabet, g.length)
	if err != nil {
		return "", fmt.Errorf("%s: failed to generate short code: %w", op, err)
	}

	return code, nil
}
