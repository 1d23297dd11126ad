package service

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"regexp"
	"strings"
)

// TokenAlphabet omits characters that are easy to misread on a printed slip
// (0/O, 1/I/L).
const TokenAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const (
	minTokenLength = 4
	maxTokenLength = 32
)

var tokenPattern = regexp.MustCompile(`^[A-Z0-9]{4,32}$`)

// NormalizeToken trims and upper-cases a token as typed by a student.
func NormalizeToken(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}

// ValidTokenFormat reports whether an already normalised value looks like a
// token.
func ValidTokenFormat(value string) bool {
	return tokenPattern.MatchString(value)
}

// TokenGenerator produces random tokens from TokenAlphabet.
type TokenGenerator struct {
	alphabet string
	random   io.Reader
}

// NewTokenGenerator returns a generator backed by crypto/rand.
func NewTokenGenerator() *TokenGenerator {
	return &TokenGenerator{alphabet: TokenAlphabet, random: rand.Reader}
}

// Generate returns one token of the given length.
func (g *TokenGenerator) Generate(length int) (string, error) {
	if length < minTokenLength || length > maxTokenLength {
		return "", fmt.Errorf("token length must be between %d and %d", minTokenLength, maxTokenLength)
	}
	max := big.NewInt(int64(len(g.alphabet)))
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(g.random, max)
		if err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		b.WriteByte(g.alphabet[n.Int64()])
	}
	return b.String(), nil
}

// Batch returns count tokens that are unique within the batch.
func (g *TokenGenerator) Batch(count, length int) ([]string, error) {
	seen := make(map[string]struct{}, count)
	tokens := make([]string, 0, count)
	for attempts := 0; len(tokens) < count; attempts++ {
		if attempts > count*10 {
			return nil, fmt.Errorf("could not generate %d unique tokens of length %d", count, length)
		}
		token, err := g.Generate(length)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		tokens = append(tokens, token)
	}
	return tokens, nil
}
