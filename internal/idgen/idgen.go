// Package idgen generates opaque, URL-safe identifiers backed by nanoid.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Alphabet is the character set used for the random portion of every ID.
const Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const (
	// TokenPrefix marks login session tokens.
	TokenPrefix = "st_"
	// TokenLength is the random length of a session token (about 190 bits).
	TokenLength = 32

	// RequestPrefix marks request correlation ids.
	RequestPrefix = "req_"
	// RequestLength is the random length of a request id.
	RequestLength = 12
)

// SessionToken returns a new login session token.
func SessionToken() (string, error) {
	return Generate(TokenPrefix, TokenLength)
}

// RequestID returns a new request correlation id.
func RequestID() (string, error) {
	return Generate(RequestPrefix, RequestLength)
}

// Generate returns prefix followed by n random characters from Alphabet.
func Generate(prefix string, n int) (string, error) {
	id, err := nanoid.Generate(Alphabet, n)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}
