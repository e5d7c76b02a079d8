package random

import (
	"crypto/rand"
	"errors"
	"fmt"
)

// Alphabet is the URL-safe symbol set used for short codes.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Bytes at or above this value are rejected so every symbol is equally likely.
const maxUnbiased = 256 - (256 % len(Alphabet))

// NewRandomString returns a random string of the given length drawn from Alphabet.
func NewRandomString(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("random: length must be positive")
	}

	out := make([]byte, 0, length)
	buf := make([]byte, length*2)
	for len(out) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("random: read entropy: %w", err)
		}
		for _, b := range buf {
			if int(b) >= maxUnbiased {
				continue
			}
			out = append(out, Alphabet[int(b)%len(Alphabet)])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}
