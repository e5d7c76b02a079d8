package service

import (
	"Taglink-Backend/internal/domain"
	"Taglink-Backend/internal/repository"
	"Taglink-Backend/pkg/random"
	"errors"
	"fmt"
)

// Allocator draws random short codes. It makes no uniqueness promise on its own; uniqueness
// is enforced by storage and collisions are retried a bounded number of times.
type Allocator struct {
	length   int
	attempts int
	generate func(length int) (string, error)
}

func NewAllocator(length, attempts int) *Allocator {
	return &Allocator{
		length:   length,
		attempts: attempts,
		generate: random.NewRandomString,
	}
}

// Allocate returns a fresh code.
func (a *Allocator) Allocate() (string, error) {
	code, err := a.generate(a.length)
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return code, nil
}

// WithRetry calls insert with fresh codes until it succeeds or fails for a reason other
// than a code collision. It gives up with domain.ErrAllocationExhausted.
func (a *Allocator) WithRetry(insert func(code string) error) error {
	for i := 0; i < a.attempts; i++ {
		code, err := a.Allocate()
		if err != nil {
			return err
		}
		if err := insert(code); !errors.Is(err, repository.ErrCodeTaken) {
			return err
		}
	}
	return domain.ErrAllocationExhausted
}

// Source returns a code source that allows the same number of draws as WithRetry.
func (a *Allocator) Source() repository.CodeSource {
	drawn := 0
	return func() (string, error) {
		if drawn >= a.attempts {
			return "", domain.ErrAllocationExhausted
		}
		drawn++
		return a.Allocate()
	}
}
