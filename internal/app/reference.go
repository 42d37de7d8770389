package app

import (
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"

	"hotel_booking/internal/adapters/observability"
	"hotel_booking/internal/domain"
)

const (
	referenceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	referenceLength   = 10

	// Collisions on 36^10 codes are vanishingly rare; a handful of retries
	// is plenty before declaring the generator exhausted.
	maxReferenceAttempts = 6
)

// ReferenceGenerator produces unique booking reference codes. A candidate is
// only handed out after the store has durably claimed it, so two concurrent
// generators can never agree on the same code: the second insert loses with
// ErrConflict and retries with a fresh candidate.
type ReferenceGenerator struct {
	store domain.ReferenceStore
}

func NewReferenceGenerator(s domain.ReferenceStore) *ReferenceGenerator {
	return &ReferenceGenerator{store: s}
}

func (g *ReferenceGenerator) Generate(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxReferenceAttempts; attempt++ {
		code, err := randomCode(referenceLength)
		if err != nil {
			return "", fmt.Errorf("reference candidate: %w", err)
		}
		err = g.store.SaveReference(ctx, code)
		if err == nil {
			return code, nil
		}
		if errors.Is(err, domain.ErrConflict) {
			observability.ReferenceCollisions.Inc()
			continue
		}
		return "", err
	}
	return "", domain.ErrReferenceExhausted
}

// randomCode draws from crypto/rand, which is safe for concurrent callers.
// Rejection sampling keeps the 36-character alphabet unbiased.
func randomCode(n int) (string, error) {
	out := make([]byte, 0, n)
	buf := make([]byte, n*2)
	for len(out) < n {
		if _, err := crand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			// 252 is the largest multiple of 36 below 256.
			if b >= 252 {
				continue
			}
			out = append(out, referenceAlphabet[int(b)%len(referenceAlphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}
