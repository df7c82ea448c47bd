package utils

import (
	"context"
	"time"
)

// Pacer spaces out consecutive requests by a minimum interval.
type Pacer struct {
	interval time.Duration
	last     time.Time
}

// NewPacer creates a Pacer; an interval of zero never waits.
func NewPacer(interval time.Duration) *Pacer {
	return &Pacer{interval: interval}
}

// Wait blocks until the interval since the previous call has elapsed.
func (p *Pacer) Wait(ctx context.Context) error {
	if p.interval > 0 && !p.last.IsZero() {
		if wait := p.interval - time.Since(p.last); wait > 0 {
			t := time.NewTimer(wait)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
			}
		}
	}
	p.last = time.Now()
	return nil
}

// KeySet tracks which keys have been seen.
type KeySet[K comparable] struct {
	seen map[K]struct{}
}

// NewKeySet creates an empty KeySet.
func NewKeySet[K comparable]() *KeySet[K] {
	return &KeySet[K]{seen: make(map[K]struct{})}
}

// Add returns true if the key was newly added, false if already present.
func (s *KeySet[K]) Add(k K) bool {
	if _, exists := s.seen[k]; exists {
		return false
	}
	s.seen[k] = struct{}{}
	return true
}

// Contains returns true if the key has been added.
func (s *KeySet[K]) Contains(k K) bool {
	_, exists := s.seen[k]
	return exists
}
