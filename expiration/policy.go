package expiration

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Policy is the interface for the expiration time checker.
type Policy interface {
	// IsExpired reports whether an entry that expires at expiresAt is expired at now.
	IsExpired(now, expiresAt time.Time) bool
}

// DeadlinePolicy expires an entry at its expiration time.
type DeadlinePolicy struct{}

var _ Policy = DeadlinePolicy{}

// IsExpired returns true if now is at or after the expiration time.
func (DeadlinePolicy) IsExpired(now, expiresAt time.Time) bool {
	if expiresAt.IsZero() {
		return false
	}
	return !expiresAt.After(now)
}

// NeverPolicy never expires an entry.
type NeverPolicy struct{}

var _ Policy = NeverPolicy{}

// IsExpired always returns false.
func (NeverPolicy) IsExpired(now, expiresAt time.Time) bool {
	return false
}

// EarlyPolicy can expire an entry before its expiration time.
// Entries loaded together then tend to be reloaded at different times instead of all at once.
type EarlyPolicy struct {
	// Duration is how much earlier the entry can expire.
	Duration time.Duration

	// Percentage is the chance (between 0 and 1) that the entry expires early.
	Percentage float64

	// Random is the random number generator to decide early expiration.
	// If nil, it uses system default random generator.
	Random *rand.Rand

	mu sync.Mutex
}

var _ Policy = (*EarlyPolicy)(nil)

// IsExpired checks the expiration time as DeadlinePolicy does, but with the probability of
// Percentage it checks it at now + Duration instead.
func (p *EarlyPolicy) IsExpired(now, expiresAt time.Time) bool {
	if expiresAt.IsZero() {
		return false
	}
	if p.randFloat64() > p.Percentage {
		return !expiresAt.After(now)
	}
	return !expiresAt.After(now.Add(p.Duration))
}

func (p *EarlyPolicy) randFloat64() float64 {
	if p.Random == nil {
		return rand.Float64()
	}

	// rand.Rand is not safe for concurrent use
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Random.Float64()
}
