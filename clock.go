package coalescingloader

import (
	"math/rand/v2"
	"time"
)

// Clock is an interface for getting the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc is a function type that implements the Clock interface.
type ClockFunc func() time.Time

// Now calls the function.
func (f ClockFunc) Now() time.Time {
	return f()
}

// SystemClock is the default clock that uses time.Now.
var SystemClock Clock = ClockFunc(time.Now)

// JitteredClock is a clock that shifts the current time forward by a random duration.
// It is useful for spreading the expiration times of entries written back to a shared cache,
// so that entries loaded in the same flush do not expire at the same moment.
type JitteredClock struct {
	// Clock is the clock that provides the current time.
	Clock Clock

	// MaxJitter is the upper bound (exclusive) of the random shift.
	// Zero or negative disables the jitter.
	MaxJitter time.Duration

	// Random is the random number generator.
	// If nil, it uses system default random generator.
	Random *rand.Rand
}

// Now returns the current time shifted by a random duration in [0, MaxJitter).
func (c *JitteredClock) Now() time.Time {
	now := c.Clock.Now()
	if c.MaxJitter <= 0 {
		return now
	}
	return now.Add(time.Duration(c.randInt64N(int64(c.MaxJitter))))
}

func (c *JitteredClock) randInt64N(n int64) int64 {
	if c.Random == nil {
		return rand.Int64N(n)
	}
	return c.Random.Int64N(n)
}
