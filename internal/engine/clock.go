// internal/engine/clock.go
package engine

import (
	"sync"
	"time"
)

// Clock reports engine time in milliseconds.
type Clock interface {
	Now() float64
}

// MonotonicClock measures milliseconds since it was created.
type MonotonicClock struct {
	start time.Time
}

// NewMonotonicClock starts a clock at zero.
func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{start: time.Now()}
}

// Now implements Clock.
func (c *MonotonicClock) Now() float64 {
	return float64(time.Since(c.start)) / float64(time.Millisecond)
}

// ManualClock is a Clock that only moves when told to.
type ManualClock struct {
	mu  sync.Mutex
	now float64
}

// Now implements Clock.
func (c *ManualClock) Now() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to ms.
func (c *ManualClock) Set(ms float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = ms
}

// Advance moves the clock forward by ms and returns the new time.
func (c *ManualClock) Advance(ms float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += ms
	return c.now
}
