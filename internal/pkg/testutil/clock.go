// Package testutil holds helpers shared by tests across packages.
package testutil

import (
	"sync"
	"time"
)

// StepClock returns a fixed start time that advances by Step on every call,
// so consecutive writes get distinct, predictable timestamps.
type StepClock struct {
	mu   sync.Mutex
	now  time.Time
	Step time.Duration
}

// NewStepClock starts at start and advances one millisecond per call.
func NewStepClock(start time.Time) *StepClock {
	return &StepClock{now: start.UTC(), Step: time.Millisecond}
}

func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.Step)
	return t
}

// Set moves the clock to t.
func (c *StepClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t.UTC()
}

// FixedClock always returns the same instant.
type FixedClock time.Time

func (c FixedClock) Now() time.Time {
	return time.Time(c)
}
