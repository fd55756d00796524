package service

import "time"

// Clock supplies the current time in epoch milliseconds. Liveness of a URL
// record is always evaluated against a Clock, never against a cached
// timestamp, so tests can drive expiration deterministically.
type Clock interface {
	Now() int64
}

// SystemClock implements Clock using the system time.
type SystemClock struct{}

// Now returns the current system time in epoch milliseconds.
func (SystemClock) Now() int64 {
	return time.Now().UnixMilli()
}

// MockClock implements Clock with controllable time for testing.
type MockClock struct {
	current int64
}

// NewMockClock creates a MockClock set to the given epoch-millisecond time.
func NewMockClock(now int64) *MockClock {
	return &MockClock{current: now}
}

// Now returns the mock's current time.
func (c *MockClock) Now() int64 {
	return c.current
}

// Advance moves the clock forward by the given duration.
func (c *MockClock) Advance(d time.Duration) {
	c.current += d.Milliseconds()
}

// Set sets the clock to a specific epoch-millisecond time.
func (c *MockClock) Set(now int64) {
	c.current = now
}
