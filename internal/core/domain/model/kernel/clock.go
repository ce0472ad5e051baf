package kernel

import "time"

// Clock supplies the current time to stores and use cases.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return Millis(time.Now())
}

// Millis truncates t to millisecond precision in UTC, the resolution at which
// timestamps are persisted.
func Millis(t time.Time) time.Time {
	return time.UnixMilli(t.UnixMilli()).UTC()
}
