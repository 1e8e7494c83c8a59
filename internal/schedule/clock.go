package schedule

import "time"

// Clock supplies the wall-clock time the gate is evaluated against.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real time in the given location (local time when nil).
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}
