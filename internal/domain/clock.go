package domain

import "time"

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always reports the same instant.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At }

func Today(c Clock) Date {
	return DateOf(c.Now())
}

func Yesterday(c Clock) Date {
	return Today(c).AddDays(-1)
}
