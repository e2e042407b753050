package helpers

import "time"

func IntSecondDefault(x int, def time.Duration) time.Duration {
	if x == 0 {
		return def
	}
	return time.Duration(x) * time.Second
}

func IntMinuteDefault(x int, def time.Duration) time.Duration {
	if x == 0 {
		return def
	}
	return time.Duration(x) * time.Minute
}

// Elapsed is a monotonic stopwatch, zero value is not usable.
type Elapsed struct {
	start time.Time
	now   func() time.Time
}

func NewElapsed(now func() time.Time) Elapsed {
	if now == nil {
		now = time.Now
	}
	return Elapsed{start: now(), now: now}
}

func (e Elapsed) Get() time.Duration { return e.now().Sub(e.start) }
