package scheduler

import "time"

// Clock abstracts time so health evaluation is testable.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
