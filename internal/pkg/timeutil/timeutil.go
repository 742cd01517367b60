package timeutil

import "time"

// Clock supplies the current time. Store and service must share one instance.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

func SystemClock() Clock {
	return systemClock{}
}

func NowUnix() int64 {
	return time.Now().Unix()
}
