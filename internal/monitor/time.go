package monitor

import "time"

// newTimer produces a timer channel and its Stop function.
type newTimer func(time.Duration) (<-chan time.Time, func() bool)

func defaultNewTimer(d time.Duration) (<-chan time.Time, func() bool) {
	t := time.NewTimer(d)
	return t.C, t.Stop
}
