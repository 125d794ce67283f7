package timer

import "time"

// NewHost returns a timer bound directly to the host monotonic clock. It
// skips mode selection and never touches device resources, so it cannot
// fail and needs no Close.
func NewHost() *Timer {
	return newHost(time.Now)
}

func newHost(now func() time.Time) *Timer {
	return &Timer{
		backend:     newHostBackend(now),
		mode:        ModeHost,
		onFail:      Continue,
		initialized: true,
	}
}
