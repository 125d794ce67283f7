package timer

import (
	"errors"
	"log"
)

var (
	// ErrDeviceUnavailable is returned when device timing is requested but
	// no device backend is compiled in or configured.
	ErrDeviceUnavailable = errors.New("timer: device backend unavailable")

	// ErrInvalidMode is returned for a mode the timer does not know.
	ErrInvalidMode = errors.New("timer: invalid mode")
)

// FailurePolicy is invoked with every backend failure. A policy that
// returns lets the timer continue; the failure stays visible through Err.
type FailurePolicy func(err error)

// Abort logs the failure and terminates the process. It is the default
// policy: a failing timing backend means the environment is unusable.
func Abort(l *log.Logger) FailurePolicy {
	return func(err error) {
		var de *DeviceError
		if errors.As(err, &de) {
			l.Fatalf("backend failure in %s: code %d (%s)", de.Op, de.Code, de.Description)
		}
		l.Fatalf("backend failure: %v", err)
	}
}

// Continue records the failure on the timer and carries on.
func Continue(error) {}
