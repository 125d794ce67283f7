package timer

import "fmt"

// Event is an opaque handle to a device-side timing marker.
type Event uintptr

// Device is the subset of an accelerator runtime needed for event timing.
// An event's timestamp is only valid after Synchronize has returned for it.
type Device interface {
	CreateEvent() (Event, error)
	Record(ev Event) error
	Synchronize(ev Event) error
	// ElapsedTime returns the time between two recorded events in
	// milliseconds.
	ElapsedTime(start, stop Event) (float32, error)
	DestroyEvent(ev Event) error
}

// DeviceError reports a failed runtime call with the runtime's own code and
// description.
type DeviceError struct {
	Op          string
	Code        int
	Description string
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("%s failed: code %d: %s", e.Op, e.Code, e.Description)
}

// DeviceSupported reports whether this build carries a device backend.
func DeviceSupported() bool {
	_, ok := DefaultDevice()
	return ok
}
