package timer

import (
	"errors"
	"time"
)

// Reading is one elapsed-time measurement in both reporting units.
type Reading struct {
	Milliseconds float64
	Microseconds float64
}

// Backend records interval marks and converts them to elapsed time.
type Backend interface {
	Begin() error
	End() error
	Elapsed() (Reading, error)
	Close() error
}

// hostBackend timestamps with the monotonic reading of time.Now.
type hostBackend struct {
	now   func() time.Time
	start time.Time
	stop  time.Time
}

func newHostBackend(now func() time.Time) *hostBackend {
	if now == nil {
		now = time.Now
	}
	return &hostBackend{now: now}
}

func (b *hostBackend) Begin() error {
	b.start = b.now()
	return nil
}

func (b *hostBackend) End() error {
	b.stop = b.now()
	return nil
}

func (b *hostBackend) Elapsed() (Reading, error) {
	d := b.stop.Sub(b.start)
	return Reading{
		Milliseconds: float64(d) / float64(time.Millisecond),
		Microseconds: float64(d) / float64(time.Microsecond),
	}, nil
}

func (b *hostBackend) Close() error { return nil }

// deviceBackend records a pair of events into the device work stream.
type deviceBackend struct {
	dev   Device
	start Event
	stop  Event
}

// newDeviceBackend creates both events. On partial failure the event that
// was created is destroyed before returning.
func newDeviceBackend(dev Device) (*deviceBackend, error) {
	start, err := dev.CreateEvent()
	if err != nil {
		return nil, err
	}
	stop, err := dev.CreateEvent()
	if err != nil {
		if derr := dev.DestroyEvent(start); derr != nil {
			return nil, errors.Join(err, derr)
		}
		return nil, err
	}
	return &deviceBackend{dev: dev, start: start, stop: stop}, nil
}

func (b *deviceBackend) Begin() error {
	return b.dev.Record(b.start)
}

func (b *deviceBackend) End() error {
	return b.dev.Record(b.stop)
}

// Elapsed waits for the stop event. Device timing is millisecond based, so
// the microsecond value is a scaled copy and carries no extra resolution.
func (b *deviceBackend) Elapsed() (Reading, error) {
	if err := b.dev.Synchronize(b.stop); err != nil {
		return Reading{}, err
	}
	ms, err := b.dev.ElapsedTime(b.start, b.stop)
	if err != nil {
		return Reading{}, err
	}
	return Reading{
		Milliseconds: float64(ms),
		Microseconds: float64(ms) * 1000,
	}, nil
}

func (b *deviceBackend) Close() error {
	var errs []error
	if err := b.dev.DestroyEvent(b.start); err != nil {
		errs = append(errs, err)
	}
	if err := b.dev.DestroyEvent(b.stop); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
