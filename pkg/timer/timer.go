package timer

import (
	"fmt"
	"log"
	"time"

	"github.com/D13ya/devtimer/pkg/logger"
)

// Config selects the backend and failure handling for a Timer.
type Config struct {
	Mode Mode

	// Device overrides the compiled-in device. Only used in ModeDevice.
	Device Device

	// OnFailure handles backend failures. Defaults to Abort(Logger).
	OnFailure FailurePolicy
	Logger    *log.Logger

	now func() time.Time
}

// DefaultConfig returns a host clock configuration.
func DefaultConfig() Config {
	return Config{Mode: ModeHost}
}

// Timer measures the interval between Start and Stop. A Timer is owned by
// a single goroutine.
type Timer struct {
	backend Backend
	mode    Mode
	onFail  FailurePolicy

	initialized bool
	running     bool
	hasRun      bool
	closed      bool

	elapsedMillis float64
	elapsedMicros float64
	err           error
}

// New returns a host clock timer.
func New() *Timer {
	t, _ := NewWithConfig(DefaultConfig())
	return t
}

// NewWithConfig creates a timer and initializes its backend. Device events
// are created here and released by Close.
func NewWithConfig(cfg Config) (*Timer, error) {
	if cfg.Logger == nil {
		cfg.Logger = logger.New("timer: ")
	}
	if cfg.OnFailure == nil {
		cfg.OnFailure = Abort(cfg.Logger)
	}

	t := &Timer{mode: cfg.Mode, onFail: cfg.OnFailure}
	if err := t.setup(cfg); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Timer) setup(cfg Config) error {
	if t.initialized {
		return nil
	}
	switch cfg.Mode {
	case ModeHost:
		t.backend = newHostBackend(cfg.now)
	case ModeDevice:
		dev := cfg.Device
		if dev == nil {
			var ok bool
			if dev, ok = DefaultDevice(); !ok {
				return fmt.Errorf("%w: build with -tags cuda or set Config.Device", ErrDeviceUnavailable)
			}
		}
		b, err := newDeviceBackend(dev)
		if err != nil {
			t.fail(err)
			return fmt.Errorf("init device events: %w", err)
		}
		t.backend = b
	case ModeDeviceUnavailable:
		return ErrDeviceUnavailable
	default:
		return fmt.Errorf("%w: %v", ErrInvalidMode, cfg.Mode)
	}
	t.initialized = true
	return nil
}

// Start opens an interval. It does nothing if one is already open.
func (t *Timer) Start() {
	if t.running || t.closed {
		return
	}
	if err := t.backend.Begin(); err != nil {
		t.fail(err)
	}
	t.running = true
	t.hasRun = true
}

// Stop closes the open interval. It does nothing if none is open.
func (t *Timer) Stop() {
	if !t.running {
		return
	}
	if err := t.backend.End(); err != nil {
		t.fail(err)
	}
	t.running = false
}

// MilliSeconds returns the last interval in milliseconds, stopping the
// timer first if it is running. It returns 0 if no interval was ever
// started.
func (t *Timer) MilliSeconds() float64 {
	t.refresh()
	return t.elapsedMillis
}

// MicroSeconds is MilliSeconds in microseconds. In device mode the value is
// the millisecond reading scaled by 1000.
func (t *Timer) MicroSeconds() float64 {
	t.refresh()
	return t.elapsedMicros
}

// Seconds returns MilliSeconds() / 1000.
func (t *Timer) Seconds() float64 {
	return t.MilliSeconds() / 1000
}

// refresh caches both units of the last closed interval. A failed backend
// read caches zero. Closed timers keep the values cached by Close.
func (t *Timer) refresh() {
	if !t.hasRun || t.closed {
		return
	}
	if t.running {
		t.Stop()
	}
	r, err := t.backend.Elapsed()
	if err != nil {
		t.fail(err)
		r = Reading{}
	}
	t.elapsedMillis = r.Milliseconds
	t.elapsedMicros = r.Microseconds
}

func (t *Timer) fail(err error) {
	if t.err == nil {
		t.err = err
	}
	t.onFail(err)
}

// Initialized reports whether the backend has been set up.
func (t *Timer) Initialized() bool { return t.initialized }

// Running reports whether an interval is open.
func (t *Timer) Running() bool { return t.running }

// HasRunAtLeastOnce reports whether Start was ever called.
func (t *Timer) HasRunAtLeastOnce() bool { return t.hasRun }

// Mode returns the backend mode the timer was built with.
func (t *Timer) Mode() Mode { return t.mode }

// Err returns the first backend failure seen under a non-aborting policy.
func (t *Timer) Err() error { return t.err }

// Close stops any open interval, caches its reading and releases backend
// resources. Later calls return nil.
func (t *Timer) Close() error {
	if t.closed {
		return nil
	}
	if t.backend == nil {
		t.closed = true
		return nil
	}
	t.refresh()
	t.closed = true
	if err := t.backend.Close(); err != nil {
		t.fail(err)
		return fmt.Errorf("release %s backend: %w", t.mode, err)
	}
	return nil
}
