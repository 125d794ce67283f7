package timer

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"strings"
	"testing"
)

// fakeDevice hands out events whose elapsed time is fixed by the test.
type fakeDevice struct {
	next      Event
	live      map[Event]bool
	recorded  map[Event]int
	synced    map[Event]bool
	created   int
	destroyed int
	elapsedMs float32

	failOp string
	// createLimit fails CreateEvent once this many events exist. Zero
	// means no limit.
	createLimit int
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		live:     make(map[Event]bool),
		recorded: make(map[Event]int),
		synced:   make(map[Event]bool),
	}
}

func (d *fakeDevice) err(op string) error {
	if d.failOp == op {
		return &DeviceError{Op: op, Code: 700, Description: "an illegal memory access was encountered"}
	}
	return nil
}

func (d *fakeDevice) CreateEvent() (Event, error) {
	if err := d.err("create"); err != nil {
		return 0, err
	}
	if d.createLimit > 0 && d.created >= d.createLimit {
		return 0, &DeviceError{Op: "create", Code: 2, Description: "out of memory"}
	}
	d.next++
	d.live[d.next] = true
	d.created++
	return d.next, nil
}

func (d *fakeDevice) Record(ev Event) error {
	if err := d.err("record"); err != nil {
		return err
	}
	d.recorded[ev]++
	d.synced[ev] = false
	return nil
}

func (d *fakeDevice) Synchronize(ev Event) error {
	if err := d.err("sync"); err != nil {
		return err
	}
	d.synced[ev] = true
	return nil
}

func (d *fakeDevice) ElapsedTime(start, stop Event) (float32, error) {
	if !d.synced[stop] {
		return 0, &DeviceError{Op: "elapsed", Code: 600, Description: "device not ready"}
	}
	return d.elapsedMs, nil
}

func (d *fakeDevice) DestroyEvent(ev Event) error {
	if err := d.err("destroy"); err != nil {
		return err
	}
	delete(d.live, ev)
	d.destroyed++
	return nil
}

func newDeviceTimer(t *testing.T, dev *fakeDevice) *Timer {
	t.Helper()
	tm, err := NewWithConfig(Config{Mode: ModeDevice, Device: dev, OnFailure: Continue})
	if err != nil {
		t.Fatalf("NewWithConfig() error = %v", err)
	}
	return tm
}

func TestDeviceEventsLifecycle(t *testing.T) {
	dev := newFakeDevice()
	tm := newDeviceTimer(t, dev)

	if dev.created != 2 {
		t.Fatalf("created %d events, want 2", dev.created)
	}
	for i := 0; i < 3; i++ {
		tm.Start()
		tm.Stop()
		tm.MilliSeconds()
	}
	if dev.created != 2 {
		t.Errorf("created %d events after cycles, want 2", dev.created)
	}

	if err := tm.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := tm.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if dev.destroyed != 2 || len(dev.live) != 0 {
		t.Errorf("destroyed %d events, %d live; want 2, 0", dev.destroyed, len(dev.live))
	}
}

func TestDeviceMicroSecondsScaled(t *testing.T) {
	dev := newFakeDevice()
	dev.elapsedMs = 2.5
	tm := newDeviceTimer(t, dev)
	defer tm.Close()

	tm.Start()
	tm.Stop()
	if got := tm.MilliSeconds(); got != 2.5 {
		t.Errorf("MilliSeconds() = %v, want 2.5", got)
	}
	if got := tm.MicroSeconds(); got != 2500 {
		t.Errorf("MicroSeconds() = %v, want 2500", got)
	}
	if got := tm.Seconds(); got != 0.0025 {
		t.Errorf("Seconds() = %v, want 0.0025", got)
	}
}

func TestDeviceReadSynchronizesAndStops(t *testing.T) {
	dev := newFakeDevice()
	dev.elapsedMs = 1
	tm := newDeviceTimer(t, dev)
	defer tm.Close()

	tm.Start()
	if got := tm.MilliSeconds(); got != 1 {
		t.Errorf("MilliSeconds() = %v, want 1", got)
	}
	if tm.Running() {
		t.Error("Running() = true after read")
	}
	if tm.Err() != nil {
		t.Errorf("Err() = %v, want nil", tm.Err())
	}
}

func TestDeviceIdempotentStartStop(t *testing.T) {
	dev := newFakeDevice()
	tm := newDeviceTimer(t, dev)
	defer tm.Close()

	tm.Start()
	tm.Start()
	tm.Stop()
	tm.Stop()
	for ev, n := range dev.recorded {
		if n != 1 {
			t.Errorf("event %d recorded %d times, want 1", ev, n)
		}
	}
}

func TestDeviceZeroBeforeFirstRun(t *testing.T) {
	dev := newFakeDevice()
	dev.elapsedMs = 9
	tm := newDeviceTimer(t, dev)
	defer tm.Close()

	if got := tm.MicroSeconds(); got != 0 {
		t.Errorf("MicroSeconds() = %v, want 0", got)
	}
	if len(dev.recorded) != 0 {
		t.Error("read before first run recorded events")
	}
}

func TestDeviceFailureContinue(t *testing.T) {
	dev := newFakeDevice()
	tm := newDeviceTimer(t, dev)
	defer tm.Close()

	dev.failOp = "sync"
	tm.Start()
	tm.Stop()
	if got := tm.MilliSeconds(); got != 0 {
		t.Errorf("MilliSeconds() = %v, want 0 on failure", got)
	}

	var de *DeviceError
	if !errors.As(tm.Err(), &de) {
		t.Fatalf("Err() = %v, want *DeviceError", tm.Err())
	}
	if de.Code != 700 || de.Op != "sync" {
		t.Errorf("DeviceError = %+v", de)
	}
}

func TestDeviceCreateFailure(t *testing.T) {
	dev := newFakeDevice()
	dev.failOp = "create"

	var seen []error
	_, err := NewWithConfig(Config{
		Mode:      ModeDevice,
		Device:    dev,
		OnFailure: func(err error) { seen = append(seen, err) },
	})
	if err == nil {
		t.Fatal("NewWithConfig() error = nil, want failure")
	}
	if len(seen) != 1 {
		t.Errorf("failure policy called %d times, want 1", len(seen))
	}
	var de *DeviceError
	if !errors.As(err, &de) {
		t.Errorf("error %v does not wrap *DeviceError", err)
	}
}

func TestDeviceSecondCreateFailureJoinsCleanup(t *testing.T) {
	dev := newFakeDevice()
	dev.createLimit = 1
	dev.failOp = "destroy"

	_, err := NewWithConfig(Config{Mode: ModeDevice, Device: dev, OnFailure: Continue})
	if err == nil {
		t.Fatal("NewWithConfig() error = nil, want failure")
	}
	msg := err.Error()
	if !strings.Contains(msg, "out of memory") || !strings.Contains(msg, "destroy failed") {
		t.Errorf("error %q missing create or cleanup failure", msg)
	}
}

func TestDeviceSecondCreateFailureReleasesFirst(t *testing.T) {
	dev := newFakeDevice()
	dev.createLimit = 1

	if _, err := NewWithConfig(Config{Mode: ModeDevice, Device: dev, OnFailure: Continue}); err == nil {
		t.Fatal("NewWithConfig() error = nil, want failure")
	}
	if dev.destroyed != 1 || len(dev.live) != 0 {
		t.Errorf("destroyed %d events, %d live; want 1, 0", dev.destroyed, len(dev.live))
	}
}

func TestDeviceCloseCachesUnreadInterval(t *testing.T) {
	dev := newFakeDevice()
	tm := newDeviceTimer(t, dev)

	dev.elapsedMs = 4
	tm.Start()
	tm.Stop()
	tm.MilliSeconds()

	dev.elapsedMs = 1.5
	tm.Start()
	if err := tm.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if got := tm.MilliSeconds(); got != 1.5 {
		t.Errorf("MilliSeconds() after Close = %v, want 1.5", got)
	}
	if got := tm.MicroSeconds(); got != 1500 {
		t.Errorf("MicroSeconds() after Close = %v, want 1500", got)
	}
}

func TestDeviceCloseFailureReported(t *testing.T) {
	dev := newFakeDevice()
	tm := newDeviceTimer(t, dev)

	dev.failOp = "destroy"
	if err := tm.Close(); err == nil {
		t.Error("Close() error = nil, want failure")
	}
	if tm.Err() == nil {
		t.Error("Err() = nil after failed Close")
	}
}

func TestDeviceErrorMessage(t *testing.T) {
	err := &DeviceError{Op: "cudaEventRecord", Code: 4, Description: "driver shutting down"}
	want := "cudaEventRecord failed: code 4: driver shutting down"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestAbortPolicyExits(t *testing.T) {
	if os.Getenv("DEVTIMER_ABORT_CHILD") == "1" {
		dev := newFakeDevice()
		tm, err := NewWithConfig(Config{Mode: ModeDevice, Device: dev})
		if err != nil {
			os.Exit(3)
		}
		dev.failOp = "record"
		tm.Start()
		os.Exit(0)
	}

	cmd := exec.Command(os.Args[0], "-test.run=^TestAbortPolicyExits$")
	cmd.Env = append(os.Environ(), "DEVTIMER_ABORT_CHILD=1")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode() != 1 {
		t.Fatalf("child exit = %v, want exit status 1", err)
	}
	if !strings.Contains(stderr.String(), "code 700") {
		t.Errorf("stderr %q missing failure code", stderr.String())
	}
}
