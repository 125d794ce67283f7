package timer

import (
	"fmt"
	"strings"
)

// Mode selects the timestamping mechanism behind a Timer.
type Mode int

const (
	ModeHost Mode = iota
	ModeDevice
	// ModeDeviceUnavailable marks a device request in a build without a
	// device backend.
	ModeDeviceUnavailable
)

func (m Mode) String() string {
	switch m {
	case ModeHost:
		return "host"
	case ModeDevice:
		return "device"
	case ModeDeviceUnavailable:
		return "device-unavailable"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode maps a command-line name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "host", "cpu":
		return ModeHost, nil
	case "device", "gpu":
		return ModeDevice, nil
	default:
		return ModeHost, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}
