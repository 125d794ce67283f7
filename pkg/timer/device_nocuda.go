//go:build !cuda
// +build !cuda

package timer

// DefaultDevice reports that no device backend is compiled in. Build with
// -tags cuda to enable the CUDA runtime device.
func DefaultDevice() (Device, bool) {
	return nil, false
}
