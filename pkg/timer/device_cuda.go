//go:build cuda
// +build cuda

package timer

/*
#cgo CFLAGS: -I/usr/local/cuda/include
#cgo LDFLAGS: -L/usr/local/cuda/lib64 -lcudart

#include <cuda_runtime_api.h>
*/
import "C"
import (
	"fmt"
	"sync"
)

// cudaDevice records events on the default stream of the current CUDA
// device. Event handles are kept on the Go side and looked up by id.
type cudaDevice struct {
	mu     sync.Mutex
	next   Event
	events map[Event]C.cudaEvent_t
}

var (
	cudaOnce   sync.Once
	cudaShared *cudaDevice
)

// DefaultDevice returns the process-wide CUDA runtime device.
func DefaultDevice() (Device, bool) {
	cudaOnce.Do(func() {
		cudaShared = &cudaDevice{events: make(map[Event]C.cudaEvent_t)}
	})
	return cudaShared, true
}

func cudaError(op string, rc C.cudaError_t) error {
	if rc == C.cudaSuccess {
		return nil
	}
	return &DeviceError{
		Op:          op,
		Code:        int(rc),
		Description: C.GoString(C.cudaGetErrorString(rc)),
	}
}

func (d *cudaDevice) lookup(op string, ev Event) (C.cudaEvent_t, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, ok := d.events[ev]
	if !ok {
		return nil, &DeviceError{
			Op:          op,
			Code:        int(C.cudaErrorInvalidResourceHandle),
			Description: fmt.Sprintf("unknown event handle %d", ev),
		}
	}
	return h, nil
}

func (d *cudaDevice) CreateEvent() (Event, error) {
	var h C.cudaEvent_t
	if err := cudaError("cudaEventCreate", C.cudaEventCreate(&h)); err != nil {
		return 0, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.next++
	d.events[d.next] = h
	return d.next, nil
}

func (d *cudaDevice) Record(ev Event) error {
	h, err := d.lookup("cudaEventRecord", ev)
	if err != nil {
		return err
	}
	return cudaError("cudaEventRecord", C.cudaEventRecord(h, nil))
}

func (d *cudaDevice) Synchronize(ev Event) error {
	h, err := d.lookup("cudaEventSynchronize", ev)
	if err != nil {
		return err
	}
	return cudaError("cudaEventSynchronize", C.cudaEventSynchronize(h))
}

func (d *cudaDevice) ElapsedTime(start, stop Event) (float32, error) {
	hs, err := d.lookup("cudaEventElapsedTime", start)
	if err != nil {
		return 0, err
	}
	he, err := d.lookup("cudaEventElapsedTime", stop)
	if err != nil {
		return 0, err
	}
	var ms C.float
	if err := cudaError("cudaEventElapsedTime", C.cudaEventElapsedTime(&ms, hs, he)); err != nil {
		return 0, err
	}
	return float32(ms), nil
}

func (d *cudaDevice) DestroyEvent(ev Event) error {
	h, err := d.lookup("cudaEventDestroy", ev)
	if err != nil {
		return err
	}
	if err := cudaError("cudaEventDestroy", C.cudaEventDestroy(h)); err != nil {
		return err
	}
	d.mu.Lock()
	delete(d.events, ev)
	d.mu.Unlock()
	return nil
}
