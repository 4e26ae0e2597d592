package gpu

import (
	"sync"

	"codeberg.org/mutker/sysfeed/internal/errors"
	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

// nvmlWrapper reference counts library initialization so several GPU
// providers can hold devices at once.
type nvmlWrapper struct {
	mu    sync.Mutex
	users int
}

var library nvmlController = &nvmlWrapper{}

func (w *nvmlWrapper) Initialize() error {
	errFactory := errors.New()
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.users > 0 {
		w.users++
		return nil
	}

	ret := nvml.Init()
	if !IsNVMLSuccess(ret) {
		return errFactory.Wrap(ErrInitFailed, newNVMLError(ret))
	}

	w.users = 1

	return nil
}

func (w *nvmlWrapper) Shutdown() error {
	errFactory := errors.New()
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.users == 0 {
		return nil
	}

	w.users--
	if w.users > 0 {
		return nil
	}

	ret := nvml.Shutdown()
	if !IsNVMLSuccess(ret) {
		return errFactory.Wrap(ErrShutdownFailed, newNVMLError(ret))
	}

	return nil
}

func (w *nvmlWrapper) GetDevice(index int) (nvmlDevice, error) {
	errFactory := errors.New()
	w.mu.Lock()
	initialized := w.users > 0
	w.mu.Unlock()

	if !initialized {
		return nil, errFactory.New(ErrNotInitialized)
	}

	count, ret := nvml.DeviceGetCount()
	if !IsNVMLSuccess(ret) {
		return nil, errFactory.Wrap(ErrDeviceNotFound, newNVMLError(ret))
	}
	if index < 0 || index >= count {
		return nil, errFactory.WithData(ErrDeviceNotFound, index)
	}

	device, ret := nvml.DeviceGetHandleByIndex(index)
	if !IsNVMLSuccess(ret) {
		return nil, errFactory.Wrap(ErrDeviceNotFound, newNVMLError(ret))
	}

	return device, nil
}
