package finetune

import (
	"fmt"
	"runtime"

	"github.com/asteroid-belt/partmatch/internal/matcherr"
)

// Device selects where training runs. Every device produces the same
// portable artifact format.
type Device string

// Devices.
const (
	DeviceCPU         Device = "cpu"
	DeviceCPUParallel Device = "cpu-parallel"
)

// ParseDevice validates a device name.
func ParseDevice(s string) (Device, error) {
	switch Device(s) {
	case "", DeviceCPU:
		return DeviceCPU, nil
	case DeviceCPUParallel:
		return DeviceCPUParallel, nil
	}
	return "", matcherr.Wrapf(matcherr.ErrConfiguration, "unknown training device %q (want %s or %s)", s, DeviceCPU, DeviceCPUParallel)
}

// Options controls a training run.
type Options struct {
	Epochs    int
	BatchSize int
	// LearningRate is the SGD step size.
	LearningRate float64
	// Regularization pulls the projection toward identity.
	Regularization float64
	Device         Device
	// Workers is the goroutine count for DeviceCPUParallel (default: NumCPU).
	Workers int
	// Seed for batch shuffling; 0 seeds from the clock.
	Seed int64
}

// DefaultOptions returns the standard training setup.
func DefaultOptions() Options {
	return Options{
		Epochs:         4,
		BatchSize:      16,
		LearningRate:   0.1,
		Regularization: 0.001,
		Device:         DeviceCPU,
	}
}

func (o Options) validate() (Options, error) {
	if o.Epochs < 1 {
		return o, matcherr.Wrapf(matcherr.ErrPrecondition, "epochs must be >= 1, got %d", o.Epochs)
	}
	if o.BatchSize < 1 {
		return o, matcherr.Wrapf(matcherr.ErrPrecondition, "batch size must be >= 1, got %d", o.BatchSize)
	}
	if o.LearningRate <= 0 {
		return o, matcherr.Wrapf(matcherr.ErrPrecondition, "learning rate must be > 0, got %g", o.LearningRate)
	}
	if o.Regularization < 0 {
		return o, matcherr.Wrap(matcherr.ErrPrecondition, "regularization must be >= 0")
	}
	device, err := ParseDevice(string(o.Device))
	if err != nil {
		return o, err
	}
	o.Device = device
	if o.Device == DeviceCPU {
		o.Workers = 1
	} else if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	return o, nil
}

func (o Options) String() string {
	return fmt.Sprintf("epochs=%d batch=%d lr=%g reg=%g device=%s workers=%d",
		o.Epochs, o.BatchSize, o.LearningRate, o.Regularization, o.Device, o.Workers)
}
