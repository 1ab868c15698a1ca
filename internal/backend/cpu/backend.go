// Package cpu implements the CPU backend. Matrix products go through gonum's
// BLAS; per-plane kernels fan out with internal/parallel.
package cpu

import (
	"fmt"

	"github.com/born-ml/resnet/internal/parallel"
	"github.com/born-ml/resnet/internal/tensor"
)

// CPUBackend implements tensor.Backend on the host CPU.
type CPUBackend struct {
	device tensor.Device
	par    parallel.Config
}

// New creates a new CPU backend.
func New() *CPUBackend {
	return &CPUBackend{
		device: tensor.CPU,
		par:    parallel.DefaultConfig(),
	}
}

// WithParallel returns a copy of the backend using cfg for per-plane kernels.
func (cpu *CPUBackend) WithParallel(cfg parallel.Config) *CPUBackend {
	return &CPUBackend{device: cpu.device, par: cfg}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// alloc creates a zeroed output tensor on the backend's device.
func (cpu *CPUBackend) alloc(op string, shape tensor.Shape) *tensor.RawTensor {
	out, err := tensor.NewRaw(shape, tensor.Float32, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("%s: failed to create result tensor: %v", op, err))
	}
	return out
}

// place panics with a *tensor.DeviceError if any operand lives elsewhere.
func (cpu *CPUBackend) place(op string, ts ...*tensor.RawTensor) {
	for _, t := range ts {
		if t.Device() != cpu.device {
			panic(&tensor.DeviceError{Op: op, Backend: cpu.device, Got: t.Device()})
		}
	}
}

// dims4 unpacks an [N, C, H, W] shape.
func dims4(op string, t *tensor.RawTensor) (n, c, h, w int) {
	s := t.Shape()
	if len(s) != 4 {
		panic(fmt.Sprintf("%s: expected 4D input [N,C,H,W], got %dD", op, len(s)))
	}
	return s[0], s[1], s[2], s[3]
}

var _ tensor.Backend = (*CPUBackend)(nil)
