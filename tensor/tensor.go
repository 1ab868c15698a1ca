// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the float32 tensors residual networks compute on.
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/resnet/backend/cpu"
//	    "github.com/born-ml/resnet/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    x := tensor.Zeros(tensor.Shape{2, 3}, backend)
//	    y := tensor.Ones(tensor.Shape{2, 3}, backend)
//	    z := x.Add(y)
//	}
//
// Every RawTensor carries the Device it lives on. Backends refuse operands
// from another device with a *DeviceError instead of copying them.
package tensor

import "github.com/born-ml/resnet/internal/tensor"

// Tensor is a float32 tensor bound to a computation backend.
type Tensor[B Backend] = tensor.Tensor[B]

// RawTensor is the untyped storage underneath Tensor.
type RawTensor = tensor.RawTensor

// Shape is a tensor's dimensions, outermost first.
type Shape = tensor.Shape

// Device identifies where tensor data lives.
type Device = tensor.Device

// Backend defines the operations a compute backend must provide.
type Backend = tensor.Backend

// DeviceError reports operands on a device the backend cannot use.
type DeviceError = tensor.DeviceError

// Supported devices.
const (
	CPU    = tensor.CPU
	CUDA   = tensor.CUDA
	Metal  = tensor.Metal
	WebGPU = tensor.WebGPU
)

// ErrPlacement is matched by every DeviceError and DTypeError.
var ErrPlacement = tensor.ErrPlacement

// New wraps a RawTensor for the given backend.
func New[B Backend](raw *RawTensor, b B) *Tensor[B] {
	return tensor.New(raw, b)
}

// FromSlice creates a tensor from a copy of data.
func FromSlice[B Backend](data []float32, shape Shape, b B) (*Tensor[B], error) {
	return tensor.FromSlice(data, shape, b)
}

// Zeros creates a tensor filled with zeros.
func Zeros[B Backend](shape Shape, b B) *Tensor[B] {
	return tensor.Zeros(shape, b)
}

// Ones creates a tensor filled with ones.
func Ones[B Backend](shape Shape, b B) *Tensor[B] {
	return tensor.Ones(shape, b)
}

// Full creates a tensor filled with value.
func Full[B Backend](shape Shape, value float32, b B) *Tensor[B] {
	return tensor.Full(shape, value, b)
}
