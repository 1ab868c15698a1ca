package cpu

import (
	"fmt"

	"github.com/born-ml/resnet/internal/tensor"
)

// Add performs element-wise addition with NumPy-style broadcasting.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	cpu.place("add", a, b)
	outShape, needsBroadcast, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("add: %v", err))
	}
	result := cpu.alloc("add", outShape)
	out, ad, bd := result.Data(), a.Data(), b.Data()

	if !needsBroadcast {
		for i := range out {
			out[i] = ad[i] + bd[i]
		}
		return result
	}

	aStrides := broadcastStrides(a.Shape(), outShape)
	bStrides := broadcastStrides(b.Shape(), outShape)
	forEachIndex(outShape, func(flat int, idx []int) {
		ai, bi := 0, 0
		for d, i := range idx {
			ai += i * aStrides[d]
			bi += i * bStrides[d]
		}
		out[flat] = ad[ai] + bd[bi]
	})
	return result
}

// SumTo reduces a broadcast gradient back to shape by summing over the
// dimensions that were expanded in the forward pass.
func (cpu *CPUBackend) SumTo(grad *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	if grad.Shape().Equal(shape) {
		return grad
	}
	result := cpu.alloc("sum_to", shape)
	out, gd := result.Data(), grad.Data()
	strides := broadcastStrides(shape, grad.Shape())
	forEachIndex(grad.Shape(), func(flat int, idx []int) {
		ti := 0
		for d, i := range idx {
			ti += i * strides[d]
		}
		out[ti] += gd[flat]
	})
	return result
}

// ReLU applies max(0, x) element-wise.
func (cpu *CPUBackend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	cpu.place("relu", x)
	result := cpu.alloc("relu", x.Shape())
	out := result.Data()
	for i, v := range x.Data() {
		if v > 0 {
			out[i] = v
		}
	}
	return result
}

// ReLUBackward passes grad through where the forward input was positive.
func (cpu *CPUBackend) ReLUBackward(input, grad *tensor.RawTensor) *tensor.RawTensor {
	result := cpu.alloc("relu_backward", input.Shape())
	out, gd := result.Data(), grad.Data()
	for i, v := range input.Data() {
		if v > 0 {
			out[i] = gd[i]
		}
	}
	return result
}

// Reshape returns a view of t with a new shape; the data is shared.
func (cpu *CPUBackend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	cpu.place("reshape", t)
	if err := newShape.Validate(); err != nil {
		panic(fmt.Sprintf("reshape: %v", err))
	}
	view, err := t.View(newShape)
	if err != nil {
		panic(fmt.Sprintf("reshape: %v", err))
	}
	return view
}

// Transpose swaps the axes of a 2D tensor.
func (cpu *CPUBackend) Transpose(t *tensor.RawTensor) *tensor.RawTensor {
	cpu.place("transpose", t)
	s := t.Shape()
	if len(s) != 2 {
		panic(fmt.Sprintf("transpose: expected 2D tensor, got %dD", len(s)))
	}
	rows, cols := s[0], s[1]
	result := cpu.alloc("transpose", tensor.Shape{cols, rows})
	out, in := result.Data(), t.Data()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			out[c*rows+r] = in[r*cols+c]
		}
	}
	return result
}

// broadcastStrides returns, for every axis of target, the stride to use in a
// tensor of shape src broadcast to target: 0 on expanded axes.
func broadcastStrides(src, target tensor.Shape) []int {
	srcStrides := src.ComputeStrides()
	strides := make([]int, len(target))
	offset := len(target) - len(src)
	for d := range target {
		sd := d - offset
		if sd < 0 || src[sd] == 1 {
			continue
		}
		strides[d] = srcStrides[sd]
	}
	return strides
}

// forEachIndex visits every element of shape in row-major order.
func forEachIndex(shape tensor.Shape, f func(flat int, idx []int)) {
	idx := make([]int, len(shape))
	n := shape.NumElements()
	for flat := 0; flat < n; flat++ {
		f(flat, idx)
		for d := len(shape) - 1; d >= 0; d-- {
			idx[d]++
			if idx[d] < shape[d] {
				break
			}
			idx[d] = 0
		}
	}
}
