// Package autodiff implements reverse-mode automatic differentiation using
// the decorator pattern.
//
// AutodiffBackend wraps any Backend implementation and records every
// differentiable forward operation on a GradientTape. Gradient kernels and
// statistics queries are forwarded to the wrapped backend unrecorded.
//
// Usage:
//
//	backend := autodiff.New(cpu.New())
//	backend.Tape().StartRecording()
//	loss := model.Forward(x) // ... build a scalar loss
//	grads := autodiff.Backward(loss, backend)
//	backend.Tape().Clear()
package autodiff

import (
	"github.com/born-ml/resnet/internal/autodiff/ops"
	"github.com/born-ml/resnet/internal/tensor"
)

// AutodiffBackend wraps a Backend and adds automatic differentiation.
type AutodiffBackend[B tensor.Backend] struct {
	inner B
	tape  *GradientTape
}

// New creates a new AutodiffBackend wrapping the given backend.
func New[B tensor.Backend](backend B) *AutodiffBackend[B] {
	return &AutodiffBackend[B]{
		inner: backend,
		tape:  NewGradientTape(),
	}
}

// Tape returns the gradient tape for manual control.
func (b *AutodiffBackend[B]) Tape() *GradientTape {
	return b.tape
}

// Inner returns the wrapped backend.
func (b *AutodiffBackend[B]) Inner() B {
	return b.inner
}

// Name returns the backend name.
func (b *AutodiffBackend[B]) Name() string {
	return "Autodiff(" + b.inner.Name() + ")"
}

// Device returns the compute device.
func (b *AutodiffBackend[B]) Device() tensor.Device {
	return b.inner.Device()
}

// Add performs element-wise addition and records the operation.
func (b *AutodiffBackend[B]) Add(a, c *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Add(a, c)
	b.tape.Record(ops.NewAddOp(a, c, result))
	return result
}

// MatMul performs matrix multiplication and records the operation.
func (b *AutodiffBackend[B]) MatMul(a, c *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.MatMul(a, c)
	b.tape.Record(ops.NewMatMulOp(a, c, result))
	return result
}

// Transpose transposes a 2D tensor and records the operation.
//
// The result is a new tensor. Without the recorded op, MatMul's gradient
// would land on the transposed copy and never reach the parameter.
func (b *AutodiffBackend[B]) Transpose(t *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Transpose(t)
	b.tape.Record(ops.NewTransposeOp(t, result))
	return result
}

// Reshape reshapes a tensor and records the operation.
func (b *AutodiffBackend[B]) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	result := b.inner.Reshape(t, newShape)
	b.tape.Record(ops.NewReshapeOp(t, result))
	return result
}

// ReLU applies max(0, x) and records the operation.
func (b *AutodiffBackend[B]) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.ReLU(x)
	b.tape.Record(ops.NewReLUOp(x, result))
	return result
}

// Conv2D performs 2D convolution and records the operation.
func (b *AutodiffBackend[B]) Conv2D(input, kernel *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	result := b.inner.Conv2D(input, kernel, stride, padding)
	b.tape.Record(ops.NewConv2DOp(input, kernel, result, stride, padding))
	return result
}

// MaxPool2D performs 2D max pooling and records the operation.
func (b *AutodiffBackend[B]) MaxPool2D(input *tensor.RawTensor, kernelSize, stride, padding int) *tensor.RawTensor {
	result := b.inner.MaxPool2D(input, kernelSize, stride, padding)
	b.tape.Record(ops.NewMaxPool2DOp(input, result, kernelSize, stride, padding))
	return result
}

// AdaptiveAvgPool2D performs adaptive average pooling and records the operation.
func (b *AutodiffBackend[B]) AdaptiveAvgPool2D(input *tensor.RawTensor, outH, outW int) *tensor.RawTensor {
	result := b.inner.AdaptiveAvgPool2D(input, outH, outW)
	b.tape.Record(ops.NewAdaptiveAvgPool2DOp(input, result))
	return result
}

// ChannelMoments forwards to the wrapped backend. Statistics are not
// differentiated directly; BatchNorm2D accounts for them.
func (b *AutodiffBackend[B]) ChannelMoments(input *tensor.RawTensor) (mean, variance []float32) {
	return b.inner.ChannelMoments(input)
}

// BatchNorm2D normalises input and records the operation.
func (b *AutodiffBackend[B]) BatchNorm2D(input, gamma, beta *tensor.RawTensor, mean, invStd []float32, batchStats bool) *tensor.RawTensor {
	result := b.inner.BatchNorm2D(input, gamma, beta, mean, invStd, batchStats)
	b.tape.Record(ops.NewBatchNorm2DOp(input, gamma, beta, result, mean, invStd, batchStats))
	return result
}

// CrossEntropy computes the mean softmax cross-entropy and records the operation.
func (b *AutodiffBackend[B]) CrossEntropy(logits *tensor.RawTensor, targets []int32) *tensor.RawTensor {
	result := b.inner.CrossEntropy(logits, targets)
	b.tape.Record(ops.NewCrossEntropyOp(logits, result, targets))
	return result
}

// SumTo forwards to the wrapped backend.
func (b *AutodiffBackend[B]) SumTo(grad *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	return b.inner.SumTo(grad, shape)
}

// ReLUBackward forwards to the wrapped backend.
func (b *AutodiffBackend[B]) ReLUBackward(input, grad *tensor.RawTensor) *tensor.RawTensor {
	return b.inner.ReLUBackward(input, grad)
}

// Conv2DInputBackward forwards to the wrapped backend.
func (b *AutodiffBackend[B]) Conv2DInputBackward(input, kernel, grad *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	return b.inner.Conv2DInputBackward(input, kernel, grad, stride, padding)
}

// Conv2DKernelBackward forwards to the wrapped backend.
func (b *AutodiffBackend[B]) Conv2DKernelBackward(input, kernel, grad *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	return b.inner.Conv2DKernelBackward(input, kernel, grad, stride, padding)
}

// MaxPool2DBackward forwards to the wrapped backend.
func (b *AutodiffBackend[B]) MaxPool2DBackward(input, grad *tensor.RawTensor, kernelSize, stride, padding int) *tensor.RawTensor {
	return b.inner.MaxPool2DBackward(input, grad, kernelSize, stride, padding)
}

// AdaptiveAvgPool2DBackward forwards to the wrapped backend.
func (b *AutodiffBackend[B]) AdaptiveAvgPool2DBackward(input, grad *tensor.RawTensor) *tensor.RawTensor {
	return b.inner.AdaptiveAvgPool2DBackward(input, grad)
}

// BatchNorm2DBackward forwards to the wrapped backend.
func (b *AutodiffBackend[B]) BatchNorm2DBackward(
	input, gamma, grad *tensor.RawTensor, mean, invStd []float32, batchStats bool,
) (dx, dgamma, dbeta *tensor.RawTensor) {
	return b.inner.BatchNorm2DBackward(input, gamma, grad, mean, invStd, batchStats)
}

// CrossEntropyBackward forwards to the wrapped backend.
func (b *AutodiffBackend[B]) CrossEntropyBackward(logits *tensor.RawTensor, targets []int32, grad *tensor.RawTensor) *tensor.RawTensor {
	return b.inner.CrossEntropyBackward(logits, targets, grad)
}
