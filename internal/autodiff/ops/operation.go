// Package ops defines the differentiable operations recorded by the gradient
// tape.
//
// Each operation keeps references to its inputs and output from the forward
// pass and turns the output gradient into one gradient per input. Gradient
// math is delegated to the backend's *Backward kernels; operations only
// orchestrate.
//
// Supported operations:
//   - AddOp: element-wise addition with broadcasting
//   - MatMulOp: 2D matrix multiplication
//   - TransposeOp, ReshapeOp: layout changes
//   - ReLUOp: rectified linear unit
//   - Conv2DOp, MaxPool2DOp, AdaptiveAvgPool2DOp: spatial operations
//   - BatchNorm2DOp: per-channel normalisation with affine parameters
//   - CrossEntropyOp: softmax cross-entropy loss
package ops

import "github.com/born-ml/resnet/internal/tensor"

// Operation is a differentiable node in the computation graph.
type Operation interface {
	// Backward returns the gradient for each input, in Inputs order. A nil
	// entry means no gradient flows to that input.
	Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor

	// Inputs returns the input tensors for this operation.
	Inputs() []*tensor.RawTensor

	// Output returns the output tensor produced by this operation.
	Output() *tensor.RawTensor
}

// node carries the bookkeeping shared by every operation.
type node struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// Inputs returns the input tensors.
func (n node) Inputs() []*tensor.RawTensor { return n.inputs }

// Output returns the output tensor.
func (n node) Output() *tensor.RawTensor { return n.output }
