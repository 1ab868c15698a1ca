package ops

import "github.com/born-ml/resnet/internal/tensor"

// ReLUOp represents output = max(0, x).
//
// The gradient passes where x > 0 and is zero elsewhere.
type ReLUOp struct{ node }

// NewReLUOp creates a new ReLUOp.
func NewReLUOp(input, output *tensor.RawTensor) *ReLUOp {
	return &ReLUOp{node{inputs: []*tensor.RawTensor{input}, output: output}}
}

// Backward computes the input gradient for ReLU.
func (op *ReLUOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.ReLUBackward(op.inputs[0], outputGrad)}
}
