package ops

import "github.com/born-ml/resnet/internal/tensor"

// AddOp represents output = a + b.
//
// Both inputs receive the output gradient, summed over any dimension the
// forward pass broadcast. The residual join of every block goes through here.
type AddOp struct{ node }

// NewAddOp creates a new AddOp.
func NewAddOp(a, b, output *tensor.RawTensor) *AddOp {
	return &AddOp{node{inputs: []*tensor.RawTensor{a, b}, output: output}}
}

// Backward computes input gradients for addition.
func (op *AddOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	a, b := op.inputs[0], op.inputs[1]
	return []*tensor.RawTensor{
		backend.SumTo(outputGrad, a.Shape()),
		backend.SumTo(outputGrad, b.Shape()),
	}
}
