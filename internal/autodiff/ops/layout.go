package ops

import "github.com/born-ml/resnet/internal/tensor"

// TransposeOp represents the transpose of a 2D tensor.
//
// The backend copies data when transposing, so the op must be on the tape
// for gradients to reach the untransposed tensor (a Linear weight, say).
type TransposeOp struct{ node }

// NewTransposeOp creates a new TransposeOp.
func NewTransposeOp(input, output *tensor.RawTensor) *TransposeOp {
	return &TransposeOp{node{inputs: []*tensor.RawTensor{input}, output: output}}
}

// Backward transposes the gradient back.
func (op *TransposeOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Transpose(outputGrad)}
}

// ReshapeOp represents a reshape. Flatten and bias broadcasting use it.
type ReshapeOp struct{ node }

// NewReshapeOp creates a new ReshapeOp.
func NewReshapeOp(input, output *tensor.RawTensor) *ReshapeOp {
	return &ReshapeOp{node{inputs: []*tensor.RawTensor{input}, output: output}}
}

// Backward restores the input shape on the gradient.
func (op *ReshapeOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Reshape(outputGrad, op.inputs[0].Shape())}
}
