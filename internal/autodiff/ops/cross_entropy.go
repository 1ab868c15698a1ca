package ops

import "github.com/born-ml/resnet/internal/tensor"

// CrossEntropyOp records the mean softmax cross-entropy of logits [N, K]
// against integer class targets.
//
// Backward: dL/dlogits = (softmax(logits) - one_hot(targets)) / N.
type CrossEntropyOp struct {
	node
	targets []int32
}

// NewCrossEntropyOp creates a new CrossEntropyOp.
func NewCrossEntropyOp(logits, output *tensor.RawTensor, targets []int32) *CrossEntropyOp {
	return &CrossEntropyOp{
		node:    node{inputs: []*tensor.RawTensor{logits}, output: output},
		targets: targets,
	}
}

// Backward computes the logits gradient.
func (op *CrossEntropyOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.CrossEntropyBackward(op.inputs[0], op.targets, outputGrad)}
}
