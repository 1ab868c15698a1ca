package ops

import "github.com/born-ml/resnet/internal/tensor"

// BatchNorm2DOp records output = gamma * (x - mean) * invStd + beta.
//
// Inputs are [x, gamma, beta]. When the statistics came from the batch
// itself, the input gradient accounts for their dependence on x.
type BatchNorm2DOp struct {
	node
	mean       []float32
	invStd     []float32
	batchStats bool
}

// NewBatchNorm2DOp creates a new BatchNorm2DOp.
func NewBatchNorm2DOp(input, gamma, beta, output *tensor.RawTensor, mean, invStd []float32, batchStats bool) *BatchNorm2DOp {
	return &BatchNorm2DOp{
		node:       node{inputs: []*tensor.RawTensor{input, gamma, beta}, output: output},
		mean:       mean,
		invStd:     invStd,
		batchStats: batchStats,
	}
}

// Backward computes gradients for x, gamma and beta.
func (op *BatchNorm2DOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	dx, dgamma, dbeta := backend.BatchNorm2DBackward(op.inputs[0], op.inputs[1], outputGrad, op.mean, op.invStd, op.batchStats)
	return []*tensor.RawTensor{dx, dgamma, dbeta}
}
