package ops

import "github.com/born-ml/resnet/internal/tensor"

// MaxPool2DOp records a max pooling operation.
//
// Each output gradient flows to the single input position that held the
// window maximum; every other position receives zero.
type MaxPool2DOp struct {
	node
	kernelSize int
	stride     int
	padding    int
}

// NewMaxPool2DOp creates a new MaxPool2DOp.
func NewMaxPool2DOp(input, output *tensor.RawTensor, kernelSize, stride, padding int) *MaxPool2DOp {
	return &MaxPool2DOp{
		node:       node{inputs: []*tensor.RawTensor{input}, output: output},
		kernelSize: kernelSize,
		stride:     stride,
		padding:    padding,
	}
}

// Backward routes the gradient to the window maxima.
func (op *MaxPool2DOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{
		backend.MaxPool2DBackward(op.inputs[0], outputGrad, op.kernelSize, op.stride, op.padding),
	}
}

// AdaptiveAvgPool2DOp records an adaptive average pooling operation.
type AdaptiveAvgPool2DOp struct{ node }

// NewAdaptiveAvgPool2DOp creates a new AdaptiveAvgPool2DOp.
func NewAdaptiveAvgPool2DOp(input, output *tensor.RawTensor) *AdaptiveAvgPool2DOp {
	return &AdaptiveAvgPool2DOp{node{inputs: []*tensor.RawTensor{input}, output: output}}
}

// Backward spreads each output gradient evenly over its pooling region.
func (op *AdaptiveAvgPool2DOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.AdaptiveAvgPool2DBackward(op.inputs[0], outputGrad)}
}
