package ops

import "github.com/born-ml/resnet/internal/tensor"

// Conv2DOp records a 2D convolution.
//
// Backward (gradients):
//   - d_input:  transposed convolution of d_output with the kernel
//   - d_kernel: correlation of the input with d_output
type Conv2DOp struct {
	node
	stride  int
	padding int
}

// NewConv2DOp creates a new Conv2DOp.
func NewConv2DOp(input, kernel, output *tensor.RawTensor, stride, padding int) *Conv2DOp {
	return &Conv2DOp{
		node:    node{inputs: []*tensor.RawTensor{input, kernel}, output: output},
		stride:  stride,
		padding: padding,
	}
}

// Backward computes gradients for the input [N, C_in, H, W] and the kernel
// [C_out, C_in, K_h, K_w].
func (op *Conv2DOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	input, kernel := op.inputs[0], op.inputs[1]
	return []*tensor.RawTensor{
		backend.Conv2DInputBackward(input, kernel, outputGrad, op.stride, op.padding),
		backend.Conv2DKernelBackward(input, kernel, outputGrad, op.stride, op.padding),
	}
}
