package tensor

// Backend defines the operations a compute backend must provide.
//
// Forward operations take their operands as RawTensors and allocate fresh
// outputs; none of them mutates an input. The *Backward methods compute the
// gradient kernels used by autodiff operations and are never recorded on a
// tape themselves.
//
// Implementations:
//   - cpu.CPUBackend: pure Go, GEMM through gonum's BLAS
//   - autodiff.AutodiffBackend: decorator recording differentiable ops
type Backend interface {
	// Element-wise and linear algebra.
	Add(a, b *RawTensor) *RawTensor
	MatMul(a, b *RawTensor) *RawTensor
	Transpose(t *RawTensor) *RawTensor
	Reshape(t *RawTensor, newShape Shape) *RawTensor
	ReLU(x *RawTensor) *RawTensor

	// Convolution and pooling over [N, C, H, W] inputs.
	Conv2D(input, kernel *RawTensor, stride, padding int) *RawTensor
	MaxPool2D(input *RawTensor, kernelSize, stride, padding int) *RawTensor
	AdaptiveAvgPool2D(input *RawTensor, outH, outW int) *RawTensor

	// ChannelMoments returns the per-channel mean and biased variance of an
	// [N, C, H, W] input.
	ChannelMoments(input *RawTensor) (mean, variance []float32)

	// BatchNorm2D normalises input with the given per-channel statistics and
	// applies the affine transform gamma*x̂ + beta. batchStats marks mean and
	// invStd as computed from input itself, which changes the gradient.
	BatchNorm2D(input, gamma, beta *RawTensor, mean, invStd []float32, batchStats bool) *RawTensor

	// CrossEntropy returns the mean negative log-likelihood of targets under
	// softmax(logits) as a [1] tensor.
	CrossEntropy(logits *RawTensor, targets []int32) *RawTensor

	// Gradient kernels.
	SumTo(grad *RawTensor, shape Shape) *RawTensor
	ReLUBackward(input, grad *RawTensor) *RawTensor
	Conv2DInputBackward(input, kernel, grad *RawTensor, stride, padding int) *RawTensor
	Conv2DKernelBackward(input, kernel, grad *RawTensor, stride, padding int) *RawTensor
	MaxPool2DBackward(input, grad *RawTensor, kernelSize, stride, padding int) *RawTensor
	AdaptiveAvgPool2DBackward(input, grad *RawTensor) *RawTensor
	BatchNorm2DBackward(input, gamma, grad *RawTensor, mean, invStd []float32, batchStats bool) (dx, dgamma, dbeta *RawTensor)
	CrossEntropyBackward(logits *RawTensor, targets []int32, grad *RawTensor) *RawTensor

	// Metadata.
	Name() string
	Device() Device
}
