package nn

import (
	"fmt"

	"github.com/born-ml/resnet/internal/tensor"
)

// MaxPool2D is a 2D max pooling layer with optional implicit padding.
//
// Padded positions never win the maximum.
//
//	out = (in + 2*padding - kernelSize) / stride + 1
//
// Example:
//
//	// ResNet stem pooling halves the resolution
//	pool := nn.NewMaxPool2D(3, 2, 1, backend)
type MaxPool2D[B tensor.Backend] struct {
	kernelSize int
	stride     int
	padding    int
	backend    B
}

// NewMaxPool2D creates a new 2D max pooling layer.
func NewMaxPool2D[B tensor.Backend](kernelSize, stride, padding int, backend B) *MaxPool2D[B] {
	if kernelSize <= 0 {
		panic(fmt.Sprintf("maxpool2d: invalid kernel size %d", kernelSize))
	}
	if stride <= 0 {
		panic(fmt.Sprintf("maxpool2d: invalid stride %d", stride))
	}
	if padding < 0 || 2*padding > kernelSize {
		panic(fmt.Sprintf("maxpool2d: padding %d must be between 0 and half the kernel size", padding))
	}
	return &MaxPool2D[B]{kernelSize: kernelSize, stride: stride, padding: padding, backend: backend}
}

// Forward applies max pooling.
func (m *MaxPool2D[B]) Forward(input *tensor.Tensor[B]) *tensor.Tensor[B] {
	return tensor.New(m.backend.MaxPool2D(input.Raw(), m.kernelSize, m.stride, m.padding), m.backend)
}

// Parameters returns nil (MaxPool2D has no trainable parameters).
func (m *MaxPool2D[B]) Parameters() []*Parameter[B] {
	return nil
}

// OutputSize computes output spatial dimensions for a given input size.
func (m *MaxPool2D[B]) OutputSize(h, w int) (int, int) {
	return (h+2*m.padding-m.kernelSize)/m.stride + 1, (w+2*m.padding-m.kernelSize)/m.stride + 1
}

// String returns a string representation of the layer.
func (m *MaxPool2D[B]) String() string {
	return fmt.Sprintf("MaxPool2d(kernel_size=%d, stride=%d, padding=%d)", m.kernelSize, m.stride, m.padding)
}

// AdaptiveAvgPool2D averages each channel down to a fixed output size,
// whatever the input resolution.
type AdaptiveAvgPool2D[B tensor.Backend] struct {
	outH, outW int
	backend    B
}

// NewAdaptiveAvgPool2D creates an adaptive average pooling layer.
func NewAdaptiveAvgPool2D[B tensor.Backend](outH, outW int, backend B) *AdaptiveAvgPool2D[B] {
	if outH <= 0 || outW <= 0 {
		panic(fmt.Sprintf("adaptiveavgpool2d: invalid output size %dx%d", outH, outW))
	}
	return &AdaptiveAvgPool2D[B]{outH: outH, outW: outW, backend: backend}
}

// Forward applies adaptive average pooling.
func (a *AdaptiveAvgPool2D[B]) Forward(input *tensor.Tensor[B]) *tensor.Tensor[B] {
	return tensor.New(a.backend.AdaptiveAvgPool2D(input.Raw(), a.outH, a.outW), a.backend)
}

// Parameters returns nil.
func (a *AdaptiveAvgPool2D[B]) Parameters() []*Parameter[B] {
	return nil
}

// String returns a string representation of the layer.
func (a *AdaptiveAvgPool2D[B]) String() string {
	return fmt.Sprintf("AdaptiveAvgPool2d(output_size=(%d, %d))", a.outH, a.outW)
}
