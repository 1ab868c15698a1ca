package resnet

import (
	"github.com/born-ml/resnet/internal/nn"
	"github.com/born-ml/resnet/internal/tensor"
)

// Block is a residual block: a main path whose output is added to the
// (possibly projected) input before a final ReLU.
type Block[B tensor.Backend] interface {
	nn.Module[B]
	nn.Trainable
	nn.Stateful

	InChannels() int
	// OutChannels is Width() * Expansion().
	OutChannels() int
	Width() int
	Stride() int
	Expansion() int
	// Projection returns the identity projection, or nil when the input is
	// added unchanged.
	Projection() *Projection[B]
}

// NewBlock creates a block of the given variant.
func NewBlock[B tensor.Backend](variant Variant, inChannels, width, stride int, projection bool, backend B) Block[B] {
	if variant == Deep {
		return NewBottleneckBlock(inChannels, width, stride, projection, backend)
	}
	return NewBasicBlock(inChannels, width, stride, projection, backend)
}

// NeedsProjection reports whether a block mapping inChannels to
// width*expansion with the given stride needs a projected identity.
func NeedsProjection(variant Variant, inChannels, width, stride int) bool {
	return stride != 1 || inChannels != width*variant.Expansion()
}

// merge adds the identity to the main path and applies the closing ReLU.
// Mismatched shapes panic with *ShapeMismatchError; they are never broadcast.
func merge[B tensor.Backend](name string, main, identity *tensor.Tensor[B]) *tensor.Tensor[B] {
	if !main.Shape().Equal(identity.Shape()) {
		panic(&ShapeMismatchError{
			Block:    name,
			Main:     main.Shape().Clone(),
			Identity: identity.Shape().Clone(),
		})
	}
	return main.Add(identity).ReLU()
}

func setTraining(training bool, modules ...nn.Trainable) {
	for _, m := range modules {
		m.SetTraining(training)
	}
}
