package resnet

import (
	"fmt"
	"strings"

	"github.com/born-ml/resnet/internal/nn"
	"github.com/born-ml/resnet/internal/tensor"
)

// BasicBlock is the two-convolution residual block of ResNet-18/34.
//
//	main:     conv3x3(stride) → BN → ReLU → conv3x3 → BN
//	identity: input, or Projection(input)
//	output:   ReLU(main + identity)
//
// Output channels equal the width (expansion 1).
type BasicBlock[B tensor.Backend] struct {
	inChannels int
	width      int
	stride     int

	conv1 *nn.Conv2D[B]
	bn1   *nn.BatchNorm2D[B]
	conv2 *nn.Conv2D[B]
	bn2   *nn.BatchNorm2D[B]

	downsample *Projection[B]
}

// NewBasicBlock creates a basic block. With projection set, the identity
// goes through a 1x1 convolution mapping inChannels to width with the
// block's stride.
//
// A block whose input shape differs from its output shape needs a
// projection; building one without it succeeds, but Forward panics with a
// *ShapeMismatchError.
func NewBasicBlock[B tensor.Backend](inChannels, width, stride int, projection bool, backend B) *BasicBlock[B] {
	b := &BasicBlock[B]{
		inChannels: inChannels,
		width:      width,
		stride:     stride,
		conv1:      nn.NewConv2D(inChannels, width, 3, stride, 1, false, backend),
		bn1:        nn.NewBatchNorm2D(width, backend),
		conv2:      nn.NewConv2D(width, width, 3, 1, 1, false, backend),
		bn2:        nn.NewBatchNorm2D(width, backend),
	}
	if projection {
		b.downsample = NewProjection(inChannels, width, stride, backend)
	}
	return b
}

// Forward computes ReLU(main(x) + identity(x)).
func (b *BasicBlock[B]) Forward(x *tensor.Tensor[B]) *tensor.Tensor[B] {
	out := b.bn1.Forward(b.conv1.Forward(x)).ReLU()
	out = b.bn2.Forward(b.conv2.Forward(out))

	identity := x
	if b.downsample != nil {
		identity = b.downsample.Forward(x)
	}
	return merge(b.name(), out, identity)
}

// Parameters returns every trainable parameter of the block.
func (b *BasicBlock[B]) Parameters() []*nn.Parameter[B] {
	var params []*nn.Parameter[B]
	params = append(params, b.conv1.Parameters()...)
	params = append(params, b.bn1.Parameters()...)
	params = append(params, b.conv2.Parameters()...)
	params = append(params, b.bn2.Parameters()...)
	if b.downsample != nil {
		params = append(params, b.downsample.Parameters()...)
	}
	return params
}

// SetTraining sets the mode of every batch norm in the block.
func (b *BasicBlock[B]) SetTraining(training bool) {
	setTraining(training, b.bn1, b.bn2)
	if b.downsample != nil {
		b.downsample.SetTraining(training)
	}
}

// Training reports the block's mode.
func (b *BasicBlock[B]) Training() bool { return b.bn1.Training() }

// InChannels returns the number of input channels.
func (b *BasicBlock[B]) InChannels() int { return b.inChannels }

// OutChannels returns the number of output channels.
func (b *BasicBlock[B]) OutChannels() int { return b.width }

// Width returns the channel count of the inner convolutions.
func (b *BasicBlock[B]) Width() int { return b.width }

// Stride returns the stride of the first convolution.
func (b *BasicBlock[B]) Stride() int { return b.stride }

// Expansion returns 1.
func (b *BasicBlock[B]) Expansion() int { return 1 }

// Projection returns the identity projection, or nil.
func (b *BasicBlock[B]) Projection() *Projection[B] { return b.downsample }

// StateDict returns the block state under torchvision-style names.
func (b *BasicBlock[B]) StateDict() map[string]*tensor.RawTensor {
	sd := make(map[string]*tensor.RawTensor)
	for name, m := range b.stateful() {
		nn.MergeState(sd, m.StateDict(), name+".")
	}
	return sd
}

// LoadStateDict loads the block state.
func (b *BasicBlock[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	return loadChildren(stateDict, b.stateful())
}

func (b *BasicBlock[B]) stateful() map[string]nn.Stateful {
	m := map[string]nn.Stateful{"conv1": b.conv1, "bn1": b.bn1, "conv2": b.conv2, "bn2": b.bn2}
	if b.downsample != nil {
		m["downsample"] = b.downsample
	}
	return m
}

func (b *BasicBlock[B]) name() string {
	return fmt.Sprintf("BasicBlock(%d→%d, stride=%d)", b.inChannels, b.width, b.stride)
}

func (b *BasicBlock[B]) String() string {
	var sb strings.Builder
	sb.WriteString("BasicBlock(\n")
	writeChild(&sb, "conv1", b.conv1)
	writeChild(&sb, "bn1", b.bn1)
	writeChild(&sb, "relu", "ReLU()")
	writeChild(&sb, "conv2", b.conv2)
	writeChild(&sb, "bn2", b.bn2)
	if b.downsample != nil {
		writeChild(&sb, "downsample", b.downsample)
	}
	sb.WriteString(")")
	return sb.String()
}

func writeChild(sb *strings.Builder, name string, child any) {
	fmt.Fprintf(sb, "  (%s): %s\n", name, nn.Indent(fmt.Sprint(child), 2))
}

func loadChildren(stateDict map[string]*tensor.RawTensor, children map[string]nn.Stateful) error {
	for name, m := range children {
		if err := m.LoadStateDict(nn.SubState(stateDict, name+".")); err != nil {
			return fmt.Errorf("%s.%w", name, err)
		}
	}
	return nil
}
