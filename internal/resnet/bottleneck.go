package resnet

import (
	"fmt"
	"strings"

	"github.com/born-ml/resnet/internal/nn"
	"github.com/born-ml/resnet/internal/tensor"
)

// BottleneckBlock is the deep residual block of ResNet-50/101/152.
//
//	main:     conv1x1 → BN → ReLU → conv3x3(stride) → BN → ReLU → conv1x1 → BN
//	identity: input, or Projection(input)
//	output:   ReLU(main + identity)
//
// The last convolution expands the width by 4.
type BottleneckBlock[B tensor.Backend] struct {
	inChannels int
	width      int
	stride     int

	conv1 *nn.Conv2D[B]
	bn1   *nn.BatchNorm2D[B]
	conv2 *nn.Conv2D[B]
	bn2   *nn.BatchNorm2D[B]
	conv3 *nn.Conv2D[B]
	bn3   *nn.BatchNorm2D[B]

	downsample *Projection[B]
}

// NewBottleneckBlock creates a bottleneck block producing width*4 channels.
// The stride applies to the 3x3 convolution. With projection set, the
// identity goes through a 1x1 convolution mapping inChannels to width*4.
func NewBottleneckBlock[B tensor.Backend](inChannels, width, stride int, projection bool, backend B) *BottleneckBlock[B] {
	out := width * Deep.Expansion()
	b := &BottleneckBlock[B]{
		inChannels: inChannels,
		width:      width,
		stride:     stride,
		conv1:      nn.NewConv2D(inChannels, width, 1, 1, 0, false, backend),
		bn1:        nn.NewBatchNorm2D(width, backend),
		conv2:      nn.NewConv2D(width, width, 3, stride, 1, false, backend),
		bn2:        nn.NewBatchNorm2D(width, backend),
		conv3:      nn.NewConv2D(width, out, 1, 1, 0, false, backend),
		bn3:        nn.NewBatchNorm2D(out, backend),
	}
	if projection {
		b.downsample = NewProjection(inChannels, out, stride, backend)
	}
	return b
}

// Forward computes ReLU(main(x) + identity(x)).
func (b *BottleneckBlock[B]) Forward(x *tensor.Tensor[B]) *tensor.Tensor[B] {
	out := b.bn1.Forward(b.conv1.Forward(x)).ReLU()
	out = b.bn2.Forward(b.conv2.Forward(out)).ReLU()
	out = b.bn3.Forward(b.conv3.Forward(out))

	identity := x
	if b.downsample != nil {
		identity = b.downsample.Forward(x)
	}
	return merge(b.name(), out, identity)
}

// Parameters returns every trainable parameter of the block.
func (b *BottleneckBlock[B]) Parameters() []*nn.Parameter[B] {
	var params []*nn.Parameter[B]
	for _, m := range []nn.Module[B]{b.conv1, b.bn1, b.conv2, b.bn2, b.conv3, b.bn3} {
		params = append(params, m.Parameters()...)
	}
	if b.downsample != nil {
		params = append(params, b.downsample.Parameters()...)
	}
	return params
}

// SetTraining sets the mode of every batch norm in the block.
func (b *BottleneckBlock[B]) SetTraining(training bool) {
	setTraining(training, b.bn1, b.bn2, b.bn3)
	if b.downsample != nil {
		b.downsample.SetTraining(training)
	}
}

// Training reports the block's mode.
func (b *BottleneckBlock[B]) Training() bool { return b.bn1.Training() }

// InChannels returns the number of input channels.
func (b *BottleneckBlock[B]) InChannels() int { return b.inChannels }

// OutChannels returns width * 4.
func (b *BottleneckBlock[B]) OutChannels() int { return b.width * Deep.Expansion() }

// Width returns the channel count of the inner convolutions.
func (b *BottleneckBlock[B]) Width() int { return b.width }

// Stride returns the stride of the 3x3 convolution.
func (b *BottleneckBlock[B]) Stride() int { return b.stride }

// Expansion returns 4.
func (b *BottleneckBlock[B]) Expansion() int { return Deep.Expansion() }

// Projection returns the identity projection, or nil.
func (b *BottleneckBlock[B]) Projection() *Projection[B] { return b.downsample }

// StateDict returns the block state under torchvision-style names.
func (b *BottleneckBlock[B]) StateDict() map[string]*tensor.RawTensor {
	sd := make(map[string]*tensor.RawTensor)
	for name, m := range b.stateful() {
		nn.MergeState(sd, m.StateDict(), name+".")
	}
	return sd
}

// LoadStateDict loads the block state.
func (b *BottleneckBlock[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	return loadChildren(stateDict, b.stateful())
}

func (b *BottleneckBlock[B]) stateful() map[string]nn.Stateful {
	m := map[string]nn.Stateful{
		"conv1": b.conv1, "bn1": b.bn1,
		"conv2": b.conv2, "bn2": b.bn2,
		"conv3": b.conv3, "bn3": b.bn3,
	}
	if b.downsample != nil {
		m["downsample"] = b.downsample
	}
	return m
}

func (b *BottleneckBlock[B]) name() string {
	return fmt.Sprintf("BottleneckBlock(%d→%d, stride=%d)", b.inChannels, b.OutChannels(), b.stride)
}

func (b *BottleneckBlock[B]) String() string {
	var sb strings.Builder
	sb.WriteString("Bottleneck(\n")
	writeChild(&sb, "conv1", b.conv1)
	writeChild(&sb, "bn1", b.bn1)
	writeChild(&sb, "conv2", b.conv2)
	writeChild(&sb, "bn2", b.bn2)
	writeChild(&sb, "conv3", b.conv3)
	writeChild(&sb, "bn3", b.bn3)
	writeChild(&sb, "relu", "ReLU()")
	if b.downsample != nil {
		writeChild(&sb, "downsample", b.downsample)
	}
	sb.WriteString(")")
	return sb.String()
}
