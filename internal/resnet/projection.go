package resnet

import (
	"fmt"

	"github.com/born-ml/resnet/internal/nn"
	"github.com/born-ml/resnet/internal/tensor"
)

// Projection maps a block's input onto the main path's shape: a 1x1
// convolution with the block's stride and no bias, then batch norm.
type Projection[B tensor.Backend] struct {
	conv *nn.Conv2D[B]
	bn   *nn.BatchNorm2D[B]
}

// NewProjection creates a projection from inChannels to outChannels.
func NewProjection[B tensor.Backend](inChannels, outChannels, stride int, backend B) *Projection[B] {
	return &Projection[B]{
		conv: nn.NewConv2D(inChannels, outChannels, 1, stride, 0, false, backend),
		bn:   nn.NewBatchNorm2D(outChannels, backend),
	}
}

// Forward projects input.
func (p *Projection[B]) Forward(input *tensor.Tensor[B]) *tensor.Tensor[B] {
	return p.bn.Forward(p.conv.Forward(input))
}

// Parameters returns the convolution and batch-norm parameters.
func (p *Projection[B]) Parameters() []*nn.Parameter[B] {
	return append(p.conv.Parameters(), p.bn.Parameters()...)
}

// SetTraining sets the batch-norm mode.
func (p *Projection[B]) SetTraining(training bool) { p.bn.SetTraining(training) }

// Training reports the batch-norm mode.
func (p *Projection[B]) Training() bool { return p.bn.Training() }

// Stride returns the spatial stride of the projection.
func (p *Projection[B]) Stride() int { return p.conv.Stride() }

// StateDict uses the downsample numbering of the reference models:
// "0.*" for the convolution, "1.*" for the batch norm.
func (p *Projection[B]) StateDict() map[string]*tensor.RawTensor {
	sd := make(map[string]*tensor.RawTensor)
	nn.MergeState(sd, p.conv.StateDict(), "0.")
	nn.MergeState(sd, p.bn.StateDict(), "1.")
	return sd
}

// LoadStateDict loads the convolution and batch-norm state.
func (p *Projection[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	if err := p.conv.LoadStateDict(nn.SubState(stateDict, "0.")); err != nil {
		return fmt.Errorf("0.%w", err)
	}
	if err := p.bn.LoadStateDict(nn.SubState(stateDict, "1.")); err != nil {
		return fmt.Errorf("1.%w", err)
	}
	return nil
}

func (p *Projection[B]) String() string {
	return fmt.Sprintf("Sequential(\n  (0): %s\n  (1): %s\n)", p.conv, p.bn)
}
