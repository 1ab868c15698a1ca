package resnet

import (
	"fmt"
	"strings"

	"github.com/born-ml/resnet/internal/nn"
	"github.com/born-ml/resnet/internal/tensor"
)

// Stage is a run of residual blocks sharing one width. Only the first block
// may change the stride or the channel count; the rest map
// OutChannels → OutChannels with stride 1 and no projection.
type Stage[B tensor.Backend] struct {
	variant    Variant
	inChannels int
	width      int
	stride     int
	blocks     []Block[B]
}

// BuildStage builds a stage of blocks residual blocks and returns it along
// with the channel count the next stage receives (width * expansion).
//
// The first block gets the stage stride and, when NeedsProjection holds, a
// projected identity. Callers thread the returned count into the next
// call:
//
//	stage1, ch, err := resnet.BuildStage(resnet.Basic, 64, 64, 2, 1, backend)
//	stage2, ch, err := resnet.BuildStage(resnet.Basic, ch, 128, 2, 2, backend)
func BuildStage[B tensor.Backend](variant Variant, inChannels, width, blocks, stride int, backend B) (*Stage[B], int, error) {
	switch {
	case !variant.Valid():
		return nil, 0, configErr("variant", "unknown variant %d", int(variant))
	case inChannels <= 0:
		return nil, 0, configErr("in_channels", "must be positive, got %d", inChannels)
	case width <= 0:
		return nil, 0, configErr("width", "must be positive, got %d", width)
	case blocks < 1:
		return nil, 0, configErr("blocks", "a stage needs at least one block, got %d", blocks)
	case stride < 1:
		return nil, 0, configErr("stride", "must be positive, got %d", stride)
	}

	out := width * variant.Expansion()
	s := &Stage[B]{
		variant:    variant,
		inChannels: inChannels,
		width:      width,
		stride:     stride,
		blocks:     make([]Block[B], 0, blocks),
	}
	s.blocks = append(s.blocks, NewBlock(variant, inChannels, width, stride,
		NeedsProjection(variant, inChannels, width, stride), backend))
	for i := 1; i < blocks; i++ {
		s.blocks = append(s.blocks, NewBlock(variant, out, width, 1, false, backend))
	}
	return s, out, nil
}

// Forward runs the blocks in order.
func (s *Stage[B]) Forward(x *tensor.Tensor[B]) *tensor.Tensor[B] {
	for _, b := range s.blocks {
		x = b.Forward(x)
	}
	return x
}

// Parameters returns the parameters of every block.
func (s *Stage[B]) Parameters() []*nn.Parameter[B] {
	var params []*nn.Parameter[B]
	for _, b := range s.blocks {
		params = append(params, b.Parameters()...)
	}
	return params
}

// SetTraining sets the mode of every block.
func (s *Stage[B]) SetTraining(training bool) {
	for _, b := range s.blocks {
		b.SetTraining(training)
	}
}

// Training reports the mode of the first block.
func (s *Stage[B]) Training() bool { return s.blocks[0].Training() }

// Blocks returns the stage's blocks in order.
func (s *Stage[B]) Blocks() []Block[B] { return s.blocks }

// InChannels returns the channel count entering the stage.
func (s *Stage[B]) InChannels() int { return s.inChannels }

// OutChannels returns width * expansion.
func (s *Stage[B]) OutChannels() int { return s.width * s.variant.Expansion() }

// Width returns the stage width.
func (s *Stage[B]) Width() int { return s.width }

// Stride returns the stride of the first block.
func (s *Stage[B]) Stride() int { return s.stride }

// StateDict returns the state of every block under its index.
func (s *Stage[B]) StateDict() map[string]*tensor.RawTensor {
	sd := make(map[string]*tensor.RawTensor)
	for i, b := range s.blocks {
		nn.MergeState(sd, b.StateDict(), fmt.Sprintf("%d.", i))
	}
	return sd
}

// LoadStateDict loads the state of every block.
func (s *Stage[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	for i, b := range s.blocks {
		prefix := fmt.Sprintf("%d.", i)
		if err := b.LoadStateDict(nn.SubState(stateDict, prefix)); err != nil {
			return fmt.Errorf("%s%w", prefix, err)
		}
	}
	return nil
}

func (s *Stage[B]) String() string {
	var sb strings.Builder
	sb.WriteString("Sequential(\n")
	for i, b := range s.blocks {
		writeChild(&sb, fmt.Sprint(i), b)
	}
	sb.WriteString(")")
	return sb.String()
}
