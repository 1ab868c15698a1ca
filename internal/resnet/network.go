package resnet

import (
	"fmt"
	"strings"

	"github.com/born-ml/resnet/internal/nn"
	"github.com/born-ml/resnet/internal/tensor"
)

// Network is a residual image classifier:
//
//	stem:   conv7x7(stride 2) → BN → maxpool3x3(stride 2) → ReLU
//	stages: four residual stages with strides 1, 2, 2, 2
//	head:   adaptive average pool to 1x1 → flatten → linear
//
// Forward returns raw class scores [N, NumClasses] (no softmax).
type Network[B tensor.Backend] struct {
	cfg Config

	conv1   *nn.Conv2D[B]
	bn1     *nn.BatchNorm2D[B]
	maxpool *nn.MaxPool2D[B]
	relu    *nn.ReLU[B]
	stages  [4]*Stage[B]
	avgpool *nn.AdaptiveAvgPool2D[B]
	flatten *nn.Flatten[B]
	fc      *nn.Linear[B]

	backend B
}

// Build validates cfg and assembles the network on backend. Every
// parameter is allocated on the backend's device. Invalid configurations
// return a *ConfigurationError before any layer is created.
func Build[B tensor.Backend](cfg Config, backend B) (*Network[B], error) {
	p, err := cfg.plan()
	if err != nil {
		return nil, err
	}

	n := &Network[B]{
		cfg:     cfg.clone(),
		conv1:   nn.NewConv2D(cfg.InChannels, p.stem, 7, 2, 3, false, backend),
		bn1:     nn.NewBatchNorm2D(p.stem, backend),
		maxpool: nn.NewMaxPool2D(3, 2, 1, backend),
		relu:    nn.NewReLU[B](),
		avgpool: nn.NewAdaptiveAvgPool2D(1, 1, backend),
		flatten: nn.NewFlatten[B](),
		backend: backend,
	}

	ch := p.stageIn[0]
	for i := range n.stages {
		n.stages[i], ch, err = BuildStage(cfg.Variant, ch, p.widths[i], p.blocks[i], stageStrides[i], backend)
		if err != nil {
			return nil, err
		}
	}
	n.fc = nn.NewLinear(p.classifier, cfg.NumClasses, backend)
	return n, nil
}

func (cfg Config) clone() Config {
	c := cfg
	c.Blocks = append([]int(nil), cfg.Blocks...)
	if cfg.StageInChannels != nil {
		c.StageInChannels = append([]int(nil), cfg.StageInChannels...)
	}
	if cfg.Widths != nil {
		c.Widths = append([]int(nil), cfg.Widths...)
	}
	return c
}

// Forward maps images [N, InChannels, H, W] to scores [N, NumClasses].
// The batch axis is kept for N = 1.
func (n *Network[B]) Forward(x *tensor.Tensor[B]) *tensor.Tensor[B] {
	x = n.relu.Forward(n.maxpool.Forward(n.bn1.Forward(n.conv1.Forward(x))))
	for _, s := range n.stages {
		x = s.Forward(x)
	}
	return n.fc.Forward(n.flatten.Forward(n.avgpool.Forward(x)))
}

// Parameters returns every trainable parameter, stem first, classifier last.
func (n *Network[B]) Parameters() []*nn.Parameter[B] {
	var params []*nn.Parameter[B]
	params = append(params, n.conv1.Parameters()...)
	params = append(params, n.bn1.Parameters()...)
	for _, s := range n.stages {
		params = append(params, s.Parameters()...)
	}
	return append(params, n.fc.Parameters()...)
}

// NumParameters returns the total number of trainable scalars.
func (n *Network[B]) NumParameters() int {
	total := 0
	for _, p := range n.Parameters() {
		total += p.NumElements()
	}
	return total
}

// SetTraining switches every batch norm between batch statistics
// (training) and running estimates (evaluation).
func (n *Network[B]) SetTraining(training bool) {
	n.bn1.SetTraining(training)
	for _, s := range n.stages {
		s.SetTraining(training)
	}
}

// Training reports whether the network is in training mode.
func (n *Network[B]) Training() bool { return n.bn1.Training() }

// Config returns a copy of the configuration the network was built from.
func (n *Network[B]) Config() Config { return n.cfg.clone() }

// Stages returns the four residual stages.
func (n *Network[B]) Stages() []*Stage[B] { return n.stages[:] }

// ClassifierInFeatures returns the input width of the final linear layer.
func (n *Network[B]) ClassifierInFeatures() int { return n.fc.InFeatures() }

// Backend returns the backend the network computes on.
func (n *Network[B]) Backend() B { return n.backend }

func (n *Network[B]) String() string {
	var sb strings.Builder
	sb.WriteString("ResNet(\n")
	writeChild(&sb, "conv1", n.conv1)
	writeChild(&sb, "bn1", n.bn1)
	writeChild(&sb, "maxpool", n.maxpool)
	writeChild(&sb, "relu", n.relu)
	for i, s := range n.stages {
		writeChild(&sb, fmt.Sprintf("layer%d", i+1), s)
	}
	writeChild(&sb, "avgpool", n.avgpool)
	writeChild(&sb, "fc", n.fc)
	sb.WriteString(")")
	return sb.String()
}
