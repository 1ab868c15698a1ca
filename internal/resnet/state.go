package resnet

import (
	"fmt"

	"github.com/born-ml/resnet/internal/nn"
	"github.com/born-ml/resnet/internal/tensor"
)

// StateDict returns every parameter and batch-norm running statistic under
// torchvision-style dotted names ("conv1.weight", "layer2.0.downsample.1.running_var",
// "fc.bias"). The returned tensors alias the network's storage.
func (n *Network[B]) StateDict() map[string]*tensor.RawTensor {
	sd := make(map[string]*tensor.RawTensor)
	for name, m := range n.stateful() {
		nn.MergeState(sd, m.StateDict(), name+".")
	}
	return sd
}

// LoadStateDict copies values from stateDict into the network. Every entry
// the network owns must be present with a matching shape; extra entries
// are ignored.
func (n *Network[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	return loadChildren(stateDict, n.stateful())
}

func (n *Network[B]) stateful() map[string]nn.Stateful {
	m := map[string]nn.Stateful{
		"conv1": n.conv1,
		"bn1":   n.bn1,
		"fc":    n.fc,
	}
	for i, s := range n.stages {
		m[fmt.Sprintf("layer%d", i+1)] = s
	}
	return m
}

// Relocate rebuilds src on another backend (and so, possibly, another
// device) and copies its parameters, running statistics and mode. The
// relocated network computes the same function as src.
func Relocate[A, B tensor.Backend](src *Network[A], backend B) (*Network[B], error) {
	dst, err := Build(src.Config(), backend)
	if err != nil {
		return nil, err
	}
	if err := dst.LoadStateDict(src.StateDict()); err != nil {
		return nil, fmt.Errorf("resnet: relocate: %w", err)
	}
	dst.SetTraining(src.Training())
	return dst, nil
}
