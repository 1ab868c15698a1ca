// Package nn implements the neural network layers a residual network is
// assembled from.
//
// This package provides:
//   - Module interface: Forward + Parameters, the contract every layer meets
//   - Parameter: trainable tensor with its gradient
//   - Conv2D, BatchNorm2D, MaxPool2D, AdaptiveAvgPool2D, Linear
//   - ReLU, Flatten, Sequential
//   - CrossEntropyLoss
//   - Kaiming / uniform initialisers backed by gonum's distributions
//
// Design inspired by PyTorch's nn.Module but adapted for Go generics.
package nn

import "github.com/born-ml/resnet/internal/tensor"

// Module is the base interface for all neural network components.
//
// Modules compose:
//
//	stem := nn.NewSequential[B](
//	    nn.NewConv2D(3, 64, 7, 2, 3, false, backend),
//	    nn.NewBatchNorm2D(64, backend),
//	    nn.NewReLU[B](),
//	)
type Module[B tensor.Backend] interface {
	// Forward computes the output of the module given an input tensor.
	Forward(input *tensor.Tensor[B]) *tensor.Tensor[B]

	// Parameters returns all trainable parameters of this module, nested
	// modules included. Modules without weights return nil.
	Parameters() []*Parameter[B]
}

// Trainable is implemented by modules whose forward pass differs between
// training and evaluation (BatchNorm2D and every container holding one).
type Trainable interface {
	SetTraining(training bool)
	Training() bool
}

// Stateful is implemented by modules that carry persistent state:
// parameters and non-trainable buffers such as batch-norm running
// statistics.
//
// Keys are dotted names relative to the module ("weight", "0.running_mean").
type Stateful interface {
	StateDict() map[string]*tensor.RawTensor
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error
}

// SetTraining switches m and its children to training or evaluation mode.
// Modules that are not Trainable are left alone.
func SetTraining(m any, training bool) {
	if t, ok := m.(Trainable); ok {
		t.SetTraining(training)
	}
}
