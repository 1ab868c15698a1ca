// Package optim implements optimization algorithms and learning-rate
// schedules for training neural networks.
//
// This package provides:
//   - Optimizer interface: base interface for all optimizers
//   - SGD: stochastic gradient descent with momentum and weight decay
//   - Adam: adaptive moment estimation
//   - ExponentialLR, StepLR: per-epoch learning-rate schedules
//
// Design inspired by PyTorch's torch.optim but adapted for Go generics.
//
// Example usage:
//
//	optimizer := optim.NewAdam(model.Parameters(), optim.AdamConfig{LR: 0.001})
//	for batch := range batches {
//	    backend.Tape().StartRecording()
//	    loss := nn.CrossEntropyLoss(model.Forward(batch.Images), batch.Labels)
//	    grads := autodiff.Backward(loss, backend)
//	    optimizer.Step(grads)
//	    optimizer.ZeroGrad()
//	    backend.Tape().Clear()
//	}
package optim

import (
	"github.com/born-ml/resnet/internal/nn"
	"github.com/born-ml/resnet/internal/tensor"
)

// Optimizer is the base interface for all optimization algorithms.
type Optimizer interface {
	// Step updates every parameter in place from the gradient map returned
	// by autodiff.Backward. Parameters without a gradient are skipped.
	Step(grads map[*tensor.RawTensor]*tensor.RawTensor)

	// ZeroGrad clears all parameter gradients.
	ZeroGrad()

	// GetLR returns the current learning rate.
	GetLR() float32

	// SetLR replaces the learning rate; schedulers drive it.
	SetLR(lr float32)
}

// gradient looks up the gradient for param and records it on the parameter.
// Returns nil if the parameter was not part of the computation graph.
func gradient[B tensor.Backend](param *nn.Parameter[B], grads map[*tensor.RawTensor]*tensor.RawTensor) []float32 {
	raw := grads[param.Tensor().Raw()]
	if raw == nil {
		return nil
	}
	param.SetGrad(tensor.New(raw, param.Tensor().Backend()))
	return raw.Data()
}

func zeroGrads[B tensor.Backend](params []*nn.Parameter[B]) {
	for _, p := range params {
		p.ZeroGrad()
	}
}
