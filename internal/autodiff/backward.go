package autodiff

import "github.com/born-ml/resnet/internal/tensor"

// BackwardCapable is a backend that owns a gradient tape.
// AutodiffBackend implements this interface.
type BackwardCapable interface {
	tensor.Backend
	Tape() *GradientTape
}

// Backward computes the gradients of t with respect to every tensor on the
// backend's tape, seeding the pass with ones.
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	backend.Tape().StartRecording()
//	loss := nn.CrossEntropyLoss(logits, targets)
//	grads := autodiff.Backward(loss, backend)
//	grad := grads[weight.Raw()]
func Backward[B BackwardCapable](t *tensor.Tensor[B], backend B) map[*tensor.RawTensor]*tensor.RawTensor {
	tape := backend.Tape()
	if tape.NumOps() == 0 {
		panic("backward: no operations recorded (did you forget to call Tape().StartRecording()?)")
	}
	seed := tensor.MustRaw(t.Shape(), backend.Device())
	seed.Fill(1)
	return tape.Backward(t.Raw(), seed, backend)
}
