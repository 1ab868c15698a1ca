package nn

import (
	"fmt"
	"math"

	"github.com/born-ml/resnet/internal/tensor"
)

// BatchNorm2D normalises each channel of a [N, C, H, W] input.
//
//	y = gamma * (x - mean) / sqrt(var + eps) + beta
//
// In training mode mean and var are the batch statistics over N, H and W,
// and the running estimates are updated:
//
//	running = (1 - momentum) * running + momentum * batch
//
// with the unbiased batch variance. In evaluation mode the running
// estimates are used instead. New layers start in training mode.
type BatchNorm2D[B tensor.Backend] struct {
	numFeatures int
	eps         float64
	momentum    float64
	training    bool

	gamma *Parameter[B]
	beta  *Parameter[B]

	runningMean *tensor.RawTensor
	runningVar  *tensor.RawTensor

	backend B
}

// NewBatchNorm2D creates a batch-norm layer with eps 1e-5 and momentum 0.1.
// Gamma starts at one, beta at zero, the running mean at zero and the
// running variance at one.
func NewBatchNorm2D[B tensor.Backend](numFeatures int, backend B) *BatchNorm2D[B] {
	if numFeatures <= 0 {
		panic(fmt.Sprintf("batchnorm2d: invalid number of features %d", numFeatures))
	}
	shape := tensor.Shape{numFeatures}
	runningVar := tensor.MustRaw(shape, backend.Device())
	runningVar.Fill(1)
	return &BatchNorm2D[B]{
		numFeatures: numFeatures,
		eps:         1e-5,
		momentum:    0.1,
		training:    true,
		gamma:       NewParameter("weight", Ones(shape, backend)),
		beta:        NewParameter("bias", Zeros(shape, backend)),
		runningMean: tensor.MustRaw(shape, backend.Device()),
		runningVar:  runningVar,
		backend:     backend,
	}
}

// Forward normalises input.
func (bn *BatchNorm2D[B]) Forward(input *tensor.Tensor[B]) *tensor.Tensor[B] {
	shape := input.Shape()
	if len(shape) != 4 {
		panic(fmt.Sprintf("batchnorm2d: expected 4D input [N,C,H,W], got %dD", len(shape)))
	}
	if shape[1] != bn.numFeatures {
		panic(fmt.Sprintf("batchnorm2d: input channels %d != expected %d", shape[1], bn.numFeatures))
	}

	var mean, variance []float32
	if bn.training {
		mean, variance = bn.backend.ChannelMoments(input.Raw())
		bn.updateRunning(mean, variance, shape[0]*shape[2]*shape[3])
	} else {
		mean = append([]float32(nil), bn.runningMean.Data()...)
		variance = bn.runningVar.Data()
	}

	invStd := make([]float32, bn.numFeatures)
	for c, v := range variance {
		invStd[c] = float32(1 / math.Sqrt(float64(v)+bn.eps))
	}

	out := bn.backend.BatchNorm2D(input.Raw(), bn.gamma.Tensor().Raw(), bn.beta.Tensor().Raw(), mean, invStd, bn.training)
	return tensor.New(out, bn.backend)
}

func (bn *BatchNorm2D[B]) updateRunning(mean, variance []float32, count int) {
	correction := 1.0
	if count > 1 {
		correction = float64(count) / float64(count-1)
	}
	rm, rv := bn.runningMean.Data(), bn.runningVar.Data()
	for c := range rm {
		rm[c] = float32((1-bn.momentum)*float64(rm[c]) + bn.momentum*float64(mean[c]))
		rv[c] = float32((1-bn.momentum)*float64(rv[c]) + bn.momentum*float64(variance[c])*correction)
	}
}

// Parameters returns [gamma, beta].
func (bn *BatchNorm2D[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{bn.gamma, bn.beta}
}

// SetTraining switches between batch statistics and running estimates.
func (bn *BatchNorm2D[B]) SetTraining(training bool) {
	bn.training = training
}

// Training reports whether the layer uses batch statistics.
func (bn *BatchNorm2D[B]) Training() bool {
	return bn.training
}

// RunningMean returns the running mean buffer.
func (bn *BatchNorm2D[B]) RunningMean() *tensor.RawTensor {
	return bn.runningMean
}

// RunningVar returns the running variance buffer.
func (bn *BatchNorm2D[B]) RunningVar() *tensor.RawTensor {
	return bn.runningVar
}

// StateDict returns gamma, beta and the running statistics.
func (bn *BatchNorm2D[B]) StateDict() map[string]*tensor.RawTensor {
	return map[string]*tensor.RawTensor{
		"weight":       bn.gamma.Tensor().Raw(),
		"bias":         bn.beta.Tensor().Raw(),
		"running_mean": bn.runningMean,
		"running_var":  bn.runningVar,
	}
}

// LoadStateDict copies gamma, beta and the running statistics from stateDict.
func (bn *BatchNorm2D[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	for name, dst := range bn.StateDict() {
		if err := loadInto(stateDict, name, dst); err != nil {
			return err
		}
	}
	return nil
}

// String returns a string representation of the layer.
func (bn *BatchNorm2D[B]) String() string {
	return fmt.Sprintf("BatchNorm2d(%d, eps=%g, momentum=%g)", bn.numFeatures, bn.eps, bn.momentum)
}
