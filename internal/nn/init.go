package nn

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/born-ml/resnet/internal/tensor"
)

// Seed reseeds the process-wide source every initialiser draws from.
// Two networks built after the same Seed call sequence get identical weights.
func Seed(seed uint64) {
	rand.Seed(seed)
}

// KaimingNormal draws weights from N(0, 2/fanOut), the He initialisation for
// layers followed by ReLU, in fan-out mode.
func KaimingNormal[B tensor.Backend](shape tensor.Shape, fanOut int, backend B) *tensor.Tensor[B] {
	dist := distuv.Normal{Mu: 0, Sigma: math.Sqrt(2 / float64(fanOut))}
	return sample(shape, dist.Rand, backend)
}

// Uniform draws weights from U(-bound, bound).
//
// Linear layers use bound = 1/sqrt(fanIn) for both weight and bias.
func Uniform[B tensor.Backend](shape tensor.Shape, bound float64, backend B) *tensor.Tensor[B] {
	dist := distuv.Uniform{Min: -bound, Max: bound}
	return sample(shape, dist.Rand, backend)
}

// Zeros creates a zero-filled tensor.
func Zeros[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[B] {
	return tensor.Zeros(shape, backend)
}

// Ones creates a tensor filled with ones.
func Ones[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[B] {
	return tensor.Ones(shape, backend)
}

func sample[B tensor.Backend](shape tensor.Shape, draw func() float64, backend B) *tensor.Tensor[B] {
	t := tensor.Zeros(shape, backend)
	data := t.Data()
	for i := range data {
		data[i] = float32(draw())
	}
	return t
}
