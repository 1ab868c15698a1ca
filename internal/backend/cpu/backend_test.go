package cpu

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/resnet/internal/tensor"
)

func raw(t *testing.T, data []float32, shape ...int) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.NewRaw(tensor.Shape(shape), tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	copy(r.Data(), data)
	return r
}

func randRaw(rng *rand.Rand, shape ...int) *tensor.RawTensor {
	r := tensor.MustRaw(tensor.Shape(shape), tensor.CPU)
	for i := range r.Data() {
		r.Data()[i] = float32(rng.NormFloat64())
	}
	return r
}

func TestAdd_Broadcast(t *testing.T) {
	cpu := New()
	a := raw(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3)
	b := raw(t, []float32{10, 20, 30}, 1, 3)

	out := cpu.Add(a, b)
	assert.Equal(t, tensor.Shape{2, 3}, out.Shape())
	assert.Equal(t, []float32{11, 22, 33, 14, 25, 36}, out.Data())

	// Inputs stay untouched.
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, a.Data())
}

func TestAdd_IncompatiblePanics(t *testing.T) {
	cpu := New()
	a := tensor.MustRaw(tensor.Shape{2, 4, 8, 8}, tensor.CPU)
	b := tensor.MustRaw(tensor.Shape{2, 4, 4, 4}, tensor.CPU)
	assert.Panics(t, func() { cpu.Add(a, b) })
}

func TestAdd_DeviceMismatch(t *testing.T) {
	cpu := New()
	a := tensor.MustRaw(tensor.Shape{2}, tensor.CPU)
	b := tensor.MustRaw(tensor.Shape{2}, tensor.CUDA)

	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)
		var devErr *tensor.DeviceError
		require.True(t, errors.As(err, &devErr))
		assert.Equal(t, tensor.CUDA, devErr.Got)
		assert.ErrorIs(t, err, tensor.ErrPlacement)
	}()
	cpu.Add(a, b)
}

func TestSumTo(t *testing.T) {
	cpu := New()
	grad := raw(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3)

	assert.Equal(t, []float32{5, 7, 9}, cpu.SumTo(grad, tensor.Shape{1, 3}).Data())
	assert.Equal(t, []float32{5, 7, 9}, cpu.SumTo(grad, tensor.Shape{3}).Data())
	assert.Equal(t, []float32{6, 15}, cpu.SumTo(grad, tensor.Shape{2, 1}).Data())
	assert.Same(t, grad, cpu.SumTo(grad, tensor.Shape{2, 3}))
}

func TestMatMulAndTranspose(t *testing.T) {
	cpu := New()
	a := raw(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3)
	b := raw(t, []float32{7, 8, 9, 10, 11, 12}, 3, 2)

	out := cpu.MatMul(a, b)
	assert.Equal(t, tensor.Shape{2, 2}, out.Shape())
	assert.Equal(t, []float32{58, 64, 139, 154}, out.Data())

	at := cpu.Transpose(a)
	assert.Equal(t, tensor.Shape{3, 2}, at.Shape())
	assert.Equal(t, []float32{1, 4, 2, 5, 3, 6}, at.Data())
}

func TestReLU(t *testing.T) {
	cpu := New()
	x := raw(t, []float32{-1, 0, 2, -3}, 4)
	assert.Equal(t, []float32{0, 0, 2, 0}, cpu.ReLU(x).Data())

	g := raw(t, []float32{1, 1, 1, 1}, 4)
	assert.Equal(t, []float32{0, 0, 1, 0}, cpu.ReLUBackward(x, g).Data())
}

func TestConv2D_KnownValues(t *testing.T) {
	cpu := New()
	input := raw(t, []float32{1, 2, 3, 4, 5, 6, 7, 8, 9}, 1, 1, 3, 3)
	kernel := raw(t, []float32{1, 2, 3, 4}, 1, 1, 2, 2)

	out := cpu.Conv2D(input, kernel, 1, 0)
	assert.Equal(t, tensor.Shape{1, 1, 2, 2}, out.Shape())
	assert.Equal(t, []float32{37, 47, 67, 77}, out.Data())
}

func TestConv2D_PaddingAndStride(t *testing.T) {
	cpu := New()
	input := tensor.MustRaw(tensor.Shape{2, 3, 9, 9}, tensor.CPU)
	kernel := tensor.MustRaw(tensor.Shape{8, 3, 3, 3}, tensor.CPU)

	assert.Equal(t, tensor.Shape{2, 8, 5, 5}, cpu.Conv2D(input, kernel, 2, 1).Shape())
	assert.Equal(t, tensor.Shape{2, 8, 9, 9}, cpu.Conv2D(input, kernel, 1, 1).Shape())

	proj := tensor.MustRaw(tensor.Shape{8, 3, 1, 1}, tensor.CPU)
	assert.Equal(t, tensor.Shape{2, 8, 5, 5}, cpu.Conv2D(input, proj, 2, 0).Shape())
}

func TestConv2D_PointwiseMatchesIm2col(t *testing.T) {
	// The direct 1x1 path must agree with the general im2col path, which a
	// 1x1 kernel with stride 1 and padding 0 only bypasses.
	cpu := New()
	rng := rand.New(rand.NewSource(1))
	input := randRaw(rng, 2, 4, 5, 5)
	kernel := randRaw(rng, 3, 4, 1, 1)

	fast := cpu.Conv2D(input, kernel, 1, 0)

	g := newConvGeom("test", input, kernel, 1, 0)
	cols := make([]float32, g.patch()*g.plane())
	slow := make([]float32, fast.NumElements())
	for n := 0; n < 2; n++ {
		im2col(cols, input.Data()[n*100:(n+1)*100], g, cpu.par)
		gemm(false, false, 3, 25, 4, kernel.Data(), cols, 0, slow[n*75:(n+1)*75])
	}
	assert.InDeltaSlice(t, slow, fast.Data(), 1e-5)
}

// numericGrad estimates d(sum(w ⊙ f(x)))/dx by central differences.
func numericGrad(x *tensor.RawTensor, weights []float32, f func() *tensor.RawTensor) []float32 {
	const eps = 1e-2
	grad := make([]float32, x.NumElements())
	data := x.Data()
	for i := range data {
		orig := data[i]
		data[i] = orig + eps
		plus := dot(f().Data(), weights)
		data[i] = orig - eps
		minus := dot(f().Data(), weights)
		data[i] = orig
		grad[i] = float32((plus - minus) / (2 * eps))
	}
	return grad
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func TestConv2D_GradientsMatchFiniteDifferences(t *testing.T) {
	cpu := New()
	for _, tc := range []struct {
		name           string
		k, stride, pad int
	}{
		{"3x3_s1_p1", 3, 1, 1},
		{"3x3_s2_p1", 3, 2, 1},
		{"1x1_s2_p0", 1, 2, 0},
		{"1x1_s1_p0", 1, 1, 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rng := rand.New(rand.NewSource(7))
			input := randRaw(rng, 2, 2, 5, 5)
			kernel := randRaw(rng, 3, 2, tc.k, tc.k)
			out := cpu.Conv2D(input, kernel, tc.stride, tc.pad)
			upstream := randRaw(rng, out.Shape()...)

			f := func() *tensor.RawTensor { return cpu.Conv2D(input, kernel, tc.stride, tc.pad) }
			dx := cpu.Conv2DInputBackward(input, kernel, upstream, tc.stride, tc.pad)
			dk := cpu.Conv2DKernelBackward(input, kernel, upstream, tc.stride, tc.pad)

			assert.InDeltaSlice(t, numericGrad(input, upstream.Data(), f), dx.Data(), 2e-2)
			assert.InDeltaSlice(t, numericGrad(kernel, upstream.Data(), f), dk.Data(), 2e-2)
		})
	}
}

func TestMaxPool2D(t *testing.T) {
	cpu := New()
	data := make([]float32, 16)
	for i := range data {
		data[i] = float32(i + 1)
	}
	input := raw(t, data, 1, 1, 4, 4)

	out := cpu.MaxPool2D(input, 2, 2, 0)
	assert.Equal(t, []float32{6, 8, 14, 16}, out.Data())

	// Stem pooling: 3x3, stride 2, padding 1 halves the resolution.
	padded := cpu.MaxPool2D(input, 3, 2, 1)
	assert.Equal(t, tensor.Shape{1, 1, 2, 2}, padded.Shape())
	assert.Equal(t, []float32{6, 8, 14, 16}, padded.Data())

	grad := raw(t, []float32{1, 2, 3, 4}, 1, 1, 2, 2)
	dx := cpu.MaxPool2DBackward(input, grad, 2, 2, 0)
	want := make([]float32, 16)
	want[5], want[7], want[13], want[15] = 1, 2, 3, 4
	assert.Equal(t, want, dx.Data())
}

func TestMaxPool2D_NegativeInputsIgnorePadding(t *testing.T) {
	cpu := New()
	input := raw(t, []float32{-5, -4, -3, -2}, 1, 1, 2, 2)
	out := cpu.MaxPool2D(input, 3, 2, 1)
	assert.Equal(t, []float32{-2}, out.Data())
}

func TestAdaptiveAvgPool2D(t *testing.T) {
	cpu := New()
	input := raw(t, []float32{1, 2, 3, 4, 10, 20, 30, 40}, 1, 2, 2, 2)

	out := cpu.AdaptiveAvgPool2D(input, 1, 1)
	assert.Equal(t, tensor.Shape{1, 2, 1, 1}, out.Shape())
	assert.Equal(t, []float32{2.5, 25}, out.Data())

	grad := raw(t, []float32{4, 8}, 1, 2, 1, 1)
	dx := cpu.AdaptiveAvgPool2DBackward(input, grad)
	assert.Equal(t, []float32{1, 1, 1, 1, 2, 2, 2, 2}, dx.Data())
}

func TestBatchNorm2D(t *testing.T) {
	cpu := New()
	rng := rand.New(rand.NewSource(3))
	input := randRaw(rng, 4, 3, 5, 5)
	gamma := raw(t, []float32{1, 2, 0.5}, 3)
	beta := raw(t, []float32{0, 1, -1}, 3)

	mean, variance := cpu.ChannelMoments(input)
	invStd := make([]float32, 3)
	for c := range invStd {
		invStd[c] = float32(1 / math.Sqrt(float64(variance[c])+1e-5))
	}
	out := cpu.BatchNorm2D(input, gamma, beta, mean, invStd, true)

	outMean, outVar := cpu.ChannelMoments(out)
	for c := 0; c < 3; c++ {
		assert.InDelta(t, beta.Data()[c], outMean[c], 1e-4)
		assert.InDelta(t, gamma.Data()[c]*gamma.Data()[c], outVar[c], 1e-3)
	}
}

func TestBatchNorm2D_GradientMatchesFiniteDifferences(t *testing.T) {
	cpu := New()
	rng := rand.New(rand.NewSource(11))
	input := randRaw(rng, 3, 2, 3, 3)
	gamma := raw(t, []float32{1.5, 0.7}, 2)
	beta := raw(t, []float32{0.1, -0.2}, 2)
	upstream := randRaw(rng, 3, 2, 3, 3)

	// Batch statistics are recomputed from the perturbed input each time.
	f := func() *tensor.RawTensor {
		mean, variance := cpu.ChannelMoments(input)
		invStd := make([]float32, len(variance))
		for c, v := range variance {
			invStd[c] = float32(1 / math.Sqrt(float64(v)+1e-5))
		}
		return cpu.BatchNorm2D(input, gamma, beta, mean, invStd, true)
	}

	mean, variance := cpu.ChannelMoments(input)
	invStd := make([]float32, len(variance))
	for c, v := range variance {
		invStd[c] = float32(1 / math.Sqrt(float64(v)+1e-5))
	}
	dx, dgamma, dbeta := cpu.BatchNorm2DBackward(input, gamma, upstream, mean, invStd, true)

	assert.InDeltaSlice(t, numericGrad(input, upstream.Data(), f), dx.Data(), 3e-2)
	assert.InDeltaSlice(t, numericGrad(gamma, upstream.Data(), f), dgamma.Data(), 3e-2)
	assert.InDeltaSlice(t, numericGrad(beta, upstream.Data(), f), dbeta.Data(), 3e-2)
}

func TestCrossEntropy(t *testing.T) {
	cpu := New()
	logits := raw(t, []float32{2, 1, 0.1, 0, 0, 5}, 2, 3)
	targets := []int32{0, 2}

	loss := cpu.CrossEntropy(logits, targets)

	want := func(row []float64, target int) float64 {
		var sum float64
		for _, v := range row {
			sum += math.Exp(v)
		}
		return math.Log(sum) - row[target]
	}
	expected := (want([]float64{2, 1, 0.1}, 0) + want([]float64{0, 0, 5}, 2)) / 2
	assert.InDelta(t, expected, loss.Data()[0], 1e-5)

	one := raw(t, []float32{1}, 1)
	dx := cpu.CrossEntropyBackward(logits, targets, one)
	f := func() *tensor.RawTensor { return cpu.CrossEntropy(logits, targets) }
	assert.InDeltaSlice(t, numericGrad(logits, []float32{1}, f), dx.Data(), 1e-3)
}

func TestCrossEntropy_LargeLogitsStayFinite(t *testing.T) {
	cpu := New()
	logits := raw(t, []float32{1000, -1000}, 1, 2)
	loss := cpu.CrossEntropy(logits, []int32{1})
	assert.False(t, math.IsInf(float64(loss.Data()[0]), 0))
	assert.InDelta(t, 2000, loss.Data()[0], 1e-3)
}

func TestCrossEntropy_TargetOutOfRangePanics(t *testing.T) {
	cpu := New()
	logits := tensor.MustRaw(tensor.Shape{1, 3}, tensor.CPU)
	assert.Panics(t, func() { cpu.CrossEntropy(logits, []int32{3}) })
}
