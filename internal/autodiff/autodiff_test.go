package autodiff_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/resnet/internal/autodiff"
	"github.com/born-ml/resnet/internal/backend/cpu"
	"github.com/born-ml/resnet/internal/tensor"
)

type backendT = autodiff.AutodiffBackend[*cpu.CPUBackend]

func fromSlice(t *testing.T, b *backendT, data []float32, shape ...int) *tensor.Tensor[*backendT] {
	t.Helper()
	x, err := tensor.FromSlice(data, tensor.Shape(shape), b)
	require.NoError(t, err)
	return x
}

func randn(rng *rand.Rand, b *backendT, shape ...int) *tensor.Tensor[*backendT] {
	x := tensor.Zeros(tensor.Shape(shape), b)
	for i := range x.Data() {
		x.Data()[i] = float32(rng.NormFloat64())
	}
	return x
}

func TestAutodiffBackend_Metadata(t *testing.T) {
	backend := autodiff.New(cpu.New())
	assert.Equal(t, "Autodiff(CPU)", backend.Name())
	assert.Equal(t, tensor.CPU, backend.Device())
	assert.NotNil(t, backend.Inner())
}

func TestTape_RecordingAndClear(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()
	assert.False(t, tape.IsRecording())

	a := fromSlice(t, backend, []float32{1, 2}, 2)
	a.Add(a)
	assert.Equal(t, 0, tape.NumOps(), "nothing is recorded before StartRecording")

	tape.StartRecording()
	a.Add(a).ReLU()
	assert.Equal(t, 2, tape.NumOps())

	tape.Clear()
	assert.Equal(t, 0, tape.NumOps())
	assert.True(t, tape.IsRecording(), "Clear keeps the recording state")

	tape.StopRecording()
	assert.False(t, tape.IsRecording())
}

func TestBackward_PanicsWithoutOps(t *testing.T) {
	backend := autodiff.New(cpu.New())
	x := fromSlice(t, backend, []float32{1}, 1)
	assert.Panics(t, func() { autodiff.Backward(x, backend) })
}

func TestBackward_BroadcastAdd(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	x := fromSlice(t, backend, []float32{1, 2, 3, 4, 5, 6}, 2, 3)
	bias := fromSlice(t, backend, []float32{0, 0, 0}, 3)
	y := x.Add(bias)

	grads := autodiff.Backward(y, backend)
	assert.Equal(t, []float32{1, 1, 1, 1, 1, 1}, grads[x.Raw()].Data())
	assert.Equal(t, []float32{2, 2, 2}, grads[bias.Raw()].Data())
}

func TestBackward_ReusedTensorAccumulates(t *testing.T) {
	// y = relu(x) + x: x feeds both the residual branch and the identity.
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	x := fromSlice(t, backend, []float32{-1, 2}, 2)
	y := x.ReLU().Add(x)

	grads := autodiff.Backward(y, backend)
	assert.Equal(t, []float32{1, 2}, grads[x.Raw()].Data())
}

func TestBackward_LinearThroughTranspose(t *testing.T) {
	// out = x @ wᵀ: the gradient must reach w, not its transposed copy.
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	x := fromSlice(t, backend, []float32{1, 2, 3}, 1, 3)
	w := fromSlice(t, backend, []float32{1, 0, 0, 0, 1, 0}, 2, 3)
	out := x.MatMul(w.Transpose())

	grads := autodiff.Backward(out, backend)
	require.Contains(t, grads, w.Raw())
	assert.Equal(t, []float32{1, 2, 3, 1, 2, 3}, grads[w.Raw()].Data())
	assert.Equal(t, []float32{1, 1, 0}, grads[x.Raw()].Data())
}

func TestBackward_ReshapeRestoresShape(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	x := fromSlice(t, backend, []float32{1, 2, 3, 4}, 1, 4, 1, 1)
	flat := x.Reshape(1, 4)

	grads := autodiff.Backward(flat, backend)
	assert.Equal(t, tensor.Shape{1, 4, 1, 1}, grads[x.Raw()].Shape())
}

func TestBackward_DoesNotRecordGradientOps(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()
	tape.StartRecording()

	x := fromSlice(t, backend, []float32{1, 2}, 2)
	y := x.Add(x)
	n := tape.NumOps()
	autodiff.Backward(y, backend)
	assert.Equal(t, n, tape.NumOps())
	assert.True(t, tape.IsRecording())
}

// TestGradientCheck_ConvBlock compares autodiff gradients against central
// differences for conv → batchnorm → relu → pool → linear → cross-entropy,
// the op chain a residual network is built from.
func TestGradientCheck_ConvBlock(t *testing.T) {
	backend := autodiff.New(cpu.New())
	rng := rand.New(rand.NewSource(42))

	x := randn(rng, backend, 2, 2, 6, 6)
	kernel := randn(rng, backend, 3, 2, 3, 3)
	gamma := fromSlice(t, backend, []float32{1, 0.5, 2}, 3)
	beta := fromSlice(t, backend, []float32{0, 0.1, -0.1}, 3)
	w := randn(rng, backend, 4, 3)
	targets := []int32{1, 3}

	loss := func() *tensor.Tensor[*backendT] {
		h := tensor.New(backend.Conv2D(x.Raw(), kernel.Raw(), 2, 1), backend)
		mean, variance := backend.ChannelMoments(h.Raw())
		invStd := make([]float32, len(variance))
		for c, v := range variance {
			invStd[c] = float32(1 / math.Sqrt(float64(v)+1e-5))
		}
		h = tensor.New(backend.BatchNorm2D(h.Raw(), gamma.Raw(), beta.Raw(), mean, invStd, true), backend)
		h = h.ReLU()
		h = tensor.New(backend.MaxPool2D(h.Raw(), 3, 2, 1), backend)
		h = tensor.New(backend.AdaptiveAvgPool2D(h.Raw(), 1, 1), backend)
		logits := h.Reshape(2, 3).MatMul(w.Transpose())
		return tensor.New(backend.CrossEntropy(logits.Raw(), targets), backend)
	}

	backend.Tape().StartRecording()
	grads := autodiff.Backward(loss(), backend)
	backend.Tape().StopRecording()
	backend.Tape().Clear()

	for name, p := range map[string]*tensor.Tensor[*backendT]{
		"x": x, "kernel": kernel, "gamma": gamma, "beta": beta, "w": w,
	} {
		got := grads[p.Raw()]
		require.NotNil(t, got, name)
		data := p.Data()
		for i := range data {
			const eps = 1e-2
			orig := data[i]
			data[i] = orig + eps
			plus := loss().Data()[0]
			data[i] = orig - eps
			minus := loss().Data()[0]
			data[i] = orig
			numeric := (plus - minus) / (2 * eps)
			assert.InDelta(t, numeric, got.Data()[i], 2e-2, "%s[%d]", name, i)
		}
	}
}
