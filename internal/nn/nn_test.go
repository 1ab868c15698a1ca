package nn_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/resnet/internal/autodiff"
	"github.com/born-ml/resnet/internal/backend/cpu"
	"github.com/born-ml/resnet/internal/nn"
	"github.com/born-ml/resnet/internal/tensor"
)

func fromSlice[B tensor.Backend](t *testing.T, backend B, data []float32, shape ...int) *tensor.Tensor[B] {
	t.Helper()
	x, err := tensor.FromSlice(data, tensor.Shape(shape), backend)
	require.NoError(t, err)
	return x
}

func TestConv2D_Shapes(t *testing.T) {
	backend := cpu.New()
	tests := []struct {
		name                  string
		in, out, k, s, p      int
		bias                  bool
		inputShape, wantShape tensor.Shape
	}{
		{"stem", 3, 8, 7, 2, 3, false, tensor.Shape{2, 3, 32, 32}, tensor.Shape{2, 8, 16, 16}},
		{"3x3_same", 4, 4, 3, 1, 1, false, tensor.Shape{1, 4, 8, 8}, tensor.Shape{1, 4, 8, 8}},
		{"3x3_down", 4, 8, 3, 2, 1, false, tensor.Shape{1, 4, 8, 8}, tensor.Shape{1, 8, 4, 4}},
		{"projection", 4, 16, 1, 2, 0, false, tensor.Shape{1, 4, 8, 8}, tensor.Shape{1, 16, 4, 4}},
		{"with_bias", 2, 3, 3, 1, 0, true, tensor.Shape{1, 2, 5, 5}, tensor.Shape{1, 3, 3, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv := nn.NewConv2D(tt.in, tt.out, tt.k, tt.s, tt.p, tt.bias, backend)
			out := conv.Forward(tensor.Zeros(tt.inputShape, backend))
			assert.Equal(t, tt.wantShape, out.Shape())

			h, w := conv.OutputSize(tt.inputShape[2], tt.inputShape[3])
			assert.Equal(t, tt.wantShape[2], h)
			assert.Equal(t, tt.wantShape[3], w)

			if tt.bias {
				assert.Len(t, conv.Parameters(), 2)
			} else {
				assert.Len(t, conv.Parameters(), 1)
			}
		})
	}
}

func TestConv2D_ChannelMismatchPanics(t *testing.T) {
	backend := cpu.New()
	conv := nn.NewConv2D(3, 8, 3, 1, 1, false, backend)
	assert.PanicsWithValue(t, "conv2d: input channels 4 != expected 3", func() {
		conv.Forward(tensor.Zeros(tensor.Shape{1, 4, 8, 8}, backend))
	})
	assert.Panics(t, func() { nn.NewConv2D(0, 8, 3, 1, 1, false, backend) })
	assert.Panics(t, func() { nn.NewConv2D(3, 8, 3, 0, 1, false, backend) })
}

func TestConv2D_String(t *testing.T) {
	conv := nn.NewConv2D(64, 128, 3, 2, 1, false, cpu.New())
	assert.Equal(t, "Conv2d(64, 128, kernel_size=(3, 3), stride=(2, 2), padding=(1, 1), bias=false)", conv.String())
}

func TestBatchNorm2D_TrainingNormalisesAndTracks(t *testing.T) {
	backend := cpu.New()
	bn := nn.NewBatchNorm2D(1, backend)
	require.True(t, bn.Training())

	x := fromSlice(t, backend, []float32{1, 2, 3, 4}, 1, 1, 2, 2)
	out := bn.Forward(x)

	var sum float32
	for _, v := range out.Data() {
		sum += v
	}
	assert.InDelta(t, 0, sum, 1e-5)
	assert.InDelta(t, -1.3416, out.Data()[0], 1e-3)

	// mean 2.5, unbiased variance 5/3
	assert.InDelta(t, 0.25, bn.RunningMean().Data()[0], 1e-6)
	assert.InDelta(t, 0.9*1+0.1*(5.0/3.0), bn.RunningVar().Data()[0], 1e-5)
}

func TestBatchNorm2D_EvalUsesRunningStatistics(t *testing.T) {
	backend := cpu.New()
	bn := nn.NewBatchNorm2D(2, backend)
	bn.SetTraining(false)

	x := fromSlice(t, backend, []float32{1, 2, 3, 4, 5, 6, 7, 8}, 1, 2, 2, 2)
	out := bn.Forward(x)

	// Fresh running stats are mean 0, var 1: eval is (almost) the identity.
	assert.InDeltaSlice(t, x.Data(), out.Data(), 1e-4)
	assert.Equal(t, []float32{0, 0}, bn.RunningMean().Data(), "eval must not touch running stats")
}

func TestBatchNorm2D_StateDict(t *testing.T) {
	backend := cpu.New()
	src := nn.NewBatchNorm2D(3, backend)
	src.RunningMean().Fill(0.5)
	src.Parameters()[0].Tensor().Raw().Fill(2)

	dst := nn.NewBatchNorm2D(3, backend)
	require.NoError(t, dst.LoadStateDict(src.StateDict()))
	assert.Equal(t, []float32{0.5, 0.5, 0.5}, dst.RunningMean().Data())
	assert.Equal(t, []float32{2, 2, 2}, dst.Parameters()[0].Tensor().Data())

	wrong := nn.NewBatchNorm2D(4, backend)
	assert.Error(t, wrong.LoadStateDict(src.StateDict()))
	assert.Error(t, dst.LoadStateDict(map[string]*tensor.RawTensor{}))
}

func TestLinear_Forward(t *testing.T) {
	backend := cpu.New()
	fc := nn.NewLinear(3, 2, backend)
	copy(fc.Parameters()[0].Tensor().Data(), []float32{1, 0, 0, 0, 1, 1})
	copy(fc.Parameters()[1].Tensor().Data(), []float32{10, 20})

	x := fromSlice(t, backend, []float32{1, 2, 3, 4, 5, 6}, 2, 3)
	out := fc.Forward(x)
	assert.Equal(t, tensor.Shape{2, 2}, out.Shape())
	assert.Equal(t, []float32{11, 25, 14, 31}, out.Data())

	assert.Panics(t, func() { fc.Forward(tensor.Zeros(tensor.Shape{2, 4}, backend)) })
}

func TestFlatten_KeepsBatchAxis(t *testing.T) {
	backend := cpu.New()
	out := nn.NewFlatten[*cpu.CPUBackend]().Forward(tensor.Zeros(tensor.Shape{1, 512, 1, 1}, backend))
	assert.Equal(t, tensor.Shape{1, 512}, out.Shape())
}

func TestPools(t *testing.T) {
	backend := cpu.New()
	pool := nn.NewMaxPool2D(3, 2, 1, backend)
	out := pool.Forward(tensor.Zeros(tensor.Shape{2, 4, 16, 16}, backend))
	assert.Equal(t, tensor.Shape{2, 4, 8, 8}, out.Shape())
	h, w := pool.OutputSize(16, 16)
	assert.Equal(t, [2]int{8, 8}, [2]int{h, w})
	assert.Panics(t, func() { nn.NewMaxPool2D(3, 2, 2, backend) })

	avg := nn.NewAdaptiveAvgPool2D(1, 1, backend)
	assert.Equal(t, tensor.Shape{2, 4, 1, 1}, avg.Forward(tensor.Zeros(tensor.Shape{2, 4, 7, 7}, backend)).Shape())
}

func TestSequential_TrainingAndState(t *testing.T) {
	backend := cpu.New()
	build := func() *nn.Sequential[*cpu.CPUBackend] {
		return nn.NewSequential[*cpu.CPUBackend](
			nn.NewConv2D(2, 4, 3, 1, 1, false, backend),
			nn.NewBatchNorm2D(4, backend),
			nn.NewReLU[*cpu.CPUBackend](),
		)
	}
	a, b := build(), build()
	assert.Len(t, a.Parameters(), 3)
	assert.Equal(t, 3, a.Len())

	a.SetTraining(false)
	assert.False(t, a.Training())
	assert.False(t, a.Module(1).(nn.Trainable).Training())

	sd := a.StateDict()
	assert.Contains(t, sd, "0.weight")
	assert.Contains(t, sd, "1.running_var")
	assert.NotContains(t, sd, "2.weight")

	require.NoError(t, b.LoadStateDict(sd))
	b.SetTraining(false)
	x := tensor.Rand(tensor.Shape{1, 2, 5, 5}, nil, backend)
	assert.Equal(t, a.Forward(x).Data(), b.Forward(x).Data())

	assert.Contains(t, a.String(), "(1): BatchNorm2d(4, eps=1e-05, momentum=0.1)")
}

func TestSeed_ReproducibleInit(t *testing.T) {
	backend := cpu.New()
	nn.Seed(102)
	a := nn.NewConv2D(3, 4, 3, 1, 1, false, backend)
	nn.Seed(102)
	b := nn.NewConv2D(3, 4, 3, 1, 1, false, backend)
	assert.Equal(t, a.Weight().Tensor().Data(), b.Weight().Tensor().Data())
}

func TestCrossEntropyLoss_TrainsLinearLayer(t *testing.T) {
	backend := autodiff.New(cpu.New())
	fc := nn.NewLinear(2, 2, backend)
	x := fromSlice(t, backend, []float32{1, 0, 0, 1}, 2, 2)
	targets := []int32{1, 0}

	var first, last float32
	for step := 0; step < 50; step++ {
		backend.Tape().StartRecording()
		loss := nn.CrossEntropyLoss(fc.Forward(x), targets)
		grads := autodiff.Backward(loss, backend)
		backend.Tape().StopRecording()
		backend.Tape().Clear()

		for _, p := range fc.Parameters() {
			g := grads[p.Tensor().Raw()]
			require.NotNil(t, g, p.Name())
			data := p.Tensor().Data()
			for i := range data {
				data[i] -= 0.5 * g.Data()[i]
			}
		}
		if step == 0 {
			first = loss.Data()[0]
		}
		last = loss.Data()[0]
	}
	assert.Less(t, last, first/4)
}
