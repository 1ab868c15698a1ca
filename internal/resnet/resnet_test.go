package resnet

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/resnet/internal/autodiff"
	"github.com/born-ml/resnet/internal/backend/cpu"
	"github.com/born-ml/resnet/internal/nn"
	"github.com/born-ml/resnet/internal/tensor"
)

// tinyConfig is a narrow network that keeps the forward tests fast while
// exercising every structural rule.
func tinyConfig(variant Variant, blocks ...int) Config {
	return Config{
		InChannels:   3,
		NumClasses:   5,
		Blocks:       blocks,
		Variant:      variant,
		Widths:       []int{4, 8, 16, 32},
		StemChannels: 4,
	}
}

func images(n, c, h, w int) *tensor.Tensor[*cpu.CPUBackend] {
	backend := cpu.New()
	x := tensor.Zeros(tensor.Shape{n, c, h, w}, backend)
	for i := range x.Data() {
		x.Data()[i] = float32(i%17)/17 - 0.5
	}
	return x
}

func TestBuild_OutputShape(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		n, h, w int
	}{
		{"tiny_basic", tinyConfig(Basic, 1, 1, 1, 1), 2, 32, 32},
		{"tiny_deep", tinyConfig(Deep, 2, 1, 1, 2), 2, 32, 32},
		{"tiny_non_square", tinyConfig(Basic, 2, 2, 2, 2), 3, 40, 64},
		{"single_sample_keeps_batch_axis", tinyConfig(Deep, 1, 1, 1, 1), 1, 32, 32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			net, err := Build(tt.cfg, cpu.New())
			require.NoError(t, err)
			out := net.Forward(images(tt.n, 3, tt.h, tt.w))
			assert.Equal(t, tensor.Shape{tt.n, tt.cfg.NumClasses}, out.Shape())
		})
	}
}

func TestBuild_PresetsAt32(t *testing.T) {
	if testing.Short() {
		t.Skip("full-width presets in -short mode")
	}
	for _, name := range []string{"resnet18", "resnet34", "resnet50"} {
		t.Run(name, func(t *testing.T) {
			cfg, err := PresetConfig(name, 3, 36)
			require.NoError(t, err)
			net, err := Build(cfg, cpu.New())
			require.NoError(t, err)
			out := net.Forward(images(2, 3, 32, 32))
			assert.Equal(t, tensor.Shape{2, 36}, out.Shape())
		})
	}
}

func TestClassifierInFeatures(t *testing.T) {
	backend := cpu.New()
	basic, err := ResNet18(3, 36, backend)
	require.NoError(t, err)
	assert.Equal(t, 512, basic.ClassifierInFeatures())

	deep, err := ResNet50(3, 36, backend)
	require.NoError(t, err)
	assert.Equal(t, 2048, deep.ClassifierInFeatures())

	cfg, err := PresetConfig("resnet101", 3, 36)
	require.NoError(t, err)
	assert.Equal(t, 2048, cfg.ClassifierInFeatures())
}

func TestStages_BlockWiring(t *testing.T) {
	backend := cpu.New()
	for _, tt := range []struct {
		name       string
		build      func(int, int, *cpu.CPUBackend) (*Network[*cpu.CPUBackend], error)
		stageIn    [4]int
		stageOut   [4]int
		projection [4]bool
		blocks     [4]int
	}{
		{"resnet18", ResNet18[*cpu.CPUBackend], [4]int{64, 64, 128, 256}, [4]int{64, 128, 256, 512}, [4]bool{false, true, true, true}, [4]int{2, 2, 2, 2}},
		{"resnet50", ResNet50[*cpu.CPUBackend], [4]int{64, 256, 512, 1024}, [4]int{256, 512, 1024, 2048}, [4]bool{true, true, true, true}, [4]int{3, 4, 6, 3}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			net, err := tt.build(3, 10, backend)
			require.NoError(t, err)
			stages := net.Stages()
			require.Len(t, stages, 4)

			prevOut := 64
			for i, s := range stages {
				assert.Equal(t, prevOut, s.InChannels(), "stage %d input continuity", i+1)
				assert.Equal(t, tt.stageIn[i], s.InChannels())
				assert.Equal(t, tt.stageOut[i], s.OutChannels())
				assert.Equal(t, stageStrides[i], s.Stride())
				require.Len(t, s.Blocks(), tt.blocks[i])

				first := s.Blocks()[0]
				assert.Equal(t, stageStrides[i], first.Stride())
				assert.Equal(t, tt.projection[i], first.Projection() != nil, "stage %d first-block projection", i+1)

				for j, b := range s.Blocks()[1:] {
					assert.Equal(t, b.OutChannels(), b.InChannels(), "stage %d block %d", i+1, j+2)
					assert.Equal(t, 1, b.Stride(), "stage %d block %d", i+1, j+2)
					assert.Nil(t, b.Projection(), "stage %d block %d", i+1, j+2)
				}
				prevOut = s.OutChannels()
			}
		})
	}
}

func TestBuildStage_ThreadsChannelCount(t *testing.T) {
	backend := cpu.New()
	s1, ch, err := BuildStage(Deep, 64, 64, 3, 1, backend)
	require.NoError(t, err)
	assert.Equal(t, 256, ch)
	assert.NotNil(t, s1.Blocks()[0].Projection(), "64 → 256 needs a projection even at stride 1")

	s2, ch, err := BuildStage(Deep, ch, 128, 2, 2, backend)
	require.NoError(t, err)
	assert.Equal(t, 512, ch)
	assert.Equal(t, 256, s2.InChannels())

	_, _, err = BuildStage(Basic, 64, 64, 0, 1, backend)
	assert.ErrorIs(t, err, ErrConfiguration)
	_, _, err = BuildStage(Variant(9), 64, 64, 1, 1, backend)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestNeedsProjection(t *testing.T) {
	assert.False(t, NeedsProjection(Basic, 64, 64, 1))
	assert.True(t, NeedsProjection(Basic, 64, 128, 2))
	assert.True(t, NeedsProjection(Basic, 64, 128, 1))
	assert.True(t, NeedsProjection(Deep, 64, 64, 1))
	assert.False(t, NeedsProjection(Deep, 256, 64, 1))
}

func forwardMismatch(t *testing.T, f func()) *ShapeMismatchError {
	t.Helper()
	var got *ShapeMismatchError
	func() {
		defer func() {
			r := recover()
			require.NotNil(t, r, "expected a panic")
			err, ok := r.(error)
			require.True(t, ok, "panic value %v is not an error", r)
			require.True(t, errors.As(err, &got))
			assert.ErrorIs(t, err, ErrShapeMismatch)
		}()
		f()
	}()
	return got
}

func TestBlock_MissingProjectionIsShapeMismatch(t *testing.T) {
	backend := cpu.New()

	t.Run("basic_stride_2", func(t *testing.T) {
		b := NewBasicBlock(8, 8, 2, false, backend)
		err := forwardMismatch(t, func() { b.Forward(images(2, 8, 16, 16)) })
		assert.Equal(t, tensor.Shape{2, 8, 8, 8}, err.Main)
		assert.Equal(t, tensor.Shape{2, 8, 16, 16}, err.Identity)
	})
	t.Run("basic_channel_change", func(t *testing.T) {
		b := NewBasicBlock(8, 16, 1, false, backend)
		err := forwardMismatch(t, func() { b.Forward(images(1, 8, 8, 8)) })
		assert.Equal(t, tensor.Shape{1, 16, 8, 8}, err.Main)
	})
	t.Run("bottleneck_stride_2", func(t *testing.T) {
		b := NewBottleneckBlock(16, 4, 2, false, backend)
		forwardMismatch(t, func() { b.Forward(images(1, 16, 8, 8)) })
	})
	t.Run("with_projection_succeeds", func(t *testing.T) {
		b := NewBasicBlock(8, 16, 2, true, backend)
		out := b.Forward(images(2, 8, 16, 16))
		assert.Equal(t, tensor.Shape{2, 16, 8, 8}, out.Shape())
	})
}

func TestBlock_OutputIsNonNegative(t *testing.T) {
	b := NewBottleneckBlock(16, 4, 1, false, cpu.New())
	out := b.Forward(images(2, 16, 6, 6))
	for _, v := range out.Data() {
		assert.GreaterOrEqual(t, v, float32(0))
	}
}

func TestBuild_ConfigurationErrors(t *testing.T) {
	backend := cpu.New()
	valid := tinyConfig(Basic, 1, 1, 1, 1)

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"three_stages", func(c *Config) { c.Blocks = []int{2, 2, 2} }, "blocks"},
		{"five_stages", func(c *Config) { c.Blocks = []int{2, 2, 2, 2, 2} }, "blocks"},
		{"empty_stage", func(c *Config) { c.Blocks = []int{2, 0, 2, 2} }, "blocks"},
		{"negative_stage", func(c *Config) { c.Blocks = []int{2, 2, -1, 2} }, "blocks"},
		{"unknown_variant", func(c *Config) { c.Variant = Variant(3) }, "variant"},
		{"no_input_channels", func(c *Config) { c.InChannels = 0 }, "in_channels"},
		{"no_classes", func(c *Config) { c.NumClasses = 0 }, "num_classes"},
		{"bad_widths", func(c *Config) { c.Widths = []int{4, 8} }, "widths"},
		{"zero_width", func(c *Config) { c.Widths = []int{4, 0, 16, 32} }, "widths"},
		{"stage_in_disagrees", func(c *Config) { c.StageInChannels = []int{4, 2, 8, 16} }, "stage_in_channels"},
		{"stage_in_wrong_length", func(c *Config) { c.StageInChannels = []int{4} }, "stage_in_channels"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid.clone()
			tt.mutate(&cfg)
			net, err := Build(cfg, backend)
			assert.Nil(t, net)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfiguration)

			var cfgErr *ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.field, cfgErr.Field)
			assert.Equal(t, err, cfg.Validate())
		})
	}

	t.Run("explicit_stage_in_channels", func(t *testing.T) {
		cfg := valid.clone()
		cfg.StageInChannels = []int{4, 4, 8, 16}
		_, err := Build(cfg, backend)
		assert.NoError(t, err)
	})
}

func TestBuild_Deterministic(t *testing.T) {
	backend := cpu.New()
	cfg := tinyConfig(Deep, 1, 2, 1, 1)

	nn.Seed(1)
	a, err := Build(cfg, backend)
	require.NoError(t, err)
	nn.Seed(2)
	b, err := Build(cfg, backend)
	require.NoError(t, err)

	x := images(2, 3, 32, 32)
	a.SetTraining(false)
	b.SetTraining(false)
	require.NotEqual(t, a.Forward(x).Data(), b.Forward(x).Data())

	require.NoError(t, b.LoadStateDict(a.StateDict()))
	assert.Equal(t, a.Forward(x).Data(), b.Forward(x).Data())
	assert.Equal(t, a.Forward(x).Data(), a.Forward(x).Data())
}

func TestRelocate(t *testing.T) {
	src, err := Build(tinyConfig(Basic, 1, 1, 1, 1), cpu.New())
	require.NoError(t, err)
	src.SetTraining(false)

	dst, err := Relocate(src, autodiff.New(cpu.New()))
	require.NoError(t, err)
	assert.False(t, dst.Training())
	assert.Equal(t, src.NumParameters(), dst.NumParameters())

	x := images(2, 3, 32, 32)
	y, err := tensor.FromSlice(x.Data(), x.Shape(), dst.Backend())
	require.NoError(t, err)
	assert.Equal(t, src.Forward(x).Data(), dst.Forward(y).Data())
}

func TestForward_DeviceMismatchPanics(t *testing.T) {
	backend := cpu.New()
	net, err := Build(tinyConfig(Basic, 1, 1, 1, 1), backend)
	require.NoError(t, err)

	x := tensor.New(tensor.MustRaw(tensor.Shape{1, 3, 32, 32}, tensor.CUDA), backend)
	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)
		var devErr *tensor.DeviceError
		assert.True(t, errors.As(err, &devErr))
		assert.ErrorIs(t, err, tensor.ErrPlacement)
	}()
	net.Forward(x)
}

func TestSetTraining_Propagates(t *testing.T) {
	net, err := Build(tinyConfig(Deep, 2, 1, 1, 1), cpu.New())
	require.NoError(t, err)
	assert.True(t, net.Training())

	net.SetTraining(false)
	assert.False(t, net.Training())
	for _, s := range net.Stages() {
		for _, b := range s.Blocks() {
			assert.False(t, b.Training())
			if p := b.Projection(); p != nil {
				assert.False(t, p.Training())
			}
		}
	}
}

func TestBackward_ReachesEveryParameter(t *testing.T) {
	backend := autodiff.New(cpu.New())
	net, err := Build(tinyConfig(Deep, 1, 1, 1, 1), backend)
	require.NoError(t, err)

	x := tensor.Rand(tensor.Shape{2, 3, 32, 32}, nil, backend)
	backend.Tape().StartRecording()
	loss := nn.CrossEntropyLoss(net.Forward(x), []int32{0, 4})
	grads := autodiff.Backward(loss, backend)
	backend.Tape().StopRecording()
	backend.Tape().Clear()

	for i, p := range net.Parameters() {
		g, ok := grads[p.Tensor().Raw()]
		require.True(t, ok, "parameter %d (%s) has no gradient", i, p.Name())
		assert.Equal(t, p.Tensor().Shape(), g.Shape())
	}
}

func TestStateDict_Names(t *testing.T) {
	net, err := ResNet18(3, 36, cpu.New())
	require.NoError(t, err)
	sd := net.StateDict()

	for _, key := range []string{
		"conv1.weight", "bn1.running_mean", "layer1.0.conv1.weight", "layer1.1.bn2.running_var",
		"layer2.0.downsample.0.weight", "layer4.1.conv2.weight", "fc.weight", "fc.bias",
	} {
		assert.Contains(t, sd, key)
	}
	assert.NotContains(t, sd, "layer1.0.downsample.0.weight")

	// Parameters plus two running buffers per batch norm (20 of them).
	assert.Len(t, sd, len(net.Parameters())+2*20)

	delete(sd, "fc.bias")
	other, err := ResNet18(3, 36, cpu.New())
	require.NoError(t, err)
	assert.ErrorContains(t, other.LoadStateDict(sd), "fc.")
}

func TestNumParameters_ResNet18(t *testing.T) {
	net, err := ResNet18(3, 1000, cpu.New())
	require.NoError(t, err)
	// torchvision resnet18 reports 11,689,512 trainable parameters.
	assert.Equal(t, 11689512, net.NumParameters())
}

func TestSummary(t *testing.T) {
	net, err := ResNet50(3, 36, cpu.New())
	require.NoError(t, err)
	rows, err := net.Summary(224, 224)
	require.NoError(t, err)

	want := map[string]tensor.Shape{
		"conv1":   {64, 112, 112},
		"maxpool": {64, 56, 56},
		"layer1":  {256, 56, 56},
		"layer2":  {512, 28, 28},
		"layer3":  {1024, 14, 14},
		"layer4":  {2048, 7, 7},
		"avgpool": {2048, 1, 1},
		"fc":      {36},
	}
	require.Len(t, rows, len(want))
	total := 0
	for _, r := range rows {
		assert.Equal(t, want[r.Name], r.Output, r.Name)
		total += r.Parameters
	}
	assert.Equal(t, net.NumParameters(), total)
	assert.Contains(t, FormatSummary(rows), "layer4")

	_, err = net.Summary(0, 10)
	assert.Error(t, err)
}

func TestString(t *testing.T) {
	net, err := ResNet18(3, 36, cpu.New())
	require.NoError(t, err)
	s := net.String()
	assert.Contains(t, s, "ResNet(\n  (conv1): Conv2d(3, 64, kernel_size=(7, 7), stride=(2, 2), padding=(3, 3), bias=false)")
	assert.Contains(t, s, "(layer2): Sequential(\n    (0): BasicBlock(")
	assert.Contains(t, s, "(downsample): Sequential(")
	assert.Contains(t, s, "(fc): Linear(in_features=512, out_features=36, bias=true)")

	deep, err := ResNet50(3, 36, cpu.New())
	require.NoError(t, err)
	assert.Contains(t, deep.String(), "Bottleneck(")
}

func TestVariant(t *testing.T) {
	for in, want := range map[string]Variant{"basic": Basic, "Deep": Deep, " bottleneck ": Deep} {
		got, err := ParseVariant(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseVariant("wide")
	assert.ErrorIs(t, err, ErrConfiguration)

	text, err := Deep.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "deep", string(text))

	var v Variant
	require.NoError(t, v.UnmarshalText([]byte("basic")))
	assert.Equal(t, Basic, v)
	assert.Equal(t, 1, Basic.Expansion())
	assert.Equal(t, 4, Deep.Expansion())
}

func TestPresetConfig(t *testing.T) {
	assert.Equal(t, []string{"resnet101", "resnet152", "resnet18", "resnet34", "resnet50"}, Presets())

	cfg, err := PresetConfig("ResNet152", 3, 36)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 8, 36, 3}, cfg.Blocks)
	assert.Equal(t, Deep, cfg.Variant)

	_, err = PresetConfig("resnet9", 3, 36)
	assert.ErrorIs(t, err, ErrConfiguration)
}
