// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package resnet_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/resnet/autodiff"
	"github.com/born-ml/resnet/backend/cpu"
	"github.com/born-ml/resnet/nn"
	"github.com/born-ml/resnet/optim"
	"github.com/born-ml/resnet/resnet"
	"github.com/born-ml/resnet/tensor"
)

func TestPublicAPI_BuildAndForward(t *testing.T) {
	backend := cpu.New()
	net, err := resnet.Build(resnet.Config{
		InChannels: 1,
		NumClasses: 5,
		Blocks:     []int{1, 1, 1, 1},
		Variant:    resnet.Basic,
	}, backend)
	require.NoError(t, err)

	net.SetTraining(false)
	out := net.Forward(tensor.Zeros(tensor.Shape{2, 1, 32, 32}, backend))
	assert.Equal(t, tensor.Shape{2, 5}, out.Shape())
}

func TestPublicAPI_Errors(t *testing.T) {
	_, err := resnet.Build(resnet.Config{InChannels: 3, NumClasses: 2, Blocks: []int{1, 1}}, cpu.New())
	var cfgErr *resnet.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "blocks", cfgErr.Field)
	assert.ErrorIs(t, err, resnet.ErrConfiguration)

	v, err := resnet.ParseVariant("bottleneck")
	require.NoError(t, err)
	assert.Equal(t, resnet.Deep, v)
	assert.Contains(t, resnet.Presets(), "resnet101")
}

func TestPublicAPI_TrainingStep(t *testing.T) {
	nn.Seed(5)
	backend := autodiff.New(cpu.New())
	cfg, err := resnet.PresetConfig("resnet18", 3, 4)
	require.NoError(t, err)
	net, err := resnet.Build(cfg, backend)
	require.NoError(t, err)

	opt := optim.NewSGD(net.Parameters(), optim.SGDConfig{LR: 0.01, Momentum: 0.9})
	values := make([]float32, 2*3*32*32)
	for i := range values {
		values[i] = float32(i%7) / 7
	}
	x, err := tensor.FromSlice(values, tensor.Shape{2, 3, 32, 32}, backend)
	require.NoError(t, err)

	backend.Tape().StartRecording()
	loss := nn.CrossEntropyLoss(net.Forward(x), []int32{1, 3})
	grads := autodiff.Backward(loss, backend)
	backend.Tape().StopRecording()

	fc := net.Parameters()[len(net.Parameters())-1] // classifier bias
	before := append([]float32(nil), fc.Tensor().Data()...)
	opt.Step(grads)
	assert.NotEqual(t, before, fc.Tensor().Data())
}
