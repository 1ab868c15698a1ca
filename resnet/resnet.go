// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package resnet builds residual networks for image classification.
//
// # Overview
//
// A network is a 7x7 stem, four stages of residual blocks, global average
// pooling and a linear classifier. Basic blocks stack two 3x3 convolutions;
// Deep (bottleneck) blocks run 1x1, 3x3 and 1x1 convolutions and widen their
// output four times. A block whose input and output differ in shape reaches
// its skip connection through a 1x1 projection.
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/resnet/backend/cpu"
//	    "github.com/born-ml/resnet/resnet"
//	    "github.com/born-ml/resnet/tensor"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    net, err := resnet.ResNet50(3, 36, backend)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    net.SetTraining(false)
//	    scores := net.Forward(tensor.Zeros(tensor.Shape{16, 3, 224, 224}, backend)) // [16, 36]
//	}
//
// # Custom architectures
//
//	net, err := resnet.Build(resnet.Config{
//	    InChannels: 1,
//	    NumClasses: 10,
//	    Blocks:     []int{2, 2, 2, 2},
//	    Variant:    resnet.Basic,
//	}, backend)
//
// Invalid configurations are reported as *ConfigurationError before any
// layer is built.
package resnet

import (
	"github.com/born-ml/resnet/internal/resnet"
	"github.com/born-ml/resnet/tensor"
)

// Variant selects the residual block family.
type Variant = resnet.Variant

// Block variants.
const (
	Basic = resnet.Basic
	Deep  = resnet.Deep
)

// ParseVariant parses "basic" or "deep" ("bottleneck" is an alias for deep).
func ParseVariant(s string) (Variant, error) {
	return resnet.ParseVariant(s)
}

// Config describes a residual network.
type Config = resnet.Config

// Network is an assembled residual network.
type Network[B tensor.Backend] = resnet.Network[B]

// Stage is one group of residual blocks.
type Stage[B tensor.Backend] = resnet.Stage[B]

// Block is a residual block.
type Block[B tensor.Backend] = resnet.Block[B]

// LayerSummary is one row of Network.Summary.
type LayerSummary = resnet.LayerSummary

// Errors.
type (
	ConfigurationError = resnet.ConfigurationError
	ShapeMismatchError = resnet.ShapeMismatchError
)

var (
	ErrConfiguration = resnet.ErrConfiguration
	ErrShapeMismatch = resnet.ErrShapeMismatch
)

// Build validates cfg and assembles the network on backend.
func Build[B tensor.Backend](cfg Config, backend B) (*Network[B], error) {
	return resnet.Build(cfg, backend)
}

// Relocate rebuilds src on another backend and copies its parameters and
// running statistics.
func Relocate[A, B tensor.Backend](src *Network[A], backend B) (*Network[B], error) {
	return resnet.Relocate(src, backend)
}

// BuildStage assembles one stage and returns it with its output channel count.
func BuildStage[B tensor.Backend](variant Variant, inChannels, width, blocks, stride int, backend B) (*Stage[B], int, error) {
	return resnet.BuildStage(variant, inChannels, width, blocks, stride, backend)
}

// Presets lists the standard architecture names.
func Presets() []string {
	return resnet.Presets()
}

// PresetConfig returns the configuration of a standard ResNet.
func PresetConfig(name string, inChannels, numClasses int) (Config, error) {
	return resnet.PresetConfig(name, inChannels, numClasses)
}

// FormatSummary renders Network.Summary rows as an aligned table.
func FormatSummary(rows []LayerSummary) string {
	return resnet.FormatSummary(rows)
}

// ResNet18 builds a basic-block network with [2, 2, 2, 2] blocks.
func ResNet18[B tensor.Backend](inChannels, numClasses int, backend B) (*Network[B], error) {
	return resnet.ResNet18(inChannels, numClasses, backend)
}

// ResNet34 builds a basic-block network with [3, 4, 6, 3] blocks.
func ResNet34[B tensor.Backend](inChannels, numClasses int, backend B) (*Network[B], error) {
	return resnet.ResNet34(inChannels, numClasses, backend)
}

// ResNet50 builds a bottleneck network with [3, 4, 6, 3] blocks.
func ResNet50[B tensor.Backend](inChannels, numClasses int, backend B) (*Network[B], error) {
	return resnet.ResNet50(inChannels, numClasses, backend)
}

// ResNet101 builds a bottleneck network with [3, 4, 23, 3] blocks.
func ResNet101[B tensor.Backend](inChannels, numClasses int, backend B) (*Network[B], error) {
	return resnet.ResNet101(inChannels, numClasses, backend)
}

// ResNet152 builds a bottleneck network with [3, 8, 36, 3] blocks.
func ResNet152[B tensor.Backend](inChannels, numClasses int, backend B) (*Network[B], error) {
	return resnet.ResNet152(inChannels, numClasses, backend)
}
