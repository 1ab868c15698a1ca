package resnet

import (
	"sort"
	"strings"

	"github.com/born-ml/resnet/internal/tensor"
)

type preset struct {
	variant Variant
	blocks  [4]int
}

var presets = map[string]preset{
	"resnet18":  {Basic, [4]int{2, 2, 2, 2}},
	"resnet34":  {Basic, [4]int{3, 4, 6, 3}},
	"resnet50":  {Deep, [4]int{3, 4, 6, 3}},
	"resnet101": {Deep, [4]int{3, 4, 23, 3}},
	"resnet152": {Deep, [4]int{3, 8, 36, 3}},
}

// Presets lists the known preset names in sorted order.
func Presets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PresetConfig returns the configuration of a standard ResNet
// ("resnet18", "resnet34", "resnet50", "resnet101" or "resnet152").
func PresetConfig(name string, inChannels, numClasses int) (Config, error) {
	p, ok := presets[strings.ToLower(name)]
	if !ok {
		return Config{}, configErr("preset", "unknown preset %q (want one of %s)", name, strings.Join(Presets(), ", "))
	}
	return Config{
		InChannels: inChannels,
		NumClasses: numClasses,
		Blocks:     p.blocks[:],
		Variant:    p.variant,
	}, nil
}

func buildPreset[B tensor.Backend](name string, inChannels, numClasses int, backend B) (*Network[B], error) {
	cfg, err := PresetConfig(name, inChannels, numClasses)
	if err != nil {
		return nil, err
	}
	return Build(cfg, backend)
}

// ResNet18 builds a basic-block network with [2, 2, 2, 2] blocks.
func ResNet18[B tensor.Backend](inChannels, numClasses int, backend B) (*Network[B], error) {
	return buildPreset("resnet18", inChannels, numClasses, backend)
}

// ResNet34 builds a basic-block network with [3, 4, 6, 3] blocks.
func ResNet34[B tensor.Backend](inChannels, numClasses int, backend B) (*Network[B], error) {
	return buildPreset("resnet34", inChannels, numClasses, backend)
}

// ResNet50 builds a bottleneck network with [3, 4, 6, 3] blocks.
func ResNet50[B tensor.Backend](inChannels, numClasses int, backend B) (*Network[B], error) {
	return buildPreset("resnet50", inChannels, numClasses, backend)
}

// ResNet101 builds a bottleneck network with [3, 4, 23, 3] blocks.
func ResNet101[B tensor.Backend](inChannels, numClasses int, backend B) (*Network[B], error) {
	return buildPreset("resnet101", inChannels, numClasses, backend)
}

// ResNet152 builds a bottleneck network with [3, 8, 36, 3] blocks.
func ResNet152[B tensor.Backend](inChannels, numClasses int, backend B) (*Network[B], error) {
	return buildPreset("resnet152", inChannels, numClasses, backend)
}
