// Package resnet assembles residual networks: basic and bottleneck residual
// blocks, the stage builder, and the network assembler that stacks a stem,
// four stages, global average pooling and a linear classifier.
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	cfg, _ := resnet.PresetConfig("resnet34", 3, 36)
//	net, err := resnet.Build(cfg, backend)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	logits := net.Forward(images) // [N, 36]
package resnet

import (
	"fmt"
	"strings"
)

// Variant selects the residual block family of a network.
type Variant int

const (
	// Basic blocks stack two 3x3 convolutions (expansion 1).
	Basic Variant = iota
	// Deep blocks are 1x1 → 3x3 → 1x1 bottlenecks (expansion 4).
	Deep
)

// Expansion is the ratio between a block's output channels and its width.
func (v Variant) Expansion() int {
	if v == Deep {
		return 4
	}
	return 1
}

// Valid reports whether v is a known variant.
func (v Variant) Valid() bool {
	return v == Basic || v == Deep
}

func (v Variant) String() string {
	switch v {
	case Basic:
		return "basic"
	case Deep:
		return "deep"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

// ParseVariant parses "basic" or "deep" ("bottleneck" is accepted as an
// alias for deep). Matching is case-insensitive.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "basic":
		return Basic, nil
	case "deep", "bottleneck":
		return Deep, nil
	default:
		return 0, &ConfigurationError{Field: "variant", Reason: fmt.Sprintf("unknown variant %q", s)}
	}
}

// MarshalText implements encoding.TextMarshaler.
func (v Variant) MarshalText() ([]byte, error) {
	if !v.Valid() {
		return nil, &ConfigurationError{Field: "variant", Reason: fmt.Sprintf("unknown variant %d", int(v))}
	}
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Variant) UnmarshalText(text []byte) error {
	parsed, err := ParseVariant(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
