package nn

import (
	"fmt"
	"strings"

	"github.com/born-ml/resnet/internal/tensor"
)

// loadInto copies stateDict[name] into dst, checking the shape.
func loadInto(stateDict map[string]*tensor.RawTensor, name string, dst *tensor.RawTensor) error {
	src, ok := stateDict[name]
	if !ok {
		return fmt.Errorf("missing state %q", name)
	}
	if !src.Shape().Equal(dst.Shape()) {
		return fmt.Errorf("state %q: shape %v does not match %v", name, src.Shape(), dst.Shape())
	}
	copy(dst.Data(), src.Data())
	return nil
}

// SubState returns the entries of stateDict under prefix, with the prefix
// stripped.
func SubState(stateDict map[string]*tensor.RawTensor, prefix string) map[string]*tensor.RawTensor {
	out := make(map[string]*tensor.RawTensor)
	for key, raw := range stateDict {
		if rest, ok := strings.CutPrefix(key, prefix); ok && rest != "" {
			out[rest] = raw
		}
	}
	return out
}

// MergeState copies every entry of child into parent under prefix.
func MergeState(parent, child map[string]*tensor.RawTensor, prefix string) {
	for key, raw := range child {
		parent[prefix+key] = raw
	}
}
