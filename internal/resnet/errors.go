package resnet

import (
	"errors"
	"fmt"

	"github.com/born-ml/resnet/internal/tensor"
)

var (
	// ErrConfiguration is matched by every *ConfigurationError.
	ErrConfiguration = errors.New("resnet: invalid configuration")

	// ErrShapeMismatch is matched by every *ShapeMismatchError.
	ErrShapeMismatch = errors.New("resnet: residual shape mismatch")
)

// ConfigurationError reports an invalid network description, detected
// before any layer is built.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("resnet: invalid %s: %s", e.Field, e.Reason)
}

// Is reports whether target is ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func configErr(field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ShapeMismatchError reports a residual block whose main path and identity
// path disagree in shape at the merge. It is raised by panic from Forward:
// it means the block was wired without a needed projection.
type ShapeMismatchError struct {
	Block    string
	Main     tensor.Shape
	Identity tensor.Shape
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("resnet: %s: main path %v cannot be added to identity %v", e.Block, e.Main, e.Identity)
}

// Is reports whether target is ErrShapeMismatch.
func (e *ShapeMismatchError) Is(target error) bool {
	return target == ErrShapeMismatch
}
