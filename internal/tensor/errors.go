package tensor

import (
	"errors"
	"fmt"
)

// ErrPlacement is matched by every DeviceError and DTypeError.
var ErrPlacement = errors.New("tensor: device or dtype mismatch")

// DeviceError reports operands that live on different devices, or an
// operand that lives on a device the executing backend does not drive.
type DeviceError struct {
	Op      string
	Backend Device
	Got     Device
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("%s: tensor on %s cannot be used by %s backend", e.Op, e.Got, e.Backend)
}

// Is reports whether target is ErrPlacement.
func (e *DeviceError) Is(target error) bool {
	return target == ErrPlacement
}

// DTypeError reports a tensor whose data type is not supported by an operation.
type DTypeError struct {
	Op   string
	Want DataType
	Got  DataType
}

func (e *DTypeError) Error() string {
	return fmt.Sprintf("%s: unsupported dtype %s (want %s)", e.Op, e.Got, e.Want)
}

// Is reports whether target is ErrPlacement.
func (e *DTypeError) Is(target error) bool {
	return target == ErrPlacement
}
