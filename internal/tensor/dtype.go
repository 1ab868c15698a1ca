// Package tensor provides the tensor types, shapes and the Backend contract
// used by the residual network and its training pipeline.
//
// Tensors hold float32 data in row-major order. Every tensor is tagged with the
// Device it lives on; backends refuse to mix devices in a single operation.
package tensor

// DataType represents runtime type information for tensors.
type DataType int

// Data types known to the package. Only Float32 can be allocated; the others
// exist so that requests for them fail with a DTypeError instead of silently
// producing float32 storage.
const (
	Float32 DataType = iota
	Float64
	Int32
	Int64
)

// Size returns the byte size of the data type.
func (dt DataType) Size() int {
	switch dt {
	case Float32, Int32:
		return 4
	case Float64, Int64:
		return 8
	default:
		panic("unknown data type")
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	default:
		return "unknown"
	}
}
