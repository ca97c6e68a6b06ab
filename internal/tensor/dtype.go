// Package tensor provides the host-side tensor model used by the safestruct
// serialization engine: raw byte buffers with shape, dtype and device
// information, plus the dtype conversions needed for canonical float32
// storage.
package tensor

import "fmt"

// Elem is a constraint for element types that can back a tensor directly.
type Elem interface {
	~float32 | ~float64 | ~int32 | ~int64 | ~uint8 | ~bool
}

// DataType represents runtime type information for tensors.
type DataType int

// Supported data types.
const (
	Float32 DataType = iota
	Float64
	Float16
	BFloat16
	Int32
	Int64
	Uint8
	Bool
)

// Size returns the byte size of one element of the data type.
func (dt DataType) Size() int {
	switch dt {
	case Float32, Int32:
		return 4
	case Float64, Int64:
		return 8
	case Float16, BFloat16:
		return 2
	case Uint8, Bool:
		return 1
	default:
		panic("unknown data type")
	}
}

// IsFloat reports whether the data type is a floating-point type.
func (dt DataType) IsFloat() bool {
	switch dt {
	case Float32, Float64, Float16, BFloat16:
		return true
	default:
		return false
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Float16:
		return "float16"
	case BFloat16:
		return "bfloat16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Uint8:
		return "uint8"
	case Bool:
		return "bool"
	default:
		return "unknown"
	}
}

// ParseDataType parses the string form produced by DataType.String.
func ParseDataType(s string) (DataType, error) {
	switch s {
	case "float32":
		return Float32, nil
	case "float64":
		return Float64, nil
	case "float16":
		return Float16, nil
	case "bfloat16":
		return BFloat16, nil
	case "int32":
		return Int32, nil
	case "int64":
		return Int64, nil
	case "uint8":
		return Uint8, nil
	case "bool":
		return Bool, nil
	default:
		return 0, fmt.Errorf("unknown data type %q", s)
	}
}

// SafeTensors returns the safetensors dtype string for the data type.
func (dt DataType) SafeTensors() string {
	switch dt {
	case Float32:
		return "F32"
	case Float64:
		return "F64"
	case Float16:
		return "F16"
	case BFloat16:
		return "BF16"
	case Int32:
		return "I32"
	case Int64:
		return "I64"
	case Uint8:
		return "U8"
	case Bool:
		return "BOOL"
	default:
		panic("unknown data type")
	}
}

// FromSafeTensors converts a safetensors dtype string to a DataType.
func FromSafeTensors(s string) (DataType, error) {
	switch s {
	case "F32":
		return Float32, nil
	case "F64":
		return Float64, nil
	case "F16":
		return Float16, nil
	case "BF16":
		return BFloat16, nil
	case "I32":
		return Int32, nil
	case "I64":
		return Int64, nil
	case "U8":
		return Uint8, nil
	case "BOOL":
		return Bool, nil
	default:
		return 0, fmt.Errorf("unsupported safetensors dtype %q", s)
	}
}

// inferDataType infers DataType from a generic element type.
func inferDataType[T Elem](dummy T) DataType {
	switch any(dummy).(type) {
	case float32:
		return Float32
	case float64:
		return Float64
	case int32:
		return Int32
	case int64:
		return Int64
	case uint8:
		return Uint8
	case bool:
		return Bool
	default:
		panic("unsupported element type")
	}
}
