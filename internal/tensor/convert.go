package tensor

import (
	"fmt"
	"math"
)

// Cast converts the tensor to the target floating-point dtype, returning a
// new tensor. Casting between float widths is lossy beyond the narrower
// width's precision. Non-float tensors only support identity casts.
func (r *RawTensor) Cast(target DataType) (*RawTensor, error) {
	if r.dtype == target {
		return r, nil
	}
	if !r.dtype.IsFloat() || !target.IsFloat() {
		return nil, fmt.Errorf("cannot cast %s to %s: only float-to-float casts are supported", r.dtype, target)
	}

	out, err := NewRaw(r.shape, target, r.device)
	if err != nil {
		return nil, err
	}
	n := r.NumElements()
	for i := 0; i < n; i++ {
		setFloat(out, i, floatAt(r, i))
	}
	return out, nil
}

// floatAt reads element i of a float tensor as float64.
func floatAt(r *RawTensor, i int) float64 {
	switch r.dtype {
	case Float32:
		return float64(r.AsFloat32()[i])
	case Float64:
		return r.AsFloat64()[i]
	case Float16:
		return float64(Float16ToFloat32(r.AsUint16()[i]))
	case BFloat16:
		return float64(BFloat16ToFloat32(r.AsUint16()[i]))
	default:
		panic(fmt.Sprintf("floatAt on non-float dtype %s", r.dtype))
	}
}

// setFloat writes element i of a float tensor from float64.
func setFloat(r *RawTensor, i int, v float64) {
	switch r.dtype {
	case Float32:
		r.AsFloat32()[i] = float32(v)
	case Float64:
		r.AsFloat64()[i] = v
	case Float16:
		r.AsUint16()[i] = Float32ToFloat16(float32(v))
	case BFloat16:
		r.AsUint16()[i] = Float32ToBFloat16(float32(v))
	default:
		panic(fmt.Sprintf("setFloat on non-float dtype %s", r.dtype))
	}
}

// Float16ToFloat32 converts IEEE 754 half-precision bits to float32.
func Float16ToFloat32(bits uint16) float32 {
	sign := uint32(bits>>15) & 1
	exp := uint32(bits>>10) & 0x1F
	frac := uint32(bits) & 0x3FF

	var out uint32
	switch {
	case exp == 0 && frac == 0:
		// Signed zero.
		out = sign << 31
	case exp == 0:
		// Subnormal: normalize into float32 range.
		e := uint32(127 - 15 + 1)
		for frac&0x400 == 0 {
			frac <<= 1
			e--
		}
		frac &= 0x3FF
		out = sign<<31 | e<<23 | frac<<13
	case exp == 0x1F:
		// Inf / NaN.
		out = sign<<31 | 0xFF<<23 | frac<<13
	default:
		out = sign<<31 | (exp+127-15)<<23 | frac<<13
	}
	return math.Float32frombits(out)
}

// Float32ToFloat16 converts float32 to IEEE 754 half-precision bits with
// round-to-nearest-even. Values outside the half range become infinity.
func Float32ToFloat16(f float32) uint16 {
	bits := math.Float32bits(f)
	sign := uint16(bits>>16) & 0x8000
	exp := int32(bits>>23)&0xFF - 127 + 15
	frac := bits & 0x7FFFFF

	switch {
	case int32(bits>>23)&0xFF == 0xFF:
		// Inf / NaN.
		if frac != 0 {
			return sign | 0x7E00 // quiet NaN
		}
		return sign | 0x7C00
	case exp >= 0x1F:
		return sign | 0x7C00 // overflow to infinity
	case exp <= 0:
		if exp < -10 {
			return sign // underflow to zero
		}
		// Subnormal half.
		frac |= 0x800000
		shift := uint32(14 - exp)
		half := uint16(frac >> shift)
		if frac>>(shift-1)&1 != 0 && (frac&((1<<(shift-1))-1) != 0 || half&1 != 0) {
			half++
		}
		return sign | half
	default:
		half := sign | uint16(exp)<<10 | uint16(frac>>13)
		if frac&0x1000 != 0 && (frac&0xFFF != 0 || half&1 != 0) {
			half++
		}
		return half
	}
}

// BFloat16ToFloat32 converts bfloat16 bits to float32.
func BFloat16ToFloat32(bits uint16) float32 {
	return math.Float32frombits(uint32(bits) << 16)
}

// Float32ToBFloat16 converts float32 to bfloat16 bits with
// round-to-nearest-even.
func Float32ToBFloat16(f float32) uint16 {
	bits := math.Float32bits(f)
	if bits&0x7FFFFFFF > 0x7F800000 {
		// NaN: keep a quiet NaN payload.
		return uint16(bits>>16) | 0x40
	}
	round := uint32(0x7FFF + (bits>>16)&1)
	return uint16((bits + round) >> 16)
}
