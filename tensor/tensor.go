// Copyright 2025 Safestruct Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API for the host tensor type stored
// in safestruct documents: raw contiguous buffers with shape and dtype.
//
// Example:
//
//	t, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2})
//	err = safestruct.SaveFile(t, "t.safetensors", nil)
package tensor

import (
	"github.com/safestruct/safestruct/internal/tensor"
)

// DataType represents the underlying data type of a tensor.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32  DataType = tensor.Float32
	Float64  DataType = tensor.Float64
	Float16  DataType = tensor.Float16
	BFloat16 DataType = tensor.BFloat16
	Int32    DataType = tensor.Int32
	Int64    DataType = tensor.Int64
	Uint8    DataType = tensor.Uint8
	Bool     DataType = tensor.Bool
)

// Device represents where tensor data resides.
type Device = tensor.Device

// Device constants.
const (
	CPU    Device = tensor.CPU
	CUDA   Device = tensor.CUDA
	Metal  Device = tensor.Metal
	WebGPU Device = tensor.WebGPU
)

// Shape represents the dimensions of a tensor.
// Example: Shape{2, 3, 4} represents a 3D tensor with dimensions 2×3×4.
type Shape = tensor.Shape

// Elem is a constraint for element types that can back a tensor directly.
type Elem = tensor.Elem

// RawTensor is the low-level tensor representation: a contiguous
// row-major byte buffer plus shape, dtype and device information.
type RawTensor = tensor.RawTensor

// NewRaw creates a zero-initialized tensor with the given shape and type.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype, device)
}

// NewRawFromBytes creates a host tensor over existing data.
func NewRawFromBytes(data []byte, shape Shape, dtype DataType) (*RawTensor, error) {
	return tensor.NewRawFromBytes(data, shape, dtype)
}

// FromSlice creates a host tensor from a typed slice. The element count
// must match the shape.
func FromSlice[T Elem](data []T, shape Shape) (*RawTensor, error) {
	return tensor.FromSlice(data, shape)
}
