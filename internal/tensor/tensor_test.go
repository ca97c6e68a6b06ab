package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromSlice(t *testing.T) {
	raw, err := FromSlice([]float32{1, 2, 3, 4, 5, 6}, Shape{2, 3})
	require.NoError(t, err)

	assert.Equal(t, Float32, raw.DType())
	assert.True(t, raw.Shape().Equal(Shape{2, 3}))
	assert.Equal(t, 6, raw.NumElements())
	assert.Equal(t, 24, raw.ByteSize())
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, raw.AsFloat32())
}

func TestFromSliceShapeMismatch(t *testing.T) {
	_, err := FromSlice([]int64{1, 2, 3}, Shape{2, 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "element count mismatch")
}

func TestFromSliceDTypes(t *testing.T) {
	tests := []struct {
		name  string
		build func() (*RawTensor, error)
		dtype DataType
	}{
		{"float64", func() (*RawTensor, error) { return FromSlice([]float64{1.5}, Shape{1}) }, Float64},
		{"int32", func() (*RawTensor, error) { return FromSlice([]int32{-7}, Shape{1}) }, Int32},
		{"int64", func() (*RawTensor, error) { return FromSlice([]int64{1 << 40}, Shape{1}) }, Int64},
		{"uint8", func() (*RawTensor, error) { return FromSlice([]uint8{255}, Shape{1}) }, Uint8},
		{"bool", func() (*RawTensor, error) { return FromSlice([]bool{true, false}, Shape{2}) }, Bool},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := tt.build()
			require.NoError(t, err)
			assert.Equal(t, tt.dtype, raw.DType())
		})
	}
}

func TestScalarShape(t *testing.T) {
	raw, err := FromSlice([]float32{42}, Shape{})
	require.NoError(t, err)
	assert.Equal(t, 1, raw.NumElements())
	assert.Equal(t, []float32{42}, raw.AsFloat32())
}

func TestNewRawFromBytesSizeMismatch(t *testing.T) {
	_, err := NewRawFromBytes(make([]byte, 7), Shape{2}, Float32)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data size mismatch")
}

func TestAsTypedPanicsOnWrongDType(t *testing.T) {
	raw, err := FromSlice([]int32{1}, Shape{1})
	require.NoError(t, err)
	assert.Panics(t, func() { raw.AsFloat32() })
}

func TestCloneIsDeep(t *testing.T) {
	raw, err := FromSlice([]int64{1, 2, 3}, Shape{3})
	require.NoError(t, err)

	clone := raw.Clone()
	clone.AsInt64()[0] = 99

	assert.Equal(t, int64(1), raw.AsInt64()[0])
	assert.Equal(t, int64(99), clone.AsInt64()[0])
}

func TestEqual(t *testing.T) {
	a, err := FromSlice([]float32{1, 2}, Shape{2})
	require.NoError(t, err)
	b, err := FromSlice([]float32{1, 2}, Shape{2})
	require.NoError(t, err)
	c, err := FromSlice([]float32{1, 3}, Shape{2})
	require.NoError(t, err)
	d, err := FromSlice([]float32{1, 2}, Shape{2, 1})
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(d))
}

func TestHostIsNoOpOnCPU(t *testing.T) {
	raw, err := FromSlice([]float32{1}, Shape{1})
	require.NoError(t, err)

	host, err := raw.Host()
	require.NoError(t, err)
	assert.Same(t, raw, host)
}

func TestDataTypeRoundTrip(t *testing.T) {
	for _, dt := range []DataType{Float32, Float64, Float16, BFloat16, Int32, Int64, Uint8, Bool} {
		parsed, err := ParseDataType(dt.String())
		require.NoError(t, err)
		assert.Equal(t, dt, parsed)

		fromST, err := FromSafeTensors(dt.SafeTensors())
		require.NoError(t, err)
		assert.Equal(t, dt, fromST)
	}
}

func TestParseDataTypeUnknown(t *testing.T) {
	_, err := ParseDataType("float128")
	assert.Error(t, err)
}
