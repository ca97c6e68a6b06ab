package process

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safestruct/safestruct/internal/schema"
)

// roundTrip serializes and deserializes through the processor itself;
// atomics never touch the engine context.
func roundTrip(t *testing.T, p Processor, v any) any {
	t.Helper()
	node, err := p.Serialize(nil, v)
	require.NoError(t, err)
	assert.Equal(t, p.TypeTag(), node.Type)

	out, err := p.Deserialize(nil, node)
	require.NoError(t, err)
	return out
}

func TestAtomicRoundTrips(t *testing.T) {
	r := NewRegistry()

	values := []any{
		true,
		false,
		"hello world",
		"",
		[]byte("raw\x00bytes"),
		42,
		int8(-128),
		int16(-300),
		int32(1 << 30),
		int64(-1 << 60),
		uint(7),
		uint8(255),
		uint16(65535),
		uint32(1 << 31),
		uint64(1 << 63),
		float32(3.14),
		2.718281828459045,
		complex64(complex(1, -2)),
		complex(0.5, 1.5),
	}

	for _, v := range values {
		p, err := r.ByValue(v)
		require.NoError(t, err, "value %v", v)
		assert.Equal(t, v, roundTrip(t, p, v), "value %v", v)
	}
}

func TestAtomicCanonicalForms(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		value any
		want  string
	}{
		{true, "true"},
		{-17, "-17"},
		{uint8(9), "9"},
		{1.0, "1"},
		{float32(0.5), "0.5"},
		{"plain", "plain"},
	}

	for _, tt := range tests {
		p, err := r.ByValue(tt.value)
		require.NoError(t, err)
		node, err := p.Serialize(nil, tt.value)
		require.NoError(t, err)
		assert.Equal(t, tt.want, node.Value, "value %v", tt.value)
	}
}

func TestNoneRoundTrip(t *testing.T) {
	r := NewRegistry()
	p, err := r.ByValue(nil)
	require.NoError(t, err)

	node, err := p.Serialize(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, TagNone, node.Type)
	assert.Empty(t, node.Value)

	out, err := p.Deserialize(nil, node)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestMalformedAtomicIsCorruptData(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		tag   string
		value string
	}{
		{TagInt, "not-a-number"},
		{TagInt8, "300"},
		{TagUint8, "-1"},
		{TagFloat64, "1.2.3"},
		{TagBool, "maybe"},
		{TagBytes, "!!not base64!!"},
		{TagComplex128, "1+"},
	}

	for _, tt := range tests {
		p, err := r.ByTag(tt.tag)
		require.NoError(t, err)

		_, err = p.Deserialize(nil, &schema.Node{Type: tt.tag, Value: tt.value})
		require.Error(t, err, "tag %s value %q", tt.tag, tt.value)

		var corrupt *schema.CorruptDataError
		assert.True(t, errors.As(err, &corrupt), "tag %s value %q", tt.tag, tt.value)
	}
}
