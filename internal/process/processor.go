// Package process defines the processor contract (how one runtime type
// serializes to and from a schema node) together with the registry that
// resolves a value or type tag to its processor, and the built-in
// processors for scalars, containers, records and tensors.
package process

import (
	"reflect"

	"github.com/safestruct/safestruct/internal/schema"
	"github.com/safestruct/safestruct/internal/tensor"
)

// Type tags written into the schema tree. Tags are stable identities:
// changing one breaks loading of previously written files.
const (
	TagBool       = "bool"
	TagString     = "string"
	TagNone       = "none"
	TagBytes      = "bytes"
	TagInt        = "int"
	TagInt8       = "int8"
	TagInt16      = "int16"
	TagInt32      = "int32"
	TagInt64      = "int64"
	TagUint       = "uint"
	TagUint8      = "uint8"
	TagUint16     = "uint16"
	TagUint32     = "uint32"
	TagUint64     = "uint64"
	TagFloat32    = "float32"
	TagFloat64    = "float64"
	TagComplex64  = "complex64"
	TagComplex128 = "complex128"
	TagList       = "list"
	TagTuple      = "tuple"
	TagSet        = "set"
	TagDict       = "dict"
	TagRecord     = "record"
	TagTensor     = "tensor"
)

// ExtraDType is the schema extra key recording a tensor's dtype before
// float32 normalization.
const ExtraDType = "dtype"

// ExtraRecordType is the schema extra key recording a record's original
// struct type identity.
const ExtraRecordType = "record"

// Context is the narrow engine capability handed to every processor
// invocation. Container processors recurse through it instead of inlining
// child-type logic; tensor processors use it to move payloads in and out
// of the store.
type Context interface {
	// Serialize dispatches a child value to its processor.
	Serialize(v any) (*schema.Node, error)

	// Deserialize dispatches a child node to the processor its tag names.
	Deserialize(n *schema.Node) (any, error)

	// AddTensor stores a host tensor under a fresh document-unique key
	// and returns the key.
	AddTensor(raw *tensor.RawTensor) string

	// Tensor fetches a tensor by key from the document's store.
	Tensor(key string) (*tensor.RawTensor, error)
}

// Processor serializes and deserializes exactly one runtime type.
//
// Deserialize runs reconstruction logic supplied by the processor's
// author: accepting third-party plugin processors is a trust decision by
// the caller.
type Processor interface {
	// DataType is the concrete runtime type this processor owns.
	// A nil type is allowed for the none processor.
	DataType() reflect.Type

	// TypeTag is the stable string identity written into the schema tree.
	TypeTag() string

	// Serialize transforms a value into its schema node.
	Serialize(ctx Context, v any) (*schema.Node, error)

	// Deserialize reconstructs a value from its schema node. Side-channel
	// data recorded by SerializeExtra arrives in n.Extra.
	Deserialize(ctx Context, n *schema.Node) (any, error)
}

// ExtraSerializer is optionally implemented by processors that need a
// side-channel beyond the node body. The returned map is merged into the
// node's extra field and handed back verbatim on deserialization.
type ExtraSerializer interface {
	SerializeExtra(ctx Context, v any) (map[string]string, error)
}
