// Copyright 2025 Safestruct Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package safestruct serializes arbitrary nested Go values (containers,
// scalars, record-like structs and tensors) into a single safetensors
// file, preserving enough schema metadata to reconstruct the original
// structure on load.
//
// Supported out of the box: nil, bool, string, []byte, all integer and
// float widths, complex numbers, slices, arrays, maps, Tuple, Set,
// structs (round-tripping as generic Records), and *tensor.RawTensor.
// Anything else needs a plugin Processor:
//
//	err := safestruct.SaveFile(data, "data.safetensors", nil)
//	value, meta, err := safestruct.LoadFile("data.safetensors")
//
// Values must form a tree: shared sub-objects are serialized
// independently and cycles are not supported. Float tensors are stored as
// float32 with the original dtype recorded for best-effort restoration.
//
// A plugin's Deserialize runs arbitrary reconstruction logic; supplying
// third-party plugins is a trust decision by the caller.
package safestruct

import (
	"io"

	"github.com/safestruct/safestruct/internal/process"
	"github.com/safestruct/safestruct/internal/schema"
	"github.com/safestruct/safestruct/internal/serialize"
	"github.com/safestruct/safestruct/internal/structs"
)

// Processor serializes and deserializes exactly one runtime type. Plugins
// implement this contract; see the process documentation on Context for
// how recursion and tensor payloads work.
type Processor = process.Processor

// Context is the engine capability handed to each processor invocation.
type Context = process.Context

// ExtraSerializer is the optional side-channel extension of Processor.
type ExtraSerializer = process.ExtraSerializer

// TensorConverter adapts a framework tensor type for serialization.
type TensorConverter = process.TensorConverter

// SchemaNode is one node of the schema tree built and consumed by
// processors.
type SchemaNode = schema.Node

// SchemaEntry is one named child of a keyed schema node.
type SchemaEntry = schema.Entry

// Tuple is a fixed-arity heterogeneous sequence.
type Tuple = structs.Tuple

// Set is an unordered collection of comparable values.
type Set = structs.Set

// Record is the generic keyed-record fallback for struct values loaded
// without their original type definition.
type Record = structs.Record

// UnsupportedTypeError reports a type or tag with no registered processor.
type UnsupportedTypeError = process.UnsupportedTypeError

// CorruptDataError reports a structurally invalid or unparseable document.
type CorruptDataError = schema.CorruptDataError

// Serializer drives one document at a time. Use it directly to reuse a
// plugin set across calls or to target an io.Reader/io.Writer; SaveFile
// and LoadFile cover the common case.
type Serializer = serialize.Serializer

// NewSet builds a Set from the given elements.
func NewSet(elems ...any) Set {
	return structs.NewSet(elems...)
}

// NewRecord creates an empty record with the given type identity ("" when
// unknown).
func NewRecord(typeName string) *Record {
	return structs.NewRecord(typeName)
}

// NewSerializer creates a Serializer with the built-in processors plus the
// given plugins. Registration is last-wins: a later plugin shadows any
// earlier claim (built-in or plugin) on the same type or tag. Register
// everything before any concurrent use.
func NewSerializer(plugins ...Processor) *Serializer {
	return serialize.New(plugins...)
}

// NewTensorProcessor builds a plugin Processor for a framework tensor type
// from its TensorConverter. dataType is the concrete tensor type
// (reflect.TypeOf on a value), tag its stable schema identity.
var NewTensorProcessor = process.NewTensorProcessor

// SaveFile serializes data and writes it to a safetensors file at path.
// metadata is optional caller metadata stored alongside the schema;
// plugins extend the built-in type set.
func SaveFile(data any, path string, metadata map[string]string, plugins ...Processor) error {
	return serialize.New(plugins...).Save(data, path, metadata)
}

// LoadFile reads a safestruct file and reconstructs the saved value,
// returning it with the caller metadata.
func LoadFile(path string, plugins ...Processor) (any, map[string]string, error) {
	return serialize.New(plugins...).Load(path)
}

// Save serializes data to an io.Writer.
func Save(data any, w io.Writer, metadata map[string]string, plugins ...Processor) error {
	return serialize.New(plugins...).SaveTo(data, w, metadata)
}

// Load reads a safestruct document from an io.Reader.
func Load(r io.Reader, plugins ...Processor) (any, map[string]string, error) {
	return serialize.New(plugins...).LoadFrom(r)
}
