package process

import (
	"reflect"

	"github.com/safestruct/safestruct/internal/structs"
	"github.com/safestruct/safestruct/internal/tensor"
)

// Registry maps runtime types and type tags to processors.
//
// Built-in processors are installed at construction; plugins registered
// afterwards shadow any earlier claim on the same type or tag
// (last-registered-wins). Lookups are read-only and safe for concurrent
// use; Register is not. Register all plugins before any concurrent
// serialize/deserialize traffic.
type Registry struct {
	byType map[reflect.Type]Processor
	byTag  map[string]Processor
}

// NewRegistry creates a registry holding the built-in processors plus the
// given plugins, in order, each later registration shadowing earlier ones.
func NewRegistry(plugins ...Processor) *Registry {
	r := &Registry{
		byType: make(map[reflect.Type]Processor),
		byTag:  make(map[string]Processor),
	}
	for _, p := range builtins() {
		r.Register(p)
	}
	for _, p := range plugins {
		r.Register(p)
	}
	return r
}

// Register adds a processor, replacing any existing processor for the same
// data type or tag.
func (r *Registry) Register(p Processor) {
	if t := p.DataType(); t != nil {
		r.byType[t] = p
	}
	r.byTag[p.TypeTag()] = p
}

// ByValue resolves the processor owning a value's runtime type.
//
// Resolution order: exact runtime type match, then the kind fallback for
// types nobody claimed directly: any slice serializes as a list, any
// array as a tuple, any map as a dict, any struct (or pointer to struct)
// as a record. The fallback is what lets plain typed containers and
// user-defined structs serialize without a plugin; they reconstruct as the
// generic forms unless a plugin for the concrete type is registered.
func (r *Registry) ByValue(v any) (Processor, error) {
	if v == nil {
		return r.ByTag(TagNone)
	}

	t := reflect.TypeOf(v)
	if p, ok := r.byType[t]; ok {
		return p, nil
	}

	switch t.Kind() {
	case reflect.Slice:
		return r.ByTag(TagList)
	case reflect.Array:
		return r.ByTag(TagTuple)
	case reflect.Map:
		return r.ByTag(TagDict)
	case reflect.Struct:
		return r.ByTag(TagRecord)
	case reflect.Pointer:
		if t.Elem().Kind() == reflect.Struct {
			return r.ByTag(TagRecord)
		}
	}

	return nil, &UnsupportedTypeError{Type: t.String()}
}

// ByTag resolves the processor claiming a schema type tag. Used during
// deserialization, when the original runtime type is gone.
func (r *Registry) ByTag(tag string) (Processor, error) {
	if p, ok := r.byTag[tag]; ok {
		return p, nil
	}
	return nil, &UnsupportedTypeError{Tag: tag}
}

// builtins returns the default processor set. Order matters only in that
// later entries would shadow earlier ones; all built-in claims are
// disjoint.
func builtins() []Processor {
	return []Processor{
		// Atomic values.
		boolProcessor(),
		stringProcessor(),
		noneProcessor{},
		bytesProcessor(),
		intProcessor[int](TagInt),
		intProcessor[int8](TagInt8),
		intProcessor[int16](TagInt16),
		intProcessor[int32](TagInt32),
		intProcessor[int64](TagInt64),
		uintProcessor[uint](TagUint),
		uintProcessor[uint8](TagUint8),
		uintProcessor[uint16](TagUint16),
		uintProcessor[uint32](TagUint32),
		uintProcessor[uint64](TagUint64),
		floatProcessor[float32](TagFloat32, 32),
		floatProcessor[float64](TagFloat64, 64),
		complexProcessor[complex64](TagComplex64, 64),
		complexProcessor[complex128](TagComplex128, 128),

		// Containers.
		&listProcessor{},
		&tupleProcessor{},
		&setProcessor{},
		&dictProcessor{},
		&recordProcessor{},

		// Tensors.
		NewTensorProcessor(
			reflect.TypeOf((*tensor.RawTensor)(nil)),
			TagTensor,
			rawTensorConverter{},
		),
	}
}

// recordType is the registered data type of the generic record processor.
var recordType = reflect.TypeOf((*structs.Record)(nil))
