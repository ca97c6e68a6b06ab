// Package structs defines the container kinds the serialization engine
// supports but Go has no native type for: fixed-arity tuples, unordered
// sets, and generic keyed records (the fallback representation for struct
// values whose concrete type is unknown at load time).
package structs

// Tuple is a fixed-arity heterogeneous sequence. It serializes with its
// arity and order preserved, distinct from a plain slice.
type Tuple []any

// Set is an unordered collection of comparable values. Reconstruction
// preserves membership, not order; serialization uses a canonical order so
// repeated saves of the same set produce identical bytes.
type Set map[any]struct{}

// NewSet builds a Set from the given elements.
func NewSet(elems ...any) Set {
	s := make(Set, len(elems))
	for _, e := range elems {
		s[e] = struct{}{}
	}
	return s
}

// Add inserts an element.
func (s Set) Add(elem any) {
	s[elem] = struct{}{}
}

// Contains reports membership.
func (s Set) Contains(elem any) bool {
	_, ok := s[elem]
	return ok
}

// Record is an ordered collection of named fields with attribute-style
// access. It stands in for struct values reconstructed without their
// original type definition: field names and values survive, the concrete
// Go type does not.
type Record struct {
	typeName string
	names    []string
	values   map[string]any
}

// NewRecord creates an empty record. typeName is the best-effort identity
// of the original struct type ("" when unknown).
func NewRecord(typeName string) *Record {
	return &Record{
		typeName: typeName,
		values:   make(map[string]any),
	}
}

// TypeName returns the recorded identity of the original struct type.
func (r *Record) TypeName() string {
	return r.typeName
}

// Set stores a field value, preserving first-set order for new names.
func (r *Record) Set(name string, value any) {
	if _, exists := r.values[name]; !exists {
		r.names = append(r.names, name)
	}
	r.values[name] = value
}

// Get returns a field value by name.
func (r *Record) Get(name string) (any, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Fields returns the field names in declaration order.
func (r *Record) Fields() []string {
	names := make([]string, len(r.names))
	copy(names, r.names)
	return names
}

// Len returns the number of fields.
func (r *Record) Len() int {
	return len(r.names)
}
