// Package serialize implements the serialization engine: the recursive
// walk that dispatches each value to its processor, accumulates tensor
// payloads under a flat document-unique key space, and assembles or parses
// the schema document against the tensor store.
package serialize

import (
	"fmt"
	"io"
	"strconv"

	"github.com/safestruct/safestruct/internal/process"
	"github.com/safestruct/safestruct/internal/schema"
	"github.com/safestruct/safestruct/internal/store"
	"github.com/safestruct/safestruct/internal/tensor"
)

// nullTensorKey names the placeholder tensor written when a document holds
// no tensors at all; the safetensors format requires at least one.
const nullTensorKey = "null"

// Serializer drives one document at a time: a single synchronous
// depth-first traversal owns the schema tree and tensor key namespace for
// the duration of each Save or Load call. A Serializer must not be used
// from multiple goroutines concurrently; separate Serializer values
// sharing nothing are safe.
type Serializer struct {
	registry *process.Registry
	tensors  map[string]*tensor.RawTensor
	nextKey  int
}

// New creates a Serializer with the built-in processors plus the given
// plugins. Later plugins shadow earlier claims on the same type or tag.
func New(plugins ...process.Processor) *Serializer {
	return &Serializer{
		registry: process.NewRegistry(plugins...),
		tensors:  make(map[string]*tensor.RawTensor),
	}
}

// reset clears per-document state before a new traversal.
func (s *Serializer) reset() {
	s.tensors = make(map[string]*tensor.RawTensor)
	s.nextKey = 0
}

// Serialize dispatches a value to its processor and returns the completed
// schema node. It implements process.Context so container processors can
// recurse through the engine rather than inlining child-type logic.
func (s *Serializer) Serialize(v any) (*schema.Node, error) {
	p, err := s.registry.ByValue(v)
	if err != nil {
		return nil, err
	}

	node, err := p.Serialize(s, v)
	if err != nil {
		return nil, err
	}

	if es, ok := p.(process.ExtraSerializer); ok {
		extra, err := es.SerializeExtra(s, v)
		if err != nil {
			return nil, fmt.Errorf("extra for tag %s: %w", p.TypeTag(), err)
		}
		for k, val := range extra {
			node.SetExtra(k, val)
		}
	}

	return node, nil
}

// Deserialize resolves a node's processor by type tag and reconstructs the
// value. The tag, not the runtime type, drives dispatch: the original type
// is gone at load time.
func (s *Serializer) Deserialize(n *schema.Node) (any, error) {
	p, err := s.registry.ByTag(n.Type)
	if err != nil {
		return nil, err
	}
	return p.Deserialize(s, n)
}

// AddTensor stores a host tensor under the next document-unique key.
// Keys are a monotonically increasing decimal counter scoped to one
// traversal, so no two tensors in a document collide.
func (s *Serializer) AddTensor(raw *tensor.RawTensor) string {
	key := strconv.Itoa(s.nextKey)
	s.nextKey++
	s.tensors[key] = raw
	return key
}

// Tensor fetches a tensor by key from the loaded document.
func (s *Serializer) Tensor(key string) (*tensor.RawTensor, error) {
	raw, ok := s.tensors[key]
	if !ok {
		return nil, &schema.CorruptDataError{
			Reason: fmt.Sprintf("schema references tensor key %q absent from the store", key),
		}
	}
	return raw, nil
}

// Save serializes data and writes the document to path. metadata is
// caller-supplied flat string metadata stored alongside the schema; keys
// reserved by safestruct are rejected.
func (s *Serializer) Save(data any, path string, metadata map[string]string) error {
	tensors, meta, err := s.prepare(data, metadata)
	if err != nil {
		return err
	}
	return store.WriteFile(path, tensors, meta)
}

// SaveTo serializes data and writes the document to an io.Writer.
func (s *Serializer) SaveTo(data any, w io.Writer, metadata map[string]string) error {
	tensors, meta, err := s.prepare(data, metadata)
	if err != nil {
		return err
	}
	return store.WriteTo(w, tensors, meta)
}

// prepare runs the serialize traversal and assembles the store inputs.
func (s *Serializer) prepare(data any, metadata map[string]string) (map[string]*tensor.RawTensor, map[string]string, error) {
	for k := range metadata {
		if k == schema.SchemaField || k == schema.VersionField || k == store.DigestField {
			return nil, nil, fmt.Errorf("metadata key %q is reserved", k)
		}
	}

	s.reset()
	root, err := s.Serialize(data)
	if err != nil {
		return nil, nil, err
	}

	encoded, err := schema.Encode(root)
	if err != nil {
		return nil, nil, err
	}

	meta := make(map[string]string, len(metadata)+2)
	for k, v := range metadata {
		meta[k] = v
	}
	meta[schema.SchemaField] = encoded
	meta[schema.VersionField] = schema.Version

	if len(s.tensors) == 0 {
		// The container requires at least one tensor; write a placeholder
		// that no schema node references.
		null, err := tensor.FromSlice([]int64{0}, tensor.Shape{1})
		if err != nil {
			return nil, nil, err
		}
		s.tensors[nullTensorKey] = null
	}

	return s.tensors, meta, nil
}

// Load reads the document at path and reconstructs the root value,
// returning it together with the caller metadata saved alongside.
func (s *Serializer) Load(path string) (any, map[string]string, error) {
	f, err := store.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return s.load(f)
}

// LoadFrom reads a document from an io.Reader.
func (s *Serializer) LoadFrom(r io.Reader) (any, map[string]string, error) {
	f, err := store.ReadFrom(r)
	if err != nil {
		return nil, nil, err
	}
	return s.load(f)
}

func (s *Serializer) load(f *store.File) (any, map[string]string, error) {
	encoded, ok := f.Metadata[schema.SchemaField]
	if !ok {
		return nil, nil, &schema.CorruptDataError{
			Reason: "not a safestruct document: schema metadata missing",
		}
	}

	root, err := schema.Decode(encoded)
	if err != nil {
		return nil, nil, err
	}

	s.reset()
	s.tensors = f.Tensors

	value, err := s.Deserialize(root)
	if err != nil {
		return nil, nil, err
	}

	meta := make(map[string]string, len(f.Metadata))
	for k, v := range f.Metadata {
		if k == schema.SchemaField || k == schema.VersionField {
			continue
		}
		meta[k] = v
	}
	return value, meta, nil
}
