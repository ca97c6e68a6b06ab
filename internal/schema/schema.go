// Package schema defines the schema tree: the string-safe description of a
// serialized value's structure, stored as JSON inside the safetensors
// metadata string. A schema tree lives only for the duration of one save or
// load; the persisted form is the encoded string plus the tensor store's
// byte buffers.
package schema

import (
	"encoding/json"
	"fmt"
)

// Metadata keys reserved by safestruct inside the safetensors
// __metadata__ map. Caller-supplied metadata must not use these.
const (
	SchemaField  = "_safestruct_schema_"
	VersionField = "_safestruct_schema_version_"
	Version      = "1.0.0"
)

// Node is one node of the schema tree. Exactly one payload field group is
// populated, depending on the tag:
//
//   - atomic values: Value holds the canonical string form
//   - tensors: Value holds the tensor key into the store
//   - sequence containers (list, tuple, set): Items holds the children
//   - keyed containers (dict, record): Entries holds named children
//
// Extra is an optional flat string side-channel (original tensor dtype,
// record type identity, plugin data) forwarded verbatim to the processor
// on deserialization.
type Node struct {
	Type    string            `json:"type"`
	Value   string            `json:"value,omitempty"`
	Items   []*Node           `json:"items,omitempty"`
	Entries []Entry           `json:"entries,omitempty"`
	Extra   map[string]string `json:"extra,omitempty"`
}

// Entry is one named child of a keyed container. Name is the canonical
// string form of the key. For dict containers whose keys are values in
// their own right (ints, tuples, ...), Key holds the key's own schema;
// record fields leave Key nil.
type Entry struct {
	Name string `json:"name"`
	Key  *Node  `json:"key,omitempty"`
	Node *Node  `json:"node"`
}

// SetExtra records a side-channel entry, allocating the map on first use.
func (n *Node) SetExtra(key, value string) {
	if n.Extra == nil {
		n.Extra = make(map[string]string)
	}
	n.Extra[key] = value
}

// Encode serializes the schema tree to its canonical JSON string form.
func Encode(root *Node) (string, error) {
	data, err := json.Marshal(root)
	if err != nil {
		return "", fmt.Errorf("failed to encode schema: %w", err)
	}
	return string(data), nil
}

// Decode parses the canonical JSON string form back into a schema tree.
func Decode(s string) (*Node, error) {
	var root Node
	if err := json.Unmarshal([]byte(s), &root); err != nil {
		return nil, &CorruptDataError{Reason: "invalid schema JSON", Err: err}
	}
	if err := validate(&root); err != nil {
		return nil, err
	}
	return &root, nil
}

// validate walks the decoded tree rejecting structurally invalid nodes.
func validate(n *Node) error {
	if n == nil {
		return &CorruptDataError{Reason: "missing schema node"}
	}
	if n.Type == "" {
		return &CorruptDataError{Reason: "schema node without type tag"}
	}
	for _, child := range n.Items {
		if err := validate(child); err != nil {
			return err
		}
	}
	for _, e := range n.Entries {
		if err := validate(e.Node); err != nil {
			return err
		}
		if e.Key != nil {
			if err := validate(e.Key); err != nil {
				return err
			}
		}
	}
	return nil
}
