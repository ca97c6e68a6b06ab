package process

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/safestruct/safestruct/internal/schema"
	"github.com/safestruct/safestruct/internal/structs"
)

// listProcessor handles ordered sequences: []any and, through the
// registry's kind fallback, every other slice type. Order is preserved;
// reconstruction always yields []any.
type listProcessor struct{}

func (*listProcessor) DataType() reflect.Type { return reflect.TypeOf([]any(nil)) }

func (*listProcessor) TypeTag() string { return TagList }

func (*listProcessor) Serialize(ctx Context, v any) (*schema.Node, error) {
	items, err := serializeSequence(ctx, v)
	if err != nil {
		return nil, err
	}
	return &schema.Node{Type: TagList, Items: items}, nil
}

func (*listProcessor) Deserialize(ctx Context, n *schema.Node) (any, error) {
	out := make([]any, len(n.Items))
	for i, item := range n.Items {
		val, err := ctx.Deserialize(item)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", i, err)
		}
		out[i] = val
	}
	return out, nil
}

// tupleProcessor handles fixed-arity sequences: structs.Tuple and, through
// the kind fallback, Go arrays. Reconstruction yields structs.Tuple.
type tupleProcessor struct{}

func (*tupleProcessor) DataType() reflect.Type { return reflect.TypeOf(structs.Tuple(nil)) }

func (*tupleProcessor) TypeTag() string { return TagTuple }

func (*tupleProcessor) Serialize(ctx Context, v any) (*schema.Node, error) {
	items, err := serializeSequence(ctx, v)
	if err != nil {
		return nil, err
	}
	return &schema.Node{Type: TagTuple, Items: items}, nil
}

func (*tupleProcessor) Deserialize(ctx Context, n *schema.Node) (any, error) {
	out := make(structs.Tuple, len(n.Items))
	for i, item := range n.Items {
		val, err := ctx.Deserialize(item)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", i, err)
		}
		out[i] = val
	}
	return out, nil
}

// serializeSequence walks any slice or array value in order.
func serializeSequence(ctx Context, v any) ([]*schema.Node, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
	default:
		return nil, fmt.Errorf("sequence processor received %T", v)
	}

	items := make([]*schema.Node, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		node, err := ctx.Serialize(rv.Index(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", i, err)
		}
		items[i] = node
	}
	return items, nil
}

// setProcessor handles structs.Set. The reconstructed set has no order, but
// serialization sorts elements by their encoded node so repeated saves of
// the same set produce identical documents.
type setProcessor struct{}

func (*setProcessor) DataType() reflect.Type { return reflect.TypeOf(structs.Set(nil)) }

func (*setProcessor) TypeTag() string { return TagSet }

func (*setProcessor) Serialize(ctx Context, v any) (*schema.Node, error) {
	set, ok := v.(structs.Set)
	if !ok {
		return nil, fmt.Errorf("set processor received %T", v)
	}

	type encodedItem struct {
		node    *schema.Node
		encoded string
	}
	items := make([]encodedItem, 0, len(set))
	for elem := range set {
		node, err := ctx.Serialize(elem)
		if err != nil {
			return nil, fmt.Errorf("set element %v: %w", elem, err)
		}
		encoded, err := schema.Encode(node)
		if err != nil {
			return nil, err
		}
		items = append(items, encodedItem{node: node, encoded: encoded})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].encoded < items[j].encoded })

	nodes := make([]*schema.Node, len(items))
	for i, item := range items {
		nodes[i] = item.node
	}
	return &schema.Node{Type: TagSet, Items: nodes}, nil
}

func (*setProcessor) Deserialize(ctx Context, n *schema.Node) (any, error) {
	set := make(structs.Set, len(n.Items))
	for i, item := range n.Items {
		val, err := ctx.Deserialize(item)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		if val == nil || !reflect.TypeOf(val).Comparable() {
			return nil, &schema.CorruptDataError{
				Reason: fmt.Sprintf("set element of type %T is not a valid set member", val),
			}
		}
		set.Add(val)
	}
	return set, nil
}

// dictProcessor handles key-value mappings: map[string]any and, through the
// kind fallback, every other map type. Keys need not be strings; non-string
// keys carry their own schema in the entry. Entries are sorted by canonical
// key string so output is deterministic despite Go map iteration order.
//
// Reconstruction yields map[string]any when every key is a string and
// map[any]any otherwise.
type dictProcessor struct{}

func (*dictProcessor) DataType() reflect.Type { return reflect.TypeOf(map[string]any(nil)) }

func (*dictProcessor) TypeTag() string { return TagDict }

func (*dictProcessor) Serialize(ctx Context, v any) (*schema.Node, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map {
		return nil, fmt.Errorf("dict processor received %T", v)
	}

	// Entry order must be fixed before any value is serialized: value
	// serialization allocates tensor keys, and map iteration order is
	// random, so serializing values during iteration would hand out keys
	// in a different order on every save.
	type pending struct {
		entry schema.Entry
		value any
	}
	pendings := make([]pending, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		key := iter.Key().Interface()
		keyNode, err := ctx.Serialize(key)
		if err != nil {
			return nil, fmt.Errorf("key %v: %w", key, err)
		}

		entry := schema.Entry{}
		if keyNode.Type == TagString {
			// Plain string keys fold into the entry name.
			entry.Name = keyNode.Value
		} else {
			name, err := schema.Encode(keyNode)
			if err != nil {
				return nil, err
			}
			entry.Name = name
			entry.Key = keyNode
		}
		pendings = append(pendings, pending{entry: entry, value: iter.Value().Interface()})
	}
	sort.Slice(pendings, func(i, j int) bool { return pendings[i].entry.Name < pendings[j].entry.Name })

	entries := make([]schema.Entry, 0, len(pendings))
	for _, p := range pendings {
		valNode, err := ctx.Serialize(p.value)
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", p.entry.Name, err)
		}
		p.entry.Node = valNode
		entries = append(entries, p.entry)
	}

	return &schema.Node{Type: TagDict, Entries: entries}, nil
}

func (*dictProcessor) Deserialize(ctx Context, n *schema.Node) (any, error) {
	stringKeyed := true
	keys := make([]any, len(n.Entries))
	values := make([]any, len(n.Entries))

	for i, e := range n.Entries {
		if e.Key == nil {
			keys[i] = e.Name
		} else {
			key, err := ctx.Deserialize(e.Key)
			if err != nil {
				return nil, fmt.Errorf("key %s: %w", e.Name, err)
			}
			if key == nil || !reflect.TypeOf(key).Comparable() {
				return nil, &schema.CorruptDataError{
					Reason: fmt.Sprintf("map key of type %T is not a valid key", key),
					Path:   e.Name,
				}
			}
			keys[i] = key
			stringKeyed = false
		}

		val, err := ctx.Deserialize(e.Node)
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", e.Name, err)
		}
		values[i] = val
	}

	if stringKeyed {
		out := make(map[string]any, len(keys))
		for i, k := range keys {
			out[k.(string)] = values[i]
		}
		return out, nil
	}

	out := make(map[any]any, len(keys))
	for i, k := range keys {
		out[k] = values[i]
	}
	return out, nil
}
