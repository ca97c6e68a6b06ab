package process

import (
	"fmt"
	"reflect"

	"github.com/safestruct/safestruct/internal/schema"
	"github.com/safestruct/safestruct/internal/structs"
)

// recordProcessor handles record-like values: *structs.Record directly,
// and any struct or pointer-to-struct through the registry's kind
// fallback. Serialization captures exported field names, values and the
// struct's type identity; reconstruction yields a generic *structs.Record
// so the original type definition is not needed at load time. A plugin
// registered for the concrete struct type supersedes this path entirely.
type recordProcessor struct{}

func (*recordProcessor) DataType() reflect.Type { return recordType }

func (*recordProcessor) TypeTag() string { return TagRecord }

func (*recordProcessor) Serialize(ctx Context, v any) (*schema.Node, error) {
	if rec, ok := v.(*structs.Record); ok {
		return serializeRecord(ctx, rec)
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return &schema.Node{Type: TagNone}, nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("record processor received %T", v)
	}
	return serializeStruct(ctx, rv)
}

func serializeRecord(ctx Context, rec *structs.Record) (*schema.Node, error) {
	node := &schema.Node{Type: TagRecord}
	if rec.TypeName() != "" {
		node.SetExtra(ExtraRecordType, rec.TypeName())
	}
	for _, name := range rec.Fields() {
		value, _ := rec.Get(name)
		child, err := ctx.Serialize(value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		node.Entries = append(node.Entries, schema.Entry{Name: name, Node: child})
	}
	return node, nil
}

func serializeStruct(ctx Context, rv reflect.Value) (*schema.Node, error) {
	t := rv.Type()
	node := &schema.Node{Type: TagRecord}
	node.SetExtra(ExtraRecordType, t.String())

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		child, err := ctx.Serialize(rv.Field(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}
		node.Entries = append(node.Entries, schema.Entry{Name: field.Name, Node: child})
	}
	return node, nil
}

func (*recordProcessor) Deserialize(ctx Context, n *schema.Node) (any, error) {
	rec := structs.NewRecord(n.Extra[ExtraRecordType])
	for _, e := range n.Entries {
		value, err := ctx.Deserialize(e.Node)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", e.Name, err)
		}
		rec.Set(e.Name, value)
	}
	return rec, nil
}
