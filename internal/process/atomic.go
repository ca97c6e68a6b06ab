package process

import (
	"encoding/base64"
	"fmt"
	"reflect"
	"strconv"

	"github.com/safestruct/safestruct/internal/schema"
)

// scalarProcessor handles one atomic type via a canonical string form.
type scalarProcessor[T any] struct {
	tag    string
	format func(T) string
	parse  func(string) (T, error)
}

func (p *scalarProcessor[T]) DataType() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func (p *scalarProcessor[T]) TypeTag() string {
	return p.tag
}

func (p *scalarProcessor[T]) Serialize(_ Context, v any) (*schema.Node, error) {
	val, ok := v.(T)
	if !ok {
		return nil, fmt.Errorf("%s processor received %T", p.tag, v)
	}
	return &schema.Node{Type: p.tag, Value: p.format(val)}, nil
}

func (p *scalarProcessor[T]) Deserialize(_ Context, n *schema.Node) (any, error) {
	val, err := p.parse(n.Value)
	if err != nil {
		return nil, &schema.CorruptDataError{
			Reason: fmt.Sprintf("malformed %s value %q", p.tag, n.Value),
			Err:    err,
		}
	}
	return val, nil
}

func boolProcessor() Processor {
	return &scalarProcessor[bool]{
		tag:    TagBool,
		format: strconv.FormatBool,
		parse:  strconv.ParseBool,
	}
}

func stringProcessor() Processor {
	return &scalarProcessor[string]{
		tag:    TagString,
		format: func(s string) string { return s },
		parse:  func(s string) (string, error) { return s, nil },
	}
}

func bytesProcessor() Processor {
	return &scalarProcessor[[]byte]{
		tag:    TagBytes,
		format: base64.StdEncoding.EncodeToString,
		parse: func(s string) ([]byte, error) {
			return base64.StdEncoding.DecodeString(s)
		},
	}
}

// intProcessor builds a processor for one signed integer width.
// Canonical form: base-10 decimal.
func intProcessor[T ~int | ~int8 | ~int16 | ~int32 | ~int64](tag string) Processor {
	bits := int(reflect.TypeOf(T(0)).Size()) * 8
	return &scalarProcessor[T]{
		tag: tag,
		format: func(v T) string {
			return strconv.FormatInt(int64(v), 10)
		},
		parse: func(s string) (T, error) {
			v, err := strconv.ParseInt(s, 10, bits)
			return T(v), err
		},
	}
}

// uintProcessor builds a processor for one unsigned integer width.
// Canonical form: base-10 decimal.
func uintProcessor[T ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64](tag string) Processor {
	bits := int(reflect.TypeOf(T(0)).Size()) * 8
	return &scalarProcessor[T]{
		tag: tag,
		format: func(v T) string {
			return strconv.FormatUint(uint64(v), 10)
		},
		parse: func(s string) (T, error) {
			v, err := strconv.ParseUint(s, 10, bits)
			return T(v), err
		},
	}
}

// floatProcessor builds a processor for one float width.
// Canonical form: shortest decimal that round-trips ('g', precision -1).
func floatProcessor[T ~float32 | ~float64](tag string, bits int) Processor {
	return &scalarProcessor[T]{
		tag: tag,
		format: func(v T) string {
			return strconv.FormatFloat(float64(v), 'g', -1, bits)
		},
		parse: func(s string) (T, error) {
			v, err := strconv.ParseFloat(s, bits)
			return T(v), err
		},
	}
}

// complexProcessor builds a processor for one complex width.
// Canonical form: strconv's "(re+imi)" with shortest round-trip parts.
func complexProcessor[T ~complex64 | ~complex128](tag string, bits int) Processor {
	return &scalarProcessor[T]{
		tag: tag,
		format: func(v T) string {
			return strconv.FormatComplex(complex128(v), 'g', -1, bits)
		},
		parse: func(s string) (T, error) {
			v, err := strconv.ParseComplex(s, bits)
			return T(v), err
		},
	}
}

// noneProcessor handles the nil value. It is resolved specially by the
// registry: nil has no reflect.Type to key on.
type noneProcessor struct{}

func (noneProcessor) DataType() reflect.Type { return nil }

func (noneProcessor) TypeTag() string { return TagNone }

func (noneProcessor) Serialize(_ Context, v any) (*schema.Node, error) {
	if v != nil {
		return nil, fmt.Errorf("none processor received %T", v)
	}
	return &schema.Node{Type: TagNone}, nil
}

func (noneProcessor) Deserialize(_ Context, _ *schema.Node) (any, error) {
	return nil, nil
}
