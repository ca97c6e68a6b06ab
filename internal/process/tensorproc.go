package process

import (
	"fmt"
	"reflect"

	"github.com/safestruct/safestruct/internal/schema"
	"github.com/safestruct/safestruct/internal/tensor"
)

// TensorConverter adapts one framework's tensor type to the store's host
// representation. Implementations supply the two operations every tensor
// framework must support: moving data to host-addressable memory and
// converting it to a raw contiguous array.
//
// ToHost may block for the full transfer; there is no timeout or
// cancellation at this level.
type TensorConverter interface {
	// ToHost moves the tensor's data to host memory. A no-op for
	// already host-resident tensors.
	ToHost(v any) (any, error)

	// ToRaw converts a host-resident tensor to the store representation.
	ToRaw(host any) (*tensor.RawTensor, error)

	// FromRaw reconstructs the framework tensor from the stored array.
	// extra carries the node's side-channel data, including the pre-cast
	// dtype under ExtraDType when float normalization was applied.
	FromRaw(raw *tensor.RawTensor, extra map[string]string) (any, error)
}

// NewTensorProcessor builds a Processor from a TensorConverter. The
// processor performs the engine-side composition: host transfer, raw
// conversion, float32 normalization (recording the original dtype in the
// node's extra), and key allocation against the document's store.
func NewTensorProcessor(dataType reflect.Type, tag string, conv TensorConverter) Processor {
	return &tensorProcessor{dataType: dataType, tag: tag, conv: conv}
}

type tensorProcessor struct {
	dataType reflect.Type
	tag      string
	conv     TensorConverter
}

func (p *tensorProcessor) DataType() reflect.Type { return p.dataType }

func (p *tensorProcessor) TypeTag() string { return p.tag }

func (p *tensorProcessor) Serialize(ctx Context, v any) (*schema.Node, error) {
	host, err := p.conv.ToHost(v)
	if err != nil {
		return nil, fmt.Errorf("host transfer: %w", err)
	}
	raw, err := p.conv.ToRaw(host)
	if err != nil {
		return nil, fmt.Errorf("array conversion: %w", err)
	}

	node := &schema.Node{Type: p.tag}

	// Float tensors are normalized to float32 for storage. The original
	// width is recorded so loading can cast back; the round trip is lossy
	// beyond float32 precision.
	if raw.DType().IsFloat() && raw.DType() != tensor.Float32 {
		node.SetExtra(ExtraDType, raw.DType().String())
		raw, err = raw.Cast(tensor.Float32)
		if err != nil {
			return nil, fmt.Errorf("float normalization: %w", err)
		}
	}

	node.Value = ctx.AddTensor(raw)
	return node, nil
}

func (p *tensorProcessor) Deserialize(ctx Context, n *schema.Node) (any, error) {
	raw, err := ctx.Tensor(n.Value)
	if err != nil {
		return nil, err
	}
	return p.conv.FromRaw(raw, n.Extra)
}

// rawTensorConverter is the built-in converter for the store's own
// *tensor.RawTensor type.
type rawTensorConverter struct{}

func (rawTensorConverter) ToHost(v any) (any, error) {
	raw, ok := v.(*tensor.RawTensor)
	if !ok {
		return nil, fmt.Errorf("tensor processor received %T", v)
	}
	return raw.Host()
}

func (rawTensorConverter) ToRaw(host any) (*tensor.RawTensor, error) {
	return host.(*tensor.RawTensor), nil
}

func (rawTensorConverter) FromRaw(raw *tensor.RawTensor, extra map[string]string) (any, error) {
	dtypeName, ok := extra[ExtraDType]
	if !ok {
		return raw, nil
	}

	// Best-effort cast back to the pre-normalization width.
	dtype, err := tensor.ParseDataType(dtypeName)
	if err != nil {
		return nil, &schema.CorruptDataError{
			Reason: fmt.Sprintf("unknown original dtype %q", dtypeName),
			Err:    err,
		}
	}
	restored, err := raw.Cast(dtype)
	if err != nil {
		return raw, nil
	}
	return restored, nil
}
