package serialize

import (
	"bytes"
	"errors"
	"path/filepath"
	"reflect"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safestruct/safestruct/internal/process"
	"github.com/safestruct/safestruct/internal/schema"
	"github.com/safestruct/safestruct/internal/store"
	"github.com/safestruct/safestruct/internal/structs"
	"github.com/safestruct/safestruct/internal/tensor"
)

// saveLoad round-trips a value through an in-memory document.
func saveLoad(t *testing.T, v any, plugins ...process.Processor) any {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, New(plugins...).SaveTo(v, &buf, nil))

	out, _, err := New(plugins...).LoadFrom(&buf)
	require.NoError(t, err)
	return out
}

func TestRoundTripAtomics(t *testing.T) {
	values := []any{
		nil,
		true,
		"text",
		[]byte{0, 1, 2},
		-42,
		uint32(7),
		3.5,
		complex(1, -1),
	}
	for _, v := range values {
		assert.Equal(t, v, saveLoad(t, v), "value %v", v)
	}
}

func TestRoundTripNestedContainers(t *testing.T) {
	v := map[string]any{
		"a": []any{1, 2, structs.Tuple{3, "x"}},
		"b": structs.NewSet(4, 5),
	}

	out := saveLoad(t, v)
	m, ok := out.(map[string]any)
	require.True(t, ok, "expected map[string]any, got %T", out)

	list, ok := m["a"].([]any)
	require.True(t, ok, "list stays a list, got %T", m["a"])
	assert.Equal(t, 1, list[0])
	assert.Equal(t, 2, list[1])
	assert.Equal(t, structs.Tuple{3, "x"}, list[2], "tuple stays a tuple")

	set, ok := m["b"].(structs.Set)
	require.True(t, ok, "set stays a set, got %T", m["b"])
	assert.True(t, set.Contains(4))
	assert.True(t, set.Contains(5))
	assert.Len(t, set, 2)
}

func TestRoundTripNonStringMapKeys(t *testing.T) {
	v := map[int]string{1: "one", 2: "two"}

	out := saveLoad(t, v)
	m, ok := out.(map[any]any)
	require.True(t, ok, "expected map[any]any, got %T", out)
	assert.Equal(t, "one", m[1])
	assert.Equal(t, "two", m[2])
}

func TestTypedSliceBecomesGenericList(t *testing.T) {
	out := saveLoad(t, []int{1, 2, 3})
	assert.Equal(t, []any{1, 2, 3}, out)
}

func TestRoundTripTensor(t *testing.T) {
	raw, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2})
	require.NoError(t, err)

	out := saveLoad(t, raw)
	loaded, ok := out.(*tensor.RawTensor)
	require.True(t, ok, "expected *tensor.RawTensor, got %T", out)
	assert.True(t, raw.Equal(loaded))
}

func TestFloatNormalization(t *testing.T) {
	raw, err := tensor.FromSlice([]float64{1.5, -2.25}, tensor.Shape{2})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, New().SaveTo(raw, &buf, nil))

	// The stored tensor must be float32 with the original dtype in extra.
	f, err := store.ReadFrom(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Contains(t, f.Tensors, "0")
	assert.Equal(t, tensor.Float32, f.Tensors["0"].DType())

	root, err := schema.Decode(f.Metadata[schema.SchemaField])
	require.NoError(t, err)
	assert.Equal(t, "float64", root.Extra[process.ExtraDType])

	// Loading restores the original width, lossy beyond float32 precision.
	out, _, err := New().LoadFrom(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	loaded := out.(*tensor.RawTensor)
	assert.Equal(t, tensor.Float64, loaded.DType())
	assert.Equal(t, []float64{1.5, -2.25}, loaded.AsFloat64())
}

func TestTensorKeyUniqueness(t *testing.T) {
	const n = 5
	list := make([]any, n)
	for i := range list {
		raw, err := tensor.FromSlice([]float32{float32(i)}, tensor.Shape{1})
		require.NoError(t, err)
		list[i] = raw
	}

	var buf bytes.Buffer
	require.NoError(t, New().SaveTo(list, &buf, nil))

	f, err := store.ReadFrom(&buf)
	require.NoError(t, err)
	require.Len(t, f.Tensors, n)

	// Every key referenced by the schema exists in the store.
	root, err := schema.Decode(f.Metadata[schema.SchemaField])
	require.NoError(t, err)
	require.Len(t, root.Items, n)
	seen := make(map[string]bool)
	for _, item := range root.Items {
		assert.False(t, seen[item.Value], "duplicate tensor key %q", item.Value)
		seen[item.Value] = true
		assert.Contains(t, f.Tensors, item.Value)
	}
}

func TestRecordFallback(t *testing.T) {
	type config struct {
		Name    string
		Epochs  int
		LR      float64
		private bool //nolint:unused // unexported fields must be skipped
	}

	out := saveLoad(t, config{Name: "run1", Epochs: 10, LR: 0.001})
	rec, ok := out.(*structs.Record)
	require.True(t, ok, "expected *structs.Record, got %T", out)

	assert.Equal(t, []string{"Name", "Epochs", "LR"}, rec.Fields())
	name, _ := rec.Get("Name")
	assert.Equal(t, "run1", name)
	epochs, _ := rec.Get("Epochs")
	assert.Equal(t, 10, epochs)
	lr, _ := rec.Get("LR")
	assert.Equal(t, 0.001, lr)
	assert.Contains(t, rec.TypeName(), "config")
}

func TestRecordRoundTripsAsRecord(t *testing.T) {
	rec := structs.NewRecord("mytype")
	rec.Set("A", 1)
	rec.Set("B", "two")

	out := saveLoad(t, rec)
	loaded, ok := out.(*structs.Record)
	require.True(t, ok)
	assert.Equal(t, "mytype", loaded.TypeName())
	assert.Equal(t, rec.Fields(), loaded.Fields())
}

func TestUnsupportedTypeNamesType(t *testing.T) {
	var buf bytes.Buffer
	err := New().SaveTo(make(chan int), &buf, nil)
	require.Error(t, err)

	var unsupported *process.UnsupportedTypeError
	require.True(t, errors.As(err, &unsupported))
	assert.Contains(t, err.Error(), "chan int")
}

// timestamp is a deliberately unknown-to-builtins type for plugin tests.
type timestamp struct {
	unix int64
}

type timestampProcessor struct{}

func (*timestampProcessor) DataType() reflect.Type { return reflect.TypeOf(timestamp{}) }
func (*timestampProcessor) TypeTag() string        { return "test.timestamp" }

func (*timestampProcessor) Serialize(_ process.Context, v any) (*schema.Node, error) {
	ts := v.(timestamp)
	return &schema.Node{Type: "test.timestamp", Value: strconv.FormatInt(ts.unix, 10)}, nil
}

func (*timestampProcessor) Deserialize(_ process.Context, n *schema.Node) (any, error) {
	unix, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return nil, err
	}
	return timestamp{unix: unix}, nil
}

// extraTimestampProcessor adds a side-channel field on top of the plain
// timestamp processor.
type extraTimestampProcessor struct {
	timestampProcessor
}

func (*extraTimestampProcessor) SerializeExtra(_ process.Context, _ any) (map[string]string, error) {
	return map[string]string{"zone": "UTC"}, nil
}

func TestExtraSerializerMergesIntoNode(t *testing.T) {
	s := New(&extraTimestampProcessor{})
	node, err := s.Serialize(timestamp{unix: 12})
	require.NoError(t, err)
	assert.Equal(t, "UTC", node.Extra["zone"])

	out, err := s.Deserialize(node)
	require.NoError(t, err)
	assert.Equal(t, timestamp{unix: 12}, out)
}

func TestPluginRegistrationEnablesType(t *testing.T) {
	v := []any{timestamp{unix: 1700000000}}

	out := saveLoad(t, v, &timestampProcessor{})
	list := out.([]any)
	assert.Equal(t, timestamp{unix: 1700000000}, list[0])
}

func TestPluginSupersedesRecordFallback(t *testing.T) {
	// Without a plugin, timestamp round-trips as a generic record with no
	// exported fields. With one, the concrete type survives.
	out := saveLoad(t, timestamp{unix: 5})
	_, isRecord := out.(*structs.Record)
	assert.True(t, isRecord)

	out = saveLoad(t, timestamp{unix: 5}, &timestampProcessor{})
	assert.Equal(t, timestamp{unix: 5}, out)
}

func TestReserializationIsIdempotent(t *testing.T) {
	type inner struct {
		Tag string
	}
	v := map[string]any{
		"list":   []any{1, "two", 3.5},
		"tuple":  structs.Tuple{true, nil},
		"set":    structs.NewSet("a", "b", "c"),
		"record": inner{Tag: "t"},
	}

	first := New()
	node1, err := first.Serialize(v)
	require.NoError(t, err)
	encoded1, err := schema.Encode(node1)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, New().SaveTo(v, &buf, nil))
	reloaded, _, err := New().LoadFrom(&buf)
	require.NoError(t, err)

	second := New()
	node2, err := second.Serialize(reloaded)
	require.NoError(t, err)
	encoded2, err := schema.Encode(node2)
	require.NoError(t, err)

	assert.Equal(t, encoded1, encoded2)
}

func TestRepeatedSaveWithMapTensorsIsDeterministic(t *testing.T) {
	v := make(map[string]any)
	for _, name := range []string{"a", "b", "c", "d"} {
		raw, err := tensor.FromSlice([]float32{float32(name[0])}, tensor.Shape{1})
		require.NoError(t, err)
		v[name] = raw
	}

	var first bytes.Buffer
	require.NoError(t, New().SaveTo(v, &first, nil))
	for i := 0; i < 20; i++ {
		var buf bytes.Buffer
		require.NoError(t, New().SaveTo(v, &buf, nil))
		require.Equal(t, first.Bytes(), buf.Bytes(), "save %d differs", i)
	}

	// Each key must get its own tensor back, not a sibling's.
	out, _, err := New().LoadFrom(&first)
	require.NoError(t, err)
	m := out.(map[string]any)
	for _, name := range []string{"a", "b", "c", "d"} {
		loaded := m[name].(*tensor.RawTensor)
		assert.Equal(t, []float32{float32(name[0])}, loaded.AsFloat32(), "key %s", name)
	}
}

func TestRepeatedSaveIsDeterministic(t *testing.T) {
	v := map[string]any{
		"set": structs.NewSet(3, 1, 2),
		"map": map[string]any{"z": 1, "a": 2, "m": 3},
	}

	var buf1, buf2 bytes.Buffer
	require.NoError(t, New().SaveTo(v, &buf1, nil))
	require.NoError(t, New().SaveTo(v, &buf2, nil))
	assert.Equal(t, buf1.Bytes(), buf2.Bytes())
}

func TestCallerMetadataRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	meta := map[string]string{"experiment": "7", "owner": "me"}
	require.NoError(t, New().SaveTo([]any{1}, &buf, meta))

	_, loaded, err := New().LoadFrom(&buf)
	require.NoError(t, err)
	assert.Equal(t, meta, loaded)
}

func TestReservedMetadataKeyRejected(t *testing.T) {
	var buf bytes.Buffer
	err := New().SaveTo(1, &buf, map[string]string{schema.SchemaField: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reserved")
}

func TestMissingTensorKeyIsCorruptData(t *testing.T) {
	s := New()
	_, err := s.Deserialize(&schema.Node{Type: process.TagTensor, Value: "9"})
	require.Error(t, err)

	var corrupt *schema.CorruptDataError
	require.True(t, errors.As(err, &corrupt))
	assert.Contains(t, err.Error(), `"9"`)
}

func TestUnknownTagIsUnsupported(t *testing.T) {
	// A reader without the plugin that wrote a tag must fail hard.
	s := New()
	_, err := s.Deserialize(&schema.Node{Type: "vendor.widget"})
	require.Error(t, err)

	var unsupported *process.UnsupportedTypeError
	require.True(t, errors.As(err, &unsupported))
	assert.Contains(t, err.Error(), "vendor.widget")
}

func TestErrorCarriesPath(t *testing.T) {
	v := map[string]any{
		"outer": []any{0, make(chan int)},
	}

	var buf bytes.Buffer
	err := New().SaveTo(v, &buf, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key outer")
	assert.Contains(t, err.Error(), "index 1")
}

func TestEmptyDocumentGetsPlaceholderTensor(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New().SaveTo("no tensors here", &buf, nil))

	f, err := store.ReadFrom(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Contains(t, f.Tensors, "null")

	out, _, err := New().LoadFrom(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "no tensors here", out)
}

func TestPlainSafetensorsFileRejected(t *testing.T) {
	raw, err := tensor.FromSlice([]float32{1}, tensor.Shape{1})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, store.WriteTo(&buf, map[string]*tensor.RawTensor{"w": raw}, nil))

	_, _, err = New().LoadFrom(&buf)
	require.Error(t, err)

	var corrupt *schema.CorruptDataError
	require.True(t, errors.As(err, &corrupt))
	assert.Contains(t, err.Error(), "schema metadata missing")
}

func TestSaveLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.safetensors")
	raw, err := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2})
	require.NoError(t, err)
	v := map[string]any{"weights": raw, "step": 100}

	require.NoError(t, New().Save(v, path, map[string]string{"run": "a"}))

	out, meta, err := New().Load(path)
	require.NoError(t, err)
	assert.Equal(t, "a", meta["run"])

	m := out.(map[string]any)
	assert.Equal(t, 100, m["step"])
	assert.True(t, raw.Equal(m["weights"].(*tensor.RawTensor)))
}
