package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/safestruct/safestruct/internal/tensor"
)

// File is a fully parsed safetensors document: the tensor mapping plus the
// metadata string map. Tensor data is copied out of the source; use
// MmapReader for zero-copy access to large files.
type File struct {
	Tensors  map[string]*tensor.RawTensor
	Metadata map[string]string
}

// ReadFile reads and validates a safetensors file from path.
func ReadFile(path string) (*File, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for loading
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		_ = f.Close() // Best effort close
	}()

	return ReadFrom(f)
}

// ReadFrom reads and validates a safetensors document from an io.Reader.
func ReadFrom(r io.Reader) (*File, error) {
	var headerSize uint64
	if err := binary.Read(r, binary.LittleEndian, &headerSize); err != nil {
		return nil, fmt.Errorf("failed to read header size: %w", err)
	}

	if headerSize > MaxHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrHeaderTooLarge, headerSize, MaxHeaderSize)
	}

	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var head header
	if err := json.Unmarshal(headerBytes, &head); err != nil {
		return nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}

	dataBlock, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read tensor data: %w", err)
	}

	if err := validateHeader(&head, int64(len(dataBlock))); err != nil {
		return nil, err
	}

	if stored, ok := head.Metadata[DigestField]; ok {
		if err := VerifyDigest(dataBlock, stored); err != nil {
			return nil, err
		}
	}

	tensors := make(map[string]*tensor.RawTensor, len(head.Tensors))
	for name, info := range head.Tensors {
		raw, err := tensorFromInfo(name, info, dataBlock)
		if err != nil {
			return nil, err
		}
		tensors[name] = raw
	}

	return &File{
		Tensors:  tensors,
		Metadata: callerMetadata(head.Metadata),
	}, nil
}

// tensorFromInfo materializes one tensor from the data block, copying its
// bytes out of the shared buffer.
func tensorFromInfo(name string, info TensorInfo, dataBlock []byte) (*tensor.RawTensor, error) {
	dtype, err := tensor.FromSafeTensors(info.DType)
	if err != nil {
		return nil, fmt.Errorf("tensor %s: %w", name, err)
	}

	shape := make(tensor.Shape, len(info.Shape))
	for i, dim := range info.Shape {
		shape[i] = int(dim)
	}

	start, end := info.DataOffsets[0], info.DataOffsets[1]
	data := make([]byte, end-start)
	copy(data, dataBlock[start:end])

	raw, err := tensor.NewRawFromBytes(data, shape, dtype)
	if err != nil {
		return nil, fmt.Errorf("tensor %s: %w", name, err)
	}
	return raw, nil
}

// callerMetadata strips store-internal keys from the metadata map.
func callerMetadata(meta map[string]string) map[string]string {
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		if k == DigestField {
			continue
		}
		out[k] = v
	}
	return out
}
