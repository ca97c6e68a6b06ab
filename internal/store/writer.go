package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/safestruct/safestruct/internal/tensor"
)

// Writer writes safetensors files.
type Writer struct {
	file   *os.File
	closed bool
}

// NewWriter creates a new safetensors file writer.
func NewWriter(path string) (*Writer, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for saving
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	return &Writer{
		file:   file,
		closed: false,
	}, nil
}

// WriteFile writes tensors and metadata to a safetensors file at path.
func WriteFile(path string, tensors map[string]*tensor.RawTensor, metadata map[string]string) error {
	writer, err := NewWriter(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = writer.Close() // Best effort close
	}()

	return writer.WriteAll(tensors, metadata)
}

// WriteAll writes the full tensor mapping plus metadata to the file.
// Tensors are written in alphabetical key order (safetensors convention),
// and a BLAKE3 digest of the data block is recorded in the metadata.
func (w *Writer) WriteAll(tensors map[string]*tensor.RawTensor, metadata map[string]string) error {
	if w.closed {
		return fmt.Errorf("writer is closed")
	}
	return WriteTo(w.file, tensors, metadata)
}

// Close closes the writer and the underlying file.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}

// WriteTo writes tensors and metadata to an io.Writer.
// This is useful for writing to buffers or network connections.
func WriteTo(writer io.Writer, tensors map[string]*tensor.RawTensor, metadata map[string]string) error {
	// Sort tensor keys alphabetically (safetensors convention).
	names := make([]string, 0, len(tensors))
	for name := range tensors {
		if err := ValidateTensorName(name); err != nil {
			return err
		}
		names = append(names, name)
	}
	sort.Strings(names)

	// Collect the data block up front; the digest covers all of it.
	var dataBlock []byte
	offsets := make(map[string][2]int64, len(tensors))
	var currentOffset int64
	for _, name := range names {
		raw := tensors[name]
		host, err := raw.Host()
		if err != nil {
			return fmt.Errorf("tensor %s: %w", name, err)
		}
		data := host.Data()
		size := int64(len(data))
		offsets[name] = [2]int64{currentOffset, currentOffset + size}
		dataBlock = append(dataBlock, data...)
		currentOffset += size
	}

	meta := make(map[string]string, len(metadata)+1)
	for k, v := range metadata {
		meta[k] = v
	}
	meta[DigestField] = ComputeDigest(dataBlock)

	// Build the flat header object: __metadata__ plus one entry per tensor.
	head := make(map[string]interface{}, len(tensors)+1)
	head[metadataKey] = meta
	for _, name := range names {
		raw := tensors[name]
		shape := raw.Shape()
		shapeInt64 := make([]int64, len(shape))
		for i, dim := range shape {
			shapeInt64[i] = int64(dim)
		}
		head[name] = TensorInfo{
			DType:       raw.DType().SafeTensors(),
			Shape:       shapeInt64,
			DataOffsets: offsets[name],
		}
	}

	headerJSON, err := json.Marshal(head)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	// Write header size (8 bytes, little-endian uint64).
	headerSize := uint64(len(headerJSON))
	if err := binary.Write(writer, binary.LittleEndian, headerSize); err != nil {
		return fmt.Errorf("failed to write header size: %w", err)
	}

	if _, err := writer.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	if _, err := writer.Write(dataBlock); err != nil {
		return fmt.Errorf("failed to write tensor data: %w", err)
	}

	return nil
}
