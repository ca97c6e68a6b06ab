package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/safestruct/safestruct/internal/tensor"
)

// MmapReader provides memory-mapped access to safetensors files.
// Only the header is parsed up front; tensor bytes are sliced out of the
// mapping on demand via the OS page cache, with no copy.
type MmapReader struct {
	file       *os.File
	data       []byte // mmap'd region (read-only)
	size       int64
	header     header
	dataOffset int64
	closed     bool
}

// OpenMmap creates a memory-mapped reader for a safetensors file.
//
// Important: Always call Close() when done to unmap the file (use defer).
// Tensors returned by Tensor alias the mapping and must not be used after
// Close.
func OpenMmap(path string) (*MmapReader, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for loading
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	data, err := mmapFile(file, stat.Size())
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("mmap failed: %w", err)
	}

	r := &MmapReader{
		file: file,
		data: data,
		size: stat.Size(),
	}

	if err := r.parseHeader(); err != nil {
		_ = r.Close()
		return nil, err
	}

	return r, nil
}

// parseHeader reads and validates the safetensors header from the mapping.
func (r *MmapReader) parseHeader() error {
	if r.size < 8 {
		return fmt.Errorf("file too small: %d bytes", r.size)
	}

	headerSize := binary.LittleEndian.Uint64(r.data[:8])
	if headerSize > MaxHeaderSize {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrHeaderTooLarge, headerSize, MaxHeaderSize)
	}
	if int64(8+headerSize) > r.size {
		return fmt.Errorf("header size %d exceeds file size %d", headerSize, r.size)
	}

	if err := json.Unmarshal(r.data[8:8+headerSize], &r.header); err != nil {
		return fmt.Errorf("failed to parse header JSON: %w", err)
	}

	r.dataOffset = int64(8 + headerSize)
	return validateHeader(&r.header, r.size-r.dataOffset)
}

// Metadata returns the caller-visible metadata map.
func (r *MmapReader) Metadata() map[string]string {
	return callerMetadata(r.header.Metadata)
}

// TensorNames returns all tensor keys, sorted.
func (r *MmapReader) TensorNames() []string {
	names := make([]string, 0, len(r.header.Tensors))
	for name := range r.header.Tensors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TensorInfo returns header information for a specific tensor key.
func (r *MmapReader) TensorInfo(name string) (*TensorInfo, error) {
	info, ok := r.header.Tensors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTensorNotFound, name)
	}
	return &info, nil
}

// Tensor returns the named tensor backed directly by the mapping.
// The returned tensor is only valid until Close.
func (r *MmapReader) Tensor(name string) (*tensor.RawTensor, error) {
	info, err := r.TensorInfo(name)
	if err != nil {
		return nil, err
	}

	dtype, err := tensor.FromSafeTensors(info.DType)
	if err != nil {
		return nil, fmt.Errorf("tensor %s: %w", name, err)
	}
	shape := make(tensor.Shape, len(info.Shape))
	for i, dim := range info.Shape {
		shape[i] = int(dim)
	}

	start := r.dataOffset + info.DataOffsets[0]
	end := r.dataOffset + info.DataOffsets[1]
	raw, err := tensor.NewRawFromBytes(r.data[start:end:end], shape, dtype)
	if err != nil {
		return nil, fmt.Errorf("tensor %s: %w", name, err)
	}
	return raw, nil
}

// VerifyDigest checks the stored data-block digest, when present.
// Reading the whole mapping faults in every page, so this is as expensive
// as a full file read.
func (r *MmapReader) VerifyDigest() error {
	stored, ok := r.header.Metadata[DigestField]
	if !ok {
		return nil
	}
	return VerifyDigest(r.data[r.dataOffset:], stored)
}

// Close unmaps the file and closes it.
func (r *MmapReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	var firstErr error
	if r.data != nil {
		if err := munmapFile(r.data); err != nil {
			firstErr = err
		}
		r.data = nil
	}
	if r.file != nil {
		if err := r.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		r.file = nil
	}
	return firstErr
}
