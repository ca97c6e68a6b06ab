package store

import (
	"fmt"
	"sort"
	"strings"
)

// Validation limits for security and resource protection.
const (
	MaxHeaderSize    = 100 * 1024 * 1024 // 100MB - maximum header size
	MaxTensorCount   = 100_000           // Maximum number of tensors in a file
	MaxTensorNameLen = 4096              // Maximum tensor key length
)

// ValidateTensorName checks tensor keys for path traversal and other
// malicious patterns. Keys end up in error messages and on-disk headers,
// never in filesystem paths, but hostile names are rejected anyway.
func ValidateTensorName(name string) error {
	if len(name) > MaxTensorNameLen {
		return &ValidationError{
			Err:     ErrTensorNameTooLong,
			Tensor:  name,
			Details: fmt.Sprintf("length %d > max %d", len(name), MaxTensorNameLen),
		}
	}

	if strings.Contains(name, "..") {
		return &ValidationError{
			Err:     ErrInvalidTensorName,
			Tensor:  name,
			Details: "contains '..' (path traversal attempt)",
		}
	}

	if strings.Contains(name, "/") || strings.Contains(name, "\\") {
		return &ValidationError{
			Err:     ErrInvalidTensorName,
			Tensor:  name,
			Details: "contains path separator (/ or \\)",
		}
	}

	if strings.Contains(name, "\x00") {
		return &ValidationError{
			Err:     ErrInvalidTensorName,
			Tensor:  name,
			Details: "contains null byte",
		}
	}

	return nil
}

// validateOffsets checks every tensor region for negative ranges, bounds
// violations against the data block, and overlap with its neighbors.
// Malformed files could otherwise alias tensor memory or read past the
// data section.
func validateOffsets(tensors map[string]TensorInfo, dataSize int64) error {
	if len(tensors) > MaxTensorCount {
		return &ValidationError{
			Err:     ErrTooManyTensors,
			Details: fmt.Sprintf("got %d, max %d", len(tensors), MaxTensorCount),
		}
	}

	type region struct {
		name       string
		start, end int64
	}
	regions := make([]region, 0, len(tensors))
	for name, info := range tensors {
		regions = append(regions, region{name: name, start: info.DataOffsets[0], end: info.DataOffsets[1]})
	}
	sort.Slice(regions, func(i, j int) bool {
		return regions[i].start < regions[j].start
	})

	for i, r := range regions {
		if r.start < 0 || r.end < r.start {
			return &ValidationError{
				Err:     ErrNegativeOffset,
				Tensor:  r.name,
				Details: fmt.Sprintf("offsets [%d, %d] (invalid range)", r.start, r.end),
			}
		}

		if r.end > dataSize {
			return &ValidationError{
				Err:     ErrOutOfBounds,
				Tensor:  r.name,
				Details: fmt.Sprintf("end offset %d > data size %d", r.end, dataSize),
			}
		}

		if i < len(regions)-1 {
			next := regions[i+1]
			if r.end > next.start {
				return &ValidationError{
					Err:     ErrOffsetOverlap,
					Tensor:  r.name,
					Tensor2: next.name,
					Details: fmt.Sprintf("regions [%d-%d] and [%d-%d] overlap",
						r.start, r.end, next.start, next.end),
				}
			}
		}
	}

	return nil
}

// validateHeader runs all header checks against a parsed header.
func validateHeader(h *header, dataSize int64) error {
	for name := range h.Tensors {
		if err := ValidateTensorName(name); err != nil {
			return err
		}
	}
	return validateOffsets(h.Tensors, dataSize)
}
