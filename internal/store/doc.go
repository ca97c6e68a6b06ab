// Package store reads and writes the flat tensor container backing
// safestruct documents: the safetensors format.
//
//	Format Structure:
//	  [8 bytes: header size (uint64 LE)]
//	  [header: JSON, "__metadata__" string map plus one entry per tensor
//	           with dtype, shape and byte offsets into the data block]
//	  [tensor data: raw bytes, one contiguous block]
//
// Tensors are written in alphabetical key order. The store treats the
// metadata map as opaque strings; the serialization engine layers the
// schema document on top of it.
//
// Writers record a BLAKE3 digest of the data block in the metadata;
// readers verify it when present and reject mismatches.
package store
