package store

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// ComputeDigest returns the BLAKE3 digest of the tensor data block as
// lowercase hex, the form stored under DigestField.
func ComputeDigest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// VerifyDigest compares the computed digest of data against the stored hex
// digest. Returns ErrDigestMismatch on disagreement.
func VerifyDigest(data []byte, stored string) error {
	if ComputeDigest(data) != stored {
		return ErrDigestMismatch
	}
	return nil
}
