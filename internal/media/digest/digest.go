package digest

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hashes are the two identity axes of a record: ContentHash identifies
// the picture independent of compression choices, StorageHash
// identifies the exact stored bytes. Dedup checks both.
type Hashes struct {
	ContentHash string
	StorageHash string
}

// Compute returns sha256 hex digests of the canonical uncompressed
// bytes and the final compressed bytes.
func Compute(canonical, compressed []byte) Hashes {
	return Hashes{
		ContentHash: Sum(canonical),
		StorageHash: Sum(compressed),
	}
}

// Sum returns the sha256 hex digest of data.
func Sum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
