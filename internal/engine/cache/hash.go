package cache

import (
	"encoding/hex"

	"github.com/minio/highwayhash"
)

// hashKey is fixed so that digests are stable across processes and can be
// compared with hashes recorded by earlier walks.
var hashKey = []byte("driftscan-content-hash-key-00001")

// ComputeHash returns the hex-encoded HighwayHash-256 digest of content.
// Identical content always yields the identical key.
func ComputeHash(content []byte) string {
	sum := highwayhash.Sum(content, hashKey)
	return hex.EncodeToString(sum[:])
}
