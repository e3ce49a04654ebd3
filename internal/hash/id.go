package hash

import "github.com/cespare/xxhash/v2"

// ID computes the xxHash64 of the given string.
//
// Schema fingerprints are built by hashing the canonical descriptor string of
// a schema; the hash is deterministic across processes, so fingerprints are
// stable cache keys for the dispatch-table registry.
func ID(data string) uint64 {
	return xxhash.Sum64String(data)
}
