package pipeline

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// ContentHash fingerprints article body text for deduplication. Identical
// input always yields the same fixed-width hex digest.
func ContentHash(body string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(body))
}
