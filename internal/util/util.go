// Package util provides content hashing helpers.
package util

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// ContentHash returns a short, stable fingerprint of content. It is used to detect unchanged
// writes, not for integrity.
func ContentHash(content []byte) string {
	return strconv.FormatUint(xxhash.Sum64(content), 16)
}
