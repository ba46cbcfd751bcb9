// Package hash provides the 64-bit name ids used to index archive entries.
package hash

import (
	"strings"

	"github.com/cespare/xxhash/v2"
)

// ID computes the xxHash64 of the given string.
func ID(data string) uint64 {
	return xxhash.Sum64String(data)
}

// NormalizeName returns the canonical form of an entry name.
//
// Backslashes are treated as separators and a trailing slash is ignored, so
// "dir/" and "dir" as well as "a\b" and "a/b" are the same name. With fold
// set, the name is also lower-cased for case-insensitive targets.
func NormalizeName(name string, fold bool) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimSuffix(name, "/")
	if fold {
		name = strings.ToLower(name)
	}

	return name
}
