// Package matcher finds byte patterns inside record keys and values.
package matcher

import "bytes"

// Find returns the lowest index at which needle occurs contiguously in
// haystack. An empty needle matches at index 0 for any haystack.
func Find(haystack, needle []byte) (int, bool) {
	if len(needle) == 0 {
		return 0, true
	}
	i := bytes.Index(haystack, needle)
	return i, i >= 0
}

// Contains reports whether needle occurs in haystack.
func Contains(haystack, needle []byte) bool {
	_, ok := Find(haystack, needle)
	return ok
}
