// Package sovereign derives the well-known accounts that a relay chain
// assigns to parachains.
package sovereign

import (
	"fmt"
	"strings"

	apperrors "github.com/storage-analysis/pkg/errors"
	"github.com/storage-analysis/pkg/scale"
)

// Location is the relationship between the observer and the parachain.
type Location int

const (
	// Child is a parachain seen from its relay chain.
	Child Location = iota
	// Sibling is a parachain seen from another parachain.
	Sibling
)

// Tag returns the 4-byte ASCII prefix for the location.
func (l Location) Tag() [4]byte {
	if l == Sibling {
		return [4]byte{'s', 'i', 'b', 'l'}
	}
	return [4]byte{'p', 'a', 'r', 'a'}
}

func (l Location) String() string {
	switch l {
	case Child:
		return "child"
	case Sibling:
		return "sibling"
	default:
		return fmt.Sprintf("Location(%d)", int(l))
	}
}

// ParseLocation accepts "child" or "sibling" in any case.
func ParseLocation(s string) (Location, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "child":
		return Child, nil
	case "sibling":
		return Sibling, nil
	default:
		return Child, apperrors.Newf(apperrors.CodeInvalidInput, "unknown location %q (want child or sibling)", s)
	}
}

// Derive returns the 32-byte sovereign account of parachain id: the location
// tag, the encoded id, then zero padding.
func Derive(loc Location, id uint16) [32]byte {
	var out [32]byte
	tag := loc.Tag()
	n := copy(out[:], tag[:])
	copy(out[n:], scale.EncodeU16(id))
	return out
}
