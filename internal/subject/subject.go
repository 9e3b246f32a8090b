// Package subject defines the byte patterns a search looks for.
package subject

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/storage-analysis/internal/matcher"
	"github.com/storage-analysis/internal/sovereign"
	apperrors "github.com/storage-analysis/pkg/errors"
)

// Kind is the variant of a Subject.
type Kind uint8

const (
	// KindAddress is a raw 32-byte account id.
	KindAddress Kind = iota
	// KindDerived is a sovereign account derived from a location and id.
	KindDerived
)

// Subject is an immutable 32-byte pattern to search for.
type Subject struct {
	kind     Kind
	pattern  [32]byte
	location sovereign.Location
	id       uint16
}

// NewAddress wraps a raw account id.
func NewAddress(account [32]byte) Subject {
	return Subject{kind: KindAddress, pattern: account}
}

// NewDerived builds the sovereign account of parachain id at loc.
func NewDerived(loc sovereign.Location, id uint16) Subject {
	return Subject{kind: KindDerived, pattern: sovereign.Derive(loc, id), location: loc, id: id}
}

// Kind returns the variant.
func (s Subject) Kind() Kind { return s.kind }

// Pattern returns the bytes searched for.
func (s Subject) Pattern() []byte {
	p := s.pattern
	return p[:]
}

// Location returns the derivation location; only meaningful for KindDerived.
func (s Subject) Location() sovereign.Location { return s.location }

// ID returns the parachain id; only meaningful for KindDerived.
func (s Subject) ID() uint16 { return s.id }

// Equal compares subjects by pattern only.
func (s Subject) Equal(o Subject) bool {
	return s.pattern == o.pattern
}

// Matches reports whether the pattern occurs in data.
func (s Subject) Matches(data []byte) bool {
	return matcher.Contains(data, s.pattern[:])
}

func (s Subject) String() string {
	switch s.kind {
	case KindDerived:
		return fmt.Sprintf("DerivedAccount(%s, %d, %s)", s.location, s.id, hexutil.Encode(s.pattern[:]))
	default:
		return fmt.Sprintf("Address(%s)", hexutil.Encode(s.pattern[:]))
	}
}

// ParseAddress accepts a 0x-prefixed 32-byte hex account id or an SS58
// address of any network.
func ParseAddress(s string) (Subject, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Subject{}, apperrors.New(apperrors.CodeInvalidInput, "empty address")
	}

	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		raw, err := hexutil.Decode("0x" + s[2:])
		if err != nil {
			return Subject{}, apperrors.Wrap(apperrors.CodeInvalidInput, fmt.Sprintf("invalid hex address %q", s), err)
		}
		if len(raw) != 32 {
			return Subject{}, apperrors.Newf(apperrors.CodeInvalidInput, "hex address %q has %d bytes, want 32", s, len(raw))
		}
		return NewAddress([32]byte(raw)), nil
	}

	account, _, err := DecodeSS58(s)
	if err != nil {
		return Subject{}, apperrors.Wrap(apperrors.CodeInvalidInput, fmt.Sprintf("invalid SS58 address %q", s), err)
	}
	return NewAddress(account), nil
}

// ParseAddresses parses every input and drops duplicate patterns, keeping
// the first occurrence.
func ParseAddresses(inputs []string) ([]Subject, error) {
	out := make([]Subject, 0, len(inputs))
	for _, in := range inputs {
		s, err := ParseAddress(in)
		if err != nil {
			return nil, err
		}
		if !containsPattern(out, s) {
			out = append(out, s)
		}
	}
	return out, nil
}

func containsPattern(list []Subject, s Subject) bool {
	for _, o := range list {
		if bytes.Equal(o.pattern[:], s.pattern[:]) {
			return true
		}
	}
	return false
}
