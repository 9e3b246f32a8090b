package subject

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storage-analysis/internal/sovereign"
	apperrors "github.com/storage-analysis/pkg/errors"
)

const (
	aliceSS58 = "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY"
	aliceHex  = "0xd43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d"
)

func TestParseAddress_SS58(t *testing.T) {
	s, err := ParseAddress(aliceSS58)
	require.NoError(t, err)
	assert.Equal(t, KindAddress, s.Kind())
	assert.Equal(t, "Address("+aliceHex+")", s.String())
}

func TestParseAddress_Hex(t *testing.T) {
	s, err := ParseAddress(aliceHex)
	require.NoError(t, err)

	fromSS58, err := ParseAddress(aliceSS58)
	require.NoError(t, err)
	assert.True(t, s.Equal(fromSS58))

	upper, err := ParseAddress("0X" + aliceHex[2:])
	require.NoError(t, err)
	assert.True(t, upper.Equal(s))
}

func TestParseAddress_Invalid(t *testing.T) {
	inputs := []string{
		"",
		"0x1234",
		"0xzz3593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d",
		"not-an-address-0OIl",
		aliceSS58[:len(aliceSS58)-1] + "Z",
		"5Grwva",
	}
	for _, in := range inputs {
		_, err := ParseAddress(in)
		assert.True(t, apperrors.IsInvalidInput(err), "input %q: %v", in, err)
	}
}

func TestSS58_RoundTrip(t *testing.T) {
	fromSS58, err := ParseAddress(aliceSS58)
	require.NoError(t, err)
	account := [32]byte(fromSS58.Pattern())

	for _, network := range []uint16{0, 2, 42, 63, 64, 255, 1284, 7391, 16383} {
		addr := EncodeSS58(account, network)
		got, gotNetwork, err := DecodeSS58(addr)
		require.NoError(t, err, "network %d", network)
		assert.Equal(t, account, got)
		assert.Equal(t, network, gotNetwork)
	}

	assert.Equal(t, aliceSS58, EncodeSS58(account, 42))
}

func TestNewDerived(t *testing.T) {
	s := NewDerived(sovereign.Sibling, 2000)
	assert.Equal(t, KindDerived, s.Kind())
	assert.Equal(t, sovereign.Sibling, s.Location())
	assert.Equal(t, uint16(2000), s.ID())
	assert.Equal(t, []byte("sibl"), s.Pattern()[:4])
	assert.Contains(t, s.String(), "DerivedAccount(sibling, 2000, 0x7369626cd007")

	// Equality ignores how the pattern was built.
	assert.True(t, s.Equal(NewAddress(sovereign.Derive(sovereign.Sibling, 2000))))
}

func TestMatches(t *testing.T) {
	s := NewDerived(sovereign.Child, 1000)
	value := append([]byte{0xff, 0xee}, s.Pattern()...)
	assert.True(t, s.Matches(value))
	assert.False(t, s.Matches(s.Pattern()[:31]))
}

func TestParseAddresses_Dedup(t *testing.T) {
	subjects, err := ParseAddresses([]string{aliceSS58, aliceHex})
	require.NoError(t, err)
	assert.Len(t, subjects, 1)

	_, err = ParseAddresses([]string{aliceSS58, "bogus"})
	assert.True(t, apperrors.IsInvalidInput(err))
}
