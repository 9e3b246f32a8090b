package subject

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"
	"golang.org/x/crypto/blake2b"
)

const (
	accountLen  = 32
	checksumLen = 2
)

var ss58Prefix = []byte("SS58PRE")

func ss58Checksum(data []byte) []byte {
	h, _ := blake2b.New512(nil)
	h.Write(ss58Prefix)
	h.Write(data)
	return h.Sum(nil)[:checksumLen]
}

// DecodeSS58 returns the account id and network prefix of an SS58 address.
func DecodeSS58(s string) ([accountLen]byte, uint16, error) {
	var account [accountLen]byte

	data := base58.Decode(s)
	if len(data) == 0 {
		return account, 0, fmt.Errorf("not base58")
	}

	var prefixLen int
	var network uint16
	switch {
	case data[0] < 64:
		prefixLen, network = 1, uint16(data[0])
	case data[0] < 128 && len(data) > 1:
		lower := (data[0] << 2) | (data[1] >> 6)
		upper := data[1] & 0b0011_1111
		prefixLen, network = 2, uint16(lower)|uint16(upper)<<8
	default:
		return account, 0, fmt.Errorf("invalid network prefix byte 0x%02x", data[0])
	}

	if len(data) != prefixLen+accountLen+checksumLen {
		return account, 0, fmt.Errorf("decoded length %d, want %d", len(data), prefixLen+accountLen+checksumLen)
	}

	body := data[:len(data)-checksumLen]
	if !bytes.Equal(ss58Checksum(body), data[len(data)-checksumLen:]) {
		return account, 0, fmt.Errorf("checksum mismatch")
	}

	copy(account[:], body[prefixLen:])
	return account, network, nil
}

// EncodeSS58 formats an account id for the given network prefix.
func EncodeSS58(account [accountLen]byte, network uint16) string {
	var data []byte
	if network < 64 {
		data = append(data, byte(network))
	} else {
		first := byte((network&0b0000_0000_1111_1100)>>2) | 0b0100_0000
		second := byte(network>>8) | byte(network&0b0000_0000_0000_0011)<<6
		data = append(data, first, second)
	}
	data = append(data, account[:]...)
	data = append(data, ss58Checksum(data)...)
	return base58.Encode(data)
}
