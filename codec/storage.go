// Package codec implements the two encodings spec §4.2 requires: a
// big-endian fixed-width storage encoding for integers/addresses/hashes
// (chosen for lexicographic ordering of numeric keys in range scans), and
// the standard Ethereum call ABI used by both native and EVM contracts.
package codec

import (
	"encoding/binary"

	"github.com/holiman/uint256"

	"github.com/exacore/exacore/types"
)

// PutUint64 encodes v as 8 big-endian bytes.
func PutUint64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// GetUint64 decodes 8 big-endian bytes into a uint64.
func GetUint64(b []byte) uint64 {
	if len(b) < 8 {
		var tmp [8]byte
		copy(tmp[8-len(b):], b)
		return binary.BigEndian.Uint64(tmp[:])
	}
	return binary.BigEndian.Uint64(b)
}

// PutUint256 encodes v as 32 big-endian bytes, the canonical storage
// encoding for u256 values (account balances, SafeVar integers, EVM storage
// slots). Using uint256.Int's native Bytes32 keeps wrap/overflow detection
// (AddOverflow/SubOverflow) available to callers without a math/big
// round trip.
func PutUint256(v *uint256.Int) []byte {
	if v == nil {
		var z uint256.Int
		b := z.Bytes32()
		return b[:]
	}
	b := v.Bytes32()
	return b[:]
}

// GetUint256 decodes 32 big-endian bytes into a *uint256.Int.
func GetUint256(b []byte) *uint256.Int {
	var v uint256.Int
	v.SetBytes(b)
	return &v
}

// PutAddress returns the raw 20-byte address encoding.
func PutAddress(a types.Address) []byte { return a.Bytes() }

// PutHash returns the raw 32-byte hash encoding.
func PutHash(h types.Hash) []byte { return h.Bytes() }
