// Package crypto provides the Keccak-256 hashing, secp256k1 signature
// recovery, and address-derivation primitives the execution core is built
// on (spec L0 "Crypto primitives").
package crypto

import (
	"golang.org/x/crypto/sha3"

	"github.com/exacore/exacore/types"
)

// Keccak256 computes the Keccak-256 hash of the concatenation of data.
func Keccak256(data ...[]byte) []byte {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	return d.Sum(nil)
}

// Keccak256Hash computes Keccak-256 and returns it as a types.Hash.
func Keccak256Hash(data ...[]byte) types.Hash {
	return types.BytesToHash(Keccak256(data...))
}
