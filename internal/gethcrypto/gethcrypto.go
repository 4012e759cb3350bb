// Package gethcrypto is the only package in exacore that imports
// go-ethereum directly. It adapts go-ethereum's secp256k1 implementation to
// exacore's own types, the way the teacher's geth package adapts
// go-ethereum's execution engine to eth2030's type system ("the only package
// that imports go-ethereum directly; all other packages use exacore's own
// types").
package gethcrypto

import (
	"crypto/ecdsa"

	gethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Ecrecover recovers the uncompressed 65-byte public key from a 32-byte hash
// and a 65-byte [R || S || V] recoverable signature, using go-ethereum's
// real secp256k1 implementation.
func Ecrecover(hash, sig []byte) ([]byte, error) {
	return gethcrypto.Ecrecover(hash, sig)
}

// SigToPub recovers the public key as an *ecdsa.PublicKey.
func SigToPub(hash, sig []byte) (*ecdsa.PublicKey, error) {
	return gethcrypto.SigToPub(hash, sig)
}

// PubkeyToAddressBytes returns the 20-byte address derived from an
// uncompressed public key (keccak256(pubkey[1:])[12:]).
func PubkeyToAddressBytes(pub *ecdsa.PublicKey) []byte {
	addr := gethcrypto.PubkeyToAddress(*pub)
	return addr.Bytes()
}

// Sign produces a 65-byte [R || S || V] recoverable signature over a 32-byte
// hash using a secp256k1 private key. Exposed for test fixtures that need a
// known (privkey, signature, address) triple.
func Sign(hash []byte, prv *ecdsa.PrivateKey) ([]byte, error) {
	return gethcrypto.Sign(hash, prv)
}

// GenerateKey generates a new secp256k1 private key, for test fixtures.
func GenerateKey() (*ecdsa.PrivateKey, error) {
	return gethcrypto.GenerateKey()
}
