package crypto

import (
	"crypto/ecdsa"
	"errors"

	"github.com/exacore/exacore/internal/gethcrypto"
	"github.com/exacore/exacore/types"
)

// ErrInvalidSignature is returned when a signature cannot be parsed or does
// not recover to a valid public key.
var ErrInvalidSignature = errors.New("crypto: invalid signature")

// Ecrecover recovers the 20-byte address that produced sig over hash. sig
// must be the 65-byte recoverable form [R || S || V].
func Ecrecover(hash, sig []byte) (types.Address, error) {
	if len(hash) != types.HashLength {
		return types.Address{}, ErrInvalidSignature
	}
	if len(sig) != 65 {
		return types.Address{}, ErrInvalidSignature
	}
	pub, err := gethcrypto.SigToPub(hash, sig)
	if err != nil {
		return types.Address{}, ErrInvalidSignature
	}
	return types.BytesToAddress(gethcrypto.PubkeyToAddressBytes(pub)), nil
}

// EcrecoverPubkey recovers the raw 65-byte uncompressed public key, used by
// the ecrecover precompile's calldata-compatible output path.
func EcrecoverPubkey(hash, sig []byte) ([]byte, error) {
	pub, err := gethcrypto.Ecrecover(hash, sig)
	if err != nil {
		return nil, ErrInvalidSignature
	}
	return pub, nil
}

// Sign and GenerateKey are re-exported for test fixtures that need a known
// (privkey, signature, address) triple; production code never signs.
func Sign(hash []byte, prv *ecdsa.PrivateKey) ([]byte, error) { return gethcrypto.Sign(hash, prv) }
func GenerateKey() (*ecdsa.PrivateKey, error)                 { return gethcrypto.GenerateKey() }

// PubkeyToAddress derives the address of a public key: the last 20 bytes of
// keccak256 of its uncompressed, non-prefix-byte encoding.
func PubkeyToAddress(pub *ecdsa.PublicKey) types.Address {
	return types.BytesToAddress(gethcrypto.PubkeyToAddressBytes(pub))
}
