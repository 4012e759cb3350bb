package precompile

import (
	"errors"

	"github.com/exacore/exacore/internal/gethcrypto"
)

// ecrecoverPrecompile recovers a signer address from a hash and a
// recoverable signature, the same 128-byte input layout as Ethereum's
// ECRECOVER: hash(32) || v(32, big-endian, value 27 or 28) || r(32) || s(32).
// Grounded on original_source/src/core/ecrecoverprecompile.h's
// Precompile::ecrecover, implemented with go-ethereum's real secp256k1 via
// internal/gethcrypto rather than reimplementing curve arithmetic.
type ecrecoverPrecompile struct{}

var errInvalidSignature = errors.New("precompile: invalid signature")

func (ecrecoverPrecompile) RequiredGas(input []byte) uint64 { return gasEcrecover }

func (ecrecoverPrecompile) Run(input []byte) ([]byte, error) {
	var padded [128]byte
	copy(padded[:], input)

	hash := padded[0:32]
	vByte := padded[63]
	r := padded[64:96]
	s := padded[96:128]

	if vByte != 27 && vByte != 28 {
		return nil, errInvalidSignature
	}
	sig := make([]byte, 65)
	copy(sig[0:32], r)
	copy(sig[32:64], s)
	sig[64] = vByte - 27

	pub, err := gethcrypto.Ecrecover(hash, sig)
	if err != nil {
		return nil, errInvalidSignature
	}
	addrHash := keccak256(pub[1:])
	out := make([]byte, 32)
	copy(out[12:], addrHash[12:])
	return out, nil
}
