package precompile

import (
	"fmt"

	"github.com/exacore/exacore/types"
)

// signedDigestPrecompile computes the EIP-191 "personal sign" digest
// keccak256("\x19Ethereum Signed Message:\n" || len(input) || input), so
// contracts can verify off-chain signatures produced by standard wallet
// signing flows without duplicating the prefix logic in Solidity-equivalent
// bytecode. Grounded on original_source/src/core/ecrecoverprecompile.h's
// Precompile::keccakSolSign.
type signedDigestPrecompile struct{}

func (signedDigestPrecompile) RequiredGas(input []byte) uint64 { return gasSignedDigest }

func (signedDigestPrecompile) Run(input []byte) ([]byte, error) {
	prefix := fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(input))
	h := keccak256([]byte(prefix), input)
	return types.BytesToHash(h).Bytes(), nil
}
