package precompile

import "github.com/exacore/exacore/crypto"

func keccak256(data ...[]byte) []byte {
	return crypto.Keccak256(data...)
}

// keccak256Precompile hashes its raw input, exposing keccak256 as a callable
// precompile for native and EVM contracts that want a metered hash without
// an interpreter SHA3 opcode (e.g. the registry's native dispatch path).
// Grounded on original_source/src/core/ecrecoverprecompile.h's
// Precompile::keccak.
type keccak256Precompile struct{}

func (keccak256Precompile) RequiredGas(input []byte) uint64 {
	words := uint64(len(input)+31) / 32
	return gasKeccak256Base + gasKeccak256Word*words
}

func (keccak256Precompile) Run(input []byte) ([]byte, error) {
	return keccak256(input), nil
}

// abiPackHashPrecompile hashes ABI-encoded (head/tail packed) input — same
// hash function as keccak256Precompile, kept as a distinct address because
// callers invoke it specifically against codec.EncodeArgs output, mirroring
// the original's separate Precompile::packAndHash entry point.
type abiPackHashPrecompile struct{}

func (abiPackHashPrecompile) RequiredGas(input []byte) uint64 {
	words := uint64(len(input)+31) / 32
	return gasABIPackHash + gasKeccak256Word*words
}

func (abiPackHashPrecompile) Run(input []byte) ([]byte, error) {
	return keccak256(input), nil
}
