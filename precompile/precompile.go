// Package precompile implements exacore's fixed-address native functions
// (spec §6): ecrecover, keccak256, an ABI-pack-then-hash helper, a
// signed-digest helper, and a deterministic pseudo-random generator. Each
// is dispatched through vm.Host.PrecompileAt at a reserved address, the
// same way go-ethereum reserves 0x01-0x09 for its own precompile set.
package precompile

import (
	"github.com/exacore/exacore/types"
)

// Reserved precompile addresses (spec §6). AddrEcrecover sits at 0x01, the
// same address Ethereum mainnet uses; 0x02-0x05 hold exacore's own
// precompiles, not mainnet's occupants of those addresses.
var (
	AddrEcrecover      = types.BytesToAddress([]byte{0x01})
	AddrKeccak256       = types.BytesToAddress([]byte{0x02})
	AddrABIPackHash    = types.BytesToAddress([]byte{0x03})
	AddrSignedDigest   = types.BytesToAddress([]byte{0x04})
	AddrDeterministicRandom = types.BytesToAddress([]byte{0x05})
)

const (
	gasEcrecover      uint64 = 3000
	gasKeccak256Base  uint64 = 30
	gasKeccak256Word  uint64 = 6
	gasABIPackHash    uint64 = 60
	gasSignedDigest   uint64 = 3500
	gasDeterministicRandom uint64 = 200
)

// Registry maps reserved addresses to their precompile implementation. It
// satisfies the lookup half of vm.Host.PrecompileAt when embedded by the
// executor's host adapter.
type Registry struct {
	entries map[types.Address]Precompile
}

// Precompile mirrors vm.Host's Precompile interface without importing vm,
// keeping this package free of a dependency on the interpreter.
type Precompile interface {
	RequiredGas(input []byte) uint64
	Run(input []byte) ([]byte, error)
}

// NewRegistry returns a Registry with every built-in precompile installed.
func NewRegistry(randomSeedProvider func() types.Hash) *Registry {
	r := &Registry{entries: make(map[types.Address]Precompile)}
	r.entries[AddrEcrecover] = ecrecoverPrecompile{}
	r.entries[AddrKeccak256] = keccak256Precompile{}
	r.entries[AddrABIPackHash] = abiPackHashPrecompile{}
	r.entries[AddrSignedDigest] = signedDigestPrecompile{}
	r.entries[AddrDeterministicRandom] = deterministicRandomPrecompile{seed: randomSeedProvider}
	return r
}

// At returns the precompile registered at addr, or nil.
func (r *Registry) At(addr types.Address) Precompile {
	return r.entries[addr]
}
