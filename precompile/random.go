package precompile

import "github.com/exacore/exacore/types"

// deterministicRandomPrecompile derives a pseudo-random 32-byte value from
// the current block's seed (supplied by the executor, typically the block
// hash or a VRF output under consensus's control) and the caller-supplied
// input, so the same call within the same block always returns the same
// value (determinism is required for all validators to agree on the
// result). Grounded on original_source/src/core/ecrecoverprecompile.h's
// Precompile::getRandom, which similarly folds a RandomGen seed with the
// call's input.
type deterministicRandomPrecompile struct {
	seed func() types.Hash
}

func (deterministicRandomPrecompile) RequiredGas(input []byte) uint64 {
	return gasDeterministicRandom
}

func (p deterministicRandomPrecompile) Run(input []byte) ([]byte, error) {
	var seed types.Hash
	if p.seed != nil {
		seed = p.seed()
	}
	return keccak256(seed.Bytes(), input), nil
}
