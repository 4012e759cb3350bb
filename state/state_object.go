package state

import (
	"github.com/holiman/uint256"

	"github.com/exacore/exacore/types"
)

// stateObject is the in-memory cache entry for one account, combining a
// loaded-from-disk account record with a dirty storage overlay. Grounded on
// the teacher's core/state/state_object.go, collapsed to one layer (no
// separate originStorage/readCache split) since exacore's KV store already
// serves as the origin layer and is read through once per key.
type stateObject struct {
	address        types.Address
	balance        *uint256.Int
	nonce          uint64
	code           []byte
	codeHash       types.Hash
	dirtyStorage   map[types.Hash]types.Hash
	loadedStorage  map[types.Hash]types.Hash // committed values already read from the KV store this block
	selfDestructed bool
	existsOnDisk   bool // true if this address had a persisted account record
}

func newStateObject(addr types.Address) *stateObject {
	return &stateObject{
		address:       addr,
		balance:       new(uint256.Int),
		codeHash:      types.EmptyCodeHash,
		dirtyStorage:  make(map[types.Hash]types.Hash),
		loadedStorage: make(map[types.Hash]types.Hash),
	}
}

func (o *stateObject) isEmpty() bool {
	return o.nonce == 0 && o.balance.IsZero() && (o.codeHash == types.EmptyCodeHash || o.codeHash == types.Hash{})
}

func (o *stateObject) account() types.Account {
	return types.Account{
		Balance:  new(uint256.Int).Set(o.balance),
		Nonce:    o.nonce,
		CodeHash: o.codeHash,
	}
}
