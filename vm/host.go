package vm

import (
	"github.com/holiman/uint256"

	"github.com/exacore/exacore/types"
)

// TxContext carries the per-transaction values the interpreter exposes via
// ORIGIN/GASPRICE, per spec §4.6.
type TxContext struct {
	Origin   types.Address
	GasPrice *uint256.Int
}

// BlockContext carries the per-block values exposed via COINBASE/TIMESTAMP/
// NUMBER/GASLIMIT/CHAINID/BLOCKHASH, per spec §4.6.
type BlockContext struct {
	Coinbase   types.Address
	Timestamp  uint64
	Number     uint64
	GasLimit   uint64
	ChainID    uint64
	GetHash    func(n uint64) types.Hash
}

// Host is the callback surface the interpreter uses to reach outside the
// running call frame: account and storage access, nested calls and
// contract creation, self-destruct and logging. It is implemented by the
// executor package's AccountStore-backed adapter; the interpreter itself
// never imports the state package. Grounded on the teacher's
// core/vm/evm.go / StateDB interface, generalized to spec §4.6's callback
// table (the teacher couples EVM and StateDB directly; exacore's Executor
// sits in between so the same Host also routes to native contracts).
type Host interface {
	// Account and balance queries.
	AccountExists(addr types.Address) bool
	GetBalance(addr types.Address) *uint256.Int
	GetNonce(addr types.Address) uint64
	SetNonce(addr types.Address, nonce uint64)
	Transfer(from, to types.Address, amount *uint256.Int) error

	// Code.
	GetCode(addr types.Address) []byte
	GetCodeHash(addr types.Address) types.Hash
	GetCodeSize(addr types.Address) int
	SetCode(addr types.Address, code []byte, hash types.Hash)

	// Storage.
	GetState(addr types.Address, key types.Hash) types.Hash
	SetState(addr types.Address, key, value types.Hash)
	GetTransientState(addr types.Address, key types.Hash) types.Hash
	SetTransientState(addr types.Address, key, value types.Hash)

	// Lifecycle.
	CreateAccount(addr types.Address)
	SelfDestruct(addr, beneficiary types.Address)
	HasSelfDestructed(addr types.Address) bool

	// Logging.
	EmitLog(log *types.Log)

	// Snapshots — the interpreter takes one before any state-mutating
	// sub-call or CREATE, and reverts to it if the sub-call fails.
	Snapshot() int
	RevertToSnapshot(id int)

	// Contexts.
	TxContext() TxContext
	BlockContext() BlockContext

	// PrecompileAt returns the precompile registered at addr, or nil.
	PrecompileAt(addr types.Address) Precompile

	// NativeDispatch routes a call into the contract registry's native
	// (non-EVM) dispatch table, per spec §5. caller is passed through so the
	// reserved-address ContractManager can resolve the deployer's nonce for
	// address derivation (spec §4.5's create-via-call path); ordinary native
	// contract dispatch ignores it. ok is false if addr is not a registered
	// native contract or the reserved ContractManager/consensus addresses.
	NativeDispatch(caller, addr types.Address, input []byte, value *uint256.Int, static bool) (ok bool, ret []byte, gasUsed uint64, err error)
}

// Precompile is a fixed-address native function reachable via CALL, priced
// independently of the interpreter's per-opcode gas schedule (spec §6).
type Precompile interface {
	RequiredGas(input []byte) uint64
	Run(input []byte) ([]byte, error)
}
