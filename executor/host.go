// Package executor implements exacore's transaction/block application
// loop (spec §4.7): the L4-top layer that recovers a sender, checks a
// nonce, runs the right dispatch path (native, EVM, or a transfer), prices
// the result, and commits or rolls back. Grounded on the teacher's
// core/state memory_statedb.go + evm.go orchestration, adapted to
// exacore's three-way native/EVM/precompile dispatch (spec §5) instead of
// the teacher's EVM-only call path.
package executor

import (
	"errors"

	"github.com/holiman/uint256"

	"github.com/exacore/exacore/kv"
	"github.com/exacore/exacore/precompile"
	"github.com/exacore/exacore/registry"
	"github.com/exacore/exacore/state"
	"github.com/exacore/exacore/types"
	"github.com/exacore/exacore/vm"
)

// stateHost adapts state.AccountStore + registry.ContractRegistry +
// precompile.Registry to vm.Host, the single seam the interpreter uses to
// reach outside its own call frame. It is rebuilt once per Executor and
// reused across every transaction in a block. Native contract writes are
// staged into txBatch rather than written immediately, so that a
// transaction which ultimately fails leaves no trace — mirroring
// AccountStore's own deferred-flush discipline (spec §4.7 step 7) one
// level down, for the registry's own KV keyspace.
type stateHost struct {
	accounts *state.AccountStore
	registry *registry.ContractRegistry
	precomp  *precompile.Registry
	txCtx    vm.TxContext
	blockCtx vm.BlockContext
	txBatch  kv.Batch
}

func newStateHost(accounts *state.AccountStore, reg *registry.ContractRegistry, precomp *precompile.Registry) *stateHost {
	return &stateHost{accounts: accounts, registry: reg, precomp: precomp}
}

// beginTx resets the per-transaction context and the batch that
// DispatchMutating native writes stage into.
func (h *stateHost) beginTx(batch kv.Batch, txCtx vm.TxContext, blockCtx vm.BlockContext) {
	h.txBatch = batch
	h.txCtx = txCtx
	h.blockCtx = blockCtx
}

func (h *stateHost) AccountExists(addr types.Address) bool { return h.accounts.Exist(addr) }
func (h *stateHost) GetBalance(addr types.Address) *uint256.Int {
	return h.accounts.BalanceOf(addr)
}
func (h *stateHost) GetNonce(addr types.Address) uint64        { return h.accounts.NonceOf(addr) }
func (h *stateHost) SetNonce(addr types.Address, nonce uint64) { h.accounts.SetNonce(addr, nonce) }

func (h *stateHost) Transfer(from, to types.Address, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		h.accounts.Touch(to)
		return nil
	}
	if err := h.accounts.SubBalance(from, amount); err != nil {
		return err
	}
	h.accounts.AddBalance(to, amount)
	return nil
}

func (h *stateHost) GetCode(addr types.Address) []byte           { return h.accounts.GetCode(addr) }
func (h *stateHost) GetCodeHash(addr types.Address) types.Hash    { return h.accounts.GetCodeHash(addr) }
func (h *stateHost) GetCodeSize(addr types.Address) int           { return h.accounts.GetCodeSize(addr) }
func (h *stateHost) SetCode(addr types.Address, code []byte, hash types.Hash) {
	h.accounts.SetCode(addr, code, hash)
}

func (h *stateHost) GetState(addr types.Address, key types.Hash) types.Hash {
	return h.accounts.GetState(addr, key)
}
func (h *stateHost) SetState(addr types.Address, key, value types.Hash) {
	h.accounts.SetState(addr, key, value)
}
func (h *stateHost) GetTransientState(addr types.Address, key types.Hash) types.Hash {
	return h.accounts.GetTransientState(addr, key)
}
func (h *stateHost) SetTransientState(addr types.Address, key, value types.Hash) {
	h.accounts.SetTransientState(addr, key, value)
}

func (h *stateHost) CreateAccount(addr types.Address) { h.accounts.Touch(addr) }
func (h *stateHost) SelfDestruct(addr, beneficiary types.Address) {
	h.accounts.SelfDestruct(addr, beneficiary)
}
func (h *stateHost) HasSelfDestructed(addr types.Address) bool {
	return h.accounts.HasSelfDestructed(addr)
}

func (h *stateHost) EmitLog(log *types.Log) {
	h.accounts.AddLog(log)
}

func (h *stateHost) Snapshot() int            { return h.accounts.Snapshot() }
func (h *stateHost) RevertToSnapshot(id int)  { h.accounts.RevertToSnapshot(id) }

func (h *stateHost) TxContext() vm.TxContext       { return h.txCtx }
func (h *stateHost) BlockContext() vm.BlockContext { return h.blockCtx }

func (h *stateHost) PrecompileAt(addr types.Address) vm.Precompile {
	p := h.precomp.At(addr)
	if p == nil {
		return nil
	}
	return p
}

func (h *stateHost) NativeDispatch(caller, addr types.Address, input []byte, value *uint256.Int, static bool) (bool, []byte, uint64, error) {
	if addr == registry.ContractManagerAddress {
		// Rule 1 ahead of the ordinary native-contract table (spec §4.5):
		// a call here deploys rather than dispatching a selector.
		if static {
			return true, nil, contractManagerGas, errStaticCreate
		}
		nonce := h.accounts.NonceOf(caller)
		ret, revert, err := h.registry.DispatchCreate(h.txBatch, caller, nonce, input)
		if err != nil {
			return true, nil, contractManagerGas, err
		}
		h.accounts.SetNonce(caller, nonce+1)
		if revert != nil {
			h.accounts.OnRevert(revert)
		}
		return true, ret, contractManagerGas, nil
	}

	if _, ok := h.registry.Lookup(addr); !ok {
		return false, nil, 0, nil
	}
	if static {
		ret, err := h.registry.DispatchView(addr, input)
		return true, ret, nativeViewGas, err
	}
	ret, gasUsed, revert, err := h.registry.DispatchMutating(h.txBatch, addr, input, value)
	if revert != nil {
		// Ride the same journal a balance or storage write would: if
		// anything unwinds the snapshot taken before this call, the native
		// contract's just-committed fields get undone too.
		h.accounts.OnRevert(revert)
	}
	return true, ret, gasUsed, err
}

// nativeViewGas prices a read-only native dispatch flat, since it never
// touches the safevar dirty set DispatchMutating's gas formula depends on.
const nativeViewGas = 500

// contractManagerGas prices a deploy-via-call, flat like a top-level CREATE
// transaction's intrinsic surcharge rather than scaled by dirty-field count
// the way an ordinary native dispatch is.
const contractManagerGas = 32000

var errStaticCreate = errors.New("executor: contract manager create is not a view call")
