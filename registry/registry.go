// Package registry implements exacore's ContractRegistry: the L2 layer that
// routes a call's destination address to either a native contract's
// selector dispatch table or the EVM interpreter, and owns contract
// deployment and startup rehydration. Grounded on
// original_source/src/contract/contractmanager.cpp's ContractManager —
// exacore splits its responsibilities across two packages (the contract
// package holds the Base/NativeContract abstraction and concrete
// contracts; this package holds the reserved-address routing table the
// C++ ContractManager itself implements in callContract/ethCallView).
package registry

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/exacore/exacore/codec"
	"github.com/exacore/exacore/contract"
	"github.com/exacore/exacore/crypto"
	"github.com/exacore/exacore/kv"
	"github.com/exacore/exacore/types"
)

// Reserved protocol addresses (spec §4.5 rule 1, §9's "compile-time constant
// table" design note): routed ahead of the ordinary native-contract lookup,
// never through a process-global singleton — both are just entries this
// package's own methods special-case or pre-populate in New.
var (
	// ContractManagerAddress is where a selector(create) ‖ encoded
	// constructor-args call deploys a new native contract under the active
	// snapshot (spec §4.5's deployment-via-call paragraph).
	ContractManagerAddress = types.BytesToAddress([]byte{0x10})
	// ConsensusContractAddress hosts the validator-set contract spec §6
	// names among the reserved set, pre-registered in New rather than
	// reachable only through a nonce-derived DeployNative call.
	ConsensusContractAddress = types.BytesToAddress([]byte{0x11})
)

// createSelector is the 4-byte selector a call to ContractManagerAddress
// must lead with. exacore's native contracts take no constructor argument
// beyond their own type tag, so "encoded constructor args" is just that tag
// string, ABI-encoded the same way any other string argument would be.
var createSelector = codec.Selector("create(string)")

var (
	// ErrContractNotFound is returned when addr names neither a native nor
	// an EVM contract.
	ErrContractNotFound = errors.New("registry: no contract at address")
	// ErrUnknownTypeTag is a fatal startup error: a persisted contract
	// record names a typeTag no Constructor is registered for, per the
	// pending-task note "fatal-on-unknown-typeTag" — silently skipping it
	// would resurrect the chain with missing contracts.
	ErrUnknownTypeTag = errors.New("registry: unknown native contract type tag at startup")
)

// nativeBlobTag distinguishes a native contract's persisted field blob from
// an EVM contract's bytecode under kv.PrefixContractData's shared addr
// keyspace (the state package reserves 0xff for EVM code; see
// state/account_store.go's codeFieldTag).
var nativeBlobTag = []byte{0x00}

// Constructor builds an empty instance of a native contract type, ready for
// Restore to rehydrate from its persisted Snapshot.
type Constructor func(address types.Address) contract.NativeContract

// CodeStore is the subset of state.AccountStore the registry needs to
// resolve EVM contract code at a destination address, kept as a narrow
// interface so this package does not import state directly.
type CodeStore interface {
	GetCode(addr types.Address) []byte
	GetNonce(addr types.Address) uint64
}

// ContractRegistry is the single source of truth for "what kind of contract
// lives at this address, and how do I reach it". EVM contracts are resolved
// lazily through CodeStore; native contracts are held in memory, persisted
// as opaque blobs under kv.PrefixRegistry/kv.PrefixContractData.
type ContractRegistry struct {
	store        kv.Store
	code         CodeStore
	constructors map[string]Constructor
	native       map[types.Address]contract.NativeContract
}

// New returns a ContractRegistry backed by store for persistence and code
// for EVM bytecode lookups, with every known native contract type
// constructor pre-registered.
func New(store kv.Store, code CodeStore) *ContractRegistry {
	r := &ContractRegistry{
		store:        store,
		code:         code,
		constructors: make(map[string]Constructor),
		native:       make(map[types.Address]contract.NativeContract),
	}
	r.RegisterType(contract.GreeterTypeTag, func(addr types.Address) contract.NativeContract {
		return contract.NewGreeter(addr, "", new(uint256.Int))
	})
	r.RegisterType(contract.ValidatorSetTypeTag, func(addr types.Address) contract.NativeContract {
		return contract.NewValidatorSet(addr, types.Address{})
	})
	r.registerConsensusContract()
	return r
}

// registerConsensusContract installs ValidatorSet at its reserved address
// (spec §6) instead of leaving it reachable only through the ordinary
// nonce-derived DeployNative path every other contract uses. The registry
// record is persisted immediately so a restart's Rehydrate scan finds it at
// the same fixed address and overwrites this placeholder instance with the
// real persisted fields.
func (r *ContractRegistry) registerConsensusContract() {
	r.native[ConsensusContractAddress] = contract.NewValidatorSet(ConsensusContractAddress, types.Address{})
	if ok, _ := r.store.Has(kv.PrefixRegistry, ConsensusContractAddress.Bytes()); !ok {
		_ = r.store.Put(kv.PrefixRegistry, ConsensusContractAddress.Bytes(), []byte(contract.ValidatorSetTypeTag))
	}
}

// RegisterType installs a Constructor for typeTag, used both by deployment
// and by Rehydrate.
func (r *ContractRegistry) RegisterType(typeTag string, ctor Constructor) {
	r.constructors[typeTag] = ctor
}

// Rehydrate reloads every native contract persisted under kv.PrefixRegistry
// at process startup, per spec §5's "startup rehydration from KV prefix
// 0x0007/0x0006". An unknown typeTag is fatal: the chain cannot resume
// correctly with a silently dropped contract.
func (r *ContractRegistry) Rehydrate() error {
	it := r.store.ScanPrefix(kv.PrefixRegistry)
	defer it.Release()
	for it.Next() {
		addr := types.BytesToAddress(it.Key())
		typeTag := string(it.Value())
		ctor, ok := r.constructors[typeTag]
		if !ok {
			return fmt.Errorf("%w: %q at %s", ErrUnknownTypeTag, typeTag, addr.Hex())
		}
		inst := ctor(addr)
		blob, err := r.store.Get(kv.PrefixContractData, append(addr.Bytes(), nativeBlobTag...))
		if err == nil {
			inst.Restore(blob)
		}
		r.native[addr] = inst
	}
	return nil
}

// DeployNative installs a new native contract of typeTag at an address
// derived exactly like CREATE (spec §5's "nonce-derived address identical
// to CREATE"), persists its registry record, and returns the address.
func (r *ContractRegistry) DeployNative(batch kv.Batch, deployer types.Address, deployerNonce uint64, typeTag string) (types.Address, contract.NativeContract, error) {
	ctor, ok := r.constructors[typeTag]
	if !ok {
		return types.Address{}, nil, fmt.Errorf("%w: %q", ErrUnknownTypeTag, typeTag)
	}
	addr := crypto.CreateAddress(deployer, deployerNonce)
	inst := ctor(addr)
	r.native[addr] = inst
	batch.Put(kv.PrefixRegistry, addr.Bytes(), []byte(typeTag))
	return addr, inst, nil
}

// IsReserved reports whether addr routes to a protocol singleton ahead of
// the ordinary native-contract table, per spec §4.5 rule 1.
func (r *ContractRegistry) IsReserved(addr types.Address) bool {
	return addr == ContractManagerAddress || addr == ConsensusContractAddress
}

// DispatchCreate handles a call to ContractManagerAddress: decodes the
// create selector and its ABI-encoded type-tag argument, then deploys the
// named native contract at crypto.CreateAddress(deployer, deployerNonce) —
// the identical formula EVM CREATE uses (spec §4.5's deployment paragraph).
// The caller (stateHost.NativeDispatch) is responsible for bumping the
// deployer's nonce on success, the same convention a top-level CREATE
// transaction follows.
//
// Like DispatchMutating, the deployment takes effect immediately rather
// than waiting for the enclosing call to finish; the returned revert
// closure un-registers the contract and its persisted record, so that a
// failed constructor call — an outer REVERT, an out-of-gas frame — leaves
// no trace (spec §8).
func (r *ContractRegistry) DispatchCreate(batch kv.Batch, deployer types.Address, deployerNonce uint64, input []byte) ([]byte, func(), error) {
	if len(input) < 4 {
		return nil, nil, ErrContractNotFound
	}
	var sel [4]byte
	copy(sel[:], input[:4])
	if sel != createSelector {
		return nil, nil, fmt.Errorf("registry: unknown contract manager selector %x", sel)
	}
	args, err := codec.DecodeArgs(input[4:], []codec.ABIType{{Kind: codec.ABIString}})
	if err != nil {
		return nil, nil, fmt.Errorf("registry: decode create args: %w", err)
	}

	addr, _, err := r.DeployNative(batch, deployer, deployerNonce, args[0].Str)
	if err != nil {
		return nil, nil, err
	}

	revert := func() {
		delete(r.native, addr)
		batch.Delete(kv.PrefixRegistry, addr.Bytes())
	}
	ret := codec.EncodeArgs([]codec.ABIValue{{Type: codec.ABIType{Kind: codec.ABIAddress}, Addr: addr}})
	return ret, revert, nil
}

// Lookup returns the native contract at addr, if any.
func (r *ContractRegistry) Lookup(addr types.Address) (contract.NativeContract, bool) {
	inst, ok := r.native[addr]
	return inst, ok
}

// IsEVMContract reports whether addr hosts EVM bytecode rather than a
// native contract.
func (r *ContractRegistry) IsEVMContract(addr types.Address) bool {
	_, isNative := r.native[addr]
	return !isNative && len(r.code.GetCode(addr)) > 0
}

// DispatchView routes a read-only call by 4-byte selector, per spec §4.7
// "view calls must not hit the mutating table".
func (r *ContractRegistry) DispatchView(addr types.Address, input []byte) ([]byte, error) {
	inst, ok := r.native[addr]
	if !ok {
		return nil, ErrContractNotFound
	}
	if len(input) < 4 {
		return nil, ErrContractNotFound
	}
	var sel [4]byte
	copy(sel[:], input[:4])
	return inst.DispatchView(sel, input[4:])
}

// DispatchMutating routes a state-changing call and, on success, commits
// the contract's SafeVar registry and persists its new snapshot; on
// failure it reverts in-memory overlays and touches no storage.
//
// A successful dispatch also returns a revert closure the caller must wire
// into its own snapshot journal (state.AccountStore.OnRevert). CommitFields
// happens immediately, before the enclosing call (or transaction) is known
// to succeed, so if an outer frame later reverts — a nested EVM REVERT, an
// out-of-gas top-level call, anything unwinding a snapshot taken before
// this dispatch — the closure restores the contract to its pre-call state
// and re-stages the KV batch entry, the native-contract equivalent of
// vm/interpreter_calls.go's RevertToSnapshot for SSTORE (spec §8's
// EVM-native call symmetry invariant). The closure is nil when err != nil:
// nothing was committed, so there is nothing to undo.
func (r *ContractRegistry) DispatchMutating(batch kv.Batch, addr types.Address, input []byte, value *uint256.Int) ([]byte, uint64, func(), error) {
	inst, ok := r.native[addr]
	if !ok {
		return nil, 0, nil, ErrContractNotFound
	}
	if len(input) < 4 {
		return nil, 0, nil, ErrContractNotFound
	}
	var sel [4]byte
	copy(sel[:], input[:4])

	preState := inst.Snapshot()
	ret, err := inst.DispatchMutating(sel, input[4:], value)
	gasUsed := nativeCallGas(inst.DirtyFieldCount())
	if err != nil {
		inst.RevertFields()
		return nil, gasUsed, nil, err
	}
	inst.CommitFields()
	blobKey := append(addr.Bytes(), nativeBlobTag...)
	batch.Put(kv.PrefixContractData, blobKey, inst.Snapshot())

	revert := func() {
		inst.Restore(preState)
		batch.Put(kv.PrefixContractData, blobKey, preState)
	}
	return ret, gasUsed, revert, nil
}

// nativeCallGas prices a completed native dispatch: a flat base plus a
// per-distinct-SafeVar-touched surcharge, resolving SPEC_FULL.md's native
// call gas metering Open Question (see DESIGN.md).
func nativeCallGas(dirtyFields int) uint64 {
	const nativeCallBaseGas = 700
	const nativeSafeVarTouchGas = 200
	return nativeCallBaseGas + uint64(dirtyFields)*nativeSafeVarTouchGas
}
