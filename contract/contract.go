// Package contract implements exacore's native ("precompiled business
// logic") contracts: Go types whose methods are reachable by 4-byte
// selector the same way EVM bytecode is reachable by its own dispatcher,
// but running as ordinary Go code against safevar.Registry-backed fields
// instead of an interpreter loop (spec §5, §9). Grounded on
// original_source/src/contract/simplecontract.h and dynamiccontract.h's
// view/nonpayable/payable function tables.
package contract

import (
	"errors"

	"github.com/holiman/uint256"

	"github.com/exacore/exacore/safevar"
	"github.com/exacore/exacore/types"
)

var (
	// ErrUnknownSelector is returned when no registered function matches
	// the requested 4-byte selector.
	ErrUnknownSelector = errors.New("contract: unknown function selector")
	// ErrViewCallToMutating is returned when a read-only (ViewCall) request
	// targets a selector registered only in the mutating table, per spec
	// §4.7's "view calls must not reach the mutating table" rule.
	ErrViewCallToMutating = errors.New("contract: selector is not a view function")
	// ErrNotPayable rejects value sent to a selector not marked payable.
	ErrNotPayable = errors.New("contract: function is not payable")
)

// ViewFunc serves a read-only call: it must not mutate any SafeVar field.
type ViewFunc func(input []byte) ([]byte, error)

// MutatingFunc serves a state-changing call, optionally carrying value.
type MutatingFunc func(input []byte, value *uint256.Int) ([]byte, error)

// NativeContract is the interface the registry package dispatches against.
// Every concrete contract (Greeter, ValidatorSet, ...) satisfies it by
// embedding Base.
type NativeContract interface {
	Address() types.Address
	TypeTag() string
	DispatchView(selector [4]byte, input []byte) ([]byte, error)
	DispatchMutating(selector [4]byte, input []byte, value *uint256.Int) ([]byte, error)
	// Snapshot/Restore persist and rehydrate the contract's SafeVar fields
	// across process restarts, independent of the per-transaction
	// commit/revert safevar.Registry already provides (spec §4.7's
	// distinction between in-memory snapshot/revert and end-of-block
	// persistence, generalized from state.AccountStore to native contracts).
	Snapshot() []byte
	Restore(data []byte)

	// CommitFields/RevertFields/DirtyFieldCount expose the contract's
	// safevar.Registry to the registry package without that package
	// importing safevar directly — the registry only needs to drive the
	// commit/revert lifecycle and read the dirty count for native-call gas
	// metering (spec's native call gas Open Question, see DESIGN.md).
	CommitFields()
	RevertFields()
	DirtyFieldCount() int
}

// Base is the embeddable core every native contract shares: its address,
// its SafeVar registry, and its selector dispatch tables. Grounded on
// dynamiccontract.h's registerFunction/registerViewFunction/
// registerPayableFunction triad, collapsed into two tables plus a payable
// set since exacore does not need the mutability string at runtime once
// dispatch has been wired up.
type Base struct {
	address  types.Address
	typeTag  string
	registry *safevar.Registry

	viewFuncs map[[4]byte]ViewFunc
	mutFuncs  map[[4]byte]MutatingFunc
	payable   map[[4]byte]bool
}

// NewBase returns a Base ready for the concrete contract to register its
// selectors against.
func NewBase(address types.Address, typeTag string) Base {
	return Base{
		address:   address,
		typeTag:   typeTag,
		registry:  safevar.NewRegistry(),
		viewFuncs: make(map[[4]byte]ViewFunc),
		mutFuncs:  make(map[[4]byte]MutatingFunc),
		payable:   make(map[[4]byte]bool),
	}
}

func (b *Base) Address() types.Address      { return b.address }
func (b *Base) TypeTag() string             { return b.typeTag }
func (b *Base) Registry() *safevar.Registry { return b.registry }

func (b *Base) CommitFields()        { b.registry.Commit() }
func (b *Base) RevertFields()        { b.registry.Revert() }
func (b *Base) DirtyFieldCount() int { return b.registry.DirtyCount() }

// RegisterView wires selector to a read-only function.
func (b *Base) RegisterView(selector [4]byte, fn ViewFunc) {
	b.viewFuncs[selector] = fn
}

// RegisterMutating wires selector to a state-changing function. payable
// allows callers to attach value; non-payable mutating selectors reject it.
func (b *Base) RegisterMutating(selector [4]byte, payable bool, fn MutatingFunc) {
	b.mutFuncs[selector] = fn
	b.payable[selector] = payable
}

// DispatchView routes a view call. Mutating-only selectors are rejected —
// the registry's ViewCall path must never touch state.
func (b *Base) DispatchView(selector [4]byte, input []byte) ([]byte, error) {
	if fn, ok := b.viewFuncs[selector]; ok {
		return fn(input)
	}
	if _, ok := b.mutFuncs[selector]; ok {
		return nil, ErrViewCallToMutating
	}
	return nil, ErrUnknownSelector
}

// DispatchMutating routes a state-changing call, falling back to the view
// table (a view function is always safely callable in a mutating context).
func (b *Base) DispatchMutating(selector [4]byte, input []byte, value *uint256.Int) ([]byte, error) {
	if fn, ok := b.mutFuncs[selector]; ok {
		if !b.payable[selector] && value != nil && !value.IsZero() {
			return nil, ErrNotPayable
		}
		return fn(input, value)
	}
	if fn, ok := b.viewFuncs[selector]; ok {
		return fn(input)
	}
	return nil, ErrUnknownSelector
}
