package vm

import (
	"github.com/holiman/uint256"

	"github.com/exacore/exacore/types"
)

// CallKind distinguishes the four EVM call-family opcodes, each with its
// own effective-address/value/storage-context semantics. Grounded on the
// teacher's core/vm/contract_call.go CallKind.
type CallKind uint8

const (
	CallKindCall CallKind = iota
	CallKindCallCode
	CallKindDelegateCall
	CallKindStaticCall
)

func (k CallKind) String() string {
	switch k {
	case CallKindCall:
		return "CALL"
	case CallKindCallCode:
		return "CALLCODE"
	case CallKindDelegateCall:
		return "DELEGATECALL"
	case CallKindStaticCall:
		return "STATICCALL"
	default:
		return "UNKNOWN"
	}
}

// CallParams describes one call-family invocation from the interpreter's
// point of view, before effective-address/value resolution.
type CallParams struct {
	Kind       CallKind
	Caller     types.Address // msg.sender context of the calling frame
	CallerAddr types.Address // storage/self context of the calling frame (== Caller unless delegatecalled itself)
	Target     types.Address // address being called (code source)
	Value      *uint256.Int  // nil for DELEGATECALL/STATICCALL
	Input      []byte
	Gas        uint64
	Depth      int
	Static     bool
}

// EffectiveStorageAddress returns the account whose storage the callee
// reads/writes: itself for CALL/STATICCALL, the caller's account for
// CALLCODE/DELEGATECALL.
func (p CallParams) EffectiveStorageAddress() types.Address {
	switch p.Kind {
	case CallKindCallCode, CallKindDelegateCall:
		return p.CallerAddr
	default:
		return p.Target
	}
}

// EffectiveValue returns the value attached to the call as seen by the
// callee: DELEGATECALL carries the parent frame's value forward instead of
// its own (it cannot move funds), CALLCODE keeps an explicit value but
// against the caller's own balance.
func (p CallParams) EffectiveValue(parentValue *uint256.Int) *uint256.Int {
	if p.Kind == CallKindDelegateCall {
		return parentValue
	}
	if p.Value == nil {
		return new(uint256.Int)
	}
	return p.Value
}

// IsStaticContext reports whether the callee must run in read-only mode:
// either the call itself is STATICCALL, or the parent frame already was.
func (p CallParams) IsStaticContext() bool {
	return p.Kind == CallKindStaticCall || p.Static
}

// CallResult is what a call-family operation leaves on the stack/returndata.
type CallResult struct {
	Success    bool
	ReturnData []byte
	GasLeft    uint64
	Err        error
}

// callStipend is the free gas grain forwarded to a value-bearing CALL so the
// callee can at minimum emit a log or touch trivial state, per EIP (and the
// teacher's CallGasCalculator.ChildGas).
const callStipend = 2300

// ChildGas implements the EIP-150 "63/64ths" rule: a CALL-family opcode may
// forward at most availableGas - availableGas/64 to the child frame, plus a
// stipend when it is carrying value. requestedGas is whatever the caller
// pushed on the stack (capped, not exceeded, by the 63/64 rule).
// Grounded on the teacher's core/vm/contract_call.go CallGasCalculator.ChildGas.
func ChildGas(availableGas, requestedGas uint64, hasValue bool) uint64 {
	capped := availableGas - availableGas/64
	forwarded := requestedGas
	if forwarded > capped {
		forwarded = capped
	}
	if hasValue {
		forwarded += callStipend
	}
	return forwarded
}

// CallDepthChecker rejects call-family operations and CREATE once the call
// stack reaches types.MaxCallDepth, per spec §4.7 and the teacher's
// CallDepthChecker.
func CallDepthChecker(depth int) error {
	if depth >= types.MaxCallDepth {
		return ErrCallDepthExceeded
	}
	return nil
}
