package vm

import (
	"github.com/holiman/uint256"

	"github.com/exacore/exacore/crypto"
	"github.com/exacore/exacore/types"
)

// CreateKind distinguishes CREATE (nonce-derived address) from CREATE2
// (salt-derived address). Grounded on the teacher's core/vm/evm_create.go
// CreateKind; address derivation itself is delegated to exacore's own
// crypto.CreateAddress/CreateAddress2 rather than reimplemented here.
type CreateKind uint8

const (
	CreateKindCreate CreateKind = iota
	CreateKindCreate2
)

// MaxCodeSize is the EIP-170 bound on deployed contract code.
const MaxCodeSize = 24576

// MaxInitCodeSize is the EIP-3860 bound on CREATE/CREATE2 init code.
const MaxInitCodeSize = 2 * MaxCodeSize

// codeDepositGasPerByte is the gas charged per byte of code actually stored
// at the end of a successful contract creation (EIP spec, unchanged since
// Frontier).
const codeDepositGasPerByte = 200

// CreateParams describes one CREATE/CREATE2 invocation.
type CreateParams struct {
	Kind     CreateKind
	Caller   types.Address
	Value    *uint256.Int
	InitCode []byte
	Gas      uint64
	Salt     [32]byte // only meaningful for CreateKindCreate2
	Depth    int
}

// CreateResult is what CREATE/CREATE2 leaves on the stack/returndata.
type CreateResult struct {
	Success      bool
	Address      types.Address
	ReturnData   []byte // revert reason, on failure
	GasLeft      uint64
	Err          error
}

// ComputeAddress derives the address a CreateParams will deploy to.
func ComputeAddress(p CreateParams, callerNonce uint64) types.Address {
	if p.Kind == CreateKindCreate2 {
		initCodeHash := crypto.Keccak256(p.InitCode)
		return crypto.CreateAddress2(p.Caller, p.Salt, initCodeHash)
	}
	return crypto.CreateAddress(p.Caller, callerNonce)
}

// ValidateInitCode enforces EIP-3860's init-code size cap before any gas is
// spent executing it.
func ValidateInitCode(initCode []byte) error {
	if len(initCode) > MaxInitCodeSize {
		return ErrMaxInitCodeSizeExceeded
	}
	return nil
}

// ValidateDeployedCode enforces EIP-170's deployed-code size cap and the
// EIP-3541 "no 0xEF prefix" rule (reserved for the EOF format exacore does
// not implement, so code starting with it is simply rejected rather than
// given EOF semantics).
func ValidateDeployedCode(code []byte) error {
	if len(code) > MaxCodeSize {
		return ErrMaxCodeSizeExceeded
	}
	if len(code) > 0 && code[0] == 0xef {
		return ErrInvalidOpcode
	}
	return nil
}

// CalcCodeDepositGas returns the gas cost of persisting codeLen bytes of
// newly deployed code.
func CalcCodeDepositGas(codeLen int) uint64 {
	return uint64(codeLen) * codeDepositGasPerByte
}

// HasCollision reports whether an address already hosts code or a nonzero
// nonce — CREATE/CREATE2 to such an address fails per spec §6 (mirrors the
// teacher's CreateExecutor.CheckCollision).
func HasCollision(host Host, addr types.Address) bool {
	return host.GetCodeSize(addr) > 0 || host.GetNonce(addr) > 0
}
