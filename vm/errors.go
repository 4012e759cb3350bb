package vm

// vmError is a sentinel execution-halting error: it unwinds the current
// call frame (reverting its state changes) but never the caller, mirroring
// how the teacher's interpreter treats "exceptional halts" versus REVERT.
type vmError struct{ msg string }

func (e *vmError) Error() string { return e.msg }

func newVMError(msg string) error { return &vmError{msg: msg} }

var (
	ErrOutOfGas              = newVMError("out of gas")
	ErrInvalidJump           = newVMError("invalid jump destination")
	ErrInvalidOpcode         = newVMError("invalid opcode")
	ErrWriteProtection       = newVMError("write protection: state-modifying op in static call")
	ErrReturnDataOutOfBounds = newVMError("return data out of bounds")
	ErrCallDepthExceeded     = newVMError("max call depth exceeded")
	ErrContractAddressCollision = newVMError("contract address collision")
	ErrCodeStoreOutOfGas     = newVMError("contract creation code storage out of gas")
	ErrMaxCodeSizeExceeded   = newVMError("max code size exceeded")
	ErrMaxInitCodeSizeExceeded = newVMError("max init code size exceeded")
	ErrExecutionReverted     = newVMError("execution reverted")
	ErrInsufficientBalanceForCall = newVMError("insufficient balance for call value")
	ErrNonceOverflow         = newVMError("nonce overflow")
	ErrPrecompileFailed      = newVMError("precompile execution failed")
)
