// Package vm implements exacore's EVM-compatible bytecode interpreter: the
// L3 layer of the spec's component stack, sitting on top of the state
// package's AccountStore (reached only through the Host interface) and
// below the executor package's per-transaction orchestration.
//
// Scope trim: the teacher's core/vm carries a large speculative surface —
// EOF containers, an ewasm engine, zkISA precompiles, shielded-crypto
// opcodes, a parallel executor, BLS precompiles, account-abstraction
// execution, and per-fork jump-table history going back to Frontier. None
// of that is reachable from spec.md's scenarios (a single-fork,
// Cancun-equivalent account-based EVM), so exacore implements one fixed
// opcode set and one fixed gas schedule instead of the teacher's versioned
// jump tables. See DESIGN.md's "### vm" entry for the itemized drop list.
package vm

import (
	"github.com/holiman/uint256"

	"github.com/exacore/exacore/crypto"
	"github.com/exacore/exacore/types"
)

// Interpreter executes EVM bytecode against a Host. It is stateless between
// calls; all mutable execution state lives in the per-call frame it builds
// in Run.
type Interpreter struct {
	host Host
}

// NewInterpreter returns an Interpreter bound to host.
func NewInterpreter(host Host) *Interpreter {
	return &Interpreter{host: host}
}

// frame is the interpreter's working state for one running Contract.
type frame struct {
	contract   *Contract
	stack      *Stack
	memory     *Memory
	pc         uint64
	gas        uint64
	returnData []byte
	depth      int
}

// Run executes contract's code from pc 0 until STOP/RETURN/REVERT or an
// error halts it. It never panics across this boundary: every failure mode
// is returned as a CallResult.
func (in *Interpreter) Run(contract *Contract, depth int) CallResult {
	if len(contract.Code) == 0 {
		return CallResult{Success: true, GasLeft: contract.Gas}
	}
	f := &frame{
		contract: contract,
		stack:    newStack(),
		memory:   newMemory(),
		gas:      contract.Gas,
		depth:    depth,
	}

	for {
		if int(f.pc) >= len(f.contract.Code) {
			return CallResult{Success: true, GasLeft: f.gas}
		}
		op := OpCode(f.contract.Code[f.pc])

		halt, result, err := in.step(f, op)
		if err != nil {
			if err == ErrExecutionReverted {
				return CallResult{Success: false, ReturnData: f.returnData, GasLeft: f.gas, Err: err}
			}
			return CallResult{Success: false, GasLeft: 0, Err: err}
		}
		if halt {
			return result
		}
	}
}

// useGas deducts cost from f.gas, returning ErrOutOfGas if insufficient.
func (f *frame) useGas(cost uint64) error {
	if f.gas < cost {
		f.gas = 0
		return ErrOutOfGas
	}
	f.gas -= cost
	return nil
}

// expandMemory charges the quadratic memory-expansion cost needed to reach
// offset+size bytes and grows the buffer.
func (f *frame) expandMemory(offset, size uint64) error {
	if size == 0 {
		return nil
	}
	if offset+size < offset { // overflow
		return ErrOutOfGas
	}
	cost := memoryExpansionCost(uint64(f.memory.Len()), offset+size)
	if err := f.useGas(cost); err != nil {
		return err
	}
	f.memory.resize(offset + size)
	return nil
}

// requireNotStatic rejects state-mutating opcodes inside a STATICCALL
// context, per spec §4.6.
func (f *frame) requireNotStatic() error {
	if f.contract.IsStatic {
		return ErrWriteProtection
	}
	return nil
}

// step executes a single instruction, returning (halted, result, err).
// halted is true once the frame has produced a final CallResult (STOP,
// RETURN, SELFDESTRUCT); err is non-nil for any halting failure.
func (in *Interpreter) step(f *frame, op OpCode) (bool, CallResult, error) {
	switch {
	case op.IsPush():
		return in.opPush(f, op)
	case op.IsDup():
		return false, CallResult{}, f.opDup(op)
	case op.IsSwap():
		return false, CallResult{}, f.opSwap(op)
	case op.IsLog():
		return false, CallResult{}, in.opLog(f, op)
	}

	switch op {
	case STOP:
		return true, CallResult{Success: true, GasLeft: f.gas}, nil
	case ADD, MUL, SUB, DIV, SDIV, MOD, SMOD, SIGNEXTEND,
		LT, GT, SLT, SGT, EQ, AND, OR, XOR, BYTE, SHL, SHR, SAR:
		return false, CallResult{}, f.opBinary(op)
	case ADDMOD, MULMOD:
		return false, CallResult{}, f.opTernary(op)
	case EXP:
		return false, CallResult{}, f.opExp()
	case ISZERO, NOT:
		return false, CallResult{}, f.opUnary(op)
	case SHA3:
		return false, CallResult{}, f.opSha3()
	case ADDRESS:
		return false, CallResult{}, f.pushAddress(f.contract.Address)
	case BALANCE:
		return false, CallResult{}, in.opBalance(f)
	case ORIGIN:
		return false, CallResult{}, f.pushAddress(in.host.TxContext().Origin)
	case CALLER:
		return false, CallResult{}, f.pushAddress(f.contract.Caller)
	case CALLVALUE:
		return false, CallResult{}, f.push(f.contract.Value)
	case CALLDATALOAD:
		return false, CallResult{}, f.opCalldataload()
	case CALLDATASIZE:
		return false, CallResult{}, f.pushUint64(uint64(len(f.contract.Input)))
	case CALLDATACOPY:
		return false, CallResult{}, f.opDataCopy(f.contract.Input)
	case CODESIZE:
		return false, CallResult{}, f.pushUint64(uint64(len(f.contract.Code)))
	case CODECOPY:
		return false, CallResult{}, f.opDataCopy(f.contract.Code)
	case GASPRICE:
		return false, CallResult{}, f.push(in.host.TxContext().GasPrice)
	case EXTCODESIZE:
		return false, CallResult{}, in.opExtcodesize(f)
	case EXTCODECOPY:
		return false, CallResult{}, in.opExtcodecopy(f)
	case RETURNDATASIZE:
		return false, CallResult{}, f.pushUint64(uint64(len(f.returnData)))
	case RETURNDATACOPY:
		return false, CallResult{}, f.opReturnDataCopy()
	case EXTCODEHASH:
		return false, CallResult{}, in.opExtcodehash(f)
	case BLOCKHASH:
		return false, CallResult{}, in.opBlockhash(f)
	case COINBASE:
		return false, CallResult{}, f.pushAddress(in.host.BlockContext().Coinbase)
	case TIMESTAMP:
		return false, CallResult{}, f.pushUint64(in.host.BlockContext().Timestamp)
	case NUMBER:
		return false, CallResult{}, f.pushUint64(in.host.BlockContext().Number)
	case DIFFICULTY:
		return false, CallResult{}, f.pushUint64(0)
	case GASLIMIT:
		return false, CallResult{}, f.pushUint64(in.host.BlockContext().GasLimit)
	case CHAINID:
		return false, CallResult{}, f.pushUint64(in.host.BlockContext().ChainID)
	case SELFBALANCE:
		return false, CallResult{}, f.push(in.host.GetBalance(f.contract.Address))
	case BASEFEE:
		return false, CallResult{}, f.pushUint64(0)
	case POP:
		_, err := f.stack.pop()
		return false, CallResult{}, err
	case MLOAD:
		return false, CallResult{}, f.opMload()
	case MSTORE:
		return false, CallResult{}, f.opMstore()
	case MSTORE8:
		return false, CallResult{}, f.opMstore8()
	case SLOAD:
		return false, CallResult{}, in.opSload(f)
	case SSTORE:
		return false, CallResult{}, in.opSstore(f)
	case JUMP:
		return false, CallResult{}, f.opJump()
	case JUMPI:
		return false, CallResult{}, f.opJumpi()
	case PC:
		return false, CallResult{}, f.pushUint64(f.pc)
	case MSIZE:
		return false, CallResult{}, f.pushUint64(uint64(f.memory.Len()))
	case GAS:
		return false, CallResult{}, f.pushUint64(f.gas)
	case JUMPDEST:
		f.pc++
		return false, CallResult{}, f.useGas(GasJumpdest)
	case TLOAD:
		return false, CallResult{}, in.opTload(f)
	case TSTORE:
		return false, CallResult{}, in.opTstore(f)
	case MCOPY:
		return false, CallResult{}, f.opMcopy()
	case CREATE, CREATE2:
		return in.opCreate(f, op)
	case CALL, CALLCODE, DELEGATECALL, STATICCALL:
		return in.opCall(f, op)
	case RETURN:
		return in.opReturn(f)
	case REVERT:
		return in.opRevert(f)
	case SELFDESTRUCT:
		return in.opSelfdestruct(f)
	case INVALID:
		return true, CallResult{}, ErrInvalidOpcode
	default:
		return true, CallResult{}, ErrInvalidOpcode
	}
}

// --- stack/push helpers ---

func (f *frame) push(v *uint256.Int) error {
	f.pc++
	if err := f.useGas(GasFastestStep); err != nil {
		return err
	}
	return f.stack.push(v)
}

func (f *frame) pushUint64(v uint64) error {
	f.pc++
	if err := f.useGas(GasQuickStep); err != nil {
		return err
	}
	return f.stack.push(uint256.NewInt(v))
}

func (f *frame) pushAddress(addr types.Address) error {
	f.pc++
	if err := f.useGas(GasQuickStep); err != nil {
		return err
	}
	return f.stack.push(new(uint256.Int).SetBytes(addr.Bytes()))
}

func (in *Interpreter) opPush(f *frame, op OpCode) (bool, CallResult, error) {
	n := op.PushSize()
	start := int(f.pc) + 1
	end := start + n
	code := f.contract.Code
	var buf [32]byte
	if start < len(code) {
		copyEnd := end
		if copyEnd > len(code) {
			copyEnd = len(code)
		}
		copy(buf[32-n:32-n+(copyEnd-start)], code[start:copyEnd])
	}
	v := new(uint256.Int).SetBytes(buf[:])
	if err := f.useGas(GasFastestStep); err != nil {
		return true, CallResult{}, err
	}
	if err := f.stack.push(v); err != nil {
		return true, CallResult{}, err
	}
	f.pc = uint64(end)
	return false, CallResult{}, nil
}

func (f *frame) opDup(op OpCode) error {
	n := int(op-DUP1) + 1
	if err := f.useGas(GasFastestStep); err != nil {
		return err
	}
	if err := f.stack.dup(n); err != nil {
		return err
	}
	f.pc++
	return nil
}

func (f *frame) opSwap(op OpCode) error {
	n := int(op-SWAP1) + 1
	if err := f.useGas(GasFastestStep); err != nil {
		return err
	}
	if err := f.stack.swap(n); err != nil {
		return err
	}
	f.pc++
	return nil
}

// --- arithmetic / comparison / bitwise ---

func (f *frame) opUnary(op OpCode) error {
	if err := f.useGas(GasFastestStep); err != nil {
		return err
	}
	a, err := f.stack.peek()
	if err != nil {
		return err
	}
	switch op {
	case ISZERO:
		if a.IsZero() {
			a.SetOne()
		} else {
			a.Clear()
		}
	case NOT:
		a.Not(a)
	}
	f.pc++
	return nil
}

func (f *frame) opBinary(op OpCode) error {
	cost := GasFastestStep
	if op == SHL || op == SHR || op == SAR {
		cost = GasFastestStep
	}
	if err := f.useGas(cost); err != nil {
		return err
	}
	b, err := f.stack.pop()
	if err != nil {
		return err
	}
	a, err := f.stack.peek()
	if err != nil {
		return err
	}
	// b is the popped top-of-stack operand (μs[0]); a is the operand now
	// left at the top after the pop (μs[1]), and also where the result is
	// written. Binary ops that read in top-then-second order (SUB, DIV,
	// comparisons, BYTE, shifts) must compute against b first, a second —
	// mirroring the teacher's geth-derived opSub/opLt/opByte/opSHL pattern
	// of popping the first operand and peeking the second as the result slot.
	switch op {
	case ADD:
		a.Add(a, &b)
	case MUL:
		a.Mul(a, &b)
	case SUB:
		a.Sub(&b, a)
	case DIV:
		a.Div(&b, a)
	case SDIV:
		a.SDiv(&b, a)
	case MOD:
		a.Mod(&b, a)
	case SMOD:
		a.SMod(&b, a)
	case SIGNEXTEND:
		a.ExtendSign(a, &b)
	case LT:
		if b.Lt(a) {
			a.SetOne()
		} else {
			a.Clear()
		}
	case GT:
		if b.Gt(a) {
			a.SetOne()
		} else {
			a.Clear()
		}
	case SLT:
		if b.Slt(a) {
			a.SetOne()
		} else {
			a.Clear()
		}
	case SGT:
		if b.Sgt(a) {
			a.SetOne()
		} else {
			a.Clear()
		}
	case EQ:
		if a.Eq(&b) {
			a.SetOne()
		} else {
			a.Clear()
		}
	case AND:
		a.And(a, &b)
	case OR:
		a.Or(a, &b)
	case XOR:
		a.Xor(a, &b)
	case BYTE:
		a.Byte(&b)
	case SHL:
		shiftLeft(a, &b)
	case SHR:
		shiftRight(a, &b)
	case SAR:
		shiftArith(a, &b)
	}
	f.pc++
	return nil
}

// shiftLeft/shiftRight/shiftArith implement SHL/SHR/SAR: value is the
// operand left at the stack top (mutated in place to hold the result),
// shift is the popped shift amount.
func shiftLeft(value *uint256.Int, shift *uint256.Int) {
	if shift.GtUint64(255) {
		value.Clear()
		return
	}
	value.Lsh(value, uint(shift.Uint64()))
}

func shiftRight(value *uint256.Int, shift *uint256.Int) {
	if shift.GtUint64(255) {
		value.Clear()
		return
	}
	value.Rsh(value, uint(shift.Uint64()))
}

func shiftArith(value *uint256.Int, shift *uint256.Int) {
	n := uint(256)
	if shift.LtUint64(256) {
		n = uint(shift.Uint64())
	}
	value.SRsh(value, n)
}

func (f *frame) opTernary(op OpCode) error {
	if err := f.useGas(GasMidStep); err != nil {
		return err
	}
	c, err := f.stack.pop()
	if err != nil {
		return err
	}
	b, err := f.stack.pop()
	if err != nil {
		return err
	}
	a, err := f.stack.peek()
	if err != nil {
		return err
	}
	// c = μs[0], b = μs[1] (the two addends/factors), a = μs[2], the
	// modulus and result slot.
	switch op {
	case ADDMOD:
		a.AddMod(&c, &b, a)
	case MULMOD:
		a.MulMod(&c, &b, a)
	}
	f.pc++
	return nil
}

func (f *frame) opExp() error {
	b, err := f.stack.pop()
	if err != nil {
		return err
	}
	e, err := f.stack.peek()
	if err != nil {
		return err
	}
	byteLen := (e.BitLen() + 7) / 8
	cost := GasSlowStep + 50*uint64(byteLen)
	if err := f.useGas(cost); err != nil {
		return err
	}
	e.Exp(&b, e)
	f.pc++
	return nil
}

func (f *frame) opSha3() error {
	offset, err := f.stack.pop()
	if err != nil {
		return err
	}
	size, err := f.stack.pop()
	if err != nil {
		return err
	}
	off, sz := offset.Uint64(), size.Uint64()
	if err := f.expandMemory(off, sz); err != nil {
		return err
	}
	cost := GasSha3Base + GasSha3Word*numWords(sz)
	if err := f.useGas(cost); err != nil {
		return err
	}
	data := f.memory.getPtr(off, sz)
	hash := crypto.Keccak256(data)
	if err := f.stack.push(new(uint256.Int).SetBytes(hash)); err != nil {
		return err
	}
	f.pc++
	return nil
}

// --- environment / calldata / code ---

func (f *frame) opCalldataload() error {
	if err := f.useGas(GasFastestStep); err != nil {
		return err
	}
	offset, err := f.stack.pop()
	if err != nil {
		return err
	}
	var buf [32]byte
	if offset.IsUint64() {
		off := offset.Uint64()
		if off < uint64(len(f.contract.Input)) {
			n := copy(buf[:], f.contract.Input[off:])
			_ = n
		}
	}
	if err := f.stack.push(new(uint256.Int).SetBytes(buf[:])); err != nil {
		return err
	}
	f.pc++
	return nil
}

func (f *frame) opDataCopy(src []byte) error {
	destOffset, err := f.stack.pop()
	if err != nil {
		return err
	}
	srcOffset, err := f.stack.pop()
	if err != nil {
		return err
	}
	length, err := f.stack.pop()
	if err != nil {
		return err
	}
	dOff, sOff, ln := destOffset.Uint64(), srcOffset.Uint64(), length.Uint64()
	if err := f.expandMemory(dOff, ln); err != nil {
		return err
	}
	if err := f.useGas(GasFastestStep + GasCopyWord*numWords(ln)); err != nil {
		return err
	}
	buf := make([]byte, ln)
	if sOff < uint64(len(src)) {
		copy(buf, src[sOff:])
	}
	f.memory.set(dOff, ln, buf)
	f.pc++
	return nil
}

func (f *frame) opReturnDataCopy() error {
	destOffset, err := f.stack.pop()
	if err != nil {
		return err
	}
	srcOffset, err := f.stack.pop()
	if err != nil {
		return err
	}
	length, err := f.stack.pop()
	if err != nil {
		return err
	}
	dOff, sOff, ln := destOffset.Uint64(), srcOffset.Uint64(), length.Uint64()
	if sOff+ln > uint64(len(f.returnData)) {
		return ErrReturnDataOutOfBounds
	}
	if err := f.expandMemory(dOff, ln); err != nil {
		return err
	}
	if err := f.useGas(GasFastestStep + GasCopyWord*numWords(ln)); err != nil {
		return err
	}
	f.memory.set(dOff, ln, f.returnData[sOff:sOff+ln])
	f.pc++
	return nil
}

func (in *Interpreter) opBalance(f *frame) error {
	if err := f.useGas(GasColdAccount); err != nil {
		return err
	}
	addrWord, err := f.stack.peek()
	if err != nil {
		return err
	}
	addr := types.BytesToAddress(addrWord.Bytes())
	addrWord.Set(in.host.GetBalance(addr))
	f.pc++
	return nil
}

func (in *Interpreter) opExtcodesize(f *frame) error {
	if err := f.useGas(GasColdAccount); err != nil {
		return err
	}
	addrWord, err := f.stack.peek()
	if err != nil {
		return err
	}
	addr := types.BytesToAddress(addrWord.Bytes())
	addrWord.SetUint64(uint64(in.host.GetCodeSize(addr)))
	f.pc++
	return nil
}

func (in *Interpreter) opExtcodecopy(f *frame) error {
	addrWord, err := f.stack.pop()
	if err != nil {
		return err
	}
	destOffset, err := f.stack.pop()
	if err != nil {
		return err
	}
	srcOffset, err := f.stack.pop()
	if err != nil {
		return err
	}
	length, err := f.stack.pop()
	if err != nil {
		return err
	}
	addr := types.BytesToAddress(addrWord.Bytes())
	dOff, sOff, ln := destOffset.Uint64(), srcOffset.Uint64(), length.Uint64()
	if err := f.expandMemory(dOff, ln); err != nil {
		return err
	}
	if err := f.useGas(GasColdAccount + GasCopyWord*numWords(ln)); err != nil {
		return err
	}
	code := in.host.GetCode(addr)
	buf := make([]byte, ln)
	if sOff < uint64(len(code)) {
		copy(buf, code[sOff:])
	}
	f.memory.set(dOff, ln, buf)
	f.pc++
	return nil
}

func (in *Interpreter) opExtcodehash(f *frame) error {
	if err := f.useGas(GasColdAccount); err != nil {
		return err
	}
	addrWord, err := f.stack.peek()
	if err != nil {
		return err
	}
	addr := types.BytesToAddress(addrWord.Bytes())
	if !in.host.AccountExists(addr) {
		addrWord.Clear()
		f.pc++
		return nil
	}
	addrWord.SetBytes(in.host.GetCodeHash(addr).Bytes())
	f.pc++
	return nil
}

func (in *Interpreter) opBlockhash(f *frame) error {
	if err := f.useGas(GasExtStep); err != nil {
		return err
	}
	n, err := f.stack.peek()
	if err != nil {
		return err
	}
	bc := in.host.BlockContext()
	var hash types.Hash
	if n.IsUint64() && bc.GetHash != nil {
		hash = bc.GetHash(n.Uint64())
	}
	n.SetBytes(hash.Bytes())
	f.pc++
	return nil
}

// --- memory ---

func (f *frame) opMload() error {
	offset, err := f.stack.pop()
	if err != nil {
		return err
	}
	off := offset.Uint64()
	if err := f.expandMemory(off, 32); err != nil {
		return err
	}
	if err := f.useGas(GasFastestStep); err != nil {
		return err
	}
	v := new(uint256.Int).SetBytes(f.memory.getPtr(off, 32))
	if err := f.stack.push(v); err != nil {
		return err
	}
	f.pc++
	return nil
}

func (f *frame) opMstore() error {
	offset, err := f.stack.pop()
	if err != nil {
		return err
	}
	val, err := f.stack.pop()
	if err != nil {
		return err
	}
	off := offset.Uint64()
	if err := f.expandMemory(off, 32); err != nil {
		return err
	}
	if err := f.useGas(GasFastestStep); err != nil {
		return err
	}
	f.memory.set32(off, &val)
	f.pc++
	return nil
}

func (f *frame) opMstore8() error {
	offset, err := f.stack.pop()
	if err != nil {
		return err
	}
	val, err := f.stack.pop()
	if err != nil {
		return err
	}
	off := offset.Uint64()
	if err := f.expandMemory(off, 1); err != nil {
		return err
	}
	if err := f.useGas(GasFastestStep); err != nil {
		return err
	}
	f.memory.set(off, 1, []byte{byte(val.Uint64())})
	f.pc++
	return nil
}

func (f *frame) opMcopy() error {
	destOffset, err := f.stack.pop()
	if err != nil {
		return err
	}
	srcOffset, err := f.stack.pop()
	if err != nil {
		return err
	}
	length, err := f.stack.pop()
	if err != nil {
		return err
	}
	dOff, sOff, ln := destOffset.Uint64(), srcOffset.Uint64(), length.Uint64()
	hi := dOff
	if sOff+ln > hi {
		hi = sOff + ln
	}
	if err := f.expandMemory(hi, 0); err != nil {
		return err
	}
	if err := f.expandMemory(dOff, ln); err != nil {
		return err
	}
	if err := f.expandMemory(sOff, ln); err != nil {
		return err
	}
	if err := f.useGas(GasFastestStep + GasCopyWord*numWords(ln)); err != nil {
		return err
	}
	data := f.memory.getCopy(sOff, ln)
	f.memory.set(dOff, ln, data)
	f.pc++
	return nil
}

// --- storage ---

func (in *Interpreter) opSload(f *frame) error {
	if err := f.useGas(GasColdSload); err != nil {
		return err
	}
	keyWord, err := f.stack.peek()
	if err != nil {
		return err
	}
	key := types.BytesToHash(keyWord.Bytes())
	val := in.host.GetState(f.contract.Address, key)
	keyWord.SetBytes(val.Bytes())
	f.pc++
	return nil
}

func (in *Interpreter) opSstore(f *frame) error {
	if err := f.requireNotStatic(); err != nil {
		return err
	}
	keyWord, err := f.stack.pop()
	if err != nil {
		return err
	}
	valWord, err := f.stack.pop()
	if err != nil {
		return err
	}
	key := types.BytesToHash(keyWord.Bytes())
	newVal := types.BytesToHash(valWord.Bytes())
	current := in.host.GetState(f.contract.Address, key)

	var cost uint64
	switch {
	case current.IsZero() && !newVal.IsZero():
		cost = GasSstoreSet
	case !current.IsZero() && newVal.IsZero():
		cost = GasSstoreReset
	default:
		cost = GasSstoreReset
	}
	if err := f.useGas(cost); err != nil {
		return err
	}
	in.host.SetState(f.contract.Address, key, newVal)
	f.pc++
	return nil
}

func (in *Interpreter) opTload(f *frame) error {
	if err := f.useGas(GasWarmSload); err != nil {
		return err
	}
	keyWord, err := f.stack.peek()
	if err != nil {
		return err
	}
	key := types.BytesToHash(keyWord.Bytes())
	val := in.host.GetTransientState(f.contract.Address, key)
	keyWord.SetBytes(val.Bytes())
	f.pc++
	return nil
}

func (in *Interpreter) opTstore(f *frame) error {
	if err := f.requireNotStatic(); err != nil {
		return err
	}
	if err := f.useGas(GasWarmSload); err != nil {
		return err
	}
	keyWord, err := f.stack.pop()
	if err != nil {
		return err
	}
	valWord, err := f.stack.pop()
	if err != nil {
		return err
	}
	key := types.BytesToHash(keyWord.Bytes())
	val := types.BytesToHash(valWord.Bytes())
	in.host.SetTransientState(f.contract.Address, key, val)
	f.pc++
	return nil
}

// --- control flow ---

func (f *frame) opJump() error {
	if err := f.useGas(GasMidStep); err != nil {
		return err
	}
	dest, err := f.stack.pop()
	if err != nil {
		return err
	}
	if !f.contract.validJumpdest(&dest) {
		return ErrInvalidJump
	}
	f.pc = dest.Uint64()
	return nil
}

func (f *frame) opJumpi() error {
	if err := f.useGas(GasSlowStep); err != nil {
		return err
	}
	dest, err := f.stack.pop()
	if err != nil {
		return err
	}
	cond, err := f.stack.pop()
	if err != nil {
		return err
	}
	if cond.IsZero() {
		f.pc++
		return nil
	}
	if !f.contract.validJumpdest(&dest) {
		return ErrInvalidJump
	}
	f.pc = dest.Uint64()
	return nil
}

func (in *Interpreter) opReturn(f *frame) (bool, CallResult, error) {
	offset, err := f.stack.pop()
	if err != nil {
		return true, CallResult{}, err
	}
	size, err := f.stack.pop()
	if err != nil {
		return true, CallResult{}, err
	}
	off, sz := offset.Uint64(), size.Uint64()
	if err := f.expandMemory(off, sz); err != nil {
		return true, CallResult{}, err
	}
	data := f.memory.getCopy(off, sz)
	return true, CallResult{Success: true, ReturnData: data, GasLeft: f.gas}, nil
}

func (in *Interpreter) opRevert(f *frame) (bool, CallResult, error) {
	offset, err := f.stack.pop()
	if err != nil {
		return true, CallResult{}, err
	}
	size, err := f.stack.pop()
	if err != nil {
		return true, CallResult{}, err
	}
	off, sz := offset.Uint64(), size.Uint64()
	if err := f.expandMemory(off, sz); err != nil {
		return true, CallResult{}, err
	}
	f.returnData = f.memory.getCopy(off, sz)
	return true, CallResult{Success: false, ReturnData: f.returnData, GasLeft: f.gas}, ErrExecutionReverted
}

func (in *Interpreter) opSelfdestruct(f *frame) (bool, CallResult, error) {
	if err := f.requireNotStatic(); err != nil {
		return true, CallResult{}, err
	}
	if err := f.useGas(GasSelfdestruct); err != nil {
		return true, CallResult{}, err
	}
	beneficiaryWord, err := f.stack.pop()
	if err != nil {
		return true, CallResult{}, err
	}
	beneficiary := types.BytesToAddress(beneficiaryWord.Bytes())
	if !in.host.AccountExists(beneficiary) && !in.host.GetBalance(f.contract.Address).IsZero() {
		if err := f.useGas(GasSelfdestructNewAccount); err != nil {
			return true, CallResult{}, err
		}
	}
	in.host.SelfDestruct(f.contract.Address, beneficiary)
	return true, CallResult{Success: true, GasLeft: f.gas}, nil
}

// --- logging ---

func (in *Interpreter) opLog(f *frame, op OpCode) error {
	if err := f.requireNotStatic(); err != nil {
		return err
	}
	n := int(op - LOG0)
	offset, err := f.stack.pop()
	if err != nil {
		return err
	}
	size, err := f.stack.pop()
	if err != nil {
		return err
	}
	topics := make([]types.Hash, n)
	for i := 0; i < n; i++ {
		t, err := f.stack.pop()
		if err != nil {
			return err
		}
		topics[i] = types.BytesToHash(t.Bytes())
	}
	off, sz := offset.Uint64(), size.Uint64()
	if err := f.expandMemory(off, sz); err != nil {
		return err
	}
	cost := GasLogBase + GasLogTopic*uint64(n) + GasLogDataByte*sz
	if err := f.useGas(cost); err != nil {
		return err
	}
	data := f.memory.getCopy(off, sz)
	in.host.EmitLog(&types.Log{Emitter: f.contract.Address, Topics: topics, Data: data})
	f.pc++
	return nil
}
