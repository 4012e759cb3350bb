package vm

import (
	"github.com/holiman/uint256"

	"github.com/exacore/exacore/types"
)

// Contract is the running frame's code and addressing context. Grounded on
// the teacher's core/vm/contract.go, with the EOF-specific Data/
// Subcontainers fields dropped (exacore targets legacy, non-EOF bytecode
// only — see DESIGN.md's vm scope trim) and *big.Int replaced by
// *uint256.Int/types.Address.
type Contract struct {
	Caller      types.Address
	Address     types.Address // the account whose storage this execution reads/writes
	CodeAddress types.Address // the account whose code is running (differs under DELEGATECALL/CALLCODE)
	Code        []byte
	CodeHash    types.Hash
	Input       []byte
	Value       *uint256.Int
	Gas         uint64
	IsStatic    bool

	jumpdests bitvec // lazily computed
}

// NewContract builds a running frame for code deployed at codeAddress,
// executing with storage context address (the same account for a plain
// CALL; the caller's account for DELEGATECALL/CALLCODE).
func NewContract(caller, address, codeAddress types.Address, code []byte, codeHash types.Hash, input []byte, value *uint256.Int, gas uint64, isStatic bool) *Contract {
	return &Contract{
		Caller:      caller,
		Address:     address,
		CodeAddress: codeAddress,
		Code:        code,
		CodeHash:    codeHash,
		Input:       input,
		Value:       value,
		Gas:         gas,
		IsStatic:    isStatic,
	}
}

// validJumpdest reports whether dest is a JUMPDEST opcode that does not lie
// inside a PUSH operand's immediate data.
func (c *Contract) validJumpdest(dest *uint256.Int) bool {
	if !dest.IsUint64() {
		return false
	}
	d := dest.Uint64()
	if d >= uint64(len(c.Code)) {
		return false
	}
	if OpCode(c.Code[d]) != JUMPDEST {
		return false
	}
	if c.jumpdests == nil {
		c.jumpdests = analyzeJumpdests(c.Code)
	}
	return c.jumpdests.codeSegment(d)
}

// bitvec marks, per byte offset, whether that offset is executable code
// (true) or PUSH immediate data (false skipped during analysis).
type bitvec []byte

func (v bitvec) codeSegment(pos uint64) bool {
	idx := pos / 8
	if idx >= uint64(len(v)) {
		return true
	}
	return v[idx]&(1<<(pos%8)) != 0
}

func (v bitvec) setCodeSegment(pos uint64) {
	idx := pos / 8
	if idx >= uint64(len(v)) {
		return
	}
	v[idx] |= 1 << (pos % 8)
}

// analyzeJumpdests scans code once, marking every byte that is genuine
// instruction stream (as opposed to PUSH-immediate data) as a valid jump
// target position. Grounded on the teacher's core/vm/analysis.go PUSH-skip
// scan.
func analyzeJumpdests(code []byte) bitvec {
	v := make(bitvec, len(code)/8+1)
	for pc := 0; pc < len(code); {
		op := OpCode(code[pc])
		v.setCodeSegment(uint64(pc))
		if op.IsPush() {
			pc += 1 + op.PushSize()
			continue
		}
		pc++
	}
	return v
}
