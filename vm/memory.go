package vm

import "github.com/holiman/uint256"

// Memory is the EVM's byte-addressable, linearly-growing scratch space for
// the running call frame. Grounded on the teacher's core/vm/memory.go, kept
// byte-slice-backed (growth is the expensive, metered operation regardless
// of word width).
type Memory struct {
	store []byte
}

func newMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Len() int { return len(m.store) }

// resize grows the backing store to at least size bytes, zero-filling the
// new region. Callers must have already charged memory-expansion gas.
func (m *Memory) resize(size uint64) {
	if uint64(len(m.store)) >= size {
		return
	}
	grown := make([]byte, size)
	copy(grown, m.store)
	m.store = grown
}

// set writes value into the memory region [offset, offset+len(value)).
func (m *Memory) set(offset, size uint64, value []byte) {
	if size == 0 {
		return
	}
	m.resize(offset + size)
	copy(m.store[offset:offset+size], value)
}

// set32 writes a 32-byte word at offset.
func (m *Memory) set32(offset uint64, word *uint256.Int) {
	m.resize(offset + 32)
	b := word.Bytes32()
	copy(m.store[offset:offset+32], b[:])
}

// getCopy returns a fresh copy of the bytes in [offset, offset+size).
func (m *Memory) getCopy(offset, size uint64) []byte {
	if size == 0 {
		return nil
	}
	out := make([]byte, size)
	if offset >= uint64(len(m.store)) {
		return out
	}
	n := copy(out, m.store[offset:])
	_ = n
	return out
}

// getPtr returns a slice view (no copy) into [offset, offset+size), used
// where the caller immediately consumes the bytes (e.g. SHA3, RETURN).
func (m *Memory) getPtr(offset, size uint64) []byte {
	if size == 0 {
		return nil
	}
	m.resize(offset + size)
	return m.store[offset : offset+size]
}

// numWords returns how many 32-byte words size bytes occupies, rounding up.
func numWords(size uint64) uint64 {
	return (size + 31) / 32
}
