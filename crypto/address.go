package crypto

import (
	"github.com/exacore/exacore/types"
)

// CreateAddress derives the address of a contract deployed via CREATE:
// keccak256(rlp([sender, nonce]))[12:], per spec §6.
func CreateAddress(sender types.Address, nonce uint64) types.Address {
	payload := append(rlpBytes(sender[:]), rlpUint(nonce)...)
	hash := Keccak256(rlpList(payload))
	return types.BytesToAddress(hash[12:])
}

// CreateAddress2 derives the address of a contract deployed via CREATE2:
// keccak256(0xff ++ sender ++ salt ++ keccak256(initCode))[12:], per spec §6.
func CreateAddress2(sender types.Address, salt [32]byte, initCodeHash []byte) types.Address {
	data := make([]byte, 0, 1+20+32+32)
	data = append(data, 0xff)
	data = append(data, sender[:]...)
	data = append(data, salt[:]...)
	data = append(data, initCodeHash...)
	hash := Keccak256(data)
	return types.BytesToAddress(hash[12:])
}

// --- minimal RLP encoding, sufficient for address derivation and tx hashing.
// Grounded on the inline encoder the teacher embeds in core/vm/interpreter.go
// (createAddress/encodeRLPBytes/encodeRLPUint/wrapRLPList), generalized here
// into small reusable helpers instead of being duplicated at each call site.

func rlpBytes(b []byte) []byte {
	if len(b) == 1 && b[0] < 0x80 {
		return b
	}
	if len(b) < 56 {
		return append([]byte{byte(0x80 + len(b))}, b...)
	}
	lb := minBigEndian(uint64(len(b)))
	header := append([]byte{byte(0xb7 + len(lb))}, lb...)
	return append(header, b...)
}

func rlpUint(v uint64) []byte {
	if v == 0 {
		return []byte{0x80}
	}
	if v < 128 {
		return []byte{byte(v)}
	}
	b := minBigEndian(v)
	return append([]byte{byte(0x80 + len(b))}, b...)
}

func rlpList(payload []byte) []byte {
	if len(payload) < 56 {
		return append([]byte{byte(0xc0 + len(payload))}, payload...)
	}
	lb := minBigEndian(uint64(len(payload)))
	header := append([]byte{byte(0xf7 + len(lb))}, lb...)
	return append(header, payload...)
}

func minBigEndian(v uint64) []byte {
	if v == 0 {
		return nil
	}
	var buf [8]byte
	n := 0
	for i := 7; i >= 0; i-- {
		buf[i] = byte(v)
		v >>= 8
		if buf[i] != 0 || n > 0 {
			n = 8 - i
		}
	}
	return buf[8-n:]
}
