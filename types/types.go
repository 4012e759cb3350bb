// Package types defines the core data structures shared across exacore's
// execution and state-management packages: addresses, hashes, accounts,
// contract records, transactions, call frames, and log events.
package types

import (
	"encoding/hex"
	"fmt"

	"github.com/holiman/uint256"
)

const (
	HashLength    = 32
	AddressLength = 20
)

// Hash is a 32-byte opaque digest.
type Hash [HashLength]byte

// Address is a 20-byte account identifier.
type Address [AddressLength]byte

// BytesToHash converts b to a Hash, left-padding if shorter than 32 bytes and
// truncating from the left if longer.
func BytesToHash(b []byte) Hash {
	var h Hash
	h.SetBytes(b)
	return h
}

// HexToHash converts a hex string (with or without 0x prefix) to a Hash.
func HexToHash(s string) Hash { return BytesToHash(fromHex(s)) }

func (h Hash) Bytes() []byte   { return h[:] }
func (h Hash) Hex() string     { return fmt.Sprintf("0x%x", h[:]) }
func (h Hash) String() string  { return h.Hex() }
func (h Hash) IsZero() bool    { return h == Hash{} }

// SetBytes sets the hash from b, left-padding or truncating as needed.
func (h *Hash) SetBytes(b []byte) {
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
}

// BytesToAddress converts b to an Address, left-padding if shorter than 20
// bytes and truncating from the left if longer.
func BytesToAddress(b []byte) Address {
	var a Address
	a.SetBytes(b)
	return a
}

// HexToAddress converts a hex string (with or without 0x prefix) to an Address.
func HexToAddress(s string) Address { return BytesToAddress(fromHex(s)) }

func (a Address) Bytes() []byte  { return a[:] }
func (a Address) Hex() string    { return fmt.Sprintf("0x%x", a[:]) }
func (a Address) String() string { return a.Hex() }
func (a Address) IsZero() bool   { return a == Address{} }

func (a *Address) SetBytes(b []byte) {
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
}

// Account is the persisted, compact representation of an account: balance,
// nonce, and code hash. Storage and transient storage are owned by the
// state package's stateObject, not duplicated here.
type Account struct {
	Balance  *uint256.Int
	Nonce    uint64
	CodeHash Hash
}

// NewAccount returns a zero-value account (zero balance, zero nonce, empty
// code hash) indistinguishable from a non-existent account for hashing.
func NewAccount() Account {
	return Account{Balance: new(uint256.Int), CodeHash: EmptyCodeHash}
}

// IsEmpty reports whether the account has no balance, nonce, or code — the
// condition under which it is indistinguishable from non-existence.
func (a Account) IsEmpty() bool {
	return (a.Balance == nil || a.Balance.IsZero()) && a.Nonce == 0 && a.CodeHash == EmptyCodeHash
}

// ContractKind distinguishes a native (in-process) contract from an EVM
// bytecode contract within the registry.
type ContractKind uint8

const (
	KindNative ContractKind = iota
	KindEVM
)

func (k ContractKind) String() string {
	if k == KindEVM {
		return "evm"
	}
	return "native"
}

// ContractRecord is the registry's on-disk record for a deployed contract:
// its kind, and either a native type tag or EVM code.
type ContractRecord struct {
	Address Address
	Kind    ContractKind
	TypeTag string // populated when Kind == KindNative
	Code    []byte // populated when Kind == KindEVM
}

// Transaction is the minimal shape the executor needs: enough to recover a
// sender, check a nonce, move value, and dispatch a call or a deployment.
// Block/wire encoding of the full transaction envelope is an external
// collaborator's concern (see spec §1 Out of scope).
type Transaction struct {
	To        *Address // nil means "deploy"
	Value     *uint256.Int
	GasLimit  uint64
	GasPrice  *uint256.Int
	Nonce     uint64
	Data      []byte
	Signature []byte // 65-byte [R || S || V] recoverable signature
	ChainID   uint64
}

// CallFrame is the ephemeral context for one level of the call stack.
type CallFrame struct {
	Caller      Address
	Origin      Address
	Recipient   Address
	CodeAddress Address
	Value       *uint256.Int
	Input       []byte
	GasLeft     uint64
	IsStatic    bool
	Depth       int
}

// MaxCallDepth is the EVM-convention bound on nested call depth.
const MaxCallDepth = 1024

// Log is one emitted event: an emitter, up to four indexed topics, and
// opaque data, positioned by the total order (blockIndex, txIndex, logIndex).
type Log struct {
	Emitter    Address
	Topics     []Hash
	Data       []byte
	TxHash     Hash
	BlockHash  Hash
	BlockIndex uint64
	TxIndex    uint64
	LogIndex   uint64
	Anonymous  bool
}

var (
	// EmptyCodeHash is keccak256("").
	EmptyCodeHash = HexToHash("c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470")
)

func fromHex(s string) []byte {
	if has0xPrefix(s) {
		s = s[2:]
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, _ := hex.DecodeString(s)
	return b
}

func has0xPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}
