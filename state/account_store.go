// Package state implements the AccountStore (spec §4.4) and the StateDB-style
// snapshot/journal machinery the EVM host and the executor both build on
// (spec §3 "Snapshot", §4.6 "EVMHost"). It is grounded on the teacher's
// core/state package (statedb.go / memory_statedb.go / journal.go), adapted
// from a purely in-memory, trie-rooted store to a KV-backed one: exacore has
// no Merkle-proof requirement, so accounts and storage slots are persisted
// directly under kv.PrefixAccounts / kv.PrefixEVMStorage / kv.PrefixContractData
// rather than through a Merkle Patricia trie.
package state

import (
	"errors"

	"github.com/holiman/uint256"

	"github.com/exacore/exacore/codec"
	"github.com/exacore/exacore/kv"
	"github.com/exacore/exacore/types"
)

// ErrInsufficientBalance is returned by SubBalance when the account's
// balance is less than the amount requested, per spec §4.4.
var ErrInsufficientBalance = errors.New("state: insufficient balance")

// codeFieldTag is a reserved sub-key suffix (under kv.PrefixContractData)
// distinguishing an EVM account's code blob from a native contract's
// persisted field blob, which the registry stores under tag 0x00.
var codeFieldTag = []byte{0xff}

// AccountStore is the authoritative account table plus the transactional
// overlay (account balances/nonces/storage/transient storage, emitted logs,
// the gas refund counter) every nested call frame mutates through. One
// AccountStore instance backs an entire block's worth of transactions; the
// journal is reset between transactions, and Flush persists to the KV store
// once, at the end of the block (spec §4.7 step 7).
type AccountStore struct {
	store     kv.Store
	objects   map[types.Address]*stateObject
	touched   map[types.Address]bool // addresses created/modified since the last Flush
	journal   *journal
	logs      []*types.Log
	refund    uint64
	transient map[types.Address]map[types.Hash]types.Hash
}

// New returns an AccountStore reading through to and persisting into store.
func New(store kv.Store) *AccountStore {
	return &AccountStore{
		store:     store,
		objects:   make(map[types.Address]*stateObject),
		touched:   make(map[types.Address]bool),
		journal:   newJournal(),
		transient: make(map[types.Address]map[types.Hash]types.Hash),
	}
}

func (s *AccountStore) getOrLoad(addr types.Address) *stateObject {
	if obj, ok := s.objects[addr]; ok {
		return obj
	}
	obj := newStateObject(addr)
	if raw, err := s.store.Get(kv.PrefixAccounts, addr.Bytes()); err == nil && len(raw) >= 72 {
		obj.nonce = codec.GetUint64(raw[0:8])
		obj.balance = codec.GetUint256(raw[8:40])
		obj.codeHash = types.BytesToHash(raw[40:72])
		obj.existsOnDisk = true
		if obj.codeHash != types.EmptyCodeHash {
			if code, err := s.store.Get(kv.PrefixContractData, kv.Key(addr.Bytes(), codeFieldTag)); err == nil {
				obj.code = code
			}
		}
	}
	s.objects[addr] = obj
	return obj
}

// Touch ensures addr has a cached account object, idempotently, per spec
// §4.4's `touch(addr)`.
func (s *AccountStore) Touch(addr types.Address) {
	prev := s.objects[addr]
	if prev != nil {
		return
	}
	s.journal.append(createAccountChange{addr: addr, prev: nil})
	s.getOrLoad(addr)
	s.touched[addr] = true
}

// BalanceOf returns addr's current balance (overlay-aware).
func (s *AccountStore) BalanceOf(addr types.Address) *uint256.Int {
	return new(uint256.Int).Set(s.getOrLoad(addr).balance)
}

// NonceOf returns addr's current nonce.
func (s *AccountStore) NonceOf(addr types.Address) uint64 {
	return s.getOrLoad(addr).nonce
}

// AddBalance credits amount to addr's balance.
func (s *AccountStore) AddBalance(addr types.Address, amount *uint256.Int) {
	if amount.IsZero() {
		s.Touch(addr)
		return
	}
	obj := s.getOrLoad(addr)
	s.journal.append(balanceChange{addr: addr, prev: new(uint256.Int).Set(obj.balance)})
	obj.balance.Add(obj.balance, amount)
	s.touched[addr] = true
}

// SubBalance debits amount from addr's balance, failing with
// ErrInsufficientBalance (and making no change) if the balance is too low.
func (s *AccountStore) SubBalance(addr types.Address, amount *uint256.Int) error {
	if amount.IsZero() {
		s.Touch(addr)
		return nil
	}
	obj := s.getOrLoad(addr)
	if obj.balance.Lt(amount) {
		return ErrInsufficientBalance
	}
	s.journal.append(balanceChange{addr: addr, prev: new(uint256.Int).Set(obj.balance)})
	obj.balance.Sub(obj.balance, amount)
	s.touched[addr] = true
	return nil
}

// SetNonce sets addr's nonce.
func (s *AccountStore) SetNonce(addr types.Address, nonce uint64) {
	obj := s.getOrLoad(addr)
	s.journal.append(nonceChange{addr: addr, prev: obj.nonce})
	obj.nonce = nonce
	s.touched[addr] = true
}

// GetCode returns addr's contract bytecode (nil for externally-owned accounts).
func (s *AccountStore) GetCode(addr types.Address) []byte {
	return s.getOrLoad(addr).code
}

// GetCodeHash returns the keccak256 hash of addr's code.
func (s *AccountStore) GetCodeHash(addr types.Address) types.Hash {
	return s.getOrLoad(addr).codeHash
}

// GetCodeSize returns the length of addr's code.
func (s *AccountStore) GetCodeSize(addr types.Address) int {
	return len(s.getOrLoad(addr).code)
}

// SetCode installs code as addr's contract bytecode and updates its code hash.
func (s *AccountStore) SetCode(addr types.Address, code []byte, codeHash types.Hash) {
	obj := s.getOrLoad(addr)
	s.journal.append(codeChange{addr: addr, prevCode: obj.code, prevHash: obj.codeHash})
	obj.code = code
	obj.codeHash = codeHash
	s.touched[addr] = true
}

// Exist reports whether addr has ever been touched or has a persisted
// account record.
func (s *AccountStore) Exist(addr types.Address) bool {
	if _, ok := s.objects[addr]; ok {
		return true
	}
	has, _ := s.store.Has(kv.PrefixAccounts, addr.Bytes())
	return has
}

// Empty reports whether addr is indistinguishable from a non-existent
// account per EIP-161 (spec §3 Account invariant).
func (s *AccountStore) Empty(addr types.Address) bool {
	obj, ok := s.objects[addr]
	if !ok {
		return true
	}
	return obj.isEmpty()
}

// --- storage ---

// GetState returns the current value of addr's storage slot key, checking
// the dirty overlay first, then falling through to the KV store.
func (s *AccountStore) GetState(addr types.Address, key types.Hash) types.Hash {
	obj := s.getOrLoad(addr)
	if v, ok := obj.dirtyStorage[key]; ok {
		return v
	}
	return s.loadCommittedStorage(obj, key)
}

// GetCommittedState returns the value of addr's storage slot key as last
// persisted, bypassing any in-flight dirty overlay.
func (s *AccountStore) GetCommittedState(addr types.Address, key types.Hash) types.Hash {
	obj := s.getOrLoad(addr)
	return s.loadCommittedStorage(obj, key)
}

func (s *AccountStore) loadCommittedStorage(obj *stateObject, key types.Hash) types.Hash {
	if v, ok := obj.loadedStorage[key]; ok {
		return v
	}
	raw, err := s.store.Get(kv.PrefixEVMStorage, kv.Key(obj.address.Bytes(), key.Bytes()))
	var v types.Hash
	if err == nil {
		v = types.BytesToHash(raw)
	}
	obj.loadedStorage[key] = v
	return v
}

// SetState writes value to addr's storage slot key.
func (s *AccountStore) SetState(addr types.Address, key, value types.Hash) {
	obj := s.getOrLoad(addr)
	prevDirty, prevExists := obj.dirtyStorage[key]
	var prev types.Hash
	if prevExists {
		prev = prevDirty
	} else {
		prev = s.loadCommittedStorage(obj, key)
	}
	s.journal.append(storageChange{addr: addr, key: key, prev: prev, prevExists: prevExists})
	obj.dirtyStorage[key] = value
	s.touched[addr] = true
}

// --- self-destruct ---

// SelfDestruct credits beneficiary with addr's balance and marks addr for
// deletion at the end of the transaction. Code and storage remain readable
// within the current frame (post-Cancun semantics, spec §4.6).
func (s *AccountStore) SelfDestruct(addr, beneficiary types.Address) {
	obj := s.getOrLoad(addr)
	bal := new(uint256.Int).Set(obj.balance)
	s.AddBalance(beneficiary, bal)
	s.journal.append(selfDestructChange{addr: addr, prevMarked: obj.selfDestructed, prevBalance: bal})
	obj.selfDestructed = true
	obj.balance = new(uint256.Int)
}

// HasSelfDestructed reports whether addr has been marked for deletion.
func (s *AccountStore) HasSelfDestructed(addr types.Address) bool {
	return s.getOrLoad(addr).selfDestructed
}

// --- transient storage (spec §3 "account transient storage") ---

func (s *AccountStore) GetTransientState(addr types.Address, key types.Hash) types.Hash {
	return s.transient[addr][key]
}

func (s *AccountStore) SetTransientState(addr types.Address, key, value types.Hash) {
	prev := s.transient[addr][key]
	s.journal.append(transientStorageChange{addr: addr, key: key, prev: prev})
	if s.transient[addr] == nil {
		s.transient[addr] = make(map[types.Hash]types.Hash)
	}
	s.transient[addr][key] = value
}

// ClearTransientStorage discards all transient storage. Called by the
// executor after each transaction; transient storage never survives a
// transaction boundary.
func (s *AccountStore) ClearTransientStorage() {
	s.transient = make(map[types.Address]map[types.Hash]types.Hash)
}

// --- logs ---

// AddLog appends log to the current transaction's log buffer.
func (s *AccountStore) AddLog(log *types.Log) {
	s.journal.append(logChange{prevLen: len(s.logs)})
	s.logs = append(s.logs, log)
}

// Logs returns every log emitted since the logs were last drained.
func (s *AccountStore) Logs() []*types.Log {
	return s.logs
}

// DrainLogs returns and clears the accumulated logs, called by the executor
// after a transaction commits.
func (s *AccountStore) DrainLogs() []*types.Log {
	out := s.logs
	s.logs = nil
	return out
}

// --- refund counter ---

func (s *AccountStore) AddRefund(gas uint64) {
	s.journal.append(refundChange{prev: s.refund})
	s.refund += gas
}

func (s *AccountStore) SubRefund(gas uint64) {
	s.journal.append(refundChange{prev: s.refund})
	if gas > s.refund {
		s.refund = 0
		return
	}
	s.refund -= gas
}

func (s *AccountStore) GetRefund() uint64 {
	return s.refund
}

// ResetRefund zeroes the refund counter at the start of a new transaction.
func (s *AccountStore) ResetRefund() {
	s.refund = 0
}

// --- snapshot / revert ---

// Snapshot takes a snapshot of the current journal position. Valid across
// nested call frames: committing a child frame is a no-op (its entries stay
// in the shared journal), discarding one calls RevertToSnapshot.
func (s *AccountStore) Snapshot() int {
	return s.journal.snapshot()
}

// RevertToSnapshot undoes every mutation recorded since id.
func (s *AccountStore) RevertToSnapshot(id int) {
	s.journal.revertToSnapshot(id, s)
}

// OnRevert registers fn to run if the journal is later unwound past the
// current position, the same way a balance or storage write does. Native
// contract dispatch (registry.ContractRegistry.DispatchMutating) commits a
// SafeVar registry immediately on success, so it hands back a closure that
// restores the pre-call state; wiring that closure in here is what makes a
// reverted outer call (or an out-of-gas top-level transaction) undo a
// nested native contract's writes too, instead of leaving them committed
// in memory with nothing on disk to match.
func (s *AccountStore) OnRevert(fn func()) {
	s.journal.append(callbackChange{fn: fn})
}

// EndTransaction resets the journal once a transaction's outcome (commit or
// revert) has been finalized by the caller. Unlike Flush, this does not
// touch the KV store — dirty account/storage state accumulates in memory
// across a block and is only persisted once, at block end.
func (s *AccountStore) EndTransaction() {
	s.journal.reset()
	s.ClearTransientStorage()
}

// --- persistence ---

// Flush writes every touched account's current state to the KV store in a
// single batch, per spec §4.7 "committing to the root ... via one
// writeBatch". Called once, after the last transaction in a block.
func (s *AccountStore) Flush() error {
	batch := s.store.NewBatch()
	for addr := range s.touched {
		obj := s.objects[addr]
		if obj == nil {
			continue
		}
		rec := make([]byte, 0, 72)
		rec = append(rec, codec.PutUint64(obj.nonce)...)
		rec = append(rec, codec.PutUint256(obj.balance)...)
		rec = append(rec, codec.PutHash(obj.codeHash)...)
		batch.Put(kv.PrefixAccounts, addr.Bytes(), rec)

		if obj.codeHash != types.EmptyCodeHash && len(obj.code) > 0 {
			batch.Put(kv.PrefixContractData, kv.Key(addr.Bytes(), codeFieldTag), obj.code)
		}

		for key, val := range obj.dirtyStorage {
			obj.loadedStorage[key] = val
			storageKey := kv.Key(addr.Bytes(), key.Bytes())
			if val == (types.Hash{}) {
				batch.Delete(kv.PrefixEVMStorage, storageKey)
			} else {
				batch.Put(kv.PrefixEVMStorage, storageKey, val.Bytes())
			}
		}
		obj.dirtyStorage = make(map[types.Hash]types.Hash)
	}
	s.touched = make(map[types.Address]bool)
	if batch.Len() == 0 {
		return nil
	}
	return batch.Write()
}
