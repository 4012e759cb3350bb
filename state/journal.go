package state

import (
	"github.com/holiman/uint256"

	"github.com/exacore/exacore/types"
)

// journalEntry is a revertible mutation recorded against an AccountStore,
// grounded on the teacher's core/state/journal.go journalEntry interface.
type journalEntry interface {
	revert(s *AccountStore)
}

// journal is a flat, append-only log of mutations shared by every nested
// call-frame snapshot within a transaction. A single journal (rather than
// one per frame) is what makes "commit merges child into parent" a no-op:
// a child frame's entries simply remain in the same journal once its
// snapshot id is no longer revertable (spec §3 "Snapshot").
type journal struct {
	entries   []journalEntry
	snapshots map[int]int
	nextID    int
}

func newJournal() *journal {
	return &journal{snapshots: make(map[int]int)}
}

func (j *journal) append(e journalEntry) {
	j.entries = append(j.entries, e)
}

func (j *journal) snapshot() int {
	id := j.nextID
	j.nextID++
	j.snapshots[id] = len(j.entries)
	return id
}

// revertToSnapshot undoes every entry recorded since id, in reverse order,
// and discards any snapshot taken after id (it is no longer reachable).
func (j *journal) revertToSnapshot(id int, s *AccountStore) {
	idx, ok := j.snapshots[id]
	if !ok {
		return
	}
	for i := len(j.entries) - 1; i >= idx; i-- {
		j.entries[i].revert(s)
	}
	j.entries = j.entries[:idx]
	for sid := range j.snapshots {
		if sid >= id {
			delete(j.snapshots, sid)
		}
	}
}

// reset clears the journal at a transaction boundary (after commit, where
// there is nothing left to revert).
func (j *journal) reset() {
	j.entries = j.entries[:0]
	j.snapshots = make(map[int]int)
	j.nextID = 0
}

// --- concrete journal entries ---

type createAccountChange struct {
	addr types.Address
	prev *stateObject // nil if the address had no cached object before
}

func (ch createAccountChange) revert(s *AccountStore) {
	if ch.prev == nil {
		delete(s.objects, ch.addr)
	} else {
		s.objects[ch.addr] = ch.prev
	}
}

type balanceChange struct {
	addr types.Address
	prev *uint256.Int
}

func (ch balanceChange) revert(s *AccountStore) {
	if obj := s.objects[ch.addr]; obj != nil {
		obj.balance.Set(ch.prev)
	}
}

type nonceChange struct {
	addr types.Address
	prev uint64
}

func (ch nonceChange) revert(s *AccountStore) {
	if obj := s.objects[ch.addr]; obj != nil {
		obj.nonce = ch.prev
	}
}

type codeChange struct {
	addr     types.Address
	prevCode []byte
	prevHash types.Hash
}

func (ch codeChange) revert(s *AccountStore) {
	if obj := s.objects[ch.addr]; obj != nil {
		obj.code = ch.prevCode
		obj.codeHash = ch.prevHash
	}
}

type storageChange struct {
	addr       types.Address
	key        types.Hash
	prev       types.Hash
	prevExists bool
}

func (ch storageChange) revert(s *AccountStore) {
	if obj := s.objects[ch.addr]; obj != nil {
		if ch.prevExists {
			obj.dirtyStorage[ch.key] = ch.prev
		} else {
			delete(obj.dirtyStorage, ch.key)
		}
	}
}

type transientStorageChange struct {
	addr types.Address
	key  types.Hash
	prev types.Hash
}

func (ch transientStorageChange) revert(s *AccountStore) {
	slots := s.transient[ch.addr]
	if slots == nil {
		return
	}
	if ch.prev == (types.Hash{}) {
		delete(slots, ch.key)
		if len(slots) == 0 {
			delete(s.transient, ch.addr)
		}
	} else {
		slots[ch.key] = ch.prev
	}
}

type selfDestructChange struct {
	addr        types.Address
	prevMarked  bool
	prevBalance *uint256.Int
}

func (ch selfDestructChange) revert(s *AccountStore) {
	if obj := s.objects[ch.addr]; obj != nil {
		obj.selfDestructed = ch.prevMarked
		obj.balance.Set(ch.prevBalance)
	}
}

type logChange struct {
	prevLen int
}

func (ch logChange) revert(s *AccountStore) {
	s.logs = s.logs[:ch.prevLen]
}

type refundChange struct {
	prev uint64
}

func (ch refundChange) revert(s *AccountStore) {
	s.refund = ch.prev
}

// callbackChange lets a collaborator outside AccountStore's own fields
// (the registry package's native-contract SafeVar commits) ride the same
// journal: AccountStore doesn't know what fn undoes, only that it must run
// at this point in the reverse-chronological unwind.
type callbackChange struct {
	fn func()
}

func (ch callbackChange) revert(s *AccountStore) {
	if ch.fn != nil {
		ch.fn()
	}
}
