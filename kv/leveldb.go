package kv

import (
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDB is a Store backed by goleveldb, a real LSM-tree engine — the
// persistent backend spec §4.1 calls for ("backed by an LSM-style engine").
// It is promoted here from an indirect dependency of the teacher's own
// go.mod (never wired to a concrete store in the retrieved slice) to
// exacore's production KV backend.
type LevelDB struct {
	db *leveldb.DB
}

// OpenLevelDB opens (creating if absent) a LevelDB store at dir.
func OpenLevelDB(dir string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, err
	}
	return &LevelDB{db: db}, nil
}

func (l *LevelDB) Get(prefix, key []byte) ([]byte, error) {
	v, err := l.db.Get(Key(prefix, key), nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrNotFound
	}
	return v, err
}

func (l *LevelDB) Put(prefix, key, value []byte) error {
	return l.db.Put(Key(prefix, key), value, nil)
}

func (l *LevelDB) Delete(prefix, key []byte) error {
	return l.db.Delete(Key(prefix, key), nil)
}

func (l *LevelDB) Has(prefix, key []byte) (bool, error) {
	return l.db.Has(Key(prefix, key), nil)
}

func (l *LevelDB) Close() error { return l.db.Close() }

func (l *LevelDB) NewBatch() Batch {
	return &levelBatch{db: l.db, batch: new(leveldb.Batch)}
}

// ScanPrefix uses goleveldb's own snapshot, which provides the point-in-time
// isolation spec §4.1 requires: a scan begun before a concurrent WriteBatch
// sees the store exactly as it was at the moment the snapshot was taken.
func (l *LevelDB) ScanPrefix(prefix []byte) Iterator {
	snap, err := l.db.GetSnapshot()
	if err != nil {
		return &sliceIterator{pos: 0} // empty iterator; store is unusable anyway
	}
	it := snap.NewIterator(util.BytesPrefix(prefix), nil)
	return &levelIterator{snap: snap, it: it, prefixLen: len(prefix)}
}

type levelIterator struct {
	snap      *leveldb.Snapshot
	it        iterator
	prefixLen int
}

// iterator is the subset of goleveldb's Iterator this package depends on.
type iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Release()
}

func (li *levelIterator) Next() bool { return li.it.Next() }
func (li *levelIterator) Key() []byte {
	return li.it.Key()[li.prefixLen:]
}
func (li *levelIterator) Value() []byte { return li.it.Value() }
func (li *levelIterator) Release() {
	li.it.Release()
	li.snap.Release()
}

type levelBatch struct {
	db      *leveldb.DB
	batch   *leveldb.Batch
	written bool
}

func (b *levelBatch) Put(prefix, key, value []byte) {
	b.batch.Put(Key(prefix, key), value)
}

func (b *levelBatch) Delete(prefix, key []byte) {
	b.batch.Delete(Key(prefix, key))
}

func (b *levelBatch) Len() int { return b.batch.Len() }

func (b *levelBatch) Write() error {
	if b.written {
		return ErrBatchAlreadyWritten
	}
	b.written = true
	return b.db.Write(b.batch, nil)
}
