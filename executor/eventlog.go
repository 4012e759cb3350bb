package executor

import (
	"encoding/binary"

	"github.com/exacore/exacore/codec"
	"github.com/exacore/exacore/kv"
	"github.com/exacore/exacore/types"
)

// eventLogRingCap bounds the in-memory ring buffer of recent logs
// (resolving spec's event log Open Question: capped at 1000, oldest
// evicted first — archival to kv.PrefixEvents is unconditional and
// independent of this cap).
const eventLogRingCap = 1000

// EventLog buffers recently emitted logs in memory for cheap recent-event
// queries, while archiving every log unconditionally under kv.PrefixEvents
// keyed by a monotonically increasing sequence number, so nothing is lost
// once the ring evicts it. Grounded on the teacher's core/types/log.go plus
// the bounded-ring pattern from its txpool's recently-seen-hash cache.
type EventLog struct {
	store kv.Store
	ring  []*types.Log
	head  int
	seq   uint64
}

// NewEventLog returns an EventLog backed by store, resuming the archive
// sequence counter from wherever the last run left off.
func NewEventLog(store kv.Store) *EventLog {
	e := &EventLog{store: store}
	e.seq = e.restoreSeq()
	return e
}

func (e *EventLog) restoreSeq() uint64 {
	raw, err := e.store.Get(kv.PrefixEvents, []byte("seq"))
	if err != nil || len(raw) < 8 {
		return 0
	}
	return codec.GetUint64(raw)
}

// Append archives every log unconditionally and pushes it into the bounded
// in-memory ring, evicting the oldest entry once full.
func (e *EventLog) Append(logs []*types.Log) error {
	if len(logs) == 0 {
		return nil
	}
	batch := e.store.NewBatch()
	for _, log := range logs {
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, e.seq)
		batch.Put(kv.PrefixEvents, key, encodeLog(log))
		e.seq++

		if len(e.ring) < eventLogRingCap {
			e.ring = append(e.ring, log)
		} else {
			e.ring[e.head] = log
			e.head = (e.head + 1) % eventLogRingCap
		}
	}
	batch.Put(kv.PrefixEvents, []byte("seq"), codec.PutUint64(e.seq))
	return batch.Write()
}

// Recent returns up to the last eventLogRingCap logs archived, oldest
// first.
func (e *EventLog) Recent() []*types.Log {
	if len(e.ring) < eventLogRingCap {
		out := make([]*types.Log, len(e.ring))
		copy(out, e.ring)
		return out
	}
	out := make([]*types.Log, eventLogRingCap)
	copy(out, e.ring[e.head:])
	copy(out[eventLogRingCap-e.head:], e.ring[:e.head])
	return out
}

// Lookup retrieves a single archived log by its sequence number, reaching
// past the in-memory ring into the unconditional KV archive.
func (e *EventLog) Lookup(seq uint64) (*types.Log, bool) {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	raw, err := e.store.Get(kv.PrefixEvents, key)
	if err != nil {
		return nil, false
	}
	log := decodeLog(raw)
	if log == nil {
		return nil, false
	}
	return log, true
}

func encodeLog(log *types.Log) []byte {
	out := make([]byte, 0, 20+32+8+32+32+8+8+8+1+len(log.Data))
	out = append(out, codec.PutAddress(log.Emitter)...)
	out = append(out, codec.PutUint64(uint64(len(log.Topics)))...)
	for _, t := range log.Topics {
		out = append(out, codec.PutHash(t)...)
	}
	out = append(out, codec.PutHash(log.TxHash)...)
	out = append(out, codec.PutHash(log.BlockHash)...)
	out = append(out, codec.PutUint64(log.BlockIndex)...)
	out = append(out, codec.PutUint64(log.TxIndex)...)
	out = append(out, codec.PutUint64(log.LogIndex)...)
	anon := byte(0)
	if log.Anonymous {
		anon = 1
	}
	out = append(out, anon)
	out = append(out, codec.PutUint64(uint64(len(log.Data)))...)
	out = append(out, log.Data...)
	return out
}

func decodeLog(data []byte) *types.Log {
	if len(data) < 20+8 {
		return nil
	}
	log := &types.Log{}
	off := 0
	log.Emitter = types.BytesToAddress(data[off : off+20])
	off += 20
	n := codec.GetUint64(data[off : off+8])
	off += 8
	log.Topics = make([]types.Hash, n)
	for i := range log.Topics {
		log.Topics[i] = types.BytesToHash(data[off : off+32])
		off += 32
	}
	log.TxHash = types.BytesToHash(data[off : off+32])
	off += 32
	log.BlockHash = types.BytesToHash(data[off : off+32])
	off += 32
	log.BlockIndex = codec.GetUint64(data[off : off+8])
	off += 8
	log.TxIndex = codec.GetUint64(data[off : off+8])
	off += 8
	log.LogIndex = codec.GetUint64(data[off : off+8])
	off += 8
	log.Anonymous = data[off] != 0
	off++
	dataLen := codec.GetUint64(data[off : off+8])
	off += 8
	log.Data = append([]byte{}, data[off:off+int(dataLen)]...)
	return log
}
