package state

import (
	"github.com/exacore/exacore/codec"
	"github.com/exacore/exacore/kv"
	"github.com/exacore/exacore/types"
)

// BlockHeader carries the per-block context the EVMHost's getTxContext
// callback exposes to contract code (spec §4.6): coinbase, number,
// timestamp, gas limit and chain id are all fixed for the duration of the
// transactions it contains.
type BlockHeader struct {
	Number     uint64
	Hash       types.Hash
	ParentHash types.Hash
	Timestamp  uint64
	Coinbase   types.Address
	GasLimit   uint64
	ChainID    uint64
}

// recentBlockWindow bounds how far back getBlockHash can see, per spec §4.6
// "Lookups over the last 256 blocks; older returns zero."
const recentBlockWindow = 256

// ChainHead tracks the chain's latest applied block and a bounded window of
// recent block hashes, persisted under kv.PrefixBlocks / kv.PrefixBlockHash.
// Grounded on original_source/src/core/chainHead.h, trimmed to what the
// execution core needs: exacore has no networking or fork-choice layer of
// its own, so the full block/transaction index chainHead.h maintains
// (lookupTxByHash, lookupBlockByTxHash, etc.) belongs to a higher layer
// outside this spec's scope and is not reimplemented here.
type ChainHead struct {
	store  kv.Store
	latest *BlockHeader
	recent map[uint64]types.Hash // number -> hash, capped at recentBlockWindow entries
}

// NewChainHead returns a ChainHead reading through to store, restoring the
// latest header if one was persisted by a prior run.
func NewChainHead(store kv.Store) *ChainHead {
	c := &ChainHead{store: store, recent: make(map[uint64]types.Hash)}
	c.restoreLatest()
	return c
}

func (c *ChainHead) restoreLatest() {
	raw, err := c.store.Get(kv.PrefixConsensus, []byte("chainhead"))
	if err != nil || len(raw) < 8 {
		return
	}
	height := codec.GetUint64(raw[:8])
	header, ok := c.header(height)
	if ok {
		c.latest = header
		c.recent[height] = header.Hash
	}
}

func (c *ChainHead) header(height uint64) (*BlockHeader, bool) {
	raw, err := c.store.Get(kv.PrefixBlocks, codec.PutUint64(height))
	if err != nil || len(raw) < 8+32+32+8+20+8+8 {
		return nil, false
	}
	h := &BlockHeader{}
	off := 0
	h.Number = codec.GetUint64(raw[off : off+8])
	off += 8
	h.Hash = types.BytesToHash(raw[off : off+32])
	off += 32
	h.ParentHash = types.BytesToHash(raw[off : off+32])
	off += 32
	h.Timestamp = codec.GetUint64(raw[off : off+8])
	off += 8
	h.Coinbase = types.BytesToAddress(raw[off : off+20])
	off += 20
	h.GasLimit = codec.GetUint64(raw[off : off+8])
	off += 8
	h.ChainID = codec.GetUint64(raw[off : off+8])
	return h, true
}

func encodeHeader(h BlockHeader) []byte {
	out := make([]byte, 0, 8+32+32+8+20+8+8)
	out = append(out, codec.PutUint64(h.Number)...)
	out = append(out, codec.PutHash(h.Hash)...)
	out = append(out, codec.PutHash(h.ParentHash)...)
	out = append(out, codec.PutUint64(h.Timestamp)...)
	out = append(out, codec.PutAddress(h.Coinbase)...)
	out = append(out, codec.PutUint64(h.GasLimit)...)
	out = append(out, codec.PutUint64(h.ChainID)...)
	return out
}

// Latest returns the most recently applied block header, or false if the
// chain has no blocks yet.
func (c *ChainHead) Latest() (BlockHeader, bool) {
	if c.latest == nil {
		return BlockHeader{}, false
	}
	return *c.latest, true
}

// Append stages header into batch as the new chain head and updates the
// in-memory view. The executor passes a batch of its own, separate from the
// one AccountStore.Flush writes.
func (c *ChainHead) Append(batch kv.Batch, header BlockHeader) {
	batch.Put(kv.PrefixBlocks, codec.PutUint64(header.Number), encodeHeader(header))
	batch.Put(kv.PrefixBlockHash, header.Hash.Bytes(), codec.PutUint64(header.Number))
	batch.Put(kv.PrefixConsensus, []byte("chainhead"), codec.PutUint64(header.Number))

	h := header
	c.latest = &h
	c.recent[header.Number] = header.Hash
	if header.Number >= recentBlockWindow {
		delete(c.recent, header.Number-recentBlockWindow)
	}
}

// GetBlockHash implements the EVMHost's getBlockHash(n) callback: returns
// the hash of block n if it lies within the last 256 blocks, else zero.
func (c *ChainHead) GetBlockHash(n uint64) types.Hash {
	if c.latest == nil || n > c.latest.Number {
		return types.Hash{}
	}
	if c.latest.Number-n >= recentBlockWindow {
		return types.Hash{}
	}
	if hash, ok := c.recent[n]; ok {
		return hash
	}
	if header, ok := c.header(n); ok {
		return header.Hash
	}
	return types.Hash{}
}

// HeightOfHash returns the height of the block with the given hash, looking
// it up in the persisted block-hash index.
func (c *ChainHead) HeightOfHash(hash types.Hash) (uint64, bool) {
	raw, err := c.store.Get(kv.PrefixBlockHash, hash.Bytes())
	if err != nil {
		return 0, false
	}
	return codec.GetUint64(raw), true
}
