package core

// block.go – the block lifecycle: Pending -> Chained -> Valid -> Committed
// (spec.md §4.5). Grounded on the teacher's core/ledger.go block-header
// shape (PrevHash/Height/Timestamp/MerkleRoot) and its RebuildChain
// validation loop, re-expressed here as a clone-validate-apply pass per
// transaction instead of a whole-ledger rebuild (SPEC_FULL.md §4.5's
// rebuild-on-write resolution).

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// BlockState names the lifecycle stage a Block occupies.
type BlockState uint8

const (
	BlockPending BlockState = iota
	BlockChained
	BlockValid
	BlockCommitted
)

// BlockHeader carries the metadata a block's hash is computed over.
// InvalidatedBlocksHashes records the hashes of any blocks this one
// supersedes after a view change (spec.md §4.5).
type BlockHeader struct {
	Height                  uint64
	TimestampMs             int64
	PreviousBlockHash       Hash
	MerkleRootHash          Hash
	NumberOfViewChanges     uint32
	InvalidatedBlocksHashes []Hash
}

// Block pairs a header with the ordered transactions it commits.
type Block struct {
	Header       BlockHeader
	Transactions []*Transaction
	State        BlockState
}

// NewPendingBlock builds a Pending-state block at height from txs, computing
// the header's Merkle root over each transaction's hash. previousHash must
// be the hash of the block at height-1 (or the zero hash for genesis).
func NewPendingBlock(height uint64, previousHash Hash, txs []*Transaction, nowMs int64) *Block {
	leaves := make([]Hash, len(txs))
	for i, tx := range txs {
		leaves[i] = tx.Hash()
	}
	return &Block{
		Header: BlockHeader{
			Height:            height,
			TimestampMs:       nowMs,
			PreviousBlockHash: previousHash,
			MerkleRootHash:    MerkleRoot(leaves),
		},
		Transactions: txs,
		State:        BlockPending,
	}
}

// Hash returns the Blake2b-256 digest of the header's canonical encoding.
// Transactions are not hashed directly into the block hash; their
// contribution is already captured by MerkleRootHash.
func (b *Block) Hash() Hash {
	return HashBytes(encodeBlockHeader(b.Header))
}

// Chain verifies b.Header.PreviousBlockHash matches prev's hash and
// transitions Pending -> Chained (spec.md §4.5 step 1).
func (b *Block) Chain(prev *Block) error {
	if b.State != BlockPending {
		return NewError(KindInvalidBlock, "Chain", fmt.Errorf("block not Pending"))
	}
	var wantPrev Hash
	if prev != nil {
		wantPrev = prev.Hash()
	}
	if b.Header.PreviousBlockHash != wantPrev {
		return NewError(KindInvalidBlock, "Chain", fmt.Errorf(
			"previous hash mismatch: header has %s, chain has %s",
			b.Header.PreviousBlockHash.Hex(), wantPrev.Hex()))
	}
	b.State = BlockChained
	return nil
}

// Validate re-validates every transaction in order against a single scratch
// clone of wsv, applying each surviving transaction's effects to that same
// scratch before validating the next — so a transaction that depends on an
// earlier one in the same block (e.g. a RegisterAccount followed by a
// transfer from the new account) sees it, and two conflicting transactions
// (a double-spend) cannot both survive: whichever runs second re-validates
// against state the first already mutated. Any transaction that fails
// either step is dropped (not aborted on) and never reaches Apply. The
// Merkle root is recomputed over the surviving set before transitioning
// Chained -> Valid (spec.md §4.5 step 2; spec.md §7's drop-not-abort rule).
func (b *Block) Validate(wsv *WorldStateView) error {
	if b.State != BlockChained {
		return NewError(KindInvalidBlock, "Validate", fmt.Errorf("block not Chained"))
	}
	scratch := wsv.Clone()
	var surviving []*Transaction
	for _, tx := range b.Transactions {
		if err := tx.Validate(scratch); err != nil {
			log.WithError(err).WithField("height", b.Header.Height).
				Warn("Validate: dropping transaction that no longer applies")
			continue
		}
		if err := tx.Apply(scratch); err != nil {
			log.WithError(err).WithField("height", b.Header.Height).
				Warn("Validate: dropping transaction that validated but failed to apply to block scratch")
			continue
		}
		surviving = append(surviving, tx)
	}
	b.Transactions = surviving
	leaves := make([]Hash, len(surviving))
	for i, tx := range surviving {
		leaves[i] = tx.Hash()
	}
	b.Header.MerkleRootHash = MerkleRoot(leaves)
	b.State = BlockValid
	return nil
}

// Apply re-executes every surviving transaction's instructions against the
// authoritative wsv and transitions Valid -> Committed (spec.md §4.5 step 3).
func (b *Block) Apply(wsv *WorldStateView) error {
	if b.State != BlockValid {
		return NewError(KindInvalidBlock, "Apply", fmt.Errorf("block not Valid"))
	}
	for idx, tx := range b.Transactions {
		if err := tx.Apply(wsv); err != nil {
			return Wrap(fmt.Sprintf("Apply[tx %d]", idx), err)
		}
	}
	b.State = BlockCommitted
	return nil
}

// encodeBlockHeader canonically encodes h per core/codec.go's wire format.
func encodeBlockHeader(h BlockHeader) []byte {
	e := NewEncoder()
	e.WriteUint64(h.Height)
	e.WriteInt64(h.TimestampMs)
	e.WriteFixed(h.PreviousBlockHash[:])
	e.WriteFixed(h.MerkleRootHash[:])
	e.WriteUint32(h.NumberOfViewChanges)
	e.WriteVarint(uint64(len(h.InvalidatedBlocksHashes)))
	for _, ih := range h.InvalidatedBlocksHashes {
		e.WriteFixed(ih[:])
	}
	return e.Bytes()
}
