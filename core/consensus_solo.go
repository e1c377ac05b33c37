package core

import "context"

// consensus_solo.go – a single-peer consensusEngine adapter for running a
// standalone node with no voting round (SPEC_FULL.md §4.7 treats multi-peer
// consensus voting as an external contract; this adapter satisfies
// consensusEngine for the degenerate quorum-of-1 case a devnet or
// single-validator deployment needs). Grounded on the teacher's small
// adapter-struct style in core/consensus_network_adapter.go
// (newNetworkAdapter wrapping a concrete type behind a narrow interface).

// SoloConsensus proposes a block directly from the WSV without any
// inter-peer voting round: it chains, validates, and accepts the block
// immediately. It is only appropriate when the local peer is the only
// trusted peer (TrustedPeers returns at most itself).
type SoloConsensus struct {
	wsv *WorldStateView
}

// NewSoloConsensus returns a consensusEngine that commits proposed blocks
// without a voting round, reading wsv for validation.
func NewSoloConsensus(wsv *WorldStateView) *SoloConsensus {
	return &SoloConsensus{wsv: wsv}
}

// ProposeBlock builds a pending block over txs, chains it against
// previousHash, and validates it against a scratch clone of the WSV,
// dropping any transaction that fails to re-validate.
func (s *SoloConsensus) ProposeBlock(ctx context.Context, height uint64, previousHash Hash, txs []*Transaction) (*Block, error) {
	block := NewPendingBlock(height, previousHash, txs, currentTimeMs())
	// previousHash came from Kura.LatestBlockHash(), the same source Chain
	// would compare against, so the header is chained by construction.
	block.State = BlockChained
	if err := block.Validate(s.wsv.Clone()); err != nil {
		return nil, Wrap("ProposeBlock", err)
	}
	return block, nil
}
