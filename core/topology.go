package core

// topology.go – the concurrent actor topology wiring the pending queue,
// consensus, WSV, and block store together (spec.md §4.7, §5). Implemented
// as the message-passing alternative spec.md §9 explicitly permits: one
// owning goroutine per subsystem communicating over bounded (capacity 100)
// channels, rather than a lock-per-subsystem discipline.
//
// Interface-segregation style grounded on the teacher's core/consensus.go
// (txPool/networkAdapter/securityAdapter/authorityAdapter interfaces
// declared next to their sole consumer, Topology, rather than alongside
// their implementations).

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultChannelCapacity is the bounded channel depth every inter-task
// channel in Topology uses unless overridden by configuration (spec.md §5).
const DefaultChannelCapacity = 100

// consensusEngine is the narrow contract Topology needs from the consensus
// engine (Sumeragi): given a batch of pending transactions, propose the next
// block. The voting protocol itself is out of core scope (spec.md §1
// Non-goals); Topology only needs a function it can call on each tick.
type consensusEngine interface {
	ProposeBlock(ctx context.Context, height uint64, previousHash Hash, txs []*Transaction) (*Block, error)
}

// blockSyncNotifier is the narrow contract Topology needs to nudge the
// block synchronizer after a commit; the gossip protocol itself
// (LatestBlock/GetBlocksAfter/ShareBlocks) is out of core scope.
type blockSyncNotifier interface {
	NotifyCommitted(b *Block)
}

// Topology owns the channels and goroutines wiring the pending queue,
// consensus, WSV applier, and store writer tasks together. Construct one
// per running node; Run blocks until ctx is cancelled.
type Topology struct {
	wsv      *WorldStateView
	kura     *Kura
	queue    *PendingQueue
	consensus consensusEngine
	sync     blockSyncNotifier

	tickInterval time.Duration

	txSender    chan *Transaction // RPC intake -> queue feeder
	toStore     chan *Block       // consensus -> store writer
	committed   chan *Block       // store writer -> WSV applier
}

// NewTopology wires a Topology around the given collaborators. consensus
// and sync may be nil in configurations that don't run them (e.g. a
// read-only query node); the corresponding tasks become no-ops.
func NewTopology(wsv *WorldStateView, kura *Kura, queue *PendingQueue, consensus consensusEngine, sync blockSyncNotifier, tickInterval time.Duration, capacity int) *Topology {
	if capacity <= 0 {
		capacity = DefaultChannelCapacity
	}
	if tickInterval <= 0 {
		tickInterval = 100 * time.Millisecond
	}
	return &Topology{
		wsv:          wsv,
		kura:         kura,
		queue:        queue,
		consensus:    consensus,
		sync:         sync,
		tickInterval: tickInterval,
		txSender:     make(chan *Transaction, capacity),
		toStore:      make(chan *Block, capacity),
		committed:    make(chan *Block, capacity),
	}
}

// SubmitTransaction is the RPC intake task's entrypoint: an accepted
// transaction is sent on tx_sender, suspending if the channel is full
// (backpressure, spec.md §5). Returns ctx.Err() if cancelled first.
func (t *Topology) SubmitTransaction(ctx context.Context, tx *Transaction) error {
	select {
	case t.txSender <- tx:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts the queue feeder, consensus tick, store writer, and WSV
// applier tasks and blocks until ctx is cancelled. Each task owns its own
// goroutine; none share mutable state outside the channels and the
// locked WSV/Kura handles.
func (t *Topology) Run(ctx context.Context) {
	done := make(chan struct{}, 4)
	go t.runQueueFeeder(ctx, done)
	go t.runConsensusTick(ctx, done)
	go t.runStoreWriter(ctx, done)
	go t.runWSVApplier(ctx, done)
	for i := 0; i < 4; i++ {
		<-done
	}
}

// runQueueFeeder drains txSender and pushes every accepted transaction into
// the pending queue (spec.md §5 task 2).
func (t *Topology) runQueueFeeder(ctx context.Context, done chan<- struct{}) {
	defer func() { done <- struct{}{} }()
	for {
		select {
		case tx := <-t.txSender:
			if err := t.queue.Push(tx); err != nil {
				log.WithError(err).Warn("topology: queue feeder dropped transaction")
			}
		case <-ctx.Done():
			return
		}
	}
}

// runConsensusTick fires every tickInterval: if a consensus engine is
// wired, it drains pending transactions and asks the engine to propose the
// next block, forwarding the result on toStore (spec.md §5 task 3).
func (t *Topology) runConsensusTick(ctx context.Context, done chan<- struct{}) {
	defer func() { done <- struct{}{} }()
	if t.consensus == nil {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(t.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			t.tick(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (t *Topology) tick(ctx context.Context) {
	nowMs := currentTimeMs()
	txs := t.queue.Drain(0, nowMs)
	if len(txs) == 0 {
		return
	}
	height := t.kura.NextHeight()
	prevHash := t.kura.LatestBlockHash()
	block, err := t.consensus.ProposeBlock(ctx, height, prevHash, txs)
	if err != nil {
		log.WithError(err).Warn("topology: consensus round failed")
		return
	}
	select {
	case t.toStore <- block:
	case <-ctx.Done():
	}
}

// runStoreWriter drains toStore and persists each valid block, forwarding
// the committed block on committed (spec.md §5 task 5).
func (t *Topology) runStoreWriter(ctx context.Context, done chan<- struct{}) {
	defer func() { done <- struct{}{} }()
	for {
		select {
		case b := <-t.toStore:
			if _, err := t.kura.Write(b); err != nil {
				log.WithError(err).Error("topology: store writer failed to persist block")
				continue
			}
			select {
			case t.committed <- b:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// runWSVApplier drains committed and applies each block to the
// authoritative WSV, then nudges block-sync (spec.md §5 task 4).
func (t *Topology) runWSVApplier(ctx context.Context, done chan<- struct{}) {
	defer func() { done <- struct{}{} }()
	for {
		select {
		case b := <-t.committed:
			if err := b.Apply(t.wsv); err != nil {
				log.WithError(err).WithField("height", b.Header.Height).
					Error("topology: WSV applier failed on committed block")
			}
			if t.sync != nil {
				t.sync.NotifyCommitted(b)
			}
		case <-ctx.Done():
			return
		}
	}
}
