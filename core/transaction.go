package core

// transaction.go – the transaction lifecycle: Requested -> Accepted ->
// Signed -> Valid -> applied (spec.md §4.4).
//
// Grounded on the teacher's core/transactions.go (HashTx/Sign/VerifySig
// shape, TxPool.ValidateTx, AddTx's nonce/balance checks) and
// core/wallet.go's ed25519 usage. Adapted from single-key ECDSA
// (go-ethereum crypto.Sign/secp256k1) to Ed25519 multi-signature with a
// quorum rule (SPEC_FULL.md §3.1), since the spec requires Ed25519 and a
// transaction that validates only once its creator account's quorum of
// signatories has signed, not a single wallet key.

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TransactionPayload is the signed body of a transaction: creator, ordered
// instructions, creation timestamp, and a proposed TTL.
type TransactionPayload struct {
	Creator      AccountId
	Instructions []Instruction
	CreatedAtMs  int64
	TTLMs        int64
}

// TransactionState names the lifecycle stage a Transaction occupies.
type TransactionState uint8

const (
	StateRequested TransactionState = iota
	StateAccepted
	StateSigned
	StateValid
)

// Transaction is a payload paired with its accumulated signatures. State
// transitions (Accept/Sign/Validate) are methods on *Transaction that
// update State and Signatures in place and return only an error.
type Transaction struct {
	Payload     TransactionPayload
	Signatures  *Signatures
	State       TransactionState
	Correlation uuid.UUID
}

// NewTransaction constructs a Requested-state transaction from payload.
func NewTransaction(payload TransactionPayload) *Transaction {
	return &Transaction{
		Payload:     payload,
		Signatures:  NewSignatures(),
		State:       StateRequested,
		Correlation: uuid.New(),
	}
}

// Hash returns the Blake2b-256 digest of the payload's canonical encoding.
// This is the value every signature is computed and verified over, and the
// transaction's identity for pool/lookup purposes.
func (tx *Transaction) Hash() Hash {
	return HashBytes(encodeTxPayload(tx.Payload))
}

// Accept verifies every attached signature over the payload's canonical
// encoding and transitions Requested -> Accepted. No WSV access occurs
// here (spec.md §4.4 step 1).
func (tx *Transaction) Accept() error {
	if tx.State != StateRequested {
		return NewError(KindInvalidTransaction, "Accept", fmt.Errorf("transaction not in Requested state"))
	}
	hash := tx.Hash()
	verified := tx.Signatures.VerifiedAgainst(hash[:])
	if len(verified) != tx.Signatures.Len() {
		return NewError(KindBadSignature, "Accept", fmt.Errorf("not every attached signature verifies"))
	}
	tx.State = StateAccepted
	return nil
}

// Sign appends kp's signature over the transaction hash.
// Signatures are idempotent by public key (spec.md §4.4 step 2): signing
// twice with the same key simply overwrites the prior signature.
func (tx *Transaction) Sign(kp KeyPair) error {
	if tx.State != StateAccepted && tx.State != StateSigned {
		return NewError(KindInvalidTransaction, "Sign", fmt.Errorf("transaction not Accepted or Signed"))
	}
	hash := tx.Hash()
	tx.Signatures.Add(kp.Public, Sign(kp.Private, hash[:]))
	tx.State = StateSigned
	return nil
}

// meetsQuorum reports whether at least creator.Quorum distinct signatories
// of the creator account have attached a verifying signature.
func (tx *Transaction) meetsQuorum(wsv *WorldStateView) (bool, error) {
	account, err := wsv.Account(tx.Payload.Creator)
	if err != nil {
		return false, Wrap("meetsQuorum", err)
	}
	hash := tx.Hash()
	count := uint32(0)
	for _, pub := range tx.Signatures.VerifiedAgainst(hash[:]) {
		if account.HasSignatory(pub) {
			count++
		}
	}
	return count >= account.Quorum, nil
}

// Validate executes every instruction against a cloned WSV in order,
// aborting on first failure, and transitions Signed -> Valid on success
// (spec.md §4.4 step 3). It additionally requires the creator account's
// quorum of signatories to have signed.
func (tx *Transaction) Validate(wsv *WorldStateView) error {
	if tx.State != StateSigned {
		return NewError(KindInvalidTransaction, "Validate", fmt.Errorf("transaction not Signed"))
	}
	ok, err := tx.meetsQuorum(wsv)
	if err != nil {
		return err
	}
	if !ok {
		return NewError(KindBadSignature, "Validate", fmt.Errorf("insufficient signatures for quorum"))
	}
	scratch := wsv.Clone()
	for idx, instr := range tx.Payload.Instructions {
		if err := instr.Execute(tx.Payload.Creator, scratch); err != nil {
			return Wrap(fmt.Sprintf("Validate[instruction %d]", idx), err)
		}
	}
	tx.State = StateValid
	return nil
}

// Apply re-executes every instruction against the authoritative wsv at
// commit time (spec.md §4.4 step 4). Re-execution is deterministic given
// the same WSV snapshot, so it is only ever called once Validate has
// already proven the transaction applies cleanly in isolation.
func (tx *Transaction) Apply(wsv *WorldStateView) error {
	for idx, instr := range tx.Payload.Instructions {
		if err := wsv.Execute(tx.Payload.Creator, instr); err != nil {
			return Wrap(fmt.Sprintf("Apply[instruction %d]", idx), err)
		}
	}
	return nil
}

// Expired reports whether the transaction's TTL has elapsed relative to
// nowMs, clamped to maxTTLMs (spec.md §4.4: "now - creation_time >
// min(payload.ttl, queue.max_ttl)").
func (tx *Transaction) Expired(nowMs int64, maxTTLMs int64) bool {
	ttl := tx.Payload.TTLMs
	if maxTTLMs > 0 && maxTTLMs < ttl {
		ttl = maxTTLMs
	}
	return nowMs-tx.Payload.CreatedAtMs > ttl
}

// encodeTxPayload canonically encodes payload per core/codec.go's format:
// little-endian fixed-width integers, length-prefixed sequences, enum tags.
func encodeTxPayload(p TransactionPayload) []byte {
	e := NewEncoder()
	e.WriteString(p.Creator.Name)
	e.WriteString(string(p.Creator.Domain))
	e.WriteVarint(uint64(len(p.Instructions)))
	for _, instr := range p.Instructions {
		encodeInstruction(e, instr)
	}
	e.WriteInt64(p.CreatedAtMs)
	e.WriteInt64(p.TTLMs)
	return e.Bytes()
}

// ---------------------------------------------------------------------
// Pending transaction queue
// ---------------------------------------------------------------------

// PendingQueue is the bounded, TTL-aware mem-pool consensus drains on each
// tick. Grounded on the teacher's TxPool (FIFO Pick, Snapshot, priority
// queue skeleton): Push admits only transactions that have passed Accept;
// the creator's signature quorum is checked later, by Validate. TTL expiry
// is checked on every drain.
type PendingQueue struct {
	mu       sync.Mutex
	capacity int
	maxTTLMs int64
	lookup   map[Hash]*Transaction
	order    []*Transaction
}

// NewPendingQueue constructs an empty queue bounded to capacity entries
// with the given maximum TTL override (spec.md §4.4).
func NewPendingQueue(capacity int, maxTTLMs int64) *PendingQueue {
	return &PendingQueue{
		capacity: capacity,
		maxTTLMs: maxTTLMs,
		lookup:   make(map[Hash]*Transaction),
	}
}

// Push admits an Accepted-or-later transaction into the pool. Duplicate
// transactions (by hash) are rejected; a full pool rejects new entries
// rather than suspending, since admission happens off the RPC intake path,
// not a consensus-owned channel (those provide the backpressure, spec.md §5).
func (q *PendingQueue) Push(tx *Transaction) error {
	if tx.State == StateRequested {
		return NewError(KindInvalidTransaction, "Push", fmt.Errorf("transaction not yet Accepted"))
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	h := tx.Hash()
	if _, exists := q.lookup[h]; exists {
		return NewError(KindAlreadyExists, "Push", fmt.Errorf("transaction %s already pending", h.Hex()))
	}
	if len(q.order) >= q.capacity {
		return NewError(KindInvalidTransaction, "Push", fmt.Errorf("pending queue at capacity %d", q.capacity))
	}
	q.lookup[h] = tx
	q.order = append(q.order, tx)
	return nil
}

// Drain removes up to max non-expired transactions in FIFO order (every
// non-expired one when max <= 0), silently dropping any whose TTL has
// elapsed (spec.md §5's cancellation model).
func (q *PendingQueue) Drain(max int, nowMs int64) []*Transaction {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []*Transaction
	var kept []*Transaction
	for _, tx := range q.order {
		if tx.Expired(nowMs, q.maxTTLMs) {
			delete(q.lookup, tx.Hash())
			continue
		}
		if len(out) < max || max <= 0 {
			out = append(out, tx)
			delete(q.lookup, tx.Hash())
			continue
		}
		kept = append(kept, tx)
	}
	q.order = kept
	return out
}

// Len reports the number of pending transactions.
func (q *PendingQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.order)
}

// Snapshot returns a copy of all pending transactions for inspection
// (mirrors the teacher's TxPool.Snapshot).
func (q *PendingQueue) Snapshot() []*Transaction {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*Transaction, len(q.order))
	copy(out, q.order)
	return out
}

// currentTimeMs is a seam for tests; production code calls time.Now().
var currentTimeMs = func() int64 { return time.Now().UnixMilli() }
