package core

import "testing"

func newSignedTransaction(t *testing.T, creator AccountId, kp KeyPair, instrs []Instruction) *Transaction {
	t.Helper()
	tx := NewTransaction(TransactionPayload{
		Creator:      creator,
		Instructions: instrs,
		CreatedAtMs:  1000,
		TTLMs:        60000,
	})
	if err := tx.Sign(kp); err == nil {
		t.Fatalf("Sign should fail before Accept")
	}
	if err := tx.Accept(); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if err := tx.Sign(kp); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	return tx
}

func TestTransactionLifecycleHappyPath(t *testing.T) {
	peer, root := newTestPeer()
	wsv := NewWorldStateView(peer)
	_ = wsv.Execute(root, AddDomain{Name: "wonderland"})

	kp, _ := GenerateKeyPair()
	alice := NewAccountId("alice", "wonderland")
	_ = wsv.Execute(root, RegisterAccount{Domain: "wonderland", Account: NewAccount(alice, 1, kp.Public)})
	_ = wsv.Execute(root, GrantPermission{Target: alice, Capability: PermissionRegisterAsset})

	tx := newSignedTransaction(t, alice, kp, []Instruction{
		RegisterAsset{Domain: "wonderland", AssetDefinition: NewAssetDefinition(NewAssetDefinitionId("rose", "wonderland"))},
	})
	if tx.State != StateSigned {
		t.Fatalf("state = %v, want Signed", tx.State)
	}
	if err := tx.Validate(wsv); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if tx.State != StateValid {
		t.Fatalf("state = %v, want Valid", tx.State)
	}
	if err := tx.Apply(wsv); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !wsv.HasDomain("wonderland") {
		t.Fatalf("wonderland domain missing")
	}
	if _, err := wsv.Domain("wonderland"); err != nil {
		t.Fatalf("Domain: %v", err)
	}
}

func TestTransactionQuorumNotMet(t *testing.T) {
	peer, root := newTestPeer()
	wsv := NewWorldStateView(peer)
	_ = wsv.Execute(root, AddDomain{Name: "wonderland"})

	kp1, _ := GenerateKeyPair()
	kp2, _ := GenerateKeyPair()
	alice := NewAccountId("alice", "wonderland")
	_ = wsv.Execute(root, RegisterAccount{Domain: "wonderland", Account: NewAccount(alice, 2, kp1.Public, kp2.Public)})

	tx := NewTransaction(TransactionPayload{
		Creator:      alice,
		Instructions: []Instruction{AddDomain{Name: "neverland"}},
		CreatedAtMs:  1000,
		TTLMs:        60000,
	})
	hash := tx.Hash()
	tx.Signatures.Add(kp1.Public, Sign(kp1.Private, hash[:]))
	if err := tx.Accept(); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	tx.State = StateSigned
	if err := tx.Validate(wsv); !Is(err, KindBadSignature) {
		t.Fatalf("expected BadSignature for quorum 2 with 1 signature, got %v", err)
	}
}

func TestTransactionExpired(t *testing.T) {
	tx := &Transaction{Payload: TransactionPayload{CreatedAtMs: 1000, TTLMs: 5000}}
	if tx.Expired(3000, 0) {
		t.Fatalf("should not be expired at 3000ms with TTL 5000ms from 1000ms")
	}
	if !tx.Expired(7000, 0) {
		t.Fatalf("should be expired at 7000ms with TTL 5000ms from 1000ms")
	}
	if !tx.Expired(4000, 2000) {
		t.Fatalf("maxTTLMs should clamp the effective TTL to 2000ms")
	}
}

func TestPendingQueueDrainDropsExpired(t *testing.T) {
	peer, root := newTestPeer()
	wsv := NewWorldStateView(peer)
	_ = wsv.Execute(root, AddDomain{Name: "wonderland"})
	kp, _ := GenerateKeyPair()
	alice := NewAccountId("alice", "wonderland")
	_ = wsv.Execute(root, RegisterAccount{Domain: "wonderland", Account: NewAccount(alice, 1, kp.Public)})

	queue := NewPendingQueue(10, 0)
	fresh := newSignedTransaction(t, alice, kp, []Instruction{Notify{Message: "fresh"}})
	fresh.Payload.CreatedAtMs = 10000
	fresh.Payload.TTLMs = 60000
	stale := newSignedTransaction(t, alice, kp, []Instruction{Notify{Message: "stale"}})
	stale.Payload.CreatedAtMs = 0
	stale.Payload.TTLMs = 1000

	if err := queue.Push(fresh); err != nil {
		t.Fatalf("push fresh: %v", err)
	}
	if err := queue.Push(stale); err != nil {
		t.Fatalf("push stale: %v", err)
	}
	drained := queue.Drain(10, 10500)
	if len(drained) != 1 || drained[0] != fresh {
		t.Fatalf("Drain should silently drop the expired transaction, got %d entries", len(drained))
	}
}

func TestPendingQueueRejectsDuplicate(t *testing.T) {
	peer, root := newTestPeer()
	wsv := NewWorldStateView(peer)
	_ = wsv.Execute(root, AddDomain{Name: "wonderland"})
	kp, _ := GenerateKeyPair()
	alice := NewAccountId("alice", "wonderland")
	_ = wsv.Execute(root, RegisterAccount{Domain: "wonderland", Account: NewAccount(alice, 1, kp.Public)})

	queue := NewPendingQueue(10, 0)
	tx := newSignedTransaction(t, alice, kp, []Instruction{Notify{Message: "once"}})
	if err := queue.Push(tx); err != nil {
		t.Fatalf("first push: %v", err)
	}
	if err := queue.Push(tx); !Is(err, KindAlreadyExists) {
		t.Fatalf("expected AlreadyExists on duplicate push, got %v", err)
	}
}
