package core

import "testing"

func TestBlockChainValidatesPreviousHash(t *testing.T) {
	genesis := NewPendingBlock(0, Hash{}, nil, 1000)
	genesis.State = BlockPending
	if err := genesis.Chain(nil); err != nil {
		t.Fatalf("genesis Chain: %v", err)
	}
	if genesis.State != BlockChained {
		t.Fatalf("state = %v, want Chained", genesis.State)
	}

	next := NewPendingBlock(1, genesis.Hash(), nil, 2000)
	if err := next.Chain(genesis); err != nil {
		t.Fatalf("next Chain: %v", err)
	}

	wrongPrev := NewPendingBlock(1, Hash{0xFF}, nil, 2000)
	if err := wrongPrev.Chain(genesis); !Is(err, KindInvalidBlock) {
		t.Fatalf("expected InvalidBlock for a mismatched previous hash, got %v", err)
	}
}

func TestBlockValidateDropsRejectedTransactions(t *testing.T) {
	peer, root := newTestPeer()
	wsv := NewWorldStateView(peer)
	_ = wsv.Execute(root, AddDomain{Name: "wonderland"})
	kp, _ := GenerateKeyPair()
	alice := NewAccountId("alice", "wonderland")
	_ = wsv.Execute(root, RegisterAccount{Domain: "wonderland", Account: NewAccount(alice, 1, kp.Public)})

	good := newSignedTransaction(t, alice, kp, []Instruction{
		Notify{Message: "alice needs no capability to notify"},
	})
	bad := newSignedTransaction(t, alice, kp, []Instruction{
		// alice lacks RegisterDomain capability, so this transaction cannot validate.
		AddDomain{Name: "neverland"},
	})

	b := NewPendingBlock(0, Hash{}, []*Transaction{good, bad}, 1000)
	if err := b.Chain(nil); err != nil {
		t.Fatalf("Chain: %v", err)
	}
	if err := b.Validate(wsv); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(b.Transactions) != 1 || b.Transactions[0] != good {
		t.Fatalf("Validate should drop the rejected transaction, kept %d", len(b.Transactions))
	}
	if b.State != BlockValid {
		t.Fatalf("state = %v, want Valid", b.State)
	}
}

func TestBlockValidateAppliesEarlierTransactionBeforeValidatingNext(t *testing.T) {
	peer, root := newTestPeer()
	wsv := NewWorldStateView(peer)
	_ = wsv.Execute(root, AddDomain{Name: "wonderland"})
	roseID := NewAssetDefinitionId("rose", "wonderland")
	_ = wsv.Execute(root, RegisterAsset{Domain: "wonderland", AssetDefinition: NewAssetDefinition(roseID)})
	rootKP := mustKeyPairFor(t, root, wsv)

	alice := NewAccountId("alice", "wonderland")
	registerAlice := newSignedTransaction(t, root, rootKP, []Instruction{
		RegisterAccount{Domain: "wonderland", Account: NewAccount(alice, 1)},
	})
	// mintForAlice only validates if alice already exists, which requires
	// registerAlice's effects to have been applied to the block scratch first.
	mintForAlice := newSignedTransaction(t, root, rootKP, []Instruction{
		MintAsset{Id: NewAssetId(roseID, alice), Quantity: 10},
	})

	b := NewPendingBlock(0, Hash{}, []*Transaction{registerAlice, mintForAlice}, 1000)
	if err := b.Chain(nil); err != nil {
		t.Fatalf("Chain: %v", err)
	}
	if err := b.Validate(wsv); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(b.Transactions) != 2 {
		t.Fatalf("both transactions should survive (the mint depends on the earlier "+
			"registration having been applied to the block scratch), kept %d", len(b.Transactions))
	}
}

func TestBlockValidateDropsSecondOfConflictingTransactions(t *testing.T) {
	peer, root := newTestPeer()
	wsv := NewWorldStateView(peer)
	_ = wsv.Execute(root, AddDomain{Name: "wonderland"})
	roseID := NewAssetDefinitionId("rose", "wonderland")
	_ = wsv.Execute(root, RegisterAsset{Domain: "wonderland", AssetDefinition: NewAssetDefinition(roseID)})
	kp, _ := GenerateKeyPair()
	alice := NewAccountId("alice", "wonderland")
	bob := NewAccountId("bob", "wonderland")
	_ = wsv.Execute(root, RegisterAccount{Domain: "wonderland", Account: NewAccount(alice, 1, kp.Public)})
	_ = wsv.Execute(root, RegisterAccount{Domain: "wonderland", Account: NewAccount(bob, 1)})
	_ = wsv.Execute(root, MintAsset{Id: NewAssetId(roseID, alice), Quantity: 10})
	_ = wsv.Execute(root, GrantPermission{Target: alice, Capability: PermissionTransferAsset})

	// Both transactions spend alice's entire 10-unit balance; only the first
	// can succeed once applied to the block scratch.
	spend1 := newSignedTransaction(t, alice, kp, []Instruction{
		TransferAsset{Src: alice, Dst: bob, Asset: roseID, Quantity: 10},
	})
	spend2 := newSignedTransaction(t, alice, kp, []Instruction{
		TransferAsset{Src: alice, Dst: bob, Asset: roseID, Quantity: 10},
	})

	b := NewPendingBlock(0, Hash{}, []*Transaction{spend1, spend2}, 1000)
	if err := b.Chain(nil); err != nil {
		t.Fatalf("Chain: %v", err)
	}
	if err := b.Validate(wsv); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(b.Transactions) != 1 || b.Transactions[0] != spend1 {
		t.Fatalf("exactly the first conflicting transaction should survive, kept %d", len(b.Transactions))
	}

	if err := b.Apply(wsv); err != nil {
		t.Fatalf("Apply should succeed on the already-consistent surviving set: %v", err)
	}
}

func TestBlockApplyCommitsToWSV(t *testing.T) {
	peer, root := newTestPeer()
	wsv := NewWorldStateView(peer)

	b := NewPendingBlock(0, Hash{}, []*Transaction{
		newSignedTransaction(t, root, mustKeyPairFor(t, root, wsv), []Instruction{AddDomain{Name: "wonderland"}}),
	}, 1000)
	if err := b.Chain(nil); err != nil {
		t.Fatalf("Chain: %v", err)
	}
	if err := b.Validate(wsv); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := b.Apply(wsv); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if b.State != BlockCommitted {
		t.Fatalf("state = %v, want Committed", b.State)
	}
	if !wsv.HasDomain("wonderland") {
		t.Fatalf("Apply did not commit the domain registration")
	}
}

// mustKeyPairFor registers kp's public key as a signatory of account so a
// transaction created by account can meet its quorum of 1.
func mustKeyPairFor(t *testing.T, account AccountId, wsv *WorldStateView) KeyPair {
	t.Helper()
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	if err := wsv.Execute(account, AddSignatory{Account: account, Key: kp.Public}); err != nil {
		t.Fatalf("AddSignatory: %v", err)
	}
	return kp
}
