package core

import (
	"math/big"
	"testing"
)

func newTestPeer() (*Peer, AccountId) {
	peer := NewPeer(NewPeerId("localhost:1337", PublicKey{}))
	wsv := NewWorldStateView(peer)
	root := NewAccountId("root", GlobalDomain)
	_ = wsv.addDomain(NewDomain(GlobalDomain))
	_ = wsv.registerAssetDefinition(GlobalDomain, NewAssetDefinition(PermissionAssetDefinitionId()))
	account := NewAccount(root, 1)
	_ = wsv.registerAccount(GlobalDomain, account)
	assetID := NewAssetId(PermissionAssetDefinitionId(), root)
	_ = wsv.mutateAsset(assetID, AssetKindPermission, func(a *Asset) error {
		a.Permission = PermissionAnything
		return nil
	})
	return peer, root
}

func TestAddDomainRequiresPermission(t *testing.T) {
	peer, root := newTestPeer()
	wsv := NewWorldStateView(peer)

	unprivileged := NewAccountId("nobody", GlobalDomain)
	if err := wsv.Execute(root, RegisterAccount{Domain: GlobalDomain, Account: NewAccount(unprivileged, 1)}); err != nil {
		t.Fatalf("register nobody: %v", err)
	}
	if err := wsv.Execute(unprivileged, AddDomain{Name: "wonderland"}); !Is(err, KindPermissionDenied) {
		t.Fatalf("expected PermissionDenied, got %v", err)
	}
	if err := wsv.Execute(root, AddDomain{Name: "wonderland"}); err != nil {
		t.Fatalf("AddDomain with permission: %v", err)
	}
	if !wsv.HasDomain("wonderland") {
		t.Fatalf("domain not registered")
	}
}

func TestMintAssetOverflow(t *testing.T) {
	peer, root := newTestPeer()
	wsv := NewWorldStateView(peer)
	_ = wsv.Execute(root, AddDomain{Name: "wonderland"})
	defID := NewAssetDefinitionId("rose", "wonderland")
	_ = wsv.Execute(root, RegisterAsset{Domain: "wonderland", AssetDefinition: NewAssetDefinition(defID)})
	alice := NewAccountId("alice", "wonderland")
	_ = wsv.Execute(root, RegisterAccount{Domain: "wonderland", Account: NewAccount(alice, 1)})
	assetID := NewAssetId(defID, alice)

	if err := wsv.Execute(root, MintAsset{Id: assetID, Quantity: 4294967295, Saturate: false}); err != nil {
		t.Fatalf("mint to max: %v", err)
	}
	if err := wsv.Execute(root, MintAsset{Id: assetID, Quantity: 1, Saturate: false}); !Is(err, KindOverflow) {
		t.Fatalf("expected Overflow, got %v", err)
	}
	if err := wsv.Execute(root, MintAsset{Id: assetID, Quantity: 1, Saturate: true}); err != nil {
		t.Fatalf("saturating mint: %v", err)
	}
	account, err := wsv.Account(alice)
	if err != nil {
		t.Fatalf("Account: %v", err)
	}
	if account.Assets[assetID].Quantity != 4294967295 {
		t.Fatalf("saturated quantity = %d, want max uint32", account.Assets[assetID].Quantity)
	}
}

func TestMintBigAssetRejectsU128Overflow(t *testing.T) {
	peer, root := newTestPeer()
	wsv := NewWorldStateView(peer)
	_ = wsv.Execute(root, AddDomain{Name: "wonderland"})
	defID := NewAssetDefinitionId("treasure", "wonderland")
	_ = wsv.Execute(root, RegisterAsset{Domain: "wonderland", AssetDefinition: NewAssetDefinition(defID)})
	alice := NewAccountId("alice", "wonderland")
	_ = wsv.Execute(root, RegisterAccount{Domain: "wonderland", Account: NewAccount(alice, 1)})
	assetID := NewAssetId(defID, alice)

	maxU128Str := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1)).String()
	max, ok := BigUintFromString(maxU128Str)
	if !ok {
		t.Fatalf("BigUintFromString(%q) failed", maxU128Str)
	}
	if err := wsv.Execute(root, MintBigAsset{Id: assetID, Quantity: max}); err != nil {
		t.Fatalf("mint to u128 max: %v", err)
	}
	if err := wsv.Execute(root, MintBigAsset{Id: assetID, Quantity: NewBigUint(1)}); !Is(err, KindOverflow) {
		t.Fatalf("expected Overflow minting past u128 max, got %v", err)
	}
}

func TestTransferAssetInsufficientBalance(t *testing.T) {
	peer, root := newTestPeer()
	wsv := NewWorldStateView(peer)
	_ = wsv.Execute(root, AddDomain{Name: "wonderland"})
	defID := NewAssetDefinitionId("rose", "wonderland")
	_ = wsv.Execute(root, RegisterAsset{Domain: "wonderland", AssetDefinition: NewAssetDefinition(defID)})
	alice := NewAccountId("alice", "wonderland")
	bob := NewAccountId("bob", "wonderland")
	_ = wsv.Execute(root, RegisterAccount{Domain: "wonderland", Account: NewAccount(alice, 1)})
	_ = wsv.Execute(root, RegisterAccount{Domain: "wonderland", Account: NewAccount(bob, 1)})

	err := wsv.Execute(root, TransferAsset{Src: alice, Dst: bob, Asset: defID, Quantity: 10})
	if !Is(err, KindNotFound) {
		t.Fatalf("expected NotFound for an asset alice never held, got %v", err)
	}

	assetID := NewAssetId(defID, alice)
	_ = wsv.Execute(root, MintAsset{Id: assetID, Quantity: 5})
	if err := wsv.Execute(root, TransferAsset{Src: alice, Dst: bob, Asset: defID, Quantity: 10}); !Is(err, KindUnderflow) {
		t.Fatalf("expected Underflow, got %v", err)
	}
	if err := wsv.Execute(root, TransferAsset{Src: alice, Dst: bob, Asset: defID, Quantity: 5}); err != nil {
		t.Fatalf("transfer within balance: %v", err)
	}
	bobAccount, _ := wsv.Account(bob)
	if bobAccount.Assets[NewAssetId(defID, bob)].Quantity != 5 {
		t.Fatalf("bob did not receive transferred quantity")
	}
}

func TestGrantAndRevokePermissionIdempotent(t *testing.T) {
	peer, root := newTestPeer()
	wsv := NewWorldStateView(peer)
	_ = wsv.Execute(root, AddDomain{Name: "wonderland"})
	alice := NewAccountId("alice", "wonderland")
	_ = wsv.Execute(root, RegisterAccount{Domain: "wonderland", Account: NewAccount(alice, 1)})

	if err := wsv.Execute(root, GrantPermission{Target: alice, Capability: PermissionMintAsset}); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if err := wsv.Execute(root, GrantPermission{Target: alice, Capability: PermissionMintAsset}); err != nil {
		t.Fatalf("re-grant should be idempotent: %v", err)
	}
	if err := wsv.Execute(alice, Check{Capability: PermissionMintAsset, Authority: alice}); err != nil {
		t.Fatalf("alice should hold granted capability: %v", err)
	}

	if err := wsv.Execute(root, RevokePermission{Target: alice, Capability: PermissionMintAsset}); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := wsv.Execute(root, RevokePermission{Target: alice, Capability: PermissionMintAsset}); err != nil {
		t.Fatalf("re-revoke should be a no-op, not an error: %v", err)
	}
	if err := wsv.Execute(alice, Check{Capability: PermissionMintAsset, Authority: alice}); !Is(err, KindPermissionDenied) {
		t.Fatalf("expected PermissionDenied after revoke, got %v", err)
	}
}

func TestSequenceAbortsOnFirstFailure(t *testing.T) {
	peer, root := newTestPeer()
	wsv := NewWorldStateView(peer)

	err := wsv.Execute(root, Sequence{Instructions: []Instruction{
		AddDomain{Name: "wonderland"},
		Fail{Message: "deliberate"},
		AddDomain{Name: "neverland"},
	}})
	if err == nil {
		t.Fatalf("expected Sequence to fail")
	}
	if wsv.HasDomain("wonderland") || wsv.HasDomain("neverland") {
		t.Fatalf("partial mutation leaked out of a failed Execute: clone-then-swap should have discarded it")
	}
}

func TestIfBranchesOnConditionResult(t *testing.T) {
	peer, root := newTestPeer()
	wsv := NewWorldStateView(peer)
	_ = wsv.Execute(root, AddDomain{Name: "wonderland"})

	instr := If{
		Cond: ExecuteQuery{Query: GetDomain{Id: "wonderland"}},
		Then: AddDomain{Name: "then-branch"},
		Else: AddDomain{Name: "else-branch"},
	}
	if err := wsv.Execute(root, instr); err != nil {
		t.Fatalf("If: %v", err)
	}
	if !wsv.HasDomain("then-branch") || wsv.HasDomain("else-branch") {
		t.Fatalf("If did not take the Then branch when condition query succeeded")
	}
}
