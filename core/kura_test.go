package core

import (
	"os"
	"path/filepath"
	"testing"
)

func buildTestBlock(t *testing.T, height uint64, prev Hash) *Block {
	t.Helper()
	peer, root := newTestPeer()
	wsv := NewWorldStateView(peer)
	kp, _ := GenerateKeyPair()
	alice := NewAccountId("alice", GlobalDomain)
	_ = wsv.Execute(root, RegisterAccount{Domain: GlobalDomain, Account: NewAccount(alice, 1, kp.Public)})
	tx := newSignedTransaction(t, alice, kp, []Instruction{Notify{Message: "kura fixture"}})
	b := NewPendingBlock(height, prev, []*Transaction{tx}, 1000+int64(height))
	b.State = BlockChained
	if err := b.Validate(wsv); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return b
}

func TestKuraWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	k := NewKura(dir, KuraFast)
	genesis, _ := newTestPeer()
	if _, err := k.Init(genesis); err != nil {
		t.Fatalf("Init: %v", err)
	}

	b := buildTestBlock(t, 0, Hash{})
	hash, err := k.Write(b)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if hash != b.Hash() {
		t.Fatalf("Write returned hash %v, want %v", hash, b.Hash())
	}

	got, err := k.Read(0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Header.Height != b.Header.Height || got.Hash() != b.Hash() {
		t.Fatalf("round-tripped block does not match original")
	}
	if len(got.Transactions) != 1 {
		t.Fatalf("round-tripped block has %d transactions, want 1", len(got.Transactions))
	}
}

func TestKuraWriteRejectsExistingHeight(t *testing.T) {
	dir := t.TempDir()
	k := NewKura(dir, KuraFast)
	genesis, _ := newTestPeer()
	if _, err := k.Init(genesis); err != nil {
		t.Fatalf("Init: %v", err)
	}
	b := buildTestBlock(t, 0, Hash{})
	if _, err := k.Write(b); err != nil {
		t.Fatalf("first Write: %v", err)
	}
	if _, err := k.Write(b); !Is(err, KindAlreadyExists) {
		t.Fatalf("expected AlreadyExists on second write at the same height, got %v", err)
	}
}

func TestKuraReadAllStopsAtGap(t *testing.T) {
	dir := t.TempDir()
	k := NewKura(dir, KuraFast)
	genesis, _ := newTestPeer()
	if _, err := k.Init(genesis); err != nil {
		t.Fatalf("Init: %v", err)
	}

	b0 := buildTestBlock(t, 0, Hash{})
	if _, err := k.Write(b0); err != nil {
		t.Fatalf("write 0: %v", err)
	}
	b1 := buildTestBlock(t, 1, b0.Hash())
	if _, err := k.Write(b1); err != nil {
		t.Fatalf("write 1: %v", err)
	}
	b2 := buildTestBlock(t, 2, b1.Hash())
	if _, err := k.Write(b2); err != nil {
		t.Fatalf("write 2: %v", err)
	}

	if err := os.Remove(filepath.Join(dir, "1")); err != nil {
		t.Fatalf("remove height 1: %v", err)
	}

	blocks, err := k.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(blocks) != 1 {
		t.Fatalf("ReadAll should stop at the gap left by the deleted height-1 file, got %d blocks", len(blocks))
	}
}

func TestKuraHeightAndLatestBlockHash(t *testing.T) {
	dir := t.TempDir()
	k := NewKura(dir, KuraFast)
	genesis, _ := newTestPeer()
	if _, err := k.Init(genesis); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if k.Height() != 0 {
		t.Fatalf("Height() = %d, want 0 for an empty store", k.Height())
	}
	if k.NextHeight() != 0 {
		t.Fatalf("NextHeight() = %d, want 0 for an empty store", k.NextHeight())
	}
	b0 := buildTestBlock(t, 0, Hash{})
	if _, err := k.Write(b0); err != nil {
		t.Fatalf("write 0: %v", err)
	}
	// One block committed at height 0: Height() still reports 0 (the highest
	// committed height), matching an empty store -- NextHeight distinguishes
	// the two by reporting how many blocks already exist.
	if k.Height() != 0 {
		t.Fatalf("Height() = %d, want 0 after committing only the genesis block", k.Height())
	}
	if k.NextHeight() != 1 {
		t.Fatalf("NextHeight() = %d, want 1 after committing one block", k.NextHeight())
	}
	if k.LatestBlockHash() != b0.Hash() {
		t.Fatalf("LatestBlockHash mismatch")
	}
}

func TestKuraHeightAfterThreeBlocksMatchesHighestHeight(t *testing.T) {
	dir := t.TempDir()
	k := NewKura(dir, KuraFast)
	genesis, _ := newTestPeer()
	if _, err := k.Init(genesis); err != nil {
		t.Fatalf("Init: %v", err)
	}
	b0 := buildTestBlock(t, 0, Hash{})
	if _, err := k.Write(b0); err != nil {
		t.Fatalf("write 0: %v", err)
	}
	b1 := buildTestBlock(t, 1, b0.Hash())
	if _, err := k.Write(b1); err != nil {
		t.Fatalf("write 1: %v", err)
	}
	b2 := buildTestBlock(t, 2, b1.Hash())
	if _, err := k.Write(b2); err != nil {
		t.Fatalf("write 2: %v", err)
	}
	if k.Height() != 2 {
		t.Fatalf("Height() = %d, want 2 after committing heights 0,1,2", k.Height())
	}
	if k.LatestBlockHash() != b2.Hash() {
		t.Fatalf("LatestBlockHash should equal block 2's hash")
	}
}

func TestParseKuraInitMode(t *testing.T) {
	tests := []struct {
		in      string
		want    KuraInitMode
		wantErr bool
	}{
		{"strict", KuraStrict, false},
		{"fast", KuraFast, false},
		{"", KuraFast, false},
		{"bogus", 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseKuraInitMode(tc.in)
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if err == nil && got != tc.want {
				t.Fatalf("mode = %v, want %v", got, tc.want)
			}
		})
	}
}
