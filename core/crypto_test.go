package core

import "testing"

func TestSignVerifyRoundTrip(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	payload := []byte("meridian")
	sig := Sign(kp.Private, payload)

	tests := []struct {
		name    string
		pub     PublicKey
		payload []byte
		sig     []byte
		want    bool
	}{
		{"valid", kp.Public, payload, sig, true},
		{"wrong payload", kp.Public, []byte("tampered"), sig, false},
		{"truncated signature", kp.Public, payload, sig[:10], false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Verify(tc.pub, tc.payload, tc.sig); got != tc.want {
				t.Errorf("Verify() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestKeyPairFromSeedDeterministic(t *testing.T) {
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = byte(i)
	}
	kp1, err := KeyPairFromSeed(seed)
	if err != nil {
		t.Fatalf("KeyPairFromSeed: %v", err)
	}
	kp2, err := KeyPairFromSeed(seed)
	if err != nil {
		t.Fatalf("KeyPairFromSeed: %v", err)
	}
	if kp1.Public != kp2.Public {
		t.Fatalf("same seed produced different public keys")
	}
}

func TestKeyPairFromSeedRejectsWrongLength(t *testing.T) {
	if _, err := KeyPairFromSeed([]byte("too short")); err == nil {
		t.Fatalf("expected error for short seed")
	}
}

func TestHashBytesDeterministic(t *testing.T) {
	a := HashBytes([]byte("alpha"))
	b := HashBytes([]byte("alpha"))
	if a != b {
		t.Fatalf("HashBytes not deterministic")
	}
	c := HashBytes([]byte("beta"))
	if a == c {
		t.Fatalf("different inputs produced same hash")
	}
}

func TestMerkleRootEmptyAndSingle(t *testing.T) {
	if got := MerkleRoot(nil); !got.IsZero() {
		t.Fatalf("MerkleRoot(nil) = %v, want zero hash", got)
	}
	leaf := HashBytes([]byte("only"))
	if got := MerkleRoot([]Hash{leaf}); got != leaf {
		t.Fatalf("MerkleRoot single leaf = %v, want %v", got, leaf)
	}
}

func TestMerkleRootOddLeafCountDuplicatesLast(t *testing.T) {
	leaves := []Hash{
		HashBytes([]byte("a")),
		HashBytes([]byte("b")),
		HashBytes([]byte("c")),
	}
	rootOdd := MerkleRoot(leaves)
	rootDuplicated := MerkleRoot(append(append([]Hash{}, leaves...), leaves[2]))
	if rootOdd != rootDuplicated {
		t.Fatalf("odd-length Merkle root does not match explicit last-leaf duplication")
	}
}

func TestSignaturesVerifiedAgainst(t *testing.T) {
	kp1, _ := GenerateKeyPair()
	kp2, _ := GenerateKeyPair()
	payload := []byte("quorum-check")

	sigs := NewSignatures()
	sigs.Add(kp1.Public, Sign(kp1.Private, payload))
	sigs.Add(kp2.Public, []byte("not a real signature"))

	verified := sigs.VerifiedAgainst(payload)
	if len(verified) != 1 || verified[0] != kp1.Public {
		t.Fatalf("VerifiedAgainst = %v, want only kp1", verified)
	}
}
