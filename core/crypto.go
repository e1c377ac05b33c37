package core

// crypto.go – Ed25519 keypairs, Blake2b-256 hashing, a Signatures collection
// keyed by public key, and a bottom-up Merkle tree over 32-byte leaves.
//
// Grounded on the teacher's core/wallet.go (crypto/ed25519 keypair
// generation and signing) and core/utility_functions.go
// (golang.org/x/crypto/blake2b.Sum256 hashing). Never panics on untrusted
// input; malformed keys/signatures surface as CryptoError.

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// PublicKey is a 32-byte Ed25519 public key.
type PublicKey [ed25519.PublicKeySize]byte

func (p PublicKey) Hex() string { return hex.EncodeToString(p[:]) }

func (p PublicKey) Bytes() []byte { return p[:] }

// PrivateKey is a 64-byte Ed25519 private key (seed || public key).
type PrivateKey [ed25519.PrivateKeySize]byte

func (p PrivateKey) Public() PublicKey {
	var pub PublicKey
	copy(pub[:], ed25519.PrivateKey(p[:]).Public().(ed25519.PublicKey))
	return pub
}

// KeyPair bundles a private key with its derived public key.
type KeyPair struct {
	Public  PublicKey
	Private PrivateKey
}

// GenerateKeyPair creates a fresh Ed25519 keypair using a CSPRNG.
func GenerateKeyPair() (KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, NewError(KindCryptoError, "GenerateKeyPair", err)
	}
	var kp KeyPair
	copy(kp.Public[:], pub)
	copy(kp.Private[:], priv)
	return kp, nil
}

// KeyPairFromSeed derives a deterministic keypair from a 32-byte seed.
func KeyPairFromSeed(seed []byte) (KeyPair, error) {
	if len(seed) != ed25519.SeedSize {
		return KeyPair{}, NewError(KindCryptoError, "KeyPairFromSeed",
			fmt.Errorf("seed must be %d bytes, got %d", ed25519.SeedSize, len(seed)))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	var kp KeyPair
	copy(kp.Public[:], pub)
	copy(kp.Private[:], priv)
	return kp, nil
}

// Sign signs payload with the private key, returning a 64-byte signature.
func Sign(priv PrivateKey, payload []byte) []byte {
	return ed25519.Sign(ed25519.PrivateKey(priv[:]), payload)
}

// Verify reports whether sig is a valid Ed25519 signature of payload by pub.
// It never panics, even on a malformed signature length.
func Verify(pub PublicKey, payload, sig []byte) bool {
	if len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub[:]), payload, sig)
}

// parseHexPublicKey decodes a hex-encoded 32-byte Ed25519 public key, as
// used by the genesis loader (core/genesis.go).
func parseHexPublicKey(s string) (PublicKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return PublicKey{}, NewError(KindCryptoError, "parseHexPublicKey", err)
	}
	if len(b) != ed25519.PublicKeySize {
		return PublicKey{}, NewError(KindCryptoError, "parseHexPublicKey",
			fmt.Errorf("expected %d bytes, got %d", ed25519.PublicKeySize, len(b)))
	}
	var pub PublicKey
	copy(pub[:], b)
	return pub, nil
}

// Hash is a 32-byte Blake2b-256 digest.
type Hash [32]byte

func (h Hash) Hex() string { return hex.EncodeToString(h[:]) }

func (h Hash) IsZero() bool { return h == Hash{} }

// HashBytes returns the Blake2b-256 digest of data.
func HashBytes(data []byte) Hash {
	return Hash(blake2b.Sum256(data))
}

// Signature pairs a signer's public key with their signature bytes over
// some externally-agreed payload (a transaction or block hash).
type Signature struct {
	PublicKey PublicKey
	Payload   []byte
}

// Signatures is an insertion-order-irrelevant collection of signatures keyed
// by public key. Re-inserting a signature for an already-present public key
// overwrites it (idempotent by public key, per spec.md §4.4 step 2).
type Signatures struct {
	byKey map[PublicKey][]byte
}

func NewSignatures() *Signatures {
	return &Signatures{byKey: make(map[PublicKey][]byte)}
}

// Add inserts or replaces the signature for pub.
func (s *Signatures) Add(pub PublicKey, sig []byte) {
	if s.byKey == nil {
		s.byKey = make(map[PublicKey][]byte)
	}
	s.byKey[pub] = sig
}

// Len reports the number of distinct public keys with a signature.
func (s *Signatures) Len() int { return len(s.byKey) }

// Keys returns the public keys with an attached signature, in no particular
// order.
func (s *Signatures) Keys() []PublicKey {
	keys := make([]PublicKey, 0, len(s.byKey))
	for k := range s.byKey {
		keys = append(keys, k)
	}
	return keys
}

// Get returns the raw signature bytes for pub, if present.
func (s *Signatures) Get(pub PublicKey) ([]byte, bool) {
	sig, ok := s.byKey[pub]
	return sig, ok
}

// VerifiedAgainst returns the subset of public keys whose signature
// verifies over payload.
func (s *Signatures) VerifiedAgainst(payload []byte) []PublicKey {
	var verified []PublicKey
	for pub, sig := range s.byKey {
		if Verify(pub, payload, sig) {
			verified = append(verified, pub)
		}
	}
	return verified
}

// MerkleRoot builds a bottom-up Merkle tree over leaves by repeatedly
// hashing adjacent pairs, duplicating the last leaf at odd levels, and
// returns the 32-byte root. An empty leaf set yields the zero hash.
func MerkleRoot(leaves []Hash) Hash {
	if len(leaves) == 0 {
		return Hash{}
	}
	level := make([]Hash, len(leaves))
	copy(level, leaves)
	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([]Hash, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			buf := make([]byte, 0, 64)
			buf = append(buf, level[i][:]...)
			buf = append(buf, level[i+1][:]...)
			next = append(next, HashBytes(buf))
		}
		level = next
	}
	return level[0]
}
