package core

// wsv.go – the World State View: an in-memory façade over the Peer that is
// the single source of truth consulted by queries and block validation.
// All mutation goes through WorldStateView.Execute, which clones the
// current state, runs the instruction against the clone, and swaps it in
// only on success (copy-then-swap semantics, spec.md §7) — re-expressing
// the teacher's core/ledger.go RebuildChain "reset and replay" idiom as a
// per-instruction clone/commit instead of a whole-chain rebuild.

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
)

// WorldStateView is safe for concurrent use: readers (queries, block-sync)
// take a shared lock; writers (the WSV applier task) take an exclusive one.
type WorldStateView struct {
	mu   sync.RWMutex
	peer *Peer
}

// NewWorldStateView wraps peer in a WSV façade. peer is typically a fresh
// genesis Peer (see core/genesis.go) or one reconstructed by Kura replay.
func NewWorldStateView(peer *Peer) *WorldStateView {
	return &WorldStateView{peer: peer}
}

// PeerId returns the local peer's identity.
func (w *WorldStateView) PeerId() PeerId {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.peer.Id
}

// Domain returns a snapshot copy of the named domain.
func (w *WorldStateView) Domain(id DomainId) (Domain, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.domain(id)
}

// Account returns a snapshot copy of the named account.
func (w *WorldStateView) Account(id AccountId) (Account, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.account(id)
}

// HasDomain reports whether id names an existing domain.
func (w *WorldStateView) HasDomain(id DomainId) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.peer.Domains[id]
	return ok
}

// TrustedPeers returns a snapshot of peers trusted by consensus.
func (w *WorldStateView) TrustedPeers() []PeerId {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]PeerId, 0, len(w.peer.Trusted))
	for _, p := range w.peer.Trusted {
		out = append(out, p)
	}
	return out
}

// Execute runs instr under authority against a cloned scratch view,
// committing the clone back only if instr succeeds in its entirety. This is
// the mutating entrypoint transaction and block application and WSV replay
// use; Transaction.Validate instead runs instructions directly on a Clone.
func (w *WorldStateView) Execute(authority AccountId, instr Instruction) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	scratch := &WorldStateView{peer: clonePeer(w.peer)}
	if err := instr.Execute(authority, scratch); err != nil {
		return err
	}
	w.peer = scratch.peer
	return nil
}

// Clone returns an independent deep copy of the WSV, suitable for block
// validation (spec.md §4.5's "re-validate against a scratch WSV").
func (w *WorldStateView) Clone() *WorldStateView {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return &WorldStateView{peer: clonePeer(w.peer)}
}

// ---------------------------------------------------------------------
// unexported helpers — operate directly on w.peer with no locking of
// their own; callers either hold w.mu (public API above) or operate on an
// unshared scratch clone (instruction Execute methods).
// ---------------------------------------------------------------------

func (w *WorldStateView) domain(id DomainId) (Domain, error) {
	d, ok := w.peer.Domains[id]
	if !ok {
		return Domain{}, NewError(KindNotFound, "domain", fmt.Errorf("domain %s", id))
	}
	return d, nil
}

func (w *WorldStateView) putDomain(d Domain) error {
	w.peer.Domains[d.Id] = d
	return nil
}

func (w *WorldStateView) account(id AccountId) (Account, error) {
	d, err := w.domain(id.Domain)
	if err != nil {
		return Account{}, err
	}
	a, ok := d.Accounts[id.Name]
	if !ok {
		return Account{}, NewError(KindNotFound, "account", fmt.Errorf("account %s", id))
	}
	return a, nil
}

func (w *WorldStateView) putAccount(a Account) error {
	d, err := w.domain(a.Id.Domain)
	if err != nil {
		return err
	}
	d.Accounts[a.Id.Name] = a
	return w.putDomain(d)
}

func (w *WorldStateView) mutateAccount(id AccountId, fn func(*Account) error) error {
	a, err := w.account(id)
	if err != nil {
		return err
	}
	if err := fn(&a); err != nil {
		return err
	}
	return w.putAccount(a)
}

func (w *WorldStateView) addDomain(d Domain) error {
	if _, ok := w.peer.Domains[d.Id]; ok {
		return NewError(KindAlreadyExists, "addDomain", fmt.Errorf("domain %s", d.Id))
	}
	return w.putDomain(d)
}

func (w *WorldStateView) addPeer(p PeerId) error {
	key := p.String()
	if _, ok := w.peer.Trusted[key]; ok {
		return NewError(KindAlreadyExists, "addPeer", fmt.Errorf("peer %s", key))
	}
	w.peer.Trusted[key] = p
	return nil
}

func (w *WorldStateView) registerAccount(domainID DomainId, account Account) error {
	d, err := w.domain(domainID)
	if err != nil {
		return Wrap("registerAccount", err)
	}
	if _, ok := d.Accounts[account.Id.Name]; ok {
		return NewError(KindAlreadyExists, "registerAccount", fmt.Errorf("account %s", account.Id))
	}
	d.Accounts[account.Id.Name] = account
	return w.putDomain(d)
}

func (w *WorldStateView) registerAssetDefinition(domainID DomainId, def AssetDefinition) error {
	d, err := w.domain(domainID)
	if err != nil {
		return Wrap("registerAssetDefinition", err)
	}
	if _, ok := d.AssetDefinitions[def.Id.Name]; ok {
		return NewError(KindAlreadyExists, "registerAssetDefinition", fmt.Errorf("asset definition %s", def.Id))
	}
	d.AssetDefinitions[def.Id.Name] = def
	return w.putDomain(d)
}

// mutateAsset applies fn to the asset named id within its owning account,
// failing with NotFound if the account or the asset's definition is absent,
// or with InvalidTransaction if the asset exists under a different variant
// than wantKind. An absent asset instance is created with a zero value of
// wantKind before fn runs.
func (w *WorldStateView) mutateAsset(id AssetId, wantKind AssetValueKind, fn func(*Asset) error) error {
	account, err := w.account(id.Account)
	if err != nil {
		return Wrap("mutateAsset", err)
	}
	asset, ok := account.Assets[id]
	if !ok {
		// A fresh asset instance is created on first mutation, provided
		// its definition already exists in the domain (spec.md §3).
		d, err := w.domain(id.Definition.Domain)
		if err != nil {
			return Wrap("mutateAsset", err)
		}
		if _, ok := d.AssetDefinitions[id.Definition.Name]; !ok {
			return NewError(KindNotFound, "mutateAsset", fmt.Errorf("asset definition %s", id.Definition))
		}
		asset = zeroAsset(id, wantKind)
	} else if asset.Kind != wantKind {
		return NewError(KindInvalidTransaction, "mutateAsset",
			fmt.Errorf("asset %s has variant %v, want %v", id, asset.Kind, wantKind))
	}
	if err := fn(&asset); err != nil {
		return err
	}
	account.Assets[id] = asset
	return w.putAccount(account)
}

func zeroAsset(id AssetId, kind AssetValueKind) Asset {
	switch kind {
	case AssetKindQuantity:
		return NewQuantityAsset(id, 0)
	case AssetKindBigQuantity:
		return NewBigQuantityAsset(id, NewBigUint(0))
	case AssetKindStore:
		return NewStoreAsset(id)
	default:
		return Asset{Id: id, Kind: kind}
	}
}

// transferAsset moves quantity units of a fungible asset from src to dst.
// Both endpoints must exist; src must already hold an asset instance with
// sufficient quantity. Cross-domain transfers are permitted structurally
// (spec.md §9 open question #2).
func (w *WorldStateView) transferAsset(src, dst AccountId, def AssetDefinitionId, quantity uint32) error {
	srcAccount, err := w.account(src)
	if err != nil {
		return Wrap("transferAsset", err)
	}
	srcAssetID := NewAssetId(def, src)
	srcAsset, ok := srcAccount.Assets[srcAssetID]
	if !ok || srcAsset.Kind != AssetKindQuantity {
		return NewError(KindNotFound, "transferAsset", fmt.Errorf("source asset %s", srcAssetID))
	}
	if srcAsset.Quantity < quantity {
		return NewError(KindUnderflow, "transferAsset",
			fmt.Errorf("%s holds %d, want to transfer %d", srcAssetID, srcAsset.Quantity, quantity))
	}
	if _, err := w.account(dst); err != nil {
		return Wrap("transferAsset", err)
	}
	srcAsset.Quantity -= quantity
	srcAccount.Assets[srcAssetID] = srcAsset
	if err := w.putAccount(srcAccount); err != nil {
		return err
	}
	dstAssetID := NewAssetId(def, dst)
	return w.mutateAsset(dstAssetID, AssetKindQuantity, func(a *Asset) error {
		sum := uint64(a.Quantity) + uint64(quantity)
		if sum > 0xFFFFFFFF {
			return NewError(KindOverflow, "transferAsset", fmt.Errorf("destination overflow on %s", dstAssetID))
		}
		a.Quantity = uint32(sum)
		return nil
	})
}

// Init replays committed blocks onto an empty WSV built from the genesis
// peer, in ascending height order, rebuilding the authoritative in-memory
// state (spec.md §4.5's startup contract). Instructions execute under the
// transaction's own creator account as authority.
func (w *WorldStateView) Init(blocks []*Block) error {
	for _, b := range blocks {
		for _, tx := range b.Transactions {
			for _, instr := range tx.Payload.Instructions {
				if err := w.Execute(tx.Payload.Creator, instr); err != nil {
					log.WithError(err).WithField("height", b.Header.Height).
						Warn("replay: instruction failed, skipping (already-committed block)")
				}
			}
		}
	}
	return nil
}

// clonePeer deep-copies p's domains/accounts/assets/signatories/trusted-peer
// maps so a scratch WorldStateView shares no mutable state with its parent.
func clonePeer(p *Peer) *Peer {
	out := &Peer{
		Id:      p.Id,
		Domains: make(map[DomainId]Domain, len(p.Domains)),
		Trusted: make(map[string]PeerId, len(p.Trusted)),
	}
	for k, v := range p.Trusted {
		out.Trusted[k] = v
	}
	for domID, d := range p.Domains {
		nd := Domain{
			Id:               d.Id,
			Accounts:         make(map[string]Account, len(d.Accounts)),
			AssetDefinitions: make(map[string]AssetDefinition, len(d.AssetDefinitions)),
		}
		for name, def := range d.AssetDefinitions {
			nd.AssetDefinitions[name] = def
		}
		for name, a := range d.Accounts {
			na := Account{
				Id:          a.Id,
				Quorum:      a.Quorum,
				Signatories: make(map[PublicKey]struct{}, len(a.Signatories)),
				Assets:      make(map[AssetId]Asset, len(a.Assets)),
			}
			for k := range a.Signatories {
				na.Signatories[k] = struct{}{}
			}
			for aid, asset := range a.Assets {
				cp := asset
				if asset.Store != nil {
					cp.Store = make(map[string][]byte, len(asset.Store))
					for k, v := range asset.Store {
						cp.Store[k] = append([]byte(nil), v...)
					}
				}
				na.Assets[aid] = cp
			}
			nd.Accounts[name] = na
		}
		out.Domains[domID] = nd
	}
	return out
}
