package core

// domain.go – detached data-model containers: Domain, Account,
// AssetDefinition, Asset, Peer. Constructors here produce detached entities
// (empty sub-collections) suitable for Register instructions; attached
// mutation happens exclusively through the WSV (core/wsv.go) and the
// instruction interpreter (core/isi.go).
//
// Cyclic references are broken by addressing (spec.md §9): sub-entities
// hold ids, not direct handles to their parents. The Peer owns all Domains;
// Domains own Accounts and AssetDefinitions; Accounts own Assets.

// AssetValueKind fixes which variant an Asset carries. The variant is set at
// creation and cannot change (spec.md §3).
type AssetValueKind uint8

const (
	AssetKindQuantity AssetValueKind = iota
	AssetKindBigQuantity
	AssetKindStore
	AssetKindPermission
)

// Asset is identified by AssetId and carries exactly one value variant.
type Asset struct {
	Id    AssetId
	Kind  AssetValueKind
	Quantity    uint32
	BigQuantity BigUint
	Store       map[string][]byte
	Permission  Permission
}

// NewQuantityAsset creates a detached fungible u32 asset instance.
func NewQuantityAsset(id AssetId, qty uint32) Asset {
	return Asset{Id: id, Kind: AssetKindQuantity, Quantity: qty}
}

// NewBigQuantityAsset creates a detached large (u128-equivalent) asset.
func NewBigQuantityAsset(id AssetId, qty BigUint) Asset {
	return Asset{Id: id, Kind: AssetKindBigQuantity, BigQuantity: qty}
}

// NewStoreAsset creates a detached key->bytes store asset.
func NewStoreAsset(id AssetId) Asset {
	return Asset{Id: id, Kind: AssetKindStore, Store: make(map[string][]byte)}
}

// NewPermissionAsset creates a detached permission-tagged asset.
func NewPermissionAsset(id AssetId, perm Permission) Asset {
	return Asset{Id: id, Kind: AssetKindPermission, Permission: perm}
}

// AssetDefinition is pure metadata; it must exist in its domain before any
// Asset instance naming it may be created.
type AssetDefinition struct {
	Id AssetDefinitionId
}

func NewAssetDefinition(id AssetDefinitionId) AssetDefinition {
	return AssetDefinition{Id: id}
}

// Account carries an id, a set of signatory public keys, and its assets.
// An account with no signatories cannot authorize transactions.
type Account struct {
	Id         AccountId
	Signatories map[PublicKey]struct{}
	Quorum     uint32
	Assets     map[AssetId]Asset
}

// NewAccount creates a detached account with the given initial signatories
// and a quorum (minimum distinct signatures required to authorize a
// transaction); quorum defaults to 1 if zero is passed.
func NewAccount(id AccountId, quorum uint32, signatories ...PublicKey) Account {
	if quorum == 0 {
		quorum = 1
	}
	sigs := make(map[PublicKey]struct{}, len(signatories))
	for _, s := range signatories {
		sigs[s] = struct{}{}
	}
	return Account{Id: id, Signatories: sigs, Quorum: quorum, Assets: make(map[AssetId]Asset)}
}

func (a Account) HasSignatory(pub PublicKey) bool {
	_, ok := a.Signatories[pub]
	return ok
}

// Domain owns a mapping from account id to Account and from asset
// definition id to AssetDefinition. Domain names are unique within a peer's
// world.
type Domain struct {
	Id               DomainId
	Accounts         map[string]Account // keyed by Account.Id.Name
	AssetDefinitions map[string]AssetDefinition
}

// NewDomain creates a detached domain with empty account/asset-definition
// maps.
func NewDomain(id DomainId) Domain {
	return Domain{
		Id:               id,
		Accounts:         make(map[string]Account),
		AssetDefinitions: make(map[string]AssetDefinition),
	}
}

// Peer is the process-wide singleton holding the local PeerId, the map of
// domains, and the set of trusted peer ids consulted by consensus.
type Peer struct {
	Id      PeerId
	Domains map[DomainId]Domain
	Trusted map[string]PeerId // keyed by PeerId.String()
}

func NewPeer(id PeerId) *Peer {
	return &Peer{
		Id:      id,
		Domains: make(map[DomainId]Domain),
		Trusted: make(map[string]PeerId),
	}
}
