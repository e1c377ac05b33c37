package core

import (
	"fmt"

	"github.com/google/uuid"
)

// DomainId is a domain's unique name within a peer's world.
type DomainId string

func (d DomainId) String() string { return string(d) }

// AccountId addresses an account by its short name within a domain.
type AccountId struct {
	Name   string
	Domain DomainId
}

func NewAccountId(name string, domain DomainId) AccountId {
	return AccountId{Name: name, Domain: domain}
}

func (a AccountId) String() string {
	return fmt.Sprintf("%s@%s", a.Name, a.Domain)
}

// AssetDefinitionId addresses asset metadata within a domain.
type AssetDefinitionId struct {
	Name   string
	Domain DomainId
}

func NewAssetDefinitionId(name string, domain DomainId) AssetDefinitionId {
	return AssetDefinitionId{Name: name, Domain: domain}
}

func (a AssetDefinitionId) String() string {
	return fmt.Sprintf("%s#%s", a.Name, a.Domain)
}

// AssetId addresses a concrete asset instance owned by an account.
type AssetId struct {
	Definition AssetDefinitionId
	Account    AccountId
}

func NewAssetId(def AssetDefinitionId, account AccountId) AssetId {
	return AssetId{Definition: def, Account: account}
}

func (a AssetId) String() string {
	return fmt.Sprintf("%s#%s@%s", a.Definition.Name, a.Definition.Domain, a.Account)
}

// PeerId identifies a network peer by its transport address and public key.
// Correlation is an optional, non-structural id used only for log/gossip
// correlation (SPEC_FULL.md §3.1); two PeerIds are equal iff Address and
// PublicKey match, never by Correlation.
type PeerId struct {
	Address     string
	PublicKey   PublicKey
	Correlation uuid.UUID
}

func NewPeerId(address string, pub PublicKey) PeerId {
	return PeerId{Address: address, PublicKey: pub}
}

// WithCorrelation returns a copy of p carrying correlation as its gossip/log
// correlation id. It has no bearing on p's structural identity.
func (p PeerId) WithCorrelation(correlation uuid.UUID) PeerId {
	p.Correlation = correlation
	return p
}

func (p PeerId) Equal(o PeerId) bool {
	return p.Address == o.Address && p.PublicKey == o.PublicKey
}

func (p PeerId) String() string {
	return fmt.Sprintf("%s@%s", p.PublicKey.Hex(), p.Address)
}

const GlobalDomain DomainId = "global"

// PermissionAssetName names the asset definition under the global domain
// whose instances encode granted capabilities (see core/permission.go).
const PermissionAssetName = "permission_asset"
