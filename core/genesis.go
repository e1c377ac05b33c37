package core

// genesis.go – declarative YAML genesis loading, applied directly to the
// initial Peer state before Kura's blocks are replayed; genesis is not
// written to the block store as a block (SPEC_FULL.md §6.2, resolving
// spec.md §9's open question on genesis contents in favor of a declarative
// file over hard-coded bootstrap accounts).
//
// Grounded on the teacher's cmd/cli/devnet.go, which parses a devnet
// topology file with gopkg.in/yaml.v3 into typed Go structs before wiring
// nodes; the same decode-into-struct shape is reused here for domains,
// accounts, asset definitions, and initial mints.

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// GenesisAccount describes one account to bootstrap: its name, initial
// signatory public keys (hex-encoded), quorum, and any capabilities it
// should hold from height 0 (e.g. root's Anything grant, spec.md §9
// scenario 1).
type GenesisAccount struct {
	Name        string   `yaml:"name"`
	Signatories []string `yaml:"signatories"`
	Quorum      uint32   `yaml:"quorum"`
	Permissions []string `yaml:"permissions"`
}

// knownPermissions are the capability names genesis.yaml may grant; any
// other value is a configuration typo, not a new capability.
var knownPermissions = map[Permission]bool{
	PermissionAnything:       true,
	PermissionManageDEX:      true,
	PermissionTransferAsset:  true,
	PermissionRegisterDomain: true,
	PermissionRegisterAsset:  true,
	PermissionMintAsset:      true,
}

func parseGenesisPermission(s string) (Permission, error) {
	p := Permission(s)
	if !knownPermissions[p] {
		return "", fmt.Errorf("unknown permission %q", s)
	}
	return p, nil
}

// GenesisMint describes one initial fungible mint applied after accounts
// and asset definitions are registered.
type GenesisMint struct {
	Account  string `yaml:"account"`
	Asset    string `yaml:"asset"`
	Quantity uint32 `yaml:"quantity"`
}

// GenesisDomain describes one domain to bootstrap: its name, accounts,
// asset definitions, and initial mints against those definitions.
type GenesisDomain struct {
	Name             string           `yaml:"name"`
	Accounts         []GenesisAccount `yaml:"accounts"`
	AssetDefinitions []string         `yaml:"asset_definitions"`
	Mints            []GenesisMint    `yaml:"mints"`
}

// Genesis is the top-level genesis.yaml document.
type Genesis struct {
	Domains []GenesisDomain `yaml:"domains"`
}

// LoadGenesis reads and parses a genesis YAML document from path.
func LoadGenesis(path string) (*Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewError(KindIoError, "LoadGenesis", err)
	}
	var g Genesis
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, NewError(KindConfigError, "LoadGenesis", err)
	}
	return &g, nil
}

// Apply builds the genesis Peer: every domain, account, and asset
// definition is registered directly against the peer (bypassing permission
// checks, since no account exists yet to authorize height 0), followed by
// the declared initial mints.
func (g *Genesis) Apply(self PeerId) (*Peer, error) {
	peer := NewPeer(self)
	wsv := NewWorldStateView(peer)
	for _, d := range g.Domains {
		if err := wsv.addDomain(NewDomain(DomainId(d.Name))); err != nil {
			return nil, Wrap("Genesis.Apply", err)
		}
		for _, defName := range d.AssetDefinitions {
			defID := NewAssetDefinitionId(defName, DomainId(d.Name))
			if err := wsv.registerAssetDefinition(DomainId(d.Name), NewAssetDefinition(defID)); err != nil {
				return nil, Wrap("Genesis.Apply", err)
			}
		}
		for _, ga := range d.Accounts {
			account, err := ga.toAccount(DomainId(d.Name))
			if err != nil {
				return nil, Wrap("Genesis.Apply", err)
			}
			if err := wsv.registerAccount(DomainId(d.Name), account); err != nil {
				return nil, Wrap("Genesis.Apply", err)
			}
			for _, permName := range ga.Permissions {
				cap, err := parseGenesisPermission(permName)
				if err != nil {
					return nil, NewError(KindConfigError, "Genesis.Apply", err)
				}
				if err := grantGenesisPermission(wsv, account.Id, cap); err != nil {
					return nil, Wrap("Genesis.Apply", err)
				}
			}
		}
		for _, m := range d.Mints {
			accountID := NewAccountId(m.Account, DomainId(d.Name))
			defID := NewAssetDefinitionId(m.Asset, DomainId(d.Name))
			assetID := NewAssetId(defID, accountID)
			if err := wsv.mutateAsset(assetID, AssetKindQuantity, func(a *Asset) error {
				a.Quantity += m.Quantity
				return nil
			}); err != nil {
				return nil, Wrap("Genesis.Apply", err)
			}
		}
	}
	return peer, nil
}

// grantGenesisPermission mints cap's permission asset for target directly,
// the same way GrantPermission.Execute does, but without the Anything guard
// GrantPermission requires — there is no authority to check against at
// height 0, before any account holds a capability.
func grantGenesisPermission(wsv *WorldStateView, target AccountId, cap Permission) error {
	account, err := wsv.account(target)
	if err != nil {
		return Wrap("grantGenesisPermission", err)
	}
	defID := PermissionAssetDefinitionId()
	assetID := NewAssetId(defID, target)
	account.Assets[assetID] = NewPermissionAsset(assetID, cap)
	return wsv.putAccount(account)
}

func (ga GenesisAccount) toAccount(domain DomainId) (Account, error) {
	sigs := make([]PublicKey, 0, len(ga.Signatories))
	for _, hexKey := range ga.Signatories {
		pub, err := parseHexPublicKey(hexKey)
		if err != nil {
			return Account{}, fmt.Errorf("account %s: %w", ga.Name, err)
		}
		sigs = append(sigs, pub)
	}
	return NewAccount(NewAccountId(ga.Name, domain), ga.Quorum, sigs...), nil
}
