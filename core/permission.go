package core

// permission.go – capability checks over the world-state view.
//
// Grounded on the teacher's core/access_control.go (AccessController: a
// ledger-backed role cache keyed by address, GrantRole/RevokeRole guarding a
// sync.Mutex-protected in-memory cache mirroring persisted state). Rewritten
// from a free-standing role-string table into the spec's permission-asset
// model: a capability is "granted" by minting a permission-tagged asset on
// permission_asset_definition in the global domain under the target
// account, and "held" iff such an asset with a matching (or Anything) tag
// exists on that account.

import "fmt"

// Permission enumerates capabilities grantable to an account.
type Permission string

const (
	PermissionAnything       Permission = "Anything"
	PermissionManageDEX      Permission = "ManageDEX"
	PermissionTransferAsset  Permission = "TransferAsset"
	PermissionRegisterDomain Permission = "RegisterDomain"
	PermissionRegisterAsset  Permission = "RegisterAsset"
	PermissionMintAsset      Permission = "MintAsset"
)

// PermissionAssetDefinitionId is the well-known asset-definition id whose
// instances encode granted capabilities.
func PermissionAssetDefinitionId() AssetDefinitionId {
	return NewAssetDefinitionId(PermissionAssetName, GlobalDomain)
}

// hasCapability reports whether account owns a permission asset tagged
// Anything or matching cap.
func hasCapability(account Account, cap Permission) bool {
	defID := PermissionAssetDefinitionId()
	for _, asset := range account.Assets {
		if asset.Kind != AssetKindPermission || asset.Id.Definition != defID {
			continue
		}
		if asset.Permission == PermissionAnything || asset.Permission == cap {
			return true
		}
	}
	return false
}

// checkPermission reports whether authority owns a permission asset tagged
// Anything or matching cap. It never mutates the WSV. Used both by the
// standalone Check instruction and as the authorization guard every
// mutating instruction runs before taking effect (spec.md §4.3).
func checkPermission(wsv *WorldStateView, cap Permission, authority AccountId) error {
	account, err := wsv.account(authority)
	if err != nil {
		return Wrap("checkPermission", err)
	}
	if hasCapability(account, cap) {
		return nil
	}
	return NewError(KindPermissionDenied, "checkPermission",
		fmt.Errorf("%s lacks capability %s", authority, cap))
}

// Check is the sole permission instruction: a guard, not a state mutator,
// composable in Sequence/If. It succeeds iff authority holds cap.
type Check struct {
	Capability Permission
	Authority  AccountId
}

func (i Check) Execute(_ AccountId, wsv *WorldStateView) error {
	return checkPermission(wsv, i.Capability, i.Authority)
}

// GrantPermission mints a permission-tagged asset for Capability under
// Target, creating the asset id if absent. It is the ergonomic wrapper
// original_source/iroha/src/isi.rs exposes as a dedicated instruction rather
// than requiring callers to hand-construct a MintParameterAsset against the
// global permission asset definition (see SPEC_FULL.md §4.3.1). Granting
// permissions itself requires Anything, since it mints capability.
type GrantPermission struct {
	Target     AccountId
	Capability Permission
}

func (i GrantPermission) Execute(authority AccountId, wsv *WorldStateView) error {
	if err := checkPermission(wsv, PermissionAnything, authority); err != nil {
		return err
	}
	account, err := wsv.account(i.Target)
	if err != nil {
		return Wrap("GrantPermission", err)
	}
	defID := PermissionAssetDefinitionId()
	assetID := NewAssetId(defID, i.Target)
	if existing, ok := account.Assets[assetID]; ok && existing.Permission == i.Capability {
		return nil // idempotent
	}
	account.Assets[assetID] = NewPermissionAsset(assetID, i.Capability)
	return wsv.putAccount(account)
}

// RevokePermission removes the permission asset for Capability under
// Target, if present. Revoking a capability that was never granted is a
// no-op, not an error, mirroring GrantRole/RevokeRole's idempotent intent in
// the teacher.
type RevokePermission struct {
	Target     AccountId
	Capability Permission
}

func (i RevokePermission) Execute(authority AccountId, wsv *WorldStateView) error {
	if err := checkPermission(wsv, PermissionAnything, authority); err != nil {
		return err
	}
	account, err := wsv.account(i.Target)
	if err != nil {
		return Wrap("RevokePermission", err)
	}
	defID := PermissionAssetDefinitionId()
	assetID := NewAssetId(defID, i.Target)
	if existing, ok := account.Assets[assetID]; ok && existing.Permission == i.Capability {
		delete(account.Assets, assetID)
	}
	return wsv.putAccount(account)
}

// capabilityFor maps an instruction's runtime shape to the capability its
// execution contract requires, per spec.md §4.3's authorization rule. The
// empty string means "no capability guard" (composition/query/no-op
// instructions, and Check/Grant/Revoke which perform their own guard).
func capabilityFor(i Instruction) Permission {
	switch i.(type) {
	case TransferAsset:
		return PermissionTransferAsset
	case RegisterAccount, AddDomain, AddPeer:
		return PermissionRegisterDomain
	case RegisterAsset:
		return PermissionRegisterAsset
	case MintAsset, MintBigAsset, MintParameterAsset,
		DemintAsset, DemintBigAsset, DemintParameterAsset,
		AddSignatory, RemoveSignatory:
		return PermissionMintAsset
	default:
		return ""
	}
}
