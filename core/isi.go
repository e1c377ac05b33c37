package core

// isi.go – the instruction interpreter: a closed algebra of typed
// mutations over the world-state view, dispatched by variant rather than
// external subclassing (spec.md §9's "Open polymorphism over instructions").
//
// Grounded on spec.md §4.3's variant list. The interface-segregation style
// (one small interface per concern, declared next to its consumer) follows
// the teacher's core/consensus.go (txPool/networkAdapter/securityAdapter/
// authorityAdapter interfaces). No pack example ships a rule-execution
// engine, so the algebra itself is hand-rolled over the already-wired data
// model and crypto primitives.

import (
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"
)

// Instruction is the single closed contract every variant implements:
// execute mutating or guarding effects against wsv under authority.
type Instruction interface {
	Execute(authority AccountId, wsv *WorldStateView) error
}

// authorize runs the permission guard spec.md §4.3 requires before any
// mutating instruction takes effect. Instructions with no associated
// capability (composition, queries, Check/Grant/Revoke which guard
// themselves) are left unguarded here.
func authorize(i Instruction, authority AccountId, wsv *WorldStateView) error {
	cap := capabilityFor(i)
	if cap == "" {
		return nil
	}
	return checkPermission(wsv, cap, authority)
}

// ---------------------------------------------------------------------
// Peer instructions
// ---------------------------------------------------------------------

// AddDomain registers a new, empty domain under the peer's world.
type AddDomain struct {
	Name DomainId
}

func (i AddDomain) Execute(authority AccountId, wsv *WorldStateView) error {
	if err := authorize(i, authority, wsv); err != nil {
		return err
	}
	return wsv.addDomain(NewDomain(i.Name))
}

// AddPeer registers peer as trusted for consensus participation.
type AddPeer struct {
	Peer PeerId
}

func (i AddPeer) Execute(authority AccountId, wsv *WorldStateView) error {
	if err := authorize(i, authority, wsv); err != nil {
		return err
	}
	return wsv.addPeer(i.Peer)
}

// ---------------------------------------------------------------------
// Domain instructions
// ---------------------------------------------------------------------

// RegisterAccount creates account within domain.
type RegisterAccount struct {
	Domain  DomainId
	Account Account
}

func (i RegisterAccount) Execute(authority AccountId, wsv *WorldStateView) error {
	if err := authorize(i, authority, wsv); err != nil {
		return err
	}
	return wsv.registerAccount(i.Domain, i.Account)
}

// RegisterAsset creates an AssetDefinition within domain.
type RegisterAsset struct {
	Domain          DomainId
	AssetDefinition AssetDefinition
}

func (i RegisterAsset) Execute(authority AccountId, wsv *WorldStateView) error {
	if err := authorize(i, authority, wsv); err != nil {
		return err
	}
	return wsv.registerAssetDefinition(i.Domain, i.AssetDefinition)
}

// ---------------------------------------------------------------------
// Account instructions
// ---------------------------------------------------------------------

// TransferAsset moves Quantity units of Asset from Src to Dst. Both
// endpoints must already own an asset instance for Asset's definition (or
// Dst receives a freshly created zero-balance instance). Cross-domain
// transfers are permitted structurally (spec.md §9 open question #2): no
// extra domain-equality check is added.
type TransferAsset struct {
	Src      AccountId
	Dst      AccountId
	Asset    AssetDefinitionId
	Quantity uint32
}

func (i TransferAsset) Execute(authority AccountId, wsv *WorldStateView) error {
	if err := authorize(i, authority, wsv); err != nil {
		return err
	}
	return wsv.transferAsset(i.Src, i.Dst, i.Asset, i.Quantity)
}

// AddSignatory adds key as an additional signatory for account.
type AddSignatory struct {
	Account AccountId
	Key     PublicKey
}

func (i AddSignatory) Execute(authority AccountId, wsv *WorldStateView) error {
	if err := authorize(i, authority, wsv); err != nil {
		return err
	}
	return wsv.mutateAccount(i.Account, func(a *Account) error {
		a.Signatories[i.Key] = struct{}{}
		return nil
	})
}

// RemoveSignatory removes key from account's signatories. Removing the
// account's last signatory is permitted structurally; the resulting account
// simply cannot authorize further transactions (spec.md §3).
type RemoveSignatory struct {
	Account AccountId
	Key     PublicKey
}

func (i RemoveSignatory) Execute(authority AccountId, wsv *WorldStateView) error {
	if err := authorize(i, authority, wsv); err != nil {
		return err
	}
	return wsv.mutateAccount(i.Account, func(a *Account) error {
		delete(a.Signatories, i.Key)
		return nil
	})
}

// ---------------------------------------------------------------------
// Asset instructions: Mint / Demint, one shape per Asset variant
// ---------------------------------------------------------------------

// MintAsset increases a fungible u32 asset's quantity. If Saturate is false
// (the default), an overflow of math.MaxUint32 fails with Overflow; if
// true, the result saturates at the type maximum instead (spec.md §4.3).
type MintAsset struct {
	Id       AssetId
	Quantity uint32
	Saturate bool
}

func (i MintAsset) Execute(authority AccountId, wsv *WorldStateView) error {
	if err := authorize(i, authority, wsv); err != nil {
		return err
	}
	return wsv.mutateAsset(i.Id, AssetKindQuantity, func(a *Asset) error {
		sum := uint64(a.Quantity) + uint64(i.Quantity)
		if sum > math.MaxUint32 {
			if i.Saturate {
				a.Quantity = math.MaxUint32
				return nil
			}
			return NewError(KindOverflow, "MintAsset", fmt.Errorf("quantity overflow for %s", i.Id))
		}
		a.Quantity = uint32(sum)
		return nil
	})
}

// DemintAsset decreases a fungible u32 asset's quantity, failing with
// Underflow if the asset does not hold enough.
type DemintAsset struct {
	Id       AssetId
	Quantity uint32
}

func (i DemintAsset) Execute(authority AccountId, wsv *WorldStateView) error {
	if err := authorize(i, authority, wsv); err != nil {
		return err
	}
	return wsv.mutateAsset(i.Id, AssetKindQuantity, func(a *Asset) error {
		if a.Quantity < i.Quantity {
			return NewError(KindUnderflow, "DemintAsset", fmt.Errorf("insufficient quantity on %s", i.Id))
		}
		a.Quantity -= i.Quantity
		return nil
	})
}

// MintBigAsset increases a large (u128-equivalent) asset's quantity.
type MintBigAsset struct {
	Id       AssetId
	Quantity BigUint
}

func (i MintBigAsset) Execute(authority AccountId, wsv *WorldStateView) error {
	if err := authorize(i, authority, wsv); err != nil {
		return err
	}
	return wsv.mutateAsset(i.Id, AssetKindBigQuantity, func(a *Asset) error {
		sum := a.BigQuantity.Add(i.Quantity)
		if sum.ExceedsU128() {
			return NewError(KindOverflow, "MintBigAsset", fmt.Errorf("quantity overflow for %s", i.Id))
		}
		a.BigQuantity = sum
		return nil
	})
}

// DemintBigAsset decreases a large (u128-equivalent) asset's quantity.
type DemintBigAsset struct {
	Id       AssetId
	Quantity BigUint
}

func (i DemintBigAsset) Execute(authority AccountId, wsv *WorldStateView) error {
	if err := authorize(i, authority, wsv); err != nil {
		return err
	}
	return wsv.mutateAsset(i.Id, AssetKindBigQuantity, func(a *Asset) error {
		if a.BigQuantity.Cmp(i.Quantity) < 0 {
			return NewError(KindUnderflow, "DemintBigAsset", fmt.Errorf("insufficient big quantity on %s", i.Id))
		}
		a.BigQuantity = a.BigQuantity.Sub(i.Quantity)
		return nil
	})
}

// MintParameterAsset sets Key->Value within a key->bytes store asset.
type MintParameterAsset struct {
	Id    AssetId
	Key   string
	Value []byte
}

func (i MintParameterAsset) Execute(authority AccountId, wsv *WorldStateView) error {
	if err := authorize(i, authority, wsv); err != nil {
		return err
	}
	return wsv.mutateAsset(i.Id, AssetKindStore, func(a *Asset) error {
		if a.Store == nil {
			a.Store = make(map[string][]byte)
		}
		a.Store[i.Key] = append([]byte(nil), i.Value...)
		return nil
	})
}

// DemintParameterAsset removes Key from a key->bytes store asset.
type DemintParameterAsset struct {
	Id  AssetId
	Key string
}

func (i DemintParameterAsset) Execute(authority AccountId, wsv *WorldStateView) error {
	if err := authorize(i, authority, wsv); err != nil {
		return err
	}
	return wsv.mutateAsset(i.Id, AssetKindStore, func(a *Asset) error {
		delete(a.Store, i.Key)
		return nil
	})
}

// ---------------------------------------------------------------------
// Composition
// ---------------------------------------------------------------------

// Sequence executes its instructions left-to-right and aborts on first
// failure. Atomicity (no partial mutation visible on failure) is provided
// by the enclosing WorldStateView.Execute's copy-then-swap semantics, not
// by Sequence itself.
type Sequence struct {
	Instructions []Instruction
}

func (i Sequence) Execute(authority AccountId, wsv *WorldStateView) error {
	for idx, instr := range i.Instructions {
		if err := instr.Execute(authority, wsv); err != nil {
			return Wrap(fmt.Sprintf("Sequence[%d]", idx), err)
		}
	}
	return nil
}

// Compose is the two-element case of Sequence.
type Compose struct {
	First, Second Instruction
}

func (i Compose) Execute(authority AccountId, wsv *WorldStateView) error {
	return Sequence{Instructions: []Instruction{i.First, i.Second}}.Execute(authority, wsv)
}

// If runs Cond first and branches on its result: Then on success, Else (if
// present) on failure. Cond's own failure is not propagated as the
// enclosing instruction's failure.
type If struct {
	Cond Instruction
	Then Instruction
	Else Instruction // optional
}

func (i If) Execute(authority AccountId, wsv *WorldStateView) error {
	if i.Cond.Execute(authority, wsv) == nil {
		return i.Then.Execute(authority, wsv)
	}
	if i.Else != nil {
		return i.Else.Execute(authority, wsv)
	}
	return nil
}

// ExecuteQuery succeeds iff Query can be answered against wsv (i.e. does
// not resolve to NotFound), letting compound instructions branch on
// existence without exposing the query result.
type ExecuteQuery struct {
	Query Query
}

func (i ExecuteQuery) Execute(_ AccountId, wsv *WorldStateView) error {
	_, err := i.Query.Run(wsv)
	return err
}

// Fail always fails with Message, useful as an If branch or test fixture.
type Fail struct {
	Message string
}

func (i Fail) Execute(_ AccountId, _ *WorldStateView) error {
	return NewError(KindInvalidTransaction, "Fail", fmt.Errorf("%s", i.Message))
}

// Notify is a no-op side channel for observers; it never fails.
type Notify struct {
	Message string
}

func (i Notify) Execute(authority AccountId, _ *WorldStateView) error {
	log.WithField("authority", authority.String()).Info(i.Message)
	return nil
}
