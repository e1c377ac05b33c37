package core

// codec_instructions.go – canonical encoding of the instruction algebra,
// tagged by a one-byte discriminant matching the declaration order in
// spec.md §4.3 (Peer, Domain, Account, Asset, Permission, Composition).
// Shared by two consumers: the transaction-hash path (core/transaction.go),
// which only ever encodes, and Kura's on-disk block persistence (core/
// kura.go), which round-trips through core/codec_decode.go's decodeInstruction.

import (
	"bytes"
	"fmt"
	"sort"
)

const (
	tagAddDomain byte = iota
	tagAddPeer
	tagRegisterAccount
	tagRegisterAsset
	tagTransferAsset
	tagAddSignatory
	tagRemoveSignatory
	tagMintAsset
	tagMintBigAsset
	tagMintParameterAsset
	tagDemintAsset
	tagDemintBigAsset
	tagDemintParameterAsset
	tagCheck
	tagGrantPermission
	tagRevokePermission
	tagSequence
	tagCompose
	tagIf
	tagExecuteQuery
	tagFail
	tagNotify
)

func encodeAccountId(e *Encoder, id AccountId) {
	e.WriteString(id.Name)
	e.WriteString(string(id.Domain))
}

func encodeAssetDefinitionId(e *Encoder, id AssetDefinitionId) {
	e.WriteString(id.Name)
	e.WriteString(string(id.Domain))
}

func encodeAssetId(e *Encoder, id AssetId) {
	encodeAssetDefinitionId(e, id.Definition)
	encodeAccountId(e, id.Account)
}

func encodePeerId(e *Encoder, p PeerId) {
	e.WriteString(p.Address)
	e.WriteFixed(p.PublicKey[:])
}

// sortedSignatories returns sigs' keys in ascending byte order so the
// canonical encoding of an account's signatory set is deterministic
// regardless of Go's randomized map iteration order.
func sortedSignatories(sigs map[PublicKey]struct{}) []PublicKey {
	out := make([]PublicKey, 0, len(sigs))
	for pub := range sigs {
		out = append(out, pub)
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i][:], out[j][:]) < 0 })
	return out
}

// encodeInstruction appends instr's canonical encoding to e. Unknown
// instruction types (a closed algebra violation) panic, since they can only
// arise from a programming error, not untrusted input — every constructor
// in core/isi.go and core/permission.go is covered here.
func encodeInstruction(e *Encoder, instr Instruction) {
	switch v := instr.(type) {
	case AddDomain:
		e.WriteByte_(tagAddDomain)
		e.WriteString(string(v.Name))
	case AddPeer:
		e.WriteByte_(tagAddPeer)
		encodePeerId(e, v.Peer)
	case RegisterAccount:
		e.WriteByte_(tagRegisterAccount)
		e.WriteString(string(v.Domain))
		encodeAccountId(e, v.Account.Id)
		e.WriteUint32(v.Account.Quorum)
		sigs := sortedSignatories(v.Account.Signatories)
		e.WriteVarint(uint64(len(sigs)))
		for _, pub := range sigs {
			e.WriteFixed(pub[:])
		}
	case RegisterAsset:
		e.WriteByte_(tagRegisterAsset)
		e.WriteString(string(v.Domain))
		encodeAssetDefinitionId(e, v.AssetDefinition.Id)
	case TransferAsset:
		e.WriteByte_(tagTransferAsset)
		encodeAccountId(e, v.Src)
		encodeAccountId(e, v.Dst)
		encodeAssetDefinitionId(e, v.Asset)
		e.WriteUint32(v.Quantity)
	case AddSignatory:
		e.WriteByte_(tagAddSignatory)
		encodeAccountId(e, v.Account)
		e.WriteFixed(v.Key[:])
	case RemoveSignatory:
		e.WriteByte_(tagRemoveSignatory)
		encodeAccountId(e, v.Account)
		e.WriteFixed(v.Key[:])
	case MintAsset:
		e.WriteByte_(tagMintAsset)
		encodeAssetId(e, v.Id)
		e.WriteUint32(v.Quantity)
		if v.Saturate {
			e.WriteByte_(1)
		} else {
			e.WriteByte_(0)
		}
	case MintBigAsset:
		e.WriteByte_(tagMintBigAsset)
		encodeAssetId(e, v.Id)
		e.WriteBytes(v.Quantity.Bytes())
	case MintParameterAsset:
		e.WriteByte_(tagMintParameterAsset)
		encodeAssetId(e, v.Id)
		e.WriteString(v.Key)
		e.WriteBytes(v.Value)
	case DemintAsset:
		e.WriteByte_(tagDemintAsset)
		encodeAssetId(e, v.Id)
		e.WriteUint32(v.Quantity)
	case DemintBigAsset:
		e.WriteByte_(tagDemintBigAsset)
		encodeAssetId(e, v.Id)
		e.WriteBytes(v.Quantity.Bytes())
	case DemintParameterAsset:
		e.WriteByte_(tagDemintParameterAsset)
		encodeAssetId(e, v.Id)
		e.WriteString(v.Key)
	case Check:
		e.WriteByte_(tagCheck)
		e.WriteString(string(v.Capability))
		encodeAccountId(e, v.Authority)
	case GrantPermission:
		e.WriteByte_(tagGrantPermission)
		encodeAccountId(e, v.Target)
		e.WriteString(string(v.Capability))
	case RevokePermission:
		e.WriteByte_(tagRevokePermission)
		encodeAccountId(e, v.Target)
		e.WriteString(string(v.Capability))
	case Sequence:
		e.WriteByte_(tagSequence)
		e.WriteVarint(uint64(len(v.Instructions)))
		for _, sub := range v.Instructions {
			encodeInstruction(e, sub)
		}
	case Compose:
		e.WriteByte_(tagCompose)
		encodeInstruction(e, v.First)
		encodeInstruction(e, v.Second)
	case If:
		e.WriteByte_(tagIf)
		encodeInstruction(e, v.Cond)
		encodeInstruction(e, v.Then)
		if v.Else != nil {
			e.WriteByte_(1)
			encodeInstruction(e, v.Else)
		} else {
			e.WriteByte_(0)
		}
	case ExecuteQuery:
		e.WriteByte_(tagExecuteQuery)
		encodeQuery(e, v.Query)
	case Fail:
		e.WriteByte_(tagFail)
		e.WriteString(v.Message)
	case Notify:
		e.WriteByte_(tagNotify)
		e.WriteString(v.Message)
	default:
		panic(fmt.Sprintf("codec_instructions: unknown instruction type %T", instr))
	}
}
