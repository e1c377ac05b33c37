package core

// codec_decode.go – the inverse of codec_instructions.go: reconstructs
// instructions, queries, transactions, and blocks from their canonical
// encoding. Needed only by Kura (core/kura.go), which persists whole blocks
// to disk and must reconstruct them on `read`/`read_all` at startup — unlike
// the transaction-hash path (core/transaction.go), which only ever encodes.

import (
	"fmt"

	"github.com/google/uuid"
)

func decodeAccountId(d *Decoder) (AccountId, error) {
	name, err := d.ReadString()
	if err != nil {
		return AccountId{}, err
	}
	domain, err := d.ReadString()
	if err != nil {
		return AccountId{}, err
	}
	return NewAccountId(name, DomainId(domain)), nil
}

func decodeAssetDefinitionId(d *Decoder) (AssetDefinitionId, error) {
	name, err := d.ReadString()
	if err != nil {
		return AssetDefinitionId{}, err
	}
	domain, err := d.ReadString()
	if err != nil {
		return AssetDefinitionId{}, err
	}
	return NewAssetDefinitionId(name, DomainId(domain)), nil
}

func decodeAssetId(d *Decoder) (AssetId, error) {
	def, err := decodeAssetDefinitionId(d)
	if err != nil {
		return AssetId{}, err
	}
	acc, err := decodeAccountId(d)
	if err != nil {
		return AssetId{}, err
	}
	return NewAssetId(def, acc), nil
}

func decodePeerId(d *Decoder) (PeerId, error) {
	addr, err := d.ReadString()
	if err != nil {
		return PeerId{}, err
	}
	pubBytes, err := d.ReadFixed(32)
	if err != nil {
		return PeerId{}, err
	}
	var pub PublicKey
	copy(pub[:], pubBytes)
	return NewPeerId(addr, pub), nil
}

func decodePublicKey(d *Decoder) (PublicKey, error) {
	b, err := d.ReadFixed(32)
	if err != nil {
		return PublicKey{}, err
	}
	var pk PublicKey
	copy(pk[:], b)
	return pk, nil
}

// decodeInstruction reconstructs one Instruction value from its tag-prefixed
// canonical encoding, recursing for the composition variants. An unknown or
// truncated tag surfaces as a plain error, since this path reads
// untrusted/on-disk bytes rather than values this process already built.
func decodeInstruction(d *Decoder) (Instruction, error) {
	tag, err := d.ReadByte_()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagAddDomain:
		name, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		return AddDomain{Name: DomainId(name)}, nil
	case tagAddPeer:
		p, err := decodePeerId(d)
		if err != nil {
			return nil, err
		}
		return AddPeer{Peer: p}, nil
	case tagRegisterAccount:
		domain, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		id, err := decodeAccountId(d)
		if err != nil {
			return nil, err
		}
		quorum, err := d.ReadUint32()
		if err != nil {
			return nil, err
		}
		sigCount, err := d.ReadVarint()
		if err != nil {
			return nil, err
		}
		sigs := make([]PublicKey, sigCount)
		for i := range sigs {
			sigs[i], err = decodePublicKey(d)
			if err != nil {
				return nil, err
			}
		}
		return RegisterAccount{Domain: DomainId(domain), Account: NewAccount(id, quorum, sigs...)}, nil
	case tagRegisterAsset:
		domain, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		id, err := decodeAssetDefinitionId(d)
		if err != nil {
			return nil, err
		}
		return RegisterAsset{Domain: DomainId(domain), AssetDefinition: NewAssetDefinition(id)}, nil
	case tagTransferAsset:
		src, err := decodeAccountId(d)
		if err != nil {
			return nil, err
		}
		dst, err := decodeAccountId(d)
		if err != nil {
			return nil, err
		}
		asset, err := decodeAssetDefinitionId(d)
		if err != nil {
			return nil, err
		}
		qty, err := d.ReadUint32()
		if err != nil {
			return nil, err
		}
		return TransferAsset{Src: src, Dst: dst, Asset: asset, Quantity: qty}, nil
	case tagAddSignatory:
		acc, err := decodeAccountId(d)
		if err != nil {
			return nil, err
		}
		key, err := decodePublicKey(d)
		if err != nil {
			return nil, err
		}
		return AddSignatory{Account: acc, Key: key}, nil
	case tagRemoveSignatory:
		acc, err := decodeAccountId(d)
		if err != nil {
			return nil, err
		}
		key, err := decodePublicKey(d)
		if err != nil {
			return nil, err
		}
		return RemoveSignatory{Account: acc, Key: key}, nil
	case tagMintAsset:
		id, err := decodeAssetId(d)
		if err != nil {
			return nil, err
		}
		qty, err := d.ReadUint32()
		if err != nil {
			return nil, err
		}
		saturate, err := d.ReadByte_()
		if err != nil {
			return nil, err
		}
		return MintAsset{Id: id, Quantity: qty, Saturate: saturate == 1}, nil
	case tagMintBigAsset:
		id, err := decodeAssetId(d)
		if err != nil {
			return nil, err
		}
		b, err := d.ReadBytes()
		if err != nil {
			return nil, err
		}
		return MintBigAsset{Id: id, Quantity: BigUintFromBytes(b)}, nil
	case tagMintParameterAsset:
		id, err := decodeAssetId(d)
		if err != nil {
			return nil, err
		}
		key, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		val, err := d.ReadBytes()
		if err != nil {
			return nil, err
		}
		return MintParameterAsset{Id: id, Key: key, Value: val}, nil
	case tagDemintAsset:
		id, err := decodeAssetId(d)
		if err != nil {
			return nil, err
		}
		qty, err := d.ReadUint32()
		if err != nil {
			return nil, err
		}
		return DemintAsset{Id: id, Quantity: qty}, nil
	case tagDemintBigAsset:
		id, err := decodeAssetId(d)
		if err != nil {
			return nil, err
		}
		b, err := d.ReadBytes()
		if err != nil {
			return nil, err
		}
		return DemintBigAsset{Id: id, Quantity: BigUintFromBytes(b)}, nil
	case tagDemintParameterAsset:
		id, err := decodeAssetId(d)
		if err != nil {
			return nil, err
		}
		key, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		return DemintParameterAsset{Id: id, Key: key}, nil
	case tagCheck:
		cap, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		authority, err := decodeAccountId(d)
		if err != nil {
			return nil, err
		}
		return Check{Capability: Permission(cap), Authority: authority}, nil
	case tagGrantPermission:
		target, err := decodeAccountId(d)
		if err != nil {
			return nil, err
		}
		cap, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		return GrantPermission{Target: target, Capability: Permission(cap)}, nil
	case tagRevokePermission:
		target, err := decodeAccountId(d)
		if err != nil {
			return nil, err
		}
		cap, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		return RevokePermission{Target: target, Capability: Permission(cap)}, nil
	case tagSequence:
		n, err := d.ReadVarint()
		if err != nil {
			return nil, err
		}
		instrs := make([]Instruction, n)
		for i := range instrs {
			instrs[i], err = decodeInstruction(d)
			if err != nil {
				return nil, err
			}
		}
		return Sequence{Instructions: instrs}, nil
	case tagCompose:
		first, err := decodeInstruction(d)
		if err != nil {
			return nil, err
		}
		second, err := decodeInstruction(d)
		if err != nil {
			return nil, err
		}
		return Compose{First: first, Second: second}, nil
	case tagIf:
		cond, err := decodeInstruction(d)
		if err != nil {
			return nil, err
		}
		then, err := decodeInstruction(d)
		if err != nil {
			return nil, err
		}
		hasElse, err := d.ReadByte_()
		if err != nil {
			return nil, err
		}
		var elseInstr Instruction
		if hasElse == 1 {
			elseInstr, err = decodeInstruction(d)
			if err != nil {
				return nil, err
			}
		}
		return If{Cond: cond, Then: then, Else: elseInstr}, nil
	case tagExecuteQuery:
		q, err := decodeQuery(d)
		if err != nil {
			return nil, err
		}
		return ExecuteQuery{Query: q}, nil
	case tagFail:
		msg, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		return Fail{Message: msg}, nil
	case tagNotify:
		msg, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		return Notify{Message: msg}, nil
	default:
		return nil, fmt.Errorf("codec_decode: unknown instruction tag %d", tag)
	}
}

func decodeQuery(d *Decoder) (Query, error) {
	tag, err := d.ReadByte_()
	if err != nil {
		return nil, err
	}
	switch tag {
	case 0:
		id, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		return GetDomain{Id: DomainId(id)}, nil
	case 1:
		id, err := decodeAccountId(d)
		if err != nil {
			return nil, err
		}
		return GetAccount{Id: id}, nil
	case 2:
		id, err := decodeAccountId(d)
		if err != nil {
			return nil, err
		}
		return GetAccountAssets{Id: id}, nil
	case 3:
		id, err := decodeAssetId(d)
		if err != nil {
			return nil, err
		}
		return GetAsset{Id: id}, nil
	case 4:
		domain, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		return GetDomainAccounts{Domain: DomainId(domain)}, nil
	default:
		return nil, fmt.Errorf("codec_decode: unknown query tag %d", tag)
	}
}

// encodeTransaction canonically encodes tx's full on-disk representation:
// payload, lifecycle state, correlation id, and every attached signature.
// Unlike encodeTxPayload (used only for hashing), this round-trips via
// decodeTransaction and is what Kura persists.
func encodeTransaction(e *Encoder, tx *Transaction) {
	e.WriteString(tx.Payload.Creator.Name)
	e.WriteString(string(tx.Payload.Creator.Domain))
	e.WriteVarint(uint64(len(tx.Payload.Instructions)))
	for _, instr := range tx.Payload.Instructions {
		encodeInstruction(e, instr)
	}
	e.WriteInt64(tx.Payload.CreatedAtMs)
	e.WriteInt64(tx.Payload.TTLMs)
	e.WriteByte_(byte(tx.State))
	corr, _ := tx.Correlation.MarshalBinary()
	e.WriteFixed(corr)
	keys := tx.Signatures.Keys()
	e.WriteVarint(uint64(len(keys)))
	for _, pub := range keys {
		sig, _ := tx.Signatures.Get(pub)
		e.WriteFixed(pub[:])
		e.WriteBytes(sig)
	}
}

func decodeTransaction(d *Decoder) (*Transaction, error) {
	name, err := d.ReadString()
	if err != nil {
		return nil, err
	}
	domain, err := d.ReadString()
	if err != nil {
		return nil, err
	}
	n, err := d.ReadVarint()
	if err != nil {
		return nil, err
	}
	instrs := make([]Instruction, n)
	for i := range instrs {
		instrs[i], err = decodeInstruction(d)
		if err != nil {
			return nil, err
		}
	}
	createdAt, err := d.ReadInt64()
	if err != nil {
		return nil, err
	}
	ttl, err := d.ReadInt64()
	if err != nil {
		return nil, err
	}
	stateByte, err := d.ReadByte_()
	if err != nil {
		return nil, err
	}
	corrBytes, err := d.ReadFixed(16)
	if err != nil {
		return nil, err
	}
	var corr uuid.UUID
	if err := corr.UnmarshalBinary(corrBytes); err != nil {
		return nil, err
	}
	sigCount, err := d.ReadVarint()
	if err != nil {
		return nil, err
	}
	sigs := NewSignatures()
	for i := uint64(0); i < sigCount; i++ {
		pub, err := decodePublicKey(d)
		if err != nil {
			return nil, err
		}
		sig, err := d.ReadBytes()
		if err != nil {
			return nil, err
		}
		sigs.Add(pub, sig)
	}
	return &Transaction{
		Payload: TransactionPayload{
			Creator:      NewAccountId(name, DomainId(domain)),
			Instructions: instrs,
			CreatedAtMs:  createdAt,
			TTLMs:        ttl,
		},
		Signatures:  sigs,
		State:       TransactionState(stateByte),
		Correlation: corr,
	}, nil
}

// encodeBlock canonically encodes b's full on-disk representation: header,
// state, and every transaction.
func encodeBlock(b *Block) []byte {
	e := NewEncoder()
	e.WriteFixed(encodeBlockHeader(b.Header))
	e.WriteByte_(byte(b.State))
	e.WriteVarint(uint64(len(b.Transactions)))
	for _, tx := range b.Transactions {
		encodeTransaction(e, tx)
	}
	return e.Bytes()
}

func decodeBlockHeader(d *Decoder) (BlockHeader, error) {
	height, err := d.ReadUint64()
	if err != nil {
		return BlockHeader{}, err
	}
	ts, err := d.ReadInt64()
	if err != nil {
		return BlockHeader{}, err
	}
	prev, err := d.ReadFixed(32)
	if err != nil {
		return BlockHeader{}, err
	}
	root, err := d.ReadFixed(32)
	if err != nil {
		return BlockHeader{}, err
	}
	viewChanges, err := d.ReadUint32()
	if err != nil {
		return BlockHeader{}, err
	}
	n, err := d.ReadVarint()
	if err != nil {
		return BlockHeader{}, err
	}
	invalidated := make([]Hash, n)
	for i := range invalidated {
		b, err := d.ReadFixed(32)
		if err != nil {
			return BlockHeader{}, err
		}
		copy(invalidated[i][:], b)
	}
	var h BlockHeader
	h.Height = height
	h.TimestampMs = ts
	copy(h.PreviousBlockHash[:], prev)
	copy(h.MerkleRootHash[:], root)
	h.NumberOfViewChanges = viewChanges
	h.InvalidatedBlocksHashes = invalidated
	return h, nil
}

func decodeBlock(data []byte) (*Block, error) {
	d := NewDecoder(data)
	header, err := decodeBlockHeader(d)
	if err != nil {
		return nil, err
	}
	stateByte, err := d.ReadByte_()
	if err != nil {
		return nil, err
	}
	n, err := d.ReadVarint()
	if err != nil {
		return nil, err
	}
	txs := make([]*Transaction, n)
	for i := range txs {
		txs[i], err = decodeTransaction(d)
		if err != nil {
			return nil, err
		}
	}
	return &Block{Header: header, State: BlockState(stateByte), Transactions: txs}, nil
}
