package core

// queries.go – read-only WSV projections (spec.md §4.6). Queries execute
// against the WSV without cloning and never fail for authorization (the
// core treats them as public by default); a missing entity produces a
// NotFound error embedded in the result. Envelopes carry a timestamp, an
// optional signature, and a uuid correlation id for log/gossip correlation
// (SPEC_FULL.md §4.6), following the transaction envelope idiom in
// core/transaction.go.

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// QueryResult is the typed payload a Query.Run call returns on success.
// Exactly one field is meaningful per query kind; callers type-assert or
// switch on the originating Query's concrete type to know which.
type QueryResult struct {
	Domain   *Domain
	Account  *Account
	Asset    *Asset
	Accounts []Account
}

// Query is the closed, read-only counterpart to Instruction: a single
// Run(wsv) contract, dispatched by variant.
type Query interface {
	Run(wsv *WorldStateView) (QueryResult, error)
}

// GetDomain projects a single domain by id.
type GetDomain struct{ Id DomainId }

func (q GetDomain) Run(wsv *WorldStateView) (QueryResult, error) {
	d, err := wsv.Domain(q.Id)
	if err != nil {
		return QueryResult{}, Wrap("GetDomain", err)
	}
	return QueryResult{Domain: &d}, nil
}

// GetAccount projects a single account by id.
type GetAccount struct{ Id AccountId }

func (q GetAccount) Run(wsv *WorldStateView) (QueryResult, error) {
	a, err := wsv.Account(q.Id)
	if err != nil {
		return QueryResult{}, Wrap("GetAccount", err)
	}
	return QueryResult{Account: &a}, nil
}

// GetAccountAssets projects all assets an account owns.
type GetAccountAssets struct{ Id AccountId }

func (q GetAccountAssets) Run(wsv *WorldStateView) (QueryResult, error) {
	a, err := wsv.Account(q.Id)
	if err != nil {
		return QueryResult{}, Wrap("GetAccountAssets", err)
	}
	return QueryResult{Account: &a}, nil
}

// GetAsset projects a single asset instance by id.
type GetAsset struct{ Id AssetId }

func (q GetAsset) Run(wsv *WorldStateView) (QueryResult, error) {
	account, err := wsv.Account(q.Id.Account)
	if err != nil {
		return QueryResult{}, Wrap("GetAsset", err)
	}
	asset, ok := account.Assets[q.Id]
	if !ok {
		return QueryResult{}, NewError(KindNotFound, "GetAsset", fmt.Errorf("asset %s", q.Id))
	}
	return QueryResult{Asset: &asset}, nil
}

// GetDomainAccounts projects every account registered in a domain.
type GetDomainAccounts struct{ Domain DomainId }

func (q GetDomainAccounts) Run(wsv *WorldStateView) (QueryResult, error) {
	d, err := wsv.Domain(q.Domain)
	if err != nil {
		return QueryResult{}, Wrap("GetDomainAccounts", err)
	}
	accounts := make([]Account, 0, len(d.Accounts))
	for _, a := range d.Accounts {
		accounts = append(accounts, a)
	}
	return QueryResult{Accounts: accounts}, nil
}

// QueryEnvelope wraps a Query with the request metadata spec.md §4.6
// requires: a timestamp, an optional requester signature, and a
// correlation id.
type QueryEnvelope struct {
	Query       Query
	TimestampMs int64
	Signature   *Signature
	Correlation uuid.UUID
}

// NewQueryEnvelope wraps q with the current time and a fresh correlation id.
func NewQueryEnvelope(q Query) QueryEnvelope {
	return QueryEnvelope{
		Query:       q,
		TimestampMs: time.Now().UnixMilli(),
		Correlation: uuid.New(),
	}
}

func encodeQuery(e *Encoder, q Query) {
	switch v := q.(type) {
	case GetDomain:
		e.WriteByte_(0)
		e.WriteString(string(v.Id))
	case GetAccount:
		e.WriteByte_(1)
		encodeAccountId(e, v.Id)
	case GetAccountAssets:
		e.WriteByte_(2)
		encodeAccountId(e, v.Id)
	case GetAsset:
		e.WriteByte_(3)
		encodeAssetId(e, v.Id)
	case GetDomainAccounts:
		e.WriteByte_(4)
		e.WriteString(string(v.Domain))
	default:
		panic(fmt.Sprintf("codec: unknown query type %T", q))
	}
}
