package core

import "math/big"

// maxU128 is 2^128 - 1, the ceiling spec.md §3 places on u128 quantities.
var maxU128 = func() *big.Int {
	max := new(big.Int).Lsh(big.NewInt(1), 128)
	return max.Sub(max, big.NewInt(1))
}()

// BigUint is the u128-equivalent large quantity used by Asset's big-quantity
// variant. It wraps math/big.Int but is kept non-negative by convention;
// callers never observe a negative value from this package's operations.
type BigUint struct {
	v big.Int
}

// NewBigUint constructs a BigUint from a uint64.
func NewBigUint(v uint64) BigUint {
	var b BigUint
	b.v.SetUint64(v)
	return b
}

// BigUintFromString parses a base-10 big.Int literal.
func BigUintFromString(s string) (BigUint, bool) {
	var b BigUint
	_, ok := b.v.SetString(s, 10)
	return b, ok
}

func (b BigUint) String() string { return b.v.String() }

func (b BigUint) Cmp(o BigUint) int { return b.v.Cmp(&o.v) }

func (b BigUint) Add(o BigUint) BigUint {
	var out BigUint
	out.v.Add(&b.v, &o.v)
	return out
}

func (b BigUint) Sub(o BigUint) BigUint {
	var out BigUint
	out.v.Sub(&b.v, &o.v)
	return out
}

func (b BigUint) IsZero() bool { return b.v.Sign() == 0 }

// ExceedsU128 reports whether b is greater than 2^128 - 1.
func (b BigUint) ExceedsU128() bool { return b.v.Cmp(maxU128) > 0 }

func (b BigUint) Bytes() []byte { return b.v.Bytes() }

func BigUintFromBytes(data []byte) BigUint {
	var b BigUint
	b.v.SetBytes(data)
	return b
}
