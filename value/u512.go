package value

import (
	"math/big"

	"github.com/holiman/uint256"
)

// U512 is the unsigned 512-bit integer used for token amounts (motes,
// balances). The domain only ever needs 256-bit range for a single
// deploy's arithmetic, so it is backed by github.com/holiman/uint256 (the
// pack's fixed-width integer dependency) and promoted to *big.Int only at
// package boundaries that already speak big.Int (e.g. params arithmetic).
type U512 struct {
	inner uint256.Int
}

// NewU512 constructs a U512 from a uint64.
func NewU512(n uint64) U512 {
	var u U512
	u.inner.SetUint64(n)
	return u
}

// U512FromBig constructs a U512 from a *big.Int, truncating silently if n is
// negative or out of range (the engine never constructs negative amounts).
func U512FromBig(n *big.Int) U512 {
	var u U512
	if n != nil {
		u.inner.SetFromBig(n)
	}
	return u
}

// Big returns the value as a *big.Int.
func (u U512) Big() *big.Int { return u.inner.ToBig() }

// Uint64 returns the value truncated to a uint64.
func (u U512) Uint64() uint64 { return u.inner.Uint64() }

// Add returns u + other.
func (u U512) Add(other U512) U512 {
	var r U512
	r.inner.Add(&u.inner, &other.inner)
	return r
}

// Sub returns u - other, saturating at zero (balances never go negative;
// callers that need overflow detection should compare with Cmp first).
func (u U512) Sub(other U512) U512 {
	var r U512
	if u.inner.Lt(&other.inner) {
		return NewU512(0)
	}
	r.inner.Sub(&u.inner, &other.inner)
	return r
}

// Mul returns u * other.
func (u U512) Mul(other U512) U512 {
	var r U512
	r.inner.Mul(&u.inner, &other.inner)
	return r
}

// Div returns u / other, or zero if other is zero.
func (u U512) Div(other U512) U512 {
	var r U512
	if other.inner.IsZero() {
		return r
	}
	r.inner.Div(&u.inner, &other.inner)
	return r
}

// Cmp compares u to other: -1, 0, 1.
func (u U512) Cmp(other U512) int { return u.inner.Cmp(&other.inner) }

// LessThan reports u < other.
func (u U512) LessThan(other U512) bool { return u.Cmp(other) < 0 }

// GreaterOrEqual reports u >= other.
func (u U512) GreaterOrEqual(other U512) bool { return u.Cmp(other) >= 0 }

func (u U512) String() string { return u.inner.Dec() }
