// Package transform implements the Transform algebra: the commutative
// monoid of state mutations staged by a tracking copy and folded into a
// commit. See params for the economic constants consumed by callers that
// build AddInt transforms from gas/motes arithmetic.
package transform

import (
	"fmt"
	"math/big"

	"github.com/casperlabs/execution-engine/key"
	"github.com/casperlabs/execution-engine/value"
)

// Kind discriminates the variants of Transform.
type Kind uint8

const (
	KindIdentity Kind = iota
	KindWrite
	KindAddInt
	KindAddKeys
	KindFailure
)

// Op is the per-key operation record a tracking copy maintains alongside
// the transform log: what kind of access a key saw, irrespective of the
// values involved.
type Op uint8

const (
	NoOp Op = iota
	OpRead
	OpWrite
	OpAdd
)

// Join combines two Ops seen for the same key into the Op that summarizes
// both accesses (Write dominates Add dominates Read dominates NoOp).
func (a Op) Join(b Op) Op {
	if a == OpWrite || b == OpWrite {
		return OpWrite
	}
	if a > b {
		return a
	}
	return b
}

func (o Op) String() string {
	switch o {
	case NoOp:
		return "NoOp"
	case OpRead:
		return "Read"
	case OpWrite:
		return "Write"
	case OpAdd:
		return "Add"
	default:
		return "Unknown"
	}
}

// Transform is a staged mutation to the value at some Key. The zero value is
// Identity.
type Transform struct {
	kind    Kind
	write   value.Value
	addInt  *big.Int
	addKeys map[string]key.Key
	failure error
}

// Identity returns a no-op transform, the monoid's identity element.
func Identity() Transform { return Transform{kind: KindIdentity} }

// Write returns a transform that unconditionally sets the key to v.
func Write(v value.Value) Transform { return Transform{kind: KindWrite, write: v} }

// AddInt returns a transform that adds n (interpreted as a signed delta over
// the stored U512/integer value) to whatever is stored at the key. n covers
// AddInt8 through AddInt512 uniformly: the width only matters at the point
// the addition is actually applied against a concrete stored Value.
func AddInt(n *big.Int) Transform { return Transform{kind: KindAddInt, addInt: n} }

// AddKeys returns a transform that merges m into the named-keys map stored
// at the key.
func AddKeys(m map[string]key.Key) Transform { return Transform{kind: KindAddKeys, addKeys: m} }

// Failure returns a transform recording that staging this key failed; it
// absorbs under composition.
func Failure(err error) Transform { return Transform{kind: KindFailure, failure: err} }

func (t Transform) Kind() Kind { return t.kind }

func (t Transform) AsWrite() (value.Value, bool) {
	if t.kind != KindWrite {
		return value.Value{}, false
	}
	return t.write, true
}

func (t Transform) AsAddInt() (*big.Int, bool) {
	if t.kind != KindAddInt {
		return nil, false
	}
	return t.addInt, true
}

func (t Transform) AsAddKeys() (map[string]key.Key, bool) {
	if t.kind != KindAddKeys {
		return nil, false
	}
	return t.addKeys, true
}

func (t Transform) AsFailure() (error, bool) {
	if t.kind != KindFailure {
		return nil, false
	}
	return t.failure, true
}

func (t Transform) String() string {
	switch t.kind {
	case KindIdentity:
		return "Identity"
	case KindWrite:
		return fmt.Sprintf("Write(%v)", t.write.Kind())
	case KindAddInt:
		if t.addInt == nil {
			return "AddInt(<nil>)"
		}
		return fmt.Sprintf("AddInt(%s)", t.addInt.String())
	case KindAddKeys:
		return fmt.Sprintf("AddKeys(%d)", len(t.addKeys))
	case KindFailure:
		return fmt.Sprintf("Failure(%v)", t.failure)
	default:
		return "Unknown"
	}
}

// Compose implements the monoid's associative operation, applying b after a
// (a happens-before b). The composition laws are:
//
//	compose(Write(v), AddInt(n))   = Write(v+n)
//	compose(AddInt(a), AddInt(b))  = AddInt(a+b)
//	compose(AddKeys(m1), AddKeys(m2)) = AddKeys(merge(m1,m2))
//	compose(_, Failure)            = Failure
//	compose(Failure, _)            = Failure
//	compose(Identity, b)           = b
//	compose(a, Identity)           = a
func Compose(a, b Transform) Transform {
	if a.kind == KindFailure {
		return a
	}
	if b.kind == KindFailure {
		return b
	}
	if a.kind == KindIdentity {
		return b
	}
	if b.kind == KindIdentity {
		return a
	}

	switch {
	case a.kind == KindWrite && b.kind == KindAddInt:
		sum, ok := addIntoValue(a.write, b.addInt)
		if !ok {
			return Failure(fmt.Errorf("transform: type mismatch composing Write with AddInt"))
		}
		return Write(sum)
	case a.kind == KindAddInt && b.kind == KindAddInt:
		return AddInt(new(big.Int).Add(a.addInt, b.addInt))
	case a.kind == KindWrite && b.kind == KindWrite:
		return b
	case a.kind == KindAddKeys && b.kind == KindAddKeys:
		merged := make(map[string]key.Key, len(a.addKeys)+len(b.addKeys))
		for k, v := range a.addKeys {
			merged[k] = v
		}
		for k, v := range b.addKeys {
			merged[k] = v
		}
		return AddKeys(merged)
	case a.kind == KindWrite && b.kind == KindAddKeys:
		nk, ok := a.write.AsNamedKeys()
		if !ok {
			return Failure(fmt.Errorf("transform: type mismatch composing Write with AddKeys"))
		}
		merged := make(map[string]key.Key, len(nk)+len(b.addKeys))
		for k, v := range nk {
			merged[k] = v
		}
		for k, v := range b.addKeys {
			merged[k] = v
		}
		return Write(value.NamedKeysValue(merged))
	default:
		return Failure(fmt.Errorf("transform: incompatible composition of %v and %v", a.kind, b.kind))
	}
}

// addIntoValue adds delta to v's numeric payload, returning the updated
// Value. Supports U512 and Int32 payloads; any other Value kind is a type
// mismatch.
func addIntoValue(v value.Value, delta *big.Int) (value.Value, bool) {
	if u, ok := v.AsU512(); ok {
		return value.U512Value(value.U512FromBig(new(big.Int).Add(u.Big(), delta))), true
	}
	if n, ok := v.AsInt32(); ok {
		return value.Int32Value(int32(new(big.Int).Add(big.NewInt(int64(n)), delta).Int64())), true
	}
	return value.Value{}, false
}
