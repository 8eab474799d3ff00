package key

import mapset "github.com/deckarep/golang-set"

// PublicKey identifies an account's associated signing key. The engine does
// not verify signatures itself (that happens before a deploy reaches
// RunDeploy); it only reasons about weights and thresholds.
type PublicKey [HashLength]byte

// Hex renders the public key as a 0x-prefixed hex string.
func (p PublicKey) Hex() string { return Hash(p).String() }

// PublicKeySet is a set of authorized public keys backed by
// github.com/deckarep/golang-set, standing in for the BTreeSet<PublicKey>
// of the original engine.
type PublicKeySet struct {
	set mapset.Set
}

// NewPublicKeySet builds a set from the given keys.
func NewPublicKeySet(keys ...PublicKey) PublicKeySet {
	s := mapset.NewSet()
	for _, k := range keys {
		s.Add(k)
	}
	return PublicKeySet{set: s}
}

// Empty reports whether the set has no members.
func (s PublicKeySet) Empty() bool { return s.set == nil || s.set.Cardinality() == 0 }

// Contains reports whether k is a member of the set.
func (s PublicKeySet) Contains(k PublicKey) bool {
	return s.set != nil && s.set.Contains(k)
}

// Each calls f for every member of the set.
func (s PublicKeySet) Each(f func(PublicKey)) {
	if s.set == nil {
		return
	}
	for v := range s.set.Iter() {
		f(v.(PublicKey))
	}
}

// Len returns the number of members.
func (s PublicKeySet) Len() int {
	if s.set == nil {
		return 0
	}
	return s.set.Cardinality()
}
