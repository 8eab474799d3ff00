package key

import (
	"fmt"
)

// Kind discriminates the variants of Key.
type Kind uint8

const (
	KindAccount Kind = iota
	KindHash
	KindURef
	KindLocal
)

// Key is a tagged address into global state: Account(addr), Hash(hash),
// URef(id, rights) or Local(seed, hash). It is implemented as a flat struct
// rather than an interface so Key remains a comparable map key (interfaces
// holding non-comparable payloads would break `map[Key]Transform`).
type Key struct {
	kind   Kind
	hash   Hash // Account addr / Hash digest / Local seed
	hash2  Hash // Local: the hashed suffix
	rights AccessRights
}

// Account constructs an Account key for the given 32-byte address.
func Account(addr Hash) Key { return Key{kind: KindAccount, hash: addr} }

// HashKey constructs a Hash key (e.g. a contract address).
func HashKey(h Hash) Key { return Key{kind: KindHash, hash: h} }

// FromURef constructs a URef key.
func FromURef(u URef) Key { return Key{kind: KindURef, hash: u.ID, rights: u.Rights} }

// Local constructs a Local key: a contract-local subkey addressed by
// (seed, blake2b(suffix)), matching §6 "Contract-address-local subkeys".
func Local(seed, suffixHash Hash) Key { return Key{kind: KindLocal, hash: seed, hash2: suffixHash} }

// Kind reports which variant k is.
func (k Key) Kind() Kind { return k.kind }

// Normalize zeroes access rights for comparison, per §3 "Keys normalize by
// zeroing access rights for comparison". Non-URef keys are already normal.
func (k Key) Normalize() Key {
	if k.kind != KindURef {
		return k
	}
	return Key{kind: KindURef, hash: k.hash}
}

// AsAccount returns the address and true if k is an Account key.
func (k Key) AsAccount() (Hash, bool) {
	if k.kind != KindAccount {
		return Hash{}, false
	}
	return k.hash, true
}

// AsURef returns the URef and true if k is a URef key.
func (k Key) AsURef() (URef, bool) {
	if k.kind != KindURef {
		return URef{}, false
	}
	return URef{ID: k.hash, Rights: k.rights}, true
}

// Bytes returns a fixed-width canonical encoding of the normalized key
// (kind || hash || hash2), suitable as a content-addressed store row key.
// Access rights are intentionally excluded: normalized keys compare equal
// regardless of rights.
func (k Key) Bytes() []byte {
	n := k.Normalize()
	b := make([]byte, 0, 1+HashLength*2)
	b = append(b, byte(n.kind))
	b = append(b, n.hash.Bytes()...)
	b = append(b, n.hash2.Bytes()...)
	return b
}

// FromBytes decodes a canonical key encoding produced by Bytes. The
// decoded key carries no access rights (Normalize already stripped them).
func FromBytes(b []byte) (Key, error) {
	if len(b) != 1+HashLength*2 {
		return Key{}, fmt.Errorf("key: malformed encoding, want %d bytes, got %d", 1+HashLength*2, len(b))
	}
	kind := Kind(b[0])
	if kind > KindLocal {
		return Key{}, fmt.Errorf("key: unknown kind byte %d", b[0])
	}
	return Key{
		kind:  kind,
		hash:  BytesToHash(b[1 : 1+HashLength]),
		hash2: BytesToHash(b[1+HashLength : 1+HashLength*2]),
	}, nil
}

func (k Key) String() string {
	switch k.kind {
	case KindAccount:
		return fmt.Sprintf("Key::Account(%s)", k.hash)
	case KindHash:
		return fmt.Sprintf("Key::Hash(%s)", k.hash)
	case KindURef:
		return fmt.Sprintf("Key::URef(%s)", URef{ID: k.hash, Rights: k.rights})
	case KindLocal:
		return fmt.Sprintf("Key::Local(%s,%s)", k.hash, k.hash2)
	default:
		return "Key::Unknown"
	}
}
