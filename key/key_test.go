package key

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyNormalizeStripsURefRights(t *testing.T) {
	id := Seed("some-uref")
	withRights := FromURef(NewURef(id, ReadAddWrite))
	withoutRights := FromURef(NewURef(id, None))

	assert.NotEqual(t, withRights, withoutRights)
	assert.Equal(t, withRights.Normalize(), withoutRights.Normalize())
}

func TestKeyBytesRoundTrip(t *testing.T) {
	cases := []Key{
		Account(Seed("account")),
		HashKey(Seed("contract")),
		FromURef(NewURef(Seed("uref"), ReadWrite)),
		Local(Seed("seed"), Seed("suffix")),
	}
	for _, k := range cases {
		decoded, err := FromBytes(k.Bytes())
		assert.NoError(t, err)
		assert.Equal(t, k.Normalize(), decoded)
	}
}

func TestFromBytesRejectsMalformedInput(t *testing.T) {
	_, err := FromBytes([]byte{0x00, 0x01})
	assert.Error(t, err)

	_, err = FromBytes(append([]byte{0xFF}, make([]byte, HashLength*2)...))
	assert.Error(t, err)
}

func TestSeedIsDeterministic(t *testing.T) {
	assert.Equal(t, Seed("genesis.mint.contract"), Seed("genesis.mint.contract"))
	assert.NotEqual(t, Seed("a"), Seed("b"))
}

func TestPublicKeySet(t *testing.T) {
	a := PublicKey(Seed("a"))
	b := PublicKey(Seed("b"))

	empty := NewPublicKeySet()
	assert.True(t, empty.Empty())
	assert.Equal(t, 0, empty.Len())

	s := NewPublicKeySet(a, b)
	assert.False(t, s.Empty())
	assert.True(t, s.Contains(a))
	assert.False(t, s.Contains(PublicKey(Seed("c"))))
	assert.Equal(t, 2, s.Len())

	seen := map[PublicKey]bool{}
	s.Each(func(pk PublicKey) { seen[pk] = true })
	assert.Len(t, seen, 2)
}
