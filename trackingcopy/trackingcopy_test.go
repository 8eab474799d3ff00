package trackingcopy

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casperlabs/execution-engine/globalstate"
	"github.com/casperlabs/execution-engine/key"
	"github.com/casperlabs/execution-engine/transform"
	"github.com/casperlabs/execution-engine/value"
)

func newTestCopy(t *testing.T) (*TrackingCopy, *globalstate.GlobalState) {
	store, err := globalstate.OpenMemLevelDBStore()
	require.NoError(t, err)
	gs, err := globalstate.NewGlobalState(store)
	require.NoError(t, err)
	reader, err := gs.Checkout(gs.EmptyRoot())
	require.NoError(t, err)
	return New(reader), gs
}

func TestReadMissingKeyIsErrKeyNotFound(t *testing.T) {
	tc, _ := newTestCopy(t)
	_, err := tc.Read(key.HashKey(key.Seed("missing")))
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestWriteThenRead(t *testing.T) {
	tc, _ := newTestCopy(t)
	k := key.HashKey(key.Seed("k"))
	tc.Write(k, value.Int32Value(9))
	v, err := tc.Read(k)
	require.NoError(t, err)
	n, ok := v.AsInt32()
	require.True(t, ok)
	assert.Equal(t, int32(9), n)
}

func TestAddRequiresPriorWrite(t *testing.T) {
	tc, _ := newTestCopy(t)
	k := key.HashKey(key.Seed("k"))
	err := tc.Add(k, big.NewInt(5))
	assert.ErrorIs(t, err, ErrKeyNotFound)

	tc.Write(k, value.U512Value(value.NewU512(10)))
	require.NoError(t, tc.Add(k, big.NewInt(5)))
	v, err := tc.Read(k)
	require.NoError(t, err)
	u, _ := v.AsU512()
	assert.Equal(t, value.NewU512(15), u)
}

func TestHandleNonceStrictIncrement(t *testing.T) {
	tc, _ := newTestCopy(t)
	addr := key.Seed("addr")
	acc := value.NewAccount(addr, 4, nil, value.PurseID{}, nil, value.ActionThresholds{})

	nonceErr, err := tc.HandleNonce(addr, acc, 6)
	require.NoError(t, err)
	require.NotNil(t, nonceErr)
	assert.Equal(t, uint64(5), nonceErr.Expected)
	assert.Equal(t, uint64(6), nonceErr.Found)

	nonceErr, err = tc.HandleNonce(addr, acc, 5)
	require.NoError(t, err)
	assert.Nil(t, nonceErr)
	assert.Equal(t, uint64(5), acc.Nonce)
}

func TestPurseBalanceKeyBindAndResolve(t *testing.T) {
	tc, _ := newTestCopy(t)
	mintURef := key.NewURef(key.Seed("mint"), key.ReadAddWrite)
	purseURef := key.NewURef(key.Seed("purse"), key.ReadAddWrite)
	balanceKey := key.HashKey(key.Seed("balance"))

	_, err := tc.GetPurseBalanceKey(mintURef, purseURef)
	assert.ErrorIs(t, err, ErrPurseNotFound)

	tc.BindPurseBalanceKey(purseURef, balanceKey)
	resolved, err := tc.GetPurseBalanceKey(mintURef, purseURef)
	require.NoError(t, err)
	assert.Equal(t, balanceKey.Normalize(), resolved.Normalize())
}

func TestMarkRollbackEffectSince(t *testing.T) {
	tc, _ := newTestCopy(t)
	k1 := key.HashKey(key.Seed("k1"))
	k2 := key.HashKey(key.Seed("k2"))

	tc.Write(k1, value.Int32Value(1))
	mark := tc.Mark()
	tc.Write(k2, value.Int32Value(2))

	since := tc.EffectSince(mark)
	assert.Len(t, since.Transforms, 1)
	_, ok := since.Transforms[k2.Normalize()]
	assert.True(t, ok)

	tc.Rollback(mark)
	full := tc.Effect()
	assert.Len(t, full.Transforms, 1)
	_, ok = full.Transforms[k1.Normalize()]
	assert.True(t, ok)

	// k2's Write never happened as far as Effect is concerned, so it must
	// not have a dangling Ops entry with no matching Transform either.
	_, ok = full.Ops[k2.Normalize()]
	assert.False(t, ok)
	_, ok = full.Ops[k1.Normalize()]
	assert.True(t, ok)
}

func TestRollbackRevertsCacheSoLaterReadsSeePrestate(t *testing.T) {
	tc, _ := newTestCopy(t)
	k := key.HashKey(key.Seed("k"))

	tc.Write(k, value.Int32Value(1))
	mark := tc.Mark()
	tc.Write(k, value.Int32Value(99))

	v, err := tc.Read(k)
	require.NoError(t, err)
	n, _ := v.AsInt32()
	assert.Equal(t, int32(99), n)

	tc.Rollback(mark)

	v, err = tc.Read(k)
	require.NoError(t, err)
	n, _ = v.AsInt32()
	assert.Equal(t, int32(1), n)
}

func TestRollbackRevertsAddOnTopOfEarlierWrite(t *testing.T) {
	tc, _ := newTestCopy(t)
	k := key.HashKey(key.Seed("k"))

	tc.Write(k, value.U512Value(value.NewU512(10)))
	mark := tc.Mark()
	require.NoError(t, tc.Add(k, big.NewInt(5)))

	tc.Rollback(mark)

	v, err := tc.Read(k)
	require.NoError(t, err)
	u, _ := v.AsU512()
	assert.Equal(t, value.NewU512(10), u)

	full := tc.Effect()
	_, ok := full.Transforms[k.Normalize()]
	require.True(t, ok)
	assert.Equal(t, transform.OpWrite, full.Ops[k.Normalize()])
}
