package systemcontracts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casperlabs/execution-engine/execution"
	"github.com/casperlabs/execution-engine/globalstate"
	"github.com/casperlabs/execution-engine/key"
	"github.com/casperlabs/execution-engine/params"
	"github.com/casperlabs/execution-engine/trackingcopy"
	"github.com/casperlabs/execution-engine/value"
)

func newTestCopy(t *testing.T) *trackingcopy.TrackingCopy {
	store, err := globalstate.OpenMemLevelDBStore()
	require.NoError(t, err)
	gs, err := globalstate.NewGlobalState(store)
	require.NoError(t, err)
	reader, err := gs.Checkout(gs.EmptyRoot())
	require.NoError(t, err)
	return trackingcopy.New(reader)
}

func TestMintCreatePurseAndBalance(t *testing.T) {
	tc := newTestCopy(t)
	mint := NewMint(tc)

	purse, err := mint.CreatePurse("test-purse", value.NewU512(500))
	require.NoError(t, err)

	mintURef := key.NewURef(key.Seed("mint"), key.ReadAddWrite)
	bal, err := mint.Balance(mintURef, purse)
	require.NoError(t, err)
	assert.Equal(t, value.NewU512(500), bal)
}

func TestMintTransfer(t *testing.T) {
	tc := newTestCopy(t)
	mint := NewMint(tc)

	from, err := mint.CreatePurse("from-purse", value.NewU512(100))
	require.NoError(t, err)
	to, err := mint.CreatePurse("to-purse", value.NewU512(0))
	require.NoError(t, err)

	mintURef := key.NewURef(key.Seed("mint"), key.ReadAddWrite)
	fromBal, err := mint.BalanceKey(mintURef, from)
	require.NoError(t, err)
	toBal, err := mint.BalanceKey(mintURef, to)
	require.NoError(t, err)

	require.NoError(t, mint.Transfer(fromBal, toBal, value.NewU512(40)))

	fromU, err := mint.Balance(mintURef, from)
	require.NoError(t, err)
	toU, err := mint.Balance(mintURef, to)
	require.NoError(t, err)
	assert.Equal(t, value.NewU512(60), fromU)
	assert.Equal(t, value.NewU512(40), toU)
}

func TestProofOfStakePurses(t *testing.T) {
	tc := newTestCopy(t)
	mint := NewMint(tc)
	pos := NewProofOfStake(tc, mint)

	payment, err := pos.CreatePaymentPurse()
	require.NoError(t, err)
	rewards, err := pos.CreateRewardsPurse()
	require.NoError(t, err)
	assert.NotEqual(t, payment.Normalize(), rewards.Normalize())

	contract := value.NewContract(nil, map[string]key.Key{
		params.PoSPaymentPurse: key.FromURef(payment),
		params.PoSRewardsPurse: key.FromURef(rewards),
	}, 1)

	resolvedPayment, err := PaymentPurseURef(contract)
	require.NoError(t, err)
	assert.Equal(t, payment.Normalize(), resolvedPayment.Normalize())

	resolvedRewards, err := RewardsPurseURef(contract)
	require.NoError(t, err)
	assert.Equal(t, rewards.Normalize(), resolvedRewards.Normalize())
}

func TestPurseURefLookupFailsWhenAbsent(t *testing.T) {
	contract := value.NewContract(nil, map[string]key.Key{}, 1)
	_, err := PaymentPurseURef(contract)
	assert.Error(t, err)
	_, err = RewardsPurseURef(contract)
	assert.Error(t, err)
}

func TestBondedNamedKeysRoundTrip(t *testing.T) {
	pk1 := key.PublicKey(key.Seed("validator-1"))
	pk2 := key.PublicKey(key.Seed("validator-2"))
	bonds := []ValidatorBond{
		{PublicKey: pk1, Amount: value.NewU512(1000)},
		{PublicKey: pk2, Amount: value.NewU512(2000)},
	}

	named := BondedNamedKeys(bonds)
	assert.Len(t, named, 2)

	contract := value.NewContract(nil, named, 1)
	parsed := ParseBondedValidators(contract)
	require.Len(t, parsed, 2)
	assert.Equal(t, value.NewU512(1000), parsed[pk1])
	assert.Equal(t, value.NewU512(2000), parsed[pk2])
}

func TestParseBondedValidatorsSkipsMalformedEntries(t *testing.T) {
	contract := value.NewContract(nil, map[string]key.Key{
		"v_not_enough_parts":    key.HashKey(key.Seed("x")),
		"unrelated_named_key":   key.HashKey(key.Seed("y")),
		"v_deadbeef_notanumber": key.HashKey(key.Seed("z")),
	}, 1)
	parsed := ParseBondedValidators(contract)
	assert.Len(t, parsed, 0)
}

func TestBuildFinalizeModuleTransfersRuntimeAmount(t *testing.T) {
	paymentKey := key.HashKey(key.Seed("payment-balance"))
	rewardsKey := key.HashKey(key.Seed("rewards-balance"))
	m := BuildFinalizeModule(paymentKey, rewardsKey)
	require.Len(t, m.Instructions, 2)

	tc := newTestCopy(t)
	tc.Write(paymentKey, value.U512Value(value.NewU512(100)))
	tc.Write(rewardsKey, value.U512Value(value.NewU512(0)))
	res := execution.NewMeteredExecutor().ExecDirect(m, [][]byte{execution.MotesArg(30)}, tc)
	require.True(t, res.Ok())

	paymentBal, err := tc.GetPurseBalance(paymentKey)
	require.NoError(t, err)
	rewardsBal, err := tc.GetPurseBalance(rewardsKey)
	require.NoError(t, err)
	assert.Equal(t, value.NewU512(70), paymentBal)
	assert.Equal(t, value.NewU512(30), rewardsBal)
}
