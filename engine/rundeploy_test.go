package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casperlabs/execution-engine/execution"
	"github.com/casperlabs/execution-engine/key"
	"github.com/casperlabs/execution-engine/params"
	"github.com/casperlabs/execution-engine/result"
	"github.com/casperlabs/execution-engine/systemcontracts"
	"github.com/casperlabs/execution-engine/value"
)

type deployFixture struct {
	eng          *EngineState
	addrHash     key.Hash
	pubKey       key.PublicKey
	postGenesis  key.Hash
	mainBalance  key.Key
	paymentBal   key.Key
	rewardsBal   key.Key
}

func newDeployFixture(t *testing.T) *deployFixture {
	eng := New(newTestHistory(t), &params.EngineConfig{
		MaxPayment:         1000,
		ConvRate:           1,
		PaymentCodeEnabled: true,
		NonceCheckEnabled:  true,
	})
	addrHash := key.Seed("deployer-account")
	inputs := GenesisInputs{
		GenesisAccountAddr: addrHash,
		InitialTokens:      value.NewU512(100_000),
		MintModuleBytes:    []byte("mint-module-placeholder"),
		ProtocolVersion:    1,
	}
	genResult, err := eng.CommitGenesis(inputs)
	require.NoError(t, err)

	tc, err := eng.TrackingCopy(genResult.PostStateHash)
	require.NoError(t, err)
	acc, err := tc.GetAccount(addrHash)
	require.NoError(t, err)
	mintURef, _ := acc.NamedKeys[params.MintName].AsURef()
	posURef, _ := acc.NamedKeys[params.PoSName].AsURef()
	posContract, _, err := tc.GetSystemContractInfo(posURef)
	require.NoError(t, err)

	mint := systemcontracts.NewMint(tc)
	paymentURef, err := systemcontracts.PaymentPurseURef(posContract)
	require.NoError(t, err)
	rewardsURef, err := systemcontracts.RewardsPurseURef(posContract)
	require.NoError(t, err)

	mainBal, err := mint.BalanceKey(mintURef, acc.MainPurse.Value())
	require.NoError(t, err)
	paymentBal, err := mint.BalanceKey(mintURef, paymentURef)
	require.NoError(t, err)
	rewardsBal, err := mint.BalanceKey(mintURef, rewardsURef)
	require.NoError(t, err)

	return &deployFixture{
		eng:         eng,
		addrHash:    addrHash,
		pubKey:      key.PublicKey(addrHash),
		postGenesis: genResult.PostStateHash,
		mainBalance: mainBal,
		paymentBal:  paymentBal,
		rewardsBal:  rewardsBal,
	}
}

func (f *deployFixture) baseRequest() DeployRequest {
	return DeployRequest{
		Address:        key.Account(f.addrHash),
		AuthorizedKeys: key.NewPublicKeySet(f.pubKey),
		Nonce:          1,
		PrestateHash:   f.postGenesis,
		GasLimit:       1000,
		ProtocolVersion: 1,
	}
}

func TestRunDeployUnknownPrestateReturnsRootNotFound(t *testing.T) {
	f := newDeployFixture(t)
	req := f.baseRequest()
	req.PrestateHash = key.Seed("no-such-root")

	_, err := f.eng.RunDeploy(req)
	require.Error(t, err)
	var rnf *RootNotFoundError
	assert.ErrorAs(t, err, &rnf)
}

func TestRunDeployBadNonceFails(t *testing.T) {
	f := newDeployFixture(t)
	req := f.baseRequest()
	req.Nonce = 99
	req.SessionCode = execution.Encode(&execution.Module{Instructions: []execution.Instruction{execution.HaltInstr()}})
	req.PaymentCode = execution.Encode(&execution.Module{Instructions: []execution.Instruction{
		execution.TransferInstr(f.mainBalance, f.paymentBal, 1000), execution.HaltInstr(),
	}})

	res, err := f.eng.RunDeploy(req)
	require.NoError(t, err)
	require.False(t, res.Ok())
	var nonceErr *result.InvalidNonceError
	assert.ErrorAs(t, res.Error, &nonceErr)
}

func TestRunDeployInsufficientMainBalanceFails(t *testing.T) {
	f := newDeployFixture(t)
	eng := New(newTestHistory(t), &params.EngineConfig{
		MaxPayment:         1_000_000_000,
		ConvRate:           1,
		PaymentCodeEnabled: true,
		NonceCheckEnabled:  true,
	})
	genResult, err := eng.CommitGenesis(GenesisInputs{
		GenesisAccountAddr: f.addrHash,
		InitialTokens:      value.NewU512(100),
		ProtocolVersion:    1,
	})
	require.NoError(t, err)

	req := f.baseRequest()
	req.PrestateHash = genResult.PostStateHash
	req.SessionCode = execution.Encode(&execution.Module{Instructions: []execution.Instruction{execution.HaltInstr()}})
	req.PaymentCode = execution.Encode(&execution.Module{Instructions: []execution.Instruction{execution.HaltInstr()}})

	res, err := eng.RunDeploy(req)
	require.NoError(t, err)
	require.False(t, res.Ok())
	var insufficient *result.InsufficientPaymentError
	assert.ErrorAs(t, res.Error, &insufficient)
}

func TestRunDeployForcedTransferOnPaymentTrap(t *testing.T) {
	f := newDeployFixture(t)
	req := f.baseRequest()
	req.SessionCode = execution.Encode(&execution.Module{Instructions: []execution.Instruction{execution.HaltInstr()}})
	req.PaymentCode = execution.Encode(&execution.Module{Instructions: []execution.Instruction{execution.TrapInstr("payment failed")}})

	res, err := f.eng.RunDeploy(req)
	require.NoError(t, err)
	require.False(t, res.Ok())
	assert.Equal(t, result.Gas(1), res.Cost)

	_, hasPayment := res.Effects.Transforms[f.paymentBal.Normalize()]
	assert.False(t, hasPayment, "forced transfer rolls back payment's own staged transforms")
	_, hasMain := res.Effects.Transforms[f.mainBalance.Normalize()]
	_, hasRewards := res.Effects.Transforms[f.rewardsBal.Normalize()]
	assert.True(t, hasMain)
	assert.True(t, hasRewards)
}

func TestRunDeployForcedTransferOnUnderfundedPayment(t *testing.T) {
	f := newDeployFixture(t)
	req := f.baseRequest()
	req.SessionCode = execution.Encode(&execution.Module{Instructions: []execution.Instruction{execution.HaltInstr()}})
	// Payment completes without error but only funds the purse to 500,
	// below the account's MaxPayment of 1000: forced transfer must still
	// trip even though paymentResult.Ok() is true.
	req.PaymentCode = execution.Encode(&execution.Module{Instructions: []execution.Instruction{
		execution.TransferInstr(f.mainBalance, f.paymentBal, 500), execution.HaltInstr(),
	}})

	res, err := f.eng.RunDeploy(req)
	require.NoError(t, err)
	require.False(t, res.Ok())
	assert.Equal(t, result.Gas(2), res.Cost)
	var insufficient *result.InsufficientPaymentError
	assert.ErrorAs(t, res.Error, &insufficient)

	_, hasPayment := res.Effects.Transforms[f.paymentBal.Normalize()]
	assert.False(t, hasPayment, "forced transfer rolls back payment's own staged transforms")
	_, hasMain := res.Effects.Transforms[f.mainBalance.Normalize()]
	_, hasRewards := res.Effects.Transforms[f.rewardsBal.Normalize()]
	assert.True(t, hasMain)
	assert.True(t, hasRewards)
}

func TestRunDeployHappyPath(t *testing.T) {
	f := newDeployFixture(t)
	req := f.baseRequest()

	sessionKey := key.HashKey(key.Seed("session-output"))
	req.SessionCode = execution.Encode(&execution.Module{Instructions: []execution.Instruction{
		execution.WriteInstr(sessionKey, 42), execution.HaltInstr(),
	}})
	req.PaymentCode = execution.Encode(&execution.Module{Instructions: []execution.Instruction{
		execution.TransferInstr(f.mainBalance, f.paymentBal, 1000), execution.HaltInstr(),
	}})

	res, err := f.eng.RunDeploy(req)
	require.NoError(t, err)
	require.True(t, res.Ok())

	written, ok := res.Effects.Transforms[sessionKey.Normalize()]
	require.True(t, ok)
	v, ok := written.AsWrite()
	require.True(t, ok)
	n, _ := v.AsInt32()
	assert.Equal(t, int32(42), n)

	_, paid := res.Effects.Transforms[f.rewardsBal.Normalize()]
	assert.True(t, paid, "finalize settles gas cost into the rewards purse")
}

func TestRunDeployEffectsAreCommittable(t *testing.T) {
	f := newDeployFixture(t)
	req := f.baseRequest()

	sessionKey := key.HashKey(key.Seed("session-output"))
	req.SessionCode = execution.Encode(&execution.Module{Instructions: []execution.Instruction{
		execution.WriteInstr(sessionKey, 42), execution.HaltInstr(),
	}})
	req.PaymentCode = execution.Encode(&execution.Module{Instructions: []execution.Instruction{
		execution.TransferInstr(f.mainBalance, f.paymentBal, 1000), execution.HaltInstr(),
	}})

	res, err := f.eng.RunDeploy(req)
	require.NoError(t, err)
	require.True(t, res.Ok())

	// The payment/finalize transforms staged against mainBalance, paymentBal
	// and rewardsBal are bare AddInt deltas (mint.Transfer never Writes),
	// so committing res.Effects atop postGenesis exercises the same path
	// that rejected every real deploy before Commit learned to resolve
	// AddInt/AddKeys against the prior committed value.
	newRoot, err := f.eng.ApplyEffect(f.postGenesis, res.Effects)
	require.NoError(t, err)

	tc, err := f.eng.TrackingCopy(newRoot)
	require.NoError(t, err)

	// Payment transfers 1000 motes out of mainBalance into paymentBal;
	// finalize then settles (cP+cS)*ConvRate = (2+2)*1 = 4 motes out of
	// paymentBal into rewardsBal. The unspent remainder sits in paymentBal:
	// this engine never refunds unused payment back to the main purse.
	mainBal, err := tc.GetPurseBalance(f.mainBalance)
	require.NoError(t, err)
	assert.Equal(t, value.NewU512(100_000-1000), mainBal)

	rewardsBal, err := tc.GetPurseBalance(f.rewardsBal)
	require.NoError(t, err)
	assert.Equal(t, value.NewU512(4), rewardsBal)

	paymentBal, err := tc.GetPurseBalance(f.paymentBal)
	require.NoError(t, err)
	assert.Equal(t, value.NewU512(1000-4), paymentBal)

	v, err := tc.Read(sessionKey)
	require.NoError(t, err)
	n, ok := v.AsInt32()
	require.True(t, ok)
	assert.Equal(t, int32(42), n)
}
