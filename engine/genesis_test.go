package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casperlabs/execution-engine/globalstate"
	"github.com/casperlabs/execution-engine/key"
	"github.com/casperlabs/execution-engine/params"
	"github.com/casperlabs/execution-engine/systemcontracts"
	"github.com/casperlabs/execution-engine/value"
)

func newTestHistory(t *testing.T) globalstate.History {
	store, err := globalstate.OpenMemLevelDBStore()
	require.NoError(t, err)
	gs, err := globalstate.NewGlobalState(store)
	require.NoError(t, err)
	return gs
}

func testGenesisInputs() GenesisInputs {
	return GenesisInputs{
		GenesisAccountAddr: key.Seed("genesis-account"),
		InitialTokens:      value.NewU512(1_000_000),
		MintModuleBytes:    []byte("mint-module-placeholder"),
		Validators: []systemcontracts.ValidatorBond{
			{PublicKey: key.PublicKey(key.Seed("validator-1")), Amount: value.NewU512(5000)},
		},
		ProtocolVersion: 1,
	}
}

func TestCommitGenesisInstallsAccountAndSystemContracts(t *testing.T) {
	eng := New(newTestHistory(t), nil)
	result, err := eng.CommitGenesis(testGenesisInputs())
	require.NoError(t, err)
	assert.False(t, result.PostStateHash.IsZero())

	tc, err := eng.TrackingCopy(result.PostStateHash)
	require.NoError(t, err)

	acc, err := tc.GetAccount(key.Seed("genesis-account"))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), acc.Nonce)
	assert.Contains(t, acc.NamedKeys, params.MintName)
	assert.Contains(t, acc.NamedKeys, params.PoSName)

	mintURef, _ := acc.NamedKeys[params.MintName].AsURef()
	mainBal, err := systemcontracts.NewMint(tc).Balance(mintURef, acc.MainPurse.Value())
	require.NoError(t, err)
	assert.Equal(t, value.NewU512(1_000_000), mainBal)
}

func TestCommitGenesisIsDeterministic(t *testing.T) {
	engA := New(newTestHistory(t), nil)
	engB := New(newTestHistory(t), nil)
	inputs := testGenesisInputs()

	resA, err := engA.CommitGenesis(inputs)
	require.NoError(t, err)
	resB, err := engB.CommitGenesis(inputs)
	require.NoError(t, err)
	assert.Equal(t, resA.PostStateHash, resB.PostStateHash)
}
