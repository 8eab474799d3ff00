package engine

import (
	"github.com/casperlabs/execution-engine/execution"
	"github.com/casperlabs/execution-engine/key"
	"github.com/casperlabs/execution-engine/params"
	"github.com/casperlabs/execution-engine/result"
	"github.com/casperlabs/execution-engine/systemcontracts"
	"github.com/casperlabs/execution-engine/trackingcopy"
	"github.com/casperlabs/execution-engine/value"
)

// GenesisInputs are the deterministic construction parameters for
// commit_genesis (§4.4).
type GenesisInputs struct {
	GenesisAccountAddr key.Hash
	InitialTokens      value.U512
	MintModuleBytes    []byte
	Validators         []systemcontracts.ValidatorBond
	ProtocolVersion    uint64
}

// GenesisResult is commit_genesis's output.
type GenesisResult struct {
	PostStateHash key.Hash
	Effects       result.Effects
}

// CommitGenesis deterministically constructs the initial transform set
// installing Mint, PoS, the genesis account and its main purse, and commits
// it atop the empty root. Equal inputs always yield an identical
// PostStateHash (§8 genesis determinism), since every address involved is
// derived from a fixed seed rather than from ambient state.
func (e *EngineState) CommitGenesis(inputs GenesisInputs) (*GenesisResult, error) {
	emptyRoot := e.history.EmptyRoot()
	reader, err := e.history.Checkout(emptyRoot)
	if err != nil {
		return nil, err
	}
	tc := trackingcopy.New(reader)

	mint := systemcontracts.NewMint(tc)
	pos := systemcontracts.NewProofOfStake(tc, mint)

	mainPurse, err := mint.CreatePurse("genesis.main-purse."+inputs.GenesisAccountAddr.String(), inputs.InitialTokens)
	if err != nil {
		return nil, err
	}

	mintURef := key.NewURef(key.Seed("genesis.mint.contract"), key.ReadAddWrite)
	tc.Write(key.FromURef(mintURef), value.ContractValue(value.NewContract(inputs.MintModuleBytes, nil, inputs.ProtocolVersion)))

	paymentPurse, err := pos.CreatePaymentPurse()
	if err != nil {
		return nil, err
	}
	rewardsPurse, err := pos.CreateRewardsPurse()
	if err != nil {
		return nil, err
	}
	paymentBalanceKey, err := mint.BalanceKey(mintURef, paymentPurse)
	if err != nil {
		return nil, err
	}
	rewardsBalanceKey, err := mint.BalanceKey(mintURef, rewardsPurse)
	if err != nil {
		return nil, err
	}
	finalizeModule := systemcontracts.BuildFinalizeModule(paymentBalanceKey, rewardsBalanceKey)

	posNamedKeys := systemcontracts.BondedNamedKeys(inputs.Validators)
	posNamedKeys[params.PoSPaymentPurse] = key.FromURef(paymentPurse)
	posNamedKeys[params.PoSRewardsPurse] = key.FromURef(rewardsPurse)

	posURef := key.NewURef(key.Seed("genesis.pos.contract"), key.ReadAddWrite)
	tc.Write(key.FromURef(posURef), value.ContractValue(value.NewContract(execution.Encode(finalizeModule), posNamedKeys, inputs.ProtocolVersion)))

	genesisNamedKeys := map[string]key.Key{
		params.MintName: key.FromURef(mintURef),
		params.PoSName:  key.FromURef(posURef),
	}
	associated := map[key.PublicKey]value.Weight{
		key.PublicKey(inputs.GenesisAccountAddr): 1,
	}
	account := value.NewAccount(inputs.GenesisAccountAddr, 0, genesisNamedKeys, value.NewPurseID(mainPurse),
		associated, value.ActionThresholds{Deployment: 1, KeyManagement: 1})
	tc.Write(key.Account(inputs.GenesisAccountAddr), value.AccountValue(account))

	effects := tc.Effect()
	postStateHash, err := e.history.Commit(emptyRoot, effects)
	if err != nil {
		return nil, err
	}
	return &GenesisResult{PostStateHash: postStateHash, Effects: effects}, nil
}
