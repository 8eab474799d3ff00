// Package systemcontracts provides Mint and Proof-of-Stake views over a
// TrackingCopy: purse creation and balance resolution, bonded-validator
// bookkeeping, and the finalize-payment settlement module. Grounded on the
// slot-accessor style of staking.state (stakingSlot/delegationSlot) and the
// stake/delegate/reward accounting of staking.actions, adapted from
// StateDB storage slots to Key/Value entries in a TrackingCopy.
package systemcontracts

import (
	"math/big"

	"github.com/casperlabs/execution-engine/execution"
	"github.com/casperlabs/execution-engine/key"
	"github.com/casperlabs/execution-engine/trackingcopy"
	"github.com/casperlabs/execution-engine/value"
)

// Mint owns the purse_uref -> balance_key -> U512 mapping, installed at
// genesis and consulted on every deploy's payment path.
type Mint struct {
	tc *trackingcopy.TrackingCopy
}

// NewMint constructs a Mint view over tc.
func NewMint(tc *trackingcopy.TrackingCopy) *Mint { return &Mint{tc: tc} }

// CreatePurse mints a new purse seeded deterministically by seed (so two
// runs with identical inputs produce identical URef/balance-key addresses,
// required for genesis determinism), with an initial balance.
func (m *Mint) CreatePurse(seed string, initial value.U512) (key.URef, error) {
	id := key.Seed(seed)
	purseURef := key.NewURef(id, key.ReadAddWrite)
	balanceKey := key.HashKey(key.Seed(seed + ".balance"))
	m.tc.Write(balanceKey, value.U512Value(initial))
	m.tc.BindPurseBalanceKey(purseURef, balanceKey)
	return purseURef, nil
}

// BalanceKey resolves purseURef's balance key through the local mapping.
func (m *Mint) BalanceKey(mintURef key.URef, purseURef key.URef) (key.Key, error) {
	return m.tc.GetPurseBalanceKey(mintURef, purseURef)
}

// Balance reads the U512 balance of purseURef.
func (m *Mint) Balance(mintURef key.URef, purseURef key.URef) (value.U512, error) {
	balanceKey, err := m.BalanceKey(mintURef, purseURef)
	if err != nil {
		return value.U512{}, err
	}
	return m.tc.GetPurseBalance(balanceKey)
}

// Transfer moves amount directly between two resolved balance keys,
// bypassing module execution. Used by the forced-transfer policy (the
// user's payment code cannot be trusted to settle its own debt).
func (m *Mint) Transfer(fromBalanceKey, toBalanceKey key.Key, amount value.U512) error {
	delta := amount.Big()
	if err := m.tc.Add(fromBalanceKey, new(big.Int).Neg(delta)); err != nil {
		return err
	}
	return m.tc.Add(toBalanceKey, delta)
}

// BuildFinalizeModule constructs the module installed once, at genesis, as
// PoS's finalize_payment entry point: a transfer from the payment purse's
// balance key to the rewards purse's balance key whose amount is supplied
// as the call's runtime argument (the settled motes figure, which varies
// per deploy; the purses themselves are fixed for the contract's lifetime).
func BuildFinalizeModule(paymentBalanceKey, rewardsBalanceKey key.Key) *execution.Module {
	return &execution.Module{
		Instructions: []execution.Instruction{
			execution.TransferArgInstr(paymentBalanceKey, rewardsBalanceKey),
			execution.HaltInstr(),
		},
	}
}
