package systemcontracts

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/casperlabs/execution-engine/key"
	"github.com/casperlabs/execution-engine/params"
	"github.com/casperlabs/execution-engine/trackingcopy"
	"github.com/casperlabs/execution-engine/value"
)

// ProofOfStake owns the payment purse, the rewards purse, and the bonded
// validator set recorded in its installed contract's named keys under the
// convention `v_<hex_pub>_<amount>`.
type ProofOfStake struct {
	tc   *trackingcopy.TrackingCopy
	mint *Mint
}

// NewProofOfStake constructs a ProofOfStake view backed by mint for purse
// bookkeeping.
func NewProofOfStake(tc *trackingcopy.TrackingCopy, mint *Mint) *ProofOfStake {
	return &ProofOfStake{tc: tc, mint: mint}
}

// ValidatorBond is a single genesis bonding entry.
type ValidatorBond struct {
	PublicKey key.PublicKey
	Amount    value.U512
}

// bondName renders the `v_<hex_pub>_<amount>` convention name for a bond.
func bondName(pk key.PublicKey, amount value.U512) string {
	return fmt.Sprintf("v_%s_%s", key.Hash(pk).String()[2:], amount.String())
}

// BondedNamedKeys renders validators into the named-keys convention PoS's
// installed contract stores, each entry pointing at the validator's own
// public-key hash as an inert referent (only the name encodes the bond).
func BondedNamedKeys(validators []ValidatorBond) map[string]key.Key {
	m := make(map[string]key.Key, len(validators))
	for _, v := range validators {
		m[bondName(v.PublicKey, v.Amount)] = key.HashKey(key.Hash(v.PublicKey))
	}
	return m
}

// ErrMalformedBondName names the failure of a named key to parse as the
// v_<hex>_<amount> convention. ParseBondedValidators never returns it: such
// entries are silently skipped per §4.5, not surfaced to the caller.
var ErrMalformedBondName = fmt.Errorf("systemcontracts: malformed bond name")

// ParseBondedValidators iterates contract.NamedKeys filtering entries
// matching v_<hex_pub>_<amount>, returning a map of public key to bonded
// amount. Duplicate public keys: later entry (map iteration order is
// unspecified in Go, so callers requiring a specific last-wins tie-break
// across duplicates should pre-sort their validator list before genesis).
// Malformed entries are skipped.
func ParseBondedValidators(contract *value.Contract) map[key.PublicKey]value.U512 {
	out := map[key.PublicKey]value.U512{}
	for name := range contract.NamedKeys {
		if !strings.HasPrefix(name, "v_") {
			continue
		}
		rest := strings.TrimPrefix(name, "v_")
		parts := strings.SplitN(rest, "_", 2)
		if len(parts) != 2 {
			continue
		}
		hexPub, amountStr := parts[0], parts[1]
		pkHash := key.HexToHash("0x" + hexPub)
		amount, ok := new(big.Int).SetString(amountStr, 10)
		if !ok {
			continue
		}
		out[key.PublicKey(pkHash)] = value.U512FromBig(amount)
	}
	return out
}

// CreatePaymentPurse mints the zero-balance purse payment code escrows
// gas fees into.
func (p *ProofOfStake) CreatePaymentPurse() (key.URef, error) {
	return p.mint.CreatePurse("systemcontracts.pos.payment-purse", value.NewU512(0))
}

// CreateRewardsPurse mints the zero-balance purse finalize settles fees
// into.
func (p *ProofOfStake) CreateRewardsPurse() (key.URef, error) {
	return p.mint.CreatePurse("systemcontracts.pos.rewards-purse", value.NewU512(0))
}

// PaymentPurseURef and RewardsPurseURef look up PoS's two well-known purses
// from its installed contract's named keys.
func PaymentPurseURef(contract *value.Contract) (key.URef, error) {
	k, ok := contract.NamedKeys[params.PoSPaymentPurse]
	if !ok {
		return key.URef{}, fmt.Errorf("systemcontracts: %s not found in pos named keys", params.PoSPaymentPurse)
	}
	u, ok := k.AsURef()
	if !ok {
		return key.URef{}, fmt.Errorf("systemcontracts: %s is not a uref", params.PoSPaymentPurse)
	}
	return u, nil
}

func RewardsPurseURef(contract *value.Contract) (key.URef, error) {
	k, ok := contract.NamedKeys[params.PoSRewardsPurse]
	if !ok {
		return key.URef{}, fmt.Errorf("systemcontracts: %s not found in pos named keys", params.PoSRewardsPurse)
	}
	u, ok := k.AsURef()
	if !ok {
		return key.URef{}, fmt.Errorf("systemcontracts: %s is not a uref", params.PoSRewardsPurse)
	}
	return u, nil
}
