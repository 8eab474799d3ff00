package value

import "github.com/casperlabs/execution-engine/key"

// Weight is an associated key's voting weight, compared against the
// account's action thresholds to determine authorization.
type Weight uint8

// ActionThresholds gates which operations an authorized-key subset may
// perform: deployment (running a deploy) and key management (editing the
// associated-keys map itself).
type ActionThresholds struct {
	Deployment    Weight
	KeyManagement Weight
}

// PurseID is a URef whose referent holds a U512 balance maintained
// indirectly by the Mint (purse_uref -> balance_key -> U512).
type PurseID struct {
	uref key.URef
}

// NewPurseID wraps a URef as a purse identifier.
func NewPurseID(u key.URef) PurseID { return PurseID{uref: u} }

// Value returns the underlying URef.
func (p PurseID) Value() key.URef { return p.uref }

// Account is the account representation held in global state.
type Account struct {
	Addr             key.Hash
	Nonce            uint64
	NamedKeys        map[string]key.Key
	MainPurse        PurseID
	AssociatedKeys   map[key.PublicKey]Weight
	ActionThresholds ActionThresholds
}

// NewAccount constructs an Account with the given fields, defaulting
// NamedKeys/AssociatedKeys to empty maps if nil is passed.
func NewAccount(addr key.Hash, nonce uint64, namedKeys map[string]key.Key, mainPurse PurseID,
	associatedKeys map[key.PublicKey]Weight, thresholds ActionThresholds) *Account {
	if namedKeys == nil {
		namedKeys = map[string]key.Key{}
	}
	if associatedKeys == nil {
		associatedKeys = map[key.PublicKey]Weight{}
	}
	return &Account{
		Addr:             addr,
		Nonce:            nonce,
		NamedKeys:        namedKeys,
		MainPurse:        mainPurse,
		AssociatedKeys:   associatedKeys,
		ActionThresholds: thresholds,
	}
}

// totalWeight sums the weights of keys, treating any key the account does
// not recognize as unassociated (weight 0, and disqualifying).
func (a *Account) totalWeight(keys key.PublicKeySet) (total int, allAssociated bool) {
	allAssociated = true
	keys.Each(func(pk key.PublicKey) {
		w, ok := a.AssociatedKeys[pk]
		if !ok {
			allAssociated = false
			return
		}
		total += int(w)
	})
	return total, allAssociated
}

// CanAuthorize reports whether keys is non-empty and every key in it is
// associated with the account, per §3's authorization invariant.
func (a *Account) CanAuthorize(keys key.PublicKeySet) bool {
	if keys.Empty() {
		return false
	}
	_, allAssociated := a.totalWeight(keys)
	return allAssociated
}

// CanDeployWith reports whether the combined weight of keys meets the
// account's deployment threshold.
func (a *Account) CanDeployWith(keys key.PublicKeySet) bool {
	total, allAssociated := a.totalWeight(keys)
	if !allAssociated {
		return false
	}
	return total >= int(a.ActionThresholds.Deployment)
}
