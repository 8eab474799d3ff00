package engine

import (
	"fmt"

	"github.com/casperlabs/execution-engine/globalstate"
)

// RootNotFoundError is run_deploy's sole outer error: the caller supplied a
// prestate hash absent from history. Re-exported from globalstate so
// callers of this package never need to import it directly.
type RootNotFoundError = globalstate.RootNotFoundError

// BondedValidatorsError is the get_bonded_validators-specific taxonomy,
// distinguishing an unknown root from a root whose PoS key does not
// resolve to an installed contract.
type BondedValidatorsError struct {
	Reason string
}

func (e *BondedValidatorsError) Error() string {
	return fmt.Sprintf("bonded validators: %s", e.Reason)
}

// PostStateHashNotFound and PoSNotFound are the two concrete reasons a
// bonded-validators query can fail, matching the upstream
// GetBondedValidatorsError taxonomy.
func PostStateHashNotFound(root globalstate.Hash) *BondedValidatorsError {
	return &BondedValidatorsError{Reason: fmt.Sprintf("post state hash not found: %s", root)}
}

func PoSNotFound() *BondedValidatorsError {
	return &BondedValidatorsError{Reason: "pos contract not found at given key"}
}
