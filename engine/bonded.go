package engine

import (
	"github.com/casperlabs/execution-engine/key"
	"github.com/casperlabs/execution-engine/systemcontracts"
	"github.com/casperlabs/execution-engine/value"
)

// GetBondedValidators performs the read-only derivation described in §4.5:
// checkout root, read the PoS contract at posKey, and parse its bonded
// validator set from its named keys. correlationID is accepted for parity
// with the upstream query signature and threaded into log lines by the
// host layer; this method does no logging of its own.
func (e *EngineState) GetBondedValidators(root key.Hash, posKey key.Key, correlationID string) (map[key.PublicKey]value.U512, error) {
	_ = correlationID
	reader, err := e.history.Checkout(root)
	if err != nil {
		if rnf, ok := err.(*RootNotFoundError); ok {
			return nil, PostStateHashNotFound(rnf.Root)
		}
		return nil, err
	}
	v, ok, err := reader.Read(posKey.Normalize())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, PoSNotFound()
	}
	contract, ok := v.AsContract()
	if !ok {
		return nil, PoSNotFound()
	}
	return systemcontracts.ParseBondedValidators(contract), nil
}
