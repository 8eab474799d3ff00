package value

import "github.com/casperlabs/execution-engine/key"

// Contract is a stored, callable unit of code together with the named keys
// it closed over at the point it was installed (the `store_function`
// convention: NamedKeys captures URefs the contract is allowed to reach).
type Contract struct {
	ModuleBytes     []byte
	NamedKeys       map[string]key.Key
	ProtocolVersion uint64
}

// NewContract constructs a Contract, defaulting NamedKeys to an empty map if
// nil is passed.
func NewContract(moduleBytes []byte, namedKeys map[string]key.Key, protocolVersion uint64) *Contract {
	if namedKeys == nil {
		namedKeys = map[string]key.Key{}
	}
	return &Contract{
		ModuleBytes:     moduleBytes,
		NamedKeys:       namedKeys,
		ProtocolVersion: protocolVersion,
	}
}
