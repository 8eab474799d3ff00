package globalstate

import (
	"github.com/casperlabs/execution-engine/key"
	"github.com/casperlabs/execution-engine/result"
	"github.com/casperlabs/execution-engine/value"
)

// Hash is a root hash: a 32-byte Blake2b digest identifying an immutable
// global-state snapshot.
type Hash = key.Hash

// Effects is the transform/op set a commit applies atop a root.
type Effects = result.Effects

// StateReader is a read-only view of a global-state snapshot checked out at
// a particular root.
type StateReader interface {
	// Read returns the value at k, or ok=false if k has no entry.
	Read(k key.Key) (v value.Value, ok bool, err error)
}

// History is the versioned global-state handle: checkout a historical
// snapshot by root, or commit a new set of transforms atop one to produce
// the next root. Implementations must be safe for concurrent use:
// EngineState adds no locking of its own (GlobalState guards itself with a
// mutex).
type History interface {
	Checkout(root Hash) (StateReader, error)
	Commit(root Hash, effects Effects) (Hash, error)
	EmptyRoot() Hash
}
