// Package result defines the ExecutionResult value the orchestrator
// produces for every deploy, the Effects/Gas types it carries, and the
// error taxonomy phases report through it. It is a leaf package so both
// execution (the metered executor) and engine (the orchestrator) can
// depend on it without an import cycle.
package result

import "fmt"

// Phase tags an ExecutionError to the phase of run_deploy it occurred in.
type Phase uint8

const (
	PhasePayment Phase = iota
	PhaseSession
	PhaseFinalize
)

func (p Phase) String() string {
	switch p {
	case PhasePayment:
		return "payment"
	case PhaseSession:
		return "session"
	case PhaseFinalize:
		return "finalize"
	default:
		return "unknown"
	}
}

// AuthorizationError covers a missing Account key, an account that does not
// exist, an empty or unassociated authorized-key set, or a deployment
// threshold not met.
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string { return "authorization: " + e.Reason }

// InvalidNonceError is returned when the deploy's nonce does not equal
// account.nonce + 1.
type InvalidNonceError struct {
	Expected uint64
	Found    uint64
}

func (e *InvalidNonceError) Error() string {
	return fmt.Sprintf("invalid nonce: expected %d, found %d", e.Expected, e.Found)
}

// InsufficientPaymentError signals the account's main purse balance is
// below MAX_PAYMENT.
type InsufficientPaymentError struct{}

func (e *InsufficientPaymentError) Error() string { return "insufficient payment" }

// WasmPreprocessingError wraps a preprocessor failure on session or payment
// code bytes.
type WasmPreprocessingError struct {
	Cause error
}

func (e *WasmPreprocessingError) Error() string { return "wasm preprocessing: " + e.Cause.Error() }
func (e *WasmPreprocessingError) Unwrap() error  { return e.Cause }

// MissingSystemContractError signals a named system contract (mint, pos)
// could not be resolved from the account's named keys.
type MissingSystemContractError struct {
	Name string
}

func (e *MissingSystemContractError) Error() string {
	return fmt.Sprintf("missing system contract: %s", e.Name)
}

// DeployError is a generic deploy invariant violation, e.g. a well-known
// purse or named key that should exist does not.
type DeployError struct {
	Reason string
}

func (e *DeployError) Error() string { return "deploy: " + e.Reason }

// StorageError wraps an underlying history/state I/O failure that is not a
// missing root (those surface as RootNotFound, the engine package's sole
// outer error).
type StorageError struct {
	Cause error
}

func (e *StorageError) Error() string { return "storage: " + e.Cause.Error() }
func (e *StorageError) Unwrap() error  { return e.Cause }

// ExecutionError covers gas-limit exhaustion, traps, and host-interface
// errors raised by the executor, tagged with the phase it occurred in.
type ExecutionError struct {
	Phase Phase
	Cause error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution (%s): %v", e.Phase, e.Cause)
}
func (e *ExecutionError) Unwrap() error { return e.Cause }

// FinalizeError wraps a failure of the PoS finalize_payment entry point.
type FinalizeError struct {
	Cause error
}

func (e *FinalizeError) Error() string { return "finalize: " + e.Cause.Error() }
func (e *FinalizeError) Unwrap() error  { return e.Cause }

// GasLimitError is the specific ExecutionError cause raised when cumulative
// phase cost exceeds the phase's gas limit.
type GasLimitError struct{}

func (e *GasLimitError) Error() string { return "gas limit exceeded" }
