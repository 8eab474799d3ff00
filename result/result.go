package result

import (
	"github.com/casperlabs/execution-engine/key"
	"github.com/casperlabs/execution-engine/transform"
)

// Gas is a unit of metered computational work. Conversion to motes is the
// caller's concern (params.ConvRate), kept out of this package to avoid a
// dependency from result onto params.
type Gas uint64

func (g Gas) Add(other Gas) Gas { return g + other }

// Effects is the per-deploy set of staged operations and their composed
// transforms, the payload every ExecutionResult (successful or not)
// carries.
type Effects struct {
	Ops        map[key.Key]transform.Op
	Transforms map[key.Key]transform.Transform
}

// NewEffects returns an empty Effects set.
func NewEffects() Effects {
	return Effects{
		Ops:        map[key.Key]transform.Op{},
		Transforms: map[key.Key]transform.Transform{},
	}
}

// Merge folds other into e, composing transforms for keys present in both
// and joining their Op records. e is mutated and returned.
func (e Effects) Merge(other Effects) Effects {
	for k, t := range other.Transforms {
		if existing, ok := e.Transforms[k]; ok {
			e.Transforms[k] = transform.Compose(existing, t)
		} else {
			e.Transforms[k] = t
		}
	}
	for k, op := range other.Ops {
		if existing, ok := e.Ops[k]; ok {
			e.Ops[k] = existing.Join(op)
		} else {
			e.Ops[k] = op
		}
	}
	return e
}

// ExecutionResult is the outcome of a deploy, a phase, or the orchestrator's
// final assembly: a set of effects, the gas cost incurred, and an optional
// error. A precondition failure carries empty Effects and a non-nil Error.
type ExecutionResult struct {
	Effects Effects
	Cost    Gas
	Error   error
}

// PreconditionFailure builds an ExecutionResult for a precondition that
// failed before any transforms could be staged.
func PreconditionFailure(err error) ExecutionResult {
	return ExecutionResult{Effects: NewEffects(), Cost: 0, Error: err}
}

// Success builds an ExecutionResult for a phase that completed without
// error.
func Success(effects Effects, cost Gas) ExecutionResult {
	return ExecutionResult{Effects: effects, Cost: cost, Error: nil}
}

// Failed builds an ExecutionResult for a phase that incurred cost before
// failing; its effects are still reported (callers decide whether to keep
// or discard them per the phase's discard-on-failure policy).
func Failed(effects Effects, cost Gas, err error) ExecutionResult {
	return ExecutionResult{Effects: effects, Cost: cost, Error: err}
}

// Ok reports whether the result carries no error.
func (r ExecutionResult) Ok() bool { return r.Error == nil }
