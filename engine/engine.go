// Package engine drives the deploy execution orchestrator: run_deploy
// (precondition validation, the three-phase payment/session/finalize
// pipeline, the forced-transfer policy), commit_genesis, apply_effect, and
// the bonded-validators query. It owns the single History handle and is
// cheap to clone across goroutines, matching the upstream engine's
// mutex-guarded state-handle model described for core.StateProcessor.
package engine

import (
	"github.com/casperlabs/execution-engine/execution"
	"github.com/casperlabs/execution-engine/globalstate"
	"github.com/casperlabs/execution-engine/key"
	"github.com/casperlabs/execution-engine/params"
	"github.com/casperlabs/execution-engine/result"
	"github.com/casperlabs/execution-engine/trackingcopy"
)

// EngineState is the orchestrator's handle: a History (behind its own
// internal mutex), engine config, and the Executor/Preprocessor pair every
// deploy drives. Safe to share across goroutines; a single run_deploy call
// is itself single-threaded cooperative (§5).
type EngineState struct {
	history      globalstate.History
	config       *params.EngineConfig
	executor     execution.Executor
	preprocessor execution.Preprocessor
}

// New constructs an EngineState. A nil config defaults via
// params.DefaultEngineConfig.
func New(history globalstate.History, config *params.EngineConfig) *EngineState {
	if config == nil {
		config = params.DefaultEngineConfig()
	}
	return &EngineState{
		history:      history,
		config:       config,
		executor:     execution.NewMeteredExecutor(),
		preprocessor: execution.ScriptPreprocessor{},
	}
}

// TrackingCopy returns a fresh overlay checked out at hash, for read-only
// queries outside of a deploy.
func (e *EngineState) TrackingCopy(hash key.Hash) (*trackingcopy.TrackingCopy, error) {
	reader, err := e.history.Checkout(hash)
	if err != nil {
		return nil, err
	}
	return trackingcopy.New(reader), nil
}

// ApplyEffect commits effects atop prestate, returning the new root.
func (e *EngineState) ApplyEffect(prestate key.Hash, effects result.Effects) (key.Hash, error) {
	return e.history.Commit(prestate, effects)
}
