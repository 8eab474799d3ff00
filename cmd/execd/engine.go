package main

import (
	"github.com/urfave/cli/v2"

	"github.com/casperlabs/execution-engine/engine"
	"github.com/casperlabs/execution-engine/globalstate"
	"github.com/casperlabs/execution-engine/params"
)

// openEngine wires an EngineState over a LevelDB store rooted at the
// --datadir flag, loading --config if given.
func openEngine(c *cli.Context) (*engine.EngineState, *globalstate.GlobalState, error) {
	store, err := globalstate.OpenLevelDBStore(c.String(dataDirFlag.Name))
	if err != nil {
		return nil, nil, err
	}
	gs, err := globalstate.NewGlobalState(store)
	if err != nil {
		return nil, nil, err
	}
	cfg := params.DefaultEngineConfig()
	if path := c.String(configFlag.Name); path != "" {
		cfg, err = params.LoadEngineConfig(path)
		if err != nil {
			return nil, nil, err
		}
	}
	return engine.New(gs, cfg), gs, nil
}
