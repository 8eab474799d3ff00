// Package main implements execd, the deploy execution orchestrator's CLI
// front-end: run_deploy, commit_genesis and get_bonded_validators as
// standalone commands over a LevelDB-backed global state, mirroring the
// app/flag/subcommand structure of cmd/toskey.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/casperlabs/execution-engine/log"
)

var gitCommit = ""
var gitDate = ""

var app *cli.App

func init() {
	app = cli.NewApp()
	app.Name = "execd"
	app.Usage = "deploy execution orchestrator"
	app.Version = fmt.Sprintf("commit %s date %s", gitCommit, gitDate)
	app.Flags = []cli.Flag{dataDirFlag, configFlag}
	app.Commands = []*cli.Command{
		commandGenesis,
		commandRunDeploy,
		commandBondedValidators,
	}
}

var (
	dataDirFlag = &cli.StringFlag{
		Name:  "datadir",
		Usage: "directory backing the LevelDB global state store",
		Value: "./execd-data",
	}
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "path to a TOML engine config file",
	}
)

func main() {
	if err := app.Run(os.Args); err != nil {
		log.Crit("execd: fatal error", "err", err)
	}
}
