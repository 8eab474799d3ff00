package main

import (
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/casperlabs/execution-engine/key"
)

var rootFlag = &cli.StringFlag{
	Name:     "root",
	Usage:    "hex post-state hash to query",
	Required: true,
}
var posURefFlag = &cli.StringFlag{
	Name:     "pos-uref",
	Usage:    "hex id of the PoS contract's URef",
	Required: true,
}

var commandBondedValidators = &cli.Command{
	Name:   "bonded-validators",
	Usage:  "print the bonded validator set recorded in PoS's installed contract at root",
	Flags:  []cli.Flag{rootFlag, posURefFlag},
	Action: runBondedValidators,
}

func runBondedValidators(c *cli.Context) error {
	eng, _, err := openEngine(c)
	if err != nil {
		return err
	}
	posURef := key.NewURef(key.HexToHash(c.String(posURefFlag.Name)), key.Read)
	validators, err := eng.GetBondedValidators(key.HexToHash(c.String(rootFlag.Name)), key.FromURef(posURef), "execd-cli")
	if err != nil {
		return err
	}

	out := make(map[string]string, len(validators))
	for pk, amount := range validators {
		out[key.Hash(pk).String()] = amount.String()
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
