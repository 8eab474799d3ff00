package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/casperlabs/execution-engine/engine"
	"github.com/casperlabs/execution-engine/key"
	"github.com/casperlabs/execution-engine/log"
	"github.com/casperlabs/execution-engine/result"
)

var deployFileFlag = &cli.StringFlag{
	Name:     "deploy-file",
	Usage:    "path to a JSON run_deploy input file",
	Required: true,
}
var prestateFlag = &cli.StringFlag{
	Name:     "prestate",
	Usage:    "hex post-state hash to run the deploy against",
	Required: true,
}

var commandRunDeploy = &cli.Command{
	Name:   "run-deploy",
	Usage:  "run a single deploy against prestate and print its ExecutionResult as JSON",
	Flags:  []cli.Flag{deployFileFlag, prestateFlag},
	Action: runDeploy,
}

// deployFile is the on-disk JSON shape for DeployRequest.
type deployFile struct {
	Address        string   `json:"address"`
	AuthorizedKeys []string `json:"authorized_keys"`
	Nonce          uint64   `json:"nonce"`
	Blocktime      uint64   `json:"blocktime"`
	GasLimit       uint64   `json:"gas_limit"`
	ProtocolVersion uint64  `json:"protocol_version"`
	SessionCode    string   `json:"session_code"`
	SessionArgs    []string `json:"session_args"`
	PaymentCode    string   `json:"payment_code"`
	PaymentArgs    []string `json:"payment_args"`
	CorrelationID  string   `json:"correlation_id"`
}

type deployResultView struct {
	Cost       uint64            `json:"cost"`
	Error      string            `json:"error,omitempty"`
	Transforms map[string]string `json:"transforms"`
}

func runDeploy(c *cli.Context) error {
	raw, err := os.ReadFile(c.String(deployFileFlag.Name))
	if err != nil {
		return err
	}
	var df deployFile
	if err := json.Unmarshal(raw, &df); err != nil {
		return fmt.Errorf("execd: parsing deploy file: %w", err)
	}

	sessionCode, err := decodeHex(df.SessionCode)
	if err != nil {
		return fmt.Errorf("execd: session_code: %w", err)
	}
	paymentCode, err := decodeHex(df.PaymentCode)
	if err != nil {
		return fmt.Errorf("execd: payment_code: %w", err)
	}
	sessionArgs, err := decodeHexList(df.SessionArgs)
	if err != nil {
		return fmt.Errorf("execd: session_args: %w", err)
	}
	paymentArgs, err := decodeHexList(df.PaymentArgs)
	if err != nil {
		return fmt.Errorf("execd: payment_args: %w", err)
	}

	keys := make([]key.PublicKey, 0, len(df.AuthorizedKeys))
	for _, k := range df.AuthorizedKeys {
		keys = append(keys, key.PublicKey(key.HexToHash(k)))
	}

	eng, _, err := openEngine(c)
	if err != nil {
		return err
	}

	req := engine.DeployRequest{
		SessionCode:     sessionCode,
		SessionArgs:     sessionArgs,
		PaymentCode:     paymentCode,
		PaymentArgs:     paymentArgs,
		Address:         key.Account(key.HexToHash(df.Address)),
		AuthorizedKeys:  key.NewPublicKeySet(keys...),
		Blocktime:       df.Blocktime,
		Nonce:           df.Nonce,
		PrestateHash:    key.HexToHash(c.String(prestateFlag.Name)),
		GasLimit:        result.Gas(df.GasLimit),
		ProtocolVersion: df.ProtocolVersion,
		CorrelationID:   df.CorrelationID,
	}
	res, err := eng.RunDeploy(req)
	if err != nil {
		log.Error("run_deploy: unknown prestate", "err", err)
		return err
	}

	view := deployResultView{Cost: uint64(res.Cost), Transforms: map[string]string{}}
	if res.Error != nil {
		view.Error = res.Error.Error()
	}
	for k, t := range res.Effects.Transforms {
		view.Transforms[k.String()] = t.String()
	}
	out, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func decodeHexList(ss []string) ([][]byte, error) {
	out := make([][]byte, 0, len(ss))
	for _, s := range ss {
		b, err := decodeHex(s)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}
