package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/casperlabs/execution-engine/engine"
	"github.com/casperlabs/execution-engine/key"
	"github.com/casperlabs/execution-engine/log"
	"github.com/casperlabs/execution-engine/params"
	"github.com/casperlabs/execution-engine/systemcontracts"
	"github.com/casperlabs/execution-engine/value"
)

var genesisFileFlag = &cli.StringFlag{
	Name:     "genesis-file",
	Usage:    "path to a JSON commit_genesis input file",
	Required: true,
}

var commandGenesis = &cli.Command{
	Name:   "genesis",
	Usage:  "run commit_genesis against a fresh datadir and print the resulting post-state hash",
	Flags:  []cli.Flag{genesisFileFlag},
	Action: runGenesis,
}

// genesisFile is the on-disk JSON shape for GenesisInputs: hex-encoded
// bytes and addresses, decimal strings for U512 amounts.
type genesisFile struct {
	GenesisAccount  string             `json:"genesis_account"`
	InitialTokens   string             `json:"initial_tokens"`
	MintModuleBytes string             `json:"mint_module_bytes"`
	Validators      []genesisValidator `json:"validators"`
	ProtocolVersion uint64             `json:"protocol_version"`
}

type genesisValidator struct {
	PublicKey string `json:"public_key"`
	Amount    string `json:"amount"`
}

func runGenesis(c *cli.Context) error {
	raw, err := os.ReadFile(c.String(genesisFileFlag.Name))
	if err != nil {
		return err
	}
	var gf genesisFile
	if err := json.Unmarshal(raw, &gf); err != nil {
		return fmt.Errorf("execd: parsing genesis file: %w", err)
	}

	moduleBytes, err := decodeHex(gf.MintModuleBytes)
	if err != nil {
		return fmt.Errorf("execd: mint_module_bytes: %w", err)
	}
	initial, err := decodeU512(gf.InitialTokens)
	if err != nil {
		return fmt.Errorf("execd: initial_tokens: %w", err)
	}

	validators := make([]systemcontracts.ValidatorBond, 0, len(gf.Validators))
	for _, v := range gf.Validators {
		amount, err := decodeU512(v.Amount)
		if err != nil {
			return fmt.Errorf("execd: validator %s amount: %w", v.PublicKey, err)
		}
		validators = append(validators, systemcontracts.ValidatorBond{
			PublicKey: key.PublicKey(key.HexToHash(v.PublicKey)),
			Amount:    amount,
		})
	}

	eng, _, err := openEngine(c)
	if err != nil {
		return err
	}

	result, err := eng.CommitGenesis(engine.GenesisInputs{
		GenesisAccountAddr: key.HexToHash(gf.GenesisAccount),
		InitialTokens:      initial,
		MintModuleBytes:    moduleBytes,
		Validators:         validators,
		ProtocolVersion:    gf.ProtocolVersion,
	})
	if err != nil {
		return err
	}

	log.Info("commit_genesis complete", "post_state_hash", result.PostStateHash.String(), "transforms", len(result.Effects.Transforms))
	fmt.Println(result.PostStateHash.String())
	return nil
}

func decodeHex(s string) ([]byte, error) {
	if len(s) >= 2 && s[0:2] == "0x" {
		s = s[2:]
	}
	if s == "" {
		return nil, nil
	}
	return hex.DecodeString(s)
}

// decodeU512 parses a decimal amount, optionally suffixed with a motes
// denomination ("tokens" or "kmotes"; bare digits are motes).
func decodeU512(s string) (value.U512, error) {
	if s == "" {
		return value.NewU512(0), nil
	}
	digits, mul := s, int64(params.Motes)
	switch {
	case strings.HasSuffix(s, "tokens"):
		digits, mul = strings.TrimSuffix(s, "tokens"), params.Token
	case strings.HasSuffix(s, "kmotes"):
		digits, mul = strings.TrimSuffix(s, "kmotes"), params.KMotes
	}
	n, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return value.U512{}, fmt.Errorf("malformed integer %q", s)
	}
	if mul != params.Motes {
		n = n.Mul(n, big.NewInt(mul))
	}
	return value.U512FromBig(n), nil
}
