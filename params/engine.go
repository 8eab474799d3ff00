package params

import (
	"bufio"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/naoina/toml"
)

// Engine economic and feature-toggle constants. MaxPayment and ConvRate are
// placeholder economic parameters per the upstream design notes and are
// deliberately overridable via EngineConfig rather than baked in as untyped
// consts.
const (
	DefaultMaxPayment uint64 = 10_000_000
	DefaultConvRate   uint64 = 10

	MintName          = "mint"
	PoSName           = "pos"
	PoSPaymentPurse   = "pos_payment_purse"
	PoSRewardsPurse   = "pos_rewards_purse"
)

// EngineConfig holds the orchestrator's tunables, loaded from a TOML file on
// the host CLI or defaulted.
type EngineConfig struct {
	// MaxPayment is the minimum main-purse balance required to attempt a
	// deploy and the flat amount moved by a forced transfer, in motes.
	MaxPayment uint64
	// ConvRate converts gas to motes: motes = gas * ConvRate.
	ConvRate uint64
	// PaymentCodeEnabled toggles the payment/finalize phases. When false,
	// run_deploy executes only the session phase with the full gas limit.
	PaymentCodeEnabled bool
	// NonceCheckEnabled gates the nonce precondition behind a feature flag,
	// per the upstream note that nonce handling is scheduled for removal.
	NonceCheckEnabled bool
}

// DefaultEngineConfig returns the engine's out-of-the-box tunables.
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		MaxPayment:         DefaultMaxPayment,
		ConvRate:           DefaultConvRate,
		PaymentCodeEnabled: true,
		NonceCheckEnabled:  true,
	}
}

// tomlSettings mirrors the go-ethereum node config convention: normalize
// Go-style exported field names down to lowercase TOML keys, and reject
// unknown keys loudly rather than silently ignoring typos.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return strings.ToLower(key)
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return strings.ToLower(field)
	},
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field '%s' is not defined in %s", field, rt.String())
	},
}

// LoadEngineConfig reads a TOML file at path atop DefaultEngineConfig,
// letting the file override only the fields it sets.
func LoadEngineConfig(path string) (*EngineConfig, error) {
	cfg := DefaultEngineConfig()
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
