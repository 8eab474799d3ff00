package params

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultEngineConfig(t *testing.T) {
	cfg := DefaultEngineConfig()
	assert.Equal(t, DefaultMaxPayment, cfg.MaxPayment)
	assert.Equal(t, DefaultConvRate, cfg.ConvRate)
	assert.True(t, cfg.PaymentCodeEnabled)
	assert.True(t, cfg.NonceCheckEnabled)
}

func TestLoadEngineConfigOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.toml")
	contents := "maxpayment = 42\nconvrate = 7\npaymentcodeenabled = false\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := LoadEngineConfig(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), cfg.MaxPayment)
	assert.Equal(t, uint64(7), cfg.ConvRate)
	assert.False(t, cfg.PaymentCodeEnabled)
	assert.True(t, cfg.NonceCheckEnabled)
}

func TestLoadEngineConfigMissingFile(t *testing.T) {
	_, err := LoadEngineConfig(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	assert.Error(t, err)
}
