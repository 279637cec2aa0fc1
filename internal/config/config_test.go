package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
ethereum:
  http_url: http://localhost:8545
jar:
  address: "0x1111111111111111111111111111111111111111"
  release_address: "0x2222222222222222222222222222222222222222"
  resource_token_address: "0x3333333333333333333333333333333333333333"
  tokens:
    - "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
    - "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
    - "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
engine:
  slippage_tolerance: 0.01
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FileAndDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "feejar-monitor", cfg.App.Name)
	assert.EqualValues(t, 60000, cfg.Engine.TransferGasUnits)
	assert.EqualValues(t, 100000, cfg.Engine.BaseGasUnits)
	assert.Equal(t, "0.01", cfg.Engine.SlippageDecimal().String())
	assert.Equal(t, 12*time.Second, cfg.Ethereum.PollInterval)
	assert.True(t, cfg.Jar.SimulationMode)
	assert.Len(t, cfg.Jar.TokenAddresses(), 2, "case-insensitive duplicates collapse")
	assert.Equal(t, "500000000000", cfg.Ethereum.MaxGasPriceWei().String())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("JAR_API_PORT", "9999")
	t.Setenv("JAR_SIMULATION_MODE", "false")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.API.Port)
	assert.False(t, cfg.Jar.SimulationMode)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(writeConfig(t, sampleYAML))
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing rpc", func(c *Config) { c.Ethereum.HTTPURL = "" }},
		{"bad jar", func(c *Config) { c.Jar.Address = "0x12" }},
		{"bad token", func(c *Config) { c.Jar.Tokens = append(c.Jar.Tokens, "nope") }},
		{"no tokens", func(c *Config) { c.Jar.Tokens = nil }},
		{"zero transfer gas", func(c *Config) { c.Engine.TransferGasUnits = 0 }},
		{"slippage one", func(c *Config) { c.Engine.SlippageTolerance = 1 }},
		{"bad threshold", func(c *Config) { c.Jar.ThresholdOverride = "-5" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestJarConfig_Threshold(t *testing.T) {
	c := JarConfig{ThresholdOverride: "4000000000000000000000"}
	v, err := c.Threshold()
	require.NoError(t, err)
	assert.Equal(t, "4000000000000000000000", v.String())

	c.ThresholdOverride = ""
	v, err = c.Threshold()
	require.NoError(t, err)
	assert.Nil(t, v)
}
