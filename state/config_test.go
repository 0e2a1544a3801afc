package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig_Overrides(t *testing.T) {
	input := `
ledger:
  mana_increase: 2s
  mana_decrease: 1h
  node_active: 30s
simulator:
  nodes_root: 1
  nodes_flex: 3
  p_sign_in: 0.5
  p_sign_out: 0.25
  seed: 42
tick_interval: 250ms
listen: 0.0.0.0:9000
`
	cfg, err := ParseConfig([]byte(input))
	require.NoError(t, err)
	assert.Equal(t, LedgerCfg{
		ManaIncrease: 2 * time.Second,
		ManaDecrease: time.Hour,
		NodeActive:   30 * time.Second,
	}, cfg.Ledger)
	assert.Equal(t, SimulatorCfg{NodesRoot: 1, NodesFlex: 3, PSignIn: 0.5, PSignOut: 0.25, Seed: 42}, cfg.Simulator)
	assert.Equal(t, 250*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, "0.0.0.0:9000", cfg.Listen)
	// untouched sections keep their defaults
	assert.Equal(t, DefaultConfig().Router, cfg.Router)
}

func TestParseConfig_UnknownField(t *testing.T) {
	_, err := ParseConfig([]byte("ledger:\n  mana_increse: 1s\n"))
	assert.Error(t, err)
}

func TestParseConfig_Invalid(t *testing.T) {
	_, err := ParseConfig([]byte("ledger:\n  mana_increase: 0s\n"))
	assert.ErrorIs(t, err, ErrConfig)
	assert.ErrorContains(t, err, "mana_increase must be positive")
}

func TestConfig_MarshalRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Simulator.Seed = 7
	data, err := cfg.Marshal()
	require.NoError(t, err)
	parsed, err := ParseConfig(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, *parsed)
}

func TestReadConfig_Missing(t *testing.T) {
	cfg, err := ReadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), *cfg)
}

func TestReadConfig_File(t *testing.T) {
	p := filepath.Join(t.TempDir(), "manasim.yaml")
	require.NoError(t, os.WriteFile(p, []byte("simulator:\n  nodes_flex: 2\n"), 0600))
	cfg, err := ReadConfig(p)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Simulator.NodesFlex)
	assert.Equal(t, DefaultNodesRoot, cfg.Simulator.NodesRoot)
}
