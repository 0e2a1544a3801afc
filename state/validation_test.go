package state

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfigValidator_Default(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, ConfigValidator(&cfg))
	cfg = MockCfg()
	assert.NoError(t, ConfigValidator(&cfg))
}

func TestLedgerConfigValidator_Invalid(t *testing.T) {
	cfg := LedgerCfg{ManaIncrease: time.Second, ManaDecrease: time.Second, NodeActive: -time.Second}
	err := LedgerConfigValidator(&cfg)
	assert.ErrorIs(t, err, ErrConfig)
	assert.ErrorContains(t, err, "node_active must be positive")
}

func TestSimulatorConfigValidator_Invalid(t *testing.T) {
	assert.ErrorIs(t, SimulatorConfigValidator(&SimulatorCfg{NodesRoot: -1}), ErrConfig)
	assert.ErrorIs(t, SimulatorConfigValidator(&SimulatorCfg{NodesFlex: -1}), ErrConfig)
	assert.ErrorIs(t, SimulatorConfigValidator(&SimulatorCfg{PSignIn: 1.5}), ErrConfig)
	assert.ErrorIs(t, SimulatorConfigValidator(&SimulatorCfg{PSignOut: -0.1}), ErrConfig)
	assert.ErrorIs(t, SimulatorConfigValidator(&SimulatorCfg{PSignOut: math.NaN()}), ErrConfig)
	assert.NoError(t, SimulatorConfigValidator(&SimulatorCfg{PSignIn: 1, PSignOut: 0}))
}

func TestRouterConfigValidator_Invalid(t *testing.T) {
	err := RouterConfigValidator(&RouterCfg{Heartbeat: time.Second, PeerTimeout: time.Millisecond})
	assert.ErrorIs(t, err, ErrConfig)
	assert.ErrorContains(t, err, "must not be shorter than heartbeat")
}

func TestConfigValidator_Listen(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Listen = "localhost"
	assert.ErrorIs(t, ConfigValidator(&cfg), ErrConfig)
	cfg.Listen = ""
	assert.NoError(t, ConfigValidator(&cfg))
}

func TestConfigValidator_LogPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogPath = filepath.Join(t.TempDir(), "manasim.log")
	assert.NoError(t, ConfigValidator(&cfg))
	cfg.LogPath = filepath.Join(t.TempDir(), "missing", "dir", "manasim.log")
	assert.ErrorIs(t, ConfigValidator(&cfg), ErrConfig)
}
