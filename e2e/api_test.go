//go:build e2e

package e2e

import (
	"net/http"
	"testing"
	"time"

	"github.com/encodeous/manasim/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndEarn(t *testing.T) {
	cfg := state.MockCfg()
	cfg.TickInterval = 100 * time.Millisecond
	cfg.Ledger.ManaIncrease = 100 * time.Millisecond
	n := StartNode(t, cfg)

	secret := state.GenerateSecret()
	require.Equal(t, http.StatusAccepted, n.Register(secret))
	id, _ := secret.ID().MarshalText()

	assert.Eventually(t, func() bool {
		var alive struct {
			Mana state.Mana `json:"mana"`
		}
		return n.Get("/v1/alive/"+string(id), &alive) == http.StatusOK && alive.Mana >= 3
	}, 30*time.Second, 200*time.Millisecond)

	var status state.NetworkStatus
	require.Equal(t, http.StatusOK, n.Get("/v1/stats", &status))
	assert.Contains(t, status.Online, secret.ID())
}

func TestDefaultPopulation(t *testing.T) {
	cfg := state.DefaultConfig()
	cfg.TickInterval = 100 * time.Millisecond
	n := StartNode(t, cfg)

	assert.Eventually(t, func() bool {
		var status state.NetworkStatus
		return n.Get("/v1/stats", &status) == http.StatusOK && len(status.Online) >= cfg.Simulator.NodesRoot
	}, 30*time.Second, 200*time.Millisecond)
	assert.Equal(t, http.StatusOK, n.Get("/metrics", nil))
}

func TestSimulateCommand(t *testing.T) {
	cfg := state.DefaultConfig()
	cfg.Simulator.Seed = 7
	out := RunCommand(t, cfg, "simulate", "--ticks", "500")
	assert.Contains(t, out, "MANA")
	assert.Contains(t, out, "simulated 8m20s")
}
