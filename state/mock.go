package state

import "time"

// MockCfg returns a configuration with the reference timings (1s increase,
// 60s active window, 168s decrease) and no simulated nodes, so that the only
// nodes in the network are the ones a test registers.
func MockCfg() Config {
	cfg := DefaultConfig()
	cfg.Ledger = LedgerCfg{
		ManaIncrease: 1000 * time.Millisecond,
		ManaDecrease: 168000 * time.Millisecond,
		NodeActive:   60000 * time.Millisecond,
	}
	cfg.Simulator.NodesRoot = 0
	cfg.Simulator.NodesFlex = 0
	cfg.Simulator.Seed = 1
	cfg.Listen = ""
	return cfg
}

// MockTime returns the instant that lies ms milliseconds after the unix epoch.
func MockTime(ms int64) time.Time {
	return time.UnixMilli(ms)
}
