package state

import (
	"fmt"
	"math"
	"net/netip"
	"os"
	"path"
	"time"
)

func positiveDuration(name string, d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%w: %s must be positive, got %s", ErrConfig, name, d)
	}
	return nil
}

func probability(name string, p float64) error {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return fmt.Errorf("%w: %s must be within [0, 1], got %v", ErrConfig, name, p)
	}
	return nil
}

func LedgerConfigValidator(cfg *LedgerCfg) error {
	if err := positiveDuration("mana_increase", cfg.ManaIncrease); err != nil {
		return err
	}
	if err := positiveDuration("mana_decrease", cfg.ManaDecrease); err != nil {
		return err
	}
	return positiveDuration("node_active", cfg.NodeActive)
}

func SimulatorConfigValidator(cfg *SimulatorCfg) error {
	if cfg.NodesRoot < 0 {
		return fmt.Errorf("%w: nodes_root must not be negative, got %d", ErrConfig, cfg.NodesRoot)
	}
	if cfg.NodesFlex < 0 {
		return fmt.Errorf("%w: nodes_flex must not be negative, got %d", ErrConfig, cfg.NodesFlex)
	}
	if err := probability("p_sign_in", cfg.PSignIn); err != nil {
		return err
	}
	return probability("p_sign_out", cfg.PSignOut)
}

func RouterConfigValidator(cfg *RouterCfg) error {
	if err := positiveDuration("heartbeat", cfg.Heartbeat); err != nil {
		return err
	}
	if err := positiveDuration("peer_timeout", cfg.PeerTimeout); err != nil {
		return err
	}
	if cfg.PeerTimeout < cfg.Heartbeat {
		return fmt.Errorf("%w: peer_timeout (%s) must not be shorter than heartbeat (%s)", ErrConfig, cfg.PeerTimeout, cfg.Heartbeat)
	}
	return nil
}

func PathValidator(s string) error {
	_, err := os.Stat(path.Dir(s))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return nil
}

func ConfigValidator(cfg *Config) error {
	if err := LedgerConfigValidator(&cfg.Ledger); err != nil {
		return err
	}
	if err := SimulatorConfigValidator(&cfg.Simulator); err != nil {
		return err
	}
	if err := RouterConfigValidator(&cfg.Router); err != nil {
		return err
	}
	if err := positiveDuration("tick_interval", cfg.TickInterval); err != nil {
		return err
	}
	if cfg.Listen != "" {
		if _, err := netip.ParseAddrPort(cfg.Listen); err != nil {
			return fmt.Errorf("%w: listen: %w", ErrConfig, err)
		}
	}
	if cfg.LogPath != "" {
		if err := PathValidator(cfg.LogPath); err != nil {
			return err
		}
	}
	return nil
}
