package state

import (
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

// LedgerCfg configures the accrual/decay policy of the trust ledger
type LedgerCfg struct {
	ManaIncrease time.Duration `yaml:"mana_increase"` // an active node gains one mana per window
	ManaDecrease time.Duration `yaml:"mana_decrease"` // an inactive node loses one mana per window
	NodeActive   time.Duration `yaml:"node_active"`   // how long a node stays active after a registration or liveness refresh
}

// SimulatorCfg configures the simulated population
type SimulatorCfg struct {
	NodesRoot int     `yaml:"nodes_root"`     // nodes that are always online
	NodesFlex int     `yaml:"nodes_flex"`     // nodes that come and go
	PSignIn   float64 `yaml:"p_sign_in"`      // probability for an offline flex node to go online in a tick
	PSignOut  float64 `yaml:"p_sign_out"`     // probability for an online flex node to go offline in a tick
	Seed      uint64  `yaml:"seed,omitempty"` // if not zero, the simulation is reproducible
}

// RouterCfg configures the node-local bookkeeping of routable nodes
type RouterCfg struct {
	Heartbeat   time.Duration `yaml:"heartbeat"`    // interval of simulated time between pings to known peers
	PeerTimeout time.Duration `yaml:"peer_timeout"` // a peer silent for longer than this is forgotten
}

type Config struct {
	Ledger       LedgerCfg     `yaml:"ledger"`
	Simulator    SimulatorCfg  `yaml:"simulator"`
	Router       RouterCfg     `yaml:"router"`
	TickInterval time.Duration `yaml:"tick_interval"`       // wall-clock cadence of the tick driver
	Listen       string        `yaml:"listen,omitempty"`    // address of the http api, disabled if empty
	LogPath      string        `yaml:"log_path,omitempty"` // if not empty, logs are also written to this file
}

func DefaultConfig() Config {
	return Config{
		Ledger: LedgerCfg{
			ManaIncrease: DefaultManaIncrease,
			ManaDecrease: DefaultManaDecrease,
			NodeActive:   DefaultNodeActive,
		},
		Simulator: SimulatorCfg{
			NodesRoot: DefaultNodesRoot,
			NodesFlex: DefaultNodesFlex,
			PSignIn:   DefaultPSignIn,
			PSignOut:  DefaultPSignOut,
		},
		Router: RouterCfg{
			Heartbeat:   DefaultHeartbeat,
			PeerTimeout: DefaultPeerTimeout,
		},
		TickInterval: DefaultTickInterval,
		Listen:       DefaultListen,
	}
}

// ParseConfig decodes a yaml document on top of the defaults and validates the result.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	err := yaml.UnmarshalWithOptions(data, &cfg, yaml.DisallowUnknownField())
	if err != nil {
		return nil, err
	}
	err = ConfigValidator(&cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ReadConfig reads the config file at path. A missing file yields the defaults.
func ReadConfig(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		cfg := DefaultConfig()
		return &cfg, nil
	}
	return ParseConfig(file)
}

func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
