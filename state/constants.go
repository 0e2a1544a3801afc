package state

import "time"

var (
	// ledger defaults, one mana per second while active, one lost per 168 seconds while inactive
	DefaultManaIncrease = time.Second
	DefaultManaDecrease = 168 * time.Second
	DefaultNodeActive   = 60 * time.Second

	// simulator defaults
	DefaultNodesRoot = 5
	DefaultNodesFlex = 10
	DefaultPSignIn   = float64(0x1000) / (1 << 16)
	DefaultPSignOut  = float64(0xa00) / (1 << 16)

	// router defaults, in simulated time
	DefaultHeartbeat   = time.Second
	DefaultPeerTimeout = 3 * DefaultHeartbeat

	// a drop to the same destination is only logged once within this window
	DropLogTTL = 10 * time.Second

	// upper bound of actions handled in one drain of the broker queue
	MaxDrainActions = 1 << 16
	// upper bound of messages delivered in one router drain
	MaxMessageRounds = 1 << 16

	// a dispatched task running longer than this is logged
	DispatchWarnThreshold = 50 * time.Millisecond

	// upper bound for serving one http request, including the broker round trip
	RequestTimeout = 10 * time.Second

	// default location of the config file, a missing file means the defaults are used
	ConfigPath = "manasim.yaml"

	DefaultTickInterval = time.Second
	DefaultListen       = "127.0.0.1:8080"
	DispatchBufferSize  = 128
)
