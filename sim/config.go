package sim

import (
	"time"

	"github.com/adamgarcia4/goLearning/gossipsim/gossip"
	"github.com/adamgarcia4/goLearning/gossipsim/node"
	"github.com/adamgarcia4/goLearning/gossipsim/transport"
)

// Default configuration constants
const (
	DefaultSeedCount    = 3
	DefaultNodeCount    = 25
	DefaultRuns         = 10
	DefaultRoundTimeout = 10 * time.Minute
	DefaultGracePeriod  = time.Second
)

// RoundEvent describes one barrier release. It is delivered while every
// participant is parked at the barrier.
type RoundEvent struct {
	Round     int
	Inspected bool // false on round 1
	Converged bool
	Elapsed   time.Duration // oracle time
}

// Config holds the knobs shared by every run of a Simulator.
type Config struct {
	SeedCount int
	NodeCount int
	Runs      int

	RoundTimeout time.Duration
	GracePeriod  time.Duration

	// Router jitter upper bound; zero disables it.
	Jitter time.Duration

	ClusterID      string
	ReleaseVersion string

	// RandSeed seeds participant peer selection; zero seeds from the clock.
	RandSeed int64

	// OnRound, when set, is called after every barrier release.
	OnRound func(RoundEvent)

	// RouterOptions are applied after the jitter options, so they can replace
	// the per-kind handlers.
	RouterOptions []transport.Option
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() Config {
	return Config{
		SeedCount:      DefaultSeedCount,
		NodeCount:      DefaultNodeCount,
		Runs:           DefaultRuns,
		RoundTimeout:   DefaultRoundTimeout,
		GracePeriod:    DefaultGracePeriod,
		ClusterID:      node.DefaultClusterID,
		ReleaseVersion: gossip.DefaultReleaseVersion,
	}
}

// Validate checks if the config is valid
func (c Config) Validate() error {
	if err := validateCounts(c.SeedCount, c.NodeCount); err != nil {
		return err
	}
	if c.Runs < 1 {
		return ErrInvalidRuns
	}
	if c.RoundTimeout <= 0 {
		return ErrInvalidRoundTimeout
	}
	return nil
}

func validateCounts(seeds, nodes int) error {
	if seeds < 1 || seeds >= nodes {
		return ErrInvalidSeedCount
	}
	if nodes > MaxNodes {
		return ErrTooManyNodes
	}
	return nil
}
