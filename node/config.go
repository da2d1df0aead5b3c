package node

import (
	"context"
	"time"

	"github.com/adamgarcia4/goLearning/gossipsim/gossip"
)

// Default configuration constants
const (
	DefaultClusterID     = "gossipsim"
	DefaultRoundInterval = time.Second
)

// Sender delivers one-way protocol messages on behalf of a node.
type Sender interface {
	SendOneWay(msg gossip.Message, to gossip.Address, from *Node) error
}

// RoundBarrier blocks a node between rounds until every other node has
// finished the same round.
type RoundBarrier interface {
	Await(ctx context.Context) error
}

// Config holds the configuration for a node
type Config struct {
	// Node identification
	Address   gossip.Address
	ClusterID string

	// Peer configuration
	Seeds []gossip.Address

	// Wiring
	Sender  Sender
	Barrier RoundBarrier // nil means rounds are paced by RoundInterval

	// Gossip configuration
	RoundInterval time.Duration
	RandSeed      int64
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig(addr gossip.Address) *Config {
	return &Config{
		Address:       addr,
		ClusterID:     DefaultClusterID,
		Seeds:         []gossip.Address{},
		RoundInterval: DefaultRoundInterval,
	}
}

// Validate checks if the config is valid
func (c *Config) Validate() error {
	if !c.Address.IsValid() {
		return ErrAddressRequired
	}
	if c.ClusterID == "" {
		return ErrClusterIDRequired
	}
	if c.Sender == nil {
		return ErrSenderRequired
	}
	if c.Barrier == nil && c.RoundInterval <= 0 {
		return ErrInvalidRoundInterval
	}
	return nil
}
