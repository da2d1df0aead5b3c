package node

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/adamgarcia4/goLearning/gossipsim/gossip"
	"github.com/adamgarcia4/goLearning/gossipsim/logger"
)

// Node is one simulated cluster member. It owns its gossip state and, once
// started, runs gossip rounds on its own goroutine until terminated.
type Node struct {
	config *Config
	state  *gossip.State
	seeds  []gossip.Address // config seeds minus self

	rndMu sync.Mutex
	rnd   *rand.Rand

	rounds atomic.Int64

	// Lifecycle management
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	started   bool
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a new node with the given configuration
func New(config *Config) (*Node, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	state, err := gossip.NewState(config.Address, config.ClusterID)
	if err != nil {
		return nil, fmt.Errorf("failed to create gossip state: %w", err)
	}

	seeds := make([]gossip.Address, 0, len(config.Seeds))
	for _, s := range config.Seeds {
		if s != config.Address {
			seeds = append(seeds, s)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Node{
		config: config,
		state:  state,
		seeds:  seeds,
		rnd:    rand.New(rand.NewSource(config.RandSeed)),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}, nil
}

// Address returns the address the node was created with.
func (n *Node) Address() gossip.Address {
	return n.config.Address
}

// Start seeds the local state at generation with appStates and launches the
// round loop.
func (n *Node) Start(generation int64, appStates map[gossip.AppStateKey]gossip.VersionedValue) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.started {
		return ErrAlreadyStarted
	}
	if n.ctx.Err() != nil {
		return fmt.Errorf("start %s: %w", n.config.Address, n.ctx.Err())
	}
	n.started = true

	n.state.Initialize(generation, appStates)
	go n.run(n.ctx)

	n.logf("started at generation %d with %d seeds", generation, len(n.seeds))
	return nil
}

// Terminate stops the round loop. It is safe to call at any time, including
// mid-round and more than once; the loop exits at its next suspension point.
func (n *Node) Terminate() {
	n.mu.Lock()
	started := n.started
	n.cancel()
	n.mu.Unlock()

	if !started {
		n.closeDone()
	}
}

// Done is closed once the round loop has exited (or immediately after
// Terminate if the node never started).
func (n *Node) Done() <-chan struct{} {
	return n.done
}

func (n *Node) closeDone() {
	n.closeOnce.Do(func() { close(n.done) })
}

// EndpointStates returns a snapshot of this node's view of the cluster.
func (n *Node) EndpointStates() map[gossip.Address]*gossip.EndpointState {
	return n.state.EndpointStates()
}

// RangeEndpoints visits this node's view without copying it. See
// gossip.State.RangeEndpoints for the rules fn must follow.
func (n *Node) RangeEndpoints(fn func(addr gossip.Address, es *gossip.EndpointState) bool) {
	n.state.RangeEndpoints(fn)
}

// EndpointStateFor returns what this node knows about addr.
func (n *Node) EndpointStateFor(addr gossip.Address) (*gossip.EndpointState, bool) {
	return n.state.EndpointStateFor(addr)
}

// HeartbeatVersion returns the local heartbeat version, 0 before Start.
func (n *Node) HeartbeatVersion() int64 {
	if hb := n.state.Heartbeat(); hb != nil {
		return hb.Version()
	}
	return 0
}

// Rounds returns how many gossip rounds this node has run.
func (n *Node) Rounds() int64 {
	return n.rounds.Load()
}

func (n *Node) run(ctx context.Context) {
	defer n.closeDone()

	for {
		if ctx.Err() != nil {
			return
		}

		if err := n.GossipRound(); err != nil {
			n.errorf("gossip round %d: %v", n.Rounds(), err)
		}

		if err := n.waitForNextRound(ctx); err != nil {
			n.logf("leaving round loop: %v", err)
			return
		}
	}
}

func (n *Node) waitForNextRound(ctx context.Context) error {
	if n.config.Barrier != nil {
		return n.config.Barrier.Await(ctx)
	}

	timer := time.NewTimer(n.config.RoundInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// GossipRound performs one unit of anti-entropy: beat the heartbeat, send a
// SYN to a random known peer and, sometimes, to a seed. Errors from individual
// sends are joined; a failed send never stops the other.
func (n *Node) GossipRound() error {
	if _, err := n.state.BeatHeartbeat(); err != nil {
		return err
	}
	n.rounds.Add(1)

	syn := gossip.NewSyn(n.Address(), n.state.ClusterID(), n.state.Digests())
	peers := n.state.KnownPeers()

	var errs []error
	target, ok := n.pickPeer(peers)
	if ok {
		errs = append(errs, n.send(syn, target))
	}

	// Cassandra: gossip to a seed unless we just did, or we know fewer nodes
	// than there are seeds.
	gossipedToSeed := ok && n.isSeed(target)
	if !gossipedToSeed || len(peers) < len(n.seeds) {
		if seed, ok := n.maybePickSeed(len(peers)); ok {
			errs = append(errs, n.send(syn, seed))
		}
	}

	return errors.Join(errs...)
}

func (n *Node) pickPeer(peers []gossip.Address) (gossip.Address, bool) {
	if len(peers) == 0 {
		return gossip.Address{}, false
	}
	n.rndMu.Lock()
	defer n.rndMu.Unlock()
	return peers[n.rnd.Intn(len(peers))], true
}

// maybePickSeed always picks a seed when nothing is known yet, otherwise with
// probability seeds/(known+1).
func (n *Node) maybePickSeed(known int) (gossip.Address, bool) {
	if len(n.seeds) == 0 {
		return gossip.Address{}, false
	}

	n.rndMu.Lock()
	defer n.rndMu.Unlock()

	if known > 0 {
		prob := float64(len(n.seeds)) / float64(known+1)
		if n.rnd.Float64() > prob {
			return gossip.Address{}, false
		}
	}
	return n.seeds[n.rnd.Intn(len(n.seeds))], true
}

func (n *Node) isSeed(addr gossip.Address) bool {
	for _, s := range n.seeds {
		if s == addr {
			return true
		}
	}
	return false
}

func (n *Node) send(msg gossip.Message, to gossip.Address) error {
	if err := n.config.Sender.SendOneWay(msg, to, n); err != nil {
		return fmt.Errorf("send %s to %s: %w", msg.Kind, to, err)
	}
	return nil
}

// logf logs using the global logger with the node address as prefix
func (n *Node) logf(format string, args ...interface{}) {
	logger.Debugf("[%s] %s", n.config.Address, fmt.Sprintf(format, args...))
}

func (n *Node) errorf(format string, args ...interface{}) {
	logger.Errorf("[%s] %s", n.config.Address, fmt.Sprintf(format, args...))
}
