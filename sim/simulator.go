package sim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/adamgarcia4/goLearning/gossipsim/gossip"
	"github.com/adamgarcia4/goLearning/gossipsim/logger"
	"github.com/adamgarcia4/goLearning/gossipsim/node"
	"github.com/adamgarcia4/goLearning/gossipsim/telemetry"
	"github.com/adamgarcia4/goLearning/gossipsim/transport"
)

// RunState is where a run is in its lifecycle.
type RunState int

const (
	StateInitializing RunState = iota
	StateRunning
	StateConverged
	StateTimedOut
	StateCanceled
	StateTerminated
)

func (s RunState) String() string {
	switch s {
	case StateInitializing:
		return "INITIALIZING"
	case StateRunning:
		return "RUNNING"
	case StateConverged:
		return "CONVERGED"
	case StateTimedOut:
		return "TIMED_OUT"
	case StateCanceled:
		return "CANCELED"
	case StateTerminated:
		return "TERMINATED"
	default:
		return fmt.Sprintf("RunState(%d)", int(s))
	}
}

// RunResult reports one finished run. Outcome is how the run ended, before
// teardown moved it to TERMINATED.
type RunResult struct {
	SeedCount int
	NodeCount int

	Outcome        RunState
	Rounds         int
	ConvergedRound int
	Inspections    int
	Elapsed        time.Duration
}

// Converged reports whether the run reached convergence before it ended.
func (r *RunResult) Converged() bool {
	return r.Outcome == StateConverged
}

func (r *RunResult) String() string {
	if r.Converged() {
		return fmt.Sprintf("%d nodes / %d seeds: converged at round %d (%d rounds, %s)",
			r.NodeCount, r.SeedCount, r.ConvergedRound, r.Rounds, r.Elapsed.Round(time.Millisecond))
	}
	return fmt.Sprintf("%d nodes / %d seeds: %s after %d rounds (%s)",
		r.NodeCount, r.SeedCount, r.Outcome, r.Rounds, r.Elapsed.Round(time.Millisecond))
}

// Simulator drives runs of an in-process gossip cluster over one Router. Runs
// are sequential; Run must not be called concurrently.
type Simulator struct {
	config Config
	router *transport.Router
}

// New returns a simulator with a fresh router.
func New(config Config) *Simulator {
	if config.ClusterID == "" {
		config.ClusterID = node.DefaultClusterID
	}
	if config.RandSeed == 0 {
		config.RandSeed = time.Now().UnixNano()
	}
	opts := append([]transport.Option{
		transport.WithJitter(config.Jitter),
		transport.WithJitterSeed(config.RandSeed),
	}, config.RouterOptions...)
	router := transport.NewRouter(opts...)
	return &Simulator{config: config, router: router}
}

// Router exposes the router runs are wired through.
func (s *Simulator) Router() *transport.Router {
	return s.router
}

// RunMany runs the same seed/node configuration runs times in a row. It stops
// early only on a configuration error or when ctx ends.
func (s *Simulator) RunMany(ctx context.Context, seedCount, nodeCount, runs int) ([]*RunResult, error) {
	if runs < 1 {
		return nil, ErrInvalidRuns
	}
	if err := validateCounts(seedCount, nodeCount); err != nil {
		return nil, err
	}

	logger.Warnf("####### Running new simulation for %d nodes with %d seeds ######", nodeCount, seedCount)

	results := make([]*RunResult, 0, runs)
	for i := 0; i < runs; i++ {
		res, err := s.Run(ctx, seedCount, nodeCount)
		if err != nil {
			return results, fmt.Errorf("run %d: %w", i+1, err)
		}
		results = append(results, res)
		if res.Outcome == StateCanceled {
			break
		}
	}
	return results, nil
}

// Run builds a cluster of nodeCount participants, the first seedCount of them
// seeds, and gossips in lockstep rounds until the oracle reports convergence,
// the round timeout passes, or ctx ends. Every started participant is
// terminated before Run returns.
func (s *Simulator) Run(ctx context.Context, seedCount, nodeCount int) (*RunResult, error) {
	if err := validateCounts(seedCount, nodeCount); err != nil {
		return nil, fmt.Errorf("%d seeds, %d nodes: %w", seedCount, nodeCount, err)
	}
	if s.config.RoundTimeout <= 0 {
		return nil, ErrInvalidRoundTimeout
	}

	started := time.Now()
	s.router.Renew()

	addrs := make([]gossip.Address, nodeCount)
	for i := range addrs {
		addr, err := AddressFor(i)
		if err != nil {
			return nil, err
		}
		addrs[i] = addr
	}
	seeds := addrs[:seedCount]

	tracker := newRoundTracker(s.router, s.config.OnRound)
	barrier := NewBarrier(nodeCount, tracker.action)

	nodes := make([]*node.Node, 0, nodeCount)
	for i, addr := range addrs {
		cfg := node.DefaultConfig(addr)
		cfg.ClusterID = s.config.ClusterID
		cfg.Seeds = seeds
		cfg.Sender = s.router
		cfg.Barrier = barrier
		cfg.RandSeed = s.config.RandSeed + int64(i)

		n, err := node.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("participant %s: %w", addr, err)
		}
		nodes = append(nodes, n)
		s.router.Register(n)
	}

	logger.Infof("run: %d nodes, %d seeds, state %s", nodeCount, seedCount, StateInitializing)

	factory := gossip.NewValueFactory(s.config.ReleaseVersion)
	for i, n := range nodes {
		if err := n.Start(0, factory.InitialStates(n.Address())); err != nil {
			s.teardown(nodes, barrier, i)
			return nil, fmt.Errorf("start %s: %w", n.Address(), err)
		}
		telemetry.ActiveParticipants.Inc()
	}

	outcome := s.wait(ctx, tracker, seedCount, nodeCount)
	s.teardown(nodes, barrier, len(nodes))

	res := &RunResult{
		SeedCount:      seedCount,
		NodeCount:      nodeCount,
		Outcome:        outcome,
		Rounds:         tracker.Rounds(),
		ConvergedRound: tracker.ConvergedRound(),
		Inspections:    tracker.Inspections(),
		Elapsed:        time.Since(started),
	}
	telemetry.RunsTotal.WithLabelValues(outcome.String()).Inc()
	logger.Infof("run %s; %s", StateTerminated, res)
	return res, nil
}

func (s *Simulator) wait(ctx context.Context, tracker *roundTracker, seedCount, nodeCount int) RunState {
	timer := time.NewTimer(s.config.RoundTimeout)
	defer timer.Stop()

	select {
	case <-tracker.Done():
		return StateConverged
	case <-timer.C:
		logger.Errorf("test with %d seeds and %d nodes timed out before completion", seedCount, nodeCount)
		return StateTimedOut
	case <-ctx.Done():
		logger.Warnf("run with %d seeds and %d nodes canceled: %v", seedCount, nodeCount, ctx.Err())
		return StateCanceled
	}
}

// teardown terminates every participant, releases anyone parked at the
// barrier, and waits up to the grace period for round loops to exit. started
// is how many participants were counted as active.
func (s *Simulator) teardown(nodes []*node.Node, barrier *Barrier, started int) {
	defer telemetry.ActiveParticipants.Sub(float64(started))

	for _, n := range nodes {
		n.Terminate()
	}
	logger.Debugf("breaking barrier with %d of %d parties waiting", barrier.Waiting(), barrier.Parties())
	barrier.Break()

	grace := s.config.GracePeriod
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	deadline := time.NewTimer(grace)
	defer deadline.Stop()

	var stuck []error
	expired := false
	for _, n := range nodes {
		if !expired {
			select {
			case <-n.Done():
				continue
			case <-deadline.C:
				expired = true
			}
		}
		select {
		case <-n.Done():
		default:
			stuck = append(stuck, fmt.Errorf("%s still running", n.Address()))
		}
	}
	if err := errors.Join(stuck...); err != nil {
		logger.Warnf("teardown grace period %s elapsed: %v", grace, err)
	}
}
