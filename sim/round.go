package sim

import (
	"sync"
	"time"

	"github.com/adamgarcia4/goLearning/gossipsim/gossip"
	"github.com/adamgarcia4/goLearning/gossipsim/logger"
	"github.com/adamgarcia4/goLearning/gossipsim/node"
	"github.com/adamgarcia4/goLearning/gossipsim/telemetry"
)

// registry is the part of the router the round action reads.
type registry interface {
	Participants() map[gossip.Address]*node.Node
}

// roundTracker is the barrier action. It counts rounds, runs the oracle from
// round 2 on, and closes done the first time the cluster converges.
type roundTracker struct {
	registry registry
	onRound  func(RoundEvent)

	mu                   sync.Mutex
	counter              int
	lastConvergenceRound int
	firstConverged       int
	inspections          int

	done     chan struct{}
	doneOnce sync.Once
}

func newRoundTracker(reg registry, onRound func(RoundEvent)) *roundTracker {
	return &roundTracker{
		registry: reg,
		onRound:  onRound,
		done:     make(chan struct{}),
	}
}

// Done is closed on first convergence.
func (t *roundTracker) Done() <-chan struct{} {
	return t.done
}

func (t *roundTracker) action() {
	t.mu.Lock()
	t.counter++
	round := t.counter
	t.mu.Unlock()

	telemetry.RoundsTotal.Inc()
	logger.Debugf("**************** ROUND %d ****************", round)

	event := RoundEvent{Round: round}
	if round > 1 {
		event.Inspected = true
		event.Converged, event.Elapsed = t.inspect()
		t.record(round, event.Converged)
	}

	if t.onRound != nil {
		t.onRound(event)
	}
}

func (t *roundTracker) inspect() (bool, time.Duration) {
	participants := t.registry.Participants()
	views := make(map[gossip.Address]View, len(participants))
	for addr, n := range participants {
		views[addr] = n
	}

	start := time.Now()
	divergence := Inspect(views)
	elapsed := time.Since(start)

	t.mu.Lock()
	t.inspections++
	t.mu.Unlock()

	telemetry.ObserveOracle(elapsed)
	logger.Debugf("elapsed comparison time = %s", elapsed)
	logger.Debugf("have we converged? %t", divergence == nil)
	return divergence == nil, elapsed
}

func (t *roundTracker) record(round int, converged bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !converged {
		logger.Debugf("rounds since convergence = %d", round-t.lastConvergenceRound)
		return
	}

	if round-1 > t.lastConvergenceRound {
		logger.Warnf("converged after %d rounds", round-t.lastConvergenceRound)
	}
	t.lastConvergenceRound = round

	if t.firstConverged == 0 {
		t.firstConverged = round
		telemetry.RoundsToConverge.Observe(float64(round))
	}
	t.doneOnce.Do(func() { close(t.done) })
}

// Rounds returns how many times the barrier has tripped.
func (t *roundTracker) Rounds() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counter
}

// Inspections returns how many times the oracle ran.
func (t *roundTracker) Inspections() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inspections
}

// ConvergedRound returns the first round that converged, 0 if none did.
func (t *roundTracker) ConvergedRound() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.firstConverged
}
