package sim

import (
	"context"
	"sync"
)

// generation is one trip of the barrier. Waiters block on done; broken tells
// them whether they were released or torn down.
type generation struct {
	done   chan struct{}
	broken bool
}

// Barrier is a reusable cyclic barrier for a fixed number of parties. When
// the last party arrives, action runs exactly once in that party's goroutine,
// and only then are the others released into the next round.
//
// Once broken (Break, or a waiter's context ending) every current and future
// Await returns ErrBrokenBarrier.
type Barrier struct {
	mu      sync.Mutex
	parties int
	count   int
	action  func()
	gen     *generation
}

// NewBarrier panics if parties < 1.
func NewBarrier(parties int, action func()) *Barrier {
	if parties < 1 {
		panic("sim: barrier needs at least one party")
	}
	return &Barrier{
		parties: parties,
		action:  action,
		gen:     &generation{done: make(chan struct{})},
	}
}

// Parties returns the number of parties needed to trip the barrier.
func (b *Barrier) Parties() int {
	return b.parties
}

// Waiting returns how many parties are parked in the current generation.
func (b *Barrier) Waiting() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Await blocks until every party has called Await for the current generation.
// A caller whose ctx is already done is not counted and breaks the barrier.
func (b *Barrier) Await(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		b.Break()
		return err
	}

	b.mu.Lock()
	g := b.gen
	if g.broken {
		b.mu.Unlock()
		return ErrBrokenBarrier
	}

	b.count++
	if b.count < b.parties {
		b.mu.Unlock()
		return b.wait(ctx, g)
	}
	b.mu.Unlock()

	// Last arrival. Nobody can enter this generation any more and everyone
	// else is parked on g.done, so the action sees a quiescent cluster.
	if b.action != nil {
		b.action()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if g.broken {
		return ErrBrokenBarrier
	}
	b.count = 0
	b.gen = &generation{done: make(chan struct{})}
	close(g.done)
	return nil
}

func (b *Barrier) wait(ctx context.Context, g *generation) error {
	select {
	case <-g.done:
	case <-ctx.Done():
		b.breakGeneration(g)
		return ctx.Err()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if g.broken {
		return ErrBrokenBarrier
	}
	return nil
}

// Break releases every waiter with ErrBrokenBarrier.
func (b *Barrier) Break() {
	b.mu.Lock()
	g := b.gen
	b.mu.Unlock()
	b.breakGeneration(g)
}

func (b *Barrier) breakGeneration(g *generation) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if g.broken || b.gen != g {
		return
	}
	g.broken = true
	close(g.done)
}
