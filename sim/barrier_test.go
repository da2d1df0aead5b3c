package sim

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBarrier_ActionRunsOncePerTripBeforeRelease(t *testing.T) {
	const parties, rounds = 5, 4

	var trips atomic.Int64
	b := NewBarrier(parties, func() { trips.Add(1) })

	seen := make([][]int64, parties)
	var wg sync.WaitGroup
	for p := 0; p < parties; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				assert.NoError(t, b.Await(context.Background()))
				seen[p] = append(seen[p], trips.Load())
			}
		}(p)
	}
	wg.Wait()

	assert.Equal(t, int64(rounds), trips.Load())
	for p := 0; p < parties; p++ {
		// Every party leaves round r only after the action for round r ran,
		// and cannot reach round r+1's action before re-arriving.
		assert.Equal(t, []int64{1, 2, 3, 4}, seen[p], "party %d", p)
	}
}

func TestBarrier_WaitsForAllParties(t *testing.T) {
	var ran atomic.Bool
	b := NewBarrier(3, func() { ran.Store(true) })

	released := make(chan struct{}, 3)
	for i := 0; i < 2; i++ {
		go func() {
			_ = b.Await(context.Background())
			released <- struct{}{}
		}()
	}

	require.Eventually(t, func() bool { return b.Waiting() == 2 }, time.Second, time.Millisecond)
	assert.False(t, ran.Load())
	assert.Empty(t, released)

	require.NoError(t, b.Await(context.Background()))
	assert.True(t, ran.Load())
	for i := 0; i < 2; i++ {
		<-released
	}
	assert.Equal(t, 0, b.Waiting())
}

func TestBarrier_BreakReleasesWaiters(t *testing.T) {
	b := NewBarrier(3, nil)

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() { errs <- b.Await(context.Background()) }()
	}
	require.Eventually(t, func() bool { return b.Waiting() == 2 }, time.Second, time.Millisecond)

	b.Break()
	for i := 0; i < 2; i++ {
		assert.ErrorIs(t, <-errs, ErrBrokenBarrier)
	}

	// Stays broken.
	assert.ErrorIs(t, b.Await(context.Background()), ErrBrokenBarrier)
	b.Break()
}

func TestBarrier_ContextCancelBreaks(t *testing.T) {
	b := NewBarrier(2, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- b.Await(ctx) }()
	require.Eventually(t, func() bool { return b.Waiting() == 1 }, time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)
	assert.ErrorIs(t, b.Await(context.Background()), ErrBrokenBarrier)
}

func TestBarrier_DoneContextIsNotCounted(t *testing.T) {
	var ran atomic.Bool
	b := NewBarrier(1, func() { ran.Store(true) })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, b.Await(ctx), context.Canceled)
	assert.False(t, ran.Load(), "action ran for a caller that had already given up")
	assert.Equal(t, 0, b.Waiting())
	assert.ErrorIs(t, b.Await(context.Background()), ErrBrokenBarrier)
}

func TestBarrier_DoneContextReleasesParkedParties(t *testing.T) {
	var ran atomic.Bool
	b := NewBarrier(2, func() { ran.Store(true) })

	errc := make(chan error, 1)
	go func() { errc <- b.Await(context.Background()) }()
	require.Eventually(t, func() bool { return b.Waiting() == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	assert.ErrorIs(t, b.Await(ctx), context.DeadlineExceeded)
	assert.ErrorIs(t, <-errc, ErrBrokenBarrier)
	assert.False(t, ran.Load())
}

func TestBarrier_BreakDuringAction(t *testing.T) {
	inAction := make(chan struct{})
	release := make(chan struct{})
	b := NewBarrier(2, func() {
		close(inAction)
		<-release
	})

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() { errs <- b.Await(context.Background()) }()
	}

	<-inAction
	b.Break()
	close(release)

	for i := 0; i < 2; i++ {
		assert.ErrorIs(t, <-errs, ErrBrokenBarrier)
	}
}

func TestBarrier_SingleParty(t *testing.T) {
	var n int
	b := NewBarrier(1, func() { n++ })
	for i := 0; i < 3; i++ {
		require.NoError(t, b.Await(context.Background()))
	}
	assert.Equal(t, 3, n)
	assert.Equal(t, 1, b.Parties())
}

func TestNewBarrier_PanicsOnZeroParties(t *testing.T) {
	assert.Panics(t, func() { NewBarrier(0, nil) })
}
