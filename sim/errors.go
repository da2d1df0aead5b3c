package sim

import "errors"

var (
	ErrInvalidSeedCount    = errors.New("seed count must be at least 1 and less than node count")
	ErrTooManyNodes        = errors.New("node count exceeds the simulated address space")
	ErrInvalidRoundTimeout = errors.New("round timeout must be positive")
	ErrInvalidRuns         = errors.New("runs must be at least 1")
	ErrBrokenBarrier       = errors.New("barrier is broken")
)
