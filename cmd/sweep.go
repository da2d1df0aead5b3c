package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/adamgarcia4/goLearning/gossipsim/sim"
)

var errBadSweep = errors.New("sweep entries must look like SEEDS:NODES")

// sweepPair is one (seeds, nodes) configuration of a sweep.
type sweepPair struct {
	Seeds int
	Nodes int
}

// parseSweep turns "3:25"-style entries into pairs, checking each against
// base so a bad pair fails before any run starts.
func parseSweep(entries []string, base sim.Config) ([]sweepPair, error) {
	pairs := make([]sweepPair, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		seeds, nodes, ok := strings.Cut(entry, ":")
		if !ok {
			return nil, fmt.Errorf("%q: %w", entry, errBadSweep)
		}
		s, err := strconv.Atoi(strings.TrimSpace(seeds))
		if err != nil {
			return nil, fmt.Errorf("%q: seeds: %w", entry, errBadSweep)
		}
		n, err := strconv.Atoi(strings.TrimSpace(nodes))
		if err != nil {
			return nil, fmt.Errorf("%q: nodes: %w", entry, errBadSweep)
		}

		cfg := base
		cfg.SeedCount, cfg.NodeCount = s, n
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("%q: %w", entry, err)
		}
		pairs = append(pairs, sweepPair{Seeds: s, Nodes: n})
	}
	return pairs, nil
}

// sweepFromViper returns the configured sweep, or the single seeds/nodes pair
// from cfg when no sweep is set.
func sweepFromViper(cfg sim.Config) ([]sweepPair, error) {
	pairs, err := parseSweep(viper.GetStringSlice("sweep"), cfg)
	if err != nil {
		return nil, err
	}
	if len(pairs) > 0 {
		return pairs, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return []sweepPair{{Seeds: cfg.SeedCount, Nodes: cfg.NodeCount}}, nil
}
