package cmd

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/adamgarcia4/goLearning/gossipsim/sim"
)

// addSimFlags registers the flags shared by simulate and interactive.
func addSimFlags(fs *pflag.FlagSet) {
	def := sim.DefaultConfig()

	fs.IntP("seeds", "s", def.SeedCount, "number of seed participants")
	fs.IntP("nodes", "n", def.NodeCount, "number of participants, seeds included")
	fs.IntP("runs", "r", def.Runs, "runs per configuration")
	fs.Duration("round-timeout", def.RoundTimeout, "give up on a run after this long")
	fs.Duration("grace-period", def.GracePeriod, "time allowed for participants to exit after a run")
	fs.Duration("jitter", 0, "upper bound of a random per-message delay (0 disables)")
	fs.Int64("rand-seed", 0, "seed for peer selection (0 seeds from the clock)")
	fs.String("cluster-id", def.ClusterID, "cluster name every participant advertises")
	fs.String("release-version", def.ReleaseVersion, "release version every participant advertises")
}

// simConfigFromViper reads the flags registered by addSimFlags, after env and
// config file overrides.
func simConfigFromViper() sim.Config {
	cfg := sim.DefaultConfig()
	cfg.SeedCount = viper.GetInt("seeds")
	cfg.NodeCount = viper.GetInt("nodes")
	cfg.Runs = viper.GetInt("runs")
	cfg.RoundTimeout = viper.GetDuration("round-timeout")
	cfg.GracePeriod = viper.GetDuration("grace-period")
	cfg.Jitter = viper.GetDuration("jitter")
	cfg.RandSeed = viper.GetInt64("rand-seed")
	cfg.ClusterID = viper.GetString("cluster-id")
	cfg.ReleaseVersion = viper.GetString("release-version")
	return cfg
}
