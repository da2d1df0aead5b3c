package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/adamgarcia4/goLearning/gossipsim/logger"
	"github.com/adamgarcia4/goLearning/gossipsim/sim"
	"github.com/adamgarcia4/goLearning/gossipsim/telemetry"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run convergence simulations",
	Long: `Run a series of gossip simulations for one or more seed and node counts
and report the round at which each run converged.

Examples:
  # 10 runs of 25 nodes with 3 seeds
  gossipsim simulate --seeds=3 --nodes=25 --runs=10

  # Sweep cluster sizes, 10 runs each
  gossipsim simulate --sweep=3:25,3:50,3:100,6:200,6:400,12:800,20:1200

  # A large cluster with debug logs and Prometheus metrics
  gossipsim simulate -s 20 -n 1200 --log-level=debug --metrics-addr=:9100`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	addSimFlags(simulateCmd.Flags())
	simulateCmd.Flags().String("metrics-addr", "", "serve Prometheus /metrics on this address while running")
	simulateCmd.Flags().StringSlice("sweep", nil, "SEEDS:NODES pairs to run in order; overrides --seeds and --nodes")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	// Non-interactive mode writes logs to stdout
	logger.Init("", true)
	if err := logger.SetLevel(viper.GetString("log-level")); err != nil {
		return fmt.Errorf("log level: %w", err)
	}

	cfg := simConfigFromViper()
	pairs, err := sweepFromViper(cfg)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if addr := viper.GetString("metrics-addr"); addr != "" {
		srv := serveMetrics(addr)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s := sim.New(cfg)
	for _, p := range pairs {
		results, err := s.RunMany(ctx, p.Seeds, p.Nodes, cfg.Runs)
		if len(pairs) > 1 {
			fmt.Fprintf(cmd.OutOrStdout(), "== %d seeds, %d nodes ==\n", p.Seeds, p.Nodes)
		}
		printSummary(cmd, results)
		if err != nil {
			return err
		}
	}
	return nil
}

func serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", telemetry.MetricsHandler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("metrics server: %v", err)
		}
	}()
	logger.Infof("serving metrics on %s/metrics", addr)
	return srv
}

func printSummary(cmd *cobra.Command, results []*sim.RunResult) {
	if len(results) == 0 {
		return
	}

	converged, rounds := 0, 0
	for i, r := range results {
		fmt.Fprintf(cmd.OutOrStdout(), "run %2d: %s\n", i+1, r)
		if r.Converged() {
			converged++
			rounds += r.ConvergedRound
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d/%d runs converged", converged, len(results))
	if converged > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), ", mean convergence round %.1f", float64(rounds)/float64(converged))
	}
	fmt.Fprintln(cmd.OutOrStdout())
}
