package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/fulfillment-sim/fulfillment-sim/sim"
)

var (
	configPath   string  // Optional YAML scenario config
	seed         int64   // Base RNG seed (overrides config when set)
	orderCount   int     // Number of synthetic orders to stream
	horizonHours float64 // Simulation window length (overrides config when set)
	logLevel     string  // Log verbosity level
)

// rootCmd is the base command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "fulfillment-sim",
	Short: "Routing/allocation/fulfillment simulator for omnichannel retail networks",
}

// runCmd drives the full pipeline: prepare the network, stream synthetic
// orders through quote/allocate/realize, tick supply snapshots, perturb the
// produced records, and report engine metrics.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the fulfillment simulation",
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", logLevel, err)
		}
		logrus.SetLevel(level)

		cfg := sim.DefaultConfig()
		if configPath != "" {
			cfg, err = sim.LoadConfig(configPath)
			if err != nil {
				return err
			}
		}
		if cmd.Flags().Changed("seed") {
			cfg.Seed = seed
		}
		if cmd.Flags().Changed("horizon") {
			cfg.Window.End = cfg.Window.Start.Add(time.Duration(horizonHours * float64(time.Hour)))
			if err := cfg.Validate(); err != nil {
				return err
			}
		}

		engine := sim.NewEngine(cfg)
		engine.Prepare()

		orders := sim.GenerateOrders(cfg, sim.NewSimulationKey(cfg.Seed), orderCount)
		logrus.Infof("streaming %d order(s) across %s..%s",
			len(orders), cfg.Window.Start.Format(time.RFC3339), cfg.Window.End.Format(time.RFC3339))

		nextTick := cfg.Window.Start
		var produced []sim.Record

		for _, order := range orders {
			// Run supply ticks that matured before this order arrived.
			for !nextTick.After(order.CreatedAt) {
				batch := engine.EmitSupply(nextTick)
				for _, snap := range batch.Snapshots {
					produced = append(produced, snap)
				}
				nextTick = nextTick.Add(cfg.Window.SnapshotInterval.Std())
			}

			quote, err := engine.Quote(order)
			if err != nil {
				logrus.Debugf("quote %s: %v", order.ID, err)
				continue
			}
			alloc, err := engine.Allocate(order, quote.Recommendation.Selections, order.CreatedAt)
			if err != nil {
				return err
			}
			if alloc.Allocation.Status != sim.AllocationReserved {
				continue
			}
			events, err := engine.Realize(alloc.Allocation.ID, order.CreatedAt)
			if err != nil {
				return err
			}
			for _, ev := range events {
				produced = append(produced, ev)
			}
		}

		_, counters := engine.Perturb(produced, "cli-run")
		logrus.Infof("perturb: %d miscount(s), %d latency shift(s), %d reorder(s)",
			counters.Miscounts, counters.LatencyShifts, counters.Reorders)

		fmt.Println("=== Engine Metrics ===")
		fmt.Println(engine.Metrics().Summary())
		return nil
	},
}

// Execute runs the CLI root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "Path to YAML scenario config (defaults built in)")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Base RNG seed")
	runCmd.Flags().IntVar(&orderCount, "orders", 500, "Number of synthetic orders to stream")
	runCmd.Flags().Float64Var(&horizonHours, "horizon", 168, "Simulation window length in hours")
	runCmd.Flags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.AddCommand(runCmd)
}
