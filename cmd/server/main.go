package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	configPath     string
	blueprintsPath string
	logLevel       string
	ticks          uint64
	delta          float64
	maxSteps       int
	copies         int
	spacing        float64
	push           float64
	statsEvery     time.Duration
	watch          bool
)

// rootCmd runs a headless simulation of the blueprints until interrupted.
var rootCmd = &cobra.Command{
	Use:   "softbody",
	Short: "Run the soft-body creature simulation headless",
	Long: `Load physics settings and creature blueprints from YAML, spawn the
creatures along the x axis and step the world on a fixed tick.

Every root segment is pushed toward the origin so the creatures meet.
The run stops after --ticks ticks, or on SIGINT/SIGTERM when --ticks is 0.
With --watch, edits to the config file retune the attractor and the drop
edge of the running world.`,
	SilenceUsage: true,
	RunE:         runSimulation,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Physics config YAML (defaults when empty)")
	rootCmd.Flags().StringVarP(&blueprintsPath, "blueprints", "b", "configs/blueprints.yaml", "Creature blueprints YAML")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error, fatal")
	rootCmd.Flags().Uint64Var(&ticks, "ticks", 0, "Stop after this many ticks (0 runs until interrupted)")
	rootCmd.Flags().Float64Var(&delta, "dt", 1.0/60.0, "Fixed tick length in seconds")
	rootCmd.Flags().IntVar(&maxSteps, "max-steps", 5, "Most ticks run per frame before time is dropped")
	rootCmd.Flags().IntVarP(&copies, "copies", "n", 1, "Agents spawned per blueprint")
	rootCmd.Flags().Float64Var(&spacing, "spacing", 6, "Distance between spawned agents")
	rootCmd.Flags().Float64Var(&push, "push", 4, "Force pushing root segments toward the origin")
	rootCmd.Flags().BoolVarP(&watch, "watch", "w", false, "Reload attractor and drop edge when the config file changes")
	rootCmd.Flags().DurationVar(&statsEvery, "stats-every", 5*time.Second, "Interval between stats log lines")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
