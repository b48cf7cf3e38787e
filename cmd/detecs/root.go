package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	detecs "github.com/arkavel/detecs"
	"github.com/arkavel/detecs/docs/examples/game"
)

type rootOptions struct {
	LogLevel string
	Preset   string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "detecs",
		Short: "Deterministic ECS runtime demo driver",
		Long: `detecs drives the demo simulation through the deterministic
fixed-step scheduler: spawn, movement and collision systems recording
through command buffers, applied at the end-of-step barrier.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "info", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.Preset, "preset", "", "path to a TOML or YAML schedule preset")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newPlanCommand(opts))

	return cmd
}

// buildSystems assembles the demo set and folds in the preset, if any.
func buildSystems(opts *rootOptions, logger detecs.Logger) (*detecs.SystemSet, error) {
	set := game.Systems(16, game.Bounds{Width: 320, Height: 240})

	if opts.Preset != "" {
		preset, err := detecs.LoadPreset(opts.Preset)
		if err != nil {
			return nil, err
		}
		preset.Apply(set, logger)
	}
	return set, nil
}

func newPlanCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Print the deterministic execution plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := detecs.NewDevelopmentLogger(opts.LogLevel)
			if err != nil {
				return err
			}
			set, err := buildSystems(opts, logger)
			if err != nil {
				return err
			}
			plan, err := detecs.BuildPlan(set, logger)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), plan.Describe())
			return nil
		},
	}
}

type runOptions struct {
	*rootOptions
	Ticks   int
	Step    time.Duration
	Metrics bool
}

func newRunCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &runOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the demo simulation for a number of fixed steps",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Ticks, "ticks", 600, "number of fixed steps to run")
	cmd.Flags().DurationVar(&opts.Step, "step", 16*time.Millisecond, "fixed step duration")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print metrics after the run")

	return cmd
}

func runSimulation(cmd *cobra.Command, opts *runOptions) error {
	logger, err := detecs.NewDevelopmentLogger(opts.LogLevel)
	if err != nil {
		return err
	}

	world := detecs.NewWorld(detecs.WithLogger(logger))
	defer world.Close()
	if err := game.RegisterComponents(world); err != nil {
		return err
	}

	set, err := buildSystems(opts.rootOptions, logger)
	if err != nil {
		return err
	}
	plan, err := detecs.BuildPlan(set, logger)
	if err != nil {
		return err
	}

	collector := detecs.NewPrometheusPhaseCollector(nil)
	sched, err := detecs.NewScheduler(world, plan,
		detecs.WithSchedulerLogger(logger),
		detecs.WithObservation(detecs.ObservationSettings{
			EnablePrometheus:    opts.Metrics,
			PrometheusCollector: collector,
		}),
	)
	if err != nil {
		return err
	}
	if err := sched.Init(); err != nil {
		return err
	}
	defer sched.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("running simulation", "ticks", opts.Ticks, "step", opts.Step)
	if err := sched.Run(ctx, opts.Ticks, opts.Step); err != nil {
		return err
	}
	logger.Info("simulation complete",
		"ticks", sched.TickIndex(),
		"entities", world.Registry().Count(),
	)

	if opts.Metrics {
		if err := collector.WriteMetrics(cmd.OutOrStdout()); err != nil {
			return err
		}
	}
	return nil
}
