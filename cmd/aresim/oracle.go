package main

import (
	"context"
	"fmt"
	"os"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/are-sim/aresim/simulation/environment"
	"github.com/are-sim/aresim/simulation/event"
)

func newOracleCmd() *cobra.Command {
	var fixturePath, outPath, toolSpecsOutPath string
	cmd := &cobra.Command{
		Use:   "oracle",
		Short: "Run a scenario fixture for real and record its ground-truth event trace",
		Long: `oracle builds the apps and event DAG described by a fixture, runs it to
completion against the real in-memory apps, and writes the resulting
completed-event trace as the oracle trace a later judge run compares an
agent's own trace against.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOracle(cmd.Context(), fixturePath, outPath, toolSpecsOutPath)
		},
	}
	cmd.Flags().StringVar(&fixturePath, "fixture", "", "path to the scenario fixture YAML (required)")
	cmd.Flags().StringVar(&outPath, "out", "", "path to write the oracle trace JSON (defaults to stdout)")
	cmd.Flags().StringVar(&toolSpecsOutPath, "tool-specs-out", "", "optional path to write the agent-facing tool listing (name/description, augmented per tool_augmentation_config) as JSON")
	_ = cmd.MarkFlagRequired("fixture")
	return cmd
}

func runOracle(ctx context.Context, fixturePath, outPath, toolSpecsOutPath string) error {
	f, registry, sc, err := loadFixture(fixturePath)
	if err != nil {
		return err
	}

	duration := f.Duration
	incr := f.TimeIncrementSeconds
	if incr <= 0 {
		incr = 1
	}

	logger, metrics, tracer := loggerMetricsTracer()
	env := environment.New(environment.Config{
		StartTime:                      f.StartTime,
		Duration:                       duration,
		TimeIncrementSeconds:           incr,
		OracleMode:                     true,
		QueueBasedLoop:                 f.queueBasedLoop(),
		ToolAugmentation:               f.ToolAugmentation.toConfig(),
		WaitForUserInputTimeoutSeconds: f.WaitForUserInputTimeoutSeconds,
	}, registry, logger, metrics, tracer)

	for _, h := range f.Hints {
		env.AddHint(event.Hint{HintType: h.Type, Content: h.Content, AssociatedEventID: h.EventID})
	}

	if err := sc.Seed(env); err != nil {
		return fmt.Errorf("seeding scenario: %w", err)
	}
	if err := env.Run(ctx); err != nil {
		return fmt.Errorf("running oracle scenario: %w", err)
	}
	if task := env.TaskHint(); task != "" {
		logger.Info(ctx, "oracle scenario task", "task", task)
	}

	if toolSpecsOutPath != "" {
		specs, err := sonic.MarshalIndent(env.ToolSpecs(), "", "  ")
		if err != nil {
			return fmt.Errorf("encoding tool specs: %w", err)
		}
		if err := os.WriteFile(toolSpecsOutPath, append(specs, '\n'), 0o644); err != nil {
			return fmt.Errorf("writing tool specs: %w", err)
		}
	}

	comparators := f.timeComparators()
	completed := env.Log().ListView()
	oracle := make([]*event.CompletedOracleEvent, len(completed))
	for i, c := range completed {
		oracle[i] = &event.CompletedOracleEvent{
			CompletedEvent: *c,
			TimeComparator: comparators[c.EventID],
		}
	}

	out, err := sonic.MarshalIndent(oracle, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding oracle trace: %w", err)
	}
	return writeOutput(outPath, out)
}

func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := fmt.Fprintln(os.Stdout, string(data))
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
