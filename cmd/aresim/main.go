// Command aresim runs scenario fixtures through the simulation core and
// judges an agent's recorded trace against the resulting oracle trace. It
// is deliberately thin: the agent model itself, concrete scenario
// authoring tools, and any GUI are out of scope — this is the minimal
// driver needed to produce the judge's structured result.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/are-sim/aresim/telemetry"
)

// errExitCode signals RunE should exit with this code without printing a
// cobra usage/error block — the structured result has already been
// written by the caller.
type errExitCode int

func (e errExitCode) Error() string { return fmt.Sprintf("exit code %d", int(e)) }

// tracingEnabled selects the Clue/OpenTelemetry-backed telemetry.Logger,
// telemetry.Metrics, and telemetry.Tracer over their no-op counterparts for
// both subcommands. Off by default: a bare aresim run has no OTEL collector
// configured, so Clue's exporters would otherwise spend cycles recording
// into a provider nobody reads.
var tracingEnabled bool

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "aresim",
		Short:         "Discrete-event simulator and judge for evaluating LLM-driven agents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&tracingEnabled, "tracing", false, "emit logs/metrics/spans via goa.design/clue + OpenTelemetry instead of discarding them")
	root.AddCommand(newOracleCmd(), newJudgeCmd())
	return root
}

func loggerMetricsTracer() (telemetry.Logger, telemetry.Metrics, telemetry.Tracer) {
	if !tracingEnabled {
		return telemetry.NewNoopLogger(), telemetry.NewNoopMetrics(), telemetry.NewNoopTracer()
	}
	return telemetry.NewClueLogger(), telemetry.NewClueMetrics(), telemetry.NewClueTracer()
}

func main() {
	// Right-sizes GOMAXPROCS to the container's cgroup CPU quota rather
	// than the host's full core count, for the loop goroutine and the
	// judge's parallel LLM calls.
	if _, err := maxprocs.Set(); err != nil {
		fmt.Fprintln(os.Stderr, "aresim: maxprocs:", err)
	}

	if err := newRootCmd().Execute(); err != nil {
		var code errExitCode
		if ec, ok := err.(errExitCode); ok {
			code = ec
		} else {
			fmt.Fprintln(os.Stderr, "aresim:", err)
			code = 1
		}
		os.Exit(int(code))
	}
}
