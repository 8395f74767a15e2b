package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/are-sim/aresim/simulation/event"
	"github.com/are-sim/aresim/simulation/validation/eventjudge"
	"github.com/are-sim/aresim/simulation/validation/graphjudge"
	"github.com/are-sim/aresim/simulation/validation/incontext"
	"github.com/are-sim/aresim/simulation/validation/llm"
	"github.com/are-sim/aresim/simulation/validation/tooljudge"
)

// judgeConfigFile is the judge configuration surface named in spec §6:
// tolerances, per-tool checker assignment, scripted-mode overrides, and
// the LLM engine backend soft checkers consult.
type judgeConfigFile struct {
	PreEventToleranceSeconds      float64                          `yaml:"pre_event_tolerance_seconds"`
	PostEventToleranceSeconds     float64                          `yaml:"post_event_tolerance_seconds"`
	CheckTimeThresholdSeconds     float64                          `yaml:"check_time_threshold_seconds"`
	PerToolArgToCheckerType       map[string]map[string]string     `yaml:"per_tool_arg_to_checker_type"`
	PerToolSoftCheckerTypes       map[string][]string              `yaml:"per_tool_soft_checker_types"`
	DefaultChecker                string                           `yaml:"default_checker"`
	ExtraSendMessageToUserAllowed *int                             `yaml:"extra_send_message_to_user_allowed"`
	EventIDToCheckerParams        map[string]scriptedCheckerParams `yaml:"event_id_to_checker_params"`
	ToleranceArgs                 map[string][]string              `yaml:"tolerance_args"`
	Tolerance                     []string                         `yaml:"tolerance"`
	SoftVotes                     int                              `yaml:"soft_votes"`
	Engine                        engineConfig                     `yaml:"llm_engine"`
}

// scriptedCheckerParams is tooljudge.CheckerParams with snake_case YAML
// tags, since the fixture format is hand-authored.
type scriptedCheckerParams struct {
	ArgCheckers map[string]string `yaml:"arg_checkers"`
	SkipSoft    bool              `yaml:"skip_soft"`
}

func (cfg *judgeConfigFile) scriptedParams() map[string]tooljudge.CheckerParams {
	if len(cfg.EventIDToCheckerParams) == 0 {
		return nil
	}
	out := make(map[string]tooljudge.CheckerParams, len(cfg.EventIDToCheckerParams))
	for id, p := range cfg.EventIDToCheckerParams {
		out[id] = tooljudge.CheckerParams{ArgCheckers: p.ArgCheckers, SkipSoft: p.SkipSoft}
	}
	return out
}

// engineConfig is spec §6's "LLM engine config (model_name, provider,
// endpoint)". There is no endpoint field: an endpoint key in the YAML is
// ignored, and buildEngine constructs only the anthropic and openai
// providers.
type engineConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model_name"`
	APIKey   string `yaml:"api_key_env"`
}

// buildEngine constructs the configured llm.Engine, or nil if no soft
// checkers need one ("none"/unset provider).
func buildEngine(cfg engineConfig) (llm.Engine, error) {
	switch cfg.Provider {
	case "", "none":
		return nil, nil
	case "anthropic":
		key := os.Getenv(envOrDefault(cfg.APIKey, "ANTHROPIC_API_KEY"))
		return llm.NewAnthropicEngineFromAPIKey(key, cfg.Model)
	case "openai":
		key := os.Getenv(envOrDefault(cfg.APIKey, "OPENAI_API_KEY"))
		return llm.NewOpenAIEngineFromAPIKey(key, cfg.Model)
	case "bedrock":
		return nil, fmt.Errorf("judge: provider %q requires an AWS SDK config loader; construct llm.BedrockEngine directly via the Go API for this backend", cfg.Provider)
	default:
		return nil, fmt.Errorf("judge: unknown llm engine provider %q", cfg.Provider)
	}
}

func envOrDefault(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}

func loadJudgeConfig(path string) (*judgeConfigFile, error) {
	if path == "" {
		return &judgeConfigFile{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading judge config: %w", err)
	}
	var cfg judgeConfigFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing judge config: %w", err)
	}
	return &cfg, nil
}

// judgeResult is the structured JSON result spec §6 requires: success,
// rationale/failure, per-event matches, wall-clock, virtual-time span.
type judgeResult struct {
	Success           bool              `json:"success"`
	Mode              string            `json:"mode"`
	Failure           string            `json:"failure,omitempty"`
	FailureCategory   string            `json:"failure_category,omitempty"`
	AgentIDToOracleID map[string]string `json:"agent_id_to_oracle_id,omitempty"`
	WallClockSeconds  float64           `json:"wall_clock_seconds"`
	VirtualTimeSpan   float64           `json:"virtual_time_span_seconds"`
}

func newJudgeCmd() *cobra.Command {
	var oraclePath, agentPath, configPath, outPath, mode, userTask string
	cmd := &cobra.Command{
		Use:   "judge",
		Short: "Judge an agent's recorded trace against an oracle trace",
		Long: `judge loads an oracle trace (produced by "aresim oracle") and an agent's
own completed-event trace, runs the configured judge over them, and writes
a structured JSON result: success, rationale/failure, per-event matches,
wall-clock, and virtual-time span.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJudge(cmd.Context(), oraclePath, agentPath, configPath, outPath, mode, userTask)
		},
	}
	cmd.Flags().StringVar(&oraclePath, "oracle", "", "path to the oracle trace JSON (required)")
	cmd.Flags().StringVar(&agentPath, "agent-trace", "", "path to the agent's completed-event trace JSON (required)")
	cmd.Flags().StringVar(&configPath, "judge-config", "", "path to the judge configuration YAML")
	cmd.Flags().StringVar(&outPath, "out", "", "path to write the result JSON (defaults to stdout)")
	cmd.Flags().StringVar(&mode, "mode", "graph", "judge to run: graph or incontext")
	cmd.Flags().StringVar(&userTask, "user-task", "", "the turn's user task description, passed to the graph judge (typically the scenario's TASK_HINT); this command configures no subtask extractor, so soft checkers do not use it")
	_ = cmd.MarkFlagRequired("oracle")
	_ = cmd.MarkFlagRequired("agent-trace")
	return cmd
}

func runJudge(ctx context.Context, oraclePath, agentPath, configPath, outPath, mode, userTask string) error {
	oracle, err := loadOracleTrace(oraclePath)
	if err != nil {
		return err
	}
	agentLog, err := loadAgentTrace(agentPath)
	if err != nil {
		return err
	}
	cfg, err := loadJudgeConfig(configPath)
	if err != nil {
		return err
	}
	engine, err := buildEngine(cfg.Engine)
	if err != nil {
		return err
	}

	start := time.Now()
	result := judgeResult{Mode: mode, VirtualTimeSpan: virtualTimeSpan(oracle, agentLog)}

	switch mode {
	case "graph":
		tj := tooljudge.New(tooljudge.Config{
			ArgCheckers:    cfg.PerToolArgToCheckerType,
			SoftCheckers:   cfg.PerToolSoftCheckerTypes,
			DefaultChecker: cfg.DefaultChecker,
			ScriptedParams: cfg.scriptedParams(),
			ToleranceArgs:  cfg.ToleranceArgs,
			Tolerance:      cfg.Tolerance,
			SoftVotes:      cfg.SoftVotes,
			Engine:         engine,
		})
		ej := eventjudge.New(eventjudge.Tolerances{
			PreToleranceSeconds:       orDefault(cfg.PreEventToleranceSeconds, 10),
			PostToleranceSeconds:      orDefault(cfg.PostEventToleranceSeconds, 25),
			CheckTimeThresholdSeconds: orDefault(cfg.CheckTimeThresholdSeconds, 1),
		}, tj)
		_, _, tracer := loggerMetricsTracer()
		gj := graphjudge.New(graphjudge.Config{ExtraSendMessageToUserAllowed: cfg.ExtraSendMessageToUserAllowed}, ej, tracer)

		judgment, err := gj.Judge(ctx, oracle, agentLog, userTask)
		if err != nil {
			return fmt.Errorf("running graph judge: %w", err)
		}
		result.Success = judgment.Success
		result.Failure = judgment.Failure
		result.FailureCategory = string(judgment.FailureCategory)
		result.AgentIDToOracleID = judgment.AgentIDToOracleID
	case "incontext":
		if engine == nil {
			return fmt.Errorf("judge: incontext mode requires an llm_engine configured")
		}
		j := incontext.New(engine, "")
		oracleCompleted := make([]*event.CompletedEvent, len(oracle))
		for i, o := range oracle {
			oracleCompleted[i] = &o.CompletedEvent
		}
		judgment, err := j.Judge(ctx, agentLog, oracleCompleted)
		if err != nil {
			return fmt.Errorf("running in-context judge: %w", err)
		}
		result.Success = judgment.Success
		result.Failure = judgment.Reason
	default:
		return fmt.Errorf("judge: unknown mode %q (want graph or incontext)", mode)
	}

	result.WallClockSeconds = time.Since(start).Seconds()

	out, err := sonic.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding judge result: %w", err)
	}
	if writeErr := writeOutput(outPath, out); writeErr != nil {
		return writeErr
	}
	if !result.Success {
		return errExitCode(1)
	}
	return nil
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

func virtualTimeSpan(oracle []*event.CompletedOracleEvent, agentLog []*event.CompletedEvent) float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	consider := func(t *float64) {
		if t == nil {
			return
		}
		if *t < lo {
			lo = *t
		}
		if *t > hi {
			hi = *t
		}
	}
	for _, o := range oracle {
		consider(o.EventTime)
	}
	for _, a := range agentLog {
		consider(a.EventTime)
	}
	if math.IsInf(lo, 1) {
		return 0
	}
	return hi - lo
}

func loadOracleTrace(path string) ([]*event.CompletedOracleEvent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading oracle trace: %w", err)
	}
	var out []*event.CompletedOracleEvent
	if err := sonic.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parsing oracle trace: %w", err)
	}
	return out, nil
}

func loadAgentTrace(path string) ([]*event.CompletedEvent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading agent trace: %w", err)
	}
	var out []*event.CompletedEvent
	if err := sonic.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parsing agent trace: %w", err)
	}
	return out, nil
}
