// Package tooljudge implements the "mild" tool judge (spec §4.8): hard
// per-argument checkers run first and unconditionally, then — only if
// every hard check passed — any soft (LLM-based) checkers configured for
// the tool run, unless scripted mode (event_id_to_checker_params) disables
// them for this specific event.
package tooljudge

import (
	"context"
	"fmt"
	"sort"

	"github.com/are-sim/aresim/simulation/validation/checker"
	"github.com/are-sim/aresim/simulation/validation/llm"
)

// SubtaskExtractorFunc turns a turn's full user task description into a
// one-sentence goal scoped to a single tool call. Implemented as an LLM
// call behind this narrow interface, same shape as llm.Engine.
type SubtaskExtractorFunc func(ctx context.Context, engine llm.Engine, userTask, toolName string) (string, error)

// CheckerParams overrides the default checker configuration for one
// specific oracle event id — scripted mode (spec §4.8, §6
// event_id_to_checker_params). A non-nil ArgCheckers entry wins over the
// tool-level default for that arg; SkipSoft unconditionally disables the
// soft pass for this event regardless of the tool's configured soft
// checkers.
type CheckerParams struct {
	ArgCheckers map[string]string
	SkipSoft    bool
}

// Config is the per-tool checker configuration a judge run is built from.
type Config struct {
	// ArgCheckers maps tool name -> arg name -> hard checker name (spec
	// §6 per_tool_arg_to_checker_type). An arg absent from the map falls
	// back to DefaultChecker.
	ArgCheckers map[string]map[string]string
	// SoftCheckers maps tool name -> soft checker names to run after the
	// hard pass succeeds (spec §6 per_tool_soft_checker_types).
	SoftCheckers map[string][]string
	// DefaultChecker is used for any arg with no explicit entry in
	// ArgCheckers. "eq" matches the original's fallback.
	DefaultChecker string
	// ScriptedParams, keyed by oracle event id, puts the judge in scripted
	// mode for that event: the soft pass is skipped and/or a per-event
	// arg-checker override applies (spec §4.8, §6).
	ScriptedParams map[string]CheckerParams
	// ToleranceArgs maps tool name -> the tolerance set ListAttendees strips
	// for that tool's list_attendees args, replacing Tolerance for that
	// tool; Tolerance is the set used for every other tool (typically
	// {user_full_name}). Which args are stripped is decided by assigning
	// them the list_attendees checker.
	ToleranceArgs map[string][]string
	Tolerance     []string
	// SoftVotes is the number of independent soft-checker calls to make
	// per checker; the majority verdict wins. 1 (the default) makes a
	// single call.
	SoftVotes int
	// Engine is the LLM backend soft checkers consult. Required only if
	// any tool has soft checkers configured and is not scripted-skipped.
	Engine llm.Engine
	// SubtaskExtractor, if set, is consulted once per judged event that
	// reaches the soft pass; its output is recorded on Result.Subtask. The
	// soft checkers are not given it: each uses its own fixed rubric.
	SubtaskExtractor SubtaskExtractorFunc
}

// ArgFailure records one argument that failed its hard checker.
type ArgFailure struct {
	Arg     string
	Checker string
	Agent   any
	Oracle  any
}

// Result is the outcome of judging one tool call's arguments against the
// oracle's expected arguments.
type Result struct {
	Matched      bool
	HardFailures []ArgFailure
	SoftRun      []string
	SoftFailures []string
	// Subtask is the one-sentence goal the SubtaskExtractor produced for
	// this tool call, when one was configured and ran. Empty otherwise.
	Subtask string
}

// Judge runs the mild tool judge for one event.
type Judge struct {
	cfg Config
}

// New constructs a Judge from cfg, defaulting DefaultChecker to "eq" and
// SoftVotes to 1 when left zero.
func New(cfg Config) *Judge {
	if cfg.DefaultChecker == "" {
		cfg.DefaultChecker = "eq"
	}
	if cfg.SoftVotes <= 0 {
		cfg.SoftVotes = 1
	}
	return &Judge{cfg: cfg}
}

// Judge compares agentArgs against oracleArgs for toolName, using eventID
// to resolve scripted-mode overrides. Only arguments present in oracleArgs
// are checked — an oracle event's args describe the expected call, and an
// agent is free to pass additional arguments the oracle did not care about.
func (j *Judge) Judge(ctx context.Context, eventID, userTask, toolName string, agentArgs, oracleArgs map[string]any) (*Result, error) {
	params, scripted := j.cfg.ScriptedParams[eventID]

	res := &Result{Matched: true}
	for _, arg := range sortedArgNames(oracleArgs) {
		checkerName := j.checkerFor(scripted, params, toolName, arg)
		fn, ok := checker.Lookup(checkerName)
		if !ok {
			return nil, fmt.Errorf("tooljudge: event %s arg %s: unknown checker %q", eventID, arg, checkerName)
		}
		if checkerName == "list_attendees" {
			fn = checker.ListAttendees(j.cfg.toleranceFor(toolName))
		}
		ok2, err := fn(agentArgs[arg], oracleArgs[arg])
		if err != nil {
			return nil, fmt.Errorf("tooljudge: event %s arg %s: %w", eventID, arg, err)
		}
		if !ok2 {
			res.Matched = false
			res.HardFailures = append(res.HardFailures, ArgFailure{
				Arg: arg, Checker: checkerName, Agent: agentArgs[arg], Oracle: oracleArgs[arg],
			})
		}
	}
	if !res.Matched {
		return res, nil
	}

	if scripted && params.SkipSoft {
		return res, nil
	}
	softNames := j.cfg.SoftCheckers[toolName]
	if len(softNames) == 0 {
		return res, nil
	}

	if j.cfg.SubtaskExtractor != nil && userTask != "" {
		extracted, err := j.cfg.SubtaskExtractor(ctx, j.cfg.Engine, userTask, toolName)
		if err == nil && extracted != "" {
			res.Subtask = extracted
		}
	}

	for _, name := range softNames {
		soft, ok := checker.LookupSoft(name)
		if !ok {
			return nil, fmt.Errorf("tooljudge: event %s: unknown soft checker %q", eventID, name)
		}
		res.SoftRun = append(res.SoftRun, name)
		verdict, err := j.vote(ctx, soft, agentArgs, oracleArgs, arg0(oracleArgs))
		if err != nil {
			return nil, fmt.Errorf("tooljudge: event %s soft checker %s: %w", eventID, name, err)
		}
		if !verdict {
			res.Matched = false
			res.SoftFailures = append(res.SoftFailures, name)
		}
	}
	return res, nil
}

// vote runs soft SoftVotes times and returns the majority verdict. Soft
// checkers judge whole free-form text, not a single arg, so they are
// passed the full agent/oracle argument maps rendered to their primary
// textual argument (the first oracle arg, by convention content/message
// tools declare their body as the sole checked argument).
func (j *Judge) vote(ctx context.Context, fn checker.SoftFunc, agentArgs, oracleArgs map[string]any, key string) (bool, error) {
	yes := 0
	for i := 0; i < j.cfg.SoftVotes; i++ {
		ok, err := fn(ctx, j.cfg.Engine, agentArgs[key], oracleArgs[key])
		if err != nil {
			return false, err
		}
		if ok {
			yes++
		}
	}
	return yes*2 > j.cfg.SoftVotes, nil
}

func (j *Judge) checkerFor(scripted bool, params CheckerParams, toolName, arg string) string {
	if scripted {
		if c, ok := params.ArgCheckers[arg]; ok {
			return c
		}
	}
	if byArg, ok := j.cfg.ArgCheckers[toolName]; ok {
		if c, ok := byArg[arg]; ok {
			return c
		}
	}
	return j.cfg.DefaultChecker
}

func (c Config) toleranceFor(toolName string) []string {
	if tol, ok := c.ToleranceArgs[toolName]; ok {
		return tol
	}
	return c.Tolerance
}

func sortedArgNames(args map[string]any) []string {
	out := make([]string, 0, len(args))
	for k := range args {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// arg0 returns the arguments map's lexicographically first key, used as the
// default textual argument for a soft checker that was not told which
// specific arg to evaluate.
func arg0(args map[string]any) string {
	keys := sortedArgNames(args)
	if len(keys) == 0 {
		return ""
	}
	return keys[0]
}
