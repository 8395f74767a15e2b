// Package incontext implements the in-context judge (spec §4.11): a
// baseline that renders both the agent's and the oracle's full trajectories
// as bullet lists and asks an LLM, in one call, whether the agent's
// trajectory satisfies the task — no structural DAG matching at all. It
// exists mainly as a sanity-check baseline to compare the graph-per-event
// judge (simulation/validation/graphjudge) against.
package incontext

import (
	"context"
	"fmt"
	"strings"

	"github.com/are-sim/aresim/simulation/event"
	"github.com/are-sim/aresim/simulation/validation/llm"
)

// Judgment is the in-context judge's verdict. Unlike graphjudge.Judgment
// there is no per-event match map — the whole trace was judged as one.
type Judgment struct {
	Success bool
	Reason  string
}

// Judge wraps an llm.Engine configured with a rubric that asks whether an
// agent trace accomplished the given task as well as the oracle trace did.
type Judge struct {
	Engine llm.Engine
	Rubric string
}

// DefaultRubric is used when Judge.Rubric is left empty.
const DefaultRubric = "The REFERENCE is a bullet-point trace of the actions a correct " +
	"agent took to accomplish the user's task. The CANDIDATE is a bullet-point " +
	"trace of the actions an agent under evaluation actually took for the same " +
	"task. Judge whether the CANDIDATE trace accomplishes the same task as the " +
	"REFERENCE trace, even if it took a different path or extra incidental " +
	"steps, as long as nothing required was skipped and nothing forbidden was " +
	"done."

// New constructs a Judge. rubric overrides DefaultRubric when non-empty.
func New(engine llm.Engine, rubric string) *Judge {
	if rubric == "" {
		rubric = DefaultRubric
	}
	return &Judge{Engine: engine, Rubric: rubric}
}

// Judge renders both traces to bullet lists and asks the engine for a
// single yes/no verdict.
func (j *Judge) Judge(ctx context.Context, agentLog, oracleLog []*event.CompletedEvent) (*Judgment, error) {
	if j.Engine == nil {
		return nil, fmt.Errorf("incontext: no llm.Engine configured")
	}
	verdict, err := j.Engine.JudgeBool(ctx, llm.JudgeRequest{
		Rubric:    j.Rubric,
		Candidate: renderBullets(agentLog),
		Reference: renderBullets(oracleLog),
	})
	if err != nil {
		return nil, fmt.Errorf("incontext: %w", err)
	}
	if verdict {
		return &Judgment{Success: true}, nil
	}
	return &Judgment{Success: false, Reason: "llm judged the candidate trace as not accomplishing the reference task"}, nil
}

// renderBullets turns a completed-event trace into a human/LLM-readable
// bullet list, one line per event, skipping ones with no action (user/env
// events carry their intent through their dependents' args instead).
func renderBullets(log []*event.CompletedEvent) string {
	var b strings.Builder
	for _, e := range log {
		if e.Action == nil {
			continue
		}
		fmt.Fprintf(&b, "- %s(%v)", e.Action.ToolName(), e.Args())
		if e.Metadata.Failed() {
			fmt.Fprintf(&b, " [failed: %s]", e.Metadata.Exception)
		} else if e.Metadata.ReturnValue != nil {
			fmt.Fprintf(&b, " -> %v", e.Metadata.ReturnValue)
		}
		b.WriteString("\n")
	}
	return b.String()
}
