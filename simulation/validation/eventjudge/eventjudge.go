// Package eventjudge implements the per-event comparison the graph judge
// delegates to once it has picked a candidate agent event for an oracle
// event: id equality for ENV/USER, and timing-plus-tool-argument matching
// for AGENT events (spec §4.9).
package eventjudge

import (
	"context"
	"fmt"

	"github.com/are-sim/aresim/simulation/event"
	"github.com/are-sim/aresim/simulation/validation/tooljudge"
)

// Tolerances bounds how far an agent event's relative (or absolute) time
// may drift from the oracle's expected time and still be considered a
// match. Defaults from spec §4.9: pre 10s, post 25s, threshold 1s.
type Tolerances struct {
	PreToleranceSeconds       float64
	PostToleranceSeconds      float64
	CheckTimeThresholdSeconds float64
}

// DefaultTolerances returns the spec's default tolerance values.
func DefaultTolerances() Tolerances {
	return Tolerances{PreToleranceSeconds: 10, PostToleranceSeconds: 25, CheckTimeThresholdSeconds: 1}
}

// Result is the outcome of comparing one oracle event against one
// candidate agent event.
type Result struct {
	Matched    bool
	TimeReason string
	Tool       *tooljudge.Result
}

// JudgeEnvUser matches an ENV or USER oracle event against a candidate
// agent event by id equality alone — these events are environment-driven
// or user-authored, not agent choices, so there is nothing else to judge.
func JudgeEnvUser(oracle *event.CompletedOracleEvent, agent *event.CompletedEvent) *Result {
	if agent == nil {
		return &Result{Matched: false, TimeReason: "no candidate agent event"}
	}
	if oracle.EventID != agent.EventID {
		return &Result{Matched: false, TimeReason: fmt.Sprintf("event id %s does not equal %s", agent.EventID, oracle.EventID)}
	}
	return &Result{Matched: true}
}

// AgentJudge matches AGENT oracle events: a time check (when the oracle's
// relative delay exceeds the threshold, or it carries an explicit
// comparator) followed by delegation to the tool judge for the action's
// arguments.
type AgentJudge struct {
	Tol   Tolerances
	Tools *tooljudge.Judge
}

// New constructs an AgentJudge with the given tolerances and tool judge.
func New(tol Tolerances, tools *tooljudge.Judge) *AgentJudge {
	return &AgentJudge{Tol: tol, Tools: tools}
}

// TimingInput carries the resolved relative/absolute times the caller (the
// graph judge, which alone knows the oracle and agent parent events) has
// already computed for this candidate pairing.
type TimingInput struct {
	OracleRelativeSeconds float64
	AgentRelativeSeconds  float64
	// OracleAbsoluteSeconds, when non-nil, makes the time check compare
	// absolute times instead of relative ones (spec §4.9: "If oracle has
	// absolute_event_time").
	OracleAbsoluteSeconds *float64
	AgentAbsoluteSeconds  float64
}

// Judge compares oracle against agent: first the time check (skipped
// unless the oracle's relative delay exceeds the configured threshold or
// it carries an explicit comparator), then the tool judge over the
// action's effective arguments.
func (j *AgentJudge) Judge(ctx context.Context, oracle *event.CompletedOracleEvent, timing TimingInput, agent *event.CompletedEvent, userTask string) (*Result, error) {
	if agent == nil {
		return &Result{Matched: false, TimeReason: "no candidate agent event"}, nil
	}

	needsTimeCheck := timing.OracleRelativeSeconds > j.Tol.CheckTimeThresholdSeconds || oracle.TimeComparator != ""
	if needsTimeCheck {
		ok, reason := j.checkTime(oracle.TimeComparator, timing)
		if !ok {
			return &Result{Matched: false, TimeReason: reason}, nil
		}
	}

	toolRes, err := j.Tools.Judge(ctx, oracle.EventID, userTask, oracle.ToolName(), agent.Args(), oracle.Args())
	if err != nil {
		return nil, fmt.Errorf("eventjudge: event %s: %w", oracle.EventID, err)
	}
	return &Result{Matched: toolRes.Matched, Tool: toolRes}, nil
}

func (j *AgentJudge) checkTime(cmp event.TimeComparator, t TimingInput) (bool, string) {
	oracleVal, agentVal := t.OracleRelativeSeconds, t.AgentRelativeSeconds
	if t.OracleAbsoluteSeconds != nil {
		oracleVal, agentVal = *t.OracleAbsoluteSeconds, t.AgentAbsoluteSeconds
	}

	switch cmp {
	case event.ComparatorLessThan:
		if agentVal > oracleVal+j.Tol.PostToleranceSeconds {
			return false, fmt.Sprintf("agent time %v exceeds oracle bound %v (+%v tolerance)", agentVal, oracleVal, j.Tol.PostToleranceSeconds)
		}
		return true, ""
	case event.ComparatorGreaterThan:
		if agentVal < oracleVal-j.Tol.PreToleranceSeconds {
			return false, fmt.Sprintf("agent time %v is before oracle bound %v (-%v tolerance)", agentVal, oracleVal, j.Tol.PreToleranceSeconds)
		}
		return true, ""
	default: // ComparatorEqual, or no comparator but over the threshold
		lo, hi := oracleVal-j.Tol.PreToleranceSeconds, oracleVal+j.Tol.PostToleranceSeconds
		if agentVal < lo || agentVal > hi {
			return false, fmt.Sprintf("agent time %v outside [%v, %v] window around oracle time %v", agentVal, lo, hi, oracleVal)
		}
		return true, ""
	}
}
