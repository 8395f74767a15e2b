// Package graphjudge implements the graph-per-event judge (spec §4.10):
// it checks the agent's recorded tool-call counts against the oracle's,
// then walks the oracle DAG in topological order, matching each oracle
// event against a candidate agent event (id equality for ENV/USER, the
// event judge for AGENT) while verifying that the match respects the
// oracle's causal ordering.
package graphjudge

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/codes"

	"github.com/are-sim/aresim/simulation/event"
	"github.com/are-sim/aresim/simulation/scenario"
	"github.com/are-sim/aresim/simulation/validation/eventjudge"
	"github.com/are-sim/aresim/telemetry"
)

// FailureCategory names why a Judgment failed, mirroring the spec's
// JudgeFailure taxonomy (§7). A Judgment is never a Go error — it is a
// structured, always-successfully-computed verdict.
type FailureCategory string

const (
	FailureToolCallCounts      FailureCategory = "ToolCallCountsFailure"
	FailureEnvOracleMatching   FailureCategory = "EnvOracleMatchingFailure"
	FailureOracleEventMatching FailureCategory = "OracleEventMatchingFailure"
)

// ComparisonFailure records one rejected match attempt, kept for
// diagnostics when an oracle event could not be matched against anything
// in the agent's log.
type ComparisonFailure struct {
	OracleEventID    string
	CandidateEventID string
	Reason           string
}

// Judgment is the graph judge's verdict.
type Judgment struct {
	Success            bool
	FailureCategory    FailureCategory
	Failure            string
	ComparisonFailures []ComparisonFailure
	AgentIDToOracleID  map[string]string
}

// Config controls the tool-call-count tolerance and which tool name is the
// turn-terminating user-facing message (spec §6
// extra_send_message_to_user_allowed, default 1).
type Config struct {
	// ExtraSendMessageToUserAllowed is a pointer so an explicit 0 (no extra
	// user-facing messages tolerated) is distinguishable from unset.
	ExtraSendMessageToUserAllowed *int
	SendMessageToUserTool         string
}

// Judge runs the graph-per-event algorithm.
type Judge struct {
	cfg    Config
	agent  *eventjudge.AgentJudge
	tracer telemetry.Tracer
}

// New constructs a Judge. ExtraSendMessageToUserAllowed defaults to 1 and
// SendMessageToUserTool to the AgentUserInterface tool name when left
// zero-valued. A nil tracer defaults to a no-op Tracer.
func New(cfg Config, agentJudge *eventjudge.AgentJudge, tracer telemetry.Tracer) *Judge {
	if cfg.SendMessageToUserTool == "" {
		cfg.SendMessageToUserTool = scenario.ToolSendMessageToUser
	}
	if cfg.ExtraSendMessageToUserAllowed == nil {
		one := 1
		cfg.ExtraSendMessageToUserAllowed = &one
	}
	if tracer == nil {
		tracer = telemetry.NewNoopTracer()
	}
	return &Judge{cfg: cfg, agent: agentJudge, tracer: tracer}
}

// Judge compares oracleEvents (a completed oracle-mode trajectory, already
// topologically unordered — Judge sorts it) against agentLog (the actual
// agent run's completed events, in (event_time, event_id) order as
// recorded by the environment). userTask, if non-empty, is passed through
// to the tool judge's subtask extractor.
func (j *Judge) Judge(ctx context.Context, oracleEvents []*event.CompletedOracleEvent, agentLog []*event.CompletedEvent, userTask string) (*Judgment, error) {
	if res := j.checkToolCallCounts(oracleEvents, agentLog); res != nil {
		return res, nil
	}

	order, err := topoSort(oracleEvents)
	if err != nil {
		return nil, fmt.Errorf("graphjudge: %w", err)
	}

	agentByID := make(map[string]*event.CompletedEvent, len(agentLog))
	for _, a := range agentLog {
		agentByID[a.EventID] = a
	}

	oracleByID := make(map[string]*event.CompletedOracleEvent, len(oracleEvents))
	for _, o := range oracleEvents {
		oracleByID[o.EventID] = o
	}

	oracleSeq := make([]*event.CompletedEvent, len(order))
	for i, o := range order {
		oracleSeq[i] = &o.CompletedEvent
	}
	oracleTurnOf := computeTurnIndex(oracleSeq, j.cfg.SendMessageToUserTool)
	agentTurnOf := computeTurnIndex(agentLog, j.cfg.SendMessageToUserTool)

	oracleIDToAgentID := map[string]string{}
	agentIDToOracleID := map[string]string{}
	oracleIDToAgentIdx := map[string]int{}
	usedAgentIdx := map[int]bool{}

	lookup := func(id string) (*event.CompletedEvent, bool) {
		if agentID, ok := oracleIDToAgentID[id]; ok {
			id = agentID
		}
		a, ok := agentByID[id]
		return a, ok
	}

	var failures []ComparisonFailure

	for _, oracle := range order {
		// attempt runs the whole match attempt for one oracle event under its
		// own span; done reports whether Judge should return (result, err)
		// immediately instead of continuing to the next oracle event.
		attempt := func() (result *Judgment, err error, done bool) {
			matchCtx, span := j.tracer.Start(ctx, "aresim.oracle_event_match")
			span.AddEvent("oracle_event", "id", oracle.EventID, "type", string(oracle.EventType))
			defer span.End()

			resolvedArgs, err := event.ResolveArgPlaceholders(oracle.Args(), lookup)
			if err != nil {
				failures = append(failures, ComparisonFailure{OracleEventID: oracle.EventID, Reason: "placeholder resolution: " + err.Error()})
				return nil, nil, false
			}
			if oracle.Action != nil {
				oracle.Action.ResolvedArgs = resolvedArgs
			}

			switch oracle.EventType {
			case event.TypeUser, event.TypeEnv:
				candidate, _ := agentByID[oracle.EventID]
				res := eventjudge.JudgeEnvUser(oracle, candidate)
				if !res.Matched {
					span.SetStatus(codes.Error, res.TimeReason)
					return &Judgment{
						Success:            false,
						FailureCategory:    FailureEnvOracleMatching,
						Failure:            fmt.Sprintf("oracle event %s: %s", oracle.EventID, res.TimeReason),
						ComparisonFailures: failures,
						AgentIDToOracleID:  agentIDToOracleID,
					}, nil, true
				}
				oracleIDToAgentID[oracle.EventID] = candidate.EventID
				agentIDToOracleID[candidate.EventID] = oracle.EventID
				for idx, a := range agentLog {
					if a.EventID == candidate.EventID {
						oracleIDToAgentIdx[oracle.EventID] = idx
						usedAgentIdx[idx] = true
						break
					}
				}

			default: // AGENT
				oracleTurn := oracleTurnOf[oracle.EventID]
				matched := false
				for idx, candidate := range agentLog {
					if usedAgentIdx[idx] || candidate.Metadata.Failed() {
						continue
					}
					if agentTurnOf[candidate.EventID] != oracleTurn {
						continue
					}
					if !j.causallyEligible(oracle, candidate, idx, oracleIDToAgentIdx) {
						continue
					}
					timing := j.resolveTiming(oracle, oracleByID, candidate, idx, agentLog, oracleIDToAgentIdx)
					res, err := j.agent.Judge(matchCtx, oracle, timing, candidate, userTask)
					if err != nil {
						return nil, fmt.Errorf("graphjudge: oracle event %s vs agent event %s: %w", oracle.EventID, candidate.EventID, err), true
					}
					if !res.Matched {
						reason := res.TimeReason
						if reason == "" && res.Tool != nil {
							reason = fmt.Sprintf("%d arg mismatch(es)", len(res.Tool.HardFailures)+len(res.Tool.SoftFailures))
						}
						failures = append(failures, ComparisonFailure{OracleEventID: oracle.EventID, CandidateEventID: candidate.EventID, Reason: reason})
						continue
					}
					oracleIDToAgentID[oracle.EventID] = candidate.EventID
					agentIDToOracleID[candidate.EventID] = oracle.EventID
					oracleIDToAgentIdx[oracle.EventID] = idx
					usedAgentIdx[idx] = true
					matched = true
					break
				}
				if !matched {
					span.SetStatus(codes.Error, "no agent event matched")
					return &Judgment{
						Success:            false,
						FailureCategory:    FailureOracleEventMatching,
						Failure:            fmt.Sprintf("no agent event matched oracle event %s (%s)", oracle.EventID, oracle.ToolName()),
						ComparisonFailures: failures,
						AgentIDToOracleID:  agentIDToOracleID,
					}, nil, true
				}
			}
			return nil, nil, false
		}

		if result, err, done := attempt(); done {
			return result, err
		}
	}

	return &Judgment{Success: true, AgentIDToOracleID: agentIDToOracleID}, nil
}

// causallyEligible reports whether candidate (at log index idx) may be
// matched to oracle: every oracle dependency must already be matched, and
// to an agent event strictly earlier in the log than idx.
func (j *Judge) causallyEligible(oracle *event.CompletedOracleEvent, candidate *event.CompletedEvent, idx int, oracleIDToAgentIdx map[string]int) bool {
	for _, depID := range oracle.Dependencies {
		depIdx, ok := oracleIDToAgentIdx[depID]
		if !ok {
			return false
		}
		if depIdx >= idx {
			return false
		}
	}
	return true
}

// resolveTiming computes the oracle/agent relative-time deltas the event
// judge's time check compares, from each side's own parent-resolution
// rule (spec §4.9).
func (j *Judge) resolveTiming(oracle *event.CompletedOracleEvent, oracleByID map[string]*event.CompletedOracleEvent, candidate *event.CompletedEvent, candidateIdx int, agentLog []*event.CompletedEvent, oracleIDToAgentIdx map[string]int) eventjudge.TimingInput {
	oracleParentMax := 0.0
	for _, depID := range oracle.Dependencies {
		dep, ok := oracleByID[depID]
		if ok && dep.EventTime != nil && *dep.EventTime > oracleParentMax {
			oracleParentMax = *dep.EventTime
		}
	}
	var oracleTime float64
	if oracle.EventTime != nil {
		oracleTime = *oracle.EventTime
	}

	agentParentMax := 0.0
	for _, depID := range oracle.Dependencies {
		depIdx, ok := oracleIDToAgentIdx[depID]
		if !ok {
			continue
		}
		dep := agentLog[depIdx]
		if dep.EventTime != nil && *dep.EventTime > agentParentMax {
			agentParentMax = *dep.EventTime
		}
	}
	var agentTime float64
	if candidate.EventTime != nil {
		agentTime = *candidate.EventTime
	}

	t := eventjudge.TimingInput{
		OracleRelativeSeconds: oracleTime - oracleParentMax,
		AgentRelativeSeconds:  agentTime - agentParentMax,
		AgentAbsoluteSeconds:  agentTime,
	}
	if oracle.EventRelativeTime == nil {
		abs := oracleTime
		t.OracleAbsoluteSeconds = &abs
	}
	return t
}

// checkToolCallCounts implements step 2 of spec §4.10: the agent's
// write-operation tool-call multiset (excluding send_message_to_user) must
// equal the oracle's exactly, and the agent's send_message_to_user count
// must be at least the oracle's and no more than oracle + the configured
// tolerance. Counted globally across the whole run, not reset per turn —
// turn membership only affects which oracle event a given call may causally
// follow, not how many of each tool are expected overall.
func (j *Judge) checkToolCallCounts(oracleEvents []*event.CompletedOracleEvent, agentLog []*event.CompletedEvent) *Judgment {
	agentCounts, agentAUI := toolCounts(agentLog, j.cfg.SendMessageToUserTool)
	oracleSlice := make([]*event.CompletedEvent, len(oracleEvents))
	for i, o := range oracleEvents {
		oracleSlice[i] = &o.CompletedEvent
	}
	oracleCounts, oracleAUI := toolCounts(oracleSlice, j.cfg.SendMessageToUserTool)

	extra := *j.cfg.ExtraSendMessageToUserAllowed

	if !multisetsEqual(agentCounts, oracleCounts) {
		return &Judgment{
			Success:         false,
			FailureCategory: FailureToolCallCounts,
			Failure:         fmt.Sprintf("tool-call counts differ: agent=%v oracle=%v", agentCounts, oracleCounts),
		}
	}
	if agentAUI < oracleAUI || agentAUI > oracleAUI+extra {
		return &Judgment{
			Success:         false,
			FailureCategory: FailureToolCallCounts,
			Failure:         fmt.Sprintf("send_message_to_user count %d outside [%d, %d]", agentAUI, oracleAUI, oracleAUI+extra),
		}
	}
	return nil
}

// computeTurnIndex assigns each event the index of the conversation turn it
// belongs to, over an already causally/time-ordered sequence (the oracle's
// topological order, or the agent log's (event_time, event_id) order): a
// turn ends the moment a send_message_to_user AGENT event is processed, the
// same rule scenario.computeTurnIndex applies to the authoring graph. Step
// 1 of spec §4.10 extracts *per-turn* agent events before matching, so the
// graph judge computes its own turn index over the recorded log rather
// than the authoring graph's turnIdx — an agent's own event ids never
// appear in that map.
func computeTurnIndex(events []*event.CompletedEvent, sendMessageToUserTool string) map[string]int {
	turnIdx := make(map[string]int, len(events))
	turn := 0
	for _, e := range events {
		turnIdx[e.EventID] = turn
		if e.EventType == event.TypeAgent && e.Action != nil && e.Action.ToolName() == sendMessageToUserTool {
			turn++
		}
	}
	return turnIdx
}

// toolCounts returns the write-operation tool-name multiset (excluding
// auiTool) and the separate count of auiTool calls, over non-failed events.
func toolCounts(events []*event.CompletedEvent, auiTool string) (map[string]int, int) {
	counts := map[string]int{}
	aui := 0
	for _, e := range events {
		if e.Action == nil || e.Metadata.Failed() || e.Action.OperationType != event.OperationWrite {
			continue
		}
		name := e.Action.ToolName()
		if name == auiTool {
			aui++
			continue
		}
		counts[name]++
	}
	return counts, aui
}

func multisetsEqual(a, b map[string]int) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

// topoSort orders a completed oracle trajectory so every event follows all
// of its dependencies, using Kahn's algorithm over the id-based
// Dependencies lists CompletedOracleEvent already carries.
func topoSort(events []*event.CompletedOracleEvent) ([]*event.CompletedOracleEvent, error) {
	byID := make(map[string]*event.CompletedOracleEvent, len(events))
	inDegree := make(map[string]int, len(events))
	successors := make(map[string][]string, len(events))
	var order []string
	for _, e := range events {
		byID[e.EventID] = e
		order = append(order, e.EventID)
	}
	for _, e := range events {
		n := 0
		for _, dep := range e.Dependencies {
			if _, ok := byID[dep]; ok {
				n++
				successors[dep] = append(successors[dep], e.EventID)
			}
		}
		inDegree[e.EventID] = n
	}

	var ready []string
	for _, id := range order {
		if inDegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	var out []*event.CompletedOracleEvent
	seen := map[string]bool{}
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, byID[id])
		for _, succ := range successors[id] {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				ready = append(ready, succ)
			}
		}
	}

	if len(out) != len(events) {
		return nil, fmt.Errorf("oracle event graph has a cycle")
	}
	return out, nil
}
