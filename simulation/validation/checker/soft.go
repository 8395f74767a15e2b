package checker

import (
	"context"
	"fmt"

	"github.com/are-sim/aresim/simulation/validation/llm"
)

// SoftFunc is a checker that needs judgement calls an LLM makes rather than
// a deterministic comparison — content/signature/tone/sanity checks on
// free-form agent text.
type SoftFunc func(ctx context.Context, engine llm.Engine, agent, oracle any) (bool, error)

// SoftRegistry maps a soft checker name to its SoftFunc. Each delegates to
// the configured llm.Engine with a checker-specific judging prompt.
var SoftRegistry = map[string]SoftFunc{
	"content":      Content,
	"signature":    Signature,
	"placeholder":  Placeholder,
	"sanity":       Sanity,
	"tone":         Tone,
	"email":        Email,
	"message":      Message,
	"event":        CalendarEvent,
	"cab":          CabRide,
	"user_message": UserMessage,
}

// LookupSoft resolves a soft checker by name.
func LookupSoft(name string) (SoftFunc, bool) {
	f, ok := SoftRegistry[name]
	return f, ok
}

// Content asks whether agent conveys the same substantive information as
// oracle, tolerating paraphrase.
func Content(ctx context.Context, engine llm.Engine, agent, oracle any) (bool, error) {
	return judge(ctx, engine, "content",
		"Does the CANDIDATE text convey the same substantive information as the "+
			"REFERENCE text? Paraphrasing, reordering and additional harmless detail "+
			"are fine; missing or contradictory facts are not.", agent, oracle)
}

// Signature asks whether agent's message was signed off in a manner
// consistent with oracle's expected signature convention.
func Signature(ctx context.Context, engine llm.Engine, agent, oracle any) (bool, error) {
	return judge(ctx, engine, "signature",
		"Does the CANDIDATE text close with a signature consistent with the "+
			"REFERENCE signature convention (same signer, same register)?", agent, oracle)
}

// Placeholder asks whether agent correctly filled in a template whose slots
// are described in oracle.
func Placeholder(ctx context.Context, engine llm.Engine, agent, oracle any) (bool, error) {
	return judge(ctx, engine, "placeholder",
		"Does the CANDIDATE text fill in every templated slot described by the "+
			"REFERENCE with a plausible, non-placeholder value?", agent, oracle)
}

// Sanity asks whether agent is a reasonable, well-formed response at all,
// independent of oracle's exact wording.
func Sanity(ctx context.Context, engine llm.Engine, agent, oracle any) (bool, error) {
	return judge(ctx, engine, "sanity",
		"Is the CANDIDATE text a coherent, sensible response given the REFERENCE "+
			"as context, even if worded very differently?", agent, oracle)
}

// Tone asks whether agent's register/tone matches oracle's.
func Tone(ctx context.Context, engine llm.Engine, agent, oracle any) (bool, error) {
	return judge(ctx, engine, "tone",
		"Does the CANDIDATE text's tone and register (formal/casual, warmth, "+
			"urgency) match the REFERENCE's?", agent, oracle)
}

// Email asks whether an agent's composed email is a faithful equivalent of
// the oracle's expected email (same recipients' intent, subject and body
// substance — not character-for-character).
func Email(ctx context.Context, engine llm.Engine, agent, oracle any) (bool, error) {
	return judge(ctx, engine, "email",
		"Both CANDIDATE and REFERENCE describe an email (subject and body). Does "+
			"the CANDIDATE email convey the same substantive request or information "+
			"as the REFERENCE email, allowing for different wording?", agent, oracle)
}

// Message asks the same question as Email but for a short direct/chat
// message rather than a full email.
func Message(ctx context.Context, engine llm.Engine, agent, oracle any) (bool, error) {
	return judge(ctx, engine, "message",
		"Both CANDIDATE and REFERENCE describe a chat message. Does the CANDIDATE "+
			"message convey the same substantive content as the REFERENCE message?",
		agent, oracle)
}

// CalendarEvent asks whether a created calendar event matches the oracle's
// expected event in substance (title/purpose and attendee intent), leaving
// exact date/time comparison to the datetime hard checker on the sibling
// argument.
func CalendarEvent(ctx context.Context, engine llm.Engine, agent, oracle any) (bool, error) {
	return judge(ctx, engine, "event",
		"Both CANDIDATE and REFERENCE describe a calendar event's title or "+
			"description. Do they describe the same occasion?", agent, oracle)
}

// CabRide asks whether a booked cab ride matches the oracle's expected ride
// in substance (pickup/dropoff intent), leaving exact address string
// comparison to the path/eq_str_strip hard checkers on sibling arguments.
func CabRide(ctx context.Context, engine llm.Engine, agent, oracle any) (bool, error) {
	return judge(ctx, engine, "cab",
		"Both CANDIDATE and REFERENCE describe a cab ride request. Do they "+
			"describe the same trip intent (same purpose, same general "+
			"origin/destination)?", agent, oracle)
}

// UserMessage asks whether the agent's final user-facing reply satisfies
// what the oracle's reply was meant to accomplish — the broadest of the
// domain checkers, used on send_message_to_user content.
func UserMessage(ctx context.Context, engine llm.Engine, agent, oracle any) (bool, error) {
	return judge(ctx, engine, "user_message",
		"Both CANDIDATE and REFERENCE are messages sent to the user. Does the "+
			"CANDIDATE message accomplish the same communicative goal as the "+
			"REFERENCE message, even if phrased very differently?", agent, oracle)
}

func judge(ctx context.Context, engine llm.Engine, name, rubric string, agent, oracle any) (bool, error) {
	if engine == nil {
		return false, fmt.Errorf("checker %s: no llm.Engine configured", name)
	}
	verdict, err := engine.JudgeBool(ctx, llm.JudgeRequest{
		Rubric:    rubric,
		Candidate: fmt.Sprint(agent),
		Reference: fmt.Sprint(oracle),
	})
	if err != nil {
		return false, fmt.Errorf("checker %s: %w", name, err)
	}
	return verdict, nil
}
