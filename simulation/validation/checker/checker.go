// Package checker implements the hard, synchronous per-argument checkers
// the tool judge runs before ever consulting an LLM: exact/fuzzy equality,
// unordered collection comparison, datetime/phone/path normalization, and
// substring containment.
package checker

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Func compares an agent-produced argument value against the oracle's
// expected value and reports whether they match.
type Func func(agent, oracle any) (bool, error)

// Registry maps a checker name (as configured per tool/arg in a scenario's
// judge config) to its Func.
var Registry = map[string]Func{
	"eq":                  Eq,
	"unordered_list":      UnorderedList,
	"list_attendees":      ListAttendees(nil),
	"datetime":            DateTime,
	"phone_number":        PhoneNumber,
	"eq_str_strip":        EqStrStrip,
	"path":                Path,
	"unordered_path_list": UnorderedPathList,
	"contain_any":         ContainAny,
	"contain_all":         ContainAll,
}

// Lookup resolves a checker by name.
func Lookup(name string) (Func, bool) {
	f, ok := Registry[name]
	return f, ok
}

var nonDigits = regexp.MustCompile(`\D`)

// Eq compares two values for equality after numeric-string coercion.
// Both-null is treated as a match.
func Eq(agent, oracle any) (bool, error) {
	if agent == nil && oracle == nil {
		return true, nil
	}
	if agent == nil || oracle == nil {
		return false, nil
	}
	if af, aok := toFloat(agent); aok {
		if of, ook := toFloat(oracle); ook {
			return af == of, nil
		}
	}
	return fmt.Sprint(agent) == fmt.Sprint(oracle), nil
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// UnorderedList compares two values as multisets, ignoring order. Null is
// treated as an empty list.
func UnorderedList(agent, oracle any) (bool, error) {
	a := toStringMultiset(agent, nil)
	o := toStringMultiset(oracle, nil)
	return multisetsEqual(a, o), nil
}

// ListAttendees returns a checker like UnorderedList but that first removes
// every member of tolerance (case-insensitively) from both sides — typically
// the scenario's own user identity, which an agent may or may not include
// explicitly in an attendee list.
func ListAttendees(tolerance []string) Func {
	return func(agent, oracle any) (bool, error) {
		a := toStringMultiset(agent, tolerance)
		o := toStringMultiset(oracle, tolerance)
		return multisetsEqual(a, o), nil
	}
}

func toStringMultiset(v any, tolerance []string) map[string]int {
	excluded := make(map[string]bool, len(tolerance))
	for _, t := range tolerance {
		excluded[strings.ToLower(t)] = true
	}
	out := map[string]int{}
	for _, s := range toStringSlice(v) {
		if excluded[strings.ToLower(s)] {
			continue
		}
		out[s]++
	}
	return out
}

func toStringSlice(v any) []string {
	switch x := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]string, len(x))
		for i, item := range x {
			out[i] = fmt.Sprint(item)
		}
		return out
	case []string:
		return x
	default:
		return []string{fmt.Sprint(x)}
	}
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

const layoutDateTime = "2006-01-02 15:04:05"

// DateTime parses both values as "YYYY-MM-DD HH:MM:SS" and compares the
// resulting instants.
func DateTime(agent, oracle any) (bool, error) {
	at, err := time.Parse(layoutDateTime, fmt.Sprint(agent))
	if err != nil {
		return false, fmt.Errorf("parsing agent datetime: %w", err)
	}
	ot, err := time.Parse(layoutDateTime, fmt.Sprint(oracle))
	if err != nil {
		return false, fmt.Errorf("parsing oracle datetime: %w", err)
	}
	return at.Equal(ot), nil
}

// PhoneNumber compares two phone numbers after stripping every non-digit
// character.
func PhoneNumber(agent, oracle any) (bool, error) {
	a := nonDigits.ReplaceAllString(fmt.Sprint(agent), "")
	o := nonDigits.ReplaceAllString(fmt.Sprint(oracle), "")
	return a == o, nil
}

// EqStrStrip compares two strings after trimming whitespace; null is
// treated as empty string.
func EqStrStrip(agent, oracle any) (bool, error) {
	a := strings.TrimSpace(stringOrEmpty(agent))
	o := strings.TrimSpace(stringOrEmpty(oracle))
	return a == o, nil
}

func stringOrEmpty(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// Path compares two filesystem paths after normalization (collapsing
// repeated separators and stripping a leading "/").
func Path(agent, oracle any) (bool, error) {
	return normalizePath(fmt.Sprint(agent)) == normalizePath(fmt.Sprint(oracle)), nil
}

func normalizePath(p string) string {
	cleaned := path.Clean(p)
	return strings.TrimPrefix(cleaned, "/")
}

// UnorderedPathList compares two path lists as sets after normalizing each
// element.
func UnorderedPathList(agent, oracle any) (bool, error) {
	a := normalizeAndSet(toStringSlice(agent))
	o := normalizeAndSet(toStringSlice(oracle))
	return multisetsEqual(a, o), nil
}

func normalizeAndSet(paths []string) map[string]int {
	out := map[string]int{}
	for _, p := range paths {
		out[normalizePath(p)] = 1
	}
	return out
}

// ContainAny reports whether at least one of oracle's targets occurs, case
// insensitively, within agent. oracle is the tool-judge's usual oracle-arg
// value — a string or a list of strings — the same way every other Func
// in this registry takes its comparison value from oracleArgs[arg] rather
// than a side channel.
func ContainAny(agent, oracle any) (bool, error) {
	a := strings.ToLower(fmt.Sprint(agent))
	for _, t := range toStringSlice(oracle) {
		if strings.Contains(a, strings.ToLower(t)) {
			return true, nil
		}
	}
	return false, nil
}

// ContainAll reports whether every one of oracle's targets occurs, case
// insensitively, within agent.
func ContainAll(agent, oracle any) (bool, error) {
	a := strings.ToLower(fmt.Sprint(agent))
	for _, t := range toStringSlice(oracle) {
		if !strings.Contains(a, strings.ToLower(t)) {
			return false, nil
		}
	}
	return true, nil
}
