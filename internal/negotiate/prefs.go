package negotiate

import (
	"fmt"
	"strconv"
	"strings"
)

// Preference is a parsed format preference expression.
//
// Syntax: alternatives separated by "/" are tried left to right; each
// alternative is a base token optionally narrowed by bracketed modifiers,
// e.g. "opus[abr<=160]/m4a/bestaudio". A persona whose candidate set is
// missing an alternative degrades to the next one instead of failing.
type Preference struct {
	Alternatives []Rule
}

// Rule is one alternative of a preference expression.
type Rule struct {
	Filters []Filter
	// Worst inverts the bitrate ordering for this alternative.
	Worst bool
}

// Filter is a single constraint within a rule.
type Filter struct {
	Key   string // codec, container, abr, proto
	Op    string // =, !=, <, >, <=, >=
	Value string
}

// ParsePreference parses a preference expression. An empty expression
// returns nil, which selects the documented default order.
func ParsePreference(expr string) (*Preference, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}

	var pref Preference
	for _, alt := range strings.Split(expr, "/") {
		rule, err := parseRule(strings.TrimSpace(alt))
		if err != nil {
			return nil, err
		}
		pref.Alternatives = append(pref.Alternatives, rule)
	}
	return &pref, nil
}

func parseRule(s string) (Rule, error) {
	if s == "" {
		return Rule{}, fmt.Errorf("empty preference alternative")
	}

	base := s
	mods := ""
	if idx := strings.Index(s, "["); idx >= 0 {
		base = s[:idx]
		mods = s[idx:]
	}

	rule, err := parseBase(strings.ToLower(strings.TrimSpace(base)))
	if err != nil {
		return Rule{}, err
	}

	for len(mods) > 0 {
		if mods[0] != '[' {
			return Rule{}, fmt.Errorf("malformed modifier in %q", s)
		}
		end := strings.IndexByte(mods, ']')
		if end < 0 {
			return Rule{}, fmt.Errorf("unterminated modifier in %q", s)
		}
		f, err := parseModifier(mods[1:end])
		if err != nil {
			return Rule{}, err
		}
		rule.Filters = append(rule.Filters, f)
		mods = mods[end+1:]
	}
	return rule, nil
}

func parseBase(base string) (Rule, error) {
	switch base {
	case "", "bestaudio", "best", "ba":
		return Rule{}, nil
	case "worstaudio", "worst", "wa":
		return Rule{Worst: true}, nil
	case "opus", "vorbis":
		return Rule{Filters: []Filter{{Key: "codec", Op: "=", Value: base}}}, nil
	case "m4a", "webm", "mp3", "mp4":
		return Rule{Filters: []Filter{{Key: "container", Op: "=", Value: base}}}, nil
	}
	// A numeric base selects an exact format id.
	if id, err := strconv.Atoi(base); err == nil && id > 0 {
		return Rule{Filters: []Filter{{Key: "id", Op: "=", Value: base}}}, nil
	}
	// Allow bare modifier-style tokens, e.g. "abr<=128".
	if f, err := parseModifier(base); err == nil {
		return Rule{Filters: []Filter{f}}, nil
	}
	return Rule{}, fmt.Errorf("unknown preference token: %s", base)
}

func parseModifier(s string) (Filter, error) {
	for _, op := range []string{"<=", ">=", "!=", "=", "<", ">"} {
		idx := strings.Index(s, op)
		if idx < 0 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(s[:idx]))
		value := strings.ToLower(strings.TrimSpace(s[idx+len(op):]))
		switch key {
		case "codec", "container", "proto", "id":
			return Filter{Key: key, Op: op, Value: value}, nil
		case "abr", "bitrate":
			if _, err := strconv.Atoi(value); err != nil {
				return Filter{}, fmt.Errorf("non-numeric bitrate in %q", s)
			}
			return Filter{Key: "abr", Op: op, Value: value}, nil
		default:
			return Filter{}, fmt.Errorf("unknown modifier key: %s", key)
		}
	}
	return Filter{}, fmt.Errorf("unknown modifier syntax: %s", s)
}

func (f Filter) matches(c Candidate) bool {
	switch f.Key {
	case "codec":
		return compareString(baseCodec(c.Codec), f.Value, f.Op)
	case "container":
		return compareString(strings.ToLower(c.Container), f.Value, f.Op)
	case "proto":
		return compareString(string(c.Class), f.Value, f.Op)
	case "id":
		want, err := strconv.Atoi(f.Value)
		return err == nil && compareInt(c.ID, want, f.Op)
	case "abr":
		want, err := strconv.Atoi(f.Value)
		return err == nil && compareInt(c.Bitrate, want, f.Op)
	}
	return false
}

// baseCodec strips profile suffixes: "mp4a.40.2" matches "mp4a".
func baseCodec(codec string) string {
	codec = strings.ToLower(strings.TrimSpace(codec))
	if idx := strings.IndexByte(codec, '.'); idx > 0 {
		return codec[:idx]
	}
	return codec
}

func compareString(a, b, op string) bool {
	switch op {
	case "!=":
		return a != b
	default:
		return a == b
	}
}

func compareInt(a, b int, op string) bool {
	switch op {
	case "=":
		return a == b
	case "!=":
		return a != b
	case "<":
		return a < b
	case ">":
		return a > b
	case "<=":
		return a <= b
	case ">=":
		return a >= b
	}
	return false
}
