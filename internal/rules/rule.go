// Package rules implements the Rules Engine: loading rule
// definitions from YAML, evaluating predicates against the Attribute View,
// and composing results with priority and fire-order semantics.
package rules

import "sort"

// ReservedRoutingGroupKey is the Result Map slot rule actions write the
// chosen routing group into. Both this constant and the
// literal string "routingGroup" refer to the same slot.
const ReservedRoutingGroupKey = "routingGroup"

// Rule is a single (name, priority, condition, actions) entry.
type Rule struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Priority    int      `yaml:"priority"`
	Condition   string   `yaml:"condition"`
	Actions     []string `yaml:"actions"`

	compiled predicate
}

// RuleSet is a flat, priority-sorted, immutable sequence of compiled rules.
// It is loaded once and reloaded atomically: readers always
// see either the old or the new set in full, never a partial update.
type RuleSet struct {
	rules []*Rule
}

// NewRuleSet compiles rules and returns them sorted by priority descending,
// then by source order (Go's stable sort preserves source order among
// equal priorities).
func NewRuleSet(rs []*Rule) (*RuleSet, error) {
	compiled := make([]*Rule, len(rs))
	for i, r := range rs {
		c, err := compile(r.Condition)
		if err != nil {
			return nil, err
		}
		r.compiled = c
		compiled[i] = r
	}
	sort.SliceStable(compiled, func(i, j int) bool {
		return compiled[i].Priority > compiled[j].Priority
	})
	return &RuleSet{rules: compiled}, nil
}

// Rules returns the priority-sorted rule slice. Callers must not mutate it.
func (rs *RuleSet) Rules() []*Rule {
	return rs.rules
}
