package rules

import (
	"strings"
)

// ResultMap is the mutable per-request bag rule actions write into. Only
// the reserved "routingGroup" key influences routing; other keys are
// accepted but not read by the engine.
type ResultMap map[string]string

// applyActions executes a rule's actions against a Result Map. Supported
// action grammar:
//
//	<key> = "<value>"
//	result.<key> = "<value>"
//
// Both the constant ReservedRoutingGroupKey and the literal "routingGroup"
// address the same slot.
func applyActions(actions []string, result ResultMap) {
	for _, action := range actions {
		key, value, ok := parseAction(action)
		if !ok {
			continue
		}
		result[key] = value
	}
}

func parseAction(action string) (key, value string, ok bool) {
	action = strings.TrimSpace(action)
	idx := strings.Index(action, "=")
	if idx < 0 {
		return "", "", false
	}
	lhs := strings.TrimSpace(action[:idx])
	lhs = strings.TrimPrefix(lhs, "result.")
	rhs := strings.TrimSpace(action[idx+1:])
	val, err := unquote(rhs)
	if err != nil {
		return "", "", false
	}
	if lhs == "" {
		return "", "", false
	}
	return lhs, val, true
}

// RoutingGroup returns the reserved routing-group slot, if set.
func (r ResultMap) RoutingGroup() (string, bool) {
	if v, ok := r[ReservedRoutingGroupKey]; ok {
		return v, true
	}
	return "", false
}
