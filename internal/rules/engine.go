package rules

import (
	"context"
	"sync/atomic"

	"github.com/simpligility/trino-gateway/internal/attributes"
	"github.com/simpligility/trino-gateway/internal/observability"
)

// Engine holds an atomically-swappable RuleSet: readers
// take a single atomic load per evaluation and never block behind a reload.
type Engine struct {
	set    atomic.Pointer[RuleSet]
	logger observability.RouteLogger
}

// NewEngine constructs an Engine from an initial RuleSet. logger may be nil;
// when set, rule evaluation errors are recorded there instead of silently
// dropped.
func NewEngine(initial *RuleSet, logger observability.RouteLogger) *Engine {
	e := &Engine{logger: logger}
	if initial == nil {
		initial = &RuleSet{}
	}
	e.set.Store(initial)
	return e
}

// NewEngineFromFile loads a rules file and builds an Engine from it.
func NewEngineFromFile(path string, logger observability.RouteLogger) (*Engine, error) {
	rs, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	set, err := NewRuleSet(rs)
	if err != nil {
		return nil, err
	}
	return NewEngine(set, logger), nil
}

// Reload atomically replaces the active RuleSet with the contents of path.
// Evaluations in flight at the moment of the swap observe either the
// complete old set or the complete new set, never a mix.
func (e *Engine) Reload(path string) error {
	rs, err := LoadFile(path)
	if err != nil {
		return err
	}
	set, err := NewRuleSet(rs)
	if err != nil {
		return err
	}
	e.set.Store(set)
	return nil
}

// Evaluate runs every rule's predicate against view, in priority order
// (highest first, source order among ties), and executes the actions of
// every rule whose predicate evaluates true (fire-all, not first-match).
// A predicate error is logged and treated as false; it
// never aborts evaluation of the remaining rules. The name of the last rule
// whose actions changed the routingGroup result key is returned as
// ruleFired for logging.
func (e *Engine) Evaluate(view *attributes.View) (group *string, ruleFired string) {
	set := e.set.Load()
	if set == nil || len(set.rules) == 0 {
		return nil, ""
	}

	result := make(ResultMap)
	for _, r := range set.rules {
		ok, err := r.compiled(view)
		if err != nil {
			e.logEvalError(r.Name, err)
			continue
		}
		if !ok {
			continue
		}
		before, hadBefore := result.RoutingGroup()
		applyActions(r.Actions, result)
		after, hasAfter := result.RoutingGroup()
		if hasAfter && (!hadBefore || after != before) {
			ruleFired = r.Name
		}
	}

	if g, ok := result.RoutingGroup(); ok && g != "" {
		return &g, ruleFired
	}
	return nil, ""
}

func (e *Engine) logEvalError(ruleName string, err error) {
	if e.logger == nil {
		return
	}
	_ = e.logger.LogRoute(context.Background(), observability.RouteLogEntry{
		RuleFired: ruleName,
		Outcome:   "rule_evaluation_error",
		Error:     err.Error(),
	})
}
