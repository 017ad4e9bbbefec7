// Package selector implements the Routing Group Selector:
// pluggable strategies that choose a routing-group name for a request.
// Selectors never perform I/O and never block — selection is a pure
// function of the Attribute View (and, for header-aware variants, the raw
// X-Trino-Routing-Group header value) plus the current Rule Set.
package selector

import (
	"github.com/simpligility/trino-gateway/internal/attributes"
	"github.com/simpligility/trino-gateway/internal/rules"
)

// Selector chooses a routing-group name for a request. A nil group means
// "no selection" — the caller falls back to the default group.
// ruleFired names the rule responsible for the decision, for logging; it is
// empty when the header (not a rule) made the decision.
type Selector interface {
	Select(view *attributes.View, routingGroupHeader string) (group *string, ruleFired string)
}

// Header returns the value of X-Trino-Routing-Group if present and
// non-empty, else nil.
type Header struct{}

// NewHeader creates a header-based selector.
func NewHeader() *Header { return &Header{} }

// Select implements Selector.
func (h *Header) Select(_ *attributes.View, routingGroupHeader string) (*string, string) {
	if routingGroupHeader == "" {
		return nil, ""
	}
	return &routingGroupHeader, ""
}

// Rules ignores the header and delegates entirely to the rules engine.
type Rules struct {
	Engine *rules.Engine
}

// NewRules creates a rules-engine selector.
func NewRules(engine *rules.Engine) *Rules { return &Rules{Engine: engine} }

// Select implements Selector.
func (s *Rules) Select(view *attributes.View, _ string) (*string, string) {
	return s.Engine.Evaluate(view)
}

// HeaderWithRulesFallback uses the header if present, otherwise delegates
// to the rules engine.
type HeaderWithRulesFallback struct {
	Engine *rules.Engine
}

// NewHeaderWithRulesFallback creates the fallback-composed selector.
func NewHeaderWithRulesFallback(engine *rules.Engine) *HeaderWithRulesFallback {
	return &HeaderWithRulesFallback{Engine: engine}
}

// Select implements Selector: header wins when present, otherwise the
// rules engine decides.
func (s *HeaderWithRulesFallback) Select(view *attributes.View, routingGroupHeader string) (*string, string) {
	if routingGroupHeader != "" {
		return &routingGroupHeader, ""
	}
	return s.Engine.Evaluate(view)
}

// NewFromConfig builds the configured selector variant from the
// routingRules.selector config key: "header", "rules", or
// "header-with-rules-fallback" (default).
func NewFromConfig(variant string, engine *rules.Engine) Selector {
	switch variant {
	case "header":
		return NewHeader()
	case "rules":
		return NewRules(engine)
	default:
		return NewHeaderWithRulesFallback(engine)
	}
}
