package selector

import (
	"testing"

	"github.com/simpligility/trino-gateway/internal/attributes"
	"github.com/simpligility/trino-gateway/internal/rules"
)

func TestHeader_ReturnsNilWhenHeaderEmpty(t *testing.T) {
	s := NewHeader()
	group, ruleFired := s.Select(attributes.Minimal("u"), "")
	if group != nil || ruleFired != "" {
		t.Fatalf("expected nil/\"\", got %v/%q", group, ruleFired)
	}
}

func TestHeader_ReturnsHeaderValue(t *testing.T) {
	s := NewHeader()
	group, _ := s.Select(attributes.Minimal("u"), "etl")
	if group == nil || *group != "etl" {
		t.Fatalf("expected etl, got %v", group)
	}
}

func TestRules_DelegatesToEngine(t *testing.T) {
	rs, err := rules.NewRuleSet([]*rules.Rule{
		{Name: "r", Priority: 1, Condition: `user = "will"`, Actions: []string{`routingGroup = "will-group"`}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	engine := rules.NewEngine(rs, nil)
	s := NewRules(engine)

	group, ruleFired := s.Select(attributes.Minimal("will"), "ignored-header")
	if group == nil || *group != "will-group" {
		t.Fatalf("expected will-group, got %v", group)
	}
	if ruleFired != "r" {
		t.Fatalf("expected ruleFired=r, got %q", ruleFired)
	}
}

func TestHeaderWithRulesFallback_HeaderWins(t *testing.T) {
	rs, _ := rules.NewRuleSet([]*rules.Rule{
		{Name: "r", Priority: 1, Condition: "true", Actions: []string{`routingGroup = "from-rule"`}},
	})
	engine := rules.NewEngine(rs, nil)
	s := NewHeaderWithRulesFallback(engine)

	group, ruleFired := s.Select(attributes.Minimal("u"), "from-header")
	if group == nil || *group != "from-header" {
		t.Fatalf("expected from-header, got %v", group)
	}
	if ruleFired != "" {
		t.Fatalf("expected empty ruleFired when header wins, got %q", ruleFired)
	}
}

func TestHeaderWithRulesFallback_FallsBackToRules(t *testing.T) {
	rs, _ := rules.NewRuleSet([]*rules.Rule{
		{Name: "r", Priority: 1, Condition: "true", Actions: []string{`routingGroup = "from-rule"`}},
	})
	engine := rules.NewEngine(rs, nil)
	s := NewHeaderWithRulesFallback(engine)

	group, ruleFired := s.Select(attributes.Minimal("u"), "")
	if group == nil || *group != "from-rule" {
		t.Fatalf("expected from-rule, got %v", group)
	}
	if ruleFired != "r" {
		t.Fatalf("expected ruleFired=r, got %q", ruleFired)
	}
}

func TestNewFromConfig_SelectsVariant(t *testing.T) {
	engine := rules.NewEngine(nil, nil)
	if _, ok := NewFromConfig("header", engine).(*Header); !ok {
		t.Fatal("expected header variant")
	}
	if _, ok := NewFromConfig("rules", engine).(*Rules); !ok {
		t.Fatal("expected rules variant")
	}
	if _, ok := NewFromConfig("anything-else", engine).(*HeaderWithRulesFallback); !ok {
		t.Fatal("expected header-with-rules-fallback as default")
	}
}
