package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/simpligility/trino-gateway/internal/attributes"
)

// predicate is a compiled condition: a pure function from the Attribute
// View to a boolean. The condition language is treated as an opaque,
// pluggable PredicateEvaluator; this is a small hand-rolled implementation
// satisfying that contract (property access, boolean
// operators, string equality, set membership, case-insensitive
// comparisons) — see DESIGN.md for why this stays stdlib.
type predicate func(v *attributes.View) (bool, error)

// compile parses a condition string into a predicate. Supported grammar
// (deliberately small):
//
//	true | false
//	<attr> = "<literal>"
//	<attr> contains "<literal>"
//	trinoRequestUser.userExistsAndEquals("<literal>")
//
// A condition may join its clauses with "&&" or with "||", not a mix of
// the two (no precedence or parentheses — a documented simplification of
// an intentionally opaque condition language).
func compile(condition string) (predicate, error) {
	condition = strings.TrimSpace(condition)
	if condition == "" {
		return nil, fmt.Errorf("rules: empty condition")
	}

	if strings.Contains(condition, "&&") {
		parts := strings.Split(condition, "&&")
		return compileConjunction(parts, true)
	}
	if strings.Contains(condition, "||") {
		parts := strings.Split(condition, "||")
		return compileConjunction(parts, false)
	}

	return compileClause(condition)
}

func compileConjunction(parts []string, and bool) (predicate, error) {
	preds := make([]predicate, len(parts))
	for i, p := range parts {
		c, err := compileClause(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		preds[i] = c
	}
	return func(v *attributes.View) (bool, error) {
		for _, p := range preds {
			ok, err := p(v)
			if err != nil {
				return false, err
			}
			if and && !ok {
				return false, nil
			}
			if !and && ok {
				return true, nil
			}
		}
		return and, nil
	}, nil
}

func compileClause(clause string) (predicate, error) {
	lower := strings.ToLower(clause)
	switch lower {
	case "true":
		return func(*attributes.View) (bool, error) { return true, nil }, nil
	case "false":
		return func(*attributes.View) (bool, error) { return false, nil }, nil
	}

	if strings.HasPrefix(clause, "trinoRequestUser.userExistsAndEquals(") {
		lit, err := extractStringArg(clause)
		if err != nil {
			return nil, err
		}
		return func(v *attributes.View) (bool, error) {
			return v.User != "" && v.User == lit, nil
		}, nil
	}

	if idx := strings.Index(clause, " contains "); idx >= 0 {
		attr := strings.TrimSpace(clause[:idx])
		lit, err := unquote(strings.TrimSpace(clause[idx+len(" contains "):]))
		if err != nil {
			return nil, err
		}
		return compileContains(attr, lit)
	}

	if idx := strings.Index(clause, "="); idx >= 0 {
		attr := strings.TrimSpace(clause[:idx])
		rhs := strings.TrimSpace(clause[idx+1:])
		lit, err := unquote(rhs)
		if err != nil {
			return nil, err
		}
		return compileEquals(attr, lit)
	}

	return nil, fmt.Errorf("rules: unrecognized condition clause %q", clause)
}

func compileContains(attr, lit string) (predicate, error) {
	switch attr {
	case "tables":
		return func(v *attributes.View) (bool, error) { return v.HasTable(lit), nil }, nil
	case "catalogs":
		return func(v *attributes.View) (bool, error) { return v.HasCatalog(lit), nil }, nil
	case "schemas":
		return func(v *attributes.View) (bool, error) { _, ok := v.Schemas[lit]; return ok, nil }, nil
	case "catalogSchemas":
		return func(v *attributes.View) (bool, error) { _, ok := v.CatalogSchemas[lit]; return ok, nil }, nil
	case "clientTags":
		return func(v *attributes.View) (bool, error) { _, ok := v.ClientTags[lit]; return ok, nil }, nil
	default:
		return nil, fmt.Errorf("rules: unknown set attribute %q", attr)
	}
}

// compileEquals compares getDefaultCatalog()/getDefaultSchema() directly
// against the literal, treating an unset default as equal to "" rather
// than introducing an optional wrapper type.
func compileEquals(attr, lit string) (predicate, error) {
	switch attr {
	case "user", "trinoRequestUser":
		return func(v *attributes.View) (bool, error) { return strings.EqualFold(v.User, lit), nil }, nil
	case "source":
		return func(v *attributes.View) (bool, error) { return strings.EqualFold(v.Source, lit), nil }, nil
	case "defaultCatalog", "getDefaultCatalog()":
		return func(v *attributes.View) (bool, error) { return v.DefaultCatalogOrEmpty() == lit, nil }, nil
	case "defaultSchema", "getDefaultSchema()":
		return func(v *attributes.View) (bool, error) { return v.DefaultSchemaOrEmpty() == lit, nil }, nil
	case "queryType":
		return func(v *attributes.View) (bool, error) { return strings.EqualFold(string(v.QueryType), lit), nil }, nil
	case "resourceGroupQueryType":
		return func(v *attributes.View) (bool, error) {
			return strings.EqualFold(string(v.ResourceGroupQueryType), lit), nil
		}, nil
	default:
		return nil, fmt.Errorf("rules: unknown attribute %q", attr)
	}
}

func extractStringArg(call string) (string, error) {
	open := strings.IndexByte(call, '(')
	close := strings.LastIndexByte(call, ')')
	if open < 0 || close < 0 || close < open {
		return "", fmt.Errorf("rules: malformed call %q", call)
	}
	return unquote(strings.TrimSpace(call[open+1 : close]))
}

func unquote(s string) (string, error) {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return strconv.Unquote(s)
	}
	return s, nil
}
