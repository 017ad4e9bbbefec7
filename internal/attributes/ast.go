package attributes

import (
	"strings"

	"github.com/dolthub/vitess/go/vt/sqlparser"
)

// astExtract attempts to extract identifiers from rawSQL using a real SQL
// AST. It returns false when the AST parse fails, in which case the caller
// falls back to the lenient tokenizer — Trino SQL is not MySQL-dialect, so
// rejection here is routine, not exceptional (see DESIGN.md).
func astExtract(v *View, rawSQL string) bool {
	stmts, err := sqlparser.SplitStatementToPieces(rawSQL)
	if err != nil || len(stmts) != 1 {
		return false
	}

	stmt, err := sqlparser.Parse(rawSQL)
	if err != nil {
		return false
	}

	var rawTables []string

	switch s := stmt.(type) {
	case *sqlparser.Select:
		v.QueryType = QueryTypeSelect
		rawTables = astTablesFromSelectStatement(s)
	case *sqlparser.SetOp:
		v.QueryType = QueryTypeSelect
		rawTables = astTablesFromSetOp(s)
	case *sqlparser.Insert:
		v.QueryType = QueryTypeInsert
		rawTables = []string{formatTableName(s.Table)}
	case *sqlparser.Update:
		v.QueryType = QueryTypeUpdate
		for _, expr := range s.TableExprs {
			rawTables = append(rawTables, astTablesFromTableExpr(expr)...)
		}
	case *sqlparser.Delete:
		v.QueryType = QueryTypeDelete
		for _, expr := range s.TableExprs {
			rawTables = append(rawTables, astTablesFromTableExpr(expr)...)
		}
	case *sqlparser.DDL:
		rawTables = []string{formatTableName(s.Table)}
		switch strings.ToUpper(s.Action) {
		case "CREATE":
			v.QueryType = QueryTypeCreate
		case "DROP":
			v.QueryType = QueryTypeDrop
		case "ALTER":
			v.QueryType = QueryTypeAlter
		default:
			v.QueryType = QueryTypeOther
		}
	case *sqlparser.Show:
		v.QueryType = QueryTypeShow
	default:
		return false
	}

	v.ResourceGroupQueryType = ResourceGroupFor(v.QueryType)
	for _, t := range rawTables {
		if t != "" {
			applyIdentifier(v, t)
		}
	}
	return true
}

func astTablesFromSetOp(u *sqlparser.SetOp) []string {
	var out []string
	out = append(out, astTablesFromSelectStatement(u.Left)...)
	out = append(out, astTablesFromSelectStatement(u.Right)...)
	return out
}

func astTablesFromSelectStatement(stmt sqlparser.SelectStatement) []string {
	var out []string
	switch s := stmt.(type) {
	case *sqlparser.Select:
		cteNames := map[string]bool{}
		if s.With != nil {
			for _, cte := range s.With.Ctes {
				if cte.As.String() != "" {
					cteNames[cte.As.String()] = true
				}
				if sub, ok := cte.Expr.(*sqlparser.Subquery); ok {
					out = append(out, astTablesFromSelectStatement(sub.Select)...)
				}
			}
		}
		for _, te := range s.From {
			out = append(out, astTablesFromTableExpr(te)...)
		}
		filtered := out[:0]
		for _, t := range out {
			if !cteNames[t] {
				filtered = append(filtered, t)
			}
		}
		out = filtered
	case *sqlparser.SetOp:
		out = append(out, astTablesFromSetOp(s)...)
	case *sqlparser.ParenSelect:
		out = append(out, astTablesFromSelectStatement(s.Select)...)
	}
	return out
}

func astTablesFromTableExpr(expr sqlparser.TableExpr) []string {
	var out []string
	switch t := expr.(type) {
	case *sqlparser.AliasedTableExpr:
		switch e := t.Expr.(type) {
		case sqlparser.TableName:
			out = append(out, formatTableName(e))
		case *sqlparser.Subquery:
			out = append(out, astTablesFromSelectStatement(e.Select)...)
		}
	case *sqlparser.JoinTableExpr:
		out = append(out, astTablesFromTableExpr(t.LeftExpr)...)
		out = append(out, astTablesFromTableExpr(t.RightExpr)...)
	case *sqlparser.ParenTableExpr:
		for _, te := range t.Exprs {
			out = append(out, astTablesFromTableExpr(te)...)
		}
	}
	return out
}

// formatTableName renders a parsed table name as a dotted identifier,
// preserving any schema/db qualifiers the parser recovered.
func formatTableName(tn sqlparser.TableName) string {
	name := tn.Name.String()
	if !tn.SchemaQualifier.IsEmpty() {
		name = tn.SchemaQualifier.String() + "." + name
	}
	if !tn.DbQualifier.IsEmpty() {
		name = tn.DbQualifier.String() + "." + name
	}
	return name
}
