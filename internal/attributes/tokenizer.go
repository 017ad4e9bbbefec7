package attributes

import (
	"regexp"
	"strings"
)

// stripComments removes "--" line comments and "/* ... */" block comments
// (non-nested) from SQL text.
func stripComments(sql string) string {
	var out strings.Builder
	runes := []rune(sql)
	for i := 0; i < len(runes); i++ {
		if runes[i] == '-' && i+1 < len(runes) && runes[i+1] == '-' {
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
			if i < len(runes) {
				out.WriteRune('\n')
			}
			continue
		}
		if runes[i] == '/' && i+1 < len(runes) && runes[i+1] == '*' {
			i += 2
			for i+1 < len(runes) && !(runes[i] == '*' && runes[i+1] == '/') {
				i++
			}
			i++
			out.WriteRune(' ')
			continue
		}
		out.WriteRune(runes[i])
	}
	return out.String()
}

var identifierClausePattern = regexp.MustCompile(`(?i)\b(FROM|JOIN|INSERT\s+INTO|UPDATE|DELETE\s+FROM|MERGE\s+INTO|CREATE\s+TABLE(?:\s+IF\s+NOT\s+EXISTS)?|DROP\s+TABLE(?:\s+IF\s+EXISTS)?|ALTER\s+TABLE|DESCRIBE|SHOW\s+TABLES\s+FROM|USE|TABLE)\s+([a-zA-Z0-9_."]+)`)

var leadingKeywordPattern = regexp.MustCompile(`(?i)^\s*(?:WITH\b.*?\)\s*)?(SELECT|INSERT|UPDATE|DELETE|EXPLAIN|DESCRIBE|DESC|SHOW|CREATE|DROP|ALTER|USE|CALL)\b`)

// tokenizeQueryType derives the query type from the leading statement
// keyword after an optional WITH prelude. This is a
// best-effort regex scan, not a balanced-parenthesis parser: it is the
// fallback path, used only once AST parsing has already failed.
func tokenizeQueryType(sql string) QueryType {
	m := leadingKeywordPattern.FindStringSubmatch(sql)
	if m == nil {
		return QueryTypeOther
	}
	kw := strings.ToUpper(m[1])
	switch kw {
	case "SELECT":
		return QueryTypeSelect
	case "INSERT":
		return QueryTypeInsert
	case "UPDATE":
		return QueryTypeUpdate
	case "DELETE":
		return QueryTypeDelete
	case "EXPLAIN":
		return QueryTypeExplain
	case "DESCRIBE", "DESC":
		return QueryTypeDescribe
	case "SHOW":
		return QueryTypeShow
	case "CREATE":
		return QueryTypeCreate
	case "DROP":
		return QueryTypeDrop
	case "ALTER":
		return QueryTypeAlter
	case "USE":
		return QueryTypeUse
	case "CALL":
		return QueryTypeCall
	default:
		return QueryTypeOther
	}
}

// tokenizeIdentifiers harvests identifiers following FROM, JOIN, INSERT
// INTO, UPDATE, DELETE FROM, MERGE INTO, CREATE/DROP/ALTER TABLE, DESCRIBE,
// SHOW TABLES FROM, USE, and TABLE <name>. The parenthesised TABLE(...)
// form is not matched.
func tokenizeIdentifiers(sql string) []string {
	matches := identifierClausePattern.FindAllStringSubmatch(sql, -1)
	idents := make([]string, 0, len(matches))
	for _, m := range matches {
		ident := strings.TrimRight(m[2], ".")
		if ident == "" {
			continue
		}
		idents = append(idents, ident)
	}
	return idents
}

// tokenizeExtract applies the full lenient-tokenizer pipeline and populates
// v's QueryType, ResourceGroupQueryType, and identifier sets. It never
// returns an error and does not reject malformed SQL: input that is empty
// once comments are stripped yields QueryType=unknown; otherwise an
// unrecognised leading keyword yields QueryType=other, and identifiers are
// harvested wherever the clause pattern matches.
func tokenizeExtract(v *View, rawSQL string) {
	cleaned := stripComments(rawSQL)
	trimmed := strings.TrimSpace(cleaned)
	if trimmed == "" {
		v.QueryType = QueryTypeUnknown
		v.ResourceGroupQueryType = ResourceGroupUnknown
		return
	}

	v.QueryType = tokenizeQueryType(trimmed)
	v.ResourceGroupQueryType = ResourceGroupFor(v.QueryType)

	for _, ident := range tokenizeIdentifiers(trimmed) {
		applyIdentifier(v, ident)
	}
}

// applyIdentifier qualifies a raw dotted identifier and files it into v's
// catalogs/schemas/catalogSchemas/tables sets, or into Unqualified when a
// required default is missing.
func applyIdentifier(v *View, raw string) {
	parts := splitIdentifier(raw)
	if len(parts) == 0 {
		return
	}

	fq, ok := qualify(raw, v.DefaultCatalog, v.DefaultSchema)
	if !ok {
		v.Unqualified[raw] = struct{}{}
		return
	}
	v.Tables[fq] = struct{}{}

	fqParts := strings.Split(fq, ".")
	if len(fqParts) == 3 {
		v.Catalogs[fqParts[0]] = struct{}{}
		v.Schemas[fqParts[1]] = struct{}{}
		v.CatalogSchemas[fqParts[0]+"."+fqParts[1]] = struct{}{}
	}
}
