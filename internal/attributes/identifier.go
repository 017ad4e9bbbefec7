package attributes

import "strings"

// splitIdentifier splits a dotted SQL identifier into its parts, honoring
// Trino quoting rules: a component may be "quoted" with "" escaping an
// embedded quote; case is preserved as written.
func splitIdentifier(raw string) []string {
	raw = strings.TrimSpace(raw)
	var parts []string
	var cur strings.Builder
	inQuote := false
	runes := []rune(raw)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case c == '"':
			if inQuote && i+1 < len(runes) && runes[i+1] == '"' {
				cur.WriteRune('"')
				i++
				continue
			}
			inQuote = !inQuote
		case c == '.' && !inQuote:
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(c)
		}
	}
	if cur.Len() > 0 || len(parts) > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}

// qualify fully qualifies a dotted identifier using Trino's 3-part
// catalog.schema.table rule:
//
//   - three parts: taken verbatim.
//   - two parts: qualified with defaultCatalog.
//   - one part: qualified with defaultCatalog.defaultSchema.
//
// If a required default is absent, ok is false and the caller records the
// identifier as unqualified instead of adding it to the table set.
func qualify(raw string, defaultCatalog, defaultSchema *string) (fq string, ok bool) {
	parts := splitIdentifier(raw)
	switch len(parts) {
	case 3:
		return strings.Join(parts, "."), true
	case 2:
		if defaultCatalog == nil || *defaultCatalog == "" {
			return "", false
		}
		return strings.Join(append([]string{*defaultCatalog}, parts...), "."), true
	case 1:
		if defaultCatalog == nil || *defaultCatalog == "" || defaultSchema == nil || *defaultSchema == "" {
			return "", false
		}
		return strings.Join([]string{*defaultCatalog, *defaultSchema, parts[0]}, "."), true
	default:
		return "", false
	}
}

// qualifySchema fully qualifies a one- or two-part catalog.schema reference.
func qualifySchema(raw string, defaultCatalog *string) (fq string, ok bool) {
	parts := splitIdentifier(raw)
	switch len(parts) {
	case 2:
		return strings.Join(parts, "."), true
	case 1:
		if defaultCatalog == nil || *defaultCatalog == "" {
			return "", false
		}
		return strings.Join([]string{*defaultCatalog, parts[0]}, "."), true
	default:
		return "", false
	}
}
