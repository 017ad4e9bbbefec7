package attributes

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Trino request headers recognized by the extractor.
const (
	HeaderUser               = "X-Trino-User"
	HeaderSource             = "X-Trino-Source"
	HeaderClientTags         = "X-Trino-Client-Tags"
	HeaderClientInfo         = "X-Trino-Client-Info"
	HeaderCatalog            = "X-Trino-Catalog"
	HeaderSchema             = "X-Trino-Schema"
	HeaderPreparedStatement  = "X-Trino-Prepared-Statement"
	HeaderRoutingGroup       = "X-Trino-Routing-Group"
)

// Extract builds an Attribute View from an incoming HTTP request. For
// POST /v1/statement requests the body is read, buffered back onto the
// request so the proxy handler can still forward it, and parsed as SQL
// text. Every other path short-circuits to a minimal (user-only) view.
//
// Extraction never fails: a body that cannot be read yields
// QueryType=unknown, and SQL is scanned leniently rather than rejected (see
// tokenizeExtract).
func Extract(r *http.Request) *View {
	v := Minimal(headerOrEmpty(r, HeaderUser))
	if !isNewStatementRequest(r) {
		return v
	}

	v.Source = headerOrEmpty(r, HeaderSource)
	v.ClientInfo = headerOrEmpty(r, HeaderClientInfo)
	if tags := headerOrEmpty(r, HeaderClientTags); tags != "" {
		for _, t := range strings.Split(tags, ",") {
			t = strings.TrimSpace(t)
			if t != "" {
				v.ClientTags[t] = struct{}{}
			}
		}
	}
	if c := headerOrEmpty(r, HeaderCatalog); c != "" {
		v.DefaultCatalog = &c
	}
	if s := headerOrEmpty(r, HeaderSchema); s != "" {
		v.DefaultSchema = &s
	}
	v.PreparedStatements = parsePreparedStatements(r.Header.Values(HeaderPreparedStatement))

	body, err := readAndRestoreBody(r)
	if err != nil {
		v.QueryType = QueryTypeUnknown
		return v
	}
	v.RawSQL = string(body)

	extractSQL(v, v.RawSQL)
	return v
}

// extractSQL runs the AST-first, tokenizer-fallback pipeline over a SQL
// statement and over every referenced prepared statement body (an
// EXECUTE ... USING is qualified against the named prepared statement's SQL).
func extractSQL(v *View, sql string) {
	if !astExtract(v, sql) {
		tokenizeExtract(v, sql)
	}
	resolveExecute(v, sql)
}

// resolveExecute resolves `EXECUTE <name> USING ...` against a previously
// registered prepared statement, extracting identifiers from its SQL text
// (scenario 2).
func resolveExecute(v *View, sql string) {
	trimmed := strings.TrimSpace(stripComments(sql))
	upper := strings.ToUpper(trimmed)
	if !strings.HasPrefix(upper, "EXECUTE") {
		return
	}
	fields := strings.Fields(trimmed)
	if len(fields) < 2 {
		return
	}
	name := fields[1]
	stmtSQL, ok := v.PreparedStatements[name]
	if !ok {
		return
	}
	if !astExtract(v, stmtSQL) {
		tokenizeExtract(v, stmtSQL)
	}
}

// parsePreparedStatements decodes one or more X-Trino-Prepared-Statement
// headers, each a comma-joined list of URL-encoded name=value pairs.
func parsePreparedStatements(headerValues []string) map[string]string {
	out := map[string]string{}
	for _, hv := range headerValues {
		for _, pair := range strings.Split(hv, ",") {
			pair = strings.TrimSpace(pair)
			if pair == "" {
				continue
			}
			eq := strings.IndexByte(pair, '=')
			if eq < 0 {
				continue
			}
			name := pair[:eq]
			encoded := pair[eq+1:]
			decoded, err := url.QueryUnescape(encoded)
			if err != nil {
				decoded = encoded
			}
			out[name] = decoded
		}
	}
	return out
}

func isNewStatementRequest(r *http.Request) bool {
	return r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/v1/statement") && !strings.Contains(r.URL.Path[len("/v1/statement"):], "/")
}

func headerOrEmpty(r *http.Request, name string) string {
	return r.Header.Get(name)
}

// readAndRestoreBody reads the full request body and replaces r.Body with a
// fresh reader over the same bytes, so the caller's parse does not consume
// the body the proxy handler still needs to forward.
func readAndRestoreBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(data))
	return data, nil
}
