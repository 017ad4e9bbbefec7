package attributes

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestExtract_MinimalViewForNonStatementRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/v1/info", nil)
	r.Header.Set(HeaderUser, "will")
	v := Extract(r)
	if v.User != "will" {
		t.Fatalf("expected user=will, got %q", v.User)
	}
	if v.QueryType != QueryTypeUnknown {
		t.Fatalf("expected QueryTypeUnknown for non-statement request, got %q", v.QueryType)
	}
}

func TestExtract_PopulatesHeadersAndParsesSQL(t *testing.T) {
	r := httptest.NewRequest("POST", "/v1/statement", strings.NewReader("SELECT * FROM cat.sch.t"))
	r.Header.Set(HeaderUser, "will")
	r.Header.Set(HeaderSource, "cli")
	r.Header.Set(HeaderCatalog, "defcat")
	r.Header.Set(HeaderSchema, "defsch")
	r.Header.Set(HeaderClientTags, "tagA, tagB")

	v := Extract(r)
	if v.User != "will" || v.Source != "cli" {
		t.Fatalf("expected user/source populated, got %q/%q", v.User, v.Source)
	}
	if v.DefaultCatalog == nil || *v.DefaultCatalog != "defcat" {
		t.Fatalf("expected defaultCatalog=defcat, got %v", v.DefaultCatalog)
	}
	if _, ok := v.ClientTags["tagA"]; !ok {
		t.Fatalf("expected tagA present, got %v", v.ClientTags)
	}
	if v.QueryType != QueryTypeSelect {
		t.Fatalf("expected QueryTypeSelect, got %q", v.QueryType)
	}
	if !v.HasTable("cat.sch.t") {
		t.Fatalf("expected table cat.sch.t, got %v", v.Tables)
	}
}

func TestExtract_RestoresBodyForDownstreamForwarding(t *testing.T) {
	sql := "SELECT * FROM t"
	r := httptest.NewRequest("POST", "/v1/statement", strings.NewReader(sql))
	_ = Extract(r)

	remaining, err := io.ReadAll(r.Body)
	if err != nil {
		t.Fatalf("unexpected error reading restored body: %v", err)
	}
	if string(remaining) != sql {
		t.Fatalf("expected body restored for forwarding, got %q", remaining)
	}
}

func TestExtract_FallsBackToTokenizerWhenASTRejectsStatement(t *testing.T) {
	// DESCRIBE is not one of the AST-handled statement kinds; this exercises
	// the tokenizer fallback path end-to-end through Extract.
	r := httptest.NewRequest("POST", "/v1/statement", strings.NewReader("DESCRIBE cat.sch.t"))
	v := Extract(r)
	if v.QueryType != QueryTypeDescribe {
		t.Fatalf("expected QueryTypeDescribe via tokenizer fallback, got %q", v.QueryType)
	}
}

func TestExtract_ResolvesExecuteAgainstPreparedStatement(t *testing.T) {
	r := httptest.NewRequest("POST", "/v1/statement", strings.NewReader("EXECUTE my_stmt USING 1"))
	r.Header.Set(HeaderPreparedStatement, "my_stmt="+escapeSQL("SELECT * FROM cat.sch.t WHERE a = ?"))

	v := Extract(r)
	if !v.HasTable("cat.sch.t") {
		t.Fatalf("expected EXECUTE to resolve against prepared statement's table, got %v", v.Tables)
	}
}

func escapeSQL(s string) string {
	r := strings.NewReplacer(" ", "%20", "*", "%2A", "=", "%3D", "?", "%3F")
	return r.Replace(s)
}
