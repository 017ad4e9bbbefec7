package attributes

import "testing"

func TestStripComments_RemovesLineAndBlockComments(t *testing.T) {
	sql := "SELECT 1 -- trailing comment\nFROM /* block */ t"
	out := stripComments(sql)
	if out != "SELECT 1 \nFROM   t" {
		t.Fatalf("unexpected stripped SQL: %q", out)
	}
}

func TestTokenizeQueryType_DetectsLeadingKeyword(t *testing.T) {
	cases := map[string]QueryType{
		"SELECT * FROM t":                  QueryTypeSelect,
		"INSERT INTO t VALUES (1)":         QueryTypeInsert,
		"UPDATE t SET a = 1":               QueryTypeUpdate,
		"DELETE FROM t":                    QueryTypeDelete,
		"EXPLAIN SELECT * FROM t":          QueryTypeExplain,
		"DESCRIBE t":                       QueryTypeDescribe,
		"SHOW TABLES FROM s":               QueryTypeShow,
		"CREATE TABLE t (a int)":           QueryTypeCreate,
		"DROP TABLE t":                     QueryTypeDrop,
		"ALTER TABLE t ADD COLUMN a int":   QueryTypeAlter,
		"USE cat.sch":                      QueryTypeUse,
		"CALL system.some_procedure()":     QueryTypeCall,
		"WITH x AS (SELECT 1) SELECT * FROM x": QueryTypeSelect,
	}
	for sql, want := range cases {
		got := tokenizeQueryType(sql)
		if got != want {
			t.Fatalf("tokenizeQueryType(%q) = %q, want %q", sql, got, want)
		}
	}
}

func TestTokenizeQueryType_UnrecognizedKeywordIsOther(t *testing.T) {
	if got := tokenizeQueryType("VACUUM t"); got != QueryTypeOther {
		t.Fatalf("expected QueryTypeOther, got %q", got)
	}
}

func TestTokenizeIdentifiers_HarvestsFromVariousClauses(t *testing.T) {
	sql := "INSERT INTO cat.sch.dest SELECT * FROM cat.sch.src JOIN cat.sch.other ON true"
	idents := tokenizeIdentifiers(sql)
	want := map[string]bool{"cat.sch.dest": true, "cat.sch.src": true, "cat.sch.other": true}
	if len(idents) != 3 {
		t.Fatalf("expected 3 identifiers, got %v", idents)
	}
	for _, id := range idents {
		if !want[id] {
			t.Fatalf("unexpected identifier %q", id)
		}
	}
}

func TestTokenizeExtract_EmptyAfterStrippingYieldsUnknown(t *testing.T) {
	v := Minimal("u")
	tokenizeExtract(v, "-- just a comment\n")
	if v.QueryType != QueryTypeUnknown {
		t.Fatalf("expected QueryTypeUnknown for comment-only input, got %q", v.QueryType)
	}
}

func TestTokenizeExtract_PopulatesCatalogsSchemasAndCatalogSchemas(t *testing.T) {
	v := Minimal("u")
	tokenizeExtract(v, "SELECT * FROM cat.sch.t")
	if !v.HasCatalog("cat") {
		t.Fatalf("expected catalog 'cat' to be populated, got %v", v.Catalogs)
	}
	if _, ok := v.Schemas["sch"]; !ok {
		t.Fatalf("expected schema 'sch' to be populated, got %v", v.Schemas)
	}
	if _, ok := v.CatalogSchemas["cat.sch"]; !ok {
		t.Fatalf("expected catalogSchema 'cat.sch' to be populated, got %v", v.CatalogSchemas)
	}
}

func TestResourceGroupFor_MapsQueryTypesToCoarseGroups(t *testing.T) {
	cases := map[QueryType]ResourceGroupQueryType{
		QueryTypeSelect:   ResourceGroupReadOnly,
		QueryTypeExplain:  ResourceGroupReadOnly,
		QueryTypeShow:     ResourceGroupReadOnly,
		QueryTypeDescribe: ResourceGroupDescribe,
		QueryTypeInsert:   ResourceGroupDataManagement,
		QueryTypeUpdate:   ResourceGroupDataManagement,
		QueryTypeDelete:   ResourceGroupDataManagement,
		QueryTypeCall:     ResourceGroupDataManagement,
		QueryTypeUse:      ResourceGroupDataManagement,
		QueryTypeCreate:   ResourceGroupDataDefinition,
		QueryTypeDrop:     ResourceGroupDataDefinition,
		QueryTypeAlter:    ResourceGroupDataDefinition,
		QueryTypeOther:    ResourceGroupUnknown,
	}
	for qt, want := range cases {
		if got := ResourceGroupFor(qt); got != want {
			t.Fatalf("ResourceGroupFor(%q) = %q, want %q", qt, got, want)
		}
	}
}
