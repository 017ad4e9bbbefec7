package proxy

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClassify_NewStatement(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/v1/statement", nil)
	kind, id := classify(r)
	if kind != kindNewStatement || id != "" {
		t.Fatalf("expected kindNewStatement/\"\", got %v/%q", kind, id)
	}
}

func TestClassify_FollowUpExtractsQueryID(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/v1/statement/executing/20240101_120000_00042_abcde/1", nil)
	kind, id := classify(r)
	if kind != kindFollowUp {
		t.Fatalf("expected kindFollowUp, got %v", kind)
	}
	if id != "20240101_120000_00042_abcde" {
		t.Fatalf("expected extracted query-id, got %q", id)
	}
}

func TestClassify_FollowUpTrailingPath(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/v1/query/20240101_120000_00042_abcde", nil)
	kind, id := classify(r)
	if kind != kindFollowUp || id != "20240101_120000_00042_abcde" {
		t.Fatalf("expected kindFollowUp/id, got %v/%q", kind, id)
	}
}

func TestClassify_UIAndInfoPaths(t *testing.T) {
	for _, path := range []string{"/ui/", "/ui", "/v1/info", "/v1/node"} {
		r := httptest.NewRequest(http.MethodGet, path, nil)
		kind, _ := classify(r)
		if kind != kindUIInfo {
			t.Fatalf("path %q: expected kindUIInfo, got %v", path, kind)
		}
	}
}

func TestClassify_OtherFallback(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/v1/cluster", nil)
	kind, _ := classify(r)
	if kind != kindOther {
		t.Fatalf("expected kindOther, got %v", kind)
	}
}
