package proxy

import (
	"net/http"
	"regexp"
)

// exchangeKind classifies an inbound request path.
type exchangeKind int

const (
	kindNewStatement exchangeKind = iota
	kindFollowUp
	kindUIInfo
	kindOther
)

// queryIDPattern matches a Trino query-id embedded in a request path:
// /v1/statement/queued/{id}/..., /v1/statement/executing/{id}/...,
// /ui/api/query/{id}, cancel endpoints, etc..
var queryIDPattern = regexp.MustCompile(`/(\d{8}_\d{6}_\d{5}_[a-z0-9]+)(?:/|$)`)

func classify(r *http.Request) (exchangeKind, string) {
	path := r.URL.Path

	if r.Method == http.MethodPost && path == "/v1/statement" {
		return kindNewStatement, ""
	}

	if m := queryIDPattern.FindStringSubmatch(path); m != nil {
		return kindFollowUp, m[1]
	}

	if isUIOrInfoPath(path) {
		return kindUIInfo, ""
	}

	return kindOther, ""
}

func isUIOrInfoPath(path string) bool {
	switch {
	case len(path) >= 4 && path[:4] == "/ui/":
		return true
	case path == "/ui":
		return true
	case path == "/v1/info":
		return true
	case path == "/v1/node":
		return true
	}
	return false
}
