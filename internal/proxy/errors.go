package proxy

import (
	"encoding/json"
	"net/http"

	gwerrors "github.com/simpligility/trino-gateway/internal/errors"
)

// errorResponse maps a non-fatal, per-request gateway error to its HTTP
// surface.
func errorResponse(err error) (int, []byte) {
	switch e := err.(type) {
	case *gwerrors.ErrNoBackendAvailable:
		return http.StatusServiceUnavailable, mustJSON(map[string]string{"error": e.Message})
	case *gwerrors.ErrUnknownQuery:
		return http.StatusNotFound, mustJSON(map[string]string{"error": "Query not found"})
	case *gwerrors.ErrBackendError:
		if e.Timeout {
			return http.StatusGatewayTimeout, mustJSON(map[string]string{"error": e.Message})
		}
		return http.StatusBadGateway, mustJSON(map[string]string{"error": e.Message})
	default:
		return http.StatusInternalServerError, mustJSON(map[string]string{"error": "internal error"})
	}
}

func mustJSON(v map[string]string) []byte {
	data, _ := json.Marshal(v)
	return data
}
