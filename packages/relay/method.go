package relay

import "net/http"

// NormalizeMethod maps the caller's method onto the supported set. Matching
// is exact (case-sensitive). Anything outside GET, POST, PUT, DELETE and
// PATCH is sent as GET; this masks caller mistakes and is not reported.
func NormalizeMethod(method string) string {
	switch method {
	case http.MethodGet:
		return http.MethodGet
	case http.MethodPost:
		return http.MethodPost
	case http.MethodPut:
		return http.MethodPut
	case http.MethodDelete:
		return http.MethodDelete
	case http.MethodPatch:
		return http.MethodPatch
	default:
		return http.MethodGet
	}
}
