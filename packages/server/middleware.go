package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RequestIDHeader carries the id assigned to every inbound request.
const RequestIDHeader = "X-Request-Id"

// AllowedMethods are the methods a cross-origin caller may use against the relay.
var AllowedMethods = []string{
	http.MethodOptions,
	http.MethodGet,
	http.MethodPost,
	http.MethodDelete,
	http.MethodPut,
	http.MethodPatch,
}

// statusRecorder remembers the status code written by the next handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware assigns a request id and logs one line per request.
func loggingMiddleware(logger logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			id := uuid.NewString()
			w.Header().Set(RequestIDHeader, id)

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			logger.WithFields(logrus.Fields{
				"request_id": id,
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     rec.status,
				"duration":   time.Since(start),
			}).Info("request handled")
		})
	}
}

// recoverMiddleware turns a panic in a handler into a 500 so one bad request
// never takes the process down.
func recoverMiddleware(logger logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					if v == http.ErrAbortHandler {
						panic(v)
					}
					logger.WithField("panic", v).Error("handler panicked")
					writeText(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// corsMiddleware allows any origin, the methods in AllowedMethods and the
// given request headers. Preflight requests are answered here and never
// reach the router.
func corsMiddleware(allowedHeaders []string) func(http.Handler) http.Handler {
	methods := make(map[string]bool, len(AllowedMethods))
	for _, m := range AllowedMethods {
		methods[m] = true
	}
	headers := make(map[string]bool, len(allowedHeaders))
	for _, h := range allowedHeaders {
		headers[strings.ToLower(h)] = true
	}
	allowMethods := strings.Join(AllowedMethods, ", ")
	allowHeaders := strings.Join(allowedHeaders, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Add("Vary", "Origin")

			preflight := r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""
			if !preflight {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				next.ServeHTTP(w, r)
				return
			}

			if !methods[r.Header.Get("Access-Control-Request-Method")] {
				writeText(w, http.StatusForbidden, "CORS request forbidden: method not allowed")
				return
			}
			for _, h := range strings.Split(r.Header.Get("Access-Control-Request-Headers"), ",") {
				h = strings.ToLower(strings.TrimSpace(h))
				if h != "" && !headers[h] {
					writeText(w, http.StatusForbidden, "CORS request forbidden: header not allowed: "+h)
					return
				}
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", allowMethods)
			w.Header().Set("Access-Control-Allow-Headers", allowHeaders)
			w.Header().Set("Access-Control-Max-Age", "3600")
			w.WriteHeader(http.StatusNoContent)
		})
	}
}
