package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/xeipuuv/gojsonschema"

	"github.com/abdul-hamid-achik/hitrelay/packages/flow"
	"github.com/abdul-hamid-achik/hitrelay/packages/relay"
	"github.com/abdul-hamid-achik/hitrelay/packages/stats"
)

// readPayload reads a bounded body, validates it against schema and decodes
// it into v. It writes the 400 response itself and reports false on failure.
func readPayload(w http.ResponseWriter, r *http.Request, schema gojsonschema.JSONLoader, v any) bool {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		writeText(w, http.StatusBadRequest, "failed to read request body: "+err.Error())
		return false
	}

	if err := validateAgainst(schema, data); err != nil {
		writeText(w, http.StatusBadRequest, err.Error())
		return false
	}

	if err := json.Unmarshal(data, v); err != nil {
		writeText(w, http.StatusBadRequest, "invalid request payload: "+err.Error())
		return false
	}
	return true
}

func (s *Server) handleAPI(w http.ResponseWriter, r *http.Request) {
	var req relay.Request
	if !readPayload(w, r, relayRequestSchemaLoader, &req) {
		return
	}

	out, err := s.relay.Handle(r.Context(), req.Spec())
	if err != nil {
		writeText(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

// handleGraphQL relays a GraphQL call. Relay failures are answered with 502.
func (s *Server) handleGraphQL(w http.ResponseWriter, r *http.Request) {
	var req relay.GraphQLRequest
	if !readPayload(w, r, graphqlRequestSchemaLoader, &req) {
		return
	}

	spec, err := req.Spec()
	if err != nil {
		writeText(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := s.relay.Handle(r.Context(), spec)
	if err != nil {
		writeText(w, http.StatusBadGateway, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

// handleFlow runs a flow and answers 200 whatever the outcome of its nodes.
func (s *Server) handleFlow(w http.ResponseWriter, r *http.Request) {
	var run flow.Run
	if !readPayload(w, r, flowRunSchemaLoader, &run) {
		return
	}

	writeJSON(w, http.StatusOK, s.flow.Run(r.Context(), &run))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Server is up"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stats.Summary())
}

func (s *Server) handleResetStats(w http.ResponseWriter, r *http.Request) {
	s.stats.Reset()
	s.logger.Info("stats reset")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", stats.PrometheusContentType)
	stats.WritePrometheus(w, s.stats.Summary())
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		writeText(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
