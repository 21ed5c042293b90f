package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	httpadapter "contex/contexts/context-routing/context-engine-service/adapters/http"
	httptransport "contex/contexts/context-routing/context-engine-service/transport/http"
	"contex/internal/platform/apperr"
)

func (s *Server) registerContextEngineRoutes(h httpadapter.Handler) {
	s.mux.HandleFunc("POST /v1/publish", s.handlePublish(h))
	s.mux.HandleFunc("POST /v1/query", s.handleQuery(h))
	s.mux.HandleFunc("POST /v1/agents/register", s.handleRegister(h))
	s.mux.HandleFunc("DELETE /v1/projects/{project_id}/agents/{agent_id}", s.handleUnregister(h))
	s.mux.HandleFunc("GET /v1/projects/{project_id}/events", s.handleEvents(h))
}

func (s *Server) handlePublish(h httpadapter.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req httptransport.PublishRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeContextEngineError(w, http.StatusBadRequest, "invalid_request", "malformed request body")
			return
		}
		idempotencyKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
		resp, err := h.PublishHandler(r.Context(), idempotencyKey, req)
		if err != nil {
			writeContextEngineDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, resp)
	}
}

func (s *Server) handleQuery(h httpadapter.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req httptransport.QueryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeContextEngineError(w, http.StatusBadRequest, "invalid_request", "malformed request body")
			return
		}
		resp, err := h.QueryHandler(r.Context(), req)
		if err != nil {
			writeContextEngineDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) handleRegister(h httpadapter.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req httptransport.RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeContextEngineError(w, http.StatusBadRequest, "invalid_request", "malformed request body")
			return
		}
		resp, err := h.RegisterHandler(r.Context(), req)
		if err != nil {
			writeContextEngineDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) handleUnregister(h httpadapter.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := r.PathValue("project_id")
		agentID := r.PathValue("agent_id")
		if err := h.UnregisterHandler(r.Context(), projectID, agentID); err != nil {
			writeContextEngineDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleEvents(h httpadapter.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := r.PathValue("project_id")
		since, _ := strconv.ParseInt(r.URL.Query().Get("since"), 10, 64)
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit <= 0 {
			limit = 100
		}
		resp, err := h.EventsHandler(r.Context(), projectID, since, limit)
		if err != nil {
			writeContextEngineDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func writeContextEngineError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, httptransport.ErrorResponse{Code: code, Message: message})
}

func writeContextEngineDomainError(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	code := "internal_error"
	if appErr, ok := apperr.As(err); ok {
		code = appErr.Kind.String()
		if appErr.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(appErr.RetryAfter.Seconds())))
		}
	}
	writeContextEngineError(w, status, code, err.Error())
}
