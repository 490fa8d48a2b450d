package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"finbot/internal/log"
)

const (
	msgQueryRequired = "Query is required"
	msgInternal      = "Internal server error"
)

type financeRequest struct {
	Query string `json:"query"`
}

type financeResponse struct {
	Response string `json:"response"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleFinance runs one assistant loop for the posted query. Any answer the
// loop produces, tool failures included, is a 200; only a model transport
// failure is a 500.
func (s *Server) handleFinance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	var req financeRequest
	body := http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "Request body too large"})
			return
		}
		logger.DebugContext(ctx, "Invalid finance request body", log.FieldError, err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgQueryRequired})
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msgQueryRequired})
		return
	}

	out, err := s.runner.Run(ctx, query)
	if err != nil {
		logger.ErrorContext(ctx, "Assistant run failed", log.FieldError, err, log.FieldState, string(out.State))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msgInternal})
		return
	}
	writeJSON(w, http.StatusOK, financeResponse{Response: out.Answer})
}

func handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("finbot is running"))
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
