package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/user/rag-orchestrator/internal/domain"
)

// errorResponse is the uniform failure body for this API.
type errorResponse struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Summary domain.JobSummary `json:"summary,omitempty"`
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, code, message string) {
	writeJSON(w, logger, status, errorResponse{Error: message, Code: code})
}
