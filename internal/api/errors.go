package api

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/kdimtricp/faik/internal/analysis"
	"github.com/kdimtricp/faik/internal/detection"
)

type errorResponse struct {
	Message   string         `json:"message"`
	ErrorType string         `json:"error_type"`
	Details   map[string]any `json:"details,omitempty"`
}

var errorStatus = map[string]int{
	"InvalidParameter":     http.StatusUnprocessableEntity,
	"EmptySignal":          http.StatusBadRequest,
	"UnsupportedFormat":    http.StatusBadRequest,
	"ModelUnavailable":     http.StatusServiceUnavailable,
	"ChunkEvaluationError": http.StatusBadGateway,
	"NoChunksProduced":     http.StatusInternalServerError,
	"Cancelled":            http.StatusRequestTimeout,
}

var errorMessage = map[string]string{
	"InvalidParameter":     "Invalid analysis parameters",
	"EmptySignal":          "Audio file contains no samples",
	"UnsupportedFormat":    "Audio file could not be decoded",
	"ModelUnavailable":     "Audio classification model is not loaded. Please try again later.",
	"ChunkEvaluationError": "Error analyzing audio file",
	"NoChunksProduced":     "Error analyzing audio file",
	"Cancelled":            "Analysis cancelled",
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, errorType, message string, details map[string]any) {
	writeJSON(w, status, errorResponse{
		Message:   message,
		ErrorType: errorType,
		Details:   details,
	})
}

// writeAnalysisError maps pipeline and history errors onto HTTP statuses.
func writeAnalysisError(w http.ResponseWriter, err error) {
	if errors.Is(err, analysis.ErrNotFound) {
		writeError(w, http.StatusNotFound, "NotFound", "Analysis not found", nil)
		return
	}
	if errors.Is(err, fs.ErrNotExist) {
		writeError(w, http.StatusNotFound, "NotFound", "Stored audio not found", nil)
		return
	}

	kind := detection.Kind(err)
	status, ok := errorStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	message, ok := errorMessage[kind]
	if !ok {
		message = "Internal server error"
	}

	details := map[string]any{"original_error": err.Error()}
	var chunkErr *detection.ChunkEvaluationError
	if errors.As(err, &chunkErr) {
		details["chunk_index"] = chunkErr.Index
	}

	if status >= http.StatusInternalServerError {
		log.WithError(err).WithField("error_type", kind).Error("request failed")
	}

	writeError(w, status, kind, message, details)
}
