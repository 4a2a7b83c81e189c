// Package httpserver contains HTTP handlers and middleware.
//
// It exposes the chatbot endpoints (/ask, /chat, /history) and the resume
// matching endpoint (/match-resumes/), keeping HTTP concerns separate from
// the business logic in internal/usecase.
package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rebota-hq/rebota/internal/domain"
)

type errorEnvelope struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, _ *http.Request, err error, details interface{}) {
	code := http.StatusInternalServerError
	codeStr := "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		code = http.StatusBadRequest
		codeStr = "INVALID_ARGUMENT"
	case errors.Is(err, domain.ErrNotFound):
		code = http.StatusNotFound
		codeStr = "NOT_FOUND"
	case errors.Is(err, domain.ErrEmbeddingFailed):
		code = http.StatusServiceUnavailable
		codeStr = "EMBEDDING_UNAVAILABLE"
	case errors.Is(err, domain.ErrLLMFailed):
		code = http.StatusServiceUnavailable
		codeStr = "LLM_UNAVAILABLE"
	case errors.Is(err, domain.ErrIndexRebuild):
		codeStr = "INDEX_REBUILD_FAILED"
	}
	writeJSON(w, code, errorEnvelope{Error: apiError{Code: codeStr, Message: err.Error(), Details: details}})
}
