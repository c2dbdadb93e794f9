package web

// errors.go provides unified error response handling for the web layer.
//
// Every error is logged with its technical details and the request id, then
// returned to the client as the user message from core.MapError: JSON for
// API routes, a small HTML page otherwise.

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/JonMunkholm/sheetbridge/internal/core"
	"github.com/JonMunkholm/sheetbridge/internal/logging"
	"github.com/JonMunkholm/sheetbridge/internal/sink"
	"github.com/JonMunkholm/sheetbridge/internal/source"
	"github.com/JonMunkholm/sheetbridge/internal/web/templates"
)

// ErrorResponse represents the JSON structure for API error responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
	RunID   string `json:"run_id,omitempty"`
}

// respondError logs err and writes the mapped user message.
func respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	respondRunError(w, r, err, statusCode, uuid.Nil)
}

func respondRunError(w http.ResponseWriter, r *http.Request, err error, statusCode int, runID uuid.UUID) {
	userMsg := core.MapError(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	if !wantsJSON(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(statusCode)
		_ = templates.ErrorPage(userMsg).Render(r.Context(), w)
		return
	}

	resp := ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	}
	if runID != uuid.Nil {
		resp.RunID = runID.String()
	}
	writeJSON(w, statusCode, resp)
}

// badRequest writes a 400 with a message that is safe to show as is.
func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:   message,
		Message: message,
		Code:    "REQ001",
	})
}

// statusFor picks the HTTP status for an error from the service.
func statusFor(err error) int {
	var (
		fetchErr *source.FetchError
		pushErr  *sink.PushError
	)
	switch {
	case errors.Is(err, core.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrTooManyTransfers), errors.Is(err, core.ErrNoSink):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &fetchErr):
		if fetchErr.Op == source.OpMetadata {
			return http.StatusNotFound
		}
		return http.StatusBadGateway
	case errors.As(err, &pushErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// wantsJSON checks if the client prefers JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.Contains(r.Header.Get("Content-Type"), "application/json")
}

// writeJSON encodes v as JSON with the given status.
// Encoding errors are logged since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
