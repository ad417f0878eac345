package router

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ytvaala/ytvaala/internal/apperr"
)

var (
	errNotFound         = apperr.NotFound("Not found")
	errMethodNotAllowed = apperr.MethodNotAllowed("Method not allowed")
)

// Response lets a handler choose the status code of a success envelope.
// Status codes of 400 and above produce success=false.
type Response struct {
	Status int
	Data   any
}

// envelope is the body shape shared by every JSON response.
type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	StatusCode int               `json:"statusCode"`
	Details    map[string]string `json:"details,omitempty"`
}

func (rt *Router) writeResult(w http.ResponseWriter, r *http.Request, result any) {
	if resp, ok := result.(*Response); ok {
		status := resp.Status
		if status == 0 {
			status = http.StatusOK
		}
		rt.writeJSON(w, r, status, envelope{Success: status < http.StatusBadRequest, Data: resp.Data})
		return
	}

	rt.writeJSON(w, r, http.StatusOK, envelope{Success: true, Data: result})
}

// writeError maps err to an error envelope. Untyped errors become a
// generic 500 and their text only reaches the log.
func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperr.As(err)
	if !ok {
		appErr = apperr.Internal(err)
	}

	if appErr.Status >= http.StatusInternalServerError {
		rt.logger.ErrorContext(r.Context(), "request failed",
			slog.String("request_id", rt.requestIDFor(r)),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}

	rt.writeJSON(w, r, appErr.Status, envelope{
		Success: false,
		Error: &errorBody{
			Message:    appErr.Message,
			Code:       appErr.Code,
			StatusCode: appErr.Status,
			Details:    appErr.Details,
		},
	})
}

func (rt *Router) writeJSON(w http.ResponseWriter, r *http.Request, status int, body envelope) {
	data, err := json.Marshal(body)
	if err != nil {
		rt.logger.ErrorContext(r.Context(), "failed to encode response",
			slog.String("request_id", rt.requestIDFor(r)),
			slog.String("error", err.Error()),
		)
		status = http.StatusInternalServerError
		data = []byte(`{"success":false,"error":{"message":"Internal Server Error","code":"INTERNAL_SERVER_ERROR","statusCode":500}}`)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func (rt *Router) requestIDFor(r *http.Request) string {
	if rt.requestID == nil {
		return ""
	}
	return rt.requestID(r.Context())
}
