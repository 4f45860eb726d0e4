package response

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"direct2url/internal/apperr"
	"direct2url/pkg/logger"
)

type ctxKey struct{}

// WithRequestID stores the request id used in error envelopes.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// RequestID returns the id stored by WithRequestID, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// ErrorBody is the payload of every failed response
type ErrorBody struct {
	Code      apperr.Code `json:"code"`
	Message   string      `json:"message"`
	Details   any         `json:"details,omitempty"`
	Timestamp string      `json:"timestamp"`
	RequestID string      `json:"requestId,omitempty"`
}

// ErrorEnvelope wraps ErrorBody under "error"
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// JSON writes v with the given status
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Warn().Err(err).Msg("failed to encode response")
	}
}

// Error writes the envelope for a coded failure with the code's status
func Error(w http.ResponseWriter, r *http.Request, code apperr.Code, message string, details any) {
	JSON(w, code.Status(), ErrorEnvelope{Error: ErrorBody{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		RequestID: RequestID(r.Context()),
	}})
}

// Err writes the envelope for err. Uncoded errors become INTERNAL_ERROR
// without leaking their text.
func Err(w http.ResponseWriter, r *http.Request, err error) {
	var e *apperr.Error
	if errors.As(err, &e) {
		Error(w, r, e.Code, e.Message, e.Details)
		return
	}
	Error(w, r, apperr.CodeInternal, "internal server error", nil)
}
