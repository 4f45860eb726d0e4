package upload

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"direct2url/internal/apperr"
	"direct2url/internal/response"
	"direct2url/internal/storage"
	"direct2url/pkg/logger"
)

type Handler struct {
	service     *Service
	environment string
	started     time.Time
	now         func() time.Time
}

func NewHandler(service *Service, environment string) *Handler {
	return &Handler{
		service:     service,
		environment: environment,
		started:     time.Now(),
		now:         time.Now,
	}
}

// Register mounts every route on mux. The signing middlewares wrap only the
// three signing routes.
func (h *Handler) Register(mux *http.ServeMux, signing ...func(http.Handler) http.Handler) {
	for _, p := range storage.Providers {
		var route http.Handler = h.HandlePresign(p)
		for i := len(signing) - 1; i >= 0; i-- {
			route = signing[i](route)
		}
		mux.Handle(PathFor(p), route)
	}
	mux.HandleFunc(PathHealth, h.HandleHealth)
	mux.HandleFunc("/", h.HandleNotFound)
}

// HandlePresign handles POST on the signing route of provider p
func (h *Handler) HandlePresign(p storage.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			h.methodNotAllowed(w, r, http.MethodPost)
			return
		}

		var req PresignRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				response.Error(w, r, apperr.CodePayloadTooLarge, "request body too large", map[string]int64{"limit": tooLarge.Limit})
				return
			}
			response.Error(w, r, apperr.CodeValidation, "invalid request body", nil)
			return
		}

		resp, err := h.service.Presign(r.Context(), p, &req)
		if err != nil {
			h.logFailure(r, p, err)
			response.Err(w, r, err)
			return
		}

		response.JSON(w, http.StatusOK, resp)
	}
}

// HandleHealth handles GET /health
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		h.methodNotAllowed(w, r, http.MethodGet)
		return
	}

	now := h.now()
	response.JSON(w, http.StatusOK, HealthResponse{
		Status:      "healthy",
		Timestamp:   now.UTC().Format(time.RFC3339Nano),
		Uptime:      now.Sub(h.started).Seconds(),
		Environment: h.environment,
	})
}

// HandleNotFound answers every unknown route
func (h *Handler) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	response.Error(w, r, apperr.CodeNotFound, "route not found", map[string]string{"path": r.URL.Path})
}

func (h *Handler) methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed string) {
	w.Header().Set("Allow", allowed)
	response.Error(w, r, apperr.CodeMethodNotAllowed, "method not allowed", map[string]string{"method": r.Method})
}

// logFailure records the code and provider of a failed request. Request
// bodies carry credentials and are never logged.
func (h *Handler) logFailure(r *http.Request, p storage.Provider, err error) {
	code := apperr.CodeOf(err)
	event := logger.Log.Warn()
	if code.Status() >= http.StatusInternalServerError {
		event = logger.Log.Error()
		var e *apperr.Error
		if errors.As(err, &e) && e.Err != nil {
			event = event.Str("cause", e.Err.Error())
		}
	}
	event.
		Str("code", string(code)).
		Str("provider", p.String()).
		Str("request_id", response.RequestID(r.Context())).
		Msg("signed url request failed")
}
