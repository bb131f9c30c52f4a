package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/dkovalev/novel-translate-back/internal/http/middleware"
	"github.com/dkovalev/novel-translate-back/internal/service"
)

const defaultMaxUploadBytes = 50 << 20

// API exposes the translation pipeline over HTTP. Every response that is
// not a file download carries the success-plus-message envelope.
type API struct {
	service        *service.TranslationService
	maxUploadBytes int64
	logger         *log.Logger
}

func NewAPI(svc *service.TranslationService, maxUploadBytes int64, logger *log.Logger) *API {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &API{
		service:        svc,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

func (api *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, statusCode int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]any{
		"success":    false,
		"message":    message,
		"request_id": middleware.GetRequestID(r.Context()),
	})
}

func decodeJSON(r *http.Request, value any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(value)
}
