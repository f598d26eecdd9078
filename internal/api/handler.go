package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"codequery/internal/core"
	"codequery/internal/service"
)

// maxBodyBytes bounds request bodies; settings documents are the largest.
const maxBodyBytes = 10 << 20

var errInvalidJSON = errors.New("Invalid JSON body")

type Handler struct {
	reports  *service.ReportService
	settings core.SettingsRepository
	limiter  *RateLimiter
}

func NewHandler(reports *service.ReportService, settings core.SettingsRepository) *Handler {
	return &Handler{
		reports:  reports,
		settings: settings,
	}
}

// WithRateLimiter limits the routes that open database connections.
func (h *Handler) WithRateLimiter(rl *RateLimiter) *Handler {
	h.limiter = rl
	return h
}

// Routes returns the /api routes.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/settings", h.GetSettings)
	r.Post("/settings", h.SaveSettings)
	r.Post("/sql", h.PreviewSQL)
	r.Get("/history", h.History)

	// Database routes
	r.Group(func(r chi.Router) {
		if h.limiter != nil {
			r.Use(h.limiter.Middleware)
		}
		r.Post("/summary", h.Summary)
		r.Post("/summary/export", h.ExportSummary)
		r.Post("/full", h.Full)
		r.Post("/full/export", h.ExportFull)
	})

	return r
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return errInvalidJSON
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.S().Named("api").Errorw("failed to encode response", "error", err)
	}
}

// writeError maps validation errors to 400 and everything else to 500,
// with the error message as a plain-text body.
func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, core.ErrValidation) {
		http.Error(w, core.Message(err), http.StatusBadRequest)
		return
	}
	if errors.Is(err, errInvalidJSON) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
