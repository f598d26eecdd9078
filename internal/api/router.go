package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires the middleware, the /api routes and the UI bundle.
func NewRouter(h *Handler, distPath string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware())

	r.Mount("/api", h.Routes())
	RegisterStatic(r, distPath)

	return r
}
