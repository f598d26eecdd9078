package api

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
)

// HealthText is served on / when no UI bundle is present.
const HealthText = "Postgres query server is running"

// RegisterStatic serves the UI bundle in dir with index.html as the
// fallback for unknown non-API paths. Without a bundle only / answers,
// with the health text.
func RegisterStatic(r chi.Router, dir string) {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Write([]byte(HealthText))
		})
		return
	}
	SPAFileServer(r, os.DirFS(dir))
}

// SPAFileServer serves root on every GET path outside /api/.
func SPAFileServer(r chi.Router, root fs.FS) {
	files := http.FileServer(http.FS(root))

	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			http.NotFound(w, r)
			return
		}

		name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
		if name == "" {
			name = "."
		}
		if _, err := fs.Stat(root, name); errors.Is(err, fs.ErrNotExist) {
			http.ServeFileFS(w, r, root, "index.html")
			return
		}
		files.ServeHTTP(w, r)
	})
}
