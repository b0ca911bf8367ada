package web

import (
	"io/fs"
	"net/http"
)

// RegisterRoutes registers the static asset routes on the provided mux.
// Assets are served from the embedded filesystem at /static/*.
func RegisterRoutes(mux *http.ServeMux) {
	staticFS, _ := fs.Sub(StaticFS, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticFS)))
}
