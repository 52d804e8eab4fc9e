package api

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static
var staticFiles embed.FS

func (s *Server) registerUI(mux *http.ServeMux) {
	assets, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		serveAsset(w, r, assets, "index.html", "text/html; charset=utf-8")
	})
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServerFS(assets)))
	mux.HandleFunc("/manifest.webmanifest", func(w http.ResponseWriter, r *http.Request) {
		serveAsset(w, r, assets, "manifest.webmanifest", "application/manifest+json")
	})
	// The worker must be served from the root to control the whole page.
	mux.HandleFunc("/sw.js", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Service-Worker-Allowed", "/")
		serveAsset(w, r, assets, "sw.js", "text/javascript; charset=utf-8")
	})
}

func serveAsset(w http.ResponseWriter, r *http.Request, assets fs.FS, name, contentType string) {
	b, err := fs.ReadFile(assets, name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write(b)
}
