package api

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// dashboard serves the static UI from dir, answering unknown paths with
// index.html so client-side routes survive a reload.
func (h *Handler) dashboard(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	index := filepath.Join(dir, "index.html")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			h.notFound(w, r)
			return
		}
		name := filepath.Join(dir, filepath.FromSlash(path.Clean("/"+r.URL.Path)))
		if info, err := os.Stat(name); err == nil && !info.IsDir() {
			files.ServeHTTP(w, r)
			return
		}
		if _, err := os.Stat(index); err != nil {
			h.notFound(w, r)
			return
		}
		http.ServeFile(w, r, index)
	})
}
