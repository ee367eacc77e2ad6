// Package web embeds the single-page UI.
package web

import (
	"embed"
	"io"
	"io/fs"
	"net/http"
)

//go:embed static
var files embed.FS

var static = mustSub(files, "static")

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}

// Index serves the page shell.
func Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	serveFileFS(w, r, static, "index.html")
}

// serveFileFS is the Go 1.21 equivalent of http.ServeFileFS.
func serveFileFS(w http.ResponseWriter, r *http.Request, fsys fs.FS, name string) {
	f, err := fsys.Open(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	rs, ok := f.(io.ReadSeeker)
	if !ok {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), rs)
}

// Assets serves /static/*.
func Assets() http.Handler {
	return http.StripPrefix("/static/", http.FileServer(http.FS(static)))
}
