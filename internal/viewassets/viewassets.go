// Package viewassets embeds and serves the charting page the host drives.
package viewassets

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"
)

//go:embed static
var files embed.FS

// DefaultLibURL is the charting engine build the interpreter is written for.
const DefaultLibURL = "https://unpkg.com/lightweight-charts@4.1.3/dist/lightweight-charts.standalone.production.js"

// Page configures index.html.
type Page struct {
	Title  string
	LibURL string

	// BundleURL optionally loads the drawing primitives exposed as
	// window.Lib. Without it drawings render on an overlay canvas.
	BundleURL string
}

// Static returns the embedded files rooted at static/.
func Static() fs.FS {
	sub, err := fs.Sub(files, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// Handler serves index.html (rendered once from p) and the interpreter
// script. Mount it with http.StripPrefix.
func Handler(p Page) (http.Handler, error) {
	if p.Title == "" {
		p.Title = "lwcharts"
	}
	if p.LibURL == "" {
		p.LibURL = DefaultLibURL
	}
	tmpl, err := template.ParseFS(files, "static/index.html")
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, p); err != nil {
		return nil, err
	}
	index := buf.Bytes()
	modTime := time.Now()
	static := http.FileServer(http.FS(Static()))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || r.URL.Path == "/" || r.URL.Path == "/index.html" {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			http.ServeContent(w, r, "index.html", modTime, bytes.NewReader(index))
			return
		}
		slog.Debug("view asset", "path", r.URL.Path)
		static.ServeHTTP(w, r)
	}), nil
}
