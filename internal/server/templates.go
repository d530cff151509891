package server

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/hyperjump/ocrdown/internal/session"
)

//go:embed web/templates/*.html
var templateFS embed.FS

//go:embed web/static
var staticFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "web/templates/*.html"))

type pageData struct {
	Flashes []session.Flash
}

type indexData struct {
	pageData
	Extensions  []string
	MaxUploadMB int
}

type resultsData struct {
	pageData
	HTML         template.HTML
	Markdown     string
	ResultID     string
	Filename     string
	DownloadName string
}

func staticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "web/static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}
