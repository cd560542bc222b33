package views

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	OfferPage    = "offer.html"
	ResultPage   = "result.html"
	NotFoundPage = "not_found.html"
)

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// ResultView drives the page rendered after an acceptance attempt.
type ResultView struct {
	Won     bool
	Title   string
	Message string
}

// Render buffers the page so a template error writes nothing.
func Render(w http.ResponseWriter, status int, name string, data any) error {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
