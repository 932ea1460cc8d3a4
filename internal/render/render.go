package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	layoutFile   = "base.html"
	partialsFile = "partials.html"
	layoutName   = "base"
)

// Renderer renders HTML pages. Every page is parsed together with the shared
// layout and partials so pages can override the layout's blocks.
type Renderer struct {
	pages map[string]*template.Template
}

// New parses the embedded page templates.
func New() (*Renderer, error) {
	return NewFromFS(templateFS, "templates")
}

// NewFromFS parses the templates found in dir of fsys.
func NewFromFS(fsys fs.FS, dir string) (*Renderer, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read templates: %w", err)
	}

	shared := []string{path.Join(dir, layoutFile), path.Join(dir, partialsFile)}
	pages := make(map[string]*template.Template)

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || path.Ext(name) != ".html" || name == layoutFile || name == partialsFile {
			continue
		}

		files := append(append([]string{}, shared...), path.Join(dir, name))
		tmpl, err := template.New(name).ParseFS(fsys, files...)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		pages[name] = tmpl
	}

	return &Renderer{pages: pages}, nil
}

// Render executes the named page into a buffer first so a template error
// never produces a half-written response.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, data interface{}) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("template %s not found", name)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, layoutName, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
