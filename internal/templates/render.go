// Package templates renders the viewer page and the HTML fragments sent in
// Datastar SSE responses.
package templates

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"
	"io/fs"
)

//go:embed fragments/*.html pages/*.html
var embedded embed.FS

//go:embed static
var static embed.FS

// Patterns are the template globs parsed by Default.
var Patterns = []string{"fragments/*.html", "pages/*.html"}

// funcMap provides common template functions.
var funcMap = template.FuncMap{
	// dict creates a map from key-value pairs for passing several values
	// to a nested template.
	"dict": func(values ...any) map[string]any {
		if len(values)%2 != 0 {
			return nil
		}
		m := make(map[string]any, len(values)/2)
		for i := 0; i < len(values); i += 2 {
			key, ok := values[i].(string)
			if !ok {
				continue
			}
			m[key] = values[i+1]
		}
		return m
	},
	// json encodes a value for a data-* attribute.
	"json": func(v any) (string, error) {
		b, err := json.Marshal(v)
		return string(b), err
	},
}

// Renderer manages HTML templates.
type Renderer struct {
	templates *template.Template
}

// New parses the templates matching patterns in fsys.
func New(fsys fs.FS, patterns ...string) (*Renderer, error) {
	tmpl, err := parse(fsys, patterns)
	if err != nil {
		return nil, err
	}
	return &Renderer{templates: tmpl}, nil
}

// Default returns a renderer over the embedded templates.
func Default() (*Renderer, error) {
	return New(embedded, Patterns...)
}

// Static returns the embedded static assets (scripts, styles).
func Static() fs.FS {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

func parse(fsys fs.FS, patterns []string) (*template.Template, error) {
	return template.New("").Funcs(funcMap).ParseFS(fsys, patterns...)
}

// Render renders a named template to a string.
func (r *Renderer) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
