// Package view renders the HTML pages. Templates are embedded in the binary;
// every page template defines "content" (and optionally "title") and is
// executed inside layout.html.
package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gearshare/internal/model"
)

//go:embed templates/*.html
var files embed.FS

// Page is the data every template receives.
type Page struct {
	Title      string
	User       *model.User
	Path       string
	Notice     string
	NoticeKind string // success, info, warning or danger
	Error      string
	Data       any
}

// Renderer implements echo.Renderer over the embedded templates.
type Renderer struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"money": func(v float64) string { return "$" + strconv.FormatFloat(v, 'f', 2, 64) },
	"ids": func(ids []int64) string {
		s := make([]string, len(ids))
		for i, id := range ids {
			s[i] = "#" + strconv.FormatInt(id, 10)
		}
		return strings.Join(s, ", ")
	},
	"statusClass": func(s model.BookingStatus) string {
		switch s {
		case model.StatusPending:
			return "warning"
		case model.StatusApproved:
			return "success"
		case model.StatusPaid:
			return "primary"
		}
		return "secondary"
	},
	"rating": func(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) },
}

// New parses the layout once and every page against its own clone of it.
func New() (*Renderer, error) {
	layout, err := template.New("layout.html").Funcs(funcs).ParseFS(files, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	names, err := fs.Glob(files, "templates/*.html")
	if err != nil {
		return nil, err
	}
	r := &Renderer{pages: map[string]*template.Template{}}
	for _, name := range names {
		base := path.Base(name)
		if base == "layout.html" {
			continue
		}
		t, err := layout.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(files, name); err != nil {
			return nil, fmt.Errorf("parse %s: %w", base, err)
		}
		r.pages[strings.TrimSuffix(base, ".html")] = t
	}
	return r, nil
}

// Render executes page name inside the layout.
func (r *Renderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("view: unknown page %q", name)
	}
	return t.ExecuteTemplate(w, "layout", data)
}

// Has reports whether a page template exists.
func (r *Renderer) Has(name string) bool {
	_, ok := r.pages[name]
	return ok
}
