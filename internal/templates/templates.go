// Package templates renders the server-side pages of the dashboard.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"asset-dashboard/internal/dashboard"
	"asset-dashboard/internal/format"
	"asset-dashboard/internal/models"
)

//go:embed pages/*.gohtml
var pageFS embed.FS

const layoutFile = "pages/layout.gohtml"

// Page names accepted by Render
const (
	Login         = "login"
	Dashboard     = "dashboard"
	ConfirmDelete = "confirm_delete"
	Error         = "error"
)

// LoginPage is the sign-in form. Error is shown inline under the inputs.
type LoginPage struct {
	User  string
	Email string
	Error string
}

// DashboardPage is the main dashboard with an optional open detail form
type DashboardPage struct {
	User   string
	View   dashboard.View
	Fields []models.EditableField
}

type ConfirmPage struct {
	User   string
	Asset  models.Asset
	Prompt string
}

type ErrorPage struct {
	User    string
	Status  int
	Message string
}

// Renderer holds one parsed template set per page
type Renderer struct {
	pages map[string]*template.Template
}

// New parses every embedded page against the shared layout. now is the
// reference clock for asset age; nil means time.Now.
func New(now func() time.Time) (*Renderer, error) {
	if now == nil {
		now = time.Now
	}
	funcs := funcMap(now)

	names, err := fs.Glob(pageFS, "pages/*.gohtml")
	if err != nil {
		return nil, err
	}
	r := &Renderer{pages: map[string]*template.Template{}}
	for _, file := range names {
		if file == layoutFile {
			continue
		}
		name := strings.TrimSuffix(path.Base(file), ".gohtml")
		t, err := template.New(name).Funcs(funcs).ParseFS(pageFS, layoutFile, file)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Render executes a page into a buffer and writes it with status. Nothing is
// written when execution fails.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, data any) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

func funcMap(now func() time.Time) template.FuncMap {
	return template.FuncMap{
		"displayName":  format.DisplayName,
		"orNA":         format.OrNA,
		"date":         format.Date,
		"primaryImage": format.PrimaryImage,
		"depreciation": format.DepreciationPercent,
		"duration": func(purchase *string) string {
			return format.Duration(purchase, now())
		},
		"pathEscape": url.PathEscape,
		"statusText": http.StatusText,
		"kind": func(f models.EditableField) string {
			return string(f.Kind)
		},
		"inputType":    inputType,
		"fieldValue":   fieldValue,
		"fieldChecked": fieldChecked,
	}
}

func inputType(f models.EditableField) string {
	switch f.Kind {
	case models.KindInt, models.KindFloat:
		return "number"
	case models.KindDate:
		return "date"
	}
	return "text"
}

// fieldValue is the value attribute of a detail form input
func fieldValue(f models.EditableField, a models.Asset) string {
	switch v := f.Get(&a).(type) {
	case nil:
		return ""
	case string:
		if f.Kind == models.KindDate {
			if t, ok := format.ParseDate(v); ok {
				return t.Format(format.InputDateLayout)
			}
		}
		return v
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []string:
		return format.ImageList(v)
	default:
		return fmt.Sprint(v)
	}
}

func fieldChecked(f models.EditableField, a models.Asset) bool {
	b, _ := f.Get(&a).(bool)
	return b
}
