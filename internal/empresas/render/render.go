// Package render produces the HTML for the login, admin and public search
// pages and the status line shown after every action.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/gartstein/empresas/internal/empresas/models"
)

//go:embed templates/*.html
var templateFS embed.FS

// Columns are the table headings, in cell order.
var Columns = []string{
	"Nombre",
	"Dirección",
	"Teléfono",
	"Nombre (carta)",
	"Puesto (carta)",
	"Correo de contacto",
	"Programa educativo solicitado",
	"Giro de la empresa",
}

// EmptyTableText fills the single placeholder row of an empty table.
const EmptyTableText = "No hay registros para mostrar."

// Filter keeps the rows whose name contains q, ignoring case. A blank q
// keeps every row.
func Filter(rows []models.Company, q string) []models.Company {
	return models.FilterByName(rows, q)
}

// LoginPage is the data behind the login form.
type LoginPage struct {
	Email         string
	Status        models.Status
	RedirectTo    string
	RedirectAfter int64 // milliseconds
}

// AdminPage is the data behind the admin dashboard.
type AdminPage struct {
	Email  string
	Query  string
	Rows   []models.Company
	Status models.Status
}

// EmpresasPage is the data behind the public search page.
type EmpresasPage struct {
	Query    string
	Rows     []models.Company
	Status   models.Status
	HasMore  bool
	NextPage int
}

// Renderer executes the embedded page templates.
type Renderer struct {
	pages map[string]*template.Template
	table *template.Template
}

var funcs = template.FuncMap{
	"alertClass": AlertClass,
	"columns":    func() []string { return Columns },
	"emptyText":  func() string { return EmptyTableText },
}

// NewRenderer parses the layout once per page.
func NewRenderer() (*Renderer, error) {
	base, err := template.New("layout.html").Funcs(funcs).
		ParseFS(templateFS, "templates/layout.html", "templates/partials.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse layout: %w", err)
	}

	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, page := range []string{"login.html", "admin.html", "empresas.html"} {
		clone, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := clone.ParseFS(templateFS, "templates/"+page); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", page, err)
		}
		r.pages[page] = clone
	}
	r.table = base.Lookup("rows")
	if r.table == nil {
		return nil, fmt.Errorf("rows template missing")
	}
	return r, nil
}

func (r *Renderer) Login(w io.Writer, p LoginPage) error {
	return r.page(w, "login.html", p)
}

func (r *Renderer) Admin(w io.Writer, p AdminPage) error {
	return r.page(w, "admin.html", p)
}

func (r *Renderer) Empresas(w io.Writer, p EmpresasPage) error {
	return r.page(w, "empresas.html", p)
}

func (r *Renderer) page(w io.Writer, name string, data interface{}) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	// a failed render must not write a partial page
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// Table renders the table body rows: one row per company with eight
// escaped cells, or the placeholder row when rows is empty.
func (r *Renderer) Table(w io.Writer, rows []models.Company) error {
	return r.table.Execute(w, rows)
}

// AlertClass maps a status kind to its bootstrap alert suffix.
func AlertClass(kind models.StatusKind) string {
	if kind == models.StatusError {
		return "danger"
	}
	if kind == "" {
		return string(models.StatusInfo)
	}
	return string(kind)
}
