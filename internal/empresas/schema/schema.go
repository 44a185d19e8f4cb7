// Package schema describes the two physical column naming conventions a
// deployment's companies table may use, detects which one is active and
// caches that decision for the rest of the process.
package schema

import (
	"sync"

	"github.com/gartstein/empresas/internal/empresas/models"
	"github.com/spf13/cast"
)

// IDColumn is the surrogate key column most deployments carry.
const IDColumn = "id"

// Convention is one of the two column naming schemes.
type Convention int

const (
	// Unknown means no convention has been detected yet.
	Unknown Convention = iota
	// Lower is all-lowercase with underscores (nombre, giro_de_la_empresa).
	Lower
	// Upper is all-uppercase (NOMBRE, GIRO_DE_LA_EMPRESA).
	Upper
)

// Columns maps the eight logical fields to physical column names.
type Columns struct {
	Nombre      string
	Direccion   string
	Telefono    string
	NombreCarta string
	PuestoCarta string
	CorreoCont  string
	Programa    string
	Giro        string
}

var (
	lowerColumns = Columns{
		Nombre:      "nombre",
		Direccion:   "direccion",
		Telefono:    "telefono",
		NombreCarta: "nombre_carta",
		PuestoCarta: "puesto_carta",
		CorreoCont:  "correo_cont",
		Programa:    "programa_educativo_solicitado",
		Giro:        "giro_de_la_empresa",
	}
	upperColumns = Columns{
		Nombre:      "NOMBRE",
		Direccion:   "DIRECCION",
		Telefono:    "TELEFONO",
		NombreCarta: "NOMBRE_CARTA",
		PuestoCarta: "PUESTO_CARTA",
		CorreoCont:  "CORREO_CONT",
		Programa:    "PROGRAMA_EDUCATIVO_SOLICITADO",
		Giro:        "GIRO_DE_LA_EMPRESA",
	}
)

// Candidates lists conventions in probing order.
func Candidates() []Convention {
	return []Convention{Lower, Upper}
}

func (c Convention) String() string {
	switch c {
	case Lower:
		return "lower"
	case Upper:
		return "upper"
	default:
		return "unknown"
	}
}

// Columns returns the physical column table. Unknown resolves to Lower.
func (c Convention) Columns() Columns {
	if c == Upper {
		return upperColumns
	}
	return lowerColumns
}

// NameColumn is the physical name of the nombre column.
func (c Convention) NameColumn() string {
	return c.Columns().Nombre
}

// Other returns the alternate convention.
func (c Convention) Other() Convention {
	if c == Upper {
		return Lower
	}
	return Upper
}

// Detect picks the convention from the key set of a fetched row: Lower if
// the lowercase name column is present, else Upper if the uppercase one
// is, else Lower.
func Detect(row map[string]interface{}) Convention {
	if _, ok := row[lowerColumns.Nombre]; ok {
		return Lower
	}
	if _, ok := row[upperColumns.Nombre]; ok {
		return Upper
	}
	return Lower
}

// Encode builds a storage row for the company under this convention.
func (c Convention) Encode(company models.Company) map[string]interface{} {
	cols := c.Columns()
	return map[string]interface{}{
		cols.Nombre:      company.Nombre,
		cols.Direccion:   company.Direccion,
		cols.Telefono:    company.Telefono,
		cols.NombreCarta: company.NombreCarta,
		cols.PuestoCarta: company.PuestoCarta,
		cols.CorreoCont:  company.CorreoCont,
		cols.Programa:    company.Programa,
		cols.Giro:        company.Giro,
	}
}

// EncodeAll encodes a slice of companies.
func (c Convention) EncodeAll(companies []models.Company) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(companies))
	for _, company := range companies {
		out = append(out, c.Encode(company))
	}
	return out
}

// Decode reads a storage row. Each field is read from this convention's
// column first, then from the other convention's, then from the older
// column names hand-made tables used, so output is the same whichever
// convention the row was stored under.
func (c Convention) Decode(row map[string]interface{}) models.Company {
	primary, alt := c.Columns(), c.Other().Columns()
	get := func(keys ...string) string {
		for _, k := range keys {
			if v, ok := row[k]; ok && v != nil {
				return cast.ToString(v)
			}
		}
		return ""
	}
	return models.Company{
		Nombre:      get(primary.Nombre, alt.Nombre),
		Direccion:   get(primary.Direccion, alt.Direccion),
		Telefono:    get(primary.Telefono, alt.Telefono),
		NombreCarta: get(primary.NombreCarta, alt.NombreCarta, "nombreCarta", "NOMBRECARTA"),
		PuestoCarta: get(primary.PuestoCarta, alt.PuestoCarta, "puestoCarta", "PUESTOCARTA"),
		CorreoCont:  get(primary.CorreoCont, alt.CorreoCont, "correo", "CORREO"),
		Programa:    get(primary.Programa, alt.Programa, "programa", "PROGRAMA", "programa_educativo", "PROGRAMA_EDUCATIVO"),
		Giro:        get(primary.Giro, alt.Giro, "giro", "GIRO"),
	}
}

// DecodeAll decodes a slice of storage rows.
func (c Convention) DecodeAll(rows []map[string]interface{}) []models.Company {
	out := make([]models.Company, 0, len(rows))
	for _, row := range rows {
		out = append(out, c.Decode(row))
	}
	return out
}

// Resolver caches the active convention. Once set, every read and write
// uses it; probing is only repeated while it is unset.
type Resolver struct {
	mu   sync.RWMutex
	conv Convention
}

// NewResolver returns a Resolver with no convention fixed.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Get returns the active convention and whether one has been fixed.
func (r *Resolver) Get() (Convention, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conv, r.conv != Unknown
}

// Active returns the fixed convention, or Lower if none is fixed yet.
func (r *Resolver) Active() Convention {
	if c, ok := r.Get(); ok {
		return c
	}
	return Lower
}

// Set fixes the convention.
func (r *Resolver) Set(c Convention) {
	r.mu.Lock()
	r.conv = c
	r.mu.Unlock()
}
