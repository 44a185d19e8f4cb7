// Package models defines the core domain models: the Company record with
// its eight logical fields, the admin Profile, the authenticated Session
// and the Status shown to users after every action.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Company defines the domain model for one row of the companies table.
// Field values are always strings; a missing value is the empty string.
type Company struct {
	// Nombre is the company name, required and used as search/sort key.
	Nombre string `json:"nombre"`
	// Direccion is the postal address.
	Direccion string `json:"direccion"`
	// Telefono is the phone number.
	Telefono string `json:"telefono"`
	// NombreCarta is the contact person named in the letter.
	NombreCarta string `json:"nombre_carta"`
	// PuestoCarta is the contact person's title.
	PuestoCarta string `json:"puesto_carta"`
	// CorreoCont is the contact email.
	CorreoCont string `json:"correo_cont"`
	// Programa is the requested educational program.
	Programa string `json:"programa_educativo_solicitado"`
	// Giro is the business sector.
	Giro string `json:"giro_de_la_empresa"`
}

// Cells returns the eight field values in table column order.
func (c Company) Cells() []string {
	return []string{
		c.Nombre,
		c.Direccion,
		c.Telefono,
		c.NombreCarta,
		c.PuestoCarta,
		c.CorreoCont,
		c.Programa,
		c.Giro,
	}
}

// NameContains reports whether the name contains q, ignoring case.
// q is expected to be lowercased and trimmed already.
func (c Company) NameContains(q string) bool {
	return strings.Contains(strings.ToLower(c.Nombre), q)
}

// FilterByName keeps the rows whose name contains q, ignoring case. A
// blank q keeps every row.
func FilterByName(rows []Company, q string) []Company {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return rows
	}
	out := make([]Company, 0, len(rows))
	for _, r := range rows {
		if r.NameContains(q) {
			out = append(out, r)
		}
	}
	return out
}

// Profile is the per-user record carrying the admin flag.
type Profile struct {
	ID      uuid.UUID
	IsAdmin bool
}

// Session is an authenticated principal bound to a server-side session row.
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Email     string
	ExpiresAt time.Time
}
