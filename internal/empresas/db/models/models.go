// Package models contains the storage models for the application,
// configured to work using GORM as the ORM.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Company is the lowercase-convention companies table, used when the
// service is allowed to create its own schema. Deployments that already
// have an uppercase table are read through generic rows and never migrated.
type Company struct {
	ID          uint   `gorm:"primaryKey"`
	Nombre      string `gorm:"column:nombre;index"`
	Direccion   string `gorm:"column:direccion"`
	Telefono    string `gorm:"column:telefono"`
	NombreCarta string `gorm:"column:nombre_carta"`
	PuestoCarta string `gorm:"column:puesto_carta"`
	CorreoCont  string `gorm:"column:correo_cont"`
	Programa    string `gorm:"column:programa_educativo_solicitado"`
	Giro        string `gorm:"column:giro_de_la_empresa"`
	CreatedAt   time.Time
}

// User holds login credentials.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email        string    `gorm:"size:320;uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time
}

// Profile carries the admin flag, keyed by the user id.
type Profile struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey"`
	IsAdmin bool      `gorm:"column:is_admin;not null"`
}

// Session is a server-side session row. Deleting it revokes the token.
type Session struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null"`
	CreatedAt time.Time
	ExpiresAt time.Time `gorm:"index"`
}
