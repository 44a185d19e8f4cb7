package schema

import (
	"testing"

	"github.com/gartstein/empresas/internal/empresas/models"
	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		row  map[string]interface{}
		want Convention
	}{
		{
			name: "lowercase name column",
			row:  map[string]interface{}{"id": 1, "nombre": "Acme"},
			want: Lower,
		},
		{
			name: "uppercase name column",
			row:  map[string]interface{}{"id": 1, "NOMBRE": "Acme"},
			want: Upper,
		},
		{
			name: "both present prefers lower",
			row:  map[string]interface{}{"nombre": "a", "NOMBRE": "b"},
			want: Lower,
		},
		{
			name: "neither present defaults to lower",
			row:  map[string]interface{}{"id": 1},
			want: Lower,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.row))
		})
	}
}

func TestConventionTransparency(t *testing.T) {
	company := models.Company{
		Nombre:      "Acme",
		Direccion:   "Calle 1",
		Telefono:    "555",
		NombreCarta: "Ana",
		PuestoCarta: "Gerente",
		CorreoCont:  "ana@acme.mx",
		Programa:    "ISC",
		Giro:        "Software",
	}

	for _, stored := range Candidates() {
		row := stored.Encode(company)
		for _, active := range Candidates() {
			assert.Equal(t, company, active.Decode(row),
				"stored as %s, decoded as %s", stored, active)
		}
		assert.Equal(t, stored, Detect(row))
	}
}

func TestDecodeCoercesValues(t *testing.T) {
	row := map[string]interface{}{
		"NOMBRE":    []byte("Acme"),
		"TELEFONO":  int64(5551234),
		"DIRECCION": nil,
	}

	got := Upper.Decode(row)

	assert.Equal(t, "Acme", got.Nombre)
	assert.Equal(t, "5551234", got.Telefono)
	assert.Equal(t, "", got.Direccion)
}

func TestEncodeUsesConventionColumns(t *testing.T) {
	row := Upper.Encode(models.Company{Nombre: "Acme", Giro: "Retail"})

	assert.Equal(t, "Acme", row["NOMBRE"])
	assert.Equal(t, "Retail", row["GIRO_DE_LA_EMPRESA"])
	assert.NotContains(t, row, "nombre")
	assert.Len(t, row, 8)
}

func TestResolver(t *testing.T) {
	r := NewResolver()

	_, ok := r.Get()
	assert.False(t, ok)
	assert.Equal(t, Lower, r.Active())

	r.Set(Upper)
	c, ok := r.Get()
	assert.True(t, ok)
	assert.Equal(t, Upper, c)
	assert.Equal(t, "NOMBRE", r.Active().NameColumn())
}

func TestDecodeLegacyColumnNames(t *testing.T) {
	row := map[string]interface{}{
		"nombre":             "Acme",
		"nombreCarta":        "Ana",
		"PUESTOCARTA":        "Gerente",
		"correo":             "ana@acme.mx",
		"programa_educativo": "ISC",
		"GIRO":               "Software",
	}

	got := Lower.Decode(row)

	assert.Equal(t, models.Company{
		Nombre:      "Acme",
		NombreCarta: "Ana",
		PuestoCarta: "Gerente",
		CorreoCont:  "ana@acme.mx",
		Programa:    "ISC",
		Giro:        "Software",
	}, got)

	row["correo_cont"] = "contacto@acme.mx"
	assert.Equal(t, "contacto@acme.mx", Lower.Decode(row).CorreoCont, "canonical column wins")
}
