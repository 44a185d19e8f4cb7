// Package importer turns an uploaded spreadsheet into company records.
// Headers are matched loosely so sheets exported with either column
// convention, or with human-friendly titles, resolve to the same fields.
package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	e "github.com/gartstein/empresas/internal/empresas/errors"
	"github.com/gartstein/empresas/internal/empresas/models"
	"github.com/xuri/excelize/v2"
)

// field resolves one logical column by the first alias found in the header.
type field struct {
	aliases []string
	set     func(c *models.Company, v string)
}

var fields = []field{
	{[]string{"nombre"}, func(c *models.Company, v string) { c.Nombre = v }},
	{[]string{"direccion"}, func(c *models.Company, v string) { c.Direccion = v }},
	{[]string{"telefono"}, func(c *models.Company, v string) { c.Telefono = v }},
	{[]string{"nombre_carta", "nombre carta"}, func(c *models.Company, v string) { c.NombreCarta = v }},
	{[]string{"puesto_carta", "puesto carta"}, func(c *models.Company, v string) { c.PuestoCarta = v }},
	{[]string{"correo_cont", "correo contacto", "correo"}, func(c *models.Company, v string) { c.CorreoCont = v }},
	{[]string{"programa educativo solicitado"}, func(c *models.Company, v string) { c.Programa = v }},
	{[]string{"giro de la empresa"}, func(c *models.Company, v string) { c.Giro = v }},
}

// Parse reads the first worksheet of an .xlsx/.xlsm file, or a .csv file,
// and returns the rows with a non-empty nombre. The filename only selects
// the format.
func Parse(filename string, r io.Reader) ([]models.Company, error) {
	var (
		grid [][]string
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".xlsx", ".xlsm":
		grid, err = readWorkbook(r)
	case ".csv":
		grid, err = readCSV(r)
	default:
		return nil, fmt.Errorf("unsupported file type %q: %w", ext, e.ErrInvalidInput)
	}
	if err != nil {
		return nil, err
	}
	return Resolve(grid)
}

// Resolve maps a header row plus data rows to companies.
func Resolve(grid [][]string) ([]models.Company, error) {
	if len(grid) < 2 {
		return nil, e.ErrEmptySheet
	}

	headers := make([]string, len(grid[0]))
	for i, h := range grid[0] {
		headers[i] = Normalize(h)
	}
	index := make([]int, len(fields))
	for i, f := range fields {
		index[i] = lookup(headers, f.aliases)
	}

	var out []models.Company
	for _, row := range grid[1:] {
		var c models.Company
		for i, f := range fields {
			f.set(&c, cell(row, index[i]))
		}
		if c.Nombre == "" {
			continue
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, e.ErrNoValidRows
	}
	return out, nil
}

// Normalize drops a byte order mark, trims and lowercases, then turns
// underscores into spaces, collapses whitespace and strips dots.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(s, "\ufeff")))
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.Join(strings.Fields(s), " ")
	return strings.ReplaceAll(s, ".", "")
}

func lookup(headers, aliases []string) int {
	for _, a := range aliases {
		want := Normalize(a)
		for i, h := range headers {
			if h == want {
				return i
			}
		}
	}
	return -1
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func readWorkbook(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("invalid workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets: %w", e.ErrEmptySheet)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("invalid csv: %w", err)
	}
	return rows, nil
}
