package render

import (
	"errors"
	"fmt"

	e "github.com/gartstein/empresas/internal/empresas/errors"
	"github.com/gartstein/empresas/internal/empresas/models"
)

// Loaded reports the outcome of a full admin load.
func Loaded(n int) models.Status {
	if n == 0 {
		return models.Warning("Sin registros en la base de datos.")
	}
	return models.Success(fmt.Sprintf("Listo. Registros: %d", n))
}

// Results reports the outcome of a public search.
func Results(n int) models.Status {
	if n == 0 {
		return models.Info("Sin resultados.")
	}
	return models.Success(fmt.Sprintf("Resultados: %d", n))
}

func LoadFailed(err error) models.Status {
	return models.Error("Error al cargar datos: " + message(err))
}

// SearchFailed hints at the usual causes when every name column probe fails.
func SearchFailed() models.Status {
	return models.Error("Error al cargar datos. Revisa los permisos y el nombre de la tabla/columnas.")
}

func Replaced(n int) models.Status {
	return models.Success(fmt.Sprintf("Listo. Base de datos actualizada con el Excel. Registros: %d", n))
}

// ImportFailed describes why a bulk replace was rejected or did not finish.
func ImportFailed(err error) models.Status {
	switch {
	case errors.Is(err, e.ErrEmptySheet):
		return models.Error("El Excel no tiene datos (solo encabezados o está vacío).")
	case errors.Is(err, e.ErrNoValidRows):
		return models.Error("No se encontraron filas válidas (faltó la columna NOMBRE o vienen vacías).")
	case errors.Is(err, e.ErrInvalidInput):
		return models.Error("Formato de archivo no soportado. Usa .xlsx, .xlsm o .csv.")
	case errors.Is(err, e.ErrConfirmationRequired):
		return Unconfirmed()
	case errors.Is(err, e.ErrBusy):
		return Busy()
	case errors.Is(err, e.ErrClearFailed):
		return models.Error("No se pudo limpiar la BD antes de insertar. Error: " + message(err))
	case errors.Is(err, e.ErrInsertFailed):
		return models.Error("Error insertando registros: " + message(err))
	default:
		return models.Error("Error leyendo Excel: " + message(err))
	}
}

func Cleared() models.Status {
	return models.Success("Listo. Se eliminaron todos los registros.")
}

// ClearFailed points at permissions, the usual reason a delete is refused.
func ClearFailed(err error) models.Status {
	switch {
	case errors.Is(err, e.ErrConfirmationRequired):
		return Unconfirmed()
	case errors.Is(err, e.ErrBusy):
		return Busy()
	}
	return models.Error("No se pudo eliminar. Revisa permisos de administrador. Error: " + message(err))
}

func Busy() models.Status {
	return models.Warning("Otra operación sobre la base de datos está en curso. Intenta de nuevo en un momento.")
}

func Unconfirmed() models.Status {
	return models.Warning("La operación requiere confirmación.")
}

func message(err error) string {
	if err == nil {
		return "desconocido"
	}
	return err.Error()
}
