package errors

import (
	"fmt"
)

var (
	ErrNotFound             = fmt.Errorf("not found")
	ErrInvalidInput         = fmt.Errorf("invalid input")
	ErrInvalidCredentials   = fmt.Errorf("invalid login credentials")
	ErrForbidden            = fmt.Errorf("admin permissions required")
	ErrNoSession            = fmt.Errorf("no active session")
	ErrEmptySheet           = fmt.Errorf("spreadsheet has no data rows")
	ErrNoValidRows          = fmt.Errorf("no valid rows found")
	ErrBusy                 = fmt.Errorf("another destructive operation is in progress")
	ErrConfirmationRequired = fmt.Errorf("explicit confirmation required")
	ErrStaleRequest         = fmt.Errorf("superseded by a newer request")
	ErrConfig               = fmt.Errorf("configuration error")
	ErrClearFailed          = fmt.Errorf("could not delete existing records")
	ErrInsertFailed         = fmt.Errorf("could not insert records")
)
