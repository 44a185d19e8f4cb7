package db

import (
	"context"
	"fmt"
	"testing"
	"time"

	e "github.com/gartstein/empresas/internal/empresas/errors"
	"github.com/gartstein/empresas/internal/empresas/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB initializes an in-memory SQLite database for testing.
func SetupTestDB(t *testing.T, table string, withCompanies bool) *Repository {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err, "failed to open test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every pooled connection would otherwise get its own empty database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	repo := &Repository{db: db, table: table, profilesTable: "profiles"}
	require.NoError(t, repo.Migrate(context.Background(), withCompanies), "failed to migrate test database")
	return repo
}

func lowerRow(nombre string) map[string]interface{} {
	return map[string]interface{}{
		"nombre":    nombre,
		"direccion": "Calle " + nombre,
	}
}

// TestInsertAndSelectCompanies checks ordering, search and counting.
func TestInsertAndSelectCompanies(t *testing.T) {
	repo := SetupTestDB(t, "registros_empresas", true)
	ctx := context.Background()

	require.NoError(t, repo.InsertCompanies(ctx, []map[string]interface{}{
		lowerRow("Zeta Logistica"),
		lowerRow("acme"),
		lowerRow("ACME Norte"),
		lowerRow("Bodega"),
	}))

	page, err := repo.SelectCompanies(ctx, Query{OrderBy: "nombre", Count: true})
	require.NoError(t, err)
	require.NotNil(t, page.Total)
	assert.Equal(t, int64(4), *page.Total)
	assert.Len(t, page.Rows, 4)

	page, err = repo.SelectCompanies(ctx, Query{
		OrderBy:      "nombre",
		SearchColumn: "nombre",
		Term:         "AcMe",
		Count:        true,
	})
	require.NoError(t, err)
	require.NotNil(t, page.Total)
	assert.Equal(t, int64(2), *page.Total)
	for _, row := range page.Rows {
		assert.Contains(t, []interface{}{"acme", "ACME Norte"}, row["nombre"])
	}
}

// TestSelectCompaniesPaging verifies offset/limit windows and that the
// total ignores the window.
func TestSelectCompaniesPaging(t *testing.T) {
	repo := SetupTestDB(t, "registros_empresas", true)
	ctx := context.Background()

	var rows []map[string]interface{}
	for i := 0; i < 7; i++ {
		rows = append(rows, lowerRow(fmt.Sprintf("Empresa %02d", i)))
	}
	require.NoError(t, repo.InsertCompanies(ctx, rows))

	page, err := repo.SelectCompanies(ctx, Query{OrderBy: "nombre", Offset: 5, Limit: 5, Count: true})
	require.NoError(t, err)
	assert.Equal(t, int64(7), *page.Total)
	require.Len(t, page.Rows, 2)
	assert.Equal(t, "Empresa 05", page.Rows[0]["nombre"])
	assert.Equal(t, "Empresa 06", page.Rows[1]["nombre"])

	page, err = repo.SelectCompanies(ctx, Query{Limit: 3})
	require.NoError(t, err)
	assert.Nil(t, page.Total, "total is only computed on request")
	assert.Len(t, page.Rows, 3)
}

// TestSelectUppercaseTable reads a table created with uppercase columns.
func TestSelectUppercaseTable(t *testing.T) {
	repo := SetupTestDB(t, "empresas_upper", false)
	ctx := context.Background()

	require.NoError(t, repo.db.Exec(`CREATE TABLE empresas_upper (
		NOMBRE TEXT, DIRECCION TEXT, TELEFONO TEXT, NOMBRE_CARTA TEXT,
		PUESTO_CARTA TEXT, CORREO_CONT TEXT, PROGRAMA_EDUCATIVO_SOLICITADO TEXT,
		GIRO_DE_LA_EMPRESA TEXT)`).Error)
	require.NoError(t, repo.InsertCompanies(ctx, []map[string]interface{}{
		{"NOMBRE": "Acme", "GIRO_DE_LA_EMPRESA": "Retail"},
	}))

	page, err := repo.SelectCompanies(ctx, Query{Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Rows, 1)
	assert.Contains(t, page.Rows[0], "NOMBRE")
	assert.Equal(t, "Retail", page.Rows[0]["GIRO_DE_LA_EMPRESA"])
}

// TestDeleteCompaniesWhereNotNull removes everything and fails on an
// unknown column.
func TestDeleteCompaniesWhereNotNull(t *testing.T) {
	repo := SetupTestDB(t, "registros_empresas", true)
	ctx := context.Background()

	require.NoError(t, repo.InsertCompanies(ctx, []map[string]interface{}{lowerRow("a"), lowerRow("b")}))

	_, err := repo.DeleteCompaniesWhereNotNull(ctx, "no_such_column")
	assert.Error(t, err, "unknown column must fail so callers can fall back")

	n, err := repo.DeleteCompaniesWhereNotNull(ctx, "id")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	page, err := repo.SelectCompanies(ctx, Query{Count: true})
	require.NoError(t, err)
	assert.Equal(t, int64(0), *page.Total)
}

// TestSelectMissingTable surfaces the error instead of an empty result.
func TestSelectMissingTable(t *testing.T) {
	repo := SetupTestDB(t, "does_not_exist", false)

	_, err := repo.SelectCompanies(context.Background(), Query{Limit: 1})
	assert.Error(t, err)
}

// TestUsersAndProfiles covers account creation and the admin flag.
func TestUsersAndProfiles(t *testing.T) {
	repo := SetupTestDB(t, "registros_empresas", false)
	ctx := context.Background()

	id, err := repo.CreateUser(ctx, "admin@example.com", "hash")
	require.NoError(t, err)

	_, err = repo.CreateUser(ctx, "admin@example.com", "hash")
	assert.ErrorIs(t, err, e.ErrInvalidInput, "duplicate email should be rejected")

	gotID, hash, err := repo.GetUserByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, gotID)
	assert.Equal(t, "hash", hash)

	_, _, err = repo.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, e.ErrNotFound)

	_, err = repo.GetProfile(ctx, id)
	assert.ErrorIs(t, err, e.ErrNotFound)

	require.NoError(t, repo.UpsertProfile(ctx, models.Profile{ID: id, IsAdmin: false}))
	profile, err := repo.GetProfile(ctx, id)
	require.NoError(t, err)
	assert.False(t, profile.IsAdmin)

	require.NoError(t, repo.UpsertProfile(ctx, models.Profile{ID: id, IsAdmin: true}))
	profile, err = repo.GetProfile(ctx, id)
	require.NoError(t, err)
	assert.True(t, profile.IsAdmin)
}

func TestUserEmailIgnoresCase(t *testing.T) {
	repo := SetupTestDB(t, "registros_empresas", false)
	ctx := context.Background()

	id, err := repo.CreateUser(ctx, " Admin@Example.com ", "hash")
	require.NoError(t, err)

	for _, email := range []string{"admin@example.com", "ADMIN@EXAMPLE.COM", "Admin@Example.com"} {
		gotID, _, err := repo.GetUserByEmail(ctx, email)
		require.NoError(t, err, email)
		assert.Equal(t, id, gotID)
	}

	_, err = repo.CreateUser(ctx, "admin@EXAMPLE.com", "hash")
	assert.ErrorIs(t, err, e.ErrInvalidInput, "same address in another case is a duplicate")
}

// TestSessions covers session lifecycle and expiry.
func TestSessions(t *testing.T) {
	repo := SetupTestDB(t, "registros_empresas", false)
	ctx := context.Background()

	userID, err := repo.CreateUser(ctx, "admin@example.com", "hash")
	require.NoError(t, err)

	sid, err := repo.CreateSession(ctx, userID, time.Now().Add(time.Hour))
	require.NoError(t, err)

	session, err := repo.GetSession(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, userID, session.UserID)
	assert.Equal(t, "admin@example.com", session.Email)

	expired, err := repo.CreateSession(ctx, userID, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	_, err = repo.GetSession(ctx, expired)
	assert.ErrorIs(t, err, e.ErrNotFound)

	n, err := repo.DeleteExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, repo.DeleteSession(ctx, sid))
	_, err = repo.GetSession(ctx, sid)
	assert.ErrorIs(t, err, e.ErrNotFound)

	_, err = repo.GetSession(ctx, uuid.New())
	assert.ErrorIs(t, err, e.ErrNotFound)
}

// TestWithTransaction ensures transactions roll back on error.
func TestWithTransaction(t *testing.T) {
	repo := SetupTestDB(t, "registros_empresas", false)
	ctx := context.Background()

	err := repo.WithTransaction(ctx, func(txRepo *Repository) error {
		if _, err := txRepo.CreateUser(ctx, "rollback@example.com", "hash"); err != nil {
			return err
		}
		return fmt.Errorf("boom")
	})
	assert.Error(t, err)

	_, _, err = repo.GetUserByEmail(ctx, "rollback@example.com")
	assert.ErrorIs(t, err, e.ErrNotFound, "user should not exist after rollback")

	err = repo.WithTransaction(ctx, func(txRepo *Repository) error {
		id, err := txRepo.CreateUser(ctx, "commit@example.com", "hash")
		if err != nil {
			return err
		}
		return txRepo.UpsertProfile(ctx, models.Profile{ID: id, IsAdmin: true})
	})
	require.NoError(t, err)

	id, _, err := repo.GetUserByEmail(ctx, "commit@example.com")
	require.NoError(t, err)
	profile, err := repo.GetProfile(ctx, id)
	require.NoError(t, err)
	assert.True(t, profile.IsAdmin)
}
