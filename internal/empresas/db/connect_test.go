package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func TestConnect_SQLite(t *testing.T) {
	cfg := &Config{
		Driver:        "sqlite",
		Path:          filepath.Join(t.TempDir(), "empresas.db"),
		Table:         "registros_empresas",
		ProfilesTable: "profiles",
		Migrate:       true,
	}

	repo, err := Connect(context.Background(), cfg, 1, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer repo.Close()

	assert.NoError(t, repo.Ping(context.Background()))
	page, err := repo.SelectCompanies(context.Background(), Query{Count: true})
	require.NoError(t, err)
	assert.Equal(t, int64(0), *page.Total)
}

func TestConnect_GivesUp(t *testing.T) {
	cfg := &Config{
		Driver:        "sqlite",
		Path:          filepath.Join(t.TempDir(), "missing", "dir", "empresas.db"),
		Table:         "registros_empresas",
		ProfilesTable: "profiles",
	}
	core, recorded := observer.New(zap.WarnLevel)

	_, err := Connect(context.Background(), cfg, 2, zap.New(core))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, 3, recorded.FilterMessage("database not ready").Len())
}
