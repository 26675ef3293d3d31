package app_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marknadsdata/insider-crawler/internal/app"
	"github.com/marknadsdata/insider-crawler/internal/warehouse"
)

func TestNewAppWithNoopWriter(t *testing.T) {
	t.Setenv("INSIDER_DATABASE_PROVIDER", "noop")

	a, err := app.NewApp(context.Background(), "")
	require.NoError(t, err)
	require.NotNil(t, a)
	defer a.Close()

	assert.NotNil(t, a.GetLogger())
	assert.IsType(t, &warehouse.NoOpWriter{}, a.GetStage())
	assert.Nil(t, a.GetWriter())
	assert.Equal(t, "noop", a.GetConfig().Database.Provider)
}

func TestNewAppPostgresRequiresDSN(t *testing.T) {
	t.Setenv("INSIDER_DATABASE_PROVIDER", "postgres")
	t.Setenv("INSIDER_DATABASE_DSN", "")

	_, err := app.NewApp(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.dsn is required")
}

func TestNewAppRejectsMissingConfigFile(t *testing.T) {
	t.Setenv("INSIDER_DATABASE_PROVIDER", "noop")

	_, err := app.NewApp(context.Background(), "does-not-exist.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load configuration")
}
