package database

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMigrationsFromFS(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/002_add_index.sql":         {Data: []byte("CREATE INDEX x ON y(z);")},
		"migrations/001_create_things.sql":     {Data: []byte("CREATE TABLE things();")},
		"migrations/README.md":                 {Data: []byte("ignored")},
		"migrations/nested/003_more_stuff.sql": {Data: []byte("SELECT 1;")},
	}

	migrations, err := LoadMigrationsFromFS(fsys, "migrations")
	require.NoError(t, err)
	require.Len(t, migrations, 3)

	assert.Equal(t, "001", migrations[0].Version)
	assert.Equal(t, "create things", migrations[0].Description)
	assert.Equal(t, "002", migrations[1].Version)
	assert.Equal(t, "003", migrations[2].Version)
	assert.Equal(t, "more stuff", migrations[2].Description)
}

func TestLoadMigrationsFromFSInvalidName(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/schema.sql": {Data: []byte("SELECT 1;")},
	}

	_, err := LoadMigrationsFromFS(fsys, "migrations")
	assert.ErrorIs(t, err, ErrInvalidMigration)
}

func TestEmbeddedMigrations(t *testing.T) {
	migrations, err := LoadMigrationsFromFS(embeddedMigrations, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	first := migrations[0]
	assert.Equal(t, "001", first.Version)
	assert.Contains(t, first.SQL, "CREATE TABLE IF NOT EXISTS client_storage")
	assert.Contains(t, first.SQL, "PRIMARY KEY (session_id, key)")
}

func TestMigrationManagerApply(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	migrations := []Migration{
		{Version: "001", Description: "first", SQL: "CREATE TABLE a()"},
		{Version: "002", Description: "second", SQL: "CREATE TABLE b()"},
	}

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT version FROM schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow("001"))
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TABLE b\(\)`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO schema_migrations").
		WithArgs("002", "second").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	applied, err := NewMigrationManager(db).Apply(context.Background(), migrations)
	require.NoError(t, err)
	assert.Equal(t, []string{"002"}, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrationManagerApplyRollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT version FROM schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"version"}))
	mock.ExpectBegin()
	mock.ExpectExec("BROKEN").WillReturnError(errors.New("syntax error"))
	mock.ExpectRollback()

	applied, err := NewMigrationManager(db).Apply(context.Background(), []Migration{
		{Version: "001", Description: "broken", SQL: "BROKEN"},
	})
	require.ErrorIs(t, err, ErrMigrationFailed)
	assert.Empty(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}
