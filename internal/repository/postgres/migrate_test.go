package postgres

import (
	"context"
	"io/fs"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMigrationMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func embeddedMigrations(t *testing.T) []string {
	t.Helper()
	names, err := fs.Glob(migrationFiles, "migrations/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, names)
	return names
}

func TestMigrate_SkipsApplied(t *testing.T) {
	db, mock := newMigrationMock(t)
	names := embeddedMigrations(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).WillReturnResult(sqlmock.NewResult(0, 0))
	for _, name := range names {
		mock.ExpectQuery(`SELECT EXISTS`).WithArgs(name).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	}

	applied, err := Migrate(context.Background(), db)

	require.NoError(t, err)
	assert.Empty(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_AppliesInTransaction(t *testing.T) {
	db, mock := newMigrationMock(t)
	names := embeddedMigrations(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).WillReturnResult(sqlmock.NewResult(0, 0))
	for _, name := range names {
		mock.ExpectQuery(`SELECT EXISTS`).WithArgs(name).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectBegin()
		mock.ExpectExec(`CREATE TABLE`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`INSERT INTO schema_migrations`).WithArgs(name).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
	}

	applied, err := Migrate(context.Background(), db)

	require.NoError(t, err)
	assert.Equal(t, names, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPendingMigrations(t *testing.T) {
	names := embeddedMigrations(t)

	t.Run("fresh database", func(t *testing.T) {
		db, mock := newMigrationMock(t)
		mock.ExpectQuery(`SELECT version FROM schema_migrations`).
			WillReturnError(&pq.Error{Code: "42P01"})

		pending, err := PendingMigrations(context.Background(), db)

		require.NoError(t, err)
		assert.Equal(t, names, pending)
	})

	t.Run("up to date", func(t *testing.T) {
		db, mock := newMigrationMock(t)
		rows := sqlmock.NewRows([]string{"version"})
		for _, name := range names {
			rows.AddRow(name)
		}
		mock.ExpectQuery(`SELECT version FROM schema_migrations`).WillReturnRows(rows)

		pending, err := PendingMigrations(context.Background(), db)

		require.NoError(t, err)
		assert.Empty(t, pending)
	})
}
