package gormdb

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMigrations(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func TestRunMigrationsOrderAndComments(t *testing.T) {
	dir := writeMigrations(t, map[string]string{
		"002_concept.sql": "CREATE TABLE IF NOT EXISTS stock_concept (id INT);",
		"001_init.sql":    "-- file types\nCREATE TABLE IF NOT EXISTS file_type_config (k VARCHAR(32));\n-- trailing comment\n",
		"README.md":       "not sql",
	})
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS file_type_config")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS stock_concept")).WillReturnResult(sqlmock.NewResult(0, 0))

	n, err := runMigrations(context.Background(), db, dir)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrationsStopsOnError(t *testing.T) {
	dir := writeMigrations(t, map[string]string{
		"001_init.sql": "CREATE TABLE a (id INT);\nCREATE TABLE b (id INT);",
	})
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE a").WillReturnError(errors.New("Error 1050: Table 'a' already exists"))

	_, err = runMigrations(context.Background(), db, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "001_init.sql")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrationsMissingDir(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	_, err = runMigrations(context.Background(), db, filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
