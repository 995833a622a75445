package gormdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN(t *testing.T) {
	dsn, err := buildDSN(&DataSourceConfig{Driver: DriverMySQL, Host: "db", User: "u", Password: "p", Database: "stock"})
	require.NoError(t, err)
	assert.Contains(t, dsn, "u:p@tcp(db:3306)/stock?")
	assert.Contains(t, dsn, "parseTime=true")

	dsn, err = buildDSN(&DataSourceConfig{Driver: DriverPostgres, Host: "pg", User: "u", Database: "stock", Params: map[string]string{"sslmode": "disable"}})
	require.NoError(t, err)
	assert.Equal(t, "host=pg user=u password= dbname=stock port=5432 sslmode=disable", dsn)

	dsn, err = buildDSN(&DataSourceConfig{Driver: DriverSQLite, Database: "/tmp/x.db"})
	require.NoError(t, err)
	assert.Contains(t, dsn, "file:/tmp/x.db?")
	assert.Contains(t, dsn, "_txlock=immediate")
	assert.Contains(t, dsn, "_pragma=journal_mode%28WAL%29")

	_, err = buildDSN(&DataSourceConfig{Driver: DriverMySQL})
	require.Error(t, err)
}

func TestFactoryRejectsUnknownDriver(t *testing.T) {
	_, err := NewFactory().Create(&Config{Enabled: true, DataSources: map[string]*DataSourceConfig{"x": {Driver: "oracle"}}})
	require.Error(t, err)
}

func TestSQLiteDataSourceWithMigrations(t *testing.T) {
	dir := t.TempDir()
	migDir := filepath.Join(dir, "migrations")
	require.NoError(t, os.MkdirAll(migDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(migDir, "001_init.sql"), []byte(
		"-- seed\nCREATE TABLE IF NOT EXISTS probe (id INTEGER PRIMARY KEY);\nINSERT INTO probe (id) VALUES (7);\n"), 0o644))

	comp, err := NewFactory().Create(&Config{Enabled: true, LogLevel: "silent", DataSources: map[string]*DataSourceConfig{
		"stock": {Driver: DriverSQLite, Database: filepath.Join(dir, "t.db"), PingOnStart: true, MigrateEnabled: true, MigrateDir: migDir},
	}})
	require.NoError(t, err)
	gc := comp.(*GormComponent)
	ctx := context.Background()
	require.NoError(t, gc.Start(ctx))
	t.Cleanup(func() { _ = gc.Stop(ctx) })
	require.NoError(t, gc.HealthCheck())

	db, err := gc.GetDB("stock")
	require.NoError(t, err)
	var id int
	require.NoError(t, db.Raw("SELECT id FROM probe").Scan(&id).Error)
	assert.Equal(t, 7, id)

	_, err = gc.GetDB("missing")
	require.Error(t, err)
}
