// Package testkit 测试辅助: 基于临时 sqlite 文件的 gorm 组件.
package testkit

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/peakcary/stock-analysis-system-sub001/infra/application/components/gormdb"
)

const DataSource = "stock"

// NewGorm 启动一个只含 "stock" 数据源的 gorm 组件, 测试结束自动关闭.
func NewGorm(t testing.TB) *gormdb.GormComponent {
	t.Helper()
	comp, err := gormdb.NewFactory().Create(&gormdb.Config{
		Enabled:  true,
		LogLevel: "silent",
		DataSources: map[string]*gormdb.DataSourceConfig{
			DataSource: {Driver: gormdb.DriverSQLite, Database: filepath.Join(t.TempDir(), "stock.db")},
		},
	})
	require.NoError(t, err)
	gc := comp.(*gormdb.GormComponent)
	ctx := context.Background()
	require.NoError(t, gc.Start(ctx))
	t.Cleanup(func() { _ = gc.Stop(ctx) })
	return gc
}

// DB 返回组件的默认数据源
func DB(t testing.TB, gc *gormdb.GormComponent) *gorm.DB {
	t.Helper()
	db, err := gc.GetDB(DataSource)
	require.NoError(t, err)
	return db
}
