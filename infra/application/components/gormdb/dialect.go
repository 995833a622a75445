package gormdb

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func dialector(ds *DataSourceConfig) (gorm.Dialector, error) {
	dsn, err := buildDSN(ds)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(ds.Driver) {
	case DriverPostgres:
		return postgres.Open(dsn), nil
	case DriverSQLite:
		return sqlite.Open(dsn), nil
	default:
		return mysql.New(mysql.Config{DSN: dsn}), nil
	}
}

func buildDSN(ds *DataSourceConfig) (string, error) {
	if strings.TrimSpace(ds.DSN) != "" {
		return ds.DSN, nil
	}
	switch strings.ToLower(ds.Driver) {
	case DriverSQLite:
		if ds.Database == "" {
			return "", errors.New("database (file path) required for sqlite")
		}
		params := url.Values{}
		params.Add("_pragma", "busy_timeout(30000)")
		params.Add("_pragma", "journal_mode(WAL)")
		params.Add("_pragma", "foreign_keys(1)")
		// 事务开始即取写锁, 避免读后写升级锁时直接返回 SQLITE_BUSY
		params.Set("_txlock", "immediate")
		for k, v := range ds.Params {
			params.Add(k, v)
		}
		return "file:" + ds.Database + "?" + params.Encode(), nil
	case DriverPostgres:
		if ds.Host == "" || ds.User == "" || ds.Database == "" {
			return "", errors.New("host, user, database required when dsn not provided")
		}
		port := ds.Port
		if port == 0 {
			port = 5432
		}
		parts := []string{
			"host=" + ds.Host, "user=" + ds.User, "password=" + ds.Password,
			"dbname=" + ds.Database, fmt.Sprintf("port=%d", port),
		}
		keys := make([]string, 0, len(ds.Params))
		for k := range ds.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			parts = append(parts, k+"="+ds.Params[k])
		}
		return strings.Join(parts, " "), nil
	default:
		if ds.Host == "" || ds.User == "" || ds.Database == "" {
			return "", errors.New("host, user, database required when dsn not provided")
		}
		port := ds.Port
		if port == 0 {
			port = 3306
		}
		params := url.Values{}
		params.Set("parseTime", "true")
		params.Set("charset", "utf8mb4")
		params.Set("loc", "Local")
		for k, v := range ds.Params {
			params.Set(k, v)
		}
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s", ds.User, ds.Password, ds.Host, port, ds.Database, params.Encode()), nil
	}
}
