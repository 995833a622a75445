package gormdb

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/peakcary/stock-analysis-system-sub001/infra/application/components/logging"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/consts"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/core"
)

// GormComponent 每个数据源维护一个 *gorm.DB.
type GormComponent struct {
	*core.BaseComponent
	cfg   *Config
	dbs   map[string]*gorm.DB
	mutex sync.RWMutex
	log   logger.Interface
}

func NewGormComponent(cfg *Config) *GormComponent {
	return &GormComponent{
		BaseComponent: core.NewBaseComponent(consts.COMPONENT_GORM, consts.COMPONENT_LOGGING),
		cfg:           cfg,
		dbs:           make(map[string]*gorm.DB),
		log:           newGormLogger(cfg),
	}
}

func (c *GormComponent) Start(ctx context.Context) error {
	if c.cfg == nil || !c.cfg.Enabled {
		return fmt.Errorf("gorm component disabled or nil config")
	}
	names := make([]string, 0, len(c.cfg.DataSources))
	for name := range c.cfg.DataSources {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := c.open(ctx, name, c.cfg.DataSources[name]); err != nil {
			c.closeAll(ctx)
			return err
		}
	}
	logging.Infof(ctx, "[gorm] started. data sources=%v", names)
	return c.BaseComponent.Start(ctx)
}

func (c *GormComponent) open(ctx context.Context, name string, ds *DataSourceConfig) error {
	if ds == nil {
		return fmt.Errorf("datasource %s config is nil", name)
	}
	dial, err := dialector(ds)
	if err != nil {
		return fmt.Errorf("build dsn for %s failed: %w", name, err)
	}
	gdb, err := gorm.Open(dial, &gorm.Config{
		Logger:                                   c.log,
		SkipDefaultTransaction:                   ds.SkipDefaultTransaction,
		PrepareStmt:                              ds.PrepareStmt,
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return fmt.Errorf("open gorm db %s failed: %w", name, err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return fmt.Errorf("get underlying sql.DB for %s failed: %w", name, err)
	}

	maxOpen, maxIdle := 50, 10
	if strings.EqualFold(ds.Driver, DriverSQLite) {
		// 写事务由 _txlock=immediate 串行; 等待写锁的事务各占一个连接, 事务内的读查询还需要额外连接
		maxOpen, maxIdle = 16, 4
	}
	if ds.MaxOpenConns > 0 {
		maxOpen = ds.MaxOpenConns
	}
	if ds.MaxIdleConns > 0 {
		maxIdle = ds.MaxIdleConns
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	if ds.ConnMaxLife > 0 {
		sqlDB.SetConnMaxLifetime(ds.ConnMaxLife)
	} else {
		sqlDB.SetConnMaxLifetime(60 * time.Minute)
	}
	if ds.ConnMaxIdle > 0 {
		sqlDB.SetConnMaxIdleTime(ds.ConnMaxIdle)
	}

	if ds.PingOnStart {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := sqlDB.PingContext(pingCtx)
		cancel()
		if err != nil {
			_ = sqlDB.Close()
			return fmt.Errorf("ping gorm db %s failed: %w", name, err)
		}
	}
	if ds.MigrateEnabled {
		start := time.Now()
		n, err := runMigrations(ctx, sqlDB, ds.MigrateDir)
		if err != nil {
			_ = sqlDB.Close()
			return fmt.Errorf("datasource %s migrations failed: %w", name, err)
		}
		logging.Infof(ctx, "[gorm] datasource %s applied %d migration files dur=%s", name, n, time.Since(start))
	}

	c.mutex.Lock()
	c.dbs[name] = gdb
	c.mutex.Unlock()
	logging.Infof(ctx, "[gorm] datasource %s initialized driver=%s", name, ds.Driver)
	return nil
}

func (c *GormComponent) Stop(ctx context.Context) error {
	c.closeAll(ctx)
	return c.BaseComponent.Stop(ctx)
}

func (c *GormComponent) closeAll(ctx context.Context) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	for name, gdb := range c.dbs {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
		delete(c.dbs, name)
		logging.Infof(ctx, "[gorm] datasource %s closed", name)
	}
}

func (c *GormComponent) HealthCheck() error {
	if err := c.BaseComponent.HealthCheck(); err != nil {
		return err
	}
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	for name, gdb := range c.dbs {
		sqlDB, err := gdb.DB()
		if err != nil {
			return fmt.Errorf("datasource %s get sql.DB failed: %w", name, err)
		}
		if err := sqlDB.Ping(); err != nil {
			return fmt.Errorf("datasource %s ping failed: %w", name, err)
		}
	}
	return nil
}

func (c *GormComponent) GetDB(name string) (*gorm.DB, error) {
	c.mutex.RLock()
	db, ok := c.dbs[name]
	c.mutex.RUnlock()
	if !ok {
		return nil, fmt.Errorf("gorm datasource %s not found", name)
	}
	return db, nil
}
