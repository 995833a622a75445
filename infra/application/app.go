package application

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/peakcary/stock-analysis-system-sub001/infra/application/autowire"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/config"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/core"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/hooks"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/registry"
)

type App struct {
	container        *core.Container
	lifecycleManager *core.LifecycleManager
	configManager    *config.ConfigManager
	registry         *registry.Registry

	bootOnce sync.Once
	bootErr  error

	shutdownTimeout time.Duration
}

func NewApp(env string, configPath string) *App {
	abs := configPath
	if p, err := filepath.Abs(configPath); err == nil {
		abs = p
	}
	container := core.NewContainer()
	return &App{
		configManager:    config.NewConfigManager(env, abs),
		container:        container,
		lifecycleManager: core.NewLifecycleManagerWithManager(container, hooks.GetGlobalHookManager()),
		registry:         registry.Default(),
		shutdownTimeout:  30 * time.Second,
	}
}

// SetBizConfig 业务配置指针, 需在 Start/Run 之前调用.
func (app *App) SetBizConfig(b any) { app.configManager.SetBizConfig(b) }

func (app *App) SetShutdownTimeout(d time.Duration) {
	if d > 0 {
		app.shutdownTimeout = d
	}
}

// Boot 加载配置, 构建并注册组件, 执行 autowire. 只执行一次.
func (app *App) Boot() error {
	app.bootOnce.Do(func() {
		if err := app.configManager.LoadConfig(); err != nil {
			app.bootErr = fmt.Errorf("load config failed: %w", err)
			return
		}
		cfg := app.configManager.GetConfig()
		if err := app.registry.BuildAndRegisterAll(cfg, app.container); err != nil {
			app.bootErr = fmt.Errorf("register components failed: %w", err)
			return
		}
		if err := autowire.InjectAll(app.container); err != nil {
			app.bootErr = err
			return
		}
		if _, err := app.container.SortComponentsByDependencies(); err != nil {
			app.bootErr = err
		}
	})
	return app.bootErr
}

func (app *App) Container() *core.Container { return app.container }

func (app *App) GetComponent(name string) (core.Component, error) {
	return app.container.Resolve(name)
}

func (app *App) GetConfig() *config.AppConfig { return app.configManager.GetConfig() }

func (app *App) AddHook(name string, phase hooks.Phase, fn hooks.HookFunc, priority int) error {
	return app.lifecycleManager.AddHook(name, phase, fn, priority)
}

// Start 启动全部组件后立即返回 (命令行一次性任务使用), 调用方负责 Shutdown.
func (app *App) Start(ctx context.Context) error {
	if err := app.Boot(); err != nil {
		return err
	}
	return app.lifecycleManager.StartAll(ctx)
}

// Run 监听 SIGINT/SIGTERM, 收到后优雅退出.
func (app *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return app.RunWithContext(ctx)
}

// RunWithContext 启动组件并阻塞至 ctx 结束, 然后优雅停止.
func (app *App) RunWithContext(ctx context.Context) error {
	if err := app.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.Background(), app.shutdownTimeout)
	defer cancel()
	app.Shutdown(stopCtx)
	return nil
}

func (app *App) Shutdown(ctx context.Context) {
	app.lifecycleManager.StopAll(ctx)
}
