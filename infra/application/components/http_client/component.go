package http_client

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/peakcary/stock-analysis-system-sub001/infra/application/components/logging"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/consts"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/core"
)

type HTTPClientsComponent struct {
	*core.BaseComponent
	cfg     *HTTPClientsConfig
	mu      sync.RWMutex
	clients map[string]*InstrumentedClient
}

func NewHTTPClientsComponent(cfg *HTTPClientsConfig) *HTTPClientsComponent {
	return &HTTPClientsComponent{
		BaseComponent: core.NewBaseComponent(
			consts.COMPONENT_HTTP_CLIENTS,
			consts.COMPONENT_LOGGING,
			consts.COMPONENT_TELEMETRY, // 可选; 缺失时 otelhttp 为 no-op
		),
		cfg:     cfg,
		clients: map[string]*InstrumentedClient{},
	}
}

func (hc *HTTPClientsComponent) Start(ctx context.Context) error {
	if hc.cfg == nil || !hc.cfg.Enabled {
		return fmt.Errorf("http_clients disabled or missing config")
	}
	hc.cfg.applyDefaults()
	names := make([]string, 0, len(hc.cfg.Clients))
	hc.mu.Lock()
	for name, cc := range hc.cfg.Clients {
		hc.clients[name] = NewInstrumentedClient(name, cc)
		names = append(names, name)
	}
	hc.mu.Unlock()
	sort.Strings(names)

	logging.Infof(ctx, "http_clients component started clients=%v", names)
	return hc.BaseComponent.Start(ctx)
}

func (hc *HTTPClientsComponent) Stop(ctx context.Context) error {
	hc.mu.RLock()
	for _, cli := range hc.clients {
		cli.CloseIdleConnections()
	}
	hc.mu.RUnlock()
	logging.Info(ctx, "http_clients component stopped")
	return hc.BaseComponent.Stop(ctx)
}

func (hc *HTTPClientsComponent) HealthCheck() error {
	if err := hc.BaseComponent.HealthCheck(); err != nil {
		return err
	}
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	if len(hc.clients) == 0 {
		return fmt.Errorf("no http clients initialized")
	}
	return nil
}

// Client 按名称获取客户端, 空名称返回默认客户端.
func (hc *HTTPClientsComponent) Client(name string) (*InstrumentedClient, error) {
	if name == "" {
		name = hc.cfg.Default
	}
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	cli, ok := hc.clients[name]
	if !ok {
		return nil, fmt.Errorf("http client %s not found", name)
	}
	return cli, nil
}
