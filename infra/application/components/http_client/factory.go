package http_client

import (
	"fmt"

	"github.com/peakcary/stock-analysis-system-sub001/infra/application/core"
)

type Factory struct{}

func NewFactory() *Factory { return &Factory{} }

func (f *Factory) Create(c *HTTPClientsConfig) (core.Component, error) {
	if c == nil || !c.Enabled {
		return nil, fmt.Errorf("http_clients component disabled")
	}
	return NewHTTPClientsComponent(c), nil
}
