package dao

import (
	"context"
	"strings"
	"sync"

	"github.com/peakcary/stock-analysis-system-sub001/infra/application/components/logging"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/consts"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/core"
	bizConsts "github.com/peakcary/stock-analysis-system-sub001/internal/consts"
	"github.com/peakcary/stock-analysis-system-sub001/internal/errs"
)

// MappingGenerator 按文件类型缓存 SchemaMapping.
//
// 缓存没有过期时间: 表结构在进程外被改动 (删表, 修复) 后必须调用 Invalidate.
type MappingGenerator struct {
	*core.BaseComponent
	FileTypes FileTypeDao  `infra:"dep:file_type_dao"`
	Tables    TableManager `infra:"dep:table_manager"`

	batchSize int
	mu        sync.RWMutex
	cache     map[string]*SchemaMapping
}

func NewMappingGenerator(batchSize int) *MappingGenerator {
	return &MappingGenerator{
		BaseComponent: core.NewBaseComponent(bizConsts.COMP_MAPPING_GENERATOR, consts.COMPONENT_LOGGING),
		batchSize:     batchSize,
		cache:         make(map[string]*SchemaMapping),
	}
}

func (g *MappingGenerator) Stop(ctx context.Context) error {
	g.InvalidateAll()
	return g.BaseComponent.Stop(ctx)
}

// Get 命中缓存直接返回; 未命中时在写锁内二次检查后构建, 并发调用者不会重复构建.
func (g *MappingGenerator) Get(ctx context.Context, key string) (*SchemaMapping, error) {
	g.mu.RLock()
	m, ok := g.cache[key]
	g.mu.RUnlock()
	if ok {
		return m, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if m, ok := g.cache[key]; ok {
		return m, nil
	}
	cfg, err := g.FileTypes.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var missing []string
	for _, h := range g.Tables.Inspect(ctx, cfg.TablePrefix) {
		if !h.Exists || !h.Queryable {
			missing = append(missing, h.Table)
		}
	}
	if len(missing) > 0 {
		return nil, errs.Newf(errs.KindProvision, "get_mapping", key, "tables unavailable: %s", strings.Join(missing, ", "))
	}
	m = NewSchemaMapping(cfg, g.batchSize)
	g.cache[key] = m
	logging.Debugf(ctx, "[mapping] built mapping for %s prefix=%q", key, cfg.TablePrefix)
	return m, nil
}

func (g *MappingGenerator) Invalidate(key string) {
	g.mu.Lock()
	delete(g.cache, key)
	g.mu.Unlock()
}

func (g *MappingGenerator) InvalidateAll() {
	g.mu.Lock()
	g.cache = make(map[string]*SchemaMapping)
	g.mu.Unlock()
}

func (g *MappingGenerator) Cached(key string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.cache[key]
	return ok
}
