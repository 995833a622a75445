package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/peakcary/stock-analysis-system-sub001/infra/application/components/http_client"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/components/logging"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/components/redis"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/consts"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/core"
	bizConfig "github.com/peakcary/stock-analysis-system-sub001/internal/config"
	bizConsts "github.com/peakcary/stock-analysis-system-sub001/internal/consts"
	"github.com/peakcary/stock-analysis-system-sub001/internal/dao"
	"github.com/peakcary/stock-analysis-system-sub001/internal/errs"
)

// ConceptLookup 股票 -> 概念成员关系查询, 重算时使用.
type ConceptLookup interface {
	Lookup(ctx context.Context, codes []string) (map[string][]string, error)
}

type jsonGetter interface {
	Get(ctx context.Context, path string, query, headers map[string]string, out interface{}) (int, error)
}

// ConceptResolver 成员关系来源: db (stock_concept 表) 或 http (返回 {code: [concept]} 的接口).
// 配置了 redis 且 cache_ttl > 0 时按代码做读穿缓存.
type ConceptResolver struct {
	*core.BaseComponent
	Dao         dao.StockConceptDao               `infra:"dep:stock_concept_dao"`
	Redis       *redis.RedisComponent             `infra:"dep:redis?"`
	HTTPClients *http_client.HTTPClientsComponent `infra:"dep:http_clients?"`

	cfg        bizConfig.ConceptConfig
	normalizer *CodeNormalizer
	client     jsonGetter
}

func NewConceptResolver(cfg bizConfig.ConceptConfig, normalizer *CodeNormalizer) *ConceptResolver {
	return &ConceptResolver{
		BaseComponent: core.NewBaseComponent(bizConsts.COMP_SVC_CONCEPT_RESOLVER, consts.COMPONENT_LOGGING),
		cfg:           cfg,
		normalizer:    normalizer,
	}
}

func (r *ConceptResolver) Start(ctx context.Context) error {
	if r.client == nil && r.HTTPClients != nil && r.cfg.URL != "" {
		cli, err := r.HTTPClients.Client(r.cfg.HTTPClient)
		if err != nil {
			return fmt.Errorf("concept http client: %w", err)
		}
		r.client = cli
	}
	if r.cfg.Source == bizConsts.ConceptSourceHTTP && r.client == nil {
		return fmt.Errorf("concept source http requires the http_clients component")
	}
	return r.BaseComponent.Start(ctx)
}

func (r *ConceptResolver) Lookup(ctx context.Context, codes []string) (map[string][]string, error) {
	codes = uniqueSorted(codes)
	out := make(map[string][]string, len(codes))
	misses := codes
	cache := r.cacheClient()
	if cache != nil && len(codes) > 0 {
		misses = r.readCache(ctx, cache, codes, out)
	}
	if len(misses) == 0 {
		return out, nil
	}

	var (
		fetched map[string][]string
		err     error
	)
	if r.cfg.Source == bizConsts.ConceptSourceHTTP {
		var all map[string][]string
		if all, err = r.fetchHTTP(ctx); err == nil {
			fetched = make(map[string][]string, len(misses))
			for _, c := range misses {
				if list, ok := all[c]; ok {
					fetched[c] = list
				}
			}
		}
	} else {
		fetched, err = r.Dao.ConceptsByCodes(ctx, misses)
	}
	if err != nil {
		return nil, fmt.Errorf("concept lookup (%s): %w", r.cfg.Source, err)
	}
	for c, list := range fetched {
		out[c] = list
	}
	if cache != nil {
		r.writeCache(ctx, cache, misses, fetched)
	}
	return out, nil
}

// Refresh 从 http 源全量拉取并覆盖 stock_concept 表, 同时清空缓存.
func (r *ConceptResolver) Refresh(ctx context.Context) (int, error) {
	if r.client == nil || r.cfg.URL == "" {
		return 0, errs.Newf(errs.KindInvalid, "concept_refresh", "", "concept.url not configured")
	}
	all, err := r.fetchHTTP(ctx)
	if err != nil {
		return 0, errs.New(errs.KindUnavailable, "concept_refresh", "", err)
	}
	n, err := r.Dao.ReplaceAll(ctx, all)
	if err != nil {
		return 0, err
	}
	if cache := r.cacheClient(); cache != nil {
		r.purgeCache(ctx, cache)
	}
	logging.Infof(ctx, "[concept] refreshed %d memberships for %d stocks", n, len(all))
	return n, nil
}

func (r *ConceptResolver) fetchHTTP(ctx context.Context) (map[string][]string, error) {
	var raw map[string][]string
	if _, err := r.client.Get(ctx, r.cfg.URL, nil, nil, &raw); err != nil {
		return nil, err
	}
	out := make(map[string][]string, len(raw))
	for code, concepts := range raw {
		norm, _, err := r.normalizer.Normalize(code)
		if err != nil {
			continue
		}
		out[norm] = uniqueSorted(append(out[norm], concepts...))
	}
	return out, nil
}

func (r *ConceptResolver) cacheClient() goredis.UniversalClient {
	if r.Redis == nil || r.cfg.CacheTTL <= 0 {
		return nil
	}
	return r.Redis.Client()
}

func (r *ConceptResolver) cacheKey(code string) string { return r.Redis.Key("concept", code) }

// readCache 命中的写入 out, 返回未命中的代码; 缓存故障时全部视为未命中.
func (r *ConceptResolver) readCache(ctx context.Context, cache goredis.UniversalClient, codes []string, out map[string][]string) []string {
	keys := make([]string, len(codes))
	for i, c := range codes {
		keys[i] = r.cacheKey(c)
	}
	vals, err := cache.MGet(ctx, keys...).Result()
	if err != nil {
		logging.Warnf(ctx, "[concept] cache read failed: %v", err)
		return codes
	}
	var misses []string
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			misses = append(misses, codes[i])
			continue
		}
		var list []string
		if err := json.Unmarshal([]byte(s), &list); err != nil {
			misses = append(misses, codes[i])
			continue
		}
		if len(list) > 0 {
			out[codes[i]] = list
		}
	}
	return misses
}

// writeCache 没有概念的代码也写入空列表, 避免反复回源.
func (r *ConceptResolver) writeCache(ctx context.Context, cache goredis.UniversalClient, codes []string, fetched map[string][]string) {
	_, err := cache.Pipelined(ctx, func(p goredis.Pipeliner) error {
		for _, c := range codes {
			list := fetched[c]
			if list == nil {
				list = []string{}
			}
			b, _ := json.Marshal(list)
			p.Set(ctx, r.cacheKey(c), b, r.cfg.CacheTTL)
		}
		return nil
	})
	if err != nil && !errors.Is(err, goredis.Nil) {
		logging.Warnf(ctx, "[concept] cache write failed: %v", err)
	}
}

func (r *ConceptResolver) purgeCache(ctx context.Context, cache goredis.UniversalClient) {
	iter := cache.Scan(ctx, 0, r.cacheKey("*"), 500).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		logging.Warnf(ctx, "[concept] cache scan failed: %v", err)
		return
	}
	for start := 0; start < len(keys); start += 500 {
		end := min(start+500, len(keys))
		if err := cache.Del(ctx, keys[start:end]...).Err(); err != nil {
			logging.Warnf(ctx, "[concept] cache purge failed: %v", err)
			return
		}
	}
}

func uniqueSorted(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
