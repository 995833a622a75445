package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/peakcary/stock-analysis-system-sub001/infra/application/components/logging"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/components/redis"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/consts"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/core"
	bizConsts "github.com/peakcary/stock-analysis-system-sub001/internal/consts"
	"github.com/peakcary/stock-analysis-system-sub001/internal/errs"
)

// 只删除自己持有的锁
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// ImportLocker 保证同一 (文件类型, 交易日) 同时只有一个导入或重算.
//
// 进程内用 map 加锁; 开启 distributed 且 redis 可用时再用 SET NX PX 跨进程加锁.
// 锁被占用时立即返回 KindBusy, 不排队等待.
type ImportLocker struct {
	*core.BaseComponent
	Redis *redis.RedisComponent `infra:"dep:redis?"`

	distributed bool
	ttl         time.Duration
	mu          sync.Mutex
	held        map[string]struct{}
}

func NewImportLocker(distributed bool, ttl time.Duration) *ImportLocker {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &ImportLocker{
		BaseComponent: core.NewBaseComponent(bizConsts.COMP_SVC_IMPORT_LOCKER, consts.COMPONENT_LOGGING),
		distributed:   distributed,
		ttl:           ttl,
		held:          make(map[string]struct{}),
	}
}

func lockName(key, date string) string { return key + "@" + date }

// TryLock 成功时返回释放函数, 可重复调用.
func (l *ImportLocker) TryLock(ctx context.Context, key, date string) (func(), error) {
	name := lockName(key, date)
	l.mu.Lock()
	if _, busy := l.held[name]; busy {
		l.mu.Unlock()
		return nil, errs.Newf(errs.KindBusy, "lock", key, "import for %s already in progress", date)
	}
	l.held[name] = struct{}{}
	l.mu.Unlock()

	local := func() {
		l.mu.Lock()
		delete(l.held, name)
		l.mu.Unlock()
	}

	client, redisKey := l.redisClient(), ""
	token := uuid.NewString()
	if client != nil {
		redisKey = l.Redis.Key("lock", "import", key, date)
		ok, err := client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			local()
			return nil, errs.New(errs.KindUnavailable, "lock", key, err)
		}
		if !ok {
			local()
			return nil, errs.Newf(errs.KindBusy, "lock", key, "import for %s is running in another process", date)
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if client != nil {
				rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
				if err := releaseScript.Run(rctx, client, []string{redisKey}, token).Err(); err != nil {
					logging.Warnf(ctx, "[import_locker] release %s failed: %v", redisKey, err)
				}
				cancel()
			}
			local()
		})
	}, nil
}

func (l *ImportLocker) redisClient() goredis.UniversalClient {
	if !l.distributed || l.Redis == nil {
		return nil
	}
	return l.Redis.Client()
}

// Held 当前进程持有的锁数量
func (l *ImportLocker) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.held)
}
