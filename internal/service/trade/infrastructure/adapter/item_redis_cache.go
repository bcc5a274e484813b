// internal/service/trade/infrastructure/adapter/item_redis_cache.go
package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"hmall/internal/pkg/logger"
	"hmall/internal/service/trade/domain"
	"hmall/internal/service/trade/domain/port"

	"github.com/redis/go-redis/v9"
)

const itemSnapshotKeyPrefix = "hmall:item:snapshot:"

// CachedItemService 在 ItemService 查询前面加一层 Redis 读穿透缓存。
// 只缓存商品快照（价格、名称等），TTL 很短；库存的权威永远在
// item-service，扣减和恢复直接透传。Redis 故障时绕过缓存，不影响下单。
type CachedItemService struct {
	inner port.ItemService
	rdb   *redis.Client
	ttl   time.Duration
}

func NewCachedItemService(inner port.ItemService, rdb *redis.Client, ttl time.Duration) *CachedItemService {
	return &CachedItemService{inner: inner, rdb: rdb, ttl: ttl}
}

func (c *CachedItemService) QueryItemsByIds(ctx context.Context, ids []int64) ([]domain.Item, error) {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, fmt.Sprintf("%s%d", itemSnapshotKeyPrefix, id))
	}

	cached := make(map[int64]domain.Item, len(ids))
	values, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("redis lookup failed, bypassing item cache")
		return c.inner.QueryItemsByIds(ctx, ids)
	}
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var item domain.Item
		if json.Unmarshal([]byte(s), &item) == nil {
			cached[item.ID] = item
		}
	}

	missing := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := cached[id]; !ok {
			missing = append(missing, id)
		}
	}

	if len(missing) > 0 {
		fetched, err := c.inner.QueryItemsByIds(ctx, missing)
		if err != nil {
			return nil, err
		}
		pipe := c.rdb.Pipeline()
		for _, item := range fetched {
			cached[item.ID] = item
			if data, err := json.Marshal(item); err == nil {
				pipe.Set(ctx, fmt.Sprintf("%s%d", itemSnapshotKeyPrefix, item.ID), data, c.ttl)
			}
		}
		if _, err := pipe.Exec(ctx); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Msg("failed to fill item cache")
		}
	}

	// 保持与入参一致的顺序，缓存里也没有的 id 直接缺席，
	// 上层据此判断"商品不存在"。
	items := make([]domain.Item, 0, len(ids))
	for _, id := range ids {
		if item, ok := cached[id]; ok {
			items = append(items, item)
		}
	}
	return items, nil
}

func (c *CachedItemService) DeductStock(ctx context.Context, entries []domain.StockEntry) error {
	return c.inner.DeductStock(ctx, entries)
}

func (c *CachedItemService) RestoreStock(ctx context.Context, entries []domain.StockEntry) error {
	return c.inner.RestoreStock(ctx, entries)
}
