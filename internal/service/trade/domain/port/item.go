// internal/service/trade/domain/port/item.go
package port

import (
	"context"
	"errors"

	"hmall/internal/service/trade/domain"
)

// 库存调用失败的两种错误类别。编排层的分支逻辑依赖这个区分：
// 服务不可用和业务拒绝都会让下单失败，但只有明确的错误类别
// 才能让上层重试机制判断远端是否发生过副作用。
var (
	// ErrItemServiceUnavailable 表示远程调用根本没有完成：
	// 超时、连接失败、服务端 5xx。
	ErrItemServiceUnavailable = errors.New("item service unavailable")

	// ErrStockInsufficient 表示 item-service 明确拒绝了扣减请求。
	ErrStockInsufficient = errors.New("insufficient stock")
)

// ItemService 是商品/库存服务的出站端口。
//
// QueryItemsByIds 在服务不可用时降级为空结果，上层会把它解释为
// "商品不存在"从而拒绝下单——宁可把不可用当作拒绝，也不做部分成交。
//
// DeductStock / RestoreStock 的失败必须返回错误：
// 扣减失败意味着整个下单要回滚；恢复失败绝不允许被吞掉，
// 否则订单显示已取消而库存永远少了一截。
type ItemService interface {
	QueryItemsByIds(ctx context.Context, ids []int64) ([]domain.Item, error)
	DeductStock(ctx context.Context, entries []domain.StockEntry) error
	RestoreStock(ctx context.Context, entries []domain.StockEntry) error
}
