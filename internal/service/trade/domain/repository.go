// internal/service/trade/domain/repository.go
package domain

import (
	"context"
	"time"
)

// OrderRepository 定义了订单聚合的持久化接口。
// 它位于领域层，由基础设施层实现。
//
// CancelIfPending / MarkPaidIfPending 必须实现为单条条件更新
// （UPDATE ... WHERE id = ? AND status = 1），由数据库原子地仲裁
// 并发的支付确认和取消请求，零行生效表示订单已离开待支付状态。
type OrderRepository interface {
	// Create 在一个本地事务中写入订单及其全部订单行。
	Create(ctx context.Context, order *Order, details []OrderDetail) error

	// Delete 删除订单及其订单行，是 Create 的补偿操作。
	// 扣减库存失败时由 saga 调用，保证失败的创建不留下任何残留行。
	Delete(ctx context.Context, orderID int64) error

	// FindByID 查询单个订单。
	FindByID(ctx context.Context, orderID int64) (*Order, error)

	// FindDetails 查询订单的全部订单行。
	FindDetails(ctx context.Context, orderID int64) ([]OrderDetail, error)

	// CancelIfPending 把订单状态从未支付翻到已关闭。
	// 返回 false 表示没有行被更新：订单已支付或已取消，调用方不需要补偿。
	CancelIfPending(ctx context.Context, orderID int64) (bool, error)

	// MarkPaidIfPending 把订单状态从未支付翻到已支付并记录支付时间。
	// 与 CancelIfPending 同样的条件更新，重复的支付确认是无害的空操作。
	MarkPaidIfPending(ctx context.Context, orderID int64, payTime time.Time) (bool, error)
}
