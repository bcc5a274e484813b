// internal/service/trade/domain/port/cart.go
package port

import "context"

// CartService 是购物车服务的出站端口。
// 清理购物车不在提交边界内：失败只记日志，不影响下单。
type CartService interface {
	DeleteCartItems(ctx context.Context, userID int64, itemIDs []int64) error
}
