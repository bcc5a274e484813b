// internal/service/trade/application/saga/cart_clearance.go
package saga

import (
	"hmall/internal/pkg/logger"
)

// CartClearanceHandler 通知购物车服务移除已购买的商品。
// 购物车清理不在提交边界内：失败只记日志，不中断下单，也不注册补偿。
type CartClearanceHandler struct {
	NextHandler
}

func (h *CartClearanceHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.CartClearance")
	defer span.End()

	if err := orderCtx.CartService.DeleteCartItems(ctx, orderCtx.Order.UserID, orderCtx.Form.ItemIDs()); err != nil {
		span.RecordError(err)
		logger.Ctx(ctx).Warn().Err(err).
			Int64("order_id", orderCtx.Order.ID).
			Int64("user_id", orderCtx.Order.UserID).
			Msg("failed to clear cart items, continuing")
	} else {
		span.AddEvent("cart items cleared")
	}

	return h.executeNext(orderCtx)
}
