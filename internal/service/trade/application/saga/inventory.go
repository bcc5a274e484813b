// internal/service/trade/application/saga/inventory.go
package saga

import (
	"context"

	"hmall/internal/pkg/logger"
	"hmall/internal/service/trade/domain"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/codes"
)

// InventoryHandler 向 item-service 扣减库存。
// 这一步是下单的提交点：扣减失败（不可用或库存不足）意味着
// 整个下单失败，调用方会触发补偿删除已落库的订单。
// 扣减成功后注册恢复库存的补偿，供后续步骤失败时回退。
type InventoryHandler struct {
	NextHandler
}

func (h *InventoryHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.DeductStock")
	defer span.End()

	entries := domain.StockEntries(orderCtx.Details)

	if err := orderCtx.ItemService.DeductStock(ctx, entries); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "stock deduction failed")
		return errors.Wrap(err, "failed to deduct stock")
	}
	span.AddEvent("stock deducted")

	orderCtx.AddCompensation(func(compCtx context.Context) {
		compCtx, compSpan := orderCtx.Tracer.Start(compCtx, "saga.compensation.RestoreStock")
		defer compSpan.End()

		if err := orderCtx.ItemService.RestoreStock(compCtx, entries); err != nil {
			compSpan.RecordError(err)
			logger.Ctx(compCtx).Error().Err(err).
				Int64("order_id", orderCtx.Order.ID).
				Msg("CRITICAL: failed to restore stock during compensation")
		}
	})

	return h.executeNext(orderCtx)
}
