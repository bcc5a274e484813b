// internal/service/trade/application/saga/persist_order.go
package saga

import (
	"context"

	"hmall/internal/pkg/logger"

	"github.com/pkg/errors"
)

// PersistOrderHandler 在一个本地事务中写入订单和订单行。
// 补偿是删除刚写入的行：后续远程扣减库存失败时，
// 不允许数据库里留下一个指向未预占库存的订单。
type PersistOrderHandler struct {
	NextHandler
}

func (h *PersistOrderHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.PersistOrder")
	defer span.End()

	if err := orderCtx.Repo.Create(ctx, orderCtx.Order, orderCtx.Details); err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "failed to persist order")
	}
	span.AddEvent("order and details saved")

	orderID := orderCtx.Order.ID
	orderCtx.AddCompensation(func(compCtx context.Context) {
		compCtx, compSpan := orderCtx.Tracer.Start(compCtx, "saga.compensation.DeleteOrder")
		defer compSpan.End()

		if err := orderCtx.Repo.Delete(compCtx, orderID); err != nil {
			// 删除失败会留下残留订单行，必须人工或告警介入
			compSpan.RecordError(err)
			logger.Ctx(compCtx).Error().Err(err).
				Int64("order_id", orderID).
				Msg("CRITICAL: failed to delete order during compensation")
		}
	})

	return h.executeNext(orderCtx)
}
