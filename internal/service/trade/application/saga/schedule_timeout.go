// internal/service/trade/application/saga/schedule_timeout.go
package saga

import (
	"hmall/internal/pkg/logger"
)

// ScheduleTimeoutHandler 发出延迟的支付超时检查信号。
// 订单此刻已经创建成功，调度失败不回滚主流程，只记录错误
// 等待后续补发；超时检查本身是幂等的，多发一次也无害。
type ScheduleTimeoutHandler struct {
	NextHandler
}

func (h *ScheduleTimeoutHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.SchedulePaymentTimeout")
	defer span.End()

	if err := orderCtx.Scheduler.SchedulePaymentTimeout(ctx, orderCtx.Order.ID); err != nil {
		span.RecordError(err)
		logger.Ctx(ctx).Error().Err(err).
			Int64("order_id", orderCtx.Order.ID).
			Msg("failed to schedule payment timeout check")
	} else {
		span.AddEvent("payment timeout check scheduled")
	}

	return h.executeNext(orderCtx)
}
