// internal/service/trade/application/service.go
package application

import (
	"context"
	"time"

	"hmall/internal/pkg/logger"
	"hmall/internal/pkg/metrics"
	"hmall/internal/service/trade/application/saga"
	"hmall/internal/service/trade/domain"
	"hmall/internal/service/trade/domain/port"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TradeApplicationService 编排下单与取消两条业务流程。
// 并发正确性完全依赖仓储层的条件更新，服务本身不持有任何共享可变状态，
// 每个请求在独立的 goroutine 上处理。
type TradeApplicationService struct {
	repo        domain.OrderRepository
	itemService port.ItemService
	cartService port.CartService
	scheduler   port.DelayScheduler
	tracer      trace.Tracer
}

func NewTradeApplicationService(
	repo domain.OrderRepository,
	itemService port.ItemService,
	cartService port.CartService,
	scheduler port.DelayScheduler,
	tracer trace.Tracer,
) *TradeApplicationService {
	return &TradeApplicationService{
		repo:        repo,
		itemService: itemService,
		cartService: cartService,
		scheduler:   scheduler,
		tracer:      tracer,
	}
}

// CreateOrder 执行下单 saga：
// 校验表单 -> 批量查询商品快照 -> 服务端计算总价 -> 落库订单 ->
// 清理购物车（尽力而为）-> 扣减库存 -> 调度支付超时检查。
// 扣减库存失败时触发补偿，删除刚落库的订单行，对外表现为下单从未发生。
func (s *TradeApplicationService) CreateOrder(ctx context.Context, form *domain.OrderForm) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "trade.CreateOrder")
	defer span.End()
	span.SetAttributes(attribute.Int64("user.id", form.UserID))

	if err := form.Validate(); err != nil {
		span.RecordError(err)
		metrics.OrderCreateFailures.WithLabelValues("validation").Inc()
		return 0, err
	}

	// 商品数据以 item-service 的查询结果为准；服务不可用时适配器
	// 降级为空结果，这里会以"商品不存在"拒绝下单。
	items, err := s.itemService.QueryItemsByIds(ctx, form.ItemIDs())
	if err != nil {
		span.RecordError(err)
		metrics.OrderCreateFailures.WithLabelValues("item_query").Inc()
		return 0, errors.Wrap(err, "failed to query items")
	}

	order, details, err := domain.NewOrder(form, items)
	if err != nil {
		span.RecordError(err)
		metrics.OrderCreateFailures.WithLabelValues("validation").Inc()
		return 0, err
	}

	orderCtx := &saga.OrderContext{
		Ctx:         ctx,
		Order:       order,
		Details:     details,
		Form:        form,
		Tracer:      s.tracer,
		Repo:        s.repo,
		ItemService: s.itemService,
		CartService: s.cartService,
		Scheduler:   s.scheduler,
	}

	if err := s.buildCreateChain().Handle(orderCtx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "order creation chain failed")
		logger.Ctx(ctx).Error().Err(err).
			Int64("order_id", order.ID).
			Msg("order creation failed, triggering saga compensation")
		orderCtx.TriggerCompensation(ctx)
		metrics.OrderCreateFailures.WithLabelValues("saga").Inc()
		return 0, err
	}

	metrics.OrdersCreated.Inc()
	span.SetAttributes(attribute.Int64("order.id", order.ID))
	logger.Ctx(ctx).Info().
		Int64("order_id", order.ID).
		Int64("total_fee", order.TotalFee).
		Msg("order created, pending payment")
	return order.ID, nil
}

func (s *TradeApplicationService) buildCreateChain() saga.Handler {
	persist := &saga.PersistOrderHandler{}
	persist.
		SetNext(&saga.CartClearanceHandler{}).
		SetNext(&saga.InventoryHandler{}).
		SetNext(&saga.ScheduleTimeoutHandler{})
	return persist
}

// CancelOrder 执行取消/补偿路径。
// 第一步的条件更新是唯一的仲裁点：零行生效说明订单已支付或已取消，
// 直接返回成功且不做任何补偿，这就是重复信号和重复点击安全的原因。
// 条件更新生效后恢复库存；恢复失败必须向上传播——状态已经翻到已关闭，
// 吞掉错误等于永久性少账，错误抛出去才能靠消息重投再次尝试。
func (s *TradeApplicationService) CancelOrder(ctx context.Context, orderID int64) error {
	ctx, span := s.tracer.Start(ctx, "trade.CancelOrder")
	defer span.End()
	span.SetAttributes(attribute.Int64("order.id", orderID))

	cancelled, err := s.repo.CancelIfPending(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "failed to update order status")
	}
	if !cancelled {
		span.AddEvent("order already left pending state, nothing to do")
		logger.Ctx(ctx).Info().
			Int64("order_id", orderID).
			Msg("cancel is a no-op, order already paid or cancelled")
		return nil
	}
	metrics.OrdersCancelled.Inc()

	details, err := s.repo.FindDetails(ctx, orderID)
	if err != nil {
		// 状态已翻转但明细查不出来，恢复无法进行，交给重投
		span.RecordError(err)
		metrics.StockRestoreFailures.Inc()
		return errors.Wrap(err, "order cancelled but failed to load details for restoration")
	}

	if err := s.itemService.RestoreStock(ctx, domain.StockEntries(details)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "stock restoration failed")
		metrics.StockRestoreFailures.Inc()
		logger.Ctx(ctx).Error().Err(err).
			Int64("order_id", orderID).
			Msg("CRITICAL: order cancelled but stock restoration failed, awaiting redelivery")
		return errors.Wrap(err, "failed to restore stock")
	}
	metrics.StockRestores.Inc()

	logger.Ctx(ctx).Info().Int64("order_id", orderID).Msg("order cancelled and stock restored")
	return nil
}

// MarkOrderPaySuccess 处理支付成功回调。
// 同样走条件更新：订单已被超时取消时支付确认不生效，
// 由退款流程处理（不在本服务范围内）。
func (s *TradeApplicationService) MarkOrderPaySuccess(ctx context.Context, orderID int64, payTime time.Time) error {
	ctx, span := s.tracer.Start(ctx, "trade.MarkOrderPaySuccess")
	defer span.End()
	span.SetAttributes(attribute.Int64("order.id", orderID))

	paid, err := s.repo.MarkPaidIfPending(ctx, orderID, payTime)
	if err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "failed to mark order paid")
	}
	if !paid {
		span.AddEvent("order not pending, payment confirmation ignored")
		logger.Ctx(ctx).Warn().
			Int64("order_id", orderID).
			Msg("payment confirmed for an order that already left pending state")
	}
	return nil
}

// ProcessTimeoutCheck 消费到期的延迟取消信号。
// 消息可能重复投递，幂等性由 CancelOrder 的条件更新保证。
func (s *TradeApplicationService) ProcessTimeoutCheck(ctx context.Context, event *domain.OrderTimeoutCheckEvent) error {
	ctx, span := s.tracer.Start(ctx, "trade.ProcessTimeoutCheck", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()
	span.SetAttributes(
		attribute.Int64("order.id", event.OrderID),
		attribute.String("event.id", event.EventID),
	)
	metrics.TimeoutSignals.Inc()

	logger.Ctx(ctx).Info().
		Int64("order_id", event.OrderID).
		Msg("payment timeout check fired")
	return s.CancelOrder(ctx, event.OrderID)
}

// GetOrder 查询订单及其明细。
func (s *TradeApplicationService) GetOrder(ctx context.Context, orderID int64) (*OrderResponse, error) {
	ctx, span := s.tracer.Start(ctx, "trade.GetOrder")
	defer span.End()

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	details, err := s.repo.FindDetails(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	resp := &OrderResponse{
		OrderID:     order.ID,
		UserID:      order.UserID,
		TotalFee:    order.TotalFee,
		PaymentType: order.PaymentType,
		Status:      order.Status,
		CreateTime:  order.CreateTime.Format(time.RFC3339),
		Details:     details,
	}
	if order.PayTime != nil {
		resp.PayTime = order.PayTime.Format(time.RFC3339)
	}
	return resp, nil
}
