// internal/service/trade/application/saga/handler.go
package saga

import (
	"context"
	"sync"

	"hmall/internal/pkg/logger"
	"hmall/internal/service/trade/domain"
	"hmall/internal/service/trade/domain/port"

	"go.opentelemetry.io/otel/trace"
)

// OrderContext 在下单 saga 的各个步骤之间传递数据。
// 每个步骤完成本地或远程写入后注册自己的补偿函数；
// 任何一步失败，已注册的补偿按逆序执行，保证失败的下单不留下半提交状态。
type OrderContext struct {
	Ctx     context.Context
	Order   *domain.Order
	Details []domain.OrderDetail
	Form    *domain.OrderForm
	Tracer  trace.Tracer

	Repo        domain.OrderRepository
	ItemService port.ItemService
	CartService port.CartService
	Scheduler   port.DelayScheduler

	compensations []func(ctx context.Context)
	compLock      sync.Mutex
}

// AddCompensation 注册一个补偿函数，后注册的先执行。
func (c *OrderContext) AddCompensation(comp func(ctx context.Context)) {
	c.compLock.Lock()
	defer c.compLock.Unlock()
	c.compensations = append([]func(context.Context){comp}, c.compensations...)
}

// TriggerCompensation 逆序执行所有已注册的补偿函数。
func (c *OrderContext) TriggerCompensation(ctx context.Context) {
	c.compLock.Lock()
	defer c.compLock.Unlock()
	logger.Ctx(ctx).Info().
		Int64("order_id", c.Order.ID).
		Int("compensations", len(c.compensations)).
		Msg("executing saga compensations")
	for _, comp := range c.compensations {
		comp(ctx)
	}
	c.compensations = nil
}

type Handler interface {
	SetNext(handler Handler) Handler
	Handle(orderCtx *OrderContext) error
}

type NextHandler struct {
	next Handler
}

func (h *NextHandler) SetNext(handler Handler) Handler {
	h.next = handler
	return handler
}

func (h *NextHandler) executeNext(orderCtx *OrderContext) error {
	if h.next != nil {
		return h.next.Handle(orderCtx)
	}
	return nil
}
