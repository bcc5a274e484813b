// internal/service/trade/domain/port/scheduler.go
package port

import "context"

// DelayScheduler 是延迟任务调度器的出站端口。
// SchedulePaymentTimeout 发出一个延迟的"检查订单"信号，fire-and-forget；
// 延迟窗口由调度器自身的配置决定，到期后信号会触发取消路径。
type DelayScheduler interface {
	SchedulePaymentTimeout(ctx context.Context, orderID int64) error
}
