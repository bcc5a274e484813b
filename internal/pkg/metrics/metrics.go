// internal/pkg/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 交易核心的业务指标。补偿失败是唯一需要告警的指标：
// 它意味着订单已取消但库存尚未归还，依赖消息重投恢复。
var (
	OrdersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hmall",
		Subsystem: "trade",
		Name:      "orders_created_total",
		Help:      "Total number of orders successfully created.",
	})

	OrderCreateFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hmall",
		Subsystem: "trade",
		Name:      "order_create_failures_total",
		Help:      "Total number of failed order creations.",
	}, []string{"reason"})

	OrdersCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hmall",
		Subsystem: "trade",
		Name:      "orders_cancelled_total",
		Help:      "Total number of orders transitioned to cancelled.",
	})

	TimeoutSignals = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hmall",
		Subsystem: "trade",
		Name:      "timeout_signals_total",
		Help:      "Total number of delayed cancellation signals consumed.",
	})

	StockRestores = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hmall",
		Subsystem: "trade",
		Name:      "stock_restores_total",
		Help:      "Total number of successful stock restorations.",
	})

	StockRestoreFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hmall",
		Subsystem: "trade",
		Name:      "stock_restore_failures_total",
		Help:      "Total number of failed stock restorations awaiting redelivery.",
	})
)
