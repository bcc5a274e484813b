// internal/service/trade/interfaces/order_timeout_handler.go
package interfaces

import (
	"context"
	"encoding/json"

	"hmall/internal/pkg/logger"
	"hmall/internal/service/trade/application"
	"hmall/internal/service/trade/domain"

	"github.com/segmentio/kafka-go"
)

// OrderTimeoutConsumer 监听到期的延迟取消信号并驱动取消路径。
// 信号是 at-least-once 投递的，重复消费安全（条件更新保证幂等）；
// 库存恢复失败时消息不会被提交，靠重试最终归还库存。
type OrderTimeoutConsumer struct {
	*kafkaConsumer
}

func NewOrderTimeoutConsumer(reader *kafka.Reader, appSvc *application.TradeApplicationService) *OrderTimeoutConsumer {
	c := &OrderTimeoutConsumer{}
	c.kafkaConsumer = newKafkaConsumer(reader, func(ctx context.Context, msg kafka.Message) error {
		var event domain.OrderTimeoutCheckEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			// 坏消息重试也不会好，跳过并提交
			logger.Ctx(ctx).Error().Err(err).Msg("malformed timeout check event, skipping")
			return nil
		}
		return appSvc.ProcessTimeoutCheck(ctx, &event)
	})
	return c
}
