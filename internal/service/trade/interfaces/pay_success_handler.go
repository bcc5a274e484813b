// internal/service/trade/interfaces/pay_success_handler.go
package interfaces

import (
	"context"
	"encoding/json"
	"time"

	"hmall/internal/pkg/logger"
	"hmall/internal/service/trade/application"
	"hmall/internal/service/trade/domain"

	"github.com/segmentio/kafka-go"
)

// PaySuccessConsumer 监听 pay-service 发出的支付成功事件，
// 把订单从未支付翻为已支付。与延迟取消信号走不同的消费链路，
// 两边的竞争由订单表的条件更新仲裁。
type PaySuccessConsumer struct {
	*kafkaConsumer
}

func NewPaySuccessConsumer(reader *kafka.Reader, appSvc *application.TradeApplicationService) *PaySuccessConsumer {
	c := &PaySuccessConsumer{}
	c.kafkaConsumer = newKafkaConsumer(reader, func(ctx context.Context, msg kafka.Message) error {
		var event domain.PaySuccessEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Ctx(ctx).Error().Err(err).Msg("malformed pay success event, skipping")
			return nil
		}
		payTime := event.PayTime
		if payTime.IsZero() {
			payTime = time.Now()
		}
		return appSvc.MarkOrderPaySuccess(ctx, event.OrderID, payTime)
	})
	return c
}
