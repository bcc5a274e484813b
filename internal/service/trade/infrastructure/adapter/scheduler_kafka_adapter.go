// internal/service/trade/infrastructure/adapter/scheduler_kafka_adapter.go
package adapter

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"hmall/internal/pkg/constants"
	"hmall/internal/pkg/logger"
	"hmall/internal/pkg/mq"
	"hmall/internal/service/trade/domain"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// 延迟调度器支持的延迟级别。消息先进入级别对应的延迟主题，
// 由 delay-scheduler 轮询，到期后投递到 real-topic header 指定的业务主题。
var delayLevels = []struct {
	topic string
	delay time.Duration
}{
	{"delay_topic_10s", 10 * time.Second},
	{"delay_topic_1m", 1 * time.Minute},
	{"delay_topic_10m", 10 * time.Minute},
	{"delay_topic_30m", 30 * time.Minute},
}

// SchedulerKafkaAdapter 实现了 port.DelayScheduler。
// 配置的支付超时窗口向上取整到最接近的延迟级别。
type SchedulerKafkaAdapter struct {
	delayWriter *kafka.Writer
	delay       time.Duration
}

func NewSchedulerKafkaAdapter(brokers []string, paymentTimeout time.Duration) *SchedulerKafkaAdapter {
	topic, delay := pickDelayLevel(paymentTimeout)
	return &SchedulerKafkaAdapter{
		delayWriter: mq.NewKafkaWriter(brokers, topic),
		delay:       delay,
	}
}

func pickDelayLevel(d time.Duration) (string, time.Duration) {
	for _, level := range delayLevels {
		if level.delay >= d {
			return level.topic, level.delay
		}
	}
	last := delayLevels[len(delayLevels)-1]
	return last.topic, last.delay
}

// SchedulePaymentTimeout 把"检查订单"信号写入延迟主题。
// 信号只携带订单 id，到期后的处理以订单当时的状态为准。
func (a *SchedulerKafkaAdapter) SchedulePaymentTimeout(ctx context.Context, orderID int64) error {
	event := domain.OrderTimeoutCheckEvent{
		EventID:      uuid.New().String(),
		OrderID:      orderID,
		CreationTime: time.Now(),
	}
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(orderID, 10)),
		Value: eventBytes,
		Headers: []kafka.Header{
			{Key: "real-topic", Value: []byte(constants.OrderTimeoutCheckTopic)},
		},
	}
	mq.InjectTraceContext(ctx, &msg.Headers)

	if err := a.delayWriter.WriteMessages(ctx, msg); err != nil {
		return err
	}
	logger.Ctx(ctx).Debug().
		Int64("order_id", orderID).
		Str("event_id", event.EventID).
		Dur("delay", a.delay).
		Msg("payment timeout check enqueued")
	return nil
}

// Close 关闭底层的 Kafka writer。
func (a *SchedulerKafkaAdapter) Close() error {
	return a.delayWriter.Close()
}
