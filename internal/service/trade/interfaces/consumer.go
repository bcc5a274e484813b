// internal/service/trade/interfaces/consumer.go
package interfaces

import (
	"context"
	"sync"
	"time"

	"hmall/internal/pkg/logger"
	"hmall/internal/pkg/mq"

	"github.com/segmentio/kafka-go"
)

// kafkaConsumer 是驱动适配器的公共消费循环。
// 消息严格按分区顺序处理，处理成功才提交 offset；
// 处理失败时在同一条消息上带退避重试，而不是跳过——
// 跳过后再提交后续消息会连带提交失败消息的 offset，丢掉重投机会。
type kafkaConsumer struct {
	reader  *kafka.Reader
	process func(ctx context.Context, msg kafka.Message) error
	wg      sync.WaitGroup
}

func newKafkaConsumer(reader *kafka.Reader, process func(ctx context.Context, msg kafka.Message) error) *kafkaConsumer {
	return &kafkaConsumer{reader: reader, process: process}
}

// Start 启动消费循环，随 ctx 取消退出。
func (c *kafkaConsumer) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		logger.Ctx(ctx).Info().
			Str("topic", c.reader.Config().Topic).
			Msg("kafka consumer started")
		for {
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					logger.Ctx(ctx).Info().
						Str("topic", c.reader.Config().Topic).
						Msg("kafka consumer shutting down")
					return
				}
				logger.Ctx(ctx).Error().Err(err).Msg("could not fetch message, retrying")
				time.Sleep(time.Second)
				continue
			}

			msgCtx := mq.ExtractTraceContext(ctx, msg.Headers)
			if !c.processWithRetry(msgCtx, msg) {
				return // ctx 已取消
			}

			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				logger.Ctx(ctx).Error().Err(err).Msg("failed to commit message offset")
			}
		}
	}()
}

// processWithRetry 反复处理同一条消息直到成功或 ctx 取消。
// 返回 false 表示消费循环应该退出。
func (c *kafkaConsumer) processWithRetry(ctx context.Context, msg kafka.Message) bool {
	backoff := time.Second
	const maxBackoff = 30 * time.Second
	for {
		err := c.process(ctx, msg)
		if err == nil {
			return true
		}
		logger.Ctx(ctx).Error().Err(err).
			Str("topic", c.reader.Config().Topic).
			Dur("backoff", backoff).
			Msg("message processing failed, will retry")
		select {
		case <-ctx.Done():
			return false
		case <-time.After(backoff):
		}
		if backoff < maxBackoff {
			backoff *= 2
		}
	}
}

// Stop 关闭 reader 并等待消费循环退出。
func (c *kafkaConsumer) Stop() {
	c.reader.Close()
	c.wg.Wait()
}
