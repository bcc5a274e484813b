// cmd/delay-scheduler/main.go
package main

import (
	"context"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"hmall/internal/pkg/bootstrap"
	"hmall/internal/pkg/logger"
	"hmall/internal/pkg/mq"
	"hmall/internal/pkg/tracing"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const serviceName = "delay-scheduler"

// 支持的延迟级别。每个级别一个延迟主题，由独立的轮询器消费。
// trade-service 的调度适配器按配置的支付超时窗口选择级别。
var delayLevels = map[string]time.Duration{
	"delay_topic_10s": 10 * time.Second,
	"delay_topic_1m":  1 * time.Minute,
	"delay_topic_10m": 10 * time.Minute,
	"delay_topic_30m": 30 * time.Minute,
}

var tracer = otel.Tracer(serviceName)

// Scheduler 负责单个延迟级别的轮询：
// 延迟主题内消息按写入时间有序，队头未到期则后续都未到期。
type Scheduler struct {
	level        string
	delay        time.Duration
	brokers      []string
	kafkaReader  *kafka.Reader
	kafkaWriters map[string]*kafka.Writer
	writerLock   sync.Mutex
}

func NewScheduler(brokers []string, level string, delay time.Duration) *Scheduler {
	return &Scheduler{
		level:        level,
		delay:        delay,
		brokers:      brokers,
		kafkaReader:  mq.NewKafkaReader(brokers, level, serviceName+"-group-"+level),
		kafkaWriters: make(map[string]*kafka.Writer),
	}
}

// StartPolling 启动定时轮询，随 ctx 取消退出。
func (s *Scheduler) StartPolling(ctx context.Context, interval time.Duration) error {
	logger.Ctx(ctx).Info().
		Str("level", s.level).
		Dur("interval", interval).
		Msg("polling scheduler started")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer s.kafkaReader.Close()
	defer s.closeWriters()

	for {
		select {
		case <-ticker.C:
			s.checkAndPublish(ctx)
		case <-ctx.Done():
			logger.Ctx(ctx).Info().Str("level", s.level).Msg("polling scheduler shutting down")
			return nil
		}
	}
}

// checkAndPublish 逐条处理队头消息，到期后投递到真实主题。
// FetchMessage 每次调用都会推进 reader 的内存游标，本次会话内同一条
// 消息不会再被取到，CommitMessages 只影响重启/再均衡后的起点。
// 所以取到的消息绝不能跳过：未到期就原地等到期（队头最早，后续消息
// 只会更晚），投递失败就原地重试，成功投递后才提交 offset。
func (s *Scheduler) checkAndPublish(parentCtx context.Context) {
	for {
		fetchCtx, cancel := context.WithTimeout(parentCtx, 2*time.Second)
		msg, err := s.kafkaReader.FetchMessage(fetchCtx)
		cancel()
		if err != nil {
			// 没有新消息或上下文取消，等下一个 tick
			return
		}

		ctx := mq.ExtractTraceContext(parentCtx, msg.Headers)
		ctx, span := tracer.Start(ctx, "scheduler.CheckAndPublish", trace.WithAttributes(
			attribute.String("delay.level", s.level),
			attribute.String("msg.time", msg.Time.Format(time.DateTime)),
		))

		if !waitUntilDue(parentCtx, msg.Time, s.delay) {
			span.AddEvent("shutdown while waiting for head message")
			span.End()
			return
		}

		realTopic := headerValue(msg.Headers, "real-topic")
		if realTopic == "" {
			logger.Ctx(ctx).Error().Str("level", s.level).Msg("message missing real-topic header, skipping")
			// 缺失路由信息的消息必须提交，否则重启后会被反复消费
			if err := s.kafkaReader.CommitMessages(ctx, msg); err != nil {
				logger.Ctx(ctx).Error().Err(err).Msg("failed to commit skipped message")
			}
			span.End()
			continue
		}

		if !s.publishWithRetry(ctx, realTopic, msg) {
			span.SetStatus(codes.Error, "shutdown before message could be published")
			span.End()
			return
		}

		if err := s.kafkaReader.CommitMessages(ctx, msg); err != nil {
			// 提交失败只影响重启后的重复投递，消费端是幂等的
			logger.Ctx(ctx).Error().Err(err).Msg("failed to commit after publish")
			span.RecordError(err)
		}
		logger.Ctx(ctx).Info().
			Str("level", s.level).
			Str("real_topic", realTopic).
			Msg("due message published and committed")
		span.AddEvent("message published and committed")
		span.End()
	}
}

// waitUntilDue 阻塞到消息到期。返回 false 表示等待期间 ctx 被取消，
// 消息尚未投递也未提交，重启后会从已提交的 offset 重新取到。
func waitUntilDue(ctx context.Context, msgTime time.Time, delay time.Duration) bool {
	wait := time.Until(msgTime.Add(delay))
	if wait <= 0 {
		return true
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(wait):
		return true
	}
}

// publishWithRetry 在同一条消息上带退避反复投递，直到成功或 ctx 取消。
// 返回前不提交 offset，游标已经越过这条消息，放弃就等于丢失信号。
func (s *Scheduler) publishWithRetry(ctx context.Context, realTopic string, msg kafka.Message) bool {
	backoff := time.Second
	const maxBackoff = 30 * time.Second
	for {
		err := s.publish(ctx, realTopic, msg)
		if err == nil {
			return true
		}
		logger.Ctx(ctx).Error().Err(err).
			Str("real_topic", realTopic).
			Dur("backoff", backoff).
			Msg("failed to publish due message, will retry")
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

// publish 将到期消息投递到真实业务主题，并保留原有的 trace 上下文。
func (s *Scheduler) publish(ctx context.Context, realTopic string, msg kafka.Message) error {
	s.writerLock.Lock()
	writer, exists := s.kafkaWriters[realTopic]
	if !exists {
		writer = mq.NewKafkaWriter(s.brokers, realTopic)
		s.kafkaWriters[realTopic] = writer
	}
	s.writerLock.Unlock()

	publishMsg := kafka.Message{
		Key:   msg.Key,
		Value: msg.Value,
	}
	traceCtx := mq.ExtractTraceContext(ctx, msg.Headers)
	mq.InjectTraceContext(traceCtx, &publishMsg.Headers)

	return writer.WriteMessages(ctx, publishMsg)
}

func (s *Scheduler) closeWriters() {
	s.writerLock.Lock()
	defer s.writerLock.Unlock()
	for topic, writer := range s.kafkaWriters {
		if err := writer.Close(); err != nil {
			logger.Logger.Error().Err(err).Str("topic", topic).Msg("failed to close writer")
		}
	}
}

func headerValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func main() {
	bootstrap.Init()
	logger.Init(serviceName)
	cfg := bootstrap.GetCurrentConfig()

	tp, err := tracing.InitTracerProvider(serviceName, cfg.Infra.Jaeger.Endpoint)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to initialize tracer provider")
	}
	defer tp.Shutdown(context.Background())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	for level, delay := range delayLevels {
		scheduler := NewScheduler(cfg.Infra.Kafka.Brokers, level, delay)
		g.Go(func() error {
			return scheduler.StartPolling(ctx, time.Second)
		})
	}

	logger.Logger.Info().Msg("all polling schedulers are running")
	if err := g.Wait(); err != nil {
		logger.Logger.Error().Err(err).Msg("scheduler exited with error")
	}
}
