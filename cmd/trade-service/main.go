// cmd/trade-service/main.go
package main

import (
	"context"
	"time"

	"hmall/internal/pkg/bootstrap"
	"hmall/internal/pkg/constants"
	"hmall/internal/pkg/httpclient"
	"hmall/internal/pkg/logger"
	"hmall/internal/pkg/mq"
	"hmall/internal/service/trade/application"
	"hmall/internal/service/trade/infrastructure"
	"hmall/internal/service/trade/infrastructure/adapter"
	"hmall/internal/service/trade/interfaces"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
)

const (
	serviceName      = "trade-service"
	servicePort      = 8084
	itemSnapshotTTL  = 30 * time.Second
	timeoutGroupID   = "trade-service-timeout-group"
	payResultGroupID = "trade-service-pay-group"
)

// main 函数是应用的"组装根"：创建并组装所有依赖项，然后启动服务。
func main() {
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	db, err := infrastructure.NewDB(cfg.Infra.Mysql.DSN)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to connect to mysql")
	}
	repo := infrastructure.NewGormOrderRepository(db)

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Infra.Redis.Addr})

	scheduler := adapter.NewSchedulerKafkaAdapter(cfg.Infra.Kafka.Brokers, cfg.App.Trade.PaymentTimeout)

	consumerCtx, cancelConsumers := context.WithCancel(context.Background())
	var timeoutConsumer *interfaces.OrderTimeoutConsumer
	var payConsumer *interfaces.PaySuccessConsumer

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			tracer := otel.Tracer(serviceName)

			client := httpclient.NewClient(tracer, appCtx.Nacos)
			itemService := adapter.NewCachedItemService(adapter.NewItemHTTPAdapter(client), rdb, itemSnapshotTTL)
			cartService := adapter.NewCartHTTPAdapter(client)

			svc := application.NewTradeApplicationService(repo, itemService, cartService, scheduler, tracer)

			interfaces.NewTradeHandler(svc).RegisterRoutes(appCtx.Mux)

			timeoutConsumer = interfaces.NewOrderTimeoutConsumer(
				mq.NewKafkaReader(cfg.Infra.Kafka.Brokers, constants.OrderTimeoutCheckTopic, timeoutGroupID), svc)
			timeoutConsumer.Start(consumerCtx)

			payConsumer = interfaces.NewPaySuccessConsumer(
				mq.NewKafkaReader(cfg.Infra.Kafka.Brokers, constants.PaySuccessTopic, payResultGroupID), svc)
			payConsumer.Start(consumerCtx)
		},
		OnShutdown: func(ctx context.Context) {
			cancelConsumers()
			if timeoutConsumer != nil {
				timeoutConsumer.Stop()
			}
			if payConsumer != nil {
				payConsumer.Stop()
			}
			if err := scheduler.Close(); err != nil {
				logger.Logger.Error().Err(err).Msg("error closing delay scheduler writer")
			}
			if err := rdb.Close(); err != nil {
				logger.Logger.Error().Err(err).Msg("error closing redis client")
			}
		},
	})
}
