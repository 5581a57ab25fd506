package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"

	"github.com/wyfcoding/futuresledger/internal/position/application"
	"github.com/wyfcoding/futuresledger/internal/position/infrastructure/messaging"
	"github.com/wyfcoding/futuresledger/internal/position/infrastructure/persistence/mysql"
	redisref "github.com/wyfcoding/futuresledger/internal/position/infrastructure/persistence/redis"
	consumeriface "github.com/wyfcoding/futuresledger/internal/position/interfaces/consumer"
	httpiface "github.com/wyfcoding/futuresledger/internal/position/interfaces/http"
	"github.com/wyfcoding/futuresledger/pkg/cache"
	"github.com/wyfcoding/futuresledger/pkg/config"
	"github.com/wyfcoding/futuresledger/pkg/db"
	"github.com/wyfcoding/futuresledger/pkg/logger"
	"github.com/wyfcoding/futuresledger/pkg/metrics"
	"github.com/wyfcoding/futuresledger/pkg/middleware"
	"github.com/wyfcoding/futuresledger/pkg/mq"
	"github.com/wyfcoding/futuresledger/pkg/ratelimit"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "configs/position/config.toml", "path to config file")
	flag.Parse()

	// 1. Config
	cfg, err := config.Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("load config failed: %v", err))
	}

	// 2. Logger
	if err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}); err != nil {
		panic(fmt.Sprintf("init logger failed: %v", err))
	}

	ctx := context.Background()

	// 3. Metrics
	ledgerMetrics := metrics.New("position")
	if cfg.Metrics.Enabled {
		if err := ledgerMetrics.Register(); err != nil {
			logger.Fatal(ctx, "register metrics failed", "error", err)
		}
		if err := metrics.StartHTTPServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
			logger.Fatal(ctx, "start metrics server failed", "error", err)
		}
	}

	// 4. Database
	database, err := db.Init(db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		logger.Fatal(ctx, "connect db failed", "error", err)
	}
	defer database.Close()

	if err := database.AutoMigrate(
		&mysql.PositionModel{},
		&mysql.LotModel{},
		&messaging.OutboxMessage{},
	); err != nil {
		logger.Fatal(ctx, "migrate db failed", "error", err)
	}

	// 5. Redis
	redisCache, err := cache.New(cache.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		MaxPoolSize:  cfg.Redis.MaxPoolSize,
		ConnTimeout:  cfg.Redis.ConnTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		logger.Fatal(ctx, "connect redis failed", "error", err)
	}
	defer redisCache.Close()

	// 6. Kafka
	kafkaCfg := mq.KafkaConfig{
		Brokers:        cfg.Kafka.Brokers,
		GroupID:        cfg.Kafka.GroupID,
		SessionTimeout: cfg.Kafka.SessionTimeout,
		MaxRetries:     cfg.Kafka.MaxRetries,
		RetryBackoff:   cfg.Kafka.RetryBackoff,
	}
	producer, err := mq.NewProducer(kafkaCfg)
	if err != nil {
		logger.Fatal(ctx, "create kafka producer failed", "error", err)
	}
	defer producer.Close()

	tradeConsumer, err := mq.NewConsumer(kafkaCfg, cfg.Ledger.TradeTopic)
	if err != nil {
		logger.Fatal(ctx, "create trade consumer failed", "error", err)
	}
	defer tradeConsumer.Close()

	settlementConsumer, err := mq.NewConsumer(kafkaCfg, cfg.Ledger.SettlementTopic)
	if err != nil {
		logger.Fatal(ctx, "create settlement consumer failed", "error", err)
	}
	defer settlementConsumer.Close()

	// 7. Infrastructure & Application
	repo := mysql.NewPositionRepository(database)
	instruments := redisref.NewInstrumentRepository(redisCache)
	marginTable := redisref.NewMarginTable(redisCache)
	marketData := redisref.NewMarketData(redisCache)
	orderBook := redisref.NewOpenOrderBook(redisCache)
	calendar := redisref.NewTradingCalendar(redisCache)
	publisher := messaging.NewOutboxEventPublisher(database, producer, cfg.Ledger.EventsTopic)

	command := application.NewPositionCommandService(repo, instruments, marketData, calendar, publisher, ledgerMetrics)
	query := application.NewPositionQueryService(repo, marginTable, marketData, orderBook, cfg.Ledger.MarginMultiplier)
	service := application.NewPositionService(command, query)

	// 8. HTTP
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(
		middleware.GinRecoveryMiddleware(),
		middleware.GinLoggingMiddleware(),
		middleware.GinMetricsMiddleware(ledgerMetrics),
		middleware.GinCORSMiddleware(),
	)
	if cfg.RateLimit.Enabled {
		limiter := ratelimit.NewRedisRateLimiter(redisCache.GetClient())
		router.Use(middleware.RateLimitMiddleware(limiter, cfg.RateLimit))
	}
	httpiface.NewPositionHandler(service).RegisterRoutes(router)

	// 9. Start
	g, gctx := errgroup.WithContext(ctx)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}
	g.Go(func() error {
		logger.Info(gctx, "HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	tradeHandler := consumeriface.NewTradeExecutionHandler(service.Command, logger.Get())
	g.Go(func() error {
		return runConsumer(gctx, tradeConsumer, tradeHandler.Handle)
	})

	settlementHandler := consumeriface.NewSettlementTriggerHandler(service.Command, logger.Get())
	g.Go(func() error {
		return runConsumer(gctx, settlementConsumer, settlementHandler.Handle)
	})

	g.Go(func() error {
		publisher.RunRelay(
			gctx,
			time.Duration(cfg.Ledger.OutboxRelayInterval)*time.Millisecond,
			cfg.Ledger.OutboxBatchSize,
			ledgerMetrics.RecordOutboxRelayed,
		)
		return nil
	})

	// 10. Graceful Shutdown
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
			logger.Info(gctx, "shutting down servers...")
		case <-gctx.Done():
			logger.Info(gctx, "context cancelled, shutting down...")
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error(ctx, "server exited with error", "error", err)
	}
}

// runConsumer 循环消费直到 ctx 取消。handler 返回错误时记日志并继续，
// 偏移量不提交由 reader 的重平衡策略兜底。
func runConsumer(ctx context.Context, consumer *mq.KafkaConsumer, handle func(context.Context, kafka.Message) error) error {
	for {
		msg, err := consumer.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			logger.Error(ctx, "read kafka message failed", "error", err)
			time.Sleep(time.Second)
			continue
		}
		if err := handle(ctx, msg); err != nil {
			logger.Error(ctx, "handle kafka message failed",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}
	}
}
