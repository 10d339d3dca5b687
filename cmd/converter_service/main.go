package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"video_to_mp3_service/internal/converter/app"
	"video_to_mp3_service/internal/converter/domain"
	"video_to_mp3_service/pkg/blobstore"
	"video_to_mp3_service/pkg/config"
	"video_to_mp3_service/pkg/database"
	"video_to_mp3_service/pkg/logger"
	"video_to_mp3_service/pkg/redelivery"
	testtool "video_to_mp3_service/pkg/test_tool"

	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.ConverterService, config.EnvConfig.ConverterLogPath)

	cfg := config.LoadConfig[config.Converter](config.EnvConfig.ConverterService, config.EnvConfig.ConverterYAMLPath)

	// 轉檔 worker 吃重 CPU，非 production 環境開 pprof 方便分析
	testtool.StartPprof()

	// 1. 初始化 blob store
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := blobstore.NewStore(ctx, cfg.Storage)
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to blob store after retries",
			zap.String("backend", cfg.Storage.Backend),
			zap.Error(err),
		)
	}

	// 2. 連線 RabbitMQ
	rabbitURL := config.RabbitURL(cfg.RabbitMQ)
	conn, err := database.ConnectRabbitMQWithRetry(database.Connection{
		ConnectStr:    rabbitURL,
		RetryCount:    cfg.RabbitMQ.RetryCount,
		RetryInterval: time.Duration(cfg.RabbitMQ.RetryInterval),
	})
	if err != nil {
		log.Fatalf("RabbitMQ 連線失敗: %v", err)
	}
	defer conn.Close()

	rabbitChannel, err := database.GetRabbitMQChannelWithRetry(conn, cfg.RabbitMQ.RetryCount, time.Duration(cfg.RabbitMQ.RetryInterval))
	if err != nil {
		log.Fatalf("取得 RabbitMQ Channel 失敗: %v", err)
	}
	defer rabbitChannel.Close()

	rabbitRepo := database.NewRabbitRepository(rabbitChannel)

	// 消費端與發布端用到的 queue 先宣告好
	for _, q := range []string{
		domain.VideoQueue,
		domain.MP3Queue,
		domain.DeadLetterQueue(domain.VideoQueue),
	} {
		if err := rabbitRepo.QueueDeclare(q); err != nil {
			log.Fatalf("Queue Declare [%s] failed: %v", q, err)
		}
	}

	// 3. 連線 redis（重投計數器）
	rdb, err := database.NewRedisConnection(database.RedisConnection{
		Addr:          cfg.Redis.Addr,
		Password:      cfg.Redis.Password,
		DB:            cfg.Redis.RedisDB,
		RetryCount:    cfg.Redis.RetryCount,
		RetryInterval: time.Duration(cfg.Redis.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal("Unable to connect to redis after retries", zap.Error(err))
	}
	tracker := redelivery.NewRedisTracker(rdb)

	// 4. 準備轉檔暫存目錄
	if err := os.MkdirAll(cfg.Worker.TmpDir, 0755); err != nil {
		log.Fatalf("建立暫存目錄失敗: %v", err)
	}

	// 5. 啟動 Consumer，收到停止訊號時讓處理中的訊息留在未 ack 狀態
	consumer := app.NewConsumer(rabbitRepo, store, tracker, cfg.Worker.MaxAttempts, cfg.Worker.TmpDir)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("收到停止訊號，停止消費")
		cancel()
	}()

	consumer.StartConsumer(ctx)
}
