package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	converter "video_to_mp3_service/internal/converter/domain"
	"video_to_mp3_service/internal/notification/app"
	"video_to_mp3_service/pkg/config"
	"video_to_mp3_service/pkg/database"
	"video_to_mp3_service/pkg/logger"
	"video_to_mp3_service/pkg/redelivery"

	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.NotificationService, config.EnvConfig.NotificationLogPath)

	cfg := config.LoadConfig[config.Notification](config.EnvConfig.NotificationService, config.EnvConfig.NotificationYAMLPath)

	// 1. 開機驗證一次郵件憑證，缺漏直接結束（fail-fast）
	sender := app.NewSMTPSender(cfg.SMTP)
	if err := sender.ValidateConfig(); err != nil {
		logger.Log.Fatal("SMTP 設定不完整", zap.Error(err))
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

	for _, q := range []string{
		converter.MP3Queue,
		converter.DeadLetterQueue(converter.MP3Queue),
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

	// 4. 啟動 Consumer
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer := app.NewConsumer(rabbitRepo, sender, tracker, cfg.Worker.MaxAttempts)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("收到停止訊號，停止消費")
		cancel()
	}()

	consumer.StartConsumer(ctx)
}
