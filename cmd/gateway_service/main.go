package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	converter "video_to_mp3_service/internal/converter/domain"
	"video_to_mp3_service/internal/gateway/api/handlers"
	"video_to_mp3_service/internal/gateway/api/router"
	"video_to_mp3_service/internal/gateway/app"
	"video_to_mp3_service/pkg/blobstore"
	"video_to_mp3_service/pkg/config"
	"video_to_mp3_service/pkg/database"
	"video_to_mp3_service/pkg/logger"
	"video_to_mp3_service/pkg/token"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.GatewayService, config.EnvConfig.GatewayLogPath)

	cfg := config.LoadConfig[config.Gateway](config.EnvConfig.GatewayService, config.EnvConfig.GatewayYAMLPath)

	token.SetSecret(cfg.JWTSecret)

	// 1. 初始化 blob store（minio 或 gridfs，依設定）
	ctx := context.Background()
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

	// 先初始化 video queue，訊息才有地方落地
	if err := rabbitRepo.QueueDeclare(converter.VideoQueue); err != nil {
		log.Fatalf("Queue Declare failed: %v", err)
	}

	// 3. 建立 Fiber 應用
	r := fiber.New()

	// 添加日志中间件
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.GatewayLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file, // 将日志输出到文件
	}))

	// 4. 設定 API 路由
	usecase := app.NewGatewayUseCase(store, rabbitRepo)
	uploadHandler := handlers.NewUploadHandler(usecase)
	router.RegisterRoutes(r, uploadHandler)

	// 5. 啟動 API 服務
	logger.Log.Info(fmt.Sprintf("Gateway service listening on : %s", cfg.Port))
	if err := r.Listen(":" + cfg.Port); err != nil {
		logger.Log.Fatal("Server failed to start", zap.Error(err))
	}
}
