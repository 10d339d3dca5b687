package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"video_to_mp3_service/internal/converter/domain"
	"video_to_mp3_service/pkg/blobstore"
	"video_to_mp3_service/pkg/database"
	errprocess "video_to_mp3_service/pkg/err"
	"video_to_mp3_service/pkg/logger"
	"video_to_mp3_service/pkg/redelivery"

	"github.com/streadway/amqp"
)

// ackDecision 單則訊息的處理結果
type ackDecision int

const (
	// ackMessage 處理完成或已轉入 dead-letter，從 queue 移除
	ackMessage ackDecision = iota
	// requeueMessage 暫時性失敗，交還 broker 重新投遞
	requeueMessage
)

// requeueDelay 暫時性失敗重投前的等待時間，避免空轉
const requeueDelay = 10 * time.Second

// Consumer 定義轉檔工作的消息消費者，將所有必要的依賴注入進來
type Consumer struct {
	rabbitChannel database.RabbitRepo
	store         blobstore.Store
	tracker       redelivery.Tracker
	maxAttempts   int
	tmpDir        string
}

// NewConsumer 建構 Consumer 實例
func NewConsumer(rabbitChannel database.RabbitRepo, store blobstore.Store,
	tracker redelivery.Tracker, maxAttempts int, tmpDir string) *Consumer {
	return &Consumer{
		rabbitChannel: rabbitChannel,
		store:         store,
		tracker:       tracker,
		maxAttempts:   maxAttempts,
		tmpDir:        tmpDir,
	}
}

// 讓 test mock 使用包裝函數
var (
	extractAudio = ExtractAudio

	createTempDir = func(dir, pattern string) (string, error) {
		return os.MkdirTemp(dir, pattern)
	}

	writeLocalFile = func(name string, data []byte) error {
		return os.WriteFile(name, data, 0644)
	}

	readLocalFile = func(name string) ([]byte, error) {
		return os.ReadFile(name)
	}
)

// StartConsumer 開始消費 video queue，並處理轉檔工作
func (c *Consumer) StartConsumer(ctx context.Context) {
	msgs, err := c.rabbitChannel.Consume(domain.VideoQueue)
	if err != nil {
		log.Fatalf("無法開始消費 RabbitMQ 訊息: %v", err)
	}

	log.Println("Converter consumer 已啟動，等待轉檔工作訊息...")

	// 持續監聽訊息
	for {
		select {
		case d, ok := <-msgs:
			if !ok {
				log.Println("RabbitMQ 消費 channel 已關閉")
				return
			}

			switch c.handleDelivery(ctx, d.Body) {
			case ackMessage:
				if err := d.Ack(false); err != nil {
					logger.Log.Errorf("Ack 訊息失敗:", err)
				}
			case requeueMessage:
				time.Sleep(requeueDelay)
				if err := d.Nack(false, true); err != nil {
					logger.Log.Errorf("Nack 訊息失敗:", err)
				}
			}
		case <-ctx.Done():
			log.Println("Converter consumer 收到停止訊號")
			return
		}
	}
}

// handleDelivery 解碼訊息並依錯誤類型決定 ack 行為
// 終止性錯誤（poison / 引用不存在 / 轉檔不可能成功）轉 dead-letter 後移除
// 暫時性錯誤在額度內重投，超過額度也轉 dead-letter
func (c *Consumer) handleDelivery(ctx context.Context, body []byte) ackDecision {
	job, err := domain.DecodeJob(body)
	if err != nil {
		// schema 錯誤重投一百次也一樣，直接旁路
		return c.deadLetter(ctx, body)
	}

	if err := c.process(ctx, job); err != nil {
		if !errprocess.KindOf(err).Transient() {
			logger.Log.Error(fmt.Sprintf("video_fid[%s] 轉檔工作終止性失敗，訊息轉入 dead-letter : %v",
				job.VideoFID, err))
			return c.deadLetter(ctx, body)
		}
		return c.transientFailure(ctx, body)
	}

	c.clearAttempts(ctx, body)
	return ackMessage
}

// process 執行單筆轉檔工作
// mp3 blob 先落地、job 發布成功之後呼叫端才會 ack 原始訊息
// 中途 crash 只會留下未 ack 的訊息，重跑最多多產生一個無人引用的 mp3 blob
func (c *Consumer) process(ctx context.Context, job *domain.ConvertJob) error {
	logger.Log.Info(fmt.Sprintf("video_fid[%s] state[%s] 收到轉檔工作", job.VideoFID, domain.StateReceived))

	// 1. 讀取原始影片
	videoBytes, err := c.store.Get(ctx, job.VideoFID)
	if err != nil {
		return err
	}

	// 2. 寫入暫存檔並抽出音軌
	logger.Log.Info(fmt.Sprintf("video_fid[%s] state[%s] 開始抽出音軌", job.VideoFID, domain.StateExtracting))
	workDir, err := createTempDir(c.tmpDir, "convert_")
	if err != nil {
		return errprocess.SetKind(errprocess.KindStorage,
			fmt.Sprintf("video_fid[%s] 建立暫存目錄失敗 : %v", job.VideoFID, err))
	}
	defer os.RemoveAll(workDir)

	inputPath := filepath.Join(workDir, "input.video")
	outputPath := filepath.Join(workDir, "output.mp3")

	if err := writeLocalFile(inputPath, videoBytes); err != nil {
		return errprocess.SetKind(errprocess.KindStorage,
			fmt.Sprintf("video_fid[%s] 寫入暫存檔失敗 : %v", job.VideoFID, err))
	}

	if err := extractAudio(inputPath, outputPath); err != nil {
		return errprocess.SetKind(errprocess.KindTranscode,
			fmt.Sprintf("video_fid[%s] 音軌抽出失敗 : %v", job.VideoFID, err))
	}

	audioBytes, err := readLocalFile(outputPath)
	if err != nil {
		return errprocess.SetKind(errprocess.KindStorage,
			fmt.Sprintf("video_fid[%s] 讀取轉檔結果失敗 : %v", job.VideoFID, err))
	}

	// 3. mp3 寫入 blob store
	mp3FID, err := c.store.Put(ctx, audioBytes, "audio/mpeg")
	if err != nil {
		return err
	}
	logger.Log.Info(fmt.Sprintf("video_fid[%s] state[%s] mp3_fid[%s] 已寫入", job.VideoFID, domain.StateStored, mp3FID))

	// 4. 發布通知 job 到 mp3 queue
	out := domain.ConvertJob{
		VideoFID: job.VideoFID,
		MP3FID:   &mp3FID,
		Username: job.Username,
	}
	body, err := out.Encode()
	if err != nil {
		c.compensateDelete(ctx, mp3FID)
		return err
	}

	err = c.rabbitChannel.Publish(
		"",              // 預設 exchange
		domain.MP3Queue, // queue 名稱
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		// 發布失敗補償刪除 mp3 blob，原訊息重投後會重新產一個新的 fid
		c.compensateDelete(ctx, mp3FID)
		return errprocess.SetKind(errprocess.KindQueue,
			fmt.Sprintf("mp3_fid[%s] 發送 RabbitMQ 訊息失敗 : %v", mp3FID, err))
	}

	logger.Log.Info(fmt.Sprintf("video_fid[%s] state[%s] mp3_fid[%s] 通知工作已發布", job.VideoFID, domain.StatePublished, mp3FID))
	return nil
}

func (c *Consumer) compensateDelete(ctx context.Context, fid string) {
	if err := c.store.Delete(ctx, fid); err != nil {
		logger.Log.Errorf(fmt.Sprintf("fid[%s] 補償刪除 blob 失敗，留下孤兒檔案 :", fid), err)
	}
}

// transientFailure 暫時性失敗：額度內重投，超過即轉 dead-letter
func (c *Consumer) transientFailure(ctx context.Context, body []byte) ackDecision {
	attempts, err := c.tracker.Attempts(ctx, body)
	if err != nil {
		// 計數器本身掛掉時照常重投，不因旁路故障丟訊息
		logger.Log.Errorf("redelivery 計數失敗，照常重投 :", err)
		return requeueMessage
	}

	if attempts >= c.maxAttempts {
		logger.Log.Error(fmt.Sprintf("訊息重試 %d 次仍失敗，轉入 dead-letter", attempts))
		return c.deadLetter(ctx, body)
	}

	return requeueMessage
}

// deadLetter 把訊息旁路到 dead-letter queue 後移除
func (c *Consumer) deadLetter(ctx context.Context, body []byte) ackDecision {
	err := c.rabbitChannel.Publish(
		"",
		domain.DeadLetterQueue(domain.VideoQueue),
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		// dead-letter 也不可用時保留原訊息
		logger.Log.Errorf("dead-letter 發布失敗，訊息重投 :", err)
		return requeueMessage
	}

	c.clearAttempts(ctx, body)
	return ackMessage
}

func (c *Consumer) clearAttempts(ctx context.Context, body []byte) {
	if err := c.tracker.Clear(ctx, body); err != nil {
		logger.Log.Errorf("redelivery 計數清除失敗 :", err)
	}
}
