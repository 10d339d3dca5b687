package app

import (
	"context"
	"fmt"
	"log"
	"time"

	converter "video_to_mp3_service/internal/converter/domain"
	"video_to_mp3_service/internal/notification/domain"
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

// requeueDelay 暫時性失敗重投前的等待時間
const requeueDelay = 10 * time.Second

// Consumer 定義通知工作的消息消費者
type Consumer struct {
	rabbitChannel database.RabbitRepo
	sender        domain.EmailSender
	tracker       redelivery.Tracker
	maxAttempts   int
}

// NewConsumer 建構 Consumer 實例
func NewConsumer(rabbitChannel database.RabbitRepo, sender domain.EmailSender,
	tracker redelivery.Tracker, maxAttempts int) *Consumer {
	return &Consumer{
		rabbitChannel: rabbitChannel,
		sender:        sender,
		tracker:       tracker,
		maxAttempts:   maxAttempts,
	}
}

// StartConsumer 開始消費 mp3 queue，寄出完成通知信
func (c *Consumer) StartConsumer(ctx context.Context) {
	msgs, err := c.rabbitChannel.Consume(converter.MP3Queue)
	if err != nil {
		log.Fatalf("無法開始消費 RabbitMQ 訊息: %v", err)
	}

	log.Println("Notification consumer 已啟動，等待通知工作訊息...")

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
			log.Println("Notification consumer 收到停止訊號")
			return
		}
	}
}

// handleDelivery 解碼訊息並依錯誤類型決定 ack 行為
func (c *Consumer) handleDelivery(ctx context.Context, body []byte) ackDecision {
	job, err := converter.DecodeJob(body)
	if err != nil {
		// poison：缺 username 或 schema 錯誤，不寄信、留 log、旁路後移除
		return c.deadLetter(ctx, body)
	}
	if err := job.RequireMP3(); err != nil {
		return c.deadLetter(ctx, body)
	}

	msg := domain.ComposeReadyMail(job.Username, *job.MP3FID)
	if err := c.sender.Send(ctx, msg); err != nil {
		if !errprocess.KindOf(err).Transient() {
			logger.Log.Error(fmt.Sprintf("username[%s] 通知信終止性失敗，訊息轉入 dead-letter : %v",
				job.Username, err))
			return c.deadLetter(ctx, body)
		}
		return c.transientFailure(ctx, body)
	}

	logger.Log.Info(fmt.Sprintf("mp3_fid[%s] 通知信已寄給 %s", *job.MP3FID, job.Username))
	c.clearAttempts(ctx, body)
	return ackMessage
}

// transientFailure 暫時性失敗：額度內重投，超過即轉 dead-letter
// 憑證永久錯誤這類情況不會無限重投，最多 maxAttempts 次
func (c *Consumer) transientFailure(ctx context.Context, body []byte) ackDecision {
	attempts, err := c.tracker.Attempts(ctx, body)
	if err != nil {
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
		converter.DeadLetterQueue(converter.MP3Queue),
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
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
