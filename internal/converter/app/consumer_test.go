package app

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"video_to_mp3_service/internal/converter/domain"
	errprocess "video_to_mp3_service/pkg/err"
	"video_to_mp3_service/pkg/logger"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockBlobStore 是 blobstore.Store 的 Mock
type MockBlobStore struct {
	mock.Mock
}

// Put 模擬 blob 寫入行為
func (m *MockBlobStore) Put(ctx context.Context, data []byte, contentType string) (string, error) {
	args := m.Called(ctx, data, contentType)
	return args.Get(0).(string), args.Error(1)
}

// Get 模擬 blob 讀取行為
func (m *MockBlobStore) Get(ctx context.Context, fid string) ([]byte, error) {
	args := m.Called(ctx, fid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// Delete 模擬 blob 刪除行為
func (m *MockBlobStore) Delete(ctx context.Context, fid string) error {
	args := m.Called(ctx, fid)
	return args.Error(0)
}

// MockRabbitChannel 是 RabbitMQ 的 Mock
type MockRabbitChannel struct {
	mock.Mock
}

// GetRabbit 模擬獲取 RabbitMQ Channel
func (m *MockRabbitChannel) GetRabbit() *amqp.Channel {
	args := m.Called()
	return args.Get(0).(*amqp.Channel)
}

func (m *MockRabbitChannel) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	args := m.Called(exchange, key, mandatory, immediate, msg)
	return args.Error(0)
}

// Consume 模擬消費 queue
func (m *MockRabbitChannel) Consume(queue string) (<-chan amqp.Delivery, error) {
	args := m.Called(queue)
	return args.Get(0).(<-chan amqp.Delivery), args.Error(1)
}

// QueueDeclare 模擬宣告 queue
func (m *MockRabbitChannel) QueueDeclare(name string) error {
	args := m.Called(name)
	return args.Error(0)
}

// MockTracker 是 redelivery.Tracker 的 Mock
type MockTracker struct {
	mock.Mock
}

// Attempts 模擬累加重投計數
func (m *MockTracker) Attempts(ctx context.Context, body []byte) (int, error) {
	args := m.Called(ctx, body)
	return args.Int(0), args.Error(1)
}

// Clear 模擬清除重投計數
func (m *MockTracker) Clear(ctx context.Context, body []byte) error {
	args := m.Called(ctx, body)
	return args.Error(0)
}

const maxAttempts = 5

func jobBody(t *testing.T) []byte {
	t.Helper()
	job := domain.ConvertJob{VideoFID: "vid-1", MP3FID: nil, Username: "a@b.com"}
	body, err := job.Encode()
	assert.NoError(t, err)
	return body
}

// stubExtract 以假的 mp3 內容取代 ffmpeg
func stubExtract(t *testing.T, audio []byte, fail bool) func() {
	t.Helper()
	original := extractAudio
	extractAudio = func(inputPath, outputPath string) error {
		if fail {
			return errors.New("ffmpeg error")
		}
		return os.WriteFile(outputPath, audio, 0644)
	}
	return func() { extractAudio = original }
}

// 測試 handleDelivery 的 ack 決策
func TestHandleDelivery(t *testing.T) {
	logger.SetNewNop()
	ctx := context.Background()

	// **情境 1: 成功處理轉檔工作**
	t.Run("成功處理轉檔工作", func(t *testing.T) {
		mockStore := new(MockBlobStore)
		mockRabbit := new(MockRabbitChannel)
		mockTracker := new(MockTracker)
		restore := stubExtract(t, []byte("fake mp3 bytes"), false)
		defer restore()

		c := NewConsumer(mockRabbit, mockStore, mockTracker, maxAttempts, t.TempDir())
		body := jobBody(t)

		mockStore.On("Get", mock.Anything, "vid-1").Return([]byte("video bytes"), nil).Once()
		mockStore.On("Put", mock.Anything, []byte("fake mp3 bytes"), "audio/mpeg").
			Return("mp3-1", nil).Once()

		// 發往 mp3 queue 的 job 必須補上 mp3_fid 並保留原欄位
		mockRabbit.On("Publish",
			"",              // exchange
			domain.MP3Queue, // queue
			false,           // mandatory
			false,           // immediate
			mock.MatchedBy(func(p amqp.Publishing) bool {
				if p.ContentType != "application/json" || p.DeliveryMode != amqp.Persistent {
					return false
				}
				var job domain.ConvertJob
				if err := json.Unmarshal(p.Body, &job); err != nil {
					return false
				}
				return job.VideoFID == "vid-1" &&
					job.MP3FID != nil && *job.MP3FID == "mp3-1" &&
					job.Username == "a@b.com"
			}),
		).Return(nil).Once()
		mockTracker.On("Clear", mock.Anything, body).Return(nil).Once()

		decision := c.handleDelivery(ctx, body)

		assert.Equal(t, ackMessage, decision)
		mockStore.AssertExpectations(t)
		mockRabbit.AssertExpectations(t)
		mockTracker.AssertExpectations(t)
	})

	// **情境 2: 訊息格式錯誤轉 dead-letter**
	t.Run("訊息格式錯誤轉 dead-letter", func(t *testing.T) {
		mockStore := new(MockBlobStore)
		mockRabbit := new(MockRabbitChannel)
		mockTracker := new(MockTracker)

		c := NewConsumer(mockRabbit, mockStore, mockTracker, maxAttempts, t.TempDir())
		body := []byte("not json")

		mockRabbit.On("Publish", "", domain.DeadLetterQueue(domain.VideoQueue), false, false, mock.Anything).
			Return(nil).Once()
		mockTracker.On("Clear", mock.Anything, body).Return(nil).Once()

		decision := c.handleDelivery(ctx, body)

		assert.Equal(t, ackMessage, decision)
		mockStore.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
		mockRabbit.AssertExpectations(t)
	})

	// **情境 3: video blob 不存在屬終止性失敗**
	t.Run("video blob 不存在屬終止性失敗", func(t *testing.T) {
		mockStore := new(MockBlobStore)
		mockRabbit := new(MockRabbitChannel)
		mockTracker := new(MockTracker)

		c := NewConsumer(mockRabbit, mockStore, mockTracker, maxAttempts, t.TempDir())
		body := jobBody(t)

		mockStore.On("Get", mock.Anything, "vid-1").
			Return(nil, errprocess.SetKind(errprocess.KindNotFound, "物件不存在")).Once()
		mockRabbit.On("Publish", "", domain.DeadLetterQueue(domain.VideoQueue), false, false, mock.Anything).
			Return(nil).Once()
		mockTracker.On("Clear", mock.Anything, body).Return(nil).Once()

		decision := c.handleDelivery(ctx, body)

		assert.Equal(t, ackMessage, decision)
		mockStore.AssertExpectations(t)
		mockRabbit.AssertExpectations(t)
	})

	// **情境 4: 轉檔失敗屬終止性失敗**
	t.Run("轉檔失敗屬終止性失敗", func(t *testing.T) {
		mockStore := new(MockBlobStore)
		mockRabbit := new(MockRabbitChannel)
		mockTracker := new(MockTracker)
		restore := stubExtract(t, nil, true)
		defer restore()

		c := NewConsumer(mockRabbit, mockStore, mockTracker, maxAttempts, t.TempDir())
		body := jobBody(t)

		mockStore.On("Get", mock.Anything, "vid-1").Return([]byte("corrupt video"), nil).Once()
		mockRabbit.On("Publish", "", domain.DeadLetterQueue(domain.VideoQueue), false, false, mock.Anything).
			Return(nil).Once()
		mockTracker.On("Clear", mock.Anything, body).Return(nil).Once()

		decision := c.handleDelivery(ctx, body)

		assert.Equal(t, ackMessage, decision)
		// 重跑也不會成功，不該寫入任何 mp3 blob
		mockStore.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything)
	})

	// **情境 5: mp3 寫入失敗屬暫時性失敗**
	t.Run("mp3 寫入失敗屬暫時性失敗", func(t *testing.T) {
		mockStore := new(MockBlobStore)
		mockRabbit := new(MockRabbitChannel)
		mockTracker := new(MockTracker)
		restore := stubExtract(t, []byte("fake mp3 bytes"), false)
		defer restore()

		c := NewConsumer(mockRabbit, mockStore, mockTracker, maxAttempts, t.TempDir())
		body := jobBody(t)

		mockStore.On("Get", mock.Anything, "vid-1").Return([]byte("video bytes"), nil).Once()
		mockStore.On("Put", mock.Anything, mock.Anything, "audio/mpeg").
			Return("", errprocess.SetKind(errprocess.KindStorage, "minio 寫入失敗")).Once()
		mockTracker.On("Attempts", mock.Anything, body).Return(1, nil).Once()

		decision := c.handleDelivery(ctx, body)

		assert.Equal(t, requeueMessage, decision)
		mockRabbit.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	// **情境 6: 發布通知失敗補償刪除 mp3**
	t.Run("發布通知失敗補償刪除 mp3", func(t *testing.T) {
		mockStore := new(MockBlobStore)
		mockRabbit := new(MockRabbitChannel)
		mockTracker := new(MockTracker)
		restore := stubExtract(t, []byte("fake mp3 bytes"), false)
		defer restore()

		c := NewConsumer(mockRabbit, mockStore, mockTracker, maxAttempts, t.TempDir())
		body := jobBody(t)

		mockStore.On("Get", mock.Anything, "vid-1").Return([]byte("video bytes"), nil).Once()
		mockStore.On("Put", mock.Anything, mock.Anything, "audio/mpeg").Return("mp3-2", nil).Once()
		mockRabbit.On("Publish", "", domain.MP3Queue, false, false, mock.Anything).
			Return(errors.New("rabbit error")).Once()
		// 發布失敗後要補償刪除剛寫入的 mp3 blob
		mockStore.On("Delete", mock.Anything, "mp3-2").Return(nil).Once()
		mockTracker.On("Attempts", mock.Anything, body).Return(1, nil).Once()

		decision := c.handleDelivery(ctx, body)

		assert.Equal(t, requeueMessage, decision)
		mockStore.AssertExpectations(t)
	})

	// **情境 7: 重試耗盡轉 dead-letter**
	t.Run("重試耗盡轉 dead-letter", func(t *testing.T) {
		mockStore := new(MockBlobStore)
		mockRabbit := new(MockRabbitChannel)
		mockTracker := new(MockTracker)

		c := NewConsumer(mockRabbit, mockStore, mockTracker, maxAttempts, t.TempDir())
		body := jobBody(t)

		mockStore.On("Get", mock.Anything, "vid-1").
			Return(nil, errprocess.SetKind(errprocess.KindStorage, "minio 讀取失敗")).Once()
		mockTracker.On("Attempts", mock.Anything, body).Return(maxAttempts, nil).Once()
		mockRabbit.On("Publish", "", domain.DeadLetterQueue(domain.VideoQueue), false, false, mock.Anything).
			Return(nil).Once()
		mockTracker.On("Clear", mock.Anything, body).Return(nil).Once()

		decision := c.handleDelivery(ctx, body)

		assert.Equal(t, ackMessage, decision)
		mockTracker.AssertExpectations(t)
		mockRabbit.AssertExpectations(t)
	})

	// **情境 8: 計數器故障時照常重投**
	t.Run("計數器故障時照常重投", func(t *testing.T) {
		mockStore := new(MockBlobStore)
		mockRabbit := new(MockRabbitChannel)
		mockTracker := new(MockTracker)

		c := NewConsumer(mockRabbit, mockStore, mockTracker, maxAttempts, t.TempDir())
		body := jobBody(t)

		mockStore.On("Get", mock.Anything, "vid-1").
			Return(nil, errprocess.SetKind(errprocess.KindStorage, "minio 讀取失敗")).Once()
		mockTracker.On("Attempts", mock.Anything, body).Return(0, errors.New("redis error")).Once()

		decision := c.handleDelivery(ctx, body)

		assert.Equal(t, requeueMessage, decision)
		mockRabbit.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
