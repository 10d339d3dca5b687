package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"

	converter "video_to_mp3_service/internal/converter/domain"
	"video_to_mp3_service/internal/gateway/domain"
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

func newReq() domain.UploadVideoReq {
	return domain.UploadVideoReq{
		FileName: "test.mp4",
		File:     bytes.NewReader([]byte("dummy video content")),
		Username: "a@b.com",
	}
}

// 測試 UploadVideo
func TestUploadVideo(t *testing.T) {
	logger.SetNewNop()
	ctx := context.Background()

	// **情境 1: 成功上傳影片**
	t.Run("成功上傳影片", func(t *testing.T) {
		mockStore := new(MockBlobStore)
		mockRabbit := new(MockRabbitChannel)
		usecase := NewGatewayUseCase(mockStore, mockRabbit)

		mockStore.On("Put", mock.Anything, []byte("dummy video content"), "video/mp4").
			Return("fid-1", nil).Once()

		// 發布的訊息必須是 video_fid 已填、mp3_fid 為 null 的 persistent job
		mockRabbit.On("Publish",
			"",                   // exchange
			converter.VideoQueue, // queue
			false,                // mandatory
			false,                // immediate
			mock.MatchedBy(func(p amqp.Publishing) bool {
				if p.ContentType != "application/json" || p.DeliveryMode != amqp.Persistent {
					return false
				}
				var job converter.ConvertJob
				if err := json.Unmarshal(p.Body, &job); err != nil {
					return false
				}
				return job.VideoFID == "fid-1" && job.MP3FID == nil && job.Username == "a@b.com"
			}),
		).Return(nil).Once()

		resp, err := usecase.UploadVideo(ctx, newReq())

		assert.NoError(t, err)
		assert.NotNil(t, resp)
		assert.Equal(t, "上傳成功，等待轉檔", resp.Message)
		assert.Equal(t, "fid-1", resp.VideoFID)

		mockStore.AssertExpectations(t)
		mockRabbit.AssertExpectations(t)
	})

	// **情境 2: 讀取上傳內容失敗**
	t.Run("讀取上傳內容失敗", func(t *testing.T) {
		mockStore := new(MockBlobStore)
		mockRabbit := new(MockRabbitChannel)
		usecase := NewGatewayUseCase(mockStore, mockRabbit)

		originalReadFile := readFile
		defer func() { readFile = originalReadFile }()

		readFile = func(r io.Reader) ([]byte, error) {
			return nil, errors.New("read error")
		}

		resp, err := usecase.UploadVideo(ctx, newReq())
		assert.Error(t, err)
		assert.Nil(t, resp)
		// 沒有 blob 落地就不該發布任何訊息
		mockRabbit.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	// **情境 3: blob 寫入失敗**
	t.Run("blob 寫入失敗", func(t *testing.T) {
		mockStore := new(MockBlobStore)
		mockRabbit := new(MockRabbitChannel)
		usecase := NewGatewayUseCase(mockStore, mockRabbit)

		mockStore.On("Put", mock.Anything, mock.Anything, "video/mp4").
			Return("", errprocess.SetKind(errprocess.KindStorage, "minio 寫入失敗")).Once()

		resp, err := usecase.UploadVideo(ctx, newReq())
		assert.Error(t, err)
		assert.Nil(t, resp)
		assert.Equal(t, errprocess.KindStorage, errprocess.KindOf(err))

		mockRabbit.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		mockStore.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	// **情境 4: 發布失敗觸發補償刪除**
	t.Run("發布失敗觸發補償刪除", func(t *testing.T) {
		mockStore := new(MockBlobStore)
		mockRabbit := new(MockRabbitChannel)
		usecase := NewGatewayUseCase(mockStore, mockRabbit)

		mockStore.On("Put", mock.Anything, mock.Anything, "video/mp4").
			Return("fid-2", nil).Once()
		mockRabbit.On("Publish", "", converter.VideoQueue, false, false, mock.Anything).
			Return(errors.New("rabbit error")).Once()
		// 發布失敗後，剛寫入的 blob 必須在回傳錯誤前刪掉
		mockStore.On("Delete", mock.Anything, "fid-2").Return(nil).Once()

		resp, err := usecase.UploadVideo(ctx, newReq())
		assert.Error(t, err)
		assert.Nil(t, resp)
		assert.Equal(t, errprocess.KindQueue, errprocess.KindOf(err))
		assert.Equal(t, fmt.Sprintf("fid[%s] 發送 RabbitMQ 訊息失敗 : rabbit error", "fid-2"), err.Error())

		mockStore.AssertExpectations(t)
		mockRabbit.AssertExpectations(t)
	})

	// **情境 5: 補償刪除失敗不蓋掉原錯誤**
	t.Run("補償刪除失敗不蓋掉原錯誤", func(t *testing.T) {
		mockStore := new(MockBlobStore)
		mockRabbit := new(MockRabbitChannel)
		usecase := NewGatewayUseCase(mockStore, mockRabbit)

		mockStore.On("Put", mock.Anything, mock.Anything, "video/mp4").
			Return("fid-3", nil).Once()
		mockRabbit.On("Publish", "", converter.VideoQueue, false, false, mock.Anything).
			Return(errors.New("rabbit error")).Once()
		mockStore.On("Delete", mock.Anything, "fid-3").
			Return(errprocess.SetKind(errprocess.KindStorage, "delete error")).Once()

		resp, err := usecase.UploadVideo(ctx, newReq())
		assert.Error(t, err)
		assert.Nil(t, resp)
		// 呼叫端收到的仍是 queue 錯誤
		assert.Equal(t, errprocess.KindQueue, errprocess.KindOf(err))

		mockStore.AssertExpectations(t)
	})
}
