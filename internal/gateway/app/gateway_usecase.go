package app

import (
	"context"
	"fmt"
	"io"

	converter "video_to_mp3_service/internal/converter/domain"
	"video_to_mp3_service/internal/gateway/domain"
	"video_to_mp3_service/pkg/blobstore"
	"video_to_mp3_service/pkg/database"
	errprocess "video_to_mp3_service/pkg/err"
	"video_to_mp3_service/pkg/logger"

	"github.com/streadway/amqp"
)

// GatewayUseCase 這裡封裝了對外提供的應用服務
type GatewayUseCase interface {
	UploadVideo(ctx context.Context, up domain.UploadVideoReq) (*domain.UploadVideoRes, error)
}

type gatewayUseCase struct {
	BlobStore     blobstore.Store
	RabbitChannel database.RabbitRepo // 用於發布轉檔工作訊息的 RabbitMQ Channel
}

// NewGatewayUseCase 建立一個新的 GatewayUseCase
func NewGatewayUseCase(store blobstore.Store, rabbitChannel database.RabbitRepo) GatewayUseCase {
	return &gatewayUseCase{
		BlobStore:     store,
		RabbitChannel: rabbitChannel,
	}
}

// 讓 test mock 使用包裝函數
var readFile = func(r io.Reader) ([]byte, error) {
	return io.ReadAll(r)
}

// UploadVideo 上傳影片並發布轉檔工作
// 順序固定：blob 先落地，job 才進 queue（queue 上的 video_fid 一定查得到）
// 發布失敗時補償刪除剛寫入的 blob，不留下沒有 job 引用的孤兒檔
func (s *gatewayUseCase) UploadVideo(ctx context.Context, up domain.UploadVideoReq) (*domain.UploadVideoRes, error) {
	// 1. 讀取上傳內容
	data, err := readFile(up.File)
	if err != nil {
		return nil, errprocess.SetKind(errprocess.KindStorage,
			fmt.Sprintf("fileName[%s] 讀取上傳內容失敗 : %v", up.FileName, err))
	}

	// 2. 影片寫入 blob store
	fid, err := s.BlobStore.Put(ctx, data, "video/mp4")
	if err != nil {
		return nil, err
	}

	// 3. 建立轉檔 job，mp3_fid 由 converter 補上
	job := converter.ConvertJob{
		VideoFID: fid,
		MP3FID:   nil,
		Username: up.Username,
	}
	body, err := job.Encode()
	if err != nil {
		s.compensateDelete(ctx, fid)
		return nil, err
	}

	// 4. 發布 persistent 訊息到 video queue
	err = s.RabbitChannel.Publish(
		"",                  // 預設 exchange
		converter.VideoQueue, // queue 名稱
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		// 補償刪除，失敗只記 log，不蓋掉原始的 queue 錯誤
		s.compensateDelete(ctx, fid)
		return nil, errprocess.SetKind(errprocess.KindQueue,
			fmt.Sprintf("fid[%s] 發送 RabbitMQ 訊息失敗 : %v", fid, err))
	}

	return &domain.UploadVideoRes{
		Message:  "上傳成功，等待轉檔",
		VideoFID: fid,
	}, nil
}

func (s *gatewayUseCase) compensateDelete(ctx context.Context, fid string) {
	if err := s.BlobStore.Delete(ctx, fid); err != nil {
		logger.Log.Errorf(fmt.Sprintf("fid[%s] 補償刪除 blob 失敗，留下孤兒檔案 :", fid), err)
	}
}
