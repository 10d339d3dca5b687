package blobstore

import (
	"context"
	"fmt"

	"video_to_mp3_service/pkg/config"
	"video_to_mp3_service/pkg/database"

	"time"
)

// Store 定義 blob 儲存介面
// fid 由 Put 回傳，為不透明識別字串，刪除後不會重複使用
type Store interface {
	Put(ctx context.Context, data []byte, contentType string) (string, error)
	Get(ctx context.Context, fid string) ([]byte, error)
	Delete(ctx context.Context, fid string) error
}

// backend 名稱（config storage.backend）
const (
	// BackendMinIO minio object storage
	BackendMinIO = "minio"
	// BackendGridFS mongodb gridfs
	BackendGridFS = "gridfs"
)

// NewStore 依設定建立 blob store（minio 或 gridfs 後端）
func NewStore(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case BackendMinIO:
		mc, err := database.NewMinIOConnection(database.MinIOConnection{
			Endpoint:   fmt.Sprintf("%s:%d", cfg.MinIO.Host, cfg.MinIO.Port),
			User:       cfg.MinIO.User,
			Password:   cfg.MinIO.Password,
			BucketName: cfg.MinIO.BucketName,
			UseSSL:     cfg.MinIO.UseSSL,

			RetryCount:    cfg.MinIO.RetryCount,
			RetryInterval: time.Duration(cfg.MinIO.RetryInterval),
		})
		if err != nil {
			return nil, err
		}
		return NewMinIOStore(mc), nil

	case BackendGridFS:
		db, err := database.NewMongoDB(ctx, database.Connection{
			ConnectStr:    cfg.GridFS.URI,
			RetryCount:    cfg.GridFS.RetryCount,
			RetryInterval: time.Duration(cfg.GridFS.RetryInterval) * time.Second,
		}, cfg.GridFS.Database)
		if err != nil {
			return nil, err
		}
		bucket, err := db.GridFSBucket(cfg.GridFS.Bucket)
		if err != nil {
			return nil, err
		}
		return NewGridFSStore(bucket), nil

	default:
		return nil, fmt.Errorf("未知的 storage backend: %q", cfg.Backend)
	}
}
