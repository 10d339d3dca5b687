package blobstore

import (
	"context"
	"fmt"

	"video_to_mp3_service/pkg/database"
	errprocess "video_to_mp3_service/pkg/err"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

// minioStore minio 後端實作
type minioStore struct {
	client *database.MinIOClient
}

// NewMinIOStore create a minio backed blob store
func NewMinIOStore(client *database.MinIOClient) Store {
	return &minioStore{client: client}
}

// Put 寫入新物件，object key 一律配發新的 uuid（永不重用舊 id）
func (s *minioStore) Put(ctx context.Context, data []byte, contentType string) (string, error) {
	fid := uuid.NewString()
	if err := s.client.PutBytes(ctx, fid, data, contentType); err != nil {
		return "", errprocess.SetKind(errprocess.KindStorage,
			fmt.Sprintf("fid[%s] minio 寫入失敗 : %v", fid, err))
	}
	return fid, nil
}

func (s *minioStore) Get(ctx context.Context, fid string) ([]byte, error) {
	data, err := s.client.GetBytes(ctx, fid)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, errprocess.SetKind(errprocess.KindNotFound,
				fmt.Sprintf("fid[%s] minio 物件不存在", fid))
		}
		return nil, errprocess.SetKind(errprocess.KindStorage,
			fmt.Sprintf("fid[%s] minio 讀取失敗 : %v", fid, err))
	}
	return data, nil
}

func (s *minioStore) Delete(ctx context.Context, fid string) error {
	if err := s.client.RemoveObject(ctx, fid); err != nil {
		return errprocess.SetKind(errprocess.KindStorage,
			fmt.Sprintf("fid[%s] minio 刪除失敗 : %v", fid, err))
	}
	return nil
}
