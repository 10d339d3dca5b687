package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	errprocess "video_to_mp3_service/pkg/err"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// gridfsStore mongodb gridfs 後端實作（原系統的檔案儲存）
type gridfsStore struct {
	bucket *gridfs.Bucket
}

// NewGridFSStore create a gridfs backed blob store
func NewGridFSStore(bucket *gridfs.Bucket) Store {
	return &gridfsStore{bucket: bucket}
}

// Put 寫入新檔案，fid 為 gridfs 配發的 ObjectID hex
func (s *gridfsStore) Put(_ context.Context, data []byte, contentType string) (string, error) {
	opts := options.GridFSUpload().SetMetadata(map[string]string{"contentType": contentType})
	id, err := s.bucket.UploadFromStream("", bytes.NewReader(data), opts)
	if err != nil {
		return "", errprocess.SetKind(errprocess.KindStorage,
			fmt.Sprintf("gridfs 寫入失敗 : %v", err))
	}
	return id.Hex(), nil
}

func (s *gridfsStore) Get(_ context.Context, fid string) ([]byte, error) {
	id, err := primitive.ObjectIDFromHex(fid)
	if err != nil {
		// 不合法的 hex 等同引用了不存在的檔案
		return nil, errprocess.SetKind(errprocess.KindNotFound,
			fmt.Sprintf("fid[%s] 不是合法的 gridfs id : %v", fid, err))
	}

	var buf bytes.Buffer
	if _, err := s.bucket.DownloadToStream(id, &buf); err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, errprocess.SetKind(errprocess.KindNotFound,
				fmt.Sprintf("fid[%s] gridfs 檔案不存在", fid))
		}
		return nil, errprocess.SetKind(errprocess.KindStorage,
			fmt.Sprintf("fid[%s] gridfs 讀取失敗 : %v", fid, err))
	}
	return buf.Bytes(), nil
}

func (s *gridfsStore) Delete(_ context.Context, fid string) error {
	id, err := primitive.ObjectIDFromHex(fid)
	if err != nil {
		return errprocess.SetKind(errprocess.KindStorage,
			fmt.Sprintf("fid[%s] 不是合法的 gridfs id : %v", fid, err))
	}
	if err := s.bucket.Delete(id); err != nil {
		return errprocess.SetKind(errprocess.KindStorage,
			fmt.Sprintf("fid[%s] gridfs 刪除失敗 : %v", fid, err))
	}
	return nil
}
