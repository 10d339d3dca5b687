package domain

import "io"

// UploadVideoReq usecase upload video request
type UploadVideoReq struct {
	FileName string
	File     io.Reader
	// Username 上傳者 email（由存取權杖取得，上游已驗證非空）
	Username string
}

// UploadVideoRes usecase upload video response
type UploadVideoRes struct {
	Message  string
	VideoFID string
}
