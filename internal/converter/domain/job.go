package domain

import (
	"encoding/json"
	"fmt"

	errprocess "video_to_mp3_service/pkg/err"
)

const (
	// VideoQueue 待轉檔影片 queue name
	VideoQueue = "video"
	// MP3Queue 轉檔完成待通知 queue name
	MP3Queue = "mp3"

	// DeadLetterSuffix poison / 重試耗盡訊息的旁路 queue 後綴
	DeadLetterSuffix = "_dlq"
)

// DeadLetterQueue 取得對應的 dead-letter queue name
func DeadLetterQueue(queue string) string {
	return queue + DeadLetterSuffix
}

// JobState 定義單則訊息的處理階段（僅用於 log 追蹤）
type JobState string

const (
	// StateReceived job received from queue
	StateReceived JobState = "received"
	// StateExtracting job audio extracting
	StateExtracting JobState = "extracting"
	// StateStored job mp3 stored
	StateStored JobState = "stored"
	// StatePublished job published to next queue
	StatePublished JobState = "published"
)

// ConvertJob 定義佇列上的轉檔工作訊息
// gateway 建立時 MP3FID 為 null，converter 補上後發往 mp3 queue
type ConvertJob struct {
	VideoFID string  `json:"video_fid"`
	MP3FID   *string `json:"mp3_fid"`
	Username string  `json:"username"`
}

// Encode job JSON 序列化
func (j *ConvertJob) Encode() ([]byte, error) {
	data, err := json.Marshal(j)
	if err != nil {
		return nil, errprocess.SetKind(errprocess.KindDecode,
			fmt.Sprintf("job 序列化失敗 : %v", err))
	}
	return data, nil
}

// DecodeJob 在 queue 邊界把訊息還原成強型別 job，必填欄位缺漏一律視為 schema 錯誤
func DecodeJob(body []byte) (*ConvertJob, error) {
	var job ConvertJob
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, errprocess.SetKind(errprocess.KindDecode,
			fmt.Sprintf("job 訊息解析失敗 : %v", err))
	}

	if job.VideoFID == "" {
		return nil, errprocess.SetKind(errprocess.KindDecode, "job 缺少 video_fid")
	}
	if job.Username == "" {
		return nil, errprocess.SetKind(errprocess.KindDecode, "job 缺少 username")
	}

	return &job, nil
}

// RequireMP3 通知階段必須帶有 mp3_fid
func (j *ConvertJob) RequireMP3() error {
	if j.MP3FID == nil || *j.MP3FID == "" {
		return errprocess.SetKind(errprocess.KindDecode, "job 缺少 mp3_fid")
	}
	return nil
}
