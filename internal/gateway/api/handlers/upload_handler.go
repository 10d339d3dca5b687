package handlers

import (
	"net/http"

	"video_to_mp3_service/internal/gateway/app"
	"video_to_mp3_service/internal/gateway/domain"
	errprocess "video_to_mp3_service/pkg/err"
	"video_to_mp3_service/pkg/logger"
	"video_to_mp3_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
)

// UploadHandler gateway upload handler
type UploadHandler struct {
	Usecase app.GatewayUseCase
}

// NewUploadHandler create upload handler
func NewUploadHandler(usecase app.GatewayUseCase) *UploadHandler {
	return &UploadHandler{Usecase: usecase}
}

// UploadVideo 接收 multipart 影片上傳並送入轉檔管線
// 儲存或 queue 失敗回覆 500 純文字診斷訊息
func (h *UploadHandler) UploadVideo(c *fiber.Ctx) error {
	// 1. 取得上傳的檔案
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(http.StatusBadRequest).SendString("missing file")
	}

	file, err := fileHeader.Open()
	if err != nil {
		logger.Log.Errorf("Open file failed", err)
		return c.Status(http.StatusInternalServerError).SendString("failed to open file")
	}
	defer file.Close()

	// 2. username 由 JWT middleware 放進 locals
	username, _ := c.Locals(middlewares.TokenUsername).(string)
	if username == "" {
		return c.Status(http.StatusUnauthorized).SendString("missing username")
	}

	// 3. 執行上傳流程
	res, err := h.Usecase.UploadVideo(c.UserContext(), domain.UploadVideoReq{
		FileName: fileHeader.Filename,
		File:     file,
		Username: username,
	})
	if err != nil {
		switch errprocess.KindOf(err) {
		case errprocess.KindStorage:
			return c.Status(http.StatusInternalServerError).SendString("internal server error (storage)")
		case errprocess.KindQueue:
			return c.Status(http.StatusInternalServerError).SendString("internal server error (queue)")
		default:
			return c.Status(http.StatusInternalServerError).SendString("internal server error")
		}
	}

	return c.JSON(res)
}
