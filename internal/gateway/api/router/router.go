package router

import (
	"video_to_mp3_service/internal/gateway/api/handlers"
	"video_to_mp3_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes 注册上傳相關的路由
func RegisterRoutes(app *fiber.App, uploadHandler *handlers.UploadHandler) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	videoRoutes := app.Group("/video")
	videoRoutes.Use(middlewares.JWTMiddleware())
	videoRoutes.Post("/upload", uploadHandler.UploadVideo)
}
