package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yorunoba/nightdesk-backend/internal/app/service"
	"github.com/yorunoba/nightdesk-backend/internal/middleware"
)

type UploadController struct {
	uploadService service.UploadService
}

func NewUploadController(uploadService service.UploadService) *UploadController {
	return &UploadController{uploadService: uploadService}
}

type GeneratePresignedURLRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
	// Folder is one of menus, profiles, stores, sns or bottles.
	Folder string `json:"folder" binding:"required"`
}

// GeneratePresignedURL returns a short-lived URL the client PUTs the image to
// POST /api/v1/upload/presigned-url
func (ctrl *UploadController) GeneratePresignedURL(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req GeneratePresignedURLRequest
	if !bindJSON(c, &req) {
		return
	}

	response, err := ctrl.uploadService.PresignImageUpload(c.Request.Context(), actor, req.Filename, req.ContentType, req.Folder)
	if err != nil {
		respondError(c, err, "generate presigned url")
		return
	}

	log.Info("Presigned URL generated", map[string]interface{}{
		"key":          response.Key,
		"content_type": req.ContentType,
	})
	c.JSON(http.StatusOK, response)
}
