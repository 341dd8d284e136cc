package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yorunoba/nightdesk-backend/internal/app/model"
	"github.com/yorunoba/nightdesk-backend/internal/app/service"
	"github.com/yorunoba/nightdesk-backend/internal/middleware"
)

type AIController struct {
	aiService service.AIService
}

func NewAIController(aiService service.AIService) *AIController {
	return &AIController{aiService: aiService}
}

type PriceResearchRequest struct {
	MenuName string `json:"menu_name" binding:"required"`
	Area     string `json:"area"`
}

type GenerateImageRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

// ExtractMenus reads menu drafts from a photo of a printed menu.
// The drafts are not saved; clients review them and call POST /menus/bulk.
// POST /api/v1/ai/menu-extraction (multipart field "image")
func (ctrl *AIController) ExtractMenus(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	data, ok := readUpload(c, "image")
	if !ok {
		return
	}
	mimeType := http.DetectContentType(data)

	drafts, err := ctrl.aiService.ExtractMenusFromPhoto(c.Request.Context(), actor, data, mimeType)
	if err != nil {
		respondError(c, err, "extract menus")
		return
	}

	log.Info("Menus extracted from photo", map[string]interface{}{
		"mime_type": mimeType,
		"drafts":    len(drafts),
	})
	c.JSON(http.StatusOK, gin.H{"items": drafts, "count": len(drafts)})
}

// ResearchPrice
// POST /api/v1/ai/price-research
func (ctrl *AIController) ResearchPrice(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req PriceResearchRequest
	if !bindJSON(c, &req) {
		return
	}

	research, err := ctrl.aiService.ResearchMarketPrice(c.Request.Context(), actor, req.MenuName, req.Area)
	if err != nil {
		respondError(c, err, "research price")
		return
	}
	c.JSON(http.StatusOK, gin.H{"research": research})
}

// GenerateCopy writes SNS post text
// POST /api/v1/ai/copy
func (ctrl *AIController) GenerateCopy(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req model.CopyRequest
	if !bindJSON(c, &req) {
		return
	}

	text, err := ctrl.aiService.GenerateCopy(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err, "generate copy")
		return
	}
	c.JSON(http.StatusOK, gin.H{"content": text})
}

// GenerateImage stores the picture and returns its URL
// POST /api/v1/ai/image
func (ctrl *AIController) GenerateImage(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req GenerateImageRequest
	if !bindJSON(c, &req) {
		return
	}

	image, err := ctrl.aiService.GenerateImage(c.Request.Context(), actor, req.Prompt)
	if err != nil {
		respondError(c, err, "generate image")
		return
	}

	log.Info("Image generated", map[string]interface{}{
		"key": image.Key,
	})
	c.JSON(http.StatusCreated, gin.H{"image": image})
}
