package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yorunoba/nightdesk-backend/internal/app/model"
	"github.com/yorunoba/nightdesk-backend/internal/app/service"
	"github.com/yorunoba/nightdesk-backend/internal/middleware"
)

type SNSController struct {
	snsService service.SNSService
}

func NewSNSController(snsService service.SNSService) *SNSController {
	return &SNSController{snsService: snsService}
}

type CreateSNSAccountRequest struct {
	Platform    model.SNSPlatform `json:"platform" binding:"required"`
	AccountName string            `json:"account_name" binding:"required"`
}

type SetConnectedRequest struct {
	Connected *bool `json:"connected" binding:"required"`
}

type CreateSNSPostRequest struct {
	SNSAccountID uint      `json:"sns_account_id" binding:"required"`
	Content      string    `json:"content" binding:"required"`
	ImageURL     string    `json:"image_url"`
	Hashtags     []string  `json:"hashtags"`
	ScheduledAt  time.Time `json:"scheduled_at" binding:"required"`
}

type UpdateSNSPostRequest struct {
	Content     *string    `json:"content"`
	ImageURL    *string    `json:"image_url"`
	Hashtags    []string   `json:"hashtags"`
	ScheduledAt *time.Time `json:"scheduled_at"`
}

type CreateSNSScheduleRequest struct {
	SNSAccountID    uint   `json:"sns_account_id" binding:"required"`
	Name            string `json:"name" binding:"required"`
	CronSpec        string `json:"cron_spec" binding:"required"`
	ContentTemplate string `json:"content_template"`
	UseAI           bool   `json:"use_ai"`
}

type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// ListAccounts
// GET /api/v1/sns/accounts
func (ctrl *SNSController) ListAccounts(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	accounts, err := ctrl.snsService.ListAccounts(actor)
	if err != nil {
		respondError(c, err, "list sns accounts")
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}

// CreateAccount
// POST /api/v1/sns/accounts
func (ctrl *SNSController) CreateAccount(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req CreateSNSAccountRequest
	if !bindJSON(c, &req) {
		return
	}

	account, err := ctrl.snsService.CreateAccount(actor, req.Platform, req.AccountName)
	if err != nil {
		respondError(c, err, "create sns account")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"account": account})
}

// SetConnected
// PATCH /api/v1/sns/accounts/:id/connection
func (ctrl *SNSController) SetConnected(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req SetConnectedRequest
	if !bindJSON(c, &req) {
		return
	}

	account, err := ctrl.snsService.SetConnected(actor, id, *req.Connected)
	if err != nil {
		respondError(c, err, "update sns account")
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": account})
}

// DeleteAccount
// DELETE /api/v1/sns/accounts/:id
func (ctrl *SNSController) DeleteAccount(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.snsService.DeleteAccount(actor, id); err != nil {
		respondError(c, err, "delete sns account")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "SNSアカウントを削除しました"})
}

// ListPosts
// GET /api/v1/sns/posts?status=scheduled
func (ctrl *SNSController) ListPosts(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	posts, err := ctrl.snsService.ListPosts(actor, model.SNSPostStatus(c.Query("status")))
	if err != nil {
		respondError(c, err, "list sns posts")
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts, "count": len(posts)})
}

// CreatePost
// POST /api/v1/sns/posts
func (ctrl *SNSController) CreatePost(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req CreateSNSPostRequest
	if !bindJSON(c, &req) {
		return
	}

	post, err := ctrl.snsService.CreatePost(actor, service.SNSPostInput{
		SNSAccountID: req.SNSAccountID,
		Content:      req.Content,
		ImageURL:     req.ImageURL,
		Hashtags:     req.Hashtags,
		ScheduledAt:  req.ScheduledAt,
	})
	if err != nil {
		respondError(c, err, "create sns post")
		return
	}

	log.Info("SNS post scheduled", map[string]interface{}{
		"post_id":      post.ID,
		"account_id":   post.SNSAccountID,
		"scheduled_at": post.ScheduledAt,
	})
	c.JSON(http.StatusCreated, gin.H{"post": post})
}

// UpdatePost
// PUT /api/v1/sns/posts/:id
func (ctrl *SNSController) UpdatePost(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdateSNSPostRequest
	if !bindJSON(c, &req) {
		return
	}

	post, err := ctrl.snsService.UpdatePost(actor, id, service.SNSPostUpdateInput{
		Content:     req.Content,
		ImageURL:    req.ImageURL,
		Hashtags:    req.Hashtags,
		ScheduledAt: req.ScheduledAt,
	})
	if err != nil {
		respondError(c, err, "update sns post")
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": post})
}

// CancelPost
// POST /api/v1/sns/posts/:id/cancel
func (ctrl *SNSController) CancelPost(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	post, err := ctrl.snsService.CancelPost(actor, id)
	if err != nil {
		respondError(c, err, "cancel sns post")
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": post})
}

// DeletePost
// DELETE /api/v1/sns/posts/:id
func (ctrl *SNSController) DeletePost(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.snsService.DeletePost(actor, id); err != nil {
		respondError(c, err, "delete sns post")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "予約投稿を削除しました"})
}

// ListSchedules
// GET /api/v1/sns/schedules
func (ctrl *SNSController) ListSchedules(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	schedules, err := ctrl.snsService.ListSchedules(actor)
	if err != nil {
		respondError(c, err, "list sns schedules")
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedules": schedules})
}

// CreateSchedule
// POST /api/v1/sns/schedules
func (ctrl *SNSController) CreateSchedule(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req CreateSNSScheduleRequest
	if !bindJSON(c, &req) {
		return
	}

	schedule, err := ctrl.snsService.CreateSchedule(actor, service.SNSScheduleInput{
		SNSAccountID:    req.SNSAccountID,
		Name:            req.Name,
		CronSpec:        req.CronSpec,
		ContentTemplate: req.ContentTemplate,
		UseAI:           req.UseAI,
	})
	if err != nil {
		respondError(c, err, "create sns schedule")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"schedule": schedule})
}

// SetScheduleActive
// PATCH /api/v1/sns/schedules/:id/active
func (ctrl *SNSController) SetScheduleActive(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req SetActiveRequest
	if !bindJSON(c, &req) {
		return
	}

	schedule, err := ctrl.snsService.SetScheduleActive(actor, id, *req.Active)
	if err != nil {
		respondError(c, err, "update sns schedule")
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedule": schedule})
}

// DeleteSchedule
// DELETE /api/v1/sns/schedules/:id
func (ctrl *SNSController) DeleteSchedule(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.snsService.DeleteSchedule(actor, id); err != nil {
		respondError(c, err, "delete sns schedule")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "定期投稿を削除しました"})
}
