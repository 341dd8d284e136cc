package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yorunoba/nightdesk-backend/internal/app/repository"
	"github.com/yorunoba/nightdesk-backend/internal/app/service"
)

type CommentController struct {
	commentService service.CommentService
}

func NewCommentController(commentService service.CommentService) *CommentController {
	return &CommentController{commentService: commentService}
}

type CreateCommentRequest struct {
	ProfileID      *uint  `json:"profile_id"`
	BottleKeepID   *uint  `json:"bottle_keep_id"`
	ShiftRequestID *uint  `json:"shift_request_id"`
	Body           string `json:"body" binding:"required"`
}

type UpdateCommentRequest struct {
	Body string `json:"body" binding:"required"`
}

// List returns comments on one target
// GET /api/v1/comments?profile_id= | bottle_keep_id= | shift_request_id=
func (ctrl *CommentController) List(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var target repository.CommentTarget
	if target.ProfileID, ok = optionalUintQuery(c, "profile_id"); !ok {
		return
	}
	if target.BottleKeepID, ok = optionalUintQuery(c, "bottle_keep_id"); !ok {
		return
	}
	if target.ShiftRequestID, ok = optionalUintQuery(c, "shift_request_id"); !ok {
		return
	}

	comments, err := ctrl.commentService.List(actor, target)
	if err != nil {
		respondError(c, err, "list comments")
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments, "count": len(comments)})
}

// Create
// POST /api/v1/comments
func (ctrl *CommentController) Create(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req CreateCommentRequest
	if !bindJSON(c, &req) {
		return
	}

	comment, err := ctrl.commentService.Create(actor, repository.CommentTarget{
		ProfileID:      req.ProfileID,
		BottleKeepID:   req.BottleKeepID,
		ShiftRequestID: req.ShiftRequestID,
	}, req.Body)
	if err != nil {
		respondError(c, err, "create comment")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"comment": comment})
}

// Update edits the caller's own comment
// PUT /api/v1/comments/:id
func (ctrl *CommentController) Update(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdateCommentRequest
	if !bindJSON(c, &req) {
		return
	}

	comment, err := ctrl.commentService.Update(actor, id, req.Body)
	if err != nil {
		respondError(c, err, "update comment")
		return
	}
	c.JSON(http.StatusOK, gin.H{"comment": comment})
}

// Delete
// DELETE /api/v1/comments/:id
func (ctrl *CommentController) Delete(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.commentService.Delete(actor, id); err != nil {
		respondError(c, err, "delete comment")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "コメントを削除しました"})
}
