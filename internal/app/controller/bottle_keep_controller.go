package controller

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yorunoba/nightdesk-backend/internal/app/model"
	"github.com/yorunoba/nightdesk-backend/internal/app/service"
	apperrors "github.com/yorunoba/nightdesk-backend/internal/errors"
	"github.com/yorunoba/nightdesk-backend/internal/middleware"
	"github.com/yorunoba/nightdesk-backend/internal/spreadsheet"
)

type BottleKeepController struct {
	bottleService service.BottleKeepService
}

func NewBottleKeepController(bottleService service.BottleKeepService) *BottleKeepController {
	return &BottleKeepController{bottleService: bottleService}
}

type CreateBottleKeepRequest struct {
	MenuID           *uint  `json:"menu_id"`
	BottleName       string `json:"bottle_name" binding:"required"`
	OpenedOn         string `json:"opened_on" binding:"required"`
	ExpiresOn        string `json:"expires_on"`
	RemainingPercent *int   `json:"remaining_percent"`
	Note             string `json:"note"`
	HolderIDs        []uint `json:"holder_ids" binding:"required,min=1"`
}

type UpdateBottleKeepRequest struct {
	MenuID     *uint                   `json:"menu_id"`
	BottleName *string                 `json:"bottle_name"`
	OpenedOn   *string                 `json:"opened_on"`
	ExpiresOn  *string                 `json:"expires_on"`
	Status     *model.BottleKeepStatus `json:"status"`
	Note       *string                 `json:"note"`
}

type UpdateRemainingRequest struct {
	RemainingPercent *int `json:"remaining_percent" binding:"required"`
}

type HolderRequest struct {
	ProfileID uint `json:"profile_id" binding:"required"`
}

// bottleQuery reads ?status=&holder_id=&expiring_days=
func bottleQuery(c *gin.Context) (service.BottleKeepQuery, bool) {
	holderID, ok := optionalUintQuery(c, "holder_id")
	if !ok {
		return service.BottleKeepQuery{}, false
	}

	q := service.BottleKeepQuery{
		Status:   model.BottleKeepStatus(c.Query("status")),
		HolderID: holderID,
	}
	if raw := c.Query("expiring_days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 0 {
			apperrors.BadRequest(c, apperrors.ValidationInvalidRange, "日数は0以上で指定してください")
			return service.BottleKeepQuery{}, false
		}
		q.ExpiringWithinDays = days
	}
	return q, true
}

// List
// GET /api/v1/bottle-keeps?status=active&holder_id=&expiring_days=
func (ctrl *BottleKeepController) List(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	q, ok := bottleQuery(c)
	if !ok {
		return
	}

	bottles, err := ctrl.bottleService.List(actor, q)
	if err != nil {
		respondError(c, err, "list bottle keeps")
		return
	}
	c.JSON(http.StatusOK, gin.H{"bottle_keeps": bottles, "count": len(bottles)})
}

// Get
// GET /api/v1/bottle-keeps/:id
func (ctrl *BottleKeepController) Get(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	bottle, err := ctrl.bottleService.Get(actor, id)
	if err != nil {
		respondError(c, err, "fetch bottle keep")
		return
	}
	c.JSON(http.StatusOK, gin.H{"bottle_keep": bottle})
}

// Create
// POST /api/v1/bottle-keeps
func (ctrl *BottleKeepController) Create(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req CreateBottleKeepRequest
	if !bindJSON(c, &req) {
		return
	}

	bottle, err := ctrl.bottleService.Create(actor, service.BottleKeepInput{
		MenuID:           req.MenuID,
		BottleName:       req.BottleName,
		OpenedOn:         req.OpenedOn,
		ExpiresOn:        req.ExpiresOn,
		RemainingPercent: req.RemainingPercent,
		Note:             req.Note,
		HolderIDs:        req.HolderIDs,
	})
	if err != nil {
		respondError(c, err, "create bottle keep")
		return
	}

	log.Info("Bottle keep created", map[string]interface{}{
		"bottle_keep_id": bottle.ID,
		"holders":        len(req.HolderIDs),
	})
	c.JSON(http.StatusCreated, gin.H{"bottle_keep": bottle})
}

// Update
// PUT /api/v1/bottle-keeps/:id
func (ctrl *BottleKeepController) Update(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdateBottleKeepRequest
	if !bindJSON(c, &req) {
		return
	}

	bottle, err := ctrl.bottleService.Update(actor, id, service.BottleKeepUpdateInput{
		MenuID:     req.MenuID,
		BottleName: req.BottleName,
		OpenedOn:   req.OpenedOn,
		ExpiresOn:  req.ExpiresOn,
		Status:     req.Status,
		Note:       req.Note,
	})
	if err != nil {
		respondError(c, err, "update bottle keep")
		return
	}
	c.JSON(http.StatusOK, gin.H{"bottle_keep": bottle})
}

// UpdateRemaining records how much is left; casts may call it
// PATCH /api/v1/bottle-keeps/:id/remaining
func (ctrl *BottleKeepController) UpdateRemaining(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdateRemainingRequest
	if !bindJSON(c, &req) {
		return
	}

	bottle, err := ctrl.bottleService.UpdateRemaining(actor, id, *req.RemainingPercent)
	if err != nil {
		respondError(c, err, "update bottle keep")
		return
	}
	c.JSON(http.StatusOK, gin.H{"bottle_keep": bottle})
}

// Delete
// DELETE /api/v1/bottle-keeps/:id
func (ctrl *BottleKeepController) Delete(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.bottleService.Delete(actor, id); err != nil {
		respondError(c, err, "delete bottle keep")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ボトルキープを削除しました"})
}

// AddHolder
// POST /api/v1/bottle-keeps/:id/holders
func (ctrl *BottleKeepController) AddHolder(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req HolderRequest
	if !bindJSON(c, &req) {
		return
	}

	bottle, err := ctrl.bottleService.AddHolder(actor, id, req.ProfileID)
	if err != nil {
		respondError(c, err, "add holder")
		return
	}
	c.JSON(http.StatusOK, gin.H{"bottle_keep": bottle})
}

// RemoveHolder refuses to drop the last holder
// DELETE /api/v1/bottle-keeps/:id/holders/:profile_id
func (ctrl *BottleKeepController) RemoveHolder(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	profileID, ok := parseIDParam(c, "profile_id")
	if !ok {
		return
	}

	bottle, err := ctrl.bottleService.RemoveHolder(actor, id, profileID)
	if err != nil {
		respondError(c, err, "remove holder")
		return
	}
	c.JSON(http.StatusOK, gin.H{"bottle_keep": bottle})
}

// Export downloads the filtered list
// GET /api/v1/bottle-keeps/export?format=csv|xlsx
func (ctrl *BottleKeepController) Export(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	q, ok := bottleQuery(c)
	if !ok {
		return
	}
	format := service.ExportFormat(c.DefaultQuery("format", string(service.FormatCSV)))

	var buf bytes.Buffer
	if err := ctrl.bottleService.Export(actor, q, format, &buf); err != nil {
		respondError(c, err, "export bottle keeps")
		return
	}
	sendExport(c, "bottle_keeps", format, buf.Bytes())
}

// sendExport writes a spreadsheet download named <prefix>_<date>.<format>.
func sendExport(c *gin.Context, prefix string, format service.ExportFormat, data []byte) {
	contentType := spreadsheet.ContentTypeCSV
	if format == service.FormatXLSX {
		contentType = spreadsheet.ContentTypeXLSX
	}
	filename := fmt.Sprintf("%s_%s.%s", prefix, time.Now().Format("20060102"), format)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, contentType, data)
}
