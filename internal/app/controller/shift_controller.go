package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yorunoba/nightdesk-backend/internal/app/model"
	"github.com/yorunoba/nightdesk-backend/internal/app/repository"
	"github.com/yorunoba/nightdesk-backend/internal/app/service"
	apperrors "github.com/yorunoba/nightdesk-backend/internal/errors"
	"github.com/yorunoba/nightdesk-backend/internal/middleware"
)

type ShiftController struct {
	shiftService service.ShiftService
}

func NewShiftController(shiftService service.ShiftService) *ShiftController {
	return &ShiftController{shiftService: shiftService}
}

type ShiftRequestDateRequest struct {
	Date             string `json:"date" binding:"required"`
	DefaultStartTime string `json:"default_start_time"`
	DefaultEndTime   string `json:"default_end_time"`
}

type ShiftRequestRequest struct {
	Title    string                    `json:"title" binding:"required"`
	Note     string                    `json:"note"`
	Deadline time.Time                 `json:"deadline" binding:"required"`
	Dates    []ShiftRequestDateRequest `json:"dates" binding:"required,min=1,dive"`
}

func (r ShiftRequestRequest) input() service.ShiftRequestInput {
	dates := make([]service.ShiftRequestDateInput, 0, len(r.Dates))
	for _, d := range r.Dates {
		dates = append(dates, service.ShiftRequestDateInput{
			Date:             d.Date,
			DefaultStartTime: d.DefaultStartTime,
			DefaultEndTime:   d.DefaultEndTime,
		})
	}
	return service.ShiftRequestInput{
		Title:    r.Title,
		Note:     r.Note,
		Deadline: r.Deadline,
		Dates:    dates,
	}
}

type SubmissionEntryRequest struct {
	Date        string `json:"date" binding:"required"`
	IsAvailable bool   `json:"is_available"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Note        string `json:"note"`
}

type SubmitShiftRequest struct {
	Entries []SubmissionEntryRequest `json:"entries" binding:"required,min=1,dive"`
}

type ApproveSubmissionRequest struct {
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
}

type RejectSubmissionRequest struct {
	Reason string `json:"reason"`
}

type BulkApproveRequest struct {
	Date string `json:"date" binding:"required"`
}

// ListRequests
// GET /api/v1/shift-requests
func (ctrl *ShiftController) ListRequests(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	requests, err := ctrl.shiftService.ListRequests(actor)
	if err != nil {
		respondError(c, err, "list shift requests")
		return
	}
	c.JSON(http.StatusOK, gin.H{"shift_requests": requests, "count": len(requests)})
}

// GetRequest includes per-date submission counts
// GET /api/v1/shift-requests/:id
func (ctrl *ShiftController) GetRequest(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	detail, err := ctrl.shiftService.GetRequest(actor, id)
	if err != nil {
		respondError(c, err, "fetch shift request")
		return
	}
	c.JSON(http.StatusOK, gin.H{"shift_request": detail})
}

// CreateRequest
// POST /api/v1/shift-requests
func (ctrl *ShiftController) CreateRequest(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req ShiftRequestRequest
	if !bindJSON(c, &req) {
		return
	}

	view, err := ctrl.shiftService.CreateRequest(actor, req.input())
	if err != nil {
		respondError(c, err, "create shift request")
		return
	}

	log.Info("Shift request created", map[string]interface{}{
		"shift_request_id": view.ID,
		"dates":            len(req.Dates),
		"deadline":         req.Deadline,
	})
	c.JSON(http.StatusCreated, gin.H{"shift_request": view})
}

// UpdateRequest
// PUT /api/v1/shift-requests/:id
func (ctrl *ShiftController) UpdateRequest(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req ShiftRequestRequest
	if !bindJSON(c, &req) {
		return
	}

	view, err := ctrl.shiftService.UpdateRequest(actor, id, req.input())
	if err != nil {
		respondError(c, err, "update shift request")
		return
	}
	c.JSON(http.StatusOK, gin.H{"shift_request": view})
}

// DeleteRequest
// DELETE /api/v1/shift-requests/:id
func (ctrl *ShiftController) DeleteRequest(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.shiftService.DeleteRequest(actor, id); err != nil {
		respondError(c, err, "delete shift request")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "シフト募集を削除しました"})
}

// ListSubmissions
// GET /api/v1/shift-requests/:id/submissions?date=&status=&profile_id=
func (ctrl *ShiftController) ListSubmissions(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	profileID, ok := optionalUintQuery(c, "profile_id")
	if !ok {
		return
	}

	submissions, err := ctrl.shiftService.ListSubmissions(actor, id, repository.SubmissionFilter{
		Date:      c.Query("date"),
		Status:    model.SubmissionStatus(c.Query("status")),
		ProfileID: profileID,
	})
	if err != nil {
		respondError(c, err, "list shift submissions")
		return
	}
	c.JSON(http.StatusOK, gin.H{"submissions": submissions, "count": len(submissions)})
}

// GetMySubmission lists every requested date with the caller's answer
// GET /api/v1/shift-requests/:id/my-submission
func (ctrl *ShiftController) GetMySubmission(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	rows, err := ctrl.shiftService.GetMySubmission(actor, id)
	if err != nil {
		respondError(c, err, "fetch shift submission")
		return
	}
	c.JSON(http.StatusOK, gin.H{"dates": rows})
}

// Submit replaces the caller's pending answers
// PUT /api/v1/shift-requests/:id/my-submission
func (ctrl *ShiftController) Submit(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req SubmitShiftRequest
	if !bindJSON(c, &req) {
		return
	}

	entries := make([]service.SubmissionEntry, 0, len(req.Entries))
	for _, e := range req.Entries {
		entries = append(entries, service.SubmissionEntry{
			Date:        e.Date,
			IsAvailable: e.IsAvailable,
			StartTime:   e.StartTime,
			EndTime:     e.EndTime,
			Note:        e.Note,
		})
	}

	rows, err := ctrl.shiftService.Submit(actor, id, entries)
	if err != nil {
		respondError(c, err, "submit shift")
		return
	}

	log.Info("Shift submitted", map[string]interface{}{
		"shift_request_id": id,
		"profile_id":       actor.ProfileID,
		"entries":          len(entries),
	})
	c.JSON(http.StatusOK, gin.H{"dates": rows})
}

// Approve optionally adjusts the hours before confirming
// POST /api/v1/shift-submissions/:id/approve
func (ctrl *ShiftController) Approve(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req ApproveSubmissionRequest
	// empty body approves the submitted hours
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	submission, err := ctrl.shiftService.Approve(actor, id, req.StartTime, req.EndTime)
	if err != nil {
		respondError(c, err, "approve shift")
		return
	}
	c.JSON(http.StatusOK, gin.H{"submission": submission})
}

// Reject
// POST /api/v1/shift-submissions/:id/reject
func (ctrl *ShiftController) Reject(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req RejectSubmissionRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	submission, err := ctrl.shiftService.Reject(actor, id, req.Reason)
	if err != nil {
		respondError(c, err, "reject shift")
		return
	}
	c.JSON(http.StatusOK, gin.H{"submission": submission})
}

// BulkApprove approves every pending available submission for one date
// POST /api/v1/shift-requests/:id/bulk-approve
func (ctrl *ShiftController) BulkApprove(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req BulkApproveRequest
	if !bindJSON(c, &req) {
		return
	}

	approved, err := ctrl.shiftService.BulkApprove(actor, id, req.Date)
	if err != nil {
		respondError(c, err, "approve shifts")
		return
	}
	c.JSON(http.StatusOK, gin.H{"submissions": approved, "count": len(approved)})
}

// ListSchedule returns approved shifts between two business dates
// GET /api/v1/shifts/schedule?from=2026-11-01&to=2026-11-07
func (ctrl *ShiftController) ListSchedule(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	from, to := c.Query("from"), c.Query("to")
	if from == "" || to == "" {
		apperrors.BadRequest(c, apperrors.ValidationRequired, "期間を指定してください")
		return
	}

	shifts, err := ctrl.shiftService.ListSchedule(actor, from, to)
	if err != nil {
		respondError(c, err, "list schedule")
		return
	}
	c.JSON(http.StatusOK, gin.H{"shifts": shifts, "count": len(shifts)})
}
