package controller

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yorunoba/nightdesk-backend/internal/app/repository"
	"github.com/yorunoba/nightdesk-backend/internal/app/service"
	"github.com/yorunoba/nightdesk-backend/internal/middleware"
)

type AttendanceController struct {
	attendanceService service.AttendanceService
}

func NewAttendanceController(attendanceService service.AttendanceService) *AttendanceController {
	return &AttendanceController{attendanceService: attendanceService}
}

// ClockRequest targets another profile when ProfileID is set (managers only).
type ClockRequest struct {
	ProfileID *uint  `json:"profile_id"`
	Note      string `json:"note"`
}

type UpdateAttendanceRequest struct {
	ClockInAt  *time.Time `json:"clock_in_at"`
	ClockOutAt *time.Time `json:"clock_out_at"`
	Note       *string    `json:"note"`
}

func attendanceFilter(c *gin.Context) (repository.AttendanceFilter, bool) {
	profileID, ok := optionalUintQuery(c, "profile_id")
	if !ok {
		return repository.AttendanceFilter{}, false
	}
	return repository.AttendanceFilter{
		From:      c.Query("from"),
		To:        c.Query("to"),
		ProfileID: profileID,
	}, true
}

// ClockIn
// POST /api/v1/attendance/clock-in
func (ctrl *AttendanceController) ClockIn(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req ClockRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	record, err := ctrl.attendanceService.ClockIn(actor, req.ProfileID, req.Note)
	if err != nil {
		respondError(c, err, "clock in")
		return
	}

	log.Info("Clocked in", map[string]interface{}{
		"attendance_id": record.ID,
		"profile_id":    record.ProfileID,
		"business_date": record.BusinessDate,
	})
	c.JSON(http.StatusCreated, gin.H{"attendance": record})
}

// ClockOut
// POST /api/v1/attendance/clock-out
func (ctrl *AttendanceController) ClockOut(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req ClockRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	record, err := ctrl.attendanceService.ClockOut(actor, req.ProfileID)
	if err != nil {
		respondError(c, err, "clock out")
		return
	}

	log.Info("Clocked out", map[string]interface{}{
		"attendance_id": record.ID,
		"profile_id":    record.ProfileID,
		"worked":        record.WorkedMinutes(),
	})
	c.JSON(http.StatusOK, gin.H{"attendance": record})
}

// List
// GET /api/v1/attendance?from=&to=&profile_id=
func (ctrl *AttendanceController) List(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	filter, ok := attendanceFilter(c)
	if !ok {
		return
	}

	records, err := ctrl.attendanceService.List(actor, filter)
	if err != nil {
		respondError(c, err, "list attendance")
		return
	}
	c.JSON(http.StatusOK, gin.H{"attendance": records, "count": len(records)})
}

// Update corrects clock times (manager)
// PUT /api/v1/attendance/:id
func (ctrl *AttendanceController) Update(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdateAttendanceRequest
	if !bindJSON(c, &req) {
		return
	}

	record, err := ctrl.attendanceService.Update(actor, id, service.AttendanceUpdateInput{
		ClockInAt:  req.ClockInAt,
		ClockOutAt: req.ClockOutAt,
		Note:       req.Note,
	})
	if err != nil {
		respondError(c, err, "update attendance")
		return
	}
	c.JSON(http.StatusOK, gin.H{"attendance": record})
}

// Export downloads the filtered records as xlsx
// GET /api/v1/attendance/export?from=&to=&profile_id=
func (ctrl *AttendanceController) Export(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	filter, ok := attendanceFilter(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := ctrl.attendanceService.ExportXLSX(actor, filter, &buf); err != nil {
		respondError(c, err, "export attendance")
		return
	}
	sendExport(c, "attendance", service.FormatXLSX, buf.Bytes())
}
