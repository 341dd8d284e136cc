package service

import (
	"errors"
	"io"
	"strconv"
	"time"

	"github.com/yorunoba/nightdesk-backend/internal/app/model"
	"github.com/yorunoba/nightdesk-backend/internal/app/repository"
	"github.com/yorunoba/nightdesk-backend/internal/spreadsheet"
	"github.com/yorunoba/nightdesk-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrAttendanceNotFound = errors.New("attendance not found")
	ErrAlreadyClockedIn   = errors.New("already clocked in")
	ErrNotClockedIn       = errors.New("not clocked in")
	ErrInvalidWorkTime    = errors.New("clock-out must be after clock-in")
)

// businessDayStartHour is when a new business date begins in display time.
const businessDayStartHour = 6

// BusinessDate returns the night a moment belongs to. Anything before 06:00
// counts for the previous calendar date.
func BusinessDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Add(-businessDayStartHour * time.Hour).Format(model.DateLayout)
}

type AttendanceUpdateInput struct {
	ClockInAt  *time.Time
	ClockOutAt *time.Time
	Note       *string
}

type AttendanceService interface {
	// ClockIn records the actor, or profileID when a manager clocks someone else in.
	ClockIn(actor model.Actor, profileID *uint, note string) (*model.Attendance, error)
	ClockOut(actor model.Actor, profileID *uint) (*model.Attendance, error)
	List(actor model.Actor, filter repository.AttendanceFilter) ([]model.Attendance, error)
	Update(actor model.Actor, id uint, input AttendanceUpdateInput) (*model.Attendance, error)
	ExportXLSX(actor model.Actor, filter repository.AttendanceFilter, w io.Writer) error
}

type attendanceService struct {
	repo        repository.AttendanceRepository
	shiftRepo   repository.ShiftRepository
	profileRepo repository.ProfileRepository
	events      EventPublisher
	labels      LabelCache
	loc         *time.Location
}

func NewAttendanceService(
	repo repository.AttendanceRepository,
	shiftRepo repository.ShiftRepository,
	profileRepo repository.ProfileRepository,
	events EventPublisher,
	labels LabelCache,
	loc *time.Location,
) AttendanceService {
	if loc == nil {
		loc = time.UTC
	}
	return &attendanceService{
		repo:        repo,
		shiftRepo:   shiftRepo,
		profileRepo: profileRepo,
		events:      publisherOrNoop(events),
		labels:      labelCacheOrNoop(labels),
		loc:         loc,
	}
}

// target resolves whose record the call is about.
func (s *attendanceService) target(actor model.Actor, profileID *uint) (*model.Profile, error) {
	id := actor.ProfileID
	if profileID != nil && *profileID != actor.ProfileID {
		if !actor.IsManager() {
			return nil, ErrForbidden
		}
		id = *profileID
	}

	profile, err := s.profileRepo.FindByID(actor.StoreID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	if !profile.IsActive {
		return nil, ErrProfileInactive
	}
	return profile, nil
}

func (s *attendanceService) ClockIn(actor model.Actor, profileID *uint, note string) (*model.Attendance, error) {
	profile, err := s.target(actor, profileID)
	if err != nil {
		return nil, err
	}
	if !profile.Role.CanSubmitShifts() {
		return nil, ErrNotShiftWorker
	}

	if _, err := s.repo.FindOpen(actor.StoreID, profile.ID); err == nil {
		return nil, ErrAlreadyClockedIn
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := nowFunc()
	attendance := &model.Attendance{
		StoreID:      actor.StoreID,
		ProfileID:    profile.ID,
		BusinessDate: BusinessDate(now, s.loc),
		ClockInAt:    now,
		Note:         note,
	}

	scheduled, err := s.shiftRepo.FindScheduledFor(actor.StoreID, profile.ID, attendance.BusinessDate)
	switch {
	case err == nil:
		attendance.ShiftSubmissionID = &scheduled.ID
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	if err := s.repo.ClockIn(attendance); err != nil {
		if errors.Is(err, repository.ErrAlreadyOpen) {
			return nil, ErrAlreadyClockedIn
		}
		return nil, err
	}

	logger.Info("Clocked in", map[string]interface{}{
		"store_id":      actor.StoreID,
		"profile_id":    profile.ID,
		"business_date": attendance.BusinessDate,
		"linked_shift":  attendance.ShiftSubmissionID != nil,
		"recorded_by":   actor.ProfileID,
	})
	attendance.Profile = profile
	s.changed(actor.StoreID, attendance.ShiftSubmissionID != nil)
	s.events.Publish(actor.StoreID, model.ManagersAnd(profile.ID), EventAttendanceClockIn, attendance)
	return attendance, nil
}

func (s *attendanceService) changed(storeID uint, shiftMoved bool) {
	s.labels.Invalidate(storeID, "attendances")
	if shiftMoved {
		s.labels.Invalidate(storeID, "shift_submissions")
	}
}

func (s *attendanceService) ClockOut(actor model.Actor, profileID *uint) (*model.Attendance, error) {
	profile, err := s.target(actor, profileID)
	if err != nil {
		return nil, err
	}

	attendance, err := s.repo.FindOpen(actor.StoreID, profile.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotClockedIn
		}
		return nil, err
	}

	if err := s.repo.ClockOut(attendance, nowFunc()); err != nil {
		// closed concurrently
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotClockedIn
		}
		return nil, err
	}

	logger.Info("Clocked out", map[string]interface{}{
		"store_id":       actor.StoreID,
		"profile_id":     profile.ID,
		"worked_minutes": attendance.WorkedMinutes(),
	})
	attendance.Profile = profile
	s.changed(actor.StoreID, attendance.ShiftSubmissionID != nil)
	s.events.Publish(actor.StoreID, model.ManagersAnd(profile.ID), EventAttendanceClockOut, attendance)
	return attendance, nil
}

func (s *attendanceService) List(actor model.Actor, filter repository.AttendanceFilter) ([]model.Attendance, error) {
	if !actor.IsManager() {
		id := actor.ProfileID
		filter.ProfileID = &id
	}
	if (filter.From != "" && !validDate(filter.From)) || (filter.To != "" && !validDate(filter.To)) {
		return nil, ErrInvalidDate
	}
	return s.repo.FindAll(actor.StoreID, filter)
}

func (s *attendanceService) Update(actor model.Actor, id uint, input AttendanceUpdateInput) (*model.Attendance, error) {
	if !actor.IsManager() {
		return nil, ErrForbidden
	}
	attendance, err := s.repo.FindByID(actor.StoreID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttendanceNotFound
		}
		return nil, err
	}

	if input.ClockInAt != nil {
		attendance.ClockInAt = input.ClockInAt.UTC()
		attendance.BusinessDate = BusinessDate(attendance.ClockInAt, s.loc)
	}
	if input.ClockOutAt != nil {
		out := input.ClockOutAt.UTC()
		attendance.ClockOutAt = &out
	}
	if attendance.ClockOutAt != nil && !attendance.ClockOutAt.After(attendance.ClockInAt) {
		return nil, ErrInvalidWorkTime
	}
	if input.Note != nil {
		attendance.Note = *input.Note
	}

	profile := attendance.Profile
	attendance.Profile = nil
	if err := s.repo.Update(attendance); err != nil {
		return nil, err
	}
	attendance.Profile = profile

	logger.Info("Attendance corrected", map[string]interface{}{
		"store_id":      actor.StoreID,
		"attendance_id": id,
		"corrected_by":  actor.ProfileID,
	})
	s.changed(actor.StoreID, false)
	return attendance, nil
}

var attendanceExportHeaders = []string{"営業日", "名前", "出勤", "退勤", "勤務時間(分)", "シフト連動", "メモ"}

func (s *attendanceService) ExportXLSX(actor model.Actor, filter repository.AttendanceFilter, w io.Writer) error {
	if !actor.IsManager() {
		return ErrForbidden
	}
	records, err := s.List(actor, filter)
	if err != nil {
		return err
	}

	const clock = "2006-01-02 15:04"
	rows := make([][]string, 0, len(records))
	for _, a := range records {
		name := ""
		if a.Profile != nil {
			name = a.Profile.DisplayName
		}
		out := ""
		if a.ClockOutAt != nil {
			out = a.ClockOutAt.In(s.loc).Format(clock)
		}
		linked := ""
		if a.ShiftSubmissionID != nil {
			linked = "○"
		}
		rows = append(rows, []string{
			a.BusinessDate,
			name,
			a.ClockInAt.In(s.loc).Format(clock),
			out,
			strconv.Itoa(a.WorkedMinutes()),
			linked,
			a.Note,
		})
	}

	logger.Info("Exporting attendance", map[string]interface{}{
		"store_id": actor.StoreID,
		"rows":     len(rows),
	})
	return spreadsheet.WriteXLSX(w, "勤怠", attendanceExportHeaders, rows)
}
