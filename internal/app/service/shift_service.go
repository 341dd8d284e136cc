package service

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/yorunoba/nightdesk-backend/internal/app/model"
	"github.com/yorunoba/nightdesk-backend/internal/app/repository"
	"github.com/yorunoba/nightdesk-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrShiftRequestNotFound = errors.New("shift request not found")
	ErrShiftRequestClosed   = errors.New("shift request is closed")
	ErrDateNotRequested     = errors.New("date is not part of the shift request")
	ErrSubmissionNotFound   = errors.New("shift submission not found")
	ErrSubmissionLocked     = errors.New("shift submission was already decided")
	ErrInvalidTransition    = errors.New("shift submission is not pending")
	ErrInvalidShiftTime     = errors.New("invalid shift time")
	ErrNotShiftWorker       = errors.New("role does not submit shifts")
)

type ShiftRequestDateInput struct {
	Date             string
	DefaultStartTime string
	DefaultEndTime   string
}

type ShiftRequestInput struct {
	Title    string
	Note     string
	Deadline time.Time
	Dates    []ShiftRequestDateInput
}

// ShiftRequestView carries the status computed at read time.
type ShiftRequestView struct {
	model.ShiftRequest
	Status model.ShiftRequestStatus `json:"status"`
}

type ShiftRequestDetail struct {
	ShiftRequestView
	Counts []repository.DateStatusCount `json:"counts"`
}

// SubmissionEntry is one date of a cast's answer.
type SubmissionEntry struct {
	Date        string
	IsAvailable bool
	StartTime   string
	EndTime     string
	Note        string
}

// SubmissionRow is a requested date as the submitting profile sees it.
type SubmissionRow struct {
	Date             string                 `json:"date"`
	SubmissionID     *uint                  `json:"submission_id,omitempty"`
	Status           model.SubmissionStatus `json:"status"`
	IsAvailable      bool                   `json:"is_available"`
	StartTime        string                 `json:"start_time,omitempty"`
	EndTime          string                 `json:"end_time,omitempty"`
	Note             string                 `json:"note,omitempty"`
	RejectReason     string                 `json:"reject_reason,omitempty"`
	DefaultStartTime string                 `json:"default_start_time,omitempty"`
	DefaultEndTime   string                 `json:"default_end_time,omitempty"`
}

type ShiftService interface {
	ListRequests(actor model.Actor) ([]ShiftRequestView, error)
	GetRequest(actor model.Actor, id uint) (*ShiftRequestDetail, error)
	CreateRequest(actor model.Actor, input ShiftRequestInput) (*ShiftRequestView, error)
	UpdateRequest(actor model.Actor, id uint, input ShiftRequestInput) (*ShiftRequestView, error)
	DeleteRequest(actor model.Actor, id uint) error

	ListSubmissions(actor model.Actor, requestID uint, filter repository.SubmissionFilter) ([]model.ShiftSubmission, error)
	GetMySubmission(actor model.Actor, requestID uint) ([]SubmissionRow, error)
	Submit(actor model.Actor, requestID uint, entries []SubmissionEntry) ([]SubmissionRow, error)

	// Approve schedules a pending submission, optionally adjusting its hours.
	Approve(actor model.Actor, submissionID uint, startTime, endTime *string) (*model.ShiftSubmission, error)
	Reject(actor model.Actor, submissionID uint, reason string) (*model.ShiftSubmission, error)
	BulkApprove(actor model.Actor, requestID uint, date string) ([]model.ShiftSubmission, error)
	ListSchedule(actor model.Actor, from, to string) ([]model.ShiftSubmission, error)
}

type shiftService struct {
	repo   repository.ShiftRepository
	events EventPublisher
	labels LabelCache
}

func NewShiftService(repo repository.ShiftRepository, events EventPublisher, labels LabelCache) ShiftService {
	return &shiftService{
		repo:   repo,
		events: publisherOrNoop(events),
		labels: labelCacheOrNoop(labels),
	}
}

func view(r model.ShiftRequest) ShiftRequestView {
	return ShiftRequestView{ShiftRequest: r, Status: r.Status(nowFunc())}
}

func (s *shiftService) ListRequests(actor model.Actor) ([]ShiftRequestView, error) {
	requests, err := s.repo.FindRequests(actor.StoreID)
	if err != nil {
		return nil, err
	}
	views := make([]ShiftRequestView, 0, len(requests))
	for _, r := range requests {
		views = append(views, view(r))
	}
	return views, nil
}

func (s *shiftService) findRequest(storeID, id uint) (*model.ShiftRequest, error) {
	request, err := s.repo.FindRequestByID(storeID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShiftRequestNotFound
		}
		logger.Error("Failed to fetch shift request", err, map[string]interface{}{
			"store_id":   storeID,
			"request_id": id,
		})
		return nil, err
	}
	return request, nil
}

func (s *shiftService) GetRequest(actor model.Actor, id uint) (*ShiftRequestDetail, error) {
	request, err := s.findRequest(actor.StoreID, id)
	if err != nil {
		return nil, err
	}
	counts, err := s.repo.CountByDate(request.ID)
	if err != nil {
		return nil, err
	}
	return &ShiftRequestDetail{ShiftRequestView: view(*request), Counts: counts}, nil
}

// validHours checks "HH:MM" values; an end earlier than the start runs past midnight.
func validHours(start, end string) bool {
	if start != "" {
		if _, err := model.ParseClock(start); err != nil {
			return false
		}
	}
	if end != "" {
		if _, err := model.ParseClock(end); err != nil {
			return false
		}
	}
	return start == "" || end == "" || start != end
}

func requestDates(input []ShiftRequestDateInput) ([]model.ShiftRequestDate, error) {
	if len(input) == 0 {
		return nil, ErrInvalidInput
	}
	seen := make(map[string]bool, len(input))
	dates := make([]model.ShiftRequestDate, 0, len(input))
	for _, d := range input {
		if !validDate(d.Date) {
			return nil, ErrInvalidDate
		}
		if seen[d.Date] {
			return nil, ErrInvalidInput
		}
		seen[d.Date] = true
		if !validHours(d.DefaultStartTime, d.DefaultEndTime) {
			return nil, ErrInvalidShiftTime
		}
		dates = append(dates, model.ShiftRequestDate{
			Date:             d.Date,
			DefaultStartTime: d.DefaultStartTime,
			DefaultEndTime:   d.DefaultEndTime,
		})
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Date < dates[j].Date })
	return dates, nil
}

func (s *shiftService) CreateRequest(actor model.Actor, input ShiftRequestInput) (*ShiftRequestView, error) {
	if !actor.IsManager() {
		return nil, ErrForbidden
	}
	title := strings.TrimSpace(input.Title)
	if title == "" || input.Deadline.IsZero() {
		return nil, ErrInvalidInput
	}
	dates, err := requestDates(input.Dates)
	if err != nil {
		return nil, err
	}

	createdBy := actor.ProfileID
	request := &model.ShiftRequest{
		StoreID:     actor.StoreID,
		Title:       title,
		Note:        input.Note,
		Deadline:    input.Deadline.UTC(),
		CreatedByID: &createdBy,
		Dates:       dates,
	}
	if err := s.repo.CreateRequest(request); err != nil {
		return nil, err
	}

	s.labels.Invalidate(actor.StoreID, "shift_requests")
	logger.Info("Shift request created", map[string]interface{}{
		"store_id":   actor.StoreID,
		"request_id": request.ID,
		"dates":      len(dates),
		"deadline":   request.Deadline,
	})
	v := view(*request)
	return &v, nil
}

func (s *shiftService) UpdateRequest(actor model.Actor, id uint, input ShiftRequestInput) (*ShiftRequestView, error) {
	if !actor.IsManager() {
		return nil, ErrForbidden
	}
	request, err := s.findRequest(actor.StoreID, id)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(input.Title)
	if title == "" || input.Deadline.IsZero() {
		return nil, ErrInvalidInput
	}
	dates, err := requestDates(input.Dates)
	if err != nil {
		return nil, err
	}

	request.Title = title
	request.Note = input.Note
	request.Deadline = input.Deadline.UTC()
	request.Dates = nil
	if err := s.repo.UpdateRequest(request, dates); err != nil {
		logger.Error("Failed to update shift request", err, map[string]interface{}{
			"store_id":   actor.StoreID,
			"request_id": id,
		})
		return nil, err
	}

	s.labels.Invalidate(actor.StoreID, "shift_requests")
	v := view(*request)
	return &v, nil
}

func (s *shiftService) DeleteRequest(actor model.Actor, id uint) error {
	if !actor.IsManager() {
		return ErrForbidden
	}
	if err := s.repo.DeleteRequest(actor.StoreID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrShiftRequestNotFound
		}
		return err
	}
	s.labels.Invalidate(actor.StoreID, "shift_requests")
	logger.Info("Shift request deleted", map[string]interface{}{
		"store_id":   actor.StoreID,
		"request_id": id,
	})
	return nil
}

func (s *shiftService) ListSubmissions(actor model.Actor, requestID uint, filter repository.SubmissionFilter) ([]model.ShiftSubmission, error) {
	if !actor.IsManager() {
		return nil, ErrForbidden
	}
	if _, err := s.findRequest(actor.StoreID, requestID); err != nil {
		return nil, err
	}
	return s.repo.FindSubmissions(actor.StoreID, requestID, filter)
}

func (s *shiftService) GetMySubmission(actor model.Actor, requestID uint) ([]SubmissionRow, error) {
	request, err := s.findRequest(actor.StoreID, requestID)
	if err != nil {
		return nil, err
	}
	return s.rowsFor(actor, request)
}

// rowsFor lists every requested date, filling the gaps with not_submitted.
func (s *shiftService) rowsFor(actor model.Actor, request *model.ShiftRequest) ([]SubmissionRow, error) {
	profileID := actor.ProfileID
	submissions, err := s.repo.FindSubmissions(actor.StoreID, request.ID, repository.SubmissionFilter{ProfileID: &profileID})
	if err != nil {
		return nil, err
	}
	byDate := make(map[string]model.ShiftSubmission, len(submissions))
	for _, sub := range submissions {
		byDate[sub.Date] = sub
	}

	rows := make([]SubmissionRow, 0, len(request.Dates))
	for _, d := range request.Dates {
		row := SubmissionRow{
			Date:             d.Date,
			Status:           model.SubmissionNotSubmitted,
			DefaultStartTime: d.DefaultStartTime,
			DefaultEndTime:   d.DefaultEndTime,
		}
		if sub, ok := byDate[d.Date]; ok {
			id := sub.ID
			row.SubmissionID = &id
			row.Status = sub.Status
			row.IsAvailable = sub.IsAvailable
			row.StartTime = sub.StartTime
			row.EndTime = sub.EndTime
			row.Note = sub.Note
			row.RejectReason = sub.RejectReason
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *shiftService) Submit(actor model.Actor, requestID uint, entries []SubmissionEntry) ([]SubmissionRow, error) {
	if !actor.Role.CanSubmitShifts() {
		return nil, ErrNotShiftWorker
	}
	request, err := s.findRequest(actor.StoreID, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status(nowFunc()) != model.ShiftRequestOpen {
		return nil, ErrShiftRequestClosed
	}

	profileID := actor.ProfileID
	existing, err := s.repo.FindSubmissions(actor.StoreID, requestID, repository.SubmissionFilter{ProfileID: &profileID})
	if err != nil {
		return nil, err
	}
	decided := make(map[string]bool, len(existing))
	for _, sub := range existing {
		if sub.Status.IsDecided() {
			decided[sub.Date] = true
		}
	}

	rows := make([]model.ShiftSubmission, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if !request.HasDate(e.Date) {
			return nil, ErrDateNotRequested
		}
		if seen[e.Date] {
			return nil, ErrInvalidInput
		}
		seen[e.Date] = true
		if decided[e.Date] {
			return nil, ErrSubmissionLocked
		}

		sub := model.ShiftSubmission{
			Date:        e.Date,
			IsAvailable: e.IsAvailable,
			Note:        e.Note,
		}
		if e.IsAvailable {
			if !validHours(e.StartTime, e.EndTime) {
				return nil, ErrInvalidShiftTime
			}
			sub.StartTime = e.StartTime
			sub.EndTime = e.EndTime
		}
		rows = append(rows, sub)
	}

	if err := s.repo.ReplacePending(actor.StoreID, requestID, actor.ProfileID, rows); err != nil {
		logger.Error("Failed to save shift submission", err, map[string]interface{}{
			"store_id":   actor.StoreID,
			"request_id": requestID,
			"profile_id": actor.ProfileID,
		})
		return nil, err
	}

	logger.Info("Shift submission saved", map[string]interface{}{
		"store_id":   actor.StoreID,
		"request_id": requestID,
		"profile_id": actor.ProfileID,
		"entries":    len(rows),
	})
	s.labels.Invalidate(actor.StoreID, "shift_submissions")
	s.events.Publish(actor.StoreID, model.ManagersAnd(actor.ProfileID), EventSubmissionSubmitted, map[string]interface{}{
		"request_id": requestID,
		"profile_id": actor.ProfileID,
		"entries":    len(rows),
	})
	return s.rowsFor(actor, request)
}

func (s *shiftService) findSubmission(storeID, id uint) (*model.ShiftSubmission, error) {
	sub, err := s.repo.FindSubmissionByID(storeID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}
	return sub, nil
}

func (s *shiftService) decide(actor model.Actor, id uint, d repository.Decision, event string) (*model.ShiftSubmission, error) {
	changed, err := s.repo.Decide(actor.StoreID, id, d)
	if err != nil {
		return nil, err
	}
	// someone else decided it in between
	if !changed {
		return nil, ErrInvalidTransition
	}

	sub, err := s.findSubmission(actor.StoreID, id)
	if err != nil {
		return nil, err
	}
	logger.Info("Shift submission decided", map[string]interface{}{
		"store_id":      actor.StoreID,
		"submission_id": id,
		"status":        sub.Status,
		"decided_by":    actor.ProfileID,
	})
	s.labels.Invalidate(actor.StoreID, "shift_submissions")
	s.events.Publish(actor.StoreID, model.ManagersAnd(sub.ProfileID), event, sub)
	return sub, nil
}

func (s *shiftService) Approve(actor model.Actor, submissionID uint, startTime, endTime *string) (*model.ShiftSubmission, error) {
	if !actor.IsManager() {
		return nil, ErrForbidden
	}
	sub, err := s.findSubmission(actor.StoreID, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.Status != model.SubmissionPending || !sub.IsAvailable {
		return nil, ErrInvalidTransition
	}

	d := repository.Decision{
		Status:      model.SubmissionScheduled,
		DecidedByID: actor.ProfileID,
		DecidedAt:   nowFunc(),
	}
	if startTime != nil {
		d.StartTime = *startTime
	}
	if endTime != nil {
		d.EndTime = *endTime
	}
	start, end := sub.StartTime, sub.EndTime
	if d.StartTime != "" {
		start = d.StartTime
	}
	if d.EndTime != "" {
		end = d.EndTime
	}
	if !validHours(start, end) {
		return nil, ErrInvalidShiftTime
	}
	return s.decide(actor, submissionID, d, EventSubmissionApproved)
}

func (s *shiftService) Reject(actor model.Actor, submissionID uint, reason string) (*model.ShiftSubmission, error) {
	if !actor.IsManager() {
		return nil, ErrForbidden
	}
	sub, err := s.findSubmission(actor.StoreID, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.Status != model.SubmissionPending {
		return nil, ErrInvalidTransition
	}
	return s.decide(actor, submissionID, repository.Decision{
		Status:       model.SubmissionRejected,
		RejectReason: strings.TrimSpace(reason),
		DecidedByID:  actor.ProfileID,
		DecidedAt:    nowFunc(),
	}, EventSubmissionRejected)
}

func (s *shiftService) BulkApprove(actor model.Actor, requestID uint, date string) ([]model.ShiftSubmission, error) {
	if !actor.IsManager() {
		return nil, ErrForbidden
	}
	request, err := s.findRequest(actor.StoreID, requestID)
	if err != nil {
		return nil, err
	}
	if !request.HasDate(date) {
		return nil, ErrDateNotRequested
	}

	approved, err := s.repo.DecidePendingOnDate(actor.StoreID, requestID, date, repository.Decision{
		Status:      model.SubmissionScheduled,
		DecidedByID: actor.ProfileID,
		DecidedAt:   nowFunc(),
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Shift submissions bulk approved", map[string]interface{}{
		"store_id":   actor.StoreID,
		"request_id": requestID,
		"date":       date,
		"count":      len(approved),
	})
	if len(approved) > 0 {
		s.labels.Invalidate(actor.StoreID, "shift_submissions")
	}
	for i := range approved {
		s.events.Publish(actor.StoreID, model.ManagersAnd(approved[i].ProfileID), EventSubmissionApproved, &approved[i])
	}
	return approved, nil
}

func (s *shiftService) ListSchedule(actor model.Actor, from, to string) ([]model.ShiftSubmission, error) {
	if !validDate(from) || !validDate(to) || to < from {
		return nil, ErrInvalidDate
	}
	return s.repo.FindSchedule(actor.StoreID, from, to)
}
