package repository

import (
	"time"

	"github.com/yorunoba/nightdesk-backend/internal/app/model"
	"github.com/yorunoba/nightdesk-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DateStatusCount is the number of submissions in one status for one date.
type DateStatusCount struct {
	Date   string                 `json:"date"`
	Status model.SubmissionStatus `json:"status"`
	Count  int64                  `json:"count"`
}

type SubmissionFilter struct {
	Date      string
	Status    model.SubmissionStatus
	ProfileID *uint
}

// Decision is the manager's verdict applied to a pending submission.
type Decision struct {
	Status       model.SubmissionStatus
	StartTime    string
	EndTime      string
	RejectReason string
	DecidedByID  uint
	DecidedAt    time.Time
}

type ShiftRepository interface {
	CreateRequest(request *model.ShiftRequest) error
	// UpdateRequest saves the request and replaces its dates. Pending submissions
	// for dates that are no longer requested are dropped.
	UpdateRequest(request *model.ShiftRequest, dates []model.ShiftRequestDate) error
	DeleteRequest(storeID, id uint) error
	FindRequests(storeID uint) ([]model.ShiftRequest, error)
	FindRequestByID(storeID, id uint) (*model.ShiftRequest, error)
	CountByDate(requestID uint) ([]DateStatusCount, error)
	CountOpenRequests(storeID uint, now time.Time) (int64, error)

	FindSubmissions(storeID, requestID uint, filter SubmissionFilter) ([]model.ShiftSubmission, error)
	FindSubmissionByID(storeID, id uint) (*model.ShiftSubmission, error)
	// ReplacePending deletes the profile's pending rows for the request and inserts
	// entries in the same transaction. Decided rows are left untouched.
	ReplacePending(storeID, requestID, profileID uint, entries []model.ShiftSubmission) error
	// Decide applies d only if the row is still pending. It reports whether a row changed.
	Decide(storeID, id uint, d Decision) (bool, error)
	// DecidePendingOnDate applies d to every available pending row of a date.
	DecidePendingOnDate(storeID, requestID uint, date string, d Decision) ([]model.ShiftSubmission, error)
	FindSchedule(storeID uint, from, to string) ([]model.ShiftSubmission, error)
	FindScheduledFor(storeID, profileID uint, date string) (*model.ShiftSubmission, error)
	CountPending(storeID uint) (int64, error)
}

type shiftRepository struct {
	db *gorm.DB
}

func NewShiftRepository(db *gorm.DB) ShiftRepository {
	return &shiftRepository{db: db}
}

func (r *shiftRepository) CreateRequest(request *model.ShiftRequest) error {
	logger.Debug("Creating shift request", map[string]interface{}{
		"store_id": request.StoreID,
		"dates":    len(request.Dates),
	})

	if err := r.db.Create(request).Error; err != nil {
		logger.Error("Failed to create shift request", err, map[string]interface{}{
			"store_id": request.StoreID,
		})
		return err
	}
	return nil
}

func (r *shiftRepository) UpdateRequest(request *model.ShiftRequest, dates []model.ShiftRequestDate) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(request).Error; err != nil {
			return err
		}
		if err := tx.Where("shift_request_id = ?", request.ID).Delete(&model.ShiftRequestDate{}).Error; err != nil {
			return err
		}

		keep := make([]string, 0, len(dates))
		for i := range dates {
			dates[i].ID = 0
			dates[i].ShiftRequestID = request.ID
			keep = append(keep, dates[i].Date)
		}
		if len(dates) > 0 {
			if err := tx.Create(&dates).Error; err != nil {
				return err
			}
		}

		stale := tx.Where("shift_request_id = ? AND status = ?", request.ID, model.SubmissionPending)
		if len(keep) > 0 {
			stale = stale.Where("date NOT IN ?", keep)
		}
		if err := stale.Delete(&model.ShiftSubmission{}).Error; err != nil {
			return err
		}

		request.Dates = dates
		return nil
	})
}

func (r *shiftRepository) DeleteRequest(storeID, id uint) error {
	return deleteScoped(r.db, &model.ShiftRequest{}, storeID, id)
}

func datesOrdered(db *gorm.DB) *gorm.DB {
	return db.Order("date ASC")
}

func (r *shiftRepository) FindRequests(storeID uint) ([]model.ShiftRequest, error) {
	var requests []model.ShiftRequest
	err := r.db.Preload("Dates", datesOrdered).
		Where("store_id = ?", storeID).
		Order("deadline DESC, id DESC").
		Find(&requests).Error
	return requests, err
}

func (r *shiftRepository) FindRequestByID(storeID, id uint) (*model.ShiftRequest, error) {
	var request model.ShiftRequest
	err := r.db.Preload("Dates", datesOrdered).
		Where("store_id = ? AND id = ?", storeID, id).
		First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *shiftRepository) CountByDate(requestID uint) ([]DateStatusCount, error) {
	var counts []DateStatusCount
	err := r.db.Model(&model.ShiftSubmission{}).
		Select("date, status, COUNT(*) AS count").
		Where("shift_request_id = ? AND is_available = ?", requestID, true).
		Group("date, status").
		Order("date ASC").
		Scan(&counts).Error
	return counts, err
}

func (r *shiftRepository) CountOpenRequests(storeID uint, now time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&model.ShiftRequest{}).
		Where("store_id = ? AND deadline > ?", storeID, now).
		Count(&count).Error
	return count, err
}

func (r *shiftRepository) FindSubmissions(storeID, requestID uint, filter SubmissionFilter) ([]model.ShiftSubmission, error) {
	query := r.db.Preload("Profile").
		Where("store_id = ? AND shift_request_id = ?", storeID, requestID)
	if filter.Date != "" {
		query = query.Where("date = ?", filter.Date)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ProfileID != nil {
		query = query.Where("profile_id = ?", *filter.ProfileID)
	}

	var submissions []model.ShiftSubmission
	err := query.Order("date ASC, profile_id ASC").Find(&submissions).Error
	return submissions, err
}

func (r *shiftRepository) FindSubmissionByID(storeID, id uint) (*model.ShiftSubmission, error) {
	var submission model.ShiftSubmission
	err := r.db.Preload("Profile").
		Where("store_id = ? AND id = ?", storeID, id).
		First(&submission).Error
	if err != nil {
		return nil, err
	}
	return &submission, nil
}

func (r *shiftRepository) ReplacePending(storeID, requestID, profileID uint, entries []model.ShiftSubmission) error {
	logger.Debug("Replacing pending submissions", map[string]interface{}{
		"store_id":   storeID,
		"request_id": requestID,
		"profile_id": profileID,
		"entries":    len(entries),
	})

	return r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("shift_request_id = ? AND profile_id = ? AND status = ?",
			requestID, profileID, model.SubmissionPending).
			Delete(&model.ShiftSubmission{}).Error
		if err != nil {
			return err
		}

		for i := range entries {
			entries[i].ID = 0
			entries[i].StoreID = storeID
			entries[i].ShiftRequestID = requestID
			entries[i].ProfileID = profileID
			entries[i].Status = model.SubmissionPending
			if err := tx.Omit(clause.Associations).Create(&entries[i]).Error; err != nil {
				logger.Error("Failed to insert submission", err, map[string]interface{}{
					"request_id": requestID,
					"profile_id": profileID,
					"date":       entries[i].Date,
				})
				return err
			}
		}
		return nil
	})
}

func decisionUpdates(d Decision) map[string]interface{} {
	updates := map[string]interface{}{
		"status":        d.Status,
		"decided_by_id": d.DecidedByID,
		"decided_at":    d.DecidedAt,
		"reject_reason": d.RejectReason,
	}
	if d.StartTime != "" {
		updates["start_time"] = d.StartTime
	}
	if d.EndTime != "" {
		updates["end_time"] = d.EndTime
	}
	return updates
}

func (r *shiftRepository) Decide(storeID, id uint, d Decision) (bool, error) {
	result := r.db.Model(&model.ShiftSubmission{}).
		Where("store_id = ? AND id = ? AND status = ?", storeID, id, model.SubmissionPending).
		Updates(decisionUpdates(d))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *shiftRepository) DecidePendingOnDate(storeID, requestID uint, date string, d Decision) ([]model.ShiftSubmission, error) {
	var decided []model.ShiftSubmission
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var ids []uint
		err := tx.Model(&model.ShiftSubmission{}).
			Where("store_id = ? AND shift_request_id = ? AND date = ? AND status = ? AND is_available = ?",
				storeID, requestID, date, model.SubmissionPending, true).
			Pluck("id", &ids).Error
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		if err := tx.Model(&model.ShiftSubmission{}).Where("id IN ?", ids).Updates(decisionUpdates(d)).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", ids).Order("id ASC").Find(&decided).Error
	})
	if err != nil {
		return nil, err
	}
	return decided, nil
}

func (r *shiftRepository) FindSchedule(storeID uint, from, to string) ([]model.ShiftSubmission, error) {
	var submissions []model.ShiftSubmission
	err := r.db.Preload("Profile").
		Where("store_id = ? AND date >= ? AND date <= ? AND status IN ?", storeID, from, to,
			[]model.SubmissionStatus{model.SubmissionScheduled, model.SubmissionWorking, model.SubmissionCompleted}).
		Order("date ASC, start_time ASC, profile_id ASC").
		Find(&submissions).Error
	return submissions, err
}

func (r *shiftRepository) FindScheduledFor(storeID, profileID uint, date string) (*model.ShiftSubmission, error) {
	var submission model.ShiftSubmission
	err := r.db.Where("store_id = ? AND profile_id = ? AND date = ? AND status = ?",
		storeID, profileID, date, model.SubmissionScheduled).
		Order("id ASC").
		First(&submission).Error
	if err != nil {
		return nil, err
	}
	return &submission, nil
}

func (r *shiftRepository) CountPending(storeID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.ShiftSubmission{}).
		Where("store_id = ? AND status = ? AND is_available = ?", storeID, model.SubmissionPending, true).
		Count(&count).Error
	return count, err
}
