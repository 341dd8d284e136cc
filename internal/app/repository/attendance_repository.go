package repository

import (
	"errors"
	"time"

	"github.com/yorunoba/nightdesk-backend/internal/app/model"
	"github.com/yorunoba/nightdesk-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrAlreadyOpen is returned by ClockIn when the profile has an open record.
var ErrAlreadyOpen = errors.New("attendance already open")

type AttendanceFilter struct {
	From      string
	To        string
	ProfileID *uint
}

type AttendanceRepository interface {
	FindOpen(storeID, profileID uint) (*model.Attendance, error)
	// ClockIn creates the record and moves a linked scheduled submission to
	// working. It fails with ErrAlreadyOpen while another record is open.
	ClockIn(attendance *model.Attendance) error
	// ClockOut closes the record and completes a linked working submission.
	ClockOut(attendance *model.Attendance, at time.Time) error
	FindAll(storeID uint, filter AttendanceFilter) ([]model.Attendance, error)
	FindByID(storeID, id uint) (*model.Attendance, error)
	Update(attendance *model.Attendance) error
	CountForDate(storeID uint, date string) (int64, error)
}

type attendanceRepository struct {
	db *gorm.DB
}

func NewAttendanceRepository(db *gorm.DB) AttendanceRepository {
	return &attendanceRepository{db: db}
}

func (r *attendanceRepository) FindOpen(storeID, profileID uint) (*model.Attendance, error) {
	var attendance model.Attendance
	err := r.db.Where("store_id = ? AND profile_id = ? AND clock_out_at IS NULL", storeID, profileID).
		Order("clock_in_at DESC").
		First(&attendance).Error
	if err != nil {
		return nil, err
	}
	return &attendance, nil
}

func (r *attendanceRepository) ClockIn(attendance *model.Attendance) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var open int64
		if err := tx.Model(&model.Attendance{}).
			Where("store_id = ? AND profile_id = ? AND clock_out_at IS NULL", attendance.StoreID, attendance.ProfileID).
			Count(&open).Error; err != nil {
			return err
		}
		if open > 0 {
			return ErrAlreadyOpen
		}
		// the partial unique index settles clock-ins that race past the count
		if err := tx.Omit(clause.Associations).Create(attendance).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrAlreadyOpen
			}
			logger.Error("Failed to create attendance", err, map[string]interface{}{
				"store_id":   attendance.StoreID,
				"profile_id": attendance.ProfileID,
			})
			return err
		}
		if attendance.ShiftSubmissionID == nil {
			return nil
		}
		return tx.Model(&model.ShiftSubmission{}).
			Where("id = ? AND status = ?", *attendance.ShiftSubmissionID, model.SubmissionScheduled).
			Update("status", model.SubmissionWorking).Error
	})
}

func (r *attendanceRepository) ClockOut(attendance *model.Attendance, at time.Time) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.Attendance{}).
			Where("id = ? AND clock_out_at IS NULL", attendance.ID).
			Update("clock_out_at", at)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		attendance.ClockOutAt = &at

		if attendance.ShiftSubmissionID == nil {
			return nil
		}
		return tx.Model(&model.ShiftSubmission{}).
			Where("id = ? AND status = ?", *attendance.ShiftSubmissionID, model.SubmissionWorking).
			Update("status", model.SubmissionCompleted).Error
	})
}

func (r *attendanceRepository) FindAll(storeID uint, filter AttendanceFilter) ([]model.Attendance, error) {
	query := r.db.Preload("Profile").Where("store_id = ?", storeID)
	if filter.From != "" {
		query = query.Where("business_date >= ?", filter.From)
	}
	if filter.To != "" {
		query = query.Where("business_date <= ?", filter.To)
	}
	if filter.ProfileID != nil {
		query = query.Where("profile_id = ?", *filter.ProfileID)
	}

	var records []model.Attendance
	err := query.Order("business_date DESC, clock_in_at ASC").Find(&records).Error
	return records, err
}

func (r *attendanceRepository) FindByID(storeID, id uint) (*model.Attendance, error) {
	var attendance model.Attendance
	if err := r.db.Preload("Profile").Where("store_id = ? AND id = ?", storeID, id).First(&attendance).Error; err != nil {
		return nil, err
	}
	return &attendance, nil
}

func (r *attendanceRepository) Update(attendance *model.Attendance) error {
	return r.db.Omit(clause.Associations).Save(attendance).Error
}

func (r *attendanceRepository) CountForDate(storeID uint, date string) (int64, error) {
	var count int64
	err := r.db.Model(&model.Attendance{}).
		Where("store_id = ? AND business_date = ?", storeID, date).
		Count(&count).Error
	return count, err
}
