package repository

import (
	"time"

	"github.com/yorunoba/nightdesk-backend/internal/app/model"
	"github.com/yorunoba/nightdesk-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SNSRepository interface {
	ListAccounts(storeID uint) ([]model.SNSAccount, error)
	FindAccountByID(storeID, id uint) (*model.SNSAccount, error)
	CreateAccount(account *model.SNSAccount) error
	UpdateAccount(account *model.SNSAccount) error
	DeleteAccount(storeID, id uint) error

	ListPosts(storeID uint, status model.SNSPostStatus) ([]model.SNSScheduledPost, error)
	FindPostByID(storeID, id uint) (*model.SNSScheduledPost, error)
	CreatePost(post *model.SNSScheduledPost) error
	UpdatePost(post *model.SNSScheduledPost) error
	DeletePost(storeID, id uint) error
	// FindDuePosts returns scheduled posts of every store due at or before now.
	FindDuePosts(now time.Time, limit int) ([]model.SNSScheduledPost, error)
	// MarkPost moves a scheduled post to its outcome status.
	MarkPost(id uint, status model.SNSPostStatus, postedAt *time.Time, errMsg string) error
	CountUpcoming(storeID uint, now time.Time) (int64, error)

	ListSchedules(storeID uint) ([]model.SNSRecurringSchedule, error)
	FindScheduleByID(storeID, id uint) (*model.SNSRecurringSchedule, error)
	CreateSchedule(schedule *model.SNSRecurringSchedule) error
	UpdateSchedule(schedule *model.SNSRecurringSchedule) error
	DeleteSchedule(storeID, id uint) error
	FindActiveSchedules() ([]model.SNSRecurringSchedule, error)
	// Materialize creates post and records runAt on the schedule atomically.
	Materialize(schedule *model.SNSRecurringSchedule, post *model.SNSScheduledPost, runAt time.Time) error
}

type snsRepository struct {
	db *gorm.DB
}

func NewSNSRepository(db *gorm.DB) SNSRepository {
	return &snsRepository{db: db}
}

func (r *snsRepository) ListAccounts(storeID uint) ([]model.SNSAccount, error) {
	var accounts []model.SNSAccount
	err := r.db.Where("store_id = ?", storeID).Order("platform ASC, id ASC").Find(&accounts).Error
	return accounts, err
}

func (r *snsRepository) FindAccountByID(storeID, id uint) (*model.SNSAccount, error) {
	var account model.SNSAccount
	if err := r.db.Where("store_id = ? AND id = ?", storeID, id).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *snsRepository) CreateAccount(account *model.SNSAccount) error {
	return r.db.Create(account).Error
}

func (r *snsRepository) UpdateAccount(account *model.SNSAccount) error {
	return r.db.Save(account).Error
}

func (r *snsRepository) DeleteAccount(storeID, id uint) error {
	return deleteScoped(r.db, &model.SNSAccount{}, storeID, id)
}

func (r *snsRepository) ListPosts(storeID uint, status model.SNSPostStatus) ([]model.SNSScheduledPost, error) {
	query := r.db.Preload("Account").Where("store_id = ?", storeID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var posts []model.SNSScheduledPost
	err := query.Order("scheduled_at DESC, id DESC").Find(&posts).Error
	return posts, err
}

func (r *snsRepository) FindPostByID(storeID, id uint) (*model.SNSScheduledPost, error) {
	var post model.SNSScheduledPost
	if err := r.db.Preload("Account").Where("store_id = ? AND id = ?", storeID, id).First(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *snsRepository) CreatePost(post *model.SNSScheduledPost) error {
	return r.db.Omit(clause.Associations).Create(post).Error
}

func (r *snsRepository) UpdatePost(post *model.SNSScheduledPost) error {
	return r.db.Omit(clause.Associations).Save(post).Error
}

func (r *snsRepository) DeletePost(storeID, id uint) error {
	return deleteScoped(r.db, &model.SNSScheduledPost{}, storeID, id)
}

func (r *snsRepository) FindDuePosts(now time.Time, limit int) ([]model.SNSScheduledPost, error) {
	var posts []model.SNSScheduledPost
	err := r.db.Preload("Account").
		Where("status = ? AND scheduled_at <= ?", model.PostScheduled, now).
		Order("scheduled_at ASC, id ASC").
		Limit(limit).
		Find(&posts).Error
	return posts, err
}

func (r *snsRepository) MarkPost(id uint, status model.SNSPostStatus, postedAt *time.Time, errMsg string) error {
	result := r.db.Model(&model.SNSScheduledPost{}).
		Where("id = ? AND status = ?", id, model.PostScheduled).
		Updates(map[string]interface{}{
			"status":        status,
			"posted_at":     postedAt,
			"error_message": errMsg,
		})
	if result.Error != nil {
		logger.Error("Failed to mark scheduled post", result.Error, map[string]interface{}{
			"post_id": id,
			"status":  status,
		})
		return result.Error
	}
	return nil
}

func (r *snsRepository) CountUpcoming(storeID uint, now time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&model.SNSScheduledPost{}).
		Where("store_id = ? AND status = ? AND scheduled_at > ?", storeID, model.PostScheduled, now).
		Count(&count).Error
	return count, err
}

func (r *snsRepository) ListSchedules(storeID uint) ([]model.SNSRecurringSchedule, error) {
	var schedules []model.SNSRecurringSchedule
	err := r.db.Preload("Account").Where("store_id = ?", storeID).Order("id ASC").Find(&schedules).Error
	return schedules, err
}

func (r *snsRepository) FindScheduleByID(storeID, id uint) (*model.SNSRecurringSchedule, error) {
	var schedule model.SNSRecurringSchedule
	if err := r.db.Preload("Account").Where("store_id = ? AND id = ?", storeID, id).First(&schedule).Error; err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (r *snsRepository) CreateSchedule(schedule *model.SNSRecurringSchedule) error {
	return r.db.Omit(clause.Associations).Create(schedule).Error
}

func (r *snsRepository) UpdateSchedule(schedule *model.SNSRecurringSchedule) error {
	return r.db.Omit(clause.Associations).Save(schedule).Error
}

func (r *snsRepository) DeleteSchedule(storeID, id uint) error {
	return deleteScoped(r.db, &model.SNSRecurringSchedule{}, storeID, id)
}

func (r *snsRepository) FindActiveSchedules() ([]model.SNSRecurringSchedule, error) {
	var schedules []model.SNSRecurringSchedule
	err := r.db.Preload("Account").Where("is_active = ?", true).Order("id ASC").Find(&schedules).Error
	return schedules, err
}

func (r *snsRepository) Materialize(schedule *model.SNSRecurringSchedule, post *model.SNSScheduledPost, runAt time.Time) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(post).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.SNSRecurringSchedule{}).
			Where("id = ?", schedule.ID).
			Update("last_run_at", runAt).Error; err != nil {
			return err
		}
		schedule.LastRunAt = &runAt
		return nil
	})
}
