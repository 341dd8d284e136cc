package repository

import (
	"github.com/yorunoba/nightdesk-backend/internal/app/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommentTarget selects comments by their single target key.
type CommentTarget struct {
	ProfileID      *uint
	BottleKeepID   *uint
	ShiftRequestID *uint
}

type CommentRepository interface {
	FindByTarget(storeID uint, target CommentTarget) ([]model.Comment, error)
	FindByID(storeID, id uint) (*model.Comment, error)
	Create(comment *model.Comment) error
	Update(comment *model.Comment) error
	Delete(storeID, id uint) error
}

type commentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) FindByTarget(storeID uint, target CommentTarget) ([]model.Comment, error) {
	query := r.db.Preload("Author").Where("store_id = ?", storeID)
	switch {
	case target.ProfileID != nil:
		query = query.Where("profile_id = ?", *target.ProfileID)
	case target.BottleKeepID != nil:
		query = query.Where("bottle_keep_id = ?", *target.BottleKeepID)
	case target.ShiftRequestID != nil:
		query = query.Where("shift_request_id = ?", *target.ShiftRequestID)
	}

	var comments []model.Comment
	err := query.Order("created_at DESC, id DESC").Find(&comments).Error
	return comments, err
}

func (r *commentRepository) FindByID(storeID, id uint) (*model.Comment, error) {
	var comment model.Comment
	if err := r.db.Preload("Author").Where("store_id = ? AND id = ?", storeID, id).First(&comment).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *commentRepository) Create(comment *model.Comment) error {
	return r.db.Omit(clause.Associations).Create(comment).Error
}

func (r *commentRepository) Update(comment *model.Comment) error {
	return r.db.Omit(clause.Associations).Save(comment).Error
}

func (r *commentRepository) Delete(storeID, id uint) error {
	return deleteScoped(r.db, &model.Comment{}, storeID, id)
}
