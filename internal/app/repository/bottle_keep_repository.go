package repository

import (
	"github.com/yorunoba/nightdesk-backend/internal/app/model"
	"github.com/yorunoba/nightdesk-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BottleKeepFilter struct {
	Status         model.BottleKeepStatus
	HolderID       *uint
	ExpiringBefore string // inclusive YYYY-MM-DD
}

type BottleKeepRepository interface {
	FindAll(storeID uint, filter BottleKeepFilter) ([]model.BottleKeep, error)
	FindByID(storeID, id uint) (*model.BottleKeep, error)
	// Create inserts the bottle and its holders in one transaction.
	Create(bottle *model.BottleKeep, holderIDs []uint) error
	Update(bottle *model.BottleKeep) error
	Delete(storeID, id uint) error
	AddHolder(bottleID, profileID uint) error
	RemoveHolder(bottleID, profileID uint) error
	CountHolders(bottleID uint) (int64, error)
	// ExpireOverdue marks active bottles whose expiry date is before today.
	ExpireOverdue(today string) (int64, error)
	CountActive(storeID uint) (int64, error)
	CountExpiring(storeID uint, from, to string) (int64, error)
}

type bottleKeepRepository struct {
	db *gorm.DB
}

func NewBottleKeepRepository(db *gorm.DB) BottleKeepRepository {
	return &bottleKeepRepository{db: db}
}

func (r *bottleKeepRepository) FindAll(storeID uint, filter BottleKeepFilter) ([]model.BottleKeep, error) {
	query := r.db.Preload("Menu").Preload("Holders.Profile").
		Where("bottle_keeps.store_id = ?", storeID)

	if filter.Status != "" {
		query = query.Where("bottle_keeps.status = ?", filter.Status)
	}
	if filter.HolderID != nil {
		query = query.Where("bottle_keeps.id IN (?)",
			r.db.Model(&model.BottleKeepHolder{}).Select("bottle_keep_id").Where("profile_id = ?", *filter.HolderID))
	}
	if filter.ExpiringBefore != "" {
		query = query.Where("bottle_keeps.expires_on <> '' AND bottle_keeps.expires_on <= ?", filter.ExpiringBefore)
	}

	var bottles []model.BottleKeep
	if err := query.Order("bottle_keeps.opened_on DESC, bottle_keeps.id DESC").Find(&bottles).Error; err != nil {
		logger.Error("Failed to list bottle keeps", err, map[string]interface{}{
			"store_id": storeID,
		})
		return nil, err
	}
	return bottles, nil
}

func (r *bottleKeepRepository) FindByID(storeID, id uint) (*model.BottleKeep, error) {
	var bottle model.BottleKeep
	err := r.db.Preload("Menu").Preload("Holders.Profile").
		Where("store_id = ? AND id = ?", storeID, id).
		First(&bottle).Error
	if err != nil {
		return nil, err
	}
	return &bottle, nil
}

func (r *bottleKeepRepository) Create(bottle *model.BottleKeep, holderIDs []uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(bottle).Error; err != nil {
			logger.Error("Failed to create bottle keep", err, map[string]interface{}{
				"store_id": bottle.StoreID,
			})
			return err
		}
		for _, profileID := range holderIDs {
			holder := model.BottleKeepHolder{BottleKeepID: bottle.ID, ProfileID: profileID}
			if err := tx.Create(&holder).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *bottleKeepRepository) Update(bottle *model.BottleKeep) error {
	return r.db.Omit(clause.Associations).Save(bottle).Error
}

func (r *bottleKeepRepository) Delete(storeID, id uint) error {
	return deleteScoped(r.db, &model.BottleKeep{}, storeID, id)
}

func (r *bottleKeepRepository) AddHolder(bottleID, profileID uint) error {
	holder := model.BottleKeepHolder{BottleKeepID: bottleID, ProfileID: profileID}
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&holder).Error
}

func (r *bottleKeepRepository) RemoveHolder(bottleID, profileID uint) error {
	result := r.db.Where("bottle_keep_id = ? AND profile_id = ?", bottleID, profileID).
		Delete(&model.BottleKeepHolder{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *bottleKeepRepository) CountHolders(bottleID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.BottleKeepHolder{}).Where("bottle_keep_id = ?", bottleID).Count(&count).Error
	return count, err
}

func (r *bottleKeepRepository) ExpireOverdue(today string) (int64, error) {
	result := r.db.Model(&model.BottleKeep{}).
		Where("status = ? AND expires_on <> '' AND expires_on < ?", model.BottleActive, today).
		Update("status", model.BottleExpired)
	return result.RowsAffected, result.Error
}

func (r *bottleKeepRepository) CountActive(storeID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.BottleKeep{}).
		Where("store_id = ? AND status = ?", storeID, model.BottleActive).
		Count(&count).Error
	return count, err
}

func (r *bottleKeepRepository) CountExpiring(storeID uint, from, to string) (int64, error) {
	var count int64
	err := r.db.Model(&model.BottleKeep{}).
		Where("store_id = ? AND status = ? AND expires_on >= ? AND expires_on <= ?", storeID, model.BottleActive, from, to).
		Count(&count).Error
	return count, err
}
