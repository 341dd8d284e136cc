package repository

import (
	"github.com/yorunoba/nightdesk-backend/internal/app/model"
	"github.com/yorunoba/nightdesk-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StoreRepository interface {
	FindByID(id uint) (*model.Store, error)
	Update(store *model.Store) error
	// CreateWithOwner creates the store, the owner account and its admin profile atomically.
	CreateWithOwner(store *model.Store, account *model.Account, profile *model.Profile) error
}

type storeRepository struct {
	db *gorm.DB
}

func NewStoreRepository(db *gorm.DB) StoreRepository {
	return &storeRepository{db: db}
}

func (r *storeRepository) FindByID(id uint) (*model.Store, error) {
	var store model.Store
	if err := r.db.First(&store, id).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

func (r *storeRepository) Update(store *model.Store) error {
	logger.Debug("Updating store in database", map[string]interface{}{
		"store_id": store.ID,
		"name":     store.Name,
	})

	if err := r.db.Omit(clause.Associations).Save(store).Error; err != nil {
		logger.Error("Failed to update store in database", err, map[string]interface{}{
			"store_id": store.ID,
		})
		return err
	}
	return nil
}

func (r *storeRepository) CreateWithOwner(store *model.Store, account *model.Account, profile *model.Profile) error {
	logger.Debug("Creating store with owner", map[string]interface{}{
		"name":  store.Name,
		"email": account.Email,
	})

	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(store).Error; err != nil {
			logger.Error("Failed to create store", err, map[string]interface{}{
				"name": store.Name,
			})
			return err
		}
		if err := tx.Create(account).Error; err != nil {
			logger.Error("Failed to create owner account", err, map[string]interface{}{
				"email": account.Email,
			})
			return err
		}

		profile.StoreID = store.ID
		profile.AccountID = &account.ID
		if err := tx.Create(profile).Error; err != nil {
			logger.Error("Failed to create owner profile", err, map[string]interface{}{
				"store_id": store.ID,
			})
			return err
		}
		return nil
	})
}
