package repository

import (
	"strings"

	"github.com/yorunoba/nightdesk-backend/internal/app/model"
	"github.com/yorunoba/nightdesk-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProfileFilter struct {
	Role       model.ProfileRole
	ActiveOnly bool
	Search     string
}

type ProfileRepository interface {
	Create(profile *model.Profile) error
	// CreateWithAccount creates a login account and the profile that uses it.
	CreateWithAccount(profile *model.Profile, account *model.Account) error
	Update(profile *model.Profile) error
	Delete(storeID, id uint) error
	FindByID(storeID, id uint) (*model.Profile, error)
	FindAll(storeID uint, filter ProfileFilter) ([]model.Profile, error)
	FindByAccountID(accountID uint) ([]model.Profile, error)
	FindByIDs(storeID uint, ids []uint) ([]model.Profile, error)
	CountActiveAdmins(storeID uint) (int64, error)
	CountByRole(storeID uint) (map[model.ProfileRole]int64, error)
}

type profileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) Create(profile *model.Profile) error {
	if err := r.db.Create(profile).Error; err != nil {
		logger.Error("Failed to create profile", err, map[string]interface{}{
			"store_id": profile.StoreID,
			"role":     profile.Role,
		})
		return err
	}
	return nil
}

func (r *profileRepository) CreateWithAccount(profile *model.Profile, account *model.Account) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(account).Error; err != nil {
			return err
		}
		profile.AccountID = &account.ID
		return tx.Create(profile).Error
	})
}

func (r *profileRepository) Update(profile *model.Profile) error {
	if err := r.db.Omit(clause.Associations).Save(profile).Error; err != nil {
		logger.Error("Failed to update profile", err, map[string]interface{}{
			"profile_id": profile.ID,
		})
		return err
	}
	return nil
}

func (r *profileRepository) Delete(storeID, id uint) error {
	return deleteScoped(r.db, &model.Profile{}, storeID, id)
}

func (r *profileRepository) FindByID(storeID, id uint) (*model.Profile, error) {
	var profile model.Profile
	if err := r.db.Where("store_id = ? AND id = ?", storeID, id).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepository) FindAll(storeID uint, filter ProfileFilter) ([]model.Profile, error) {
	query := r.db.Where("store_id = ?", storeID)
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(display_name) LIKE ? OR LOWER(real_name) LIKE ?", like, like)
	}

	var profiles []model.Profile
	if err := query.Order("role ASC, display_name ASC").Find(&profiles).Error; err != nil {
		logger.Error("Failed to list profiles", err, map[string]interface{}{
			"store_id": storeID,
		})
		return nil, err
	}
	return profiles, nil
}

func (r *profileRepository) FindByAccountID(accountID uint) ([]model.Profile, error) {
	var profiles []model.Profile
	err := r.db.Preload("Store").
		Where("account_id = ?", accountID).
		Order("id ASC").
		Find(&profiles).Error
	return profiles, err
}

func (r *profileRepository) FindByIDs(storeID uint, ids []uint) ([]model.Profile, error) {
	var profiles []model.Profile
	if len(ids) == 0 {
		return profiles, nil
	}
	err := r.db.Where("store_id = ? AND id IN ?", storeID, ids).Find(&profiles).Error
	return profiles, err
}

func (r *profileRepository) CountActiveAdmins(storeID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.Profile{}).
		Where("store_id = ? AND role = ? AND is_active = ?", storeID, model.RoleAdmin, true).
		Count(&count).Error
	return count, err
}

func (r *profileRepository) CountByRole(storeID uint) (map[model.ProfileRole]int64, error) {
	var rows []struct {
		Role  model.ProfileRole
		Count int64
	}
	err := r.db.Model(&model.Profile{}).
		Select("role, COUNT(*) AS count").
		Where("store_id = ? AND is_active = ?", storeID, true).
		Group("role").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := map[model.ProfileRole]int64{
		model.RoleGuest: 0,
		model.RoleCast:  0,
		model.RoleStaff: 0,
		model.RoleAdmin: 0,
	}
	for _, row := range rows {
		counts[row.Role] = row.Count
	}
	return counts, nil
}
