package repository

import (
	"strings"
	"time"

	"github.com/yorunoba/nightdesk-backend/internal/app/model"
	"gorm.io/gorm"
)

type AccountRepository interface {
	FindByID(id uint) (*model.Account, error)
	FindByEmail(email string) (*model.Account, error)
	TouchLastLogin(id uint, at time.Time) error
}

type accountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) FindByID(id uint) (*model.Account, error) {
	var account model.Account
	if err := r.db.First(&account, id).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) FindByEmail(email string) (*model.Account, error) {
	var account model.Account
	err := r.db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) TouchLastLogin(id uint, at time.Time) error {
	return r.db.Model(&model.Account{}).Where("id = ?", id).Update("last_login_at", at).Error
}
