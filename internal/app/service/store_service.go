package service

import (
	"errors"
	"strings"

	"github.com/yorunoba/nightdesk-backend/internal/app/model"
	"github.com/yorunoba/nightdesk-backend/internal/app/repository"
	"github.com/yorunoba/nightdesk-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrStoreNotFound    = errors.New("store not found")
	ErrInvalidClockTime = errors.New("invalid time of day")
)

type StoreUpdateInput struct {
	Name        *string
	Address     *string
	PhoneNumber *string
	OpenTime    *string
	CloseTime   *string
	LogoURL     *string
}

type StoreService interface {
	GetStore(storeID uint) (*model.Store, error)
	UpdateStore(actor model.Actor, input StoreUpdateInput) (*model.Store, error)
}

type storeService struct {
	repo   repository.StoreRepository
	labels LabelCache
}

func NewStoreService(repo repository.StoreRepository, labels LabelCache) StoreService {
	return &storeService{repo: repo, labels: labelCacheOrNoop(labels)}
}

func (s *storeService) GetStore(storeID uint) (*model.Store, error) {
	store, err := s.repo.FindByID(storeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStoreNotFound
		}
		logger.Error("Failed to fetch store", err, map[string]interface{}{
			"store_id": storeID,
		})
		return nil, err
	}
	return store, nil
}

func (s *storeService) UpdateStore(actor model.Actor, input StoreUpdateInput) (*model.Store, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	store, err := s.GetStore(actor.StoreID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrInvalidInput
		}
		store.Name = name
	}
	if input.Address != nil {
		store.Address = strings.TrimSpace(*input.Address)
	}
	if input.PhoneNumber != nil {
		store.PhoneNumber = strings.TrimSpace(*input.PhoneNumber)
	}
	if input.OpenTime != nil {
		if *input.OpenTime != "" {
			if _, err := model.ParseClock(*input.OpenTime); err != nil {
				return nil, ErrInvalidClockTime
			}
		}
		store.OpenTime = *input.OpenTime
	}
	if input.CloseTime != nil {
		if *input.CloseTime != "" {
			if _, err := model.ParseClock(*input.CloseTime); err != nil {
				return nil, ErrInvalidClockTime
			}
		}
		store.CloseTime = *input.CloseTime
	}
	if input.LogoURL != nil {
		store.LogoURL = *input.LogoURL
	}

	if err := s.repo.Update(store); err != nil {
		return nil, err
	}
	s.labels.Invalidate(store.ID, "stores")

	logger.Info("Store updated", map[string]interface{}{
		"store_id":   store.ID,
		"updated_by": actor.ProfileID,
	})
	return store, nil
}
