package service

import (
	"errors"
	"strings"

	"github.com/yorunoba/nightdesk-backend/internal/app/model"
	"github.com/yorunoba/nightdesk-backend/internal/app/repository"
	"github.com/yorunoba/nightdesk-backend/pkg/logger"
	"github.com/yorunoba/nightdesk-backend/pkg/util"
	"gorm.io/gorm"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrInvalidRole     = errors.New("invalid role")
	ErrLastAdmin       = errors.New("store must keep at least one active admin")
)

type CreateProfileInput struct {
	DisplayName string
	RealName    string
	Role        model.ProfileRole
	Phone       string
	AvatarURL   string
	Note        string
	// Email and Password create a login for the profile when both are set.
	// An existing account with the same email is linked instead.
	Email    string
	Password string
}

type UpdateProfileInput struct {
	DisplayName *string
	RealName    *string
	Role        *model.ProfileRole
	Phone       *string
	AvatarURL   *string
	Note        *string
	IsActive    *bool
}

type ProfileService interface {
	ListProfiles(actor model.Actor, filter repository.ProfileFilter) ([]model.Profile, error)
	GetProfile(actor model.Actor, id uint) (*model.Profile, error)
	CreateProfile(actor model.Actor, input CreateProfileInput) (*model.Profile, error)
	UpdateProfile(actor model.Actor, id uint, input UpdateProfileInput) (*model.Profile, error)
	DeactivateProfile(actor model.Actor, id uint) (*model.Profile, error)
	DeleteProfile(actor model.Actor, id uint) error
}

type profileService struct {
	profileRepo repository.ProfileRepository
	accountRepo repository.AccountRepository
	labels      LabelCache
}

func NewProfileService(
	profileRepo repository.ProfileRepository,
	accountRepo repository.AccountRepository,
	labels LabelCache,
) ProfileService {
	return &profileService{
		profileRepo: profileRepo,
		accountRepo: accountRepo,
		labels:      labelCacheOrNoop(labels),
	}
}

func (s *profileService) ListProfiles(actor model.Actor, filter repository.ProfileFilter) ([]model.Profile, error) {
	if filter.Role != "" && !filter.Role.Valid() {
		return nil, ErrInvalidRole
	}
	return s.profileRepo.FindAll(actor.StoreID, filter)
}

func (s *profileService) GetProfile(actor model.Actor, id uint) (*model.Profile, error) {
	profile, err := s.profileRepo.FindByID(actor.StoreID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		logger.Error("Failed to fetch profile", err, map[string]interface{}{
			"store_id":   actor.StoreID,
			"profile_id": id,
		})
		return nil, err
	}
	return profile, nil
}

func (s *profileService) CreateProfile(actor model.Actor, input CreateProfileInput) (*model.Profile, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if !input.Role.Valid() {
		return nil, ErrInvalidRole
	}
	name := strings.TrimSpace(input.DisplayName)
	if name == "" {
		return nil, ErrInvalidInput
	}

	profile := &model.Profile{
		StoreID:     actor.StoreID,
		DisplayName: name,
		RealName:    strings.TrimSpace(input.RealName),
		Role:        input.Role,
		Phone:       strings.TrimSpace(input.Phone),
		AvatarURL:   input.AvatarURL,
		Note:        input.Note,
		IsActive:    true,
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	switch {
	case email == "":
		if err := s.profileRepo.Create(profile); err != nil {
			return nil, err
		}

	default:
		existing, err := s.accountRepo.FindByEmail(email)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if existing != nil {
			profile.AccountID = &existing.ID
			if err := s.profileRepo.Create(profile); err != nil {
				return nil, err
			}
			break
		}

		if err := util.ValidatePassword(input.Password); err != nil {
			return nil, err
		}
		hashed, err := util.HashPassword(input.Password)
		if err != nil {
			logger.Error("Failed to hash password", err, map[string]interface{}{
				"email": email,
			})
			return nil, err
		}
		account := &model.Account{Email: email, PasswordHash: hashed}
		if err := s.profileRepo.CreateWithAccount(profile, account); err != nil {
			logger.Error("Failed to create profile with account", err, map[string]interface{}{
				"store_id": actor.StoreID,
				"email":    email,
			})
			return nil, err
		}
	}

	s.labels.Invalidate(actor.StoreID, "profiles")
	logger.Info("Profile created", map[string]interface{}{
		"store_id":   actor.StoreID,
		"profile_id": profile.ID,
		"role":       profile.Role,
		"has_login":  profile.AccountID != nil,
	})
	return profile, nil
}

func (s *profileService) UpdateProfile(actor model.Actor, id uint, input UpdateProfileInput) (*model.Profile, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	profile, err := s.GetProfile(actor, id)
	if err != nil {
		return nil, err
	}

	losesAdmin := false
	if input.Role != nil {
		if !input.Role.Valid() {
			return nil, ErrInvalidRole
		}
		losesAdmin = profile.Role == model.RoleAdmin && profile.IsActive && *input.Role != model.RoleAdmin
		profile.Role = *input.Role
	}
	if input.IsActive != nil {
		losesAdmin = losesAdmin || (profile.Role == model.RoleAdmin && profile.IsActive && !*input.IsActive)
		profile.IsActive = *input.IsActive
	}
	if losesAdmin {
		if err := s.ensureAnotherAdmin(actor.StoreID); err != nil {
			return nil, err
		}
	}

	if input.DisplayName != nil {
		name := strings.TrimSpace(*input.DisplayName)
		if name == "" {
			return nil, ErrInvalidInput
		}
		profile.DisplayName = name
	}
	if input.RealName != nil {
		profile.RealName = strings.TrimSpace(*input.RealName)
	}
	if input.Phone != nil {
		profile.Phone = strings.TrimSpace(*input.Phone)
	}
	if input.AvatarURL != nil {
		profile.AvatarURL = *input.AvatarURL
	}
	if input.Note != nil {
		profile.Note = *input.Note
	}

	if err := s.profileRepo.Update(profile); err != nil {
		return nil, err
	}

	s.labels.Invalidate(actor.StoreID, "profiles")
	logger.Info("Profile updated", map[string]interface{}{
		"store_id":   actor.StoreID,
		"profile_id": profile.ID,
		"updated_by": actor.ProfileID,
	})
	return profile, nil
}

func (s *profileService) DeactivateProfile(actor model.Actor, id uint) (*model.Profile, error) {
	inactive := false
	return s.UpdateProfile(actor, id, UpdateProfileInput{IsActive: &inactive})
}

func (s *profileService) DeleteProfile(actor model.Actor, id uint) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}

	profile, err := s.GetProfile(actor, id)
	if err != nil {
		return err
	}
	if profile.Role == model.RoleAdmin && profile.IsActive {
		if err := s.ensureAnotherAdmin(actor.StoreID); err != nil {
			return err
		}
	}

	if err := s.profileRepo.Delete(actor.StoreID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProfileNotFound
		}
		return err
	}

	s.labels.Invalidate(actor.StoreID, "profiles")
	logger.Info("Profile deleted", map[string]interface{}{
		"store_id":   actor.StoreID,
		"profile_id": id,
		"deleted_by": actor.ProfileID,
	})
	return nil
}

// ensureAnotherAdmin is called before an active admin stops being one.
func (s *profileService) ensureAnotherAdmin(storeID uint) error {
	count, err := s.profileRepo.CountActiveAdmins(storeID)
	if err != nil {
		return err
	}
	if count <= 1 {
		return ErrLastAdmin
	}
	return nil
}
