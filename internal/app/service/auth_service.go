package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/yorunoba/nightdesk-backend/internal/app/model"
	"github.com/yorunoba/nightdesk-backend/internal/app/repository"
	"github.com/yorunoba/nightdesk-backend/pkg/logger"
	"github.com/yorunoba/nightdesk-backend/pkg/redis"
	"github.com/yorunoba/nightdesk-backend/pkg/util"
	"gorm.io/gorm"
)

var (
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNoProfile          = errors.New("account has no profile in this store")
	ErrProfileInactive    = errors.New("profile is inactive")
	ErrInvalidToken       = errors.New("invalid token")
)

type RegisterStoreInput struct {
	StoreName string
	AdminName string
	Email     string
	Password  string
}

// AuthResult is what a successful login or registration returns.
type AuthResult struct {
	Account *model.Account  `json:"account"`
	Profile *model.Profile  `json:"profile"`
	Store   *model.Store    `json:"store"`
	Tokens  *util.TokenPair `json:"tokens"`
}

type AuthService interface {
	RegisterStore(input RegisterStoreInput) (*AuthResult, error)
	// Login picks the profile in storeID, or the first active profile when storeID is nil.
	Login(email, password string, storeID *uint) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*util.TokenPair, error)
	// Logout revokes the access token until it would have expired anyway.
	Logout(ctx context.Context, accessToken string, expiresAt time.Time) error
	Me(accountID uint, actor model.Actor) (*AuthResult, error)
}

type authService struct {
	storeRepo     repository.StoreRepository
	accountRepo   repository.AccountRepository
	profileRepo   repository.ProfileRepository
	revoker       redis.TokenRevoker
	jwtSecret     string
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

func NewAuthService(
	storeRepo repository.StoreRepository,
	accountRepo repository.AccountRepository,
	profileRepo repository.ProfileRepository,
	revoker redis.TokenRevoker,
	jwtSecret string,
	accessExpiry, refreshExpiry time.Duration,
) AuthService {
	return &authService{
		storeRepo:     storeRepo,
		accountRepo:   accountRepo,
		profileRepo:   profileRepo,
		revoker:       revoker,
		jwtSecret:     jwtSecret,
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}
}

func (s *authService) RegisterStore(input RegisterStoreInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	logger.Info("Attempting store registration", map[string]interface{}{
		"email":      email,
		"store_name": input.StoreName,
	})

	if err := util.ValidatePassword(input.Password); err != nil {
		return nil, err
	}

	existing, err := s.accountRepo.FindByEmail(email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("Failed to check existing account", err, map[string]interface{}{
			"email": email,
		})
		return nil, err
	}
	if existing != nil {
		logger.Warn("Registration failed: email already exists", map[string]interface{}{
			"email": email,
		})
		return nil, ErrEmailAlreadyExists
	}

	hashed, err := util.HashPassword(input.Password)
	if err != nil {
		logger.Error("Failed to hash password", err, map[string]interface{}{
			"email": email,
		})
		return nil, err
	}

	store := &model.Store{Name: strings.TrimSpace(input.StoreName), IsActive: true}
	account := &model.Account{Email: email, PasswordHash: hashed}
	profile := &model.Profile{
		DisplayName: strings.TrimSpace(input.AdminName),
		Role:        model.RoleAdmin,
		IsActive:    true,
	}
	if err := s.storeRepo.CreateWithOwner(store, account, profile); err != nil {
		return nil, err
	}

	tokens, err := s.issue(account, profile)
	if err != nil {
		return nil, err
	}

	logger.Info("Store registered successfully", map[string]interface{}{
		"store_id":   store.ID,
		"account_id": account.ID,
		"profile_id": profile.ID,
	})

	return &AuthResult{Account: account, Profile: profile, Store: store, Tokens: tokens}, nil
}

func (s *authService) Login(email, password string, storeID *uint) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	logger.Info("Login attempt", map[string]interface{}{
		"email": email,
	})

	account, err := s.accountRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Login failed: account not found", map[string]interface{}{
				"email": email,
			})
			return nil, ErrInvalidCredentials
		}
		logger.Error("Failed to find account", err, map[string]interface{}{
			"email": email,
		})
		return nil, err
	}

	if !util.VerifyPassword(account.PasswordHash, password) {
		logger.Warn("Login failed: invalid password", map[string]interface{}{
			"email":      email,
			"account_id": account.ID,
		})
		return nil, ErrInvalidCredentials
	}

	profiles, err := s.profileRepo.FindByAccountID(account.ID)
	if err != nil {
		logger.Error("Failed to load profiles", err, map[string]interface{}{
			"account_id": account.ID,
		})
		return nil, err
	}

	profile, err := pickProfile(profiles, storeID)
	if err != nil {
		logger.Warn("Login failed: no usable profile", map[string]interface{}{
			"account_id": account.ID,
			"reason":     err.Error(),
		})
		return nil, err
	}

	tokens, err := s.issue(account, profile)
	if err != nil {
		return nil, err
	}

	if err := s.accountRepo.TouchLastLogin(account.ID, nowFunc()); err != nil {
		logger.Warn("Failed to record last login", map[string]interface{}{
			"account_id": account.ID,
			"error":      err.Error(),
		})
	}

	logger.Info("Logged in successfully", map[string]interface{}{
		"account_id": account.ID,
		"profile_id": profile.ID,
		"store_id":   profile.StoreID,
		"role":       profile.Role,
	})

	return &AuthResult{Account: account, Profile: profile, Store: profile.Store, Tokens: tokens}, nil
}

func pickProfile(profiles []model.Profile, storeID *uint) (*model.Profile, error) {
	if storeID != nil {
		for i := range profiles {
			if profiles[i].StoreID == *storeID {
				if !profiles[i].IsActive {
					return nil, ErrProfileInactive
				}
				return &profiles[i], nil
			}
		}
		return nil, ErrNoProfile
	}

	for i := range profiles {
		if profiles[i].IsActive {
			return &profiles[i], nil
		}
	}
	if len(profiles) > 0 {
		return nil, ErrProfileInactive
	}
	return nil, ErrNoProfile
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*util.TokenPair, error) {
	claims, err := util.ValidateToken(refreshToken, s.jwtSecret)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != util.RefreshToken {
		return nil, ErrInvalidToken
	}

	revoked, err := s.revoker.IsRevoked(ctx, refreshToken)
	if err != nil {
		logger.Error("Failed to check token revocation", err, map[string]interface{}{
			"account_id": claims.AccountID,
		})
		return nil, err
	}
	if revoked {
		return nil, ErrInvalidToken
	}

	// role may have changed since the token was issued
	profile, err := s.profileRepo.FindByID(claims.StoreID, claims.ProfileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoProfile
		}
		return nil, err
	}
	if !profile.IsActive {
		return nil, ErrProfileInactive
	}

	account, err := s.accountRepo.FindByID(claims.AccountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	tokens, err := s.issue(account, profile)
	if err != nil {
		return nil, err
	}

	// one-time use
	if ttl := time.Until(claims.ExpiresAt.Time); ttl > 0 {
		if err := s.revoker.Revoke(ctx, refreshToken, ttl); err != nil {
			logger.Warn("Failed to revoke used refresh token", map[string]interface{}{
				"account_id": account.ID,
				"error":      err.Error(),
			})
		}
	}
	return tokens, nil
}

func (s *authService) Logout(ctx context.Context, accessToken string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if err := s.revoker.Revoke(ctx, accessToken, ttl); err != nil {
		logger.Error("Failed to revoke access token", err)
		return err
	}
	logger.Info("Access token revoked", map[string]interface{}{
		"ttl_seconds": int(ttl.Seconds()),
	})
	return nil
}

func (s *authService) Me(accountID uint, actor model.Actor) (*AuthResult, error) {
	account, err := s.accountRepo.FindByID(accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	profile, err := s.profileRepo.FindByID(actor.StoreID, actor.ProfileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoProfile
		}
		return nil, err
	}
	store, err := s.storeRepo.FindByID(actor.StoreID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStoreNotFound
		}
		return nil, err
	}
	return &AuthResult{Account: account, Profile: profile, Store: store}, nil
}

func (s *authService) issue(account *model.Account, profile *model.Profile) (*util.TokenPair, error) {
	tokens, err := util.GenerateTokenPair(util.TokenSubject{
		AccountID: account.ID,
		ProfileID: profile.ID,
		StoreID:   profile.StoreID,
		Email:     account.Email,
		Role:      string(profile.Role),
	}, s.jwtSecret, s.accessExpiry, s.refreshExpiry)
	if err != nil {
		logger.Error("Failed to generate tokens", err, map[string]interface{}{
			"account_id": account.ID,
			"profile_id": profile.ID,
		})
		return nil, err
	}
	return tokens, nil
}
