package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yorunoba/nightdesk-backend/internal/app/service"
	apperrors "github.com/yorunoba/nightdesk-backend/internal/errors"
	"github.com/yorunoba/nightdesk-backend/internal/middleware"
)

type AuthController struct {
	authService service.AuthService
}

func NewAuthController(authService service.AuthService) *AuthController {
	return &AuthController{authService: authService}
}

type RegisterStoreRequest struct {
	StoreName string `json:"store_name" binding:"required"`
	AdminName string `json:"admin_name" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	// StoreID selects the profile when the account belongs to several stores.
	StoreID *uint `json:"store_id"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RegisterStore creates a store with its first admin
// POST /api/v1/auth/register
func (ctrl *AuthController) RegisterStore(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req RegisterStoreRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := ctrl.authService.RegisterStore(service.RegisterStoreInput{
		StoreName: req.StoreName,
		AdminName: req.AdminName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		respondError(c, err, "register store")
		return
	}

	log.Info("Store registered", map[string]interface{}{
		"store_id":   result.Store.ID,
		"account_id": result.Account.ID,
	})
	c.JSON(http.StatusCreated, result)
}

// Login issues a token pair for one profile
// POST /api/v1/auth/login
func (ctrl *AuthController) Login(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := ctrl.authService.Login(req.Email, req.Password, req.StoreID)
	if err != nil {
		respondError(c, err, "login")
		return
	}

	log.Info("Login successful", map[string]interface{}{
		"account_id": result.Account.ID,
		"profile_id": result.Profile.ID,
		"store_id":   result.Profile.StoreID,
	})
	c.JSON(http.StatusOK, result)
}

// Refresh rotates the token pair
// POST /api/v1/auth/refresh
func (ctrl *AuthController) Refresh(c *gin.Context) {
	var req RefreshTokenRequest
	if !bindJSON(c, &req) {
		return
	}

	tokens, err := ctrl.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, err, "refresh token")
		return
	}
	c.JSON(http.StatusOK, gin.H{"tokens": tokens})
}

// Logout revokes the presented access token
// POST /api/v1/auth/logout
func (ctrl *AuthController) Logout(c *gin.Context) {
	token, expiresAt, ok := middleware.GetAccessToken(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}

	if err := ctrl.authService.Logout(c.Request.Context(), token, expiresAt); err != nil {
		respondError(c, err, "logout")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ログアウトしました"})
}

// Me returns the account, profile and store behind the token
// GET /api/v1/auth/me
func (ctrl *AuthController) Me(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}

	result, err := ctrl.authService.Me(accountID, actor)
	if err != nil {
		respondError(c, err, "fetch me")
		return
	}
	c.JSON(http.StatusOK, result)
}
