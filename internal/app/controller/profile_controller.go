package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yorunoba/nightdesk-backend/internal/app/model"
	"github.com/yorunoba/nightdesk-backend/internal/app/repository"
	"github.com/yorunoba/nightdesk-backend/internal/app/service"
	"github.com/yorunoba/nightdesk-backend/internal/middleware"
)

type ProfileController struct {
	profileService service.ProfileService
}

func NewProfileController(profileService service.ProfileService) *ProfileController {
	return &ProfileController{profileService: profileService}
}

type CreateProfileRequest struct {
	DisplayName string            `json:"display_name" binding:"required"`
	RealName    string            `json:"real_name"`
	Role        model.ProfileRole `json:"role" binding:"required"`
	Phone       string            `json:"phone"`
	AvatarURL   string            `json:"avatar_url"`
	Note        string            `json:"note"`
	Email       string            `json:"email" binding:"omitempty,email"`
	Password    string            `json:"password"`
}

type UpdateProfileRequest struct {
	DisplayName *string            `json:"display_name"`
	RealName    *string            `json:"real_name"`
	Role        *model.ProfileRole `json:"role"`
	Phone       *string            `json:"phone"`
	AvatarURL   *string            `json:"avatar_url"`
	Note        *string            `json:"note"`
	IsActive    *bool              `json:"is_active"`
}

// ListProfiles lists the store's profiles
// GET /api/v1/profiles?role=cast&active=true&search=
func (ctrl *ProfileController) ListProfiles(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	filter := repository.ProfileFilter{
		Role:       model.ProfileRole(c.Query("role")),
		ActiveOnly: c.Query("active") == "true",
		Search:     c.Query("search"),
	}
	profiles, err := ctrl.profileService.ListProfiles(actor, filter)
	if err != nil {
		respondError(c, err, "list profiles")
		return
	}
	c.JSON(http.StatusOK, gin.H{"profiles": profiles, "count": len(profiles)})
}

// GetProfile returns one profile
// GET /api/v1/profiles/:id
func (ctrl *ProfileController) GetProfile(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	profile, err := ctrl.profileService.GetProfile(actor, id)
	if err != nil {
		respondError(c, err, "fetch profile")
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// CreateProfile adds a guest, cast, staff or admin profile (admin)
// POST /api/v1/profiles
func (ctrl *ProfileController) CreateProfile(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req CreateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	profile, err := ctrl.profileService.CreateProfile(actor, service.CreateProfileInput{
		DisplayName: req.DisplayName,
		RealName:    req.RealName,
		Role:        req.Role,
		Phone:       req.Phone,
		AvatarURL:   req.AvatarURL,
		Note:        req.Note,
		Email:       req.Email,
		Password:    req.Password,
	})
	if err != nil {
		respondError(c, err, "create profile")
		return
	}

	log.Info("Profile created", map[string]interface{}{
		"profile_id": profile.ID,
		"role":       profile.Role,
		"has_login":  profile.AccountID != nil,
	})
	c.JSON(http.StatusCreated, gin.H{"profile": profile})
}

// UpdateProfile edits a profile (admin)
// PUT /api/v1/profiles/:id
func (ctrl *ProfileController) UpdateProfile(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	profile, err := ctrl.profileService.UpdateProfile(actor, id, service.UpdateProfileInput{
		DisplayName: req.DisplayName,
		RealName:    req.RealName,
		Role:        req.Role,
		Phone:       req.Phone,
		AvatarURL:   req.AvatarURL,
		Note:        req.Note,
		IsActive:    req.IsActive,
	})
	if err != nil {
		respondError(c, err, "update profile")
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// DeactivateProfile keeps the row but blocks login (admin)
// POST /api/v1/profiles/:id/deactivate
func (ctrl *ProfileController) DeactivateProfile(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	profile, err := ctrl.profileService.DeactivateProfile(actor, id)
	if err != nil {
		respondError(c, err, "update profile")
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// DeleteProfile removes a profile (admin)
// DELETE /api/v1/profiles/:id
func (ctrl *ProfileController) DeleteProfile(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.profileService.DeleteProfile(actor, id); err != nil {
		respondError(c, err, "delete profile")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "プロフィールを削除しました"})
}
