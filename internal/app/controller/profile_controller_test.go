package controller

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yorunoba/nightdesk-backend/internal/app/model"
	"github.com/yorunoba/nightdesk-backend/internal/app/repository"
	"github.com/yorunoba/nightdesk-backend/internal/app/service"
	apperrors "github.com/yorunoba/nightdesk-backend/internal/errors"
	"gorm.io/gorm"
)

type profileFixture struct {
	db    *gorm.DB
	store *model.Store
	admin *model.Profile
	cast  *model.Profile
}

func newProfileFixture(t *testing.T) *profileFixture {
	testDB := setupControllerDB(t)
	store := &model.Store{Name: "Club Luna", IsActive: true}
	require.NoError(t, testDB.Create(store).Error)
	admin := &model.Profile{StoreID: store.ID, DisplayName: "オーナー", Role: model.RoleAdmin, IsActive: true}
	require.NoError(t, testDB.Create(admin).Error)
	cast := &model.Profile{StoreID: store.ID, DisplayName: "みお", Role: model.RoleCast, IsActive: true}
	require.NoError(t, testDB.Create(cast).Error)
	return &profileFixture{db: testDB, store: store, admin: admin, cast: cast}
}

func (f *profileFixture) router(actor *model.Profile) *gin.Engine {
	profileService := service.NewProfileService(
		repository.NewProfileRepository(f.db),
		repository.NewAccountRepository(f.db),
		nil,
	)
	ctrl := NewProfileController(profileService)

	router := gin.New()
	group := router.Group("/profiles", withActor(model.Actor{StoreID: actor.StoreID, ProfileID: actor.ID, Role: actor.Role}))
	group.GET("", ctrl.ListProfiles)
	group.GET("/:id", ctrl.GetProfile)
	group.POST("", ctrl.CreateProfile)
	group.PUT("/:id", ctrl.UpdateProfile)
	group.POST("/:id/deactivate", ctrl.DeactivateProfile)
	group.DELETE("/:id", ctrl.DeleteProfile)
	return router
}

func TestProfileController_CreateAndList(t *testing.T) {
	f := newProfileFixture(t)
	router := f.router(f.admin)

	w := doJSON(router, http.MethodPost, "/profiles", CreateProfileRequest{
		DisplayName: "田中様",
		Role:        model.RoleGuest,
		Note:        "モエ好き",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeBody(t, w)["profile"].(map[string]interface{})
	assert.Equal(t, "guest", created["role"])

	w = doJSON(router, http.MethodGet, "/profiles?role=guest", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decodeBody(t, w)["count"])

	w = doJSON(router, http.MethodGet, "/profiles?role=owner", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProfileController_CastCannotManage(t *testing.T) {
	f := newProfileFixture(t)
	router := f.router(f.cast)

	w := doJSON(router, http.MethodPost, "/profiles", CreateProfileRequest{DisplayName: "新人", Role: model.RoleCast})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, apperrors.AuthzForbidden, decodeBody(t, w)["error"])

	w = doJSON(router, http.MethodDelete, fmt.Sprintf("/profiles/%d", f.admin.ID), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestProfileController_GetAndDeactivate(t *testing.T) {
	f := newProfileFixture(t)
	router := f.router(f.admin)

	w := doJSON(router, http.MethodGet, fmt.Sprintf("/profiles/%d", f.cast.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "みお", decodeBody(t, w)["profile"].(map[string]interface{})["display_name"])

	w = doJSON(router, http.MethodGet, "/profiles/9999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.ProfileNotFound, decodeBody(t, w)["error"])

	w = doJSON(router, http.MethodPost, fmt.Sprintf("/profiles/%d/deactivate", f.cast.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decodeBody(t, w)["profile"].(map[string]interface{})["is_active"])

	// the only admin cannot remove itself
	w = doJSON(router, http.MethodDelete, fmt.Sprintf("/profiles/%d", f.admin.ID), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apperrors.ProfileLastAdmin, decodeBody(t, w)["error"])
}
