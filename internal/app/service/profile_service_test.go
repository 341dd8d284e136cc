package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yorunoba/nightdesk-backend/internal/app/model"
	"github.com/yorunoba/nightdesk-backend/internal/app/repository"
	"github.com/yorunoba/nightdesk-backend/pkg/util"
	"gorm.io/gorm"
)

func setupProfileServiceTest(t *testing.T) (ProfileService, *recordingCache, *model.Profile, *gorm.DB) {
	testDB := setupServiceTest(t)
	cache := &recordingCache{}
	profileService := NewProfileService(
		repository.NewProfileRepository(testDB),
		repository.NewAccountRepository(testDB),
		cache,
	)
	store := createStore(t, testDB, "Club Luna")
	admin := createProfile(t, testDB, store.ID, "Mama", model.RoleAdmin)
	return profileService, cache, admin, testDB
}

func TestProfileService_CreateProfile(t *testing.T) {
	profileService, cache, admin, testDB := setupProfileServiceTest(t)
	actor := actorOf(admin)

	guest, err := profileService.CreateProfile(actor, CreateProfileInput{DisplayName: "  Tanaka  ", Role: model.RoleGuest})
	require.NoError(t, err)
	assert.Equal(t, "Tanaka", guest.DisplayName)
	assert.True(t, guest.IsActive)
	assert.Nil(t, guest.AccountID)
	assert.Contains(t, cache.tables, "profiles")

	cast, err := profileService.CreateProfile(actor, CreateProfileInput{
		DisplayName: "Rin",
		Role:        model.RoleCast,
		Email:       "Rin@Example.com",
		Password:    "password123",
	})
	require.NoError(t, err)
	require.NotNil(t, cast.AccountID)

	var account model.Account
	require.NoError(t, testDB.First(&account, *cast.AccountID).Error)
	assert.Equal(t, "rin@example.com", account.Email)
	assert.True(t, util.VerifyPassword(account.PasswordHash, "password123"))

	// an existing login is linked instead of duplicated
	other := createStore(t, testDB, "Bar Sol")
	otherAdmin := createProfile(t, testDB, other.ID, "Owner", model.RoleAdmin)
	linked, err := profileService.CreateProfile(actorOf(otherAdmin), CreateProfileInput{
		DisplayName: "Rin",
		Role:        model.RoleCast,
		Email:       "rin@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, *cast.AccountID, *linked.AccountID)
}

func TestProfileService_CreateProfile_Errors(t *testing.T) {
	profileService, _, admin, testDB := setupProfileServiceTest(t)
	staff := createProfile(t, testDB, admin.StoreID, "Kuro", model.RoleStaff)

	tests := []struct {
		name    string
		actor   model.Actor
		input   CreateProfileInput
		wantErr error
	}{
		{name: "Staff cannot create", actor: actorOf(staff), input: CreateProfileInput{DisplayName: "A", Role: model.RoleGuest}, wantErr: ErrForbidden},
		{name: "Unknown role", actor: actorOf(admin), input: CreateProfileInput{DisplayName: "A", Role: "owner"}, wantErr: ErrInvalidRole},
		{name: "Blank name", actor: actorOf(admin), input: CreateProfileInput{DisplayName: "  ", Role: model.RoleGuest}, wantErr: ErrInvalidInput},
		{name: "Weak password", actor: actorOf(admin), input: CreateProfileInput{DisplayName: "A", Role: model.RoleCast, Email: "a@example.com", Password: "123"}, wantErr: util.ErrWeakPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile, err := profileService.CreateProfile(tt.actor, tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, profile)
		})
	}
}

func TestProfileService_ListAndGet(t *testing.T) {
	profileService, _, admin, testDB := setupProfileServiceTest(t)
	createProfile(t, testDB, admin.StoreID, "Rin", model.RoleCast)
	createProfile(t, testDB, admin.StoreID, "Rina", model.RoleCast)
	other := createStore(t, testDB, "Bar Sol")
	foreign := createProfile(t, testDB, other.ID, "Rin", model.RoleCast)
	actor := actorOf(admin)

	casts, err := profileService.ListProfiles(actor, repository.ProfileFilter{Role: model.RoleCast})
	require.NoError(t, err)
	assert.Len(t, casts, 2)

	found, err := profileService.ListProfiles(actor, repository.ProfileFilter{Search: "RINA"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Rina", found[0].DisplayName)

	_, err = profileService.ListProfiles(actor, repository.ProfileFilter{Role: "owner"})
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = profileService.GetProfile(actor, foreign.ID)
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestProfileService_LastAdminIsProtected(t *testing.T) {
	profileService, _, admin, testDB := setupProfileServiceTest(t)
	actor := actorOf(admin)

	staffRole := model.RoleStaff
	_, err := profileService.UpdateProfile(actor, admin.ID, UpdateProfileInput{Role: &staffRole})
	assert.ErrorIs(t, err, ErrLastAdmin)

	_, err = profileService.DeactivateProfile(actor, admin.ID)
	assert.ErrorIs(t, err, ErrLastAdmin)

	assert.ErrorIs(t, profileService.DeleteProfile(actor, admin.ID), ErrLastAdmin)

	second := createProfile(t, testDB, admin.StoreID, "Second", model.RoleAdmin)
	demoted, err := profileService.UpdateProfile(actor, second.ID, UpdateProfileInput{Role: &staffRole})
	require.NoError(t, err)
	assert.Equal(t, model.RoleStaff, demoted.Role)
}

func TestProfileService_UpdateAndDelete(t *testing.T) {
	profileService, cache, admin, testDB := setupProfileServiceTest(t)
	actor := actorOf(admin)
	cast := createProfile(t, testDB, admin.StoreID, "Rin", model.RoleCast)

	name := "Rin-chan"
	note := "VIP regulars"
	updated, err := profileService.UpdateProfile(actor, cast.ID, UpdateProfileInput{DisplayName: &name, Note: &note})
	require.NoError(t, err)
	assert.Equal(t, "Rin-chan", updated.DisplayName)
	assert.Equal(t, "VIP regulars", updated.Note)

	deactivated, err := profileService.DeactivateProfile(actor, cast.ID)
	require.NoError(t, err)
	assert.False(t, deactivated.IsActive)

	cache.tables = nil
	require.NoError(t, profileService.DeleteProfile(actor, cast.ID))
	assert.Equal(t, []string{"profiles"}, cache.tables)
	assert.ErrorIs(t, profileService.DeleteProfile(actor, cast.ID), ErrProfileNotFound)
}
