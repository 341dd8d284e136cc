package repository

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yorunoba/nightdesk-backend/internal/app/model"
	"github.com/yorunoba/nightdesk-backend/internal/db"
	"gorm.io/gorm"
)

func setupRepositoryTest(t *testing.T) *gorm.DB {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })
	return testDB
}

func createStore(t *testing.T, testDB *gorm.DB, name string) *model.Store {
	store := &model.Store{Name: name, IsActive: true}
	require.NoError(t, testDB.Create(store).Error)
	return store
}

func createProfile(t *testing.T, testDB *gorm.DB, storeID uint, name string, role model.ProfileRole) *model.Profile {
	profile := &model.Profile{StoreID: storeID, DisplayName: name, Role: role, IsActive: true}
	require.NoError(t, testDB.Create(profile).Error)
	return profile
}
