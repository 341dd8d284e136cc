package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yorunoba/nightdesk-backend/internal/app/model"
	"github.com/yorunoba/nightdesk-backend/internal/app/repository"
)

func TestStoreService(t *testing.T) {
	testDB := setupServiceTest(t)
	cache := &recordingCache{}
	storeService := NewStoreService(repository.NewStoreRepository(testDB), cache)

	store := createStore(t, testDB, "Club Luna")
	admin := actorOf(createProfile(t, testDB, store.ID, "Mama", model.RoleAdmin))
	staff := actorOf(createProfile(t, testDB, store.ID, "Kuro", model.RoleStaff))

	_, err := storeService.GetStore(9999)
	assert.ErrorIs(t, err, ErrStoreNotFound)

	name := "Club Luna Ginza"
	_, err = storeService.UpdateStore(staff, StoreUpdateInput{Name: &name})
	assert.ErrorIs(t, err, ErrForbidden)

	blank := " "
	_, err = storeService.UpdateStore(admin, StoreUpdateInput{Name: &blank})
	assert.ErrorIs(t, err, ErrInvalidInput)

	badClock := "30:00"
	_, err = storeService.UpdateStore(admin, StoreUpdateInput{CloseTime: &badClock})
	assert.ErrorIs(t, err, ErrInvalidClockTime)

	open, closing := "20:00", "25:00"
	address := " 東京都中央区銀座 "
	updated, err := storeService.UpdateStore(admin, StoreUpdateInput{
		Name:      &name,
		Address:   &address,
		OpenTime:  &open,
		CloseTime: &closing,
	})
	require.NoError(t, err)
	assert.Equal(t, "Club Luna Ginza", updated.Name)
	assert.Equal(t, "東京都中央区銀座", updated.Address)
	assert.Equal(t, []string{"stores"}, cache.tables)

	stored, err := storeService.GetStore(store.ID)
	require.NoError(t, err)
	assert.Equal(t, "25:00", stored.CloseTime)
	assert.True(t, stored.IsActive)
}
