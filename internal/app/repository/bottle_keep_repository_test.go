package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yorunoba/nightdesk-backend/internal/app/model"
)

func TestBottleKeepRepository_CreateAndFilter(t *testing.T) {
	testDB := setupRepositoryTest(t)
	repo := NewBottleKeepRepository(testDB)

	store := createStore(t, testDB, "Club Luna")
	tanaka := createProfile(t, testDB, store.ID, "Tanaka", model.RoleGuest)
	suzuki := createProfile(t, testDB, store.ID, "Suzuki", model.RoleGuest)

	hennessy := &model.BottleKeep{
		StoreID: store.ID, BottleName: "Hennessy VSOP", OpenedOn: "2026-09-01",
		ExpiresOn: "2026-12-01", RemainingPercent: 80, Status: model.BottleActive,
	}
	require.NoError(t, repo.Create(hennessy, []uint{tanaka.ID, suzuki.ID}))

	kakubin := &model.BottleKeep{
		StoreID: store.ID, BottleName: "Kakubin", OpenedOn: "2026-10-01",
		ExpiresOn: "2027-04-01", RemainingPercent: 100, Status: model.BottleActive,
	}
	require.NoError(t, repo.Create(kakubin, []uint{suzuki.ID}))

	all, err := repo.FindAll(store.ID, BottleKeepFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byTanaka, err := repo.FindAll(store.ID, BottleKeepFilter{HolderID: &tanaka.ID})
	require.NoError(t, err)
	require.Len(t, byTanaka, 1)
	assert.Equal(t, "Hennessy VSOP", byTanaka[0].BottleName)
	assert.Len(t, byTanaka[0].Holders, 2)

	expiring, err := repo.FindAll(store.ID, BottleKeepFilter{ExpiringBefore: "2026-12-31"})
	require.NoError(t, err)
	require.Len(t, expiring, 1)

	n, err := repo.CountExpiring(store.ID, "2026-11-25", "2026-12-02")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestBottleKeepRepository_ExpireOverdue(t *testing.T) {
	testDB := setupRepositoryTest(t)
	repo := NewBottleKeepRepository(testDB)

	store := createStore(t, testDB, "Club Luna")
	guest := createProfile(t, testDB, store.ID, "Tanaka", model.RoleGuest)

	bottles := []*model.BottleKeep{
		{StoreID: store.ID, BottleName: "Overdue", OpenedOn: "2026-01-01", ExpiresOn: "2026-10-18", Status: model.BottleActive},
		{StoreID: store.ID, BottleName: "Today", OpenedOn: "2026-01-01", ExpiresOn: "2026-10-19", Status: model.BottleActive},
		{StoreID: store.ID, BottleName: "Finished", OpenedOn: "2026-01-01", ExpiresOn: "2026-01-31", Status: model.BottleFinished},
		{StoreID: store.ID, BottleName: "No expiry", OpenedOn: "2026-01-01", Status: model.BottleActive},
	}
	for _, b := range bottles {
		require.NoError(t, repo.Create(b, []uint{guest.ID}))
	}

	n, err := repo.ExpireOverdue("2026-10-19")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	found, err := repo.FindByID(store.ID, bottles[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.BottleExpired, found.Status)

	active, err := repo.CountActive(store.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), active)
}

func TestBottleKeepRepository_Holders(t *testing.T) {
	testDB := setupRepositoryTest(t)
	repo := NewBottleKeepRepository(testDB)

	store := createStore(t, testDB, "Club Luna")
	a := createProfile(t, testDB, store.ID, "Tanaka", model.RoleGuest)
	b := createProfile(t, testDB, store.ID, "Suzuki", model.RoleGuest)

	bottle := &model.BottleKeep{StoreID: store.ID, BottleName: "Yamazaki 12", OpenedOn: "2026-10-01", Status: model.BottleActive}
	require.NoError(t, repo.Create(bottle, []uint{a.ID}))

	require.NoError(t, repo.AddHolder(bottle.ID, b.ID))
	require.NoError(t, repo.AddHolder(bottle.ID, b.ID))

	count, err := repo.CountHolders(bottle.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	require.NoError(t, repo.RemoveHolder(bottle.ID, a.ID))
	assert.Error(t, repo.RemoveHolder(bottle.ID, a.ID))
}
