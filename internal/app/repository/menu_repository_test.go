package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yorunoba/nightdesk-backend/internal/app/model"
)

func TestMenuRepository_BulkCreateCreatesCategories(t *testing.T) {
	testDB := setupRepositoryTest(t)
	repo := NewMenuRepository(testDB)
	store := createStore(t, testDB, "Club Luna")

	existing := &model.MenuCategory{StoreID: store.ID, Name: "Whisky"}
	require.NoError(t, repo.CreateCategory(existing))

	menus, err := repo.BulkCreate(store.ID, []MenuImportRow{
		{CategoryName: "whisky", Name: "Yamazaki 12", Price: 38000},
		{CategoryName: "Champagne", Name: "Moet", Price: 30000},
		{CategoryName: "Champagne", Name: "Dom Perignon", Price: 80000},
		{Name: "Set charge", Price: 5000},
	})
	require.NoError(t, err)
	require.Len(t, menus, 4)

	assert.Equal(t, existing.ID, *menus[0].CategoryID)
	assert.Equal(t, *menus[1].CategoryID, *menus[2].CategoryID)
	assert.Nil(t, menus[3].CategoryID)

	categories, err := repo.ListCategories(store.ID)
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "Whisky", categories[0].Name)
	assert.Equal(t, "Champagne", categories[1].Name)

	count, err := repo.CountMenusInCategory(store.ID, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestMenuRepository_FindAllHidesHidden(t *testing.T) {
	testDB := setupRepositoryTest(t)
	repo := NewMenuRepository(testDB)
	store := createStore(t, testDB, "Club Luna")

	require.NoError(t, repo.Create(&model.Menu{StoreID: store.ID, Name: "Beer", Price: 1000}))
	require.NoError(t, repo.Create(&model.Menu{StoreID: store.ID, Name: "Secret", Price: 99000, IsHidden: true}))

	visible, err := repo.FindAll(store.ID, MenuFilter{})
	require.NoError(t, err)
	assert.Len(t, visible, 1)

	all, err := repo.FindAll(store.ID, MenuFilter{IncludeHidden: true})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMenuRepository_ReorderCategories(t *testing.T) {
	testDB := setupRepositoryTest(t)
	repo := NewMenuRepository(testDB)
	store := createStore(t, testDB, "Club Luna")

	a := &model.MenuCategory{StoreID: store.ID, Name: "A"}
	b := &model.MenuCategory{StoreID: store.ID, Name: "B"}
	require.NoError(t, repo.CreateCategory(a))
	require.NoError(t, repo.CreateCategory(b))

	require.NoError(t, repo.ReorderCategories(store.ID, []uint{b.ID, a.ID}))

	categories, err := repo.ListCategories(store.ID)
	require.NoError(t, err)
	assert.Equal(t, "B", categories[0].Name)

	assert.Error(t, repo.ReorderCategories(store.ID, []uint{9999}))
}
