package tablebrowser

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yorunoba/nightdesk-backend/internal/app/model"
	"github.com/yorunoba/nightdesk-backend/internal/db"
	"gorm.io/gorm"
)

var jst = time.FixedZone("JST", 9*3600)

type fixture struct {
	db       *gorm.DB
	browser  *Browser
	store    model.Store
	other    model.Store
	category model.MenuCategory
	menus    []model.Menu
}

func setupBrowser(t *testing.T, pageSize int) *fixture {
	t.Helper()

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	f := &fixture{db: testDB, browser: New(testDB, DefaultTables(), jst, pageSize)}

	f.store = model.Store{Name: "Club Luna", IsActive: true}
	require.NoError(t, testDB.Create(&f.store).Error)
	f.other = model.Store{Name: "Bar Sol", IsActive: true}
	require.NoError(t, testDB.Create(&f.other).Error)

	f.category = model.MenuCategory{StoreID: f.store.ID, Name: "Whisky"}
	require.NoError(t, testDB.Create(&f.category).Error)

	created := time.Date(2026, 10, 19, 15, 0, 0, 0, time.UTC)
	for _, m := range []model.Menu{
		{StoreID: f.store.ID, CategoryID: &f.category.ID, Name: "Highball", Price: 800, CreatedAt: created, UpdatedAt: created},
		{StoreID: f.store.ID, CategoryID: &f.category.ID, Name: "Yamazaki 12", Price: 3000, CreatedAt: created, UpdatedAt: created},
		{StoreID: f.store.ID, Name: "Oolong Tea", Price: 500, IsHidden: true, CreatedAt: created, UpdatedAt: created},
	} {
		m := m
		require.NoError(t, testDB.Create(&m).Error)
		f.menus = append(f.menus, m)
	}

	foreign := model.Menu{StoreID: f.other.ID, Name: "Foreign Beer", Price: 700}
	require.NoError(t, testDB.Create(&foreign).Error)

	return f
}

func columnNames(columns []Column) []string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	return names
}

func TestListTables_ExcludesAccounts(t *testing.T) {
	b := New(nil, DefaultTables(), jst, 10)

	tables := b.ListTables()
	require.NotEmpty(t, tables)
	assert.Equal(t, "stores", tables[0].Name)
	for _, info := range tables {
		assert.NotEqual(t, "accounts", info.Name)
	}
}

func TestBrowse_RendersMenus(t *testing.T) {
	f := setupBrowser(t, 50)
	ctx := context.Background()

	page, err := f.browser.Browse(ctx, f.store.ID, "menus", Query{})
	require.NoError(t, err)

	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 1, page.TotalPages)
	require.Len(t, page.Rows, 3)

	names := columnNames(page.Columns)
	assert.Equal(t, []string{"id", "name", "category_id", "price", "is_hidden"}, names[:5])
	assert.NotContains(t, names, "store_id")

	byName := map[string]Column{}
	for _, c := range page.Columns {
		byName[c.Name] = c
	}
	assert.Equal(t, KindRelation, byName["category_id"].Kind)
	assert.Equal(t, "menu_categories", byName["category_id"].RelationTable)
	assert.Equal(t, "カテゴリ", byName["category_id"].Label)
	assert.Equal(t, KindBool, byName["is_hidden"].Kind)
	assert.Equal(t, KindDateTime, byName["created_at"].Kind)
	assert.Equal(t, "作成日時", byName["created_at"].Label)

	// newest first
	oolong := page.Rows[0]
	assert.Equal(t, "Oolong Tea", oolong.Values["name"])
	assert.Nil(t, oolong.Values["category_id"])
	assert.Equal(t, "非表示", oolong.Values["is_hidden"])
	assert.Equal(t, "2026-10-20 00:00:00", oolong.Values["created_at"])

	yamazaki := page.Rows[1]
	assert.Equal(t, "Whisky", yamazaki.Values["category_id"])
	assert.Equal(t, "表示", yamazaki.Values["is_hidden"])
	assert.EqualValues(t, f.category.ID, yamazaki.Raw["category_id"])
}

func TestBrowse_ScopedToStore(t *testing.T) {
	f := setupBrowser(t, 50)

	page, err := f.browser.Browse(context.Background(), f.other.ID, "menus", Query{})
	require.NoError(t, err)
	require.Len(t, page.Rows, 1)
	assert.Equal(t, "Foreign Beer", page.Rows[0].Values["name"])

	stores, err := f.browser.Browse(context.Background(), f.store.ID, "stores", Query{})
	require.NoError(t, err)
	require.Len(t, stores.Rows, 1)
	assert.Equal(t, "Club Luna", stores.Rows[0].Values["name"])
	assert.Equal(t, "有効", stores.Rows[0].Values["is_active"])
}

func TestBrowse_UnknownTable(t *testing.T) {
	f := setupBrowser(t, 50)

	_, err := f.browser.Browse(context.Background(), f.store.ID, "accounts", Query{})
	assert.ErrorIs(t, err, ErrTableNotFound)
}

func TestBrowse_EmptyTable(t *testing.T) {
	f := setupBrowser(t, 50)

	page, err := f.browser.Browse(context.Background(), f.store.ID, "comments", Query{})
	require.NoError(t, err)
	assert.Empty(t, page.Columns)
	assert.Empty(t, page.Rows)
	assert.Equal(t, int64(0), page.Total)
	assert.Equal(t, 0, page.TotalPages)
}

func TestBrowse_Pagination(t *testing.T) {
	f := setupBrowser(t, 2)
	ctx := context.Background()

	first, err := f.browser.Browse(ctx, f.store.ID, "menus", Query{Page: 1})
	require.NoError(t, err)
	assert.Len(t, first.Rows, 2)
	assert.Equal(t, 2, first.TotalPages)

	second, err := f.browser.Browse(ctx, f.store.ID, "menus", Query{Page: 2})
	require.NoError(t, err)
	require.Len(t, second.Rows, 1)
	assert.Equal(t, "Highball", second.Rows[0].Values["name"])

	beyond, err := f.browser.Browse(ctx, f.store.ID, "menus", Query{Page: 5})
	require.NoError(t, err)
	assert.Empty(t, beyond.Rows)
}

func TestBrowse_Filters(t *testing.T) {
	f := setupBrowser(t, 2)
	ctx := context.Background()

	t.Run("column filter is case-insensitive", func(t *testing.T) {
		page, err := f.browser.Browse(ctx, f.store.ID, "menus", Query{Filters: map[string]string{"name": "HIGH"}})
		require.NoError(t, err)
		assert.True(t, page.Filtered)
		require.Len(t, page.Rows, 1)
		assert.Equal(t, "Highball", page.Rows[0].Values["name"])
	})

	t.Run("search matches display values", func(t *testing.T) {
		page, err := f.browser.Browse(ctx, f.store.ID, "menus", Query{Search: "whisky"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), page.Total)
		assert.Equal(t, 1, page.TotalPages)
	})

	t.Run("filtered results are paginated", func(t *testing.T) {
		page, err := f.browser.Browse(ctx, f.store.ID, "menus", Query{Search: "A", Page: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(3), page.Total)
		assert.Len(t, page.Rows, 1)
	})

	t.Run("unknown column", func(t *testing.T) {
		_, err := f.browser.Browse(ctx, f.store.ID, "menus", Query{Filters: map[string]string{"secret": "x"}})
		assert.ErrorIs(t, err, ErrInvalidColumn)
	})

	t.Run("blank filters browse normally", func(t *testing.T) {
		page, err := f.browser.Browse(ctx, f.store.ID, "menus", Query{Filters: map[string]string{"name": "  "}})
		require.NoError(t, err)
		assert.False(t, page.Filtered)
		assert.Equal(t, int64(3), page.Total)
	})
}

func TestDisplayTime(t *testing.T) {
	b := New(nil, nil, jst, 10)

	assert.Equal(t, "2026-10-20 06:30:00", b.displayTime(time.Date(2026, 10, 19, 21, 30, 0, 0, time.UTC)))
	assert.Equal(t, "2026-10-20 06:30:00", b.displayTime("2026-10-19T21:30:00Z"))
	assert.Equal(t, "2026-10-20 06:30:00", b.displayTime("2026-10-19 21:30:00"))
	assert.Equal(t, "2026-10-19", b.displayTime("2026-10-19"))
	assert.Equal(t, "2026-13-45T99:99", b.displayTime("2026-13-45T99:99"))
	assert.Equal(t, int64(5), b.displayTime(int64(5)))
}

func TestUpdateRow(t *testing.T) {
	f := setupBrowser(t, 50)
	ctx := context.Background()
	menuID := f.menus[0].ID

	t.Run("parses typed values", func(t *testing.T) {
		_, row, err := f.browser.UpdateRow(ctx, f.store.ID, "menus", menuID, map[string]interface{}{
			"price":     "1200",
			"is_hidden": true,
			"name":      "Premium Highball",
		})
		require.NoError(t, err)
		assert.Equal(t, "Premium Highball", row.Values["name"])
		assert.Equal(t, "非表示", row.Values["is_hidden"])

		var stored model.Menu
		require.NoError(t, f.db.First(&stored, menuID).Error)
		assert.Equal(t, 1200, stored.Price)
		assert.True(t, stored.IsHidden)
	})

	t.Run("rejects protected and unknown columns", func(t *testing.T) {
		for _, column := range []string{"id", "store_id", "created_at", "updated_at", "nope"} {
			_, _, err := f.browser.UpdateRow(ctx, f.store.ID, "menus", menuID, map[string]interface{}{column: "1"})
			assert.ErrorIs(t, err, ErrInvalidColumn, column)
		}
	})

	t.Run("rejects bad values", func(t *testing.T) {
		_, _, err := f.browser.UpdateRow(ctx, f.store.ID, "menus", menuID, map[string]interface{}{"price": "cheap"})
		assert.ErrorIs(t, err, ErrInvalidValue)

		_, _, err = f.browser.UpdateRow(ctx, f.store.ID, "menus", menuID, map[string]interface{}{})
		assert.ErrorIs(t, err, ErrInvalidValue)
	})

	t.Run("row of another store", func(t *testing.T) {
		_, _, err := f.browser.UpdateRow(ctx, f.other.ID, "menus", menuID, map[string]interface{}{"name": "x"})
		assert.ErrorIs(t, err, ErrRowNotFound)
	})

	t.Run("read-only table", func(t *testing.T) {
		_, _, err := f.browser.UpdateRow(ctx, f.store.ID, "shift_submissions", 1, map[string]interface{}{"note": "x"})
		assert.ErrorIs(t, err, ErrReadOnly)
	})
}

func TestUpdateRow_DatetimeIsDisplayTime(t *testing.T) {
	f := setupBrowser(t, 50)
	ctx := context.Background()

	account := model.SNSAccount{StoreID: f.store.ID, Platform: model.PlatformX, AccountName: "@luna", IsConnected: true}
	require.NoError(t, f.db.Create(&account).Error)
	post := model.SNSScheduledPost{
		StoreID:      f.store.ID,
		SNSAccountID: account.ID,
		Content:      "Tonight!",
		ScheduledAt:  time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC),
		Status:       model.PostScheduled,
	}
	require.NoError(t, f.db.Create(&post).Error)

	_, row, err := f.browser.UpdateRow(ctx, f.store.ID, "sns_scheduled_posts", post.ID, map[string]interface{}{
		"scheduled_at": "2026-10-20 21:00",
	})
	require.NoError(t, err)
	assert.Equal(t, "2026-10-20 21:00:00", row.Values["scheduled_at"])

	var stored model.SNSScheduledPost
	require.NoError(t, f.db.First(&stored, post.ID).Error)
	assert.True(t, stored.ScheduledAt.Equal(time.Date(2026, 10, 20, 12, 0, 0, 0, time.UTC)))
}

func TestRelationLabels_CacheInvalidation(t *testing.T) {
	f := setupBrowser(t, 50)
	ctx := context.Background()

	label := func() interface{} {
		page, err := f.browser.Browse(ctx, f.store.ID, "menus", Query{})
		require.NoError(t, err)
		return page.Rows[1].Values["category_id"]
	}
	require.Equal(t, "Whisky", label())

	require.NoError(t, f.db.Model(&model.MenuCategory{}).Where("id = ?", f.category.ID).Update("name", "Scotch").Error)
	assert.Equal(t, "Whisky", label(), "labels are cached")

	f.browser.Invalidate(f.store.ID, "menu_categories")
	assert.Equal(t, "Scotch", label())

	_, _, err := f.browser.UpdateRow(ctx, f.store.ID, "menu_categories", f.category.ID, map[string]interface{}{"name": "Bourbon"})
	require.NoError(t, err)
	assert.Equal(t, "Bourbon", label())
}

func TestDeleteRow(t *testing.T) {
	f := setupBrowser(t, 50)
	ctx := context.Background()
	menuID := f.menus[2].ID

	assert.ErrorIs(t, f.browser.DeleteRow(ctx, f.other.ID, "menus", menuID), ErrRowNotFound)
	require.NoError(t, f.browser.DeleteRow(ctx, f.store.ID, "menus", menuID))
	assert.ErrorIs(t, f.browser.DeleteRow(ctx, f.store.ID, "menus", menuID), ErrRowNotFound)

	_, _, err := f.browser.Row(ctx, f.store.ID, "menus", menuID)
	assert.ErrorIs(t, err, ErrRowNotFound)

	assert.ErrorIs(t, f.browser.DeleteRow(ctx, f.store.ID, "sns_accounts", 1), ErrReadOnly)
}

func TestExportCSV(t *testing.T) {
	f := setupBrowser(t, 1)

	var buf bytes.Buffer
	err := f.browser.ExportCSV(context.Background(), f.store.ID, "menus", Query{Search: "whisky"}, &buf)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "ID,商品名,カテゴリ,価格,表示")
	assert.Contains(t, out, "Yamazaki 12")
	assert.Contains(t, out, "Highball")
	assert.NotContains(t, out, "Oolong Tea")
}

func TestBrowse_PageBeyondRange(t *testing.T) {
	f := setupBrowser(t, 2)
	ctx := context.Background()
	huge := 288230376151711745

	page, err := f.browser.Browse(ctx, f.store.ID, "menus", Query{Page: huge})
	require.NoError(t, err)
	assert.Empty(t, page.Rows)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 2, page.TotalPages)

	page, err = f.browser.Browse(ctx, f.store.ID, "menus", Query{Page: huge, Search: "a"})
	require.NoError(t, err)
	assert.Empty(t, page.Rows)
	assert.Equal(t, int64(3), page.Total)
}

func TestUpdateRow_ColumnChecks(t *testing.T) {
	f := setupBrowser(t, 50)
	ctx := context.Background()

	bottle := model.BottleKeep{
		StoreID:          f.store.ID,
		BottleName:       "Hennessy XO",
		OpenedOn:         "2026-10-01",
		ExpiresOn:        "2027-01-01",
		RemainingPercent: 80,
		Status:           model.BottleActive,
	}
	require.NoError(t, f.db.Create(&bottle).Error)

	tests := []struct {
		name   string
		values map[string]interface{}
	}{
		{"remaining above 100", map[string]interface{}{"remaining_percent": 250}},
		{"negative remaining", map[string]interface{}{"remaining_percent": -1}},
		{"unknown status", map[string]interface{}{"status": "banana"}},
		{"malformed expiry", map[string]interface{}{"expires_on": "not-a-date"}},
		{"expiry before opening", map[string]interface{}{"expires_on": "2026-09-01"}},
		{"blank name", map[string]interface{}{"bottle_name": "  "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.browser.UpdateRow(ctx, f.store.ID, "bottle_keeps", bottle.ID, tt.values)
			assert.ErrorIs(t, err, ErrInvalidValue)
		})
	}

	var stored model.BottleKeep
	require.NoError(t, f.db.First(&stored, bottle.ID).Error)
	assert.Equal(t, 80, stored.RemainingPercent)
	assert.Equal(t, model.BottleActive, stored.Status)
	assert.Equal(t, "2027-01-01", stored.ExpiresOn)

	_, row, err := f.browser.UpdateRow(ctx, f.store.ID, "bottle_keeps", bottle.ID, map[string]interface{}{
		"remaining_percent": 0,
		"status":            "finished",
		"expires_on":        "",
	})
	require.NoError(t, err)
	assert.Equal(t, "finished", row.Values["status"])

	_, _, err = f.browser.UpdateRow(ctx, f.store.ID, "menus", f.menus[0].ID, map[string]interface{}{"price": -500})
	assert.ErrorIs(t, err, ErrInvalidValue)

	_, _, err = f.browser.UpdateRow(ctx, f.store.ID, "stores", f.store.ID, map[string]interface{}{"open_time": "010:00"})
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestUpdateRow_ProtectedColumns(t *testing.T) {
	f := setupBrowser(t, 50)
	ctx := context.Background()

	admin := model.Profile{StoreID: f.store.ID, DisplayName: "オーナー", Role: model.RoleAdmin, IsActive: true}
	require.NoError(t, f.db.Create(&admin).Error)

	for _, values := range []map[string]interface{}{
		{"role": "superuser"},
		{"role": "cast"},
		{"is_active": false},
	} {
		_, _, err := f.browser.UpdateRow(ctx, f.store.ID, "profiles", admin.ID, values)
		assert.ErrorIs(t, err, ErrInvalidColumn)
	}

	var stored model.Profile
	require.NoError(t, f.db.First(&stored, admin.ID).Error)
	assert.Equal(t, model.RoleAdmin, stored.Role)
	assert.True(t, stored.IsActive)

	_, row, err := f.browser.UpdateRow(ctx, f.store.ID, "profiles", admin.ID, map[string]interface{}{"display_name": "ママ"})
	require.NoError(t, err)
	assert.Equal(t, "ママ", row.Values["display_name"])
}

func TestUpdateRow_ReferencesStayInStore(t *testing.T) {
	f := setupBrowser(t, 50)
	ctx := context.Background()

	foreignCategory := model.MenuCategory{StoreID: f.other.ID, Name: "Beer"}
	require.NoError(t, f.db.Create(&foreignCategory).Error)

	_, _, err := f.browser.UpdateRow(ctx, f.store.ID, "menus", f.menus[2].ID, map[string]interface{}{
		"category_id": foreignCategory.ID,
	})
	assert.ErrorIs(t, err, ErrInvalidValue)

	_, _, err = f.browser.UpdateRow(ctx, f.store.ID, "menus", f.menus[2].ID, map[string]interface{}{
		"category_id": 99999,
	})
	assert.ErrorIs(t, err, ErrInvalidValue)

	var stored model.Menu
	require.NoError(t, f.db.First(&stored, f.menus[2].ID).Error)
	assert.Nil(t, stored.CategoryID)

	_, row, err := f.browser.UpdateRow(ctx, f.store.ID, "menus", f.menus[2].ID, map[string]interface{}{
		"category_id": f.category.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Whisky", row.Values["category_id"])
}

func TestUpdateRow_CommentKeepsOneTarget(t *testing.T) {
	f := setupBrowser(t, 50)
	ctx := context.Background()

	author := model.Profile{StoreID: f.store.ID, DisplayName: "みお", Role: model.RoleCast, IsActive: true}
	require.NoError(t, f.db.Create(&author).Error)
	guest := model.Profile{StoreID: f.store.ID, DisplayName: "田中様", Role: model.RoleGuest, IsActive: true}
	require.NoError(t, f.db.Create(&guest).Error)
	bottle := model.BottleKeep{StoreID: f.store.ID, BottleName: "Hibiki", OpenedOn: "2026-10-01", RemainingPercent: 100, Status: model.BottleActive}
	require.NoError(t, f.db.Create(&bottle).Error)
	comment := model.Comment{StoreID: f.store.ID, AuthorID: author.ID, Body: "よく来る", ProfileID: &guest.ID}
	require.NoError(t, f.db.Create(&comment).Error)

	_, _, err := f.browser.UpdateRow(ctx, f.store.ID, "comments", comment.ID, map[string]interface{}{
		"bottle_keep_id": bottle.ID,
	})
	assert.ErrorIs(t, err, ErrInvalidValue)

	_, _, err = f.browser.UpdateRow(ctx, f.store.ID, "comments", comment.ID, map[string]interface{}{
		"profile_id": nil,
	})
	assert.ErrorIs(t, err, ErrInvalidValue)

	// moving the comment to another target in one write is fine
	_, _, err = f.browser.UpdateRow(ctx, f.store.ID, "comments", comment.ID, map[string]interface{}{
		"profile_id":     nil,
		"bottle_keep_id": bottle.ID,
	})
	require.NoError(t, err)

	var stored model.Comment
	require.NoError(t, f.db.First(&stored, comment.ID).Error)
	assert.Nil(t, stored.ProfileID)
	require.NotNil(t, stored.BottleKeepID)
	assert.Equal(t, bottle.ID, *stored.BottleKeepID)
}

func TestDeleteRow_ProtectedTables(t *testing.T) {
	f := setupBrowser(t, 50)
	ctx := context.Background()

	admin := model.Profile{StoreID: f.store.ID, DisplayName: "オーナー", Role: model.RoleAdmin, IsActive: true}
	require.NoError(t, f.db.Create(&admin).Error)

	assert.ErrorIs(t, f.browser.DeleteRow(ctx, f.store.ID, "stores", f.store.ID), ErrReadOnly)
	assert.ErrorIs(t, f.browser.DeleteRow(ctx, f.store.ID, "profiles", admin.ID), ErrReadOnly)

	var count int64
	require.NoError(t, f.db.Model(&model.Store{}).Where("id = ?", f.store.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
