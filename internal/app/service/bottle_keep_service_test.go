package service

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yorunoba/nightdesk-backend/internal/app/model"
	"github.com/yorunoba/nightdesk-backend/internal/app/repository"
	"github.com/yorunoba/nightdesk-backend/internal/spreadsheet"
	"gorm.io/gorm"
)

type bottleFixture struct {
	service   BottleKeepService
	events    *recordingPublisher
	manager   model.Actor
	cast      model.Actor
	guestA    *model.Profile
	guestB    *model.Profile
	foreigner *model.Profile
	menu      *model.Menu
	db        *gorm.DB
}

func setupBottleKeepServiceTest(t *testing.T) *bottleFixture {
	testDB := setupServiceTest(t)
	// 2026-10-19 22:00 in Tokyo
	freezeTime(t, time.Date(2026, 10, 19, 13, 0, 0, 0, time.UTC))

	store := createStore(t, testDB, "Club Luna")
	other := createStore(t, testDB, "Bar Sol")
	menu := &model.Menu{StoreID: store.ID, Name: "Yamazaki 12", Price: 30000}
	require.NoError(t, testDB.Create(menu).Error)

	events := &recordingPublisher{}
	f := &bottleFixture{
		service: NewBottleKeepService(
			repository.NewBottleKeepRepository(testDB),
			repository.NewProfileRepository(testDB),
			repository.NewMenuRepository(testDB),
			events,
			nil,
			jst,
		),
		events:    events,
		manager:   actorOf(createProfile(t, testDB, store.ID, "Kuro", model.RoleStaff)),
		cast:      actorOf(createProfile(t, testDB, store.ID, "Rin", model.RoleCast)),
		guestA:    createProfile(t, testDB, store.ID, "Tanaka", model.RoleGuest),
		guestB:    createProfile(t, testDB, store.ID, "Suzuki", model.RoleGuest),
		foreigner: createProfile(t, testDB, other.ID, "Sato", model.RoleGuest),
		menu:      menu,
		db:        testDB,
	}
	return f
}

func (f *bottleFixture) create(t *testing.T, name, expires string, holders ...uint) *model.BottleKeep {
	bottle, err := f.service.Create(f.manager, BottleKeepInput{
		MenuID:     &f.menu.ID,
		BottleName: name,
		ExpiresOn:  expires,
		HolderIDs:  holders,
	})
	require.NoError(t, err)
	return bottle
}

func intPtr(v int) *int {
	return &v
}

func TestBottleKeepService_Create(t *testing.T) {
	f := setupBottleKeepServiceTest(t)

	bottle := f.create(t, "Yamazaki for Tanaka", "2027-04-19", f.guestA.ID, f.guestB.ID, f.guestA.ID)
	assert.Equal(t, 100, bottle.RemainingPercent)
	assert.Equal(t, model.BottleActive, bottle.Status)
	assert.Equal(t, "2026-10-19", bottle.OpenedOn)
	assert.Len(t, bottle.Holders, 2)
	require.NotNil(t, bottle.Menu)
	assert.Equal(t, "Yamazaki 12", bottle.Menu.Name)
	assert.Equal(t, []string{EventBottleKeepUpdated}, f.events.types())
	// holders and managers only
	audience := f.events.last().Audience
	assert.True(t, audience.Includes(f.manager))
	assert.True(t, audience.Includes(actorOf(f.guestA)))
	assert.True(t, audience.Includes(actorOf(f.guestB)))
	assert.False(t, audience.Includes(f.cast))

	half, err := f.service.Create(f.manager, BottleKeepInput{
		BottleName:       "Half bottle",
		RemainingPercent: intPtr(50),
		HolderIDs:        []uint{f.guestA.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, 50, half.RemainingPercent)
}

func TestBottleKeepService_Create_Errors(t *testing.T) {
	f := setupBottleKeepServiceTest(t)
	missingMenu := uint(9999)

	tests := []struct {
		name    string
		actor   model.Actor
		input   BottleKeepInput
		wantErr error
	}{
		{name: "Cast cannot create", actor: f.cast, input: BottleKeepInput{BottleName: "X", HolderIDs: []uint{f.guestA.ID}}, wantErr: ErrForbidden},
		{name: "No holder", actor: f.manager, input: BottleKeepInput{BottleName: "X"}, wantErr: ErrHolderRequired},
		{name: "Holder from another store", actor: f.manager, input: BottleKeepInput{BottleName: "X", HolderIDs: []uint{f.foreigner.ID}}, wantErr: ErrHolderNotFound},
		{name: "Empty bottle", actor: f.manager, input: BottleKeepInput{BottleName: "X", RemainingPercent: intPtr(0), HolderIDs: []uint{f.guestA.ID}}, wantErr: ErrInvalidRemaining},
		{name: "Overfull bottle", actor: f.manager, input: BottleKeepInput{BottleName: "X", RemainingPercent: intPtr(101), HolderIDs: []uint{f.guestA.ID}}, wantErr: ErrInvalidRemaining},
		{name: "Bad date", actor: f.manager, input: BottleKeepInput{BottleName: "X", ExpiresOn: "2027/01/01", HolderIDs: []uint{f.guestA.ID}}, wantErr: ErrInvalidDate},
		{name: "Expires before opening", actor: f.manager, input: BottleKeepInput{BottleName: "X", OpenedOn: "2026-10-19", ExpiresOn: "2026-10-01", HolderIDs: []uint{f.guestA.ID}}, wantErr: ErrInvalidDate},
		{name: "Unknown menu", actor: f.manager, input: BottleKeepInput{BottleName: "X", MenuID: &missingMenu, HolderIDs: []uint{f.guestA.ID}}, wantErr: ErrMenuNotFound},
		{name: "Blank name", actor: f.manager, input: BottleKeepInput{BottleName: " ", HolderIDs: []uint{f.guestA.ID}}, wantErr: ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bottle, err := f.service.Create(tt.actor, tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, bottle)
		})
	}
}

func TestBottleKeepService_UpdateRemaining(t *testing.T) {
	f := setupBottleKeepServiceTest(t)
	bottle := f.create(t, "Yamazaki", "", f.guestA.ID)

	updated, err := f.service.UpdateRemaining(f.manager, bottle.ID, 30)
	require.NoError(t, err)
	assert.Equal(t, 30, updated.RemainingPercent)
	assert.Equal(t, model.BottleActive, updated.Status)

	_, err = f.service.UpdateRemaining(f.manager, bottle.ID, 120)
	assert.ErrorIs(t, err, ErrInvalidRemaining)

	finished, err := f.service.UpdateRemaining(f.manager, bottle.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, finished.RemainingPercent)
	assert.Equal(t, model.BottleFinished, finished.Status)

	// the zero level survives a reload
	var stored model.BottleKeep
	require.NoError(t, f.db.First(&stored, bottle.ID).Error)
	assert.Equal(t, 0, stored.RemainingPercent)
}

func TestBottleKeepService_Update(t *testing.T) {
	f := setupBottleKeepServiceTest(t)
	bottle := f.create(t, "Yamazaki", "2027-01-01", f.guestA.ID)

	name := "Yamazaki 18"
	expires := ""
	status := model.BottleExpired
	updated, err := f.service.Update(f.manager, bottle.ID, BottleKeepUpdateInput{BottleName: &name, ExpiresOn: &expires, Status: &status})
	require.NoError(t, err)
	assert.Equal(t, "Yamazaki 18", updated.BottleName)
	assert.Empty(t, updated.ExpiresOn)
	assert.Equal(t, model.BottleExpired, updated.Status)
	assert.Len(t, updated.Holders, 1)

	bad := model.BottleKeepStatus("lost")
	_, err = f.service.Update(f.manager, bottle.ID, BottleKeepUpdateInput{Status: &bad})
	assert.ErrorIs(t, err, ErrInvalidBottleStatus)

	_, err = f.service.Update(f.manager, 9999, BottleKeepUpdateInput{BottleName: &name})
	assert.ErrorIs(t, err, ErrBottleNotFound)
}

func TestBottleKeepService_Holders(t *testing.T) {
	f := setupBottleKeepServiceTest(t)
	bottle := f.create(t, "Yamazaki", "", f.guestA.ID)

	_, err := f.service.RemoveHolder(f.manager, bottle.ID, f.guestA.ID)
	assert.ErrorIs(t, err, ErrHolderRequired)

	withTwo, err := f.service.AddHolder(f.manager, bottle.ID, f.guestB.ID)
	require.NoError(t, err)
	assert.Len(t, withTwo.Holders, 2)

	_, err = f.service.AddHolder(f.manager, bottle.ID, f.foreigner.ID)
	assert.ErrorIs(t, err, ErrHolderNotFound)

	withOne, err := f.service.RemoveHolder(f.manager, bottle.ID, f.guestA.ID)
	require.NoError(t, err)
	require.Len(t, withOne.Holders, 1)
	assert.Equal(t, f.guestB.ID, withOne.Holders[0].ProfileID)

	_, err = f.service.RemoveHolder(f.manager, bottle.ID, f.guestA.ID)
	assert.ErrorIs(t, err, ErrHolderNotFound)
}

func TestBottleKeepService_ListAndVisibility(t *testing.T) {
	f := setupBottleKeepServiceTest(t)
	soon := f.create(t, "Soon", "2026-10-22", f.guestA.ID)
	f.create(t, "Later", "2026-12-31", f.guestB.ID)
	f.create(t, "Forever", "", f.guestB.ID)

	all, err := f.service.List(f.manager, BottleKeepQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	expiring, err := f.service.List(f.manager, BottleKeepQuery{ExpiringWithinDays: 7})
	require.NoError(t, err)
	require.Len(t, expiring, 1)
	assert.Equal(t, soon.ID, expiring[0].ID)

	holder := f.guestB.ID
	byHolder, err := f.service.List(f.manager, BottleKeepQuery{HolderID: &holder})
	require.NoError(t, err)
	assert.Len(t, byHolder, 2)

	_, err = f.service.List(f.manager, BottleKeepQuery{Status: "lost"})
	assert.ErrorIs(t, err, ErrInvalidBottleStatus)

	// a guest only sees the bottles they hold
	guest := actorOf(f.guestA)
	mine, err := f.service.List(guest, BottleKeepQuery{HolderID: &holder})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, soon.ID, mine[0].ID)

	_, err = f.service.Get(guest, mine[0].ID)
	assert.NoError(t, err)
	_, err = f.service.Get(guest, byHolder[0].ID)
	assert.ErrorIs(t, err, ErrBottleNotFound)
}

func TestBottleKeepService_ExpireOverdue(t *testing.T) {
	f := setupBottleKeepServiceTest(t)
	overdue, err := f.service.Create(f.manager, BottleKeepInput{
		BottleName: "Old",
		OpenedOn:   "2026-01-01",
		ExpiresOn:  "2026-10-18",
		HolderIDs:  []uint{f.guestA.ID},
	})
	require.NoError(t, err)
	today := f.create(t, "Today", "2026-10-19", f.guestA.ID)
	f.create(t, "Forever", "", f.guestA.ID)

	count, err := f.service.ExpireOverdue()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	expired, err := f.service.Get(f.manager, overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BottleExpired, expired.Status)

	stillActive, err := f.service.Get(f.manager, today.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BottleActive, stillActive.Status)
}

func TestBottleKeepService_Export(t *testing.T) {
	f := setupBottleKeepServiceTest(t)
	f.create(t, "Yamazaki", "2027-01-01", f.guestA.ID, f.guestB.ID)

	var csvBuf bytes.Buffer
	require.NoError(t, f.service.Export(f.manager, BottleKeepQuery{}, FormatCSV, &csvBuf))
	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(csvBuf.String(), "\ufeff")), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "ID,ボトル名,メニュー,名義人"))
	assert.Contains(t, lines[1], "Yamazaki 12")
	assert.Contains(t, lines[1], "Tanaka / Suzuki")
	assert.Contains(t, lines[1], "キープ中")

	var xlsxBuf bytes.Buffer
	require.NoError(t, f.service.Export(f.manager, BottleKeepQuery{}, FormatXLSX, &xlsxBuf))
	rows, err := spreadsheet.ReadXLSX(xlsxBuf.Bytes())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "ボトル名", rows[0][1])

	assert.ErrorIs(t, f.service.Export(f.manager, BottleKeepQuery{}, "pdf", &csvBuf), ErrUnsupportedFormat)
	assert.ErrorIs(t, f.service.Export(f.cast, BottleKeepQuery{}, FormatCSV, &csvBuf), ErrForbidden)
}
