package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yorunoba/nightdesk-backend/internal/app/model"
	"github.com/yorunoba/nightdesk-backend/internal/app/repository"
)

func TestDashboardService_Summary(t *testing.T) {
	testDB := setupServiceTest(t)
	// 02:00 JST on the 20th, still the night of the 19th
	now := time.Date(2026, 10, 19, 17, 0, 0, 0, time.UTC)
	freezeTime(t, now)

	dashboard := NewDashboardService(
		repository.NewProfileRepository(testDB),
		repository.NewBottleKeepRepository(testDB),
		repository.NewShiftRepository(testDB),
		repository.NewAttendanceRepository(testDB),
		repository.NewSNSRepository(testDB),
		repository.NewMenuRepository(testDB),
		jst,
	)

	store := createStore(t, testDB, "Club Luna")
	other := createStore(t, testDB, "Bar Sol")
	staff := createProfile(t, testDB, store.ID, "Kuro", model.RoleStaff)
	cast := createProfile(t, testDB, store.ID, "Rin", model.RoleCast)
	createProfile(t, testDB, store.ID, "Mio", model.RoleCast)
	createProfile(t, testDB, store.ID, "Tanaka", model.RoleGuest)
	createProfile(t, testDB, other.ID, "Sato", model.RoleCast)

	retired := createProfile(t, testDB, store.ID, "Yui", model.RoleCast)
	require.NoError(t, testDB.Model(retired).Update("is_active", false).Error)

	bottles := []model.BottleKeep{
		{StoreID: store.ID, BottleName: "Yamazaki", OpenedOn: "2026-09-01", ExpiresOn: "2026-10-25", Status: model.BottleActive},
		{StoreID: store.ID, BottleName: "Hibiki", OpenedOn: "2026-09-01", ExpiresOn: "2027-03-01", Status: model.BottleActive},
		{StoreID: store.ID, BottleName: "Kakubin", OpenedOn: "2026-09-01", ExpiresOn: "2026-10-21", Status: model.BottleFinished},
		{StoreID: other.ID, BottleName: "Moet", OpenedOn: "2026-09-01", ExpiresOn: "2026-10-22", Status: model.BottleActive},
	}
	require.NoError(t, testDB.Create(&bottles).Error)

	request := &model.ShiftRequest{
		StoreID:  store.ID,
		Title:    "November",
		Deadline: now.Add(72 * time.Hour),
		Dates:    []model.ShiftRequestDate{{Date: "2026-11-01"}},
	}
	require.NoError(t, testDB.Create(request).Error)
	require.NoError(t, testDB.Create(&model.ShiftSubmission{
		StoreID: store.ID, ShiftRequestID: request.ID, ProfileID: cast.ID,
		Date: "2026-11-01", IsAvailable: true, Status: model.SubmissionPending,
	}).Error)

	require.NoError(t, testDB.Create(&model.Attendance{
		StoreID: store.ID, ProfileID: cast.ID, BusinessDate: "2026-10-19", ClockInAt: now.Add(-5 * time.Hour),
	}).Error)

	account := &model.SNSAccount{StoreID: store.ID, Platform: model.PlatformX, AccountName: "@club_luna"}
	require.NoError(t, testDB.Create(account).Error)
	require.NoError(t, testDB.Create(&model.SNSScheduledPost{
		StoreID: store.ID, SNSAccountID: account.ID, Content: "Open tonight",
		ScheduledAt: now.Add(time.Hour), Status: model.PostScheduled,
	}).Error)

	require.NoError(t, testDB.Create(&model.Menu{StoreID: store.ID, Name: "Highball", Price: 800}).Error)

	_, err := dashboard.Summary(actorOf(cast))
	assert.ErrorIs(t, err, ErrForbidden)

	summary, err := dashboard.Summary(actorOf(staff))
	require.NoError(t, err)
	assert.Equal(t, "2026-10-19", summary.BusinessDate)
	assert.Equal(t, int64(2), summary.ProfilesByRole[model.RoleCast])
	assert.Equal(t, int64(1), summary.ProfilesByRole[model.RoleStaff])
	assert.Equal(t, int64(1), summary.ProfilesByRole[model.RoleGuest])
	assert.Equal(t, int64(2), summary.ActiveBottleKeeps)
	assert.Equal(t, int64(1), summary.ExpiringBottleKeeps)
	assert.Equal(t, int64(1), summary.PendingSubmissions)
	assert.Equal(t, int64(1), summary.OpenShiftRequests)
	assert.Equal(t, int64(1), summary.TodayAttendance)
	assert.Equal(t, int64(1), summary.UpcomingPosts)
	assert.Equal(t, int64(1), summary.Menus)
}
