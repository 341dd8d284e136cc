package service

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yorunoba/nightdesk-backend/internal/app/model"
	"github.com/yorunoba/nightdesk-backend/internal/app/repository"
	"github.com/yorunoba/nightdesk-backend/internal/spreadsheet"
	"gorm.io/gorm"
)

func TestBusinessDate(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{name: "Evening", at: time.Date(2026, 10, 19, 21, 0, 0, 0, jst), want: "2026-10-19"},
		{name: "After midnight", at: time.Date(2026, 10, 20, 3, 30, 0, 0, jst), want: "2026-10-19"},
		{name: "Just before six", at: time.Date(2026, 10, 20, 5, 59, 0, 0, jst), want: "2026-10-19"},
		{name: "Six starts a new day", at: time.Date(2026, 10, 20, 6, 0, 0, 0, jst), want: "2026-10-20"},
		{name: "UTC input", at: time.Date(2026, 10, 19, 17, 0, 0, 0, time.UTC), want: "2026-10-19"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BusinessDate(tt.at, jst))
		})
	}
}

type attendanceFixture struct {
	service AttendanceService
	events  *recordingPublisher
	db      *gorm.DB
	manager model.Actor
	cast    model.Actor
	guest   model.Actor
}

func setupAttendanceServiceTest(t *testing.T) *attendanceFixture {
	testDB := setupServiceTest(t)
	f := &attendanceFixture{events: &recordingPublisher{}, db: testDB}
	f.service = NewAttendanceService(
		repository.NewAttendanceRepository(testDB),
		repository.NewShiftRepository(testDB),
		repository.NewProfileRepository(testDB),
		f.events,
		nil,
		jst,
	)

	store := createStore(t, testDB, "Club Luna")
	f.manager = actorOf(createProfile(t, testDB, store.ID, "Kuro", model.RoleStaff))
	f.cast = actorOf(createProfile(t, testDB, store.ID, "Rin", model.RoleCast))
	f.guest = actorOf(createProfile(t, testDB, store.ID, "Tanaka", model.RoleGuest))
	return f
}

func (f *attendanceFixture) scheduleShift(t *testing.T, date string) *model.ShiftSubmission {
	request := &model.ShiftRequest{
		StoreID:  f.cast.StoreID,
		Title:    "October",
		Deadline: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		Dates:    []model.ShiftRequestDate{{Date: date}},
	}
	require.NoError(t, f.db.Create(request).Error)
	sub := &model.ShiftSubmission{
		StoreID:        f.cast.StoreID,
		ShiftRequestID: request.ID,
		ProfileID:      f.cast.ProfileID,
		Date:           date,
		IsAvailable:    true,
		StartTime:      "20:00",
		EndTime:        "25:00",
		Status:         model.SubmissionScheduled,
	}
	require.NoError(t, f.db.Create(sub).Error)
	return sub
}

func (f *attendanceFixture) submissionStatus(t *testing.T, id uint) model.SubmissionStatus {
	var sub model.ShiftSubmission
	require.NoError(t, f.db.First(&sub, id).Error)
	return sub.Status
}

func TestAttendanceService_ClockInLinksScheduledShift(t *testing.T) {
	f := setupAttendanceServiceTest(t)
	sub := f.scheduleShift(t, "2026-10-19")

	// 01:30 JST still belongs to the night of the 19th
	freezeTime(t, time.Date(2026, 10, 19, 16, 30, 0, 0, time.UTC))
	in, err := f.service.ClockIn(f.cast, nil, "late start")
	require.NoError(t, err)
	assert.Equal(t, "2026-10-19", in.BusinessDate)
	require.NotNil(t, in.ShiftSubmissionID)
	assert.Equal(t, sub.ID, *in.ShiftSubmissionID)
	assert.Equal(t, model.SubmissionWorking, f.submissionStatus(t, sub.ID))

	_, err = f.service.ClockIn(f.cast, nil, "")
	assert.ErrorIs(t, err, ErrAlreadyClockedIn)

	freezeTime(t, time.Date(2026, 10, 19, 20, 0, 0, 0, time.UTC))
	out, err := f.service.ClockOut(f.cast, nil)
	require.NoError(t, err)
	assert.Equal(t, 210, out.WorkedMinutes())
	assert.Equal(t, model.SubmissionCompleted, f.submissionStatus(t, sub.ID))

	_, err = f.service.ClockOut(f.cast, nil)
	assert.ErrorIs(t, err, ErrNotClockedIn)

	assert.Equal(t, []string{EventAttendanceClockIn, EventAttendanceClockOut}, f.events.types())
}

func TestAttendanceService_ClockInWithoutShift(t *testing.T) {
	f := setupAttendanceServiceTest(t)
	freezeTime(t, time.Date(2026, 10, 19, 11, 0, 0, 0, time.UTC))

	in, err := f.service.ClockIn(f.cast, nil, "")
	require.NoError(t, err)
	assert.Nil(t, in.ShiftSubmissionID)

	t.Run("Permissions", func(t *testing.T) {
		_, err := f.service.ClockIn(f.guest, nil, "")
		assert.ErrorIs(t, err, ErrNotShiftWorker)

		_, err = f.service.ClockOut(f.guest, &f.cast.ProfileID)
		assert.ErrorIs(t, err, ErrForbidden)

		missing := uint(9999)
		_, err = f.service.ClockIn(f.manager, &missing, "")
		assert.ErrorIs(t, err, ErrProfileNotFound)
	})

	t.Run("Manager clocks a cast out", func(t *testing.T) {
		out, err := f.service.ClockOut(f.manager, &f.cast.ProfileID)
		require.NoError(t, err)
		assert.Equal(t, f.cast.ProfileID, out.ProfileID)
		assert.NotNil(t, out.ClockOutAt)
	})

	t.Run("Inactive profiles cannot clock in", func(t *testing.T) {
		require.NoError(t, f.db.Model(&model.Profile{}).
			Where("id = ?", f.cast.ProfileID).
			Update("is_active", false).Error)
		_, err := f.service.ClockIn(f.cast, nil, "")
		assert.ErrorIs(t, err, ErrProfileInactive)
	})
}

func TestAttendanceService_ListAndUpdate(t *testing.T) {
	f := setupAttendanceServiceTest(t)

	freezeTime(t, time.Date(2026, 10, 19, 11, 0, 0, 0, time.UTC))
	record, err := f.service.ClockIn(f.cast, nil, "")
	require.NoError(t, err)
	_, err = f.service.ClockIn(f.manager, nil, "")
	require.NoError(t, err)

	mine, err := f.service.List(f.cast, repository.AttendanceFilter{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, f.cast.ProfileID, mine[0].ProfileID)

	everyone, err := f.service.List(f.manager, repository.AttendanceFilter{From: "2026-10-19", To: "2026-10-19"})
	require.NoError(t, err)
	assert.Len(t, everyone, 2)

	_, err = f.service.List(f.manager, repository.AttendanceFilter{From: "yesterday"})
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = f.service.Update(f.cast, record.ID, AttendanceUpdateInput{})
	assert.ErrorIs(t, err, ErrForbidden)

	early := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	_, err = f.service.Update(f.manager, record.ID, AttendanceUpdateInput{ClockOutAt: &early})
	assert.ErrorIs(t, err, ErrInvalidWorkTime)

	clockIn := time.Date(2026, 10, 19, 22, 0, 0, 0, jst)
	clockOut := time.Date(2026, 10, 20, 2, 0, 0, 0, jst)
	note := "forgot to clock out"
	fixed, err := f.service.Update(f.manager, record.ID, AttendanceUpdateInput{
		ClockInAt:  &clockIn,
		ClockOutAt: &clockOut,
		Note:       &note,
	})
	require.NoError(t, err)
	assert.Equal(t, "2026-10-19", fixed.BusinessDate)
	assert.Equal(t, 240, fixed.WorkedMinutes())
	assert.Equal(t, note, fixed.Note)
	require.NotNil(t, fixed.Profile)
	assert.Equal(t, "Rin", fixed.Profile.DisplayName)

	_, err = f.service.Update(f.manager, 9999, AttendanceUpdateInput{})
	assert.ErrorIs(t, err, ErrAttendanceNotFound)

	t.Run("Export", func(t *testing.T) {
		var buf bytes.Buffer
		assert.ErrorIs(t, f.service.ExportXLSX(f.cast, repository.AttendanceFilter{}, &buf), ErrForbidden)

		require.NoError(t, f.service.ExportXLSX(f.manager, repository.AttendanceFilter{}, &buf))
		rows, err := spreadsheet.ReadXLSX(buf.Bytes())
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, attendanceExportHeaders, rows[0])

		var rin []string
		for _, row := range rows[1:] {
			if row[1] == "Rin" {
				rin = row
			}
		}
		require.NotNil(t, rin)
		assert.Equal(t, "2026-10-19 22:00", rin[2])
		assert.Equal(t, "2026-10-20 02:00", rin[3])
		assert.Equal(t, "240", rin[4])
	})
}
