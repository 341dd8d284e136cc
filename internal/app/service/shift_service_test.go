package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yorunoba/nightdesk-backend/internal/app/model"
	"github.com/yorunoba/nightdesk-backend/internal/app/repository"
)

type shiftFixture struct {
	service ShiftService
	events  *recordingPublisher
	cache   *recordingCache
	manager model.Actor
	cast    model.Actor
	mio     model.Actor
	guest   model.Actor
	request *ShiftRequestView
}

func setupShiftServiceTest(t *testing.T) *shiftFixture {
	testDB := setupServiceTest(t)
	freezeTime(t, time.Date(2026, 10, 19, 13, 0, 0, 0, time.UTC))

	f := &shiftFixture{events: &recordingPublisher{}, cache: &recordingCache{}}
	f.service = NewShiftService(repository.NewShiftRepository(testDB), f.events, f.cache)

	store := createStore(t, testDB, "Club Luna")
	f.manager = actorOf(createProfile(t, testDB, store.ID, "Kuro", model.RoleStaff))
	f.cast = actorOf(createProfile(t, testDB, store.ID, "Rin", model.RoleCast))
	f.mio = actorOf(createProfile(t, testDB, store.ID, "Mio", model.RoleCast))
	f.guest = actorOf(createProfile(t, testDB, store.ID, "Tanaka", model.RoleGuest))

	request, err := f.service.CreateRequest(f.manager, ShiftRequestInput{
		Title:    "November first half",
		Deadline: time.Date(2026, 10, 25, 15, 0, 0, 0, time.UTC),
		Dates: []ShiftRequestDateInput{
			{Date: "2026-11-02", DefaultStartTime: "20:00", DefaultEndTime: "25:00"},
			{Date: "2026-11-01"},
		},
	})
	require.NoError(t, err)
	f.request = request
	return f
}

func TestShiftService_CreateRequest(t *testing.T) {
	f := setupShiftServiceTest(t)

	assert.Equal(t, model.ShiftRequestOpen, f.request.Status)
	require.Len(t, f.request.Dates, 2)
	assert.Equal(t, "2026-11-01", f.request.Dates[0].Date)
	assert.Contains(t, f.cache.tables, "shift_requests")

	deadline := time.Date(2026, 10, 25, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		actor   model.Actor
		input   ShiftRequestInput
		wantErr error
	}{
		{name: "Cast cannot create", actor: f.cast, input: ShiftRequestInput{Title: "x", Deadline: deadline, Dates: []ShiftRequestDateInput{{Date: "2026-11-01"}}}, wantErr: ErrForbidden},
		{name: "No dates", actor: f.manager, input: ShiftRequestInput{Title: "x", Deadline: deadline}, wantErr: ErrInvalidInput},
		{name: "No deadline", actor: f.manager, input: ShiftRequestInput{Title: "x", Dates: []ShiftRequestDateInput{{Date: "2026-11-01"}}}, wantErr: ErrInvalidInput},
		{name: "Bad date", actor: f.manager, input: ShiftRequestInput{Title: "x", Deadline: deadline, Dates: []ShiftRequestDateInput{{Date: "11/01"}}}, wantErr: ErrInvalidDate},
		{name: "Duplicate date", actor: f.manager, input: ShiftRequestInput{Title: "x", Deadline: deadline, Dates: []ShiftRequestDateInput{{Date: "2026-11-01"}, {Date: "2026-11-01"}}}, wantErr: ErrInvalidInput},
		{name: "Bad default hours", actor: f.manager, input: ShiftRequestInput{Title: "x", Deadline: deadline, Dates: []ShiftRequestDateInput{{Date: "2026-11-01", DefaultStartTime: "31:00"}}}, wantErr: ErrInvalidShiftTime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.CreateRequest(tt.actor, tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestShiftService_Submit(t *testing.T) {
	f := setupShiftServiceTest(t)

	rows, err := f.service.GetMySubmission(f.cast, f.request.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, model.SubmissionNotSubmitted, rows[0].Status)
	assert.Equal(t, "20:00", rows[1].DefaultStartTime)

	rows, err = f.service.Submit(f.cast, f.request.ID, []SubmissionEntry{
		{Date: "2026-11-01", IsAvailable: true, StartTime: "21:00", EndTime: "26:00"},
		{Date: "2026-11-02", IsAvailable: false, StartTime: "20:00", Note: "family"},
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, model.SubmissionPending, rows[0].Status)
	assert.Equal(t, "26:00", rows[0].EndTime)
	// hours are dropped for unavailable dates
	assert.Empty(t, rows[1].StartTime)
	assert.Equal(t, []string{EventSubmissionSubmitted}, f.events.types())

	// resubmitting replaces the pending answer
	rows, err = f.service.Submit(f.cast, f.request.ID, []SubmissionEntry{
		{Date: "2026-11-02", IsAvailable: true},
	})
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionNotSubmitted, rows[0].Status)
	assert.Equal(t, model.SubmissionPending, rows[1].Status)

	t.Run("Errors", func(t *testing.T) {
		_, err := f.service.Submit(f.guest, f.request.ID, nil)
		assert.ErrorIs(t, err, ErrNotShiftWorker)
		_, err = f.service.Submit(f.cast, f.request.ID, []SubmissionEntry{{Date: "2026-11-05"}})
		assert.ErrorIs(t, err, ErrDateNotRequested)
		_, err = f.service.Submit(f.cast, f.request.ID, []SubmissionEntry{{Date: "2026-11-01"}, {Date: "2026-11-01"}})
		assert.ErrorIs(t, err, ErrInvalidInput)
		_, err = f.service.Submit(f.cast, f.request.ID, []SubmissionEntry{{Date: "2026-11-01", IsAvailable: true, StartTime: "20:00", EndTime: "20:00"}})
		assert.ErrorIs(t, err, ErrInvalidShiftTime)
		_, err = f.service.Submit(f.cast, 9999, nil)
		assert.ErrorIs(t, err, ErrShiftRequestNotFound)
	})

	t.Run("Decided dates are locked", func(t *testing.T) {
		approved, err := f.service.BulkApprove(f.manager, f.request.ID, "2026-11-02")
		require.NoError(t, err)
		require.Len(t, approved, 1)

		_, err = f.service.Submit(f.cast, f.request.ID, []SubmissionEntry{{Date: "2026-11-02", IsAvailable: false}})
		assert.ErrorIs(t, err, ErrSubmissionLocked)

		// other dates stay editable
		rows, err := f.service.Submit(f.cast, f.request.ID, []SubmissionEntry{{Date: "2026-11-01", IsAvailable: true}})
		require.NoError(t, err)
		assert.Equal(t, model.SubmissionPending, rows[0].Status)
		assert.Equal(t, model.SubmissionScheduled, rows[1].Status)
	})

	t.Run("Closed after the deadline", func(t *testing.T) {
		freezeTime(t, time.Date(2026, 10, 25, 15, 0, 0, 0, time.UTC))
		_, err := f.service.Submit(f.mio, f.request.ID, []SubmissionEntry{{Date: "2026-11-01", IsAvailable: true}})
		assert.ErrorIs(t, err, ErrShiftRequestClosed)

		requests, err := f.service.ListRequests(f.mio)
		require.NoError(t, err)
		require.Len(t, requests, 1)
		assert.Equal(t, model.ShiftRequestClosed, requests[0].Status)
	})
}

func TestShiftService_Decisions(t *testing.T) {
	f := setupShiftServiceTest(t)

	_, err := f.service.Submit(f.cast, f.request.ID, []SubmissionEntry{
		{Date: "2026-11-01", IsAvailable: true, StartTime: "20:00", EndTime: "25:00"},
		{Date: "2026-11-02", IsAvailable: false},
	})
	require.NoError(t, err)
	_, err = f.service.Submit(f.mio, f.request.ID, []SubmissionEntry{
		{Date: "2026-11-01", IsAvailable: true},
	})
	require.NoError(t, err)

	_, err = f.service.ListSubmissions(f.cast, f.request.ID, repository.SubmissionFilter{})
	assert.ErrorIs(t, err, ErrForbidden)
	subs, err := f.service.ListSubmissions(f.manager, f.request.ID, repository.SubmissionFilter{Date: "2026-11-01"})
	require.NoError(t, err)
	require.Len(t, subs, 2)
	rinSub, mioSub := subs[0], subs[1]
	require.Equal(t, f.cast.ProfileID, rinSub.ProfileID)

	all, err := f.service.ListSubmissions(f.manager, f.request.ID, repository.SubmissionFilter{ProfileID: &f.cast.ProfileID})
	require.NoError(t, err)
	require.Len(t, all, 2)
	unavailable := all[1]

	t.Run("Approve with adjusted hours", func(t *testing.T) {
		_, err := f.service.Approve(f.cast, rinSub.ID, nil, nil)
		assert.ErrorIs(t, err, ErrForbidden)

		bad := "20:00"
		_, err = f.service.Approve(f.manager, rinSub.ID, &bad, &bad)
		assert.ErrorIs(t, err, ErrInvalidShiftTime)

		_, err = f.service.Approve(f.manager, unavailable.ID, nil, nil)
		assert.ErrorIs(t, err, ErrInvalidTransition)

		start := "21:00"
		approved, err := f.service.Approve(f.manager, rinSub.ID, &start, nil)
		require.NoError(t, err)
		assert.Equal(t, model.SubmissionScheduled, approved.Status)
		assert.Equal(t, "21:00", approved.StartTime)
		assert.Equal(t, "25:00", approved.EndTime)
		require.NotNil(t, approved.DecidedByID)
		assert.Equal(t, f.manager.ProfileID, *approved.DecidedByID)

		_, err = f.service.Approve(f.manager, rinSub.ID, nil, nil)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("Reject", func(t *testing.T) {
		rejected, err := f.service.Reject(f.manager, mioSub.ID, "  enough casts  ")
		require.NoError(t, err)
		assert.Equal(t, model.SubmissionRejected, rejected.Status)
		assert.Equal(t, "enough casts", rejected.RejectReason)

		audience := f.events.last().Audience
		assert.True(t, audience.Includes(f.manager))
		assert.Equal(t, []uint{mioSub.ProfileID}, audience.ProfileIDs)

		_, err = f.service.Reject(f.manager, mioSub.ID, "")
		assert.ErrorIs(t, err, ErrInvalidTransition)
		_, err = f.service.Reject(f.manager, 9999, "")
		assert.ErrorIs(t, err, ErrSubmissionNotFound)
	})

	t.Run("Bulk approve skips unavailable rows", func(t *testing.T) {
		approved, err := f.service.BulkApprove(f.manager, f.request.ID, "2026-11-02")
		require.NoError(t, err)
		assert.Empty(t, approved)

		_, err = f.service.BulkApprove(f.manager, f.request.ID, "2026-12-24")
		assert.ErrorIs(t, err, ErrDateNotRequested)
	})

	assert.Equal(t, []string{
		EventSubmissionSubmitted,
		EventSubmissionSubmitted,
		EventSubmissionApproved,
		EventSubmissionRejected,
	}, f.events.types())

	t.Run("Schedule lists decided work only", func(t *testing.T) {
		schedule, err := f.service.ListSchedule(f.cast, "2026-11-01", "2026-11-30")
		require.NoError(t, err)
		require.Len(t, schedule, 1)
		assert.Equal(t, rinSub.ID, schedule[0].ID)
		require.NotNil(t, schedule[0].Profile)
		assert.Equal(t, "Rin", schedule[0].Profile.DisplayName)

		_, err = f.service.ListSchedule(f.cast, "2026-11-30", "2026-11-01")
		assert.ErrorIs(t, err, ErrInvalidDate)
	})

	t.Run("Detail counts", func(t *testing.T) {
		detail, err := f.service.GetRequest(f.manager, f.request.ID)
		require.NoError(t, err)
		assert.NotEmpty(t, detail.Counts)
	})
}

func TestShiftService_UpdateAndDeleteRequest(t *testing.T) {
	f := setupShiftServiceTest(t)

	_, err := f.service.Submit(f.cast, f.request.ID, []SubmissionEntry{
		{Date: "2026-11-01", IsAvailable: true},
		{Date: "2026-11-02", IsAvailable: true},
	})
	require.NoError(t, err)

	updated, err := f.service.UpdateRequest(f.manager, f.request.ID, ShiftRequestInput{
		Title:    "November",
		Deadline: time.Date(2026, 10, 28, 15, 0, 0, 0, time.UTC),
		Dates:    []ShiftRequestDateInput{{Date: "2026-11-01"}, {Date: "2026-11-03"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "November", updated.Title)

	rows, err := f.service.GetMySubmission(f.cast, f.request.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, model.SubmissionPending, rows[0].Status)
	assert.Equal(t, "2026-11-03", rows[1].Date)
	assert.Equal(t, model.SubmissionNotSubmitted, rows[1].Status)

	assert.ErrorIs(t, f.service.DeleteRequest(f.cast, f.request.ID), ErrForbidden)
	require.NoError(t, f.service.DeleteRequest(f.manager, f.request.ID))
	_, err = f.service.GetRequest(f.manager, f.request.ID)
	assert.ErrorIs(t, err, ErrShiftRequestNotFound)
}
