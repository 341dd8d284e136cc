package service

import (
	"errors"
	"time"

	"github.com/yorunoba/nightdesk-backend/internal/app/model"
)

// Events pushed to the store room of the websocket hub.
const (
	EventSubmissionSubmitted = "shift_submission.submitted"
	EventSubmissionApproved  = "shift_submission.approved"
	EventSubmissionRejected  = "shift_submission.rejected"
	EventAttendanceClockIn   = "attendance.clocked_in"
	EventAttendanceClockOut  = "attendance.clocked_out"
	EventBottleKeepUpdated   = "bottle_keep.updated"
)

var (
	// ErrForbidden is returned when the actor's role does not allow the operation.
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
)

// EventPublisher delivers store-scoped events to the audience. The websocket
// hub implements it.
type EventPublisher interface {
	Publish(storeID uint, to model.Audience, eventType string, payload interface{})
}

// LabelCache drops cached relation labels after a write to table.
type LabelCache interface {
	Invalidate(storeID uint, table string)
}

type noopPublisher struct{}

func (noopPublisher) Publish(uint, model.Audience, string, interface{}) {}

type noopLabelCache struct{}

func (noopLabelCache) Invalidate(uint, string) {}

func publisherOrNoop(p EventPublisher) EventPublisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}

func labelCacheOrNoop(c LabelCache) LabelCache {
	if c == nil {
		return noopLabelCache{}
	}
	return c
}

// nowFunc is replaced in tests.
var nowFunc = func() time.Time {
	return time.Now().UTC()
}
