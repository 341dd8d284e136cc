package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yorunoba/nightdesk-backend/internal/app/service"
)

type fakeSNS struct {
	calls    int
	deadline bool
	err      error
}

func (f *fakeSNS) RunDue(ctx context.Context) (*service.SNSRunResult, error) {
	f.calls++
	_, f.deadline = ctx.Deadline()
	if f.err != nil {
		return nil, f.err
	}
	return &service.SNSRunResult{Posted: 1}, nil
}

type fakeBottles struct {
	calls int
}

func (f *fakeBottles) ExpireOverdue() (int64, error) {
	f.calls++
	return 3, nil
}

func TestScheduler_Jobs(t *testing.T) {
	sns := &fakeSNS{}
	bottles := &fakeBottles{}
	s := New(Config{SNSSpec: "* * * * *", BottleExpirySpec: "0 6 * * *"}, sns, bottles)

	s.runSNS()
	s.expireBottles()
	assert.Equal(t, 1, sns.calls)
	assert.True(t, sns.deadline)
	assert.Equal(t, 1, bottles.calls)

	// failures are logged, not propagated
	sns.err = errors.New("database is down")
	s.runSNS()
	assert.Equal(t, 2, sns.calls)
}

func TestScheduler_StartStop(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	s := New(Config{SNSSpec: "* * * * *", BottleExpirySpec: "0 6 * * *", Location: tokyo}, &fakeSNS{}, &fakeBottles{})

	require.NoError(t, s.Start())
	entries := s.cron.Entries()
	require.Len(t, entries, 2)
	assert.False(t, entries[0].Next.IsZero())
	s.Stop()
}

func TestScheduler_InvalidSpec(t *testing.T) {
	s := New(Config{SNSSpec: "every minute", BottleExpirySpec: "0 6 * * *"}, &fakeSNS{}, &fakeBottles{})
	assert.Error(t, s.Start())

	s = New(Config{SNSSpec: "* * * * *", BottleExpirySpec: "61 6 * * *"}, &fakeSNS{}, &fakeBottles{})
	assert.Error(t, s.Start())
}
