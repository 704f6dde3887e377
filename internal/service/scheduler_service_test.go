package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/internal/logging"
)

func TestBuildDailySpec(t *testing.T) {
	spec, err := buildDailySpec("08:05")
	require.NoError(t, err)
	assert.Equal(t, "0 5 8 * * *", spec)

	for _, bad := range []string{"8", "24:00", "07:60", "aa:10", ""} {
		_, err := buildDailySpec(bad)
		assert.Error(t, err, bad)
	}
}

func TestBuildIntervalSpec(t *testing.T) {
	spec, err := buildIntervalSpec(15 * time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "@every 900s", spec)

	spec, err = buildIntervalSpec(time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "@every 1s", spec)

	_, err = buildIntervalSpec(0)
	assert.Error(t, err)
}

func TestSchedulerRegistersJobs(t *testing.T) {
	s := NewSchedulerService(time.UTC, logging.Discard())

	_, err := s.Every("reconcile", time.Minute, func(context.Context) error { return nil })
	require.NoError(t, err)
	_, err = s.Daily("digest", "07:30", func(context.Context) error { return nil })
	require.NoError(t, err)
	_, err = s.Daily("digest", "late", func(context.Context) error { return nil })
	assert.Error(t, err)

	assert.Len(t, s.cron.Entries(), 2)
}

func TestSchedulerWrapBoundsJob(t *testing.T) {
	s := NewSchedulerService(time.UTC, logging.Discard())
	s.timeout = time.Second

	var called bool
	var hadDeadline bool
	s.wrap("failing", func(ctx context.Context) error {
		called = true
		_, hadDeadline = ctx.Deadline()
		return errors.New("boom")
	})()

	assert.True(t, called)
	assert.True(t, hadDeadline)
}
