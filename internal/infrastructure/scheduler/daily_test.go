package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailySchedulerNext(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+8", 8*3600)
	d, err := NewDailyScheduler("08:30", loc)
	require.NoError(t, err)

	before := time.Date(2025, 1, 10, 7, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2025, 1, 10, 8, 30, 0, 0, loc), d.Next(before))

	exact := time.Date(2025, 1, 10, 8, 30, 0, 0, loc)
	assert.Equal(t, time.Date(2025, 1, 11, 8, 30, 0, 0, loc), d.Next(exact))

	utcEvening := time.Date(2025, 1, 10, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 1, 11, 8, 30, 0, 0, loc), d.Next(utcEvening))
}

func TestNewDailySchedulerRejectsBadTime(t *testing.T) {
	t.Parallel()

	_, err := NewDailyScheduler("25:99", time.UTC)
	assert.Error(t, err)
}

func TestDailySchedulerStartStop(t *testing.T) {
	t.Parallel()

	d, err := NewDailyScheduler("00:00", time.UTC)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, d.Start(ctx, func(time.Time) {}))
	require.NoError(t, d.Start(ctx, func(time.Time) {}))
	require.NoError(t, d.Stop(ctx))
	require.NoError(t, d.Stop(ctx))
}
