package alarm

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCronManager_CreateReplaceClear(t *testing.T) {
	m := NewCronManager(zap.NewNop())

	_, ok := m.Get("refreshPriceAlarm")
	assert.False(t, ok)

	require.NoError(t, m.Create("refreshPriceAlarm", time.Minute))
	a, ok := m.Get("refreshPriceAlarm")
	require.True(t, ok)
	assert.Equal(t, time.Minute, a.Period)

	// same name replaces the previous schedule
	require.NoError(t, m.Create("refreshPriceAlarm", 5*time.Minute))
	a, ok = m.Get("refreshPriceAlarm")
	require.True(t, ok)
	assert.Equal(t, 5*time.Minute, a.Period)
	assert.Len(t, m.cron.Entries(), 1)

	cleared, err := m.Clear("refreshPriceAlarm")
	require.NoError(t, err)
	assert.True(t, cleared)
	assert.Empty(t, m.cron.Entries())

	cleared, err = m.Clear("refreshPriceAlarm")
	require.NoError(t, err)
	assert.False(t, cleared)
}

func TestCronManager_InvalidPeriod(t *testing.T) {
	m := NewCronManager(zap.NewNop())
	assert.ErrorIs(t, m.Create("a", 0), ErrInvalidPeriod)
	assert.ErrorIs(t, m.Create("a", -time.Second), ErrInvalidPeriod)
}

func TestCronManager_Fires(t *testing.T) {
	m := NewCronManager(zap.NewNop())
	var fired int32
	var firedName atomic.Value
	m.OnFire(func(ctx context.Context, name string) {
		firedName.Store(name)
		atomic.AddInt32(&fired, 1)
	})

	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()

	require.NoError(t, m.Create("tick", time.Second))
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&fired) >= 1 }, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, "tick", firedName.Load())
}

func TestCronManager_ClearedAlarmDoesNotFire(t *testing.T) {
	m := NewCronManager(zap.NewNop())
	var fired int32
	m.OnFire(func(ctx context.Context, name string) { atomic.AddInt32(&fired, 1) })

	require.NoError(t, m.Create("tick", time.Second))
	_, err := m.Clear("tick")
	require.NoError(t, err)

	// a job already dispatched for a cleared alarm is ignored
	m.fire("tick")
	assert.Equal(t, int32(0), atomic.LoadInt32(&fired))
}
