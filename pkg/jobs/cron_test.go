package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestCronRegisterRejectsInvalidSpec(t *testing.T) {
	c := NewCron(time.UTC, nil)
	err := c.Register("broken", "not a spec", func(context.Context, time.Time) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestCronRegisterHourly(t *testing.T) {
	c := NewCron(nil, nil)
	require.NoError(t, c.Register("reminders", "0 * * * *", func(context.Context, time.Time) {}))
	c.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	c.Stop(ctx)
}

func TestCronRecoveredPanicIsLoggedThroughZap(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	wrapped := cron.Recover(cronLogger{logger: zap.New(core)})(cron.FuncJob(func() {
		panic("boom")
	}))

	assert.NotPanics(t, wrapped.Run)
	entries := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, entries, 1)
	assert.Equal(t, "panic", entries[0].Message)
	assert.Contains(t, entries[0].ContextMap()["error"], "boom")
}
