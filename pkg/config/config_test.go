package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 24*time.Hour, cfg.Scheduling.CancelCutoff)
	assert.Equal(t, 25, cfg.Scheduling.LessonXPReward)
	assert.Equal(t, "0 * * * *", cfg.Reminders.Cron)
	assert.Equal(t, 24, cfg.Reminders.DefaultHours)
	assert.False(t, cfg.Reminders.OncePerLesson)
	assert.Equal(t, "notifications", cfg.Notifications.Channel)
}

func TestLoadEnvOverrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv("CANCEL_CUTOFF", "48h")
	t.Setenv("REMINDER_ONCE_PER_LESSON", "true")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 48*time.Hour, cfg.Scheduling.CancelCutoff)
	assert.True(t, cfg.Reminders.OncePerLesson)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestSchedulingLocationFallback(t *testing.T) {
	assert.Equal(t, time.UTC, SchedulingConfig{Timezone: "Not/AZone"}.Location())
	assert.Equal(t, time.UTC, SchedulingConfig{}.Location())
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("bogus", time.Minute))
	assert.Equal(t, 2*time.Hour, parseDuration("2h", time.Minute))
}

func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
