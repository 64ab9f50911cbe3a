package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, []string{"16:00-17:20", "17:30-18:50", "19:00-20:20"}, cfg.Scheduling.DefaultTimeBlocks)
	assert.Equal(t, "2026-02-28", cfg.Scheduling.SummerSeasonEnd)
	assert.Equal(t, 8, cfg.Agenda.DefaultDays)
	assert.Equal(t, time.Minute, cfg.Agenda.CacheTTL)
	assert.Equal(t, "log", cfg.Mail.Provider)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SUMMER_SEASON_END", "2027-03-01")
	t.Setenv("DEFAULT_TIME_BLOCKS", "10:00-11:20, 11:30-12:50")
	t.Setenv("MAIL_PROVIDER", "SendGrid")
	t.Setenv("AGENDA_CACHE_TTL", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "2027-03-01", cfg.Scheduling.SummerSeasonEnd)
	assert.Equal(t, []string{"10:00-11:20", "11:30-12:50"}, cfg.Scheduling.DefaultTimeBlocks)
	assert.Equal(t, "sendgrid", cfg.Mail.Provider)
	assert.Equal(t, time.Minute, cfg.Agenda.CacheTTL)
}

func TestSchedulingLocationFallback(t *testing.T) {
	assert.Equal(t, time.UTC, SchedulingConfig{}.Location())
	assert.Equal(t, time.UTC, SchedulingConfig{Timezone: "Nowhere/Invalid"}.Location())
}
