package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, "fs", cfg.Cloud.Provider)
	assert.Equal(t, 180, cfg.Queue.GracePeriodDays)
	assert.Equal(t, 2, cfg.Queue.FailureCooldownDays)
	assert.False(t, cfg.Queue.Shuffle)
	assert.Equal(t, 25, cfg.Queue.TermCount)
	assert.Equal(t, "countryBR", cfg.Search.Country)
	assert.Equal(t, "lang_pt", cfg.Search.Language)
	assert.Equal(t, 180*24*time.Hour, cfg.GracePeriod())
	assert.Equal(t, 2*24*time.Hour, cfg.FailureCooldown())
	assert.Equal(t, filepath.Join("schwordcloud", "schwordcloud.db"), cfg.DatabasePath())
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
data:
  home: /var/lib/schwordcloud
catalog:
  refresh_days: 3
search:
  api_key: key
  engine_id: engine
  rate_per_second: 0.5
queue:
  grace_period_days: 90
  failure_cooldown_days: 1
  category: 2
  shuffle: true
  max_searches: 10
db:
  driver: postgres
  dsn: postgres://localhost/schwordcloud
cloud:
  provider: gcs
  bucket: annotations
  get: shared/get
  post: shared/post
pubsub:
  enabled: true
  project_id: proj
  topic_name: snapshots
logging:
  development: true
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/schwordcloud", cfg.Data.Home)
	assert.Equal(t, 3, cfg.Catalog.RefreshDays)
	assert.Equal(t, 0.5, cfg.Search.RatePerSecond)
	assert.Equal(t, 90, cfg.Queue.GracePeriodDays)
	assert.Equal(t, 1, cfg.Queue.FailureCooldownDays)
	assert.Equal(t, 2, cfg.Queue.Category)
	assert.True(t, cfg.Queue.Shuffle)
	assert.Equal(t, 10, cfg.Queue.MaxSearches)
	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, "gcs", cfg.Cloud.Provider)
	assert.True(t, cfg.PubSub.Enabled)
	assert.True(t, cfg.Logging.Development)
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Parallel()

	base := func() Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.DB.Driver = "mysql"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.DB.Driver = "postgres"
	assert.Error(t, cfg.Validate(), "postgres requires a dsn")

	cfg = base()
	cfg.Cloud.Provider = "gcs"
	assert.Error(t, cfg.Validate(), "gcs requires a bucket")

	cfg = base()
	cfg.Queue.GracePeriodDays = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.PubSub.Enabled = true
	assert.Error(t, cfg.Validate(), "pubsub requires project and topic")
}

func TestLoadMissingFileFails(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
