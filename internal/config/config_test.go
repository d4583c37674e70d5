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
	t.Setenv(configPathEnv, "")
	t.Setenv(projectEnv, "")
	t.Setenv(historyDBEnv, "")
	t.Setenv(telegramTokenEnv, "")
	t.Setenv(telegramChatIDEnv, "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.ErrorIs(t, cfg.Validate(), ErrMissingOutput)

	cfg.Output.Prefix = "/tmp/results"
	assert.NoError(t, cfg.Validate())
}

func TestLoadFileKeepsUnsetDefaults(t *testing.T) {
	t.Setenv(projectEnv, "")
	t.Setenv(historyDBEnv, "")
	t.Setenv(telegramTokenEnv, "")
	t.Setenv(telegramChatIDEnv, "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
source:
  num_answers: 500
checker:
  read_timeout: 3s
  follow_redirects: true
runner:
  name: sharded
output:
  prefix: gs://reports/so/run
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.Source.NumAnswers)
	assert.Equal(t, 3*time.Second, cfg.Checker.ReadTimeout)
	assert.Equal(t, 5*time.Second, cfg.Checker.ConnectTimeout)
	assert.True(t, cfg.Checker.FollowRedirects)
	assert.Equal(t, "sharded", cfg.Runner.Name)
	assert.Equal(t, 16, cfg.Runner.DirectNumWorkers)
	assert.Equal(t, "gs://reports/so/run", cfg.Output.Prefix)
	assert.Equal(t, "stackoverflow.com", cfg.Extractor.ExcludedDomain)
}

func TestLoadPathFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0o600))
	t.Setenv(configPathEnv, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(projectEnv, "my-project")
	t.Setenv(historyDBEnv, "/var/lib/linkscanner/history.db")
	t.Setenv(telegramTokenEnv, "token")
	t.Setenv(telegramChatIDEnv, "-100")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "my-project", cfg.Source.Project)
	assert.Equal(t, "/var/lib/linkscanner/history.db", cfg.History.Path)
	assert.True(t, cfg.Notifications.Telegram.Enabled())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("checker:\n  read_timeout: soon\n"), 0o600))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := Default()
	valid.Output.Prefix = "out"

	cases := map[string]func(*Config){
		"num answers": func(c *Config) { c.Source.NumAnswers = 0 },
		"runner":      func(c *Config) { c.Runner.Name = "" },
		"workers":     func(c *Config) { c.Runner.NumWorkers = 0 },
		"direct":      func(c *Config) { c.Runner.DirectNumWorkers = -1 },
		"timeout":     func(c *Config) { c.Checker.ConnectTimeout = 0 },
		"rate":        func(c *Config) { c.Checker.MaxRequestsPerSecond = -1 },
	}
	for name, mutate := range cases {
		cfg := valid
		mutate(&cfg)
		assert.Error(t, cfg.Validate(), name)
	}
}
