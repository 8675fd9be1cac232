package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"KB_CONFIG", "KB_DATA_DIR", "KB_SECURITY_CODE",
	"GITHUB_TOKEN", "GITHUB_REPO", "GITHUB_BRANCH", "GITHUB_FOLDER", "GITHUB_TIMEOUT",
	"OPENAI_API_KEY", "OPENAI_MODEL", "QDRANT_HOST", "QDRANT_PORT",
	"AI_DAILY_LIMIT", "AI_USAGE_PERIOD", "PORT", "SERVER_MODE",
}

// clearEnv blanks every recognised variable; empty values fall through to
// defaults.
func clearEnv(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ".", cfg.DataDir)
	assert.Equal(t, DefaultRepo, cfg.GitHub.Repo)
	assert.Equal(t, DefaultFolder, cfg.GitHub.Folder)
	assert.Equal(t, DefaultTimeout, cfg.GitHub.Timeout)
	assert.Equal(t, 1500, cfg.AI.Limit)
	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.False(t, cfg.GitHubEnabled())
	assert.False(t, cfg.SemanticEnabled())
	assert.False(t, cfg.AnswerEnabled())
}

func TestLoadYAMLThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "kb.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir: /var/lib/kb
security_code: "1234"
github:
  token: yaml-token
  repo: ct/backup
  timeout: 45s
openai:
  api_key: sk-yaml
qdrant:
  host: qdrant.internal
ai:
  limit: 100
  period: monthly
`), 0o644))

	t.Setenv("GITHUB_REPO", "ct/override")
	t.Setenv("QDRANT_PORT", "7000")
	t.Setenv("SERVER_MODE", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/kb", cfg.DataDir)
	assert.Equal(t, "1234", cfg.SecurityCode)
	assert.Equal(t, "yaml-token", cfg.GitHub.Token)
	assert.Equal(t, "ct/override", cfg.GitHub.Repo)
	assert.Equal(t, DefaultFolder, cfg.GitHub.Folder)
	assert.Equal(t, 45*time.Second, cfg.GitHub.Timeout)
	assert.Equal(t, 7000, cfg.Qdrant.Port)
	assert.Equal(t, 100, cfg.AI.Limit)
	assert.Equal(t, "monthly", cfg.AI.Period)
	assert.True(t, cfg.Server.HTTP)
	assert.True(t, cfg.GitHubEnabled())
	assert.True(t, cfg.SemanticEnabled())
	assert.Equal(t, filepath.Join("/var/lib/kb", UsageFileName), cfg.UsagePath())
}

func TestLoadFromKBConfig(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "kb.yaml")
	require.NoError(t, os.WriteFile(path, []byte("security_code: abc\n"), 0o644))
	t.Setenv("KB_CONFIG", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "abc", cfg.SecurityCode)
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("github: [unterminated"), 0o644))
	_, err = Load(bad)
	assert.Error(t, err)
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("KB_TEST_TIMEOUT", "90")
	assert.Equal(t, 90*time.Second, getEnvDuration("KB_TEST_TIMEOUT", time.Second))

	t.Setenv("KB_TEST_TIMEOUT", "2m")
	assert.Equal(t, 2*time.Minute, getEnvDuration("KB_TEST_TIMEOUT", time.Second))

	t.Setenv("KB_TEST_TIMEOUT", "soon")
	assert.Equal(t, time.Second, getEnvDuration("KB_TEST_TIMEOUT", time.Second))
}
