package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PERSONIO_CLIENT_ID", "id")
	t.Setenv("PERSONIO_CLIENT_SECRET", "secret")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "personio-adapter", cfg.ServiceName)
	assert.Equal(t, "https://api.personio.de", cfg.PersonioBaseURL)
	assert.Equal(t, 1000, cfg.MaxPages)
	assert.Equal(t, "./export", cfg.OutputPath)
	assert.False(t, cfg.IncludeDocuments)
	assert.False(t, cfg.ScheduleEnabled)
	assert.Equal(t, "03:30", cfg.DailyAt.Format("15:04"))
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	t.Setenv("PERSONIO_CLIENT_ID", "id")
	t.Setenv("PERSONIO_CLIENT_SECRET", "secret")

	path := writeYAML(t, `
personio:
  base_url: https://api.personio.example
  max_pages: 50
export:
  output_path: /data/export
  include_documents: true
schedule:
  enabled: true
  daily_at: "04:15"
logging:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://api.personio.example", cfg.PersonioBaseURL)
	assert.Equal(t, 50, cfg.MaxPages)
	assert.Equal(t, "/data/export", cfg.OutputPath)
	assert.True(t, cfg.IncludeDocuments)
	assert.True(t, cfg.ScheduleEnabled)
	assert.Equal(t, "04:15", cfg.DailyAt.Format("15:04"))
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadEnvWinsOverYAML(t *testing.T) {
	t.Setenv("PERSONIO_CLIENT_ID", "id")
	t.Setenv("PERSONIO_CLIENT_SECRET", "secret")
	t.Setenv("PERSONIO_BASE_URL", "https://env.example")
	t.Setenv("EXPORT_INCLUDE_DOCUMENTS", "no")

	path := writeYAML(t, `
personio:
  base_url: https://yaml.example
export:
  include_documents: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://env.example", cfg.PersonioBaseURL)
	assert.False(t, cfg.IncludeDocuments)
}

func TestLoadMissingYAMLIsFine(t *testing.T) {
	t.Setenv("PERSONIO_CLIENT_ID", "id")
	t.Setenv("PERSONIO_CLIENT_SECRET", "secret")

	_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)
}

func TestLoadMalformedYAMLFails(t *testing.T) {
	t.Setenv("PERSONIO_CLIENT_ID", "id")
	t.Setenv("PERSONIO_CLIENT_SECRET", "secret")

	path := writeYAML(t, "personio: [not a map")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRequiresCredentials(t *testing.T) {
	t.Setenv("PERSONIO_CLIENT_ID", "")
	t.Setenv("PERSONIO_CLIENT_SECRET", "")
	t.Setenv("PERSONIO_SECRET_NAME", "")

	_, err := Load("")
	require.Error(t, err)
}

func TestLoadSecretNameAloneIsEnough(t *testing.T) {
	t.Setenv("PERSONIO_CLIENT_ID", "")
	t.Setenv("PERSONIO_CLIENT_SECRET", "")
	t.Setenv("PERSONIO_SECRET_NAME", "prod/personio/api")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "prod/personio/api", cfg.SecretName)
}
