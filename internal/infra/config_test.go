package infra

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "GAD", cfg.Workflow.OfficePrefix)
	assert.Equal(t, "memory", cfg.Workflow.Storage)
	assert.Equal(t, "memory", cfg.Workflow.FolioBackend)
	assert.Equal(t, "template", cfg.Workflow.Renderer)
	assert.Equal(t, 1000, cfg.Journal.BufferSize)
	assert.Equal(t, time.Second, cfg.Journal.FlushInterval)
	assert.False(t, cfg.Tracking.ExposePersonalData)

	loc, err := cfg.Workflow.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/Guayaquil", loc.String())
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  port: 9000
workflow:
  office_prefix: GADM
  storage: postgres
  folio_backend: postgres
  render_timeout: 3s
database:
  url: postgres://portal@localhost/tramites
tracking:
  expose_personal_data: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	t.Setenv("SERVER_PORT", "9100")
	t.Setenv("AUTH_PUBLIC_KEY_DATA", "-----BEGIN PUBLIC KEY-----")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port, "env overrides file")
	assert.Equal(t, "GADM", cfg.Workflow.OfficePrefix)
	assert.Equal(t, "postgres", cfg.Workflow.Storage)
	assert.Equal(t, 3*time.Second, cfg.Workflow.RenderTimeout)
	assert.True(t, cfg.Tracking.ExposePersonalData)
	assert.Equal(t, []byte("-----BEGIN PUBLIC KEY-----"), cfg.Auth.PublicKey)
}

func TestLoadConfig_FolioBackendFollowsStorage(t *testing.T) {
	dir := t.TempDir()
	yaml := `
workflow:
  storage: postgres
database:
  url: postgres://portal@localhost/tramites
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Workflow.FolioBackend)
}

func TestConfigValidate(t *testing.T) {
	base := func() *Config {
		return &Config{Workflow: WorkflowConfig{Storage: "memory", FolioBackend: "memory", Renderer: "template"}}
	}

	require.NoError(t, base().Validate())

	c := base()
	c.Workflow.Storage = "sqlite"
	assert.Error(t, c.Validate())

	c = base()
	c.Workflow.Renderer = "grpc"
	assert.Error(t, c.Validate(), "grpc renderer without address")

	c = base()
	c.Workflow.Storage = "postgres"
	assert.Error(t, c.Validate(), "postgres without url")

	c = base()
	c.Database.URL = "postgres://x"
	c.Workflow.FolioBackend = "postgres"
	assert.Error(t, c.Validate(), "postgres folio counter needs postgres storage")

	c = base()
	c.Database.URL = "postgres://x"
	c.Workflow.Storage = "postgres"
	assert.Error(t, c.Validate(), "volatile folio counter with durable storage repeats folios after restart")

	c.Workflow.FolioBackend = "redis"
	assert.NoError(t, c.Validate())

	c = base()
	c.Workflow.Timezone = "Mars/Olympus"
	assert.Error(t, c.Validate())
}

func TestNewLogger(t *testing.T) {
	l, err := NewLogger(LoggerConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, l)

	_, err = NewLogger(LoggerConfig{Level: "loud"})
	assert.Error(t, err)
	_, err = NewLogger(LoggerConfig{Level: "info", Format: "xml"})
	assert.Error(t, err)
}
