package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "source:\n  url: rtsp://cam.local/stream\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "sqlite", cfg.Storage.Backend)
	require.Equal(t, "data/ada.db", cfg.Storage.SQLitePath)
	require.Equal(t, "local", cfg.Storage.ImageStore)
	require.Equal(t, "rtsp://cam.local/stream", cfg.Source.URL)
	require.Equal(t, 5, cfg.Source.FPS)
	require.Equal(t, 640, cfg.Source.Width)
	require.Equal(t, 512, cfg.Recognition.DescriptorDim)
	require.InDelta(t, 1.02, cfg.Recognition.Threshold, 1e-9)
	require.Equal(t, 3, cfg.Recognition.SampleEvery)
	require.Equal(t, 30*time.Second, cfg.Recognition.Cooldown)
	require.Equal(t, 10*time.Second, cfg.Recognition.SightingDebounce)
	require.Equal(t, "flat", cfg.Recognition.Index)
	require.Equal(t, "none", cfg.Recognition.Prompt)
	require.InDelta(t, 0.3, cfg.Tracking.MinIoU, 1e-9)
	require.Equal(t, 30, cfg.Tracking.MaxAge)
	require.Equal(t, "info", cfg.Logging.Level)
	require.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFullFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  api_key: sekrit
storage:
  backend: postgres
  image_store: minio
database:
  host: db.internal
  port: 5433
  name: ada
  user: ada
  password: hunter2
  max_conns: 8
nats:
  url: nats://broker:4222
source:
  url: /dev/video0
  fps: 10
  width: 1280
recognition:
  descriptor_dim: 128
  threshold: 0.9
  sample_every: 2
  index: hnsw
  prompt: console
logging:
  level: debug
  format: text
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "sekrit", cfg.Server.APIKey)
	require.Equal(t, "postgres", cfg.Storage.Backend)
	require.Equal(t, "minio", cfg.Storage.ImageStore)
	require.Equal(t, 8, cfg.Database.MaxConns)
	require.Equal(t, "nats://broker:4222", cfg.NATS.URL)
	require.Equal(t, "/dev/video0", cfg.Source.URL)
	require.Equal(t, 128, cfg.Recognition.DescriptorDim)
	require.Equal(t, "hnsw", cfg.Recognition.Index)
	require.Equal(t, "console", cfg.Recognition.Prompt)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, "text", cfg.Logging.Format)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")

	t.Setenv("ADA_SERVER_PORT", "7000")
	t.Setenv("ADA_API_KEY", "from-env")
	t.Setenv("ADA_STORAGE_BACKEND", "postgres")
	t.Setenv("ADA_DB_HOST", "envdb")
	t.Setenv("ADA_SOURCE_URL", "rtsp://env.local/cam")
	t.Setenv("ADA_COOLDOWN", "45s")
	t.Setenv("ADA_SIGHTING_DEBOUNCE", "2s")

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 7000, cfg.Server.Port)
	require.Equal(t, "from-env", cfg.Server.APIKey)
	require.Equal(t, "postgres", cfg.Storage.Backend)
	require.Equal(t, "envdb", cfg.Database.Host)
	require.Equal(t, "rtsp://env.local/cam", cfg.Source.URL)
	require.Equal(t, 45*time.Second, cfg.Recognition.Cooldown)
	require.Equal(t, 2*time.Second, cfg.Recognition.SightingDebounce)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, Name: "ada", User: "u", Password: "p"}
	require.Equal(t, "postgres://u:p@db:5432/ada?sslmode=disable", d.DSN())
}
