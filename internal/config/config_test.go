package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9000\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "development", cfg.Server.Env)
	assert.Equal(t, 512, cfg.Images.PartitionSize)
	assert.Equal(t, 90, cfg.Images.JPEGQuality)
	assert.Equal(t, 86400, cfg.Images.CacheMaxAge)
	assert.Equal(t, 3600, cfg.Images.RandomTTL)
}

func TestLoadFullFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  host: 127.0.0.1
  port: 8080
  env: production
database:
  path: /var/lib/picserve/db.sqlite
storage:
  upload_dir: /srv/uploads
  cache_dir: /srv/cache
  fallback_image: /srv/noimage.jpg
images:
  partition_size: 256
  jpeg_quality: 80
  cache_max_age: 3600
  random_ttl: 600
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Server.Env)
	assert.Equal(t, "/srv/uploads", cfg.Storage.UploadDir)
	assert.Equal(t, 256, cfg.Images.PartitionSize)
	assert.Equal(t, 80, cfg.Images.JPEGQuality)
	assert.Equal(t, 600, cfg.Images.RandomTTL)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, "uploads", cfg.Storage.UploadDir)
	assert.Equal(t, "storage/noimage.jpg", cfg.Storage.FallbackImage)
}
