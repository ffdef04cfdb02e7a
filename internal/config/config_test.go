package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "vastai", cfg.Marketplace.Binary)
	assert.Equal(t, DefaultQuery, cfg.Search.Query)
	assert.Equal(t, 3, cfg.Search.Top)
	assert.Equal(t, 30.0, cfg.Estimate.StorageGB)
	assert.Equal(t, 720.0, cfg.Estimate.MonthHours)
	assert.Equal(t, 30.0, cfg.Estimate.DownloadGB)
	assert.Equal(t, 10.0, cfg.Estimate.UploadGB)
	assert.Equal(t, 4.0, cfg.Estimate.WindowHours)
	assert.Equal(t, DefaultImage, cfg.Launch.Image)
	assert.Equal(t, 30, cfg.Launch.DiskGB)
	assert.Equal(t, "-p 8081:8081", cfg.Launch.Env)
	assert.Equal(t, 8081, cfg.Launch.Port)
	assert.Equal(t, 5*time.Second, cfg.Poll.Interval)
	assert.Zero(t, cfg.Poll.Timeout)
	assert.Zero(t, cfg.Poll.MaxAttempts)
	assert.Empty(t, cfg.NATS.URL)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
marketplace:
  binary: /opt/vastai
search:
  top: 5
poll:
  interval: 2s
  timeout: 10m
launch:
  port: 9000
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	t.Setenv("VASTAI_API_KEY", "secret")
	t.Setenv("VASTDEPLOY_POLL_MAX_ATTEMPTS", "12")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/opt/vastai", cfg.Marketplace.Binary)
	assert.Equal(t, "secret", cfg.Marketplace.APIKey)
	assert.Equal(t, 5, cfg.Search.Top)
	assert.Equal(t, 2*time.Second, cfg.Poll.Interval)
	assert.Equal(t, 10*time.Minute, cfg.Poll.Timeout)
	assert.Equal(t, 12, cfg.Poll.MaxAttempts)
	assert.Equal(t, 9000, cfg.Launch.Port)
	assert.Equal(t, "json", cfg.Logging.Format)
	// untouched keys keep their defaults
	assert.Equal(t, DefaultImage, cfg.Launch.Image)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		file string
	}{
		{
			name: "bad int",
			env:  map[string]string{"VASTDEPLOY_TOP": "three"},
		},
		{
			name: "bad duration",
			env:  map[string]string{"VASTDEPLOY_POLL_INTERVAL": "soon"},
		},
		{
			name: "zero top",
			env:  map[string]string{"VASTDEPLOY_TOP": "0"},
		},
		{
			name: "port out of range",
			file: "launch:\n  port: 70000\n",
		},
		{
			name: "malformed yaml",
			file: "search: [",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = filepath.Join(t.TempDir(), "config.yaml")
				require.NoError(t, os.WriteFile(path, []byte(tt.file), 0o644))
			}

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	logger, err := NewLogger(LoggingConfig{Level: "debug", Format: "json"}, &buf)
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	logger.WithField("offer", 42).Info("hello")
	assert.Contains(t, buf.String(), `"offer":42`)

	_, err = NewLogger(LoggingConfig{Level: "loud", Format: "text"}, &buf)
	assert.Error(t, err)

	_, err = NewLogger(LoggingConfig{Level: "info", Format: "xml"}, &buf)
	assert.Error(t, err)
}
