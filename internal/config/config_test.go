package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "")
	t.Setenv("METADATA_BACKEND", "")

	cfg, _, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "viyey-worker", cfg.WorkerName)
	assert.Equal(t, StorageMinio, cfg.StorageBackend)
	assert.Equal(t, MetadataMemory, cfg.MetadataBackend)
	assert.Equal(t, SummaryAggregate, cfg.SummaryProfile)
	assert.Equal(t, 30*time.Second, cfg.RemoteTimeout)
	assert.Equal(t, 10*time.Minute, cfg.UploadTimeout)
	assert.Equal(t, int64(524288000), cfg.MaxUploadSize)
	assert.False(t, cfg.ShortenerEnabled())
	assert.False(t, cfg.IsProduction())
}

func TestLoadStreamRequiresCredentials(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", StorageStream)
	t.Setenv("STREAM_LIBRARY_ID", "")
	t.Setenv("STREAM_API_KEY", "")

	_, _, err := Load()
	assert.ErrorContains(t, err, "STREAM_LIBRARY_ID")
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
		want string
	}{
		{"storage backend", "STORAGE_BACKEND", "ftp", "unknown STORAGE_BACKEND"},
		{"metadata backend", "METADATA_BACKEND", "redis", "unknown METADATA_BACKEND"},
		{"summary profile", "SUMMARY_PROFILE", "fancy", "unknown SUMMARY_PROFILE"},
		{"timeout", "REMOTE_TIMEOUT", "soon", "invalid REMOTE_TIMEOUT"},
		{"upload timeout", "UPLOAD_TIMEOUT", "-1s", "must be positive"},
		{"max size", "MAX_UPLOAD_SIZE", "big", "invalid MAX_UPLOAD_SIZE"},
		{"summary document", "SUMMARY_DOCUMENT", "summary", "collection/id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, _, err := Load()
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestShortenerEnabled(t *testing.T) {
	cfg := &Config{ShortenerURL: "https://short.example/api", ShortenerToken: "tok"}
	assert.True(t, cfg.ShortenerEnabled())

	cfg.ShortenerToken = ""
	assert.False(t, cfg.ShortenerEnabled())
}
