package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFilesMissing(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(filepath.Join(dir, ConfigFile))
	require.NoError(t, err)

	assert.Equal(t, Default(), *cfg)
	assert.Equal(t, 10, cfg.Blog.FeaturedPageSize)
	assert.Equal(t, 25, cfg.Blog.CommentPageSize)
	assert.Equal(t, 2048, cfg.Blog.MaxCommentContentSize)
	assert.Equal(t, 15, cfg.Blog.MaxCommentNewlineCount)
	assert.Equal(t, 256, cfg.Blog.CommentContentLogCharacterLimit)
	assert.Equal(t, 1024, cfg.Blog.IOTransferBuffer)
	assert.True(t, cfg.Blog.CommentPostingEnabled)
	assert.False(t, cfg.Blog.PersistOriginalFileNames)
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFile)
	yamlData := `
server:
  addr: ":9090"
storage:
  root: /srv/blobs
  db_path: /srv/db
blog:
  persist_original_file_names: true
  comment_posting_enabled: false
  featured_page_size: 3
  comment_page_size: 4
  max_comment_content_size: 100
  max_comment_newline_count: 2
  comment_content_log_character_limit: 10
  io_transfer_buffer: 64
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yamlData), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "/srv/blobs", cfg.Storage.Root)
	assert.Equal(t, "/srv/db", cfg.Storage.DBPath)
	assert.True(t, cfg.Blog.PersistOriginalFileNames)
	assert.False(t, cfg.Blog.CommentPostingEnabled)
	assert.Equal(t, 3, cfg.Blog.FeaturedPageSize)
	assert.Equal(t, 64, cfg.Blog.IOTransferBuffer)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Untouched sections keep their defaults.
	assert.True(t, cfg.Users.DummyRegistrationsEnabled)
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFile)
	require.NoError(t, os.WriteFile(path, []byte("blog:\n  featured_page_size: 3\n"), 0644))

	t.Setenv("INKPOST_FEATURED_PAGE_SIZE", "7")
	t.Setenv("INKPOST_COMMENT_POSTING_ENABLED", "false")
	t.Setenv("INKPOST_ROOT", "/tmp/blobs")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Blog.FeaturedPageSize)
	assert.False(t, cfg.Blog.CommentPostingEnabled)
	assert.Equal(t, "/tmp/blobs", cfg.Storage.Root)
}

func TestLoadDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, EnvFile), []byte("INKPOST_COMMENT_PAGE_SIZE=11\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("INKPOST_COMMENT_PAGE_SIZE") })

	cfg, err := Load(filepath.Join(dir, ConfigFile))
	require.NoError(t, err)
	assert.Equal(t, 11, cfg.Blog.CommentPageSize)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"zero page size", "INKPOST_FEATURED_PAGE_SIZE", "0"},
		{"zero buffer", "INKPOST_IO_TRANSFER_BUFFER", "0"},
		{"non numeric", "INKPOST_COMMENT_PAGE_SIZE", "many"},
		{"non boolean", "INKPOST_LOG_PRETTY", "sometimes"},
		{"unknown level", "INKPOST_LOG_LEVEL", "verbose"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load(filepath.Join(t.TempDir(), ConfigFile))
			assert.Error(t, err)
		})
	}
}
