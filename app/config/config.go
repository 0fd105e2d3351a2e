package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvFile    = ".env"
	ConfigFile = "config.yaml"
	envPrefix  = "INKPOST_"
)

// Config is the full application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Blog    BlogConfig    `yaml:"blog"`
	Users   UsersConfig   `yaml:"users"`
	Logging LoggingConfig `yaml:"logging"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required"`
}

type StorageConfig struct {
	// Root is the directory blobs are written under.
	Root string `yaml:"root" validate:"required"`
	// DBPath is the badger directory for post, comment and user records.
	DBPath string `yaml:"db_path" validate:"required"`
}

// BlogConfig holds the moderation and paging policy of the blog service.
type BlogConfig struct {
	PersistOriginalFileNames        bool `yaml:"persist_original_file_names"`
	CommentPostingEnabled           bool `yaml:"comment_posting_enabled"`
	FeaturedPageSize                int  `yaml:"featured_page_size" validate:"gt=0"`
	CommentPageSize                 int  `yaml:"comment_page_size" validate:"gt=0"`
	MaxCommentContentSize           int  `yaml:"max_comment_content_size" validate:"gte=0"`
	MaxCommentNewlineCount          int  `yaml:"max_comment_newline_count" validate:"gte=0"`
	CommentContentLogCharacterLimit int  `yaml:"comment_content_log_character_limit" validate:"gte=0"`
	IOTransferBuffer                int  `yaml:"io_transfer_buffer" validate:"gt=0"`
}

type UsersConfig struct {
	RegistrationsEnabled      bool `yaml:"registrations_enabled"`
	DummyRegistrationsEnabled bool `yaml:"dummy_registrations_enabled"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{Addr: ":8080"},
		Storage: StorageConfig{
			Root:   "application",
			DBPath: filepath.Join("data", "badger"),
		},
		Blog:    DefaultBlogConfig(),
		Users:   UsersConfig{RegistrationsEnabled: true, DummyRegistrationsEnabled: true},
		Logging: LoggingConfig{Level: "info"},
	}
}

// DefaultBlogConfig returns the stock blog policy.
func DefaultBlogConfig() BlogConfig {
	return BlogConfig{
		PersistOriginalFileNames:        false,
		CommentPostingEnabled:           true,
		FeaturedPageSize:                10,
		CommentPageSize:                 25,
		MaxCommentContentSize:           2048,
		MaxCommentNewlineCount:          15,
		CommentContentLogCharacterLimit: 256,
		IOTransferBuffer:                1024,
	}
}

// Load builds the configuration from defaults, the YAML file at path, a .env file beside it,
// and INKPOST_* environment variables, in that order of increasing precedence.
// A missing YAML or .env file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = ConfigFile
	}

	if err := godotenv.Load(filepath.Join(filepath.Dir(path), EnvFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", EnvFile, err)
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	strs := map[string]*string{
		"ADDR":      &cfg.Server.Addr,
		"ROOT":      &cfg.Storage.Root,
		"DB_PATH":   &cfg.Storage.DBPath,
		"LOG_LEVEL": &cfg.Logging.Level,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"FEATURED_PAGE_SIZE":                  &cfg.Blog.FeaturedPageSize,
		"COMMENT_PAGE_SIZE":                   &cfg.Blog.CommentPageSize,
		"MAX_COMMENT_CONTENT_SIZE":            &cfg.Blog.MaxCommentContentSize,
		"MAX_COMMENT_NEWLINE_COUNT":           &cfg.Blog.MaxCommentNewlineCount,
		"COMMENT_CONTENT_LOG_CHARACTER_LIMIT": &cfg.Blog.CommentContentLogCharacterLimit,
		"IO_TRANSFER_BUFFER":                  &cfg.Blog.IOTransferBuffer,
	}
	for key, dst := range ints {
		v, ok := os.LookupEnv(envPrefix + key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s: %w", envPrefix, key, err)
		}
		*dst = n
	}

	bools := map[string]*bool{
		"PERSIST_ORIGINAL_FILE_NAMES": &cfg.Blog.PersistOriginalFileNames,
		"COMMENT_POSTING_ENABLED":     &cfg.Blog.CommentPostingEnabled,
		"REGISTRATIONS_ENABLED":       &cfg.Users.RegistrationsEnabled,
		"DUMMY_REGISTRATIONS_ENABLED": &cfg.Users.DummyRegistrationsEnabled,
		"LOG_PRETTY":                  &cfg.Logging.Pretty,
	}
	for key, dst := range bools {
		v, ok := os.LookupEnv(envPrefix + key)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s: %w", envPrefix, key, err)
		}
		*dst = b
	}
	return nil
}
