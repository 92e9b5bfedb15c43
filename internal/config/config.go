package config

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	StorageJSON   = "json"
	StorageSQLite = "sqlite"

	PhotoLocal = "local"
	PhotoS3    = "s3"

	CaptionNone   = "none"
	CaptionClaude = "claude"
	CaptionOllama = "ollama"
)

// Config is resolved in three layers: the defaults below, an optional YAML
// file named by CONFIG_FILE, then environment variables.
type Config struct {
	Host           string `yaml:"host" envconfig:"HOST"`
	Port           int    `yaml:"port" envconfig:"PORT"`
	DataFile       string `yaml:"data_file" envconfig:"DATA_FILE"`
	ItemsFile      string `yaml:"items_file" envconfig:"ITEMS_FILE"`
	PublicDir      string `yaml:"public_dir" envconfig:"PUBLIC_DIR"`
	UploadDir      string `yaml:"upload_dir" envconfig:"UPLOAD_DIR"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES"`

	StorageBackend string `yaml:"storage_backend" envconfig:"STORAGE_BACKEND"`
	DBPath         string `yaml:"db_path" envconfig:"DB_PATH"`

	PhotoBackend string `yaml:"photo_backend" envconfig:"PHOTO_BACKEND"`
	S3Endpoint   string `yaml:"s3_endpoint" envconfig:"S3_ENDPOINT"`
	S3AccessKey  string `yaml:"s3_access_key" envconfig:"S3_ACCESS_KEY"`
	S3SecretKey  string `yaml:"s3_secret_key" envconfig:"S3_SECRET_KEY"`
	S3Bucket     string `yaml:"s3_bucket" envconfig:"S3_BUCKET"`

	CaptionBackend string `yaml:"caption_backend" envconfig:"CAPTION_BACKEND"`
	ClaudeAPIKey   string `yaml:"claude_api_key" envconfig:"CLAUDE_API_KEY"`
	ClaudeModel    string `yaml:"claude_model" envconfig:"CLAUDE_MODEL"`
	OllamaHost     string `yaml:"ollama_host" envconfig:"OLLAMA_HOST"`
	OllamaModel    string `yaml:"ollama_model" envconfig:"OLLAMA_MODEL"`

	CORSOrigins []string `yaml:"cors_origins" envconfig:"CORS_ORIGINS"`

	LogLevel  string `yaml:"log_level" envconfig:"LOG_LEVEL"`
	LogFormat string `yaml:"log_format" envconfig:"LOG_FORMAT"`
	LogFile   string `yaml:"log_file" envconfig:"LOG_FILE"`
}

func Default() *Config {
	return &Config{
		Host:           "0.0.0.0",
		Port:           3000,
		DataFile:       "./data.json",
		ItemsFile:      "./items.json",
		PublicDir:      "./public",
		UploadDir:      "./public/uploads",
		MaxUploadBytes: 10 << 20,
		StorageBackend: StorageJSON,
		DBPath:         "./peoplegallery.db",
		PhotoBackend:   PhotoLocal,
		CaptionBackend: CaptionClaude,
		ClaudeModel:    "claude-3-5-haiku-latest",
		OllamaHost:     "http://localhost:11434",
		OllamaModel:    "moondream",
		CORSOrigins:    []string{"*"},
		LogLevel:       "info",
		LogFormat:      "json",
	}
}

func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	// No `default` tags: envconfig leaves a field alone when its variable is
	// unset, so file values survive.
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := yaml.NewDecoder(f).Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}

	switch c.StorageBackend {
	case StorageJSON, StorageSQLite:
	default:
		return fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}

	switch c.PhotoBackend {
	case PhotoLocal:
	case PhotoS3:
		if c.S3Endpoint == "" || c.S3AccessKey == "" || c.S3SecretKey == "" || c.S3Bucket == "" {
			return fmt.Errorf("s3 photo backend requires S3_ENDPOINT, S3_ACCESS_KEY, S3_SECRET_KEY and S3_BUCKET")
		}
	default:
		return fmt.Errorf("unknown photo backend %q", c.PhotoBackend)
	}

	switch c.CaptionBackend {
	case CaptionNone, CaptionClaude:
	case CaptionOllama:
		if c.OllamaHost == "" || c.OllamaModel == "" {
			return fmt.Errorf("ollama caption backend requires OLLAMA_HOST and OLLAMA_MODEL")
		}
	default:
		return fmt.Errorf("unknown caption backend %q", c.CaptionBackend)
	}
	return nil
}

// ListenAddr joins HOST and PORT into a net.Listen address.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(strings.TrimSpace(c.Host), strconv.Itoa(c.Port))
}

// CaptioningEnabled is false for the claude backend until an API key is set.
func (c *Config) CaptioningEnabled() bool {
	switch c.CaptionBackend {
	case CaptionClaude:
		return c.ClaudeAPIKey != ""
	case CaptionOllama:
		return true
	default:
		return false
	}
}
