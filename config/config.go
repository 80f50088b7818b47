// Package config handles docuforge server configuration from a YAML file,
// with defaults suitable for a single-node deployment.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level docuforge configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	ListenAddr      string        `yaml:"listen_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`
}

// StorageConfig controls where the database and project files live.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
	UploadRoot   string `yaml:"upload_root"`
	TempDir      string `yaml:"temp_dir"`
}

// PipelineConfig controls the conversion pipeline.
type PipelineConfig struct {
	// Endpoint is the chat-completions base URL of the remote provider.
	Endpoint string `yaml:"endpoint"`
	// OCRTimeout is the overall deadline for a single OCR attempt
	// (covering all fallback models).
	OCRTimeout time.Duration `yaml:"ocr_timeout"`
	// MaxOCRFileBytes rejects larger files before any network call.
	MaxOCRFileBytes int64 `yaml:"max_ocr_file_bytes"`
	// ChunkThreshold is the raw-text length above which the structurer
	// input is split into chunks.
	ChunkThreshold int `yaml:"chunk_threshold"`
	// EmbeddedTextMin is the minimum concatenated embedded-text length
	// for a PDF text layer to be considered usable.
	EmbeddedTextMin int `yaml:"embedded_text_min"`
	// FallbackModels are tried in order after the configured OCR model.
	FallbackModels []string `yaml:"fallback_models"`
}

// Load reads a YAML configuration file and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// Default returns a configuration with all defaults applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero-valued fields with production defaults.
func (c *Config) ApplyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":10001"
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Server.MaxUploadBytes <= 0 {
		c.Server.MaxUploadBytes = 64 << 20
	}
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = "data/docuforge.db"
	}
	if c.Storage.UploadRoot == "" {
		c.Storage.UploadRoot = "data/uploads"
	}
	if c.Storage.TempDir == "" {
		c.Storage.TempDir = os.TempDir()
	}
	if c.Pipeline.Endpoint == "" {
		c.Pipeline.Endpoint = "https://openrouter.ai/api/v1"
	}
	if c.Pipeline.OCRTimeout <= 0 {
		c.Pipeline.OCRTimeout = 5 * time.Minute
	}
	if c.Pipeline.MaxOCRFileBytes <= 0 {
		c.Pipeline.MaxOCRFileBytes = 30 << 20
	}
	if c.Pipeline.ChunkThreshold <= 0 {
		// 100k tokens at roughly 4 chars per token.
		c.Pipeline.ChunkThreshold = 400_000
	}
	if c.Pipeline.EmbeddedTextMin <= 0 {
		c.Pipeline.EmbeddedTextMin = 100
	}
	if len(c.Pipeline.FallbackModels) == 0 {
		c.Pipeline.FallbackModels = []string{
			"openai/gpt-4o-mini",
			"openai/gpt-4-turbo",
			"google/gemini-pro-vision",
			"anthropic/claude-3-haiku",
			"mistralai/mistral-nemo",
		}
	}
}
