package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every runtime setting. Values come from defaults, then an
// optional YAML file, then environment variables; CLI flags override on top.
type Config struct {
	// Web demo
	Host   string `yaml:"host"`
	Port   string `yaml:"port"`
	APIKey string `yaml:"api_key"` // optional bearer auth for the demo API

	// Input limits
	MaxInputBytes int64         `yaml:"max_input_bytes"`
	FetchTimeout  time.Duration `yaml:"fetch_timeout"`

	// Worker pool
	WorkerCount         int           `yaml:"worker_count"`
	MaxQueueSize        int           `yaml:"max_queue_size"`
	MaxConcurrentImages int           `yaml:"max_concurrent_images"`
	JobTTL              time.Duration `yaml:"job_ttl"`

	// OCR
	OCREngine       string   `yaml:"ocr_engine"`
	OCRLanguages    []string `yaml:"ocr_languages"`
	OCRRemoteURL    string   `yaml:"ocr_remote_url"`
	OCRRemoteAPIKey string   `yaml:"ocr_remote_api_key"`

	// VLM
	VLMBaseURL string `yaml:"vlm_base_url"`
	VLMAPIKey  string `yaml:"vlm_api_key"`
	VLMModel   string `yaml:"vlm_model"`

	// PDF
	PDFFallbackPdftotext bool `yaml:"pdf_fallback_pdftotext"`
}

// Load assembles configuration from defaults, the optional YAML file at
// path (empty means skip), and the environment.
func Load(path string) (Config, error) {
	cfg := Config{
		Host:                 "127.0.0.1",
		Port:                 "7860",
		MaxInputBytes:        52428800, // 50MB
		FetchTimeout:         60 * time.Second,
		WorkerCount:          4,
		MaxQueueSize:         100,
		MaxConcurrentImages:  4,
		JobTTL:               1 * time.Hour,
		OCREngine:            "tesseract",
		OCRLanguages:         []string{"eng"},
		PDFFallbackPdftotext: true,
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.Host = envOr("DOCMILL_HOST", cfg.Host)
	cfg.Port = envOr("DOCMILL_PORT", cfg.Port)
	cfg.APIKey = envOr("DOCMILL_API_KEY", cfg.APIKey)
	cfg.MaxInputBytes = envInt64("DOCMILL_MAX_INPUT_BYTES", cfg.MaxInputBytes)
	cfg.FetchTimeout = envDuration("DOCMILL_FETCH_TIMEOUT", cfg.FetchTimeout)
	cfg.WorkerCount = envInt("DOCMILL_WORKER_COUNT", cfg.WorkerCount)
	cfg.MaxQueueSize = envInt("DOCMILL_MAX_QUEUE_SIZE", cfg.MaxQueueSize)
	cfg.MaxConcurrentImages = envInt("DOCMILL_MAX_CONCURRENT_IMAGES", cfg.MaxConcurrentImages)
	cfg.JobTTL = envDuration("DOCMILL_JOB_TTL", cfg.JobTTL)
	cfg.OCREngine = envOr("DOCMILL_OCR_ENGINE", cfg.OCREngine)
	cfg.OCRRemoteURL = envOr("DOCMILL_OCR_REMOTE_URL", cfg.OCRRemoteURL)
	cfg.OCRRemoteAPIKey = envOr("DOCMILL_OCR_REMOTE_API_KEY", cfg.OCRRemoteAPIKey)
	cfg.VLMBaseURL = envOr("DOCMILL_VLM_BASE_URL", cfg.VLMBaseURL)
	cfg.VLMAPIKey = envOr("DOCMILL_VLM_API_KEY", cfg.VLMAPIKey)
	cfg.VLMModel = envOr("DOCMILL_VLM_MODEL", cfg.VLMModel)
	cfg.PDFFallbackPdftotext = envBool("DOCMILL_PDF_FALLBACK_PDFTOTEXT", cfg.PDFFallbackPdftotext)

	cfg.clamp()
	return cfg, nil
}

func (c *Config) clamp() {
	if c.WorkerCount <= 0 {
		c.WorkerCount = 4
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = 100
	}
	if c.MaxConcurrentImages <= 0 {
		c.MaxConcurrentImages = 4
	}
	if c.MaxInputBytes <= 0 {
		c.MaxInputBytes = 52428800
	}
	if c.JobTTL <= 0 {
		c.JobTTL = 1 * time.Hour
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 60 * time.Second
	}
}

// Validate checks settings that have no usable fallback.
func (c Config) Validate() error {
	switch c.OCREngine {
	case "tesseract", "easyocr", "rapidocr", "ocrmac", "remote":
	default:
		return fmt.Errorf("unknown ocr engine: %q", c.OCREngine)
	}
	if c.OCREngine == "remote" && c.OCRRemoteURL == "" {
		return fmt.Errorf("DOCMILL_OCR_REMOTE_URL is required for the remote ocr engine")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
