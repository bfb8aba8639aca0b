package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Server
	Host string `yaml:"host"`
	Port string `yaml:"port"`

	// Logging
	LogLevel  string `yaml:"logLevel"`
	LogFormat string `yaml:"logFormat"`

	// Annotation model
	ModelName            string        `yaml:"modelName"`
	ModelDir             string        `yaml:"modelDir"`
	ModelURL             string        `yaml:"modelUrl"`
	ModelDownloadTimeout time.Duration `yaml:"modelDownloadTimeout"`
	MaxModelBytes        int64         `yaml:"maxModelBytes"`

	// Document extraction
	PDFBackend       string        `yaml:"pdfBackend"`
	MaxPageWorkers   int           `yaml:"maxPageWorkers"`
	PDFInfoTimeout   time.Duration `yaml:"pdfInfoTimeout"`
	PDFToTextTimeout time.Duration `yaml:"pdfToTextTimeout"`

	// Limits (0 = unlimited)
	MaxUploadBytes        int64 `yaml:"maxUploadBytes"`
	MaxConcurrentRequests int64 `yaml:"maxConcurrentRequests"`

	// rate limiting (per IP, burst 0 = off)
	RateLimitEvery time.Duration `yaml:"rateLimitEvery"`
	RateLimitBurst int           `yaml:"rateLimitBurst"`

	CORSAllowedOrigins []string `yaml:"corsAllowedOrigins"`

	// Server timeouts (0 = none)
	ReadHeaderTimeout time.Duration `yaml:"readHeaderTimeout"`
	ReadTimeout       time.Duration `yaml:"readTimeout"`
	WriteTimeout      time.Duration `yaml:"writeTimeout"`
	IdleTimeout       time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdownTimeout"`

	// housekeeping
	CleanupInterval time.Duration `yaml:"cleanupInterval"`

	// http
	MaxHeaderBytes int `yaml:"maxHeaderBytes"`
}

const (
	BackendNative  = "native"
	BackendPoppler = "poppler"
)

func Defaults() Config {
	return Config{
		Host: "0.0.0.0",
		Port: "5000",

		LogLevel:  "info",
		LogFormat: "text",

		ModelName:            "en_core_web_sm",
		ModelDir:             defaultModelDir(),
		ModelDownloadTimeout: 5 * time.Minute,
		MaxModelBytes:        512 << 20,

		PDFBackend:       BackendNative,
		MaxPageWorkers:   8,
		PDFInfoTimeout:   5 * time.Second,
		PDFToTextTimeout: 10 * time.Second,

		RateLimitEvery: 600 * time.Millisecond,

		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		ShutdownTimeout:   15 * time.Second,

		CleanupInterval: 5 * time.Minute,

		MaxHeaderBytes: 1 << 20,
	}
}

// Load returns the defaults, overlaid with CONFIG_FILE (if set) and then the
// process environment.
func Load() (Config, error) {
	cfg := Defaults()

	if path := envStr("CONFIG_FILE", ""); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return cfg, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", filepath.Base(path), err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Host = envStr("HOST", c.Host)
	c.Port = envStr("PORT", c.Port)

	c.LogLevel = envStr("LOG_LEVEL", c.LogLevel)
	c.LogFormat = envStr("LOG_FORMAT", c.LogFormat)

	c.ModelName = envStr("MODEL_NAME", c.ModelName)
	c.ModelDir = envStr("MODEL_DIR", c.ModelDir)
	c.ModelURL = envStr("MODEL_URL", c.ModelURL)
	c.ModelDownloadTimeout = envDur("MODEL_DOWNLOAD_TIMEOUT", c.ModelDownloadTimeout)
	c.MaxModelBytes = int64(envInt("MAX_MODEL_BYTES", int(c.MaxModelBytes)))

	c.PDFBackend = strings.ToLower(envStr("PDF_BACKEND", c.PDFBackend))
	c.MaxPageWorkers = envInt("MAX_PAGE_WORKERS", c.MaxPageWorkers)
	c.PDFInfoTimeout = envDur("PDFINFO_TIMEOUT", c.PDFInfoTimeout)
	c.PDFToTextTimeout = envDur("PDFTOTEXT_TIMEOUT", c.PDFToTextTimeout)

	c.MaxUploadBytes = int64(envInt("MAX_UPLOAD_BYTES", int(c.MaxUploadBytes)))
	c.MaxConcurrentRequests = int64(envInt("MAX_CONCURRENT_REQUESTS", int(c.MaxConcurrentRequests)))

	c.RateLimitEvery = envDur("RATE_LIMIT_EVERY", c.RateLimitEvery)
	c.RateLimitBurst = envInt("RATE_LIMIT_BURST", c.RateLimitBurst)

	c.CORSAllowedOrigins = envList("CORS_ALLOWED_ORIGINS", c.CORSAllowedOrigins)

	c.ReadHeaderTimeout = envDur("READ_HEADER_TIMEOUT", c.ReadHeaderTimeout)
	c.ReadTimeout = envDur("READ_TIMEOUT", c.ReadTimeout)
	c.WriteTimeout = envDur("WRITE_TIMEOUT", c.WriteTimeout)
	c.IdleTimeout = envDur("IDLE_TIMEOUT", c.IdleTimeout)
	c.ShutdownTimeout = envDur("SHUTDOWN_TIMEOUT", c.ShutdownTimeout)

	c.CleanupInterval = envDur("CLEANUP_INTERVAL", c.CleanupInterval)

	c.MaxHeaderBytes = envInt("MAX_HEADER_BYTES", c.MaxHeaderBytes)
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("MODEL_NAME must not be empty")
	}
	if strings.ContainsAny(c.ModelName, `/\`) || c.ModelName == "." || c.ModelName == ".." {
		return fmt.Errorf("MODEL_NAME must be a plain directory name")
	}
	if strings.TrimSpace(c.ModelDir) == "" {
		return fmt.Errorf("MODEL_DIR must not be empty")
	}
	switch c.PDFBackend {
	case BackendNative, BackendPoppler:
	default:
		return fmt.Errorf("PDF_BACKEND must be %q or %q, got %q", BackendNative, BackendPoppler, c.PDFBackend)
	}
	if n, err := strconv.Atoi(c.Port); err != nil || n <= 0 || n > 65535 {
		return fmt.Errorf("PORT must be a valid TCP port, got %q", c.Port)
	}
	if c.MaxUploadBytes < 0 || c.MaxConcurrentRequests < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("limits must not be negative")
	}
	return nil
}

func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func defaultModelDir() string {
	base, err := os.UserCacheDir()
	if err != nil || base == "" {
		base = os.TempDir()
	}
	return filepath.Join(base, "credit-report-service", "models")
}

func envStr(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func envDur(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

func envList(key string, fallback []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
