package nlp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const installedMarker = ".installed"

type BootstrapConfig struct {
	Name string // model directory name under Dir
	Dir  string // install root

	// URL of a gzip-compressed tar archive holding the model files. When
	// empty the English model bundled with the annotator is installed.
	URL string

	Timeout  time.Duration
	MaxBytes int64 // cap on unpacked archive size, 0 = unlimited

	Client *http.Client
}

// ModelInstallError is fatal: the process must not serve without a model.
type ModelInstallError struct {
	Name string
	Err  error
}

func (e *ModelInstallError) Error() string {
	return fmt.Sprintf("install model %q: %v", e.Name, e.Err)
}

func (e *ModelInstallError) Unwrap() error { return e.Err }

// Bootstrap makes sure the model is installed locally and loads it.
func Bootstrap(ctx context.Context, cfg BootstrapConfig, logger *slog.Logger) (*Model, error) {
	if logger == nil {
		logger = slog.Default()
	}

	path, err := Install(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	m, err := loadModel(cfg.Name, path)
	if err != nil {
		return nil, &ModelInstallError{Name: cfg.Name, Err: err}
	}
	logger.Info("annotation model loaded", "model", cfg.Name, "path", path, "duration", time.Since(start))
	return m, nil
}

// Install returns the model directory, fetching the model first when it is
// not installed yet.
func Install(ctx context.Context, cfg BootstrapConfig, logger *slog.Logger) (string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Name == "" || cfg.Dir == "" {
		return "", &ModelInstallError{Name: cfg.Name, Err: errors.New("model name and directory are required")}
	}

	target := filepath.Join(cfg.Dir, cfg.Name)
	if IsInstalled(target) {
		logger.Debug("annotation model already installed", "model", cfg.Name, "path", target)
		return target, nil
	}

	source := cfg.URL
	if source == "" {
		source = "bundled"
	}
	logger.Info("installing annotation model", "model", cfg.Name, "source", source, "path", target)

	if err := install(ctx, cfg, target); err != nil {
		return "", &ModelInstallError{Name: cfg.Name, Err: err}
	}
	return target, nil
}

func IsInstalled(path string) bool {
	st, err := os.Stat(filepath.Join(path, installedMarker))
	return err == nil && st.Mode().IsRegular()
}

// install stages the model beside target and renames it into place, so a
// failed attempt never leaves a directory that looks installed.
func install(ctx context.Context, cfg BootstrapConfig, target string) error {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}

	staging, err := os.MkdirTemp(cfg.Dir, "."+cfg.Name+"-*")
	if err != nil {
		return fmt.Errorf("staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	content := filepath.Join(staging, cfg.Name)

	if cfg.URL == "" {
		if err := writeBundledModel(cfg.Name, content); err != nil {
			return err
		}
	} else {
		if err := os.Mkdir(content, 0o755); err != nil {
			return fmt.Errorf("staging dir: %w", err)
		}
		if err := fetchArchive(ctx, cfg, content); err != nil {
			return err
		}
	}

	if _, err := loadModel(cfg.Name, content); err != nil {
		return fmt.Errorf("verify model: %w", err)
	}

	if err := os.WriteFile(filepath.Join(content, installedMarker), []byte(time.Now().UTC().Format(time.RFC3339)+"\n"), 0o644); err != nil {
		return fmt.Errorf("write marker: %w", err)
	}

	// Leftovers of an interrupted install have no marker and are replaced.
	if err := os.RemoveAll(target); err != nil {
		return fmt.Errorf("remove partial install: %w", err)
	}
	if err := os.Rename(content, target); err != nil {
		return fmt.Errorf("move model into place: %w", err)
	}
	return nil
}

func fetchArchive(ctx context.Context, cfg BootstrapConfig, dest string) error {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "credit-report-service/1.0")

	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	if err := untarGz(resp.Body, dest, cfg.MaxBytes); err != nil {
		return fmt.Errorf("unpack: %w", err)
	}
	return nil
}
