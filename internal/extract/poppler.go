package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/toricodesthings/credit-report-service/internal/extractor"
	"golang.org/x/sync/semaphore"
)

// Poppler shells out to pdfinfo/pdftotext. The tools read from a path, so the
// upload is written to a private temp dir that is removed before returning.
type Poppler struct {
	cfg        extractor.ExtractorConfig
	maxWorkers int
	logger     *slog.Logger
}

func NewPoppler(cfg extractor.ExtractorConfig, maxWorkers int, logger *slog.Logger) *Poppler {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.Logger = logger
	return &Poppler{cfg: cfg, maxWorkers: maxWorkers, logger: logger}
}

func (p *Poppler) Name() string { return "poppler" }

func (p *Poppler) ExtractPages(ctx context.Context, data []byte) ([]string, error) {
	tmp, err := writeTemp(data)
	if err != nil {
		return nil, err
	}
	defer tmp.Cleanup()

	info, err := extractor.GetPDFInfo(ctx, tmp.Path, p.cfg)
	if err != nil {
		return nil, asParseError(err)
	}
	if info.Pages == 0 {
		return []string{}, nil
	}

	return p.extractPagesParallel(ctx, tmp.Path, info.Pages)
}

func (p *Poppler) extractPagesParallel(ctx context.Context, pdfPath string, total int) ([]string, error) {
	results := make([]string, total)
	errs := make([]error, total)

	workers := runtime.NumCPU()
	if p.maxWorkers > 0 && workers > p.maxWorkers {
		workers = p.maxWorkers
	}
	if workers > total {
		workers = total
	}
	if workers < 1 {
		workers = 1
	}

	sem := semaphore.NewWeighted(int64(workers))
	var wg sync.WaitGroup

	for i := 0; i < total; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			if err := sem.Acquire(ctx, 1); err != nil {
				errs[idx] = err
				return
			}
			defer sem.Release(1)

			text, err := extractor.TextForPage(ctx, pdfPath, idx+1, p.cfg)
			if err != nil {
				errs[idx] = err
				return
			}
			results[idx] = text
		}(i)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, asParseError(err))
		}
	}
	return results, nil
}

// asParseError blames the upload only for faults poppler attributes to the
// document. Missing tools, timeouts and oversized output stay internal.
func asParseError(err error) error {
	if errors.Is(err, extractor.ErrDocument) {
		return parseErr(err)
	}
	return err
}

type tempFile struct {
	Dir  string
	Path string
}

func (t tempFile) Cleanup() {
	if t.Dir != "" {
		_ = os.RemoveAll(t.Dir)
	}
}

func writeTemp(data []byte) (tempFile, error) {
	dir, err := os.MkdirTemp("", "creditreport-*")
	if err != nil {
		return tempFile{}, fmt.Errorf("temp dir: %w", err)
	}

	path := filepath.Join(dir, "upload.pdf")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		_ = os.RemoveAll(dir)
		return tempFile{}, fmt.Errorf("write: %w", err)
	}
	return tempFile{Dir: dir, Path: path}, nil
}
