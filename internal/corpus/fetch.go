package corpus

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Source describes an official download location for a law document.
type Source struct {
	Name     string // Display name
	URL      string // Download URL
	Filename string // File name to save under in the corpus directory
}

// DefaultSources returns the standard corpus: the Pakistan Penal Code and
// the Constitution of Pakistan from their official government sites.
func DefaultSources() []Source {
	return []Source{
		{
			Name:     "Pakistan Penal Code",
			URL:      "https://www.pakistancode.gov.pk/english/UY2FqaJw1-apaUY2Fqa-apaUY2Npa5lo-sg-jjjjjjjjjjjjj",
			Filename: "pakistan_penal_code.pdf",
		},
		{
			Name:     "Constitution of Pakistan",
			URL:      "https://www.na.gov.pk/en/downloads.php",
			Filename: "constitution_1973.pdf",
		},
	}
}

// FetchReport summarizes a corpus download run.
type FetchReport struct {
	Downloaded int
	Skipped    int
	Failed     []FailedSource
}

// FailedSource records a source that could not be downloaded.
type FailedSource struct {
	Name   string
	Reason string
}

// Fetcher downloads law documents into the corpus directory.
type Fetcher struct {
	client *http.Client
	dir    string
	logger *slog.Logger
}

// NewFetcher creates a Fetcher that saves downloads under dir.
func NewFetcher(dir string, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		client: &http.Client{Timeout: 2 * time.Minute},
		dir:    dir,
		logger: logger,
	}
}

// FetchAll downloads every source that is not already present on disk.
// A failed source does not abort the run; failures are collected in the
// report so callers can surface them.
func (f *Fetcher) FetchAll(ctx context.Context, sources []Source) (*FetchReport, error) {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create corpus directory: %w", err)
	}

	report := &FetchReport{}
	for _, src := range sources {
		dest := filepath.Join(f.dir, src.Filename)
		if _, err := os.Stat(dest); err == nil {
			f.logger.Info("Source already present", "file", src.Filename)
			report.Skipped++
			continue
		}

		if err := f.download(ctx, src.URL, dest); err != nil {
			f.logger.Warn("Download failed", "source", src.Name, "error", err)
			report.Failed = append(report.Failed, FailedSource{
				Name:   src.Name,
				Reason: err.Error(),
			})
			continue
		}

		f.logger.Info("Downloaded source", "source", src.Name, "file", src.Filename)
		report.Downloaded++
	}

	return report, nil
}

// download fetches url into dest with exponential backoff on transient
// failures. Client errors (4xx) are permanent and fail immediately.
func (f *Fetcher) download(ctx context.Context, url, dest string) error {
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := f.client.Do(req)
		if err != nil {
			return err // Network errors are retryable
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			err := fmt.Errorf("unexpected status %s", resp.Status)
			if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
				return err
			}
			return backoff.Permanent(err)
		}

		return writeFile(dest, resp.Body)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(operation, backoff.WithContext(b, ctx))
}

// writeFile streams r to dest via a temporary file so an interrupted
// download never leaves a truncated document behind.
func writeFile(dest string, r io.Reader) error {
	tmp := dest + ".partial"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}

	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		os.Remove(tmp)
		return backoff.Permanent(fmt.Errorf("write %s: %w", tmp, err))
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return backoff.Permanent(fmt.Errorf("close %s: %w", tmp, err))
	}

	return os.Rename(tmp, dest)
}
