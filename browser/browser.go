// Package browser drives the application under test: it navigates, clicks
// elements and lets the resulting downloads land in the downloads folder.
package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"receipt-e2e/configs"
)

var (
	// ErrElementNotFound means no element matched the selector within the command timeout
	ErrElementNotFound = errors.New("element not found")

	// ErrDownloadTimeout means the expected file never appeared
	ErrDownloadTimeout = errors.New("download did not complete")
)

// Driver is a browser session
type Driver interface {
	Visit(ctx context.Context, url string) error
	Click(ctx context.Context, selector string) error
	Close() error
}

// New starts the driver selected by cfg.Browser, saving downloads under cfg's downloads folder
func New(ctx context.Context, cfg *configs.Config) (Driver, error) {
	downloads, err := cfg.DownloadsPath()
	if err != nil {
		return nil, fmt.Errorf("resolving downloads folder: %w", err)
	}
	if err := os.MkdirAll(downloads, 0o755); err != nil {
		return nil, fmt.Errorf("creating downloads folder: %w", err)
	}

	switch cfg.Browser {
	case configs.BrowserChrome:
		c, err := NewChrome(ctx, ChromeOptions{
			Headless:        cfg.Headless,
			ExecPath:        cfg.ChromePath,
			DownloadsPath:   downloads,
			CommandTimeout:  cfg.DefaultCommandTimeout,
			PageLoadTimeout: cfg.PageLoadTimeout,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	case configs.BrowserStatic:
		return NewStatic(StaticOptions{
			DownloadsPath:   downloads,
			PageLoadTimeout: cfg.PageLoadTimeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown browser %q", cfg.Browser)
	}
}

// WaitForFile blocks until path exists with content, polling until timeout.
// In-progress downloads (a .crdownload sibling) are not considered complete.
func WaitForFile(ctx context.Context, path string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if complete(path) {
			return nil
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w: %s not found after %s", ErrDownloadTimeout, path, timeout)
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func complete(path string) bool {
	if strings.HasSuffix(path, ".crdownload") {
		return false
	}
	if _, err := os.Stat(path + ".crdownload"); err == nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Size() > 0
}
