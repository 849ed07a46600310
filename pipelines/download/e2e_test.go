//go:build e2e

package download

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"receipt-e2e/browser"
	"receipt-e2e/configs"
	"receipt-e2e/fixtures"
	"receipt-e2e/pipelines"
	"receipt-e2e/tasks"
)

// Drives headless Chrome against the stand-in shop.
// Run with: go test -v -tags=e2e ./pipelines/download/
func newChromeState(t *testing.T, opts ...fixtures.AppOption) *pipelines.State {
	t.Helper()

	app, err := fixtures.NewApp(fixtures.DefaultReceipt(), opts...)
	require.NoError(t, err)
	srv := httptest.NewServer(app)
	t.Cleanup(srv.Close)

	cfg := &configs.Config{
		BaseURL:               srv.URL + "/",
		ProjectRoot:           t.TempDir(),
		DownloadsFolder:       "downloads",
		TrashAssetsBeforeRuns: true,
		DefaultCommandTimeout: 4 * time.Second,
		PageLoadTimeout:       30 * time.Second,
		TaskTimeout:           30 * time.Second,
		Browser:               configs.BrowserChrome,
		Headless:              true,
	}

	reg := tasks.NewRegistry()
	require.NoError(t, tasks.Setup(cfg, reg))
	bridge := httptest.NewServer(tasks.NewHandler(reg))
	t.Cleanup(bridge.Close)

	driver, err := browser.New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { driver.Close() })

	return pipelines.NewState(cfg, tasks.NewClient(bridge.URL, cfg.TaskTimeout), driver)
}

func TestE2E_DownloadReceipt(t *testing.T) {
	s, err := New(newChromeState(t))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := s.Run(ctx)
	require.NoError(t, err)
	require.True(t, result.Success)
}

func TestE2E_MissingTrigger(t *testing.T) {
	s, err := New(newChromeState(t, fixtures.WithoutTrigger()))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := s.Run(ctx)
	require.Error(t, err)
	require.True(t, errors.Is(err, browser.ErrElementNotFound), "got %v", err)
	require.Equal(t, StepClick, result.FailedStep())
}
