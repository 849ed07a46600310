package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// ChromeOptions configures a headless Chrome session
type ChromeOptions struct {
	Headless        bool
	ExecPath        string
	DownloadsPath   string // absolute
	CommandTimeout  time.Duration
	PageLoadTimeout time.Duration
}

// Chrome drives a real Chrome through the DevTools protocol
type Chrome struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	opts        ChromeOptions
}

// NewChrome launches Chrome and configures it to save downloads into opts.DownloadsPath
func NewChrome(ctx context.Context, opts ChromeOptions) (*Chrome, error) {
	logger := zap.L().With(zap.String("browser", "chrome"))

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.NoSandbox,
	)
	if opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", "new"))
	} else {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(zap.S().Errorf),
	)

	chromedp.ListenTarget(tabCtx, func(ev any) {
		switch ev := ev.(type) {
		case *cdpbrowser.EventDownloadWillBegin:
			logger.Info("download started", zap.String("filename", ev.SuggestedFilename), zap.String("url", ev.URL))
		case *cdpbrowser.EventDownloadProgress:
			if ev.State == cdpbrowser.DownloadProgressStateCompleted {
				logger.Info("download completed", zap.String("guid", ev.GUID), zap.Float64("bytes", ev.ReceivedBytes))
			}
		}
	})

	// first Run starts the browser
	err := chromedp.Run(tabCtx,
		cdpbrowser.SetDownloadBehavior(cdpbrowser.SetDownloadBehaviorBehaviorAllow).
			WithDownloadPath(opts.DownloadsPath).
			WithEventsEnabled(true),
	)
	if err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("starting chrome: %w", err)
	}

	logger.Info("chrome started", zap.String("downloads", opts.DownloadsPath), zap.Bool("headless", opts.Headless))
	return &Chrome{
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		opts:        opts,
	}, nil
}

// runWithTimeout runs actions on the tab, bounded by timeout and by the caller's ctx
func (c *Chrome) runWithTimeout(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	tctx, cancel := context.WithTimeout(c.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(tctx, actions...)
}

// Visit navigates the tab to url and waits for the page load
func (c *Chrome) Visit(ctx context.Context, url string) error {
	zap.L().Debug("navigating", zap.String("url", url))
	if err := c.runWithTimeout(ctx, c.opts.PageLoadTimeout, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("visit %s: %w", url, err)
	}
	return nil
}

// Click waits for the element to become visible, then clicks it
func (c *Chrome) Click(ctx context.Context, selector string) error {
	err := c.runWithTimeout(ctx, c.opts.CommandTimeout, chromedp.WaitVisible(selector, chromedp.ByQuery))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("%w: %s after %s", ErrElementNotFound, selector, c.opts.CommandTimeout)
		}
		return fmt.Errorf("wait for %s: %w", selector, err)
	}

	if err := c.runWithTimeout(ctx, c.opts.CommandTimeout, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

// Close shuts the browser down
func (c *Chrome) Close() error {
	err := chromedp.Cancel(c.ctx)
	c.cancelTab()
	c.cancelAlloc()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
