package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// StaticOptions configures the HTTP driver
type StaticOptions struct {
	DownloadsPath   string // absolute
	PageLoadTimeout time.Duration
	Client          *http.Client // optional
}

// Static is a script-less driver: it fetches pages over HTTP, resolves
// selectors with goquery and follows links on click. It suits applications
// whose download trigger is a plain link.
type Static struct {
	client    *http.Client
	downloads string
	page      *url.URL
	doc       *goquery.Document
}

// NewStatic creates the HTTP driver
func NewStatic(opts StaticOptions) *Static {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.PageLoadTimeout}
	}
	return &Static{client: client, downloads: opts.DownloadsPath}
}

// Visit fetches url and parses it as the current page
func (s *Static) Visit(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("visit %s: %w", rawURL, err)
	}

	resp, err := s.get(ctx, u)
	if err != nil {
		return fmt.Errorf("visit %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if err := s.load(u, resp.Body); err != nil {
		return fmt.Errorf("visit %s: %w", rawURL, err)
	}
	return nil
}

// Click follows the href of the first element matching selector. HTML responses
// become the current page; anything else is saved as a download.
func (s *Static) Click(ctx context.Context, selector string) error {
	if s.doc == nil {
		return errors.New("click: no page loaded")
	}

	sel := s.doc.Find(selector).First()
	if sel.Length() == 0 {
		return fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}

	href, ok := sel.Attr("href")
	if !ok || href == "" {
		zap.L().Debug("clicked element without href", zap.String("selector", selector))
		return nil
	}
	target, err := s.page.Parse(href)
	if err != nil {
		return fmt.Errorf("click %s: bad href %q: %w", selector, href, err)
	}

	resp, err := s.get(ctx, target)
	if err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	defer resp.Body.Close()

	downloadAttr, isDownload := sel.Attr("download")
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if !isDownload && mediaType == "text/html" {
		return s.load(target, resp.Body)
	}

	name := filename(downloadAttr, resp.Header.Get("Content-Disposition"), target)
	return s.save(name, resp.Body)
}

// Close is a no-op for the HTTP driver
func (s *Static) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *Static) get(ctx context.Context, u *url.URL) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return resp, nil
}

func (s *Static) load(u *url.URL, body io.Reader) error {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return fmt.Errorf("parsing html: %w", err)
	}
	s.page = u
	s.doc = doc
	return nil
}

// save writes the body to a .crdownload file first, then renames it into place
func (s *Static) save(name string, body io.Reader) error {
	dest := filepath.Join(s.downloads, name)
	partial := dest + ".crdownload"

	f, err := os.Create(partial)
	if err != nil {
		return fmt.Errorf("saving download: %w", err)
	}
	n, err := io.Copy(f, body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(partial)
		return fmt.Errorf("saving download: %w", err)
	}
	if err := os.Rename(partial, dest); err != nil {
		return fmt.Errorf("saving download: %w", err)
	}

	zap.L().Info("download completed", zap.String("browser", "static"), zap.String("path", dest), zap.Int64("bytes", n))
	return nil
}

// filename picks the download name the way browsers do: download attribute,
// then Content-Disposition, then the URL's last path segment.
func filename(downloadAttr, disposition string, u *url.URL) string {
	if name := safeName(downloadAttr); name != "" {
		return name
	}
	if _, params, err := mime.ParseMediaType(disposition); err == nil {
		if name := safeName(params["filename"]); name != "" {
			return name
		}
	}
	if name := safeName(path.Base(u.Path)); name != "" {
		return name
	}
	return "download"
}

func safeName(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}
