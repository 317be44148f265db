package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	ErrBadStatus = errors.New("unexpected HTTP status")
)

// Fetcher retrieves marketplace pages over plain HTTP. Several marketplaces
// serve different markup to non-browser clients, so every request carries a
// browser User-Agent and standard accept headers.
type Fetcher interface {
	Get(ctx context.Context, pageURL string) (string, error)
}

type Options struct {
	UserAgent string
	Timeout   time.Duration
	// DebugDumpDir stores raw page bodies for later inspection when set.
	// Purely diagnostic; failures to dump never fail the fetch.
	DebugDumpDir string
}

type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	dumpDir   string
	logger    *slog.Logger
}

func NewHTTPFetcher(opts Options, logger *slog.Logger) *HTTPFetcher {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 12 * time.Second
	}

	return &HTTPFetcher{
		client: &http.Client{
			Timeout: timeout,
		},
		userAgent: opts.UserAgent,
		dumpDir:   opts.DebugDumpDir,
		logger:    logger.With("component", "fetcher"),
	}
}

func (f *HTTPFetcher) Get(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}

	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: %d for %s", ErrBadStatus, resp.StatusCode, pageURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}

	if f.dumpDir != "" {
		f.dumpPage(pageURL, body)
	}

	return string(body), nil
}

func (f *HTTPFetcher) dumpPage(pageURL string, body []byte) {
	name := sanitizeFilename(pageURL) + ".html"
	path := filepath.Join(f.dumpDir, name)

	if err := os.MkdirAll(f.dumpDir, 0755); err != nil {
		f.logger.Warn("failed to create dump dir", "dir", f.dumpDir, "error", err)
		return
	}

	if err := os.WriteFile(path, body, 0644); err != nil {
		f.logger.Warn("failed to dump page", "path", path, "error", err)
		return
	}

	f.logger.Debug("dumped page", "url", pageURL, "path", path)
}

func sanitizeFilename(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		u = &url.URL{Path: pageURL}
	}

	raw := u.Host + u.Path
	replacer := strings.NewReplacer("/", "_", ":", "_", "?", "_", "&", "_", "=", "_", ".", "-")
	name := replacer.Replace(raw)

	if len(name) > 120 {
		name = name[:120]
	}
	if name == "" {
		name = "page"
	}
	return name
}
