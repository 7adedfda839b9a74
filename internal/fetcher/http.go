package fetcher

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/edgar-graph/internal/resilience"
)

// Fetcher defines the interface for downloading remote data through the
// rate-limited fabric. The source name selects the limiter.
type Fetcher interface {
	// Get fetches the URL and returns the response body.
	Get(ctx context.Context, source, url string, headers map[string]string) (io.ReadCloser, error)

	// GetBytes fetches the URL and returns the full body.
	GetBytes(ctx context.Context, source, url string, headers map[string]string) ([]byte, error)

	// DownloadToFile fetches the URL and writes it to path. Returns bytes written.
	DownloadToFile(ctx context.Context, source, url, path string) (int64, error)
}

// HTTPOptions configures the HTTP fetcher. The zero-value Retry uses the
// free-path budget; billed providers pass resilience.PaidConfig().
type HTTPOptions struct {
	UserAgent string
	Timeout   time.Duration
	Retry     resilience.RetryConfig
	Limiters  *Limiters
}

// HTTPFetcher implements Fetcher using net/http with retry and per-source
// rate limiting. Retries apply only to network/timeout-class errors, 429,
// and 5xx; a 404 is ErrNotFound and is never retried.
type HTTPFetcher struct {
	client   *http.Client
	opts     HTTPOptions
	limiters *Limiters
}

// NewHTTPFetcher creates a new HTTPFetcher with pooled connections.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = resilience.FreeConfig()
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "edgar-graph/1.0"
	}
	if opts.Limiters == nil {
		opts.Limiters = SharedLimiters()
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts:     opts,
		limiters: opts.Limiters,
	}
}

func (f *HTTPFetcher) doWithRetry(ctx context.Context, source string, req *http.Request) (*http.Response, error) {
	cfg := f.opts.Retry
	cfg.OnRetry = resilience.RetryLogger(source, req.URL.String())
	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (*http.Response, error) {
		if err := f.limiters.Wait(ctx, source); err != nil {
			return nil, err
		}

		resp, err := f.client.Do(req.Clone(ctx))
		if err != nil {
			return nil, resilience.NewTransientError(
				eris.Wrapf(err, "request %s", req.URL.String()), 0)
		}

		switch {
		case resp.StatusCode == http.StatusNotFound:
			_ = resp.Body.Close()
			return nil, eris.Wrapf(resilience.ErrNotFound, "http 404 from %s", req.URL.String())

		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			_ = resp.Body.Close()
			return nil, resilience.NewTransientError(
				eris.Errorf("http %d from %s", resp.StatusCode, req.URL.String()), resp.StatusCode)
		}

		return resp, nil
	})
}

// Get fetches the URL through the named source's limiter.
func (f *HTTPFetcher) Get(ctx context.Context, source, rawURL string, headers map[string]string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := f.doWithRetry(ctx, source, req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, eris.Errorf("get: unexpected status %d from %s", resp.StatusCode, rawURL)
	}

	return resp.Body, nil
}

// GetBytes fetches the URL and returns the full body.
func (f *HTTPFetcher) GetBytes(ctx context.Context, source, rawURL string, headers map[string]string) ([]byte, error) {
	body, err := f.Get(ctx, source, rawURL, headers)
	if err != nil {
		return nil, err
	}
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, eris.Wrap(err, "read body")
	}
	return data, nil
}

// DownloadToFile fetches the URL and writes it to the given path.
func (f *HTTPFetcher) DownloadToFile(ctx context.Context, source, rawURL, path string) (int64, error) {
	body, err := f.Get(ctx, source, rawURL, nil)
	if err != nil {
		return 0, err
	}
	defer body.Close() //nolint:errcheck

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, eris.Wrap(err, "create download dir")
	}
	file, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrap(err, "create file")
	}
	defer file.Close() //nolint:errcheck

	n, err := io.Copy(file, body)
	if err != nil {
		return n, eris.Wrap(err, "write file")
	}

	return n, nil
}
