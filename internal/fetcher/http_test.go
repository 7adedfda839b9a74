package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/edgar-graph/internal/resilience"
)

func fastRetry(maxAttempts int) resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    maxAttempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func newTestFetcher(retry resilience.RetryConfig) *HTTPFetcher {
	return NewHTTPFetcher(HTTPOptions{
		Retry:    retry,
		Limiters: NewLimiters(map[string]float64{"test": 10000}),
	})
}

func TestDownloadToFile_CreatesParentDirs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("archive payload"))
	}))
	defer srv.Close()

	f := newTestFetcher(fastRetry(2))

	// A fresh run downloads into a per-CIK directory that does not exist yet.
	dest := filepath.Join(t.TempDir(), "10k_0000320193", "archive.tar")
	n, err := f.DownloadToFile(context.Background(), "test", srv.URL, dest)
	require.NoError(t, err)
	assert.Equal(t, int64(len("archive payload")), n)

	content, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "archive payload", string(content))
}

func TestGet_RetriesServerErrorThenSucceeds(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := newTestFetcher(fastRetry(4))
	data, err := f.GetBytes(context.Background(), "test", srv.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(data))
	assert.Equal(t, int64(3), hits.Load())
}

func TestGet_PaidBudgetAllowsOneRetry(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	retry := fastRetry(resilience.PaidConfig().MaxAttempts)
	f := newTestFetcher(retry)
	_, err := f.GetBytes(context.Background(), "test", srv.URL, nil)
	require.Error(t, err)
	assert.Equal(t, int64(2), hits.Load())
}

func TestGet_NotFoundIsNotRetried(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := newTestFetcher(fastRetry(4))
	_, err := f.GetBytes(context.Background(), "test", srv.URL, nil)
	require.Error(t, err)
	assert.True(t, eris.Is(err, resilience.ErrNotFound))
	assert.Equal(t, int64(1), hits.Load())
}
