package fetch

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHTTPFetcher_Get(t *testing.T) {
	const ua = "Mozilla/5.0 (test)"

	var gotUserAgent, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte(`<html><body>$620.00</body></html>`))
	}))
	defer server.Close()

	f := NewHTTPFetcher(Options{UserAgent: ua}, testLogger())

	body, err := f.Get(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Contains(t, body, "$620.00")
	assert.Equal(t, ua, gotUserAgent)
	assert.Contains(t, gotAccept, "text/html")
}

func TestHTTPFetcher_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer server.Close()

	f := NewHTTPFetcher(Options{}, testLogger())

	_, err := f.Get(context.Background(), server.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadStatus)
	assert.Contains(t, err.Error(), "403")
}

func TestHTTPFetcher_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer server.Close()

	f := NewHTTPFetcher(Options{}, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := f.Get(ctx, server.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHTTPFetcher_DebugDump(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>dump me</html>"))
	}))
	defer server.Close()

	dumpDir := t.TempDir()
	f := NewHTTPFetcher(Options{DebugDumpDir: dumpDir}, testLogger())

	_, err := f.Get(context.Background(), server.URL+"/products/mk19")
	require.NoError(t, err)

	entries, err := os.ReadDir(dumpDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(filepath.Join(dumpDir, entries[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, "<html>dump me</html>", string(data))
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.lazada.vn/products/mk19.html", "www-lazada-vn_products_mk19-html"},
		{"", "page"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeFilename(tt.in))
	}
}
