package update

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{a: "1.0.0", b: "1.0.1", want: -1},
		{a: "1.0.1", b: "1.0.0", want: 1},
		{a: "1.0.0", b: "1.0.0", want: 0},
		{a: "v1.0.0", b: "1.0.1", want: -1},
		{a: "v1.0.0", b: "v1.0.0", want: 0},
		{a: "2.0.0", b: "1.9.9", want: 1},
		{a: "dev", b: "999.999.999", want: 1},
		{a: "1.0.0", b: "dev", want: -1},
		{a: "1.0.0-beta", b: "1.0.0", want: 0},
		{a: "0.10.0", b: "0.9.0", want: 1},
		{a: "1.2", b: "1.2.0", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.a+" vs "+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, compareVersions(tt.a, tt.b))
		})
	}
}

func newTestChecker(t *testing.T, tag string) (*Checker, *atomic.Int32, *clock.Mock) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "migledger/0.1.0", r.Header.Get("User-Agent"))
		_ = json.NewEncoder(w).Encode(githubRelease{TagName: tag, HTMLURL: "https://example.test/" + tag})
	}))
	t.Cleanup(srv.Close)

	mock := clock.NewMock()
	mock.Set(time.Date(2024, 3, 7, 12, 0, 0, 0, time.UTC))

	return &Checker{
		URL:      srv.URL,
		Client:   srv.Client(),
		CacheDir: t.TempDir(),
		Clock:    mock,
		Current:  "0.1.0",
	}, &hits, mock
}

func TestCheck_UpdateAvailable(t *testing.T) {
	c, hits, _ := newTestChecker(t, "v0.2.0")

	info, err := c.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0.2.0", info.LatestVersion)
	assert.Equal(t, "https://example.test/v0.2.0", info.ReleaseURL)
	assert.True(t, info.UpdateAvailable)
	assert.EqualValues(t, 1, hits.Load())

	_, err = os.Stat(filepath.Join(c.CacheDir, cacheFile))
	assert.NoError(t, err)
}

func TestCheck_UsesFreshCache(t *testing.T) {
	c, hits, mock := newTestChecker(t, "v0.1.0")

	info, err := c.Check(context.Background())
	require.NoError(t, err)
	assert.False(t, info.UpdateAvailable)

	mock.Add(time.Hour)
	_, err = c.Check(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, hits.Load())

	mock.Add(cacheTTL)
	_, err = c.Check(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, hits.Load())
}

func TestCheck_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := &Checker{URL: srv.URL, Client: srv.Client(), Clock: clock.NewMock(), Current: "0.1.0"}
	_, err := c.Check(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}

func TestCacheDir_XDG(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg")
	dir, err := cacheDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/xdg", "migledger"), dir)
}
