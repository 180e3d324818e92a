package download

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windowsadmins/winsetup/pkg/retry"
)

func testDownloader(srv *httptest.Server) *Downloader {
	return &Downloader{
		Client: srv.Client(),
		Retry:  retry.RetryConfig{MaxRetries: 3, InitialInterval: time.Millisecond, Multiplier: 1},
	}
}

func TestFetch_NameFromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("installer bytes"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	got, err := testDownloader(srv).Fetch(context.Background(), srv.URL+"/files/7z2408-x64.msi?x=1", dir, ".msi")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "7z2408-x64.msi"), got)

	data, err := os.ReadFile(got)
	require.NoError(t, err)
	assert.Equal(t, "installer bytes", string(data))

	_, err = os.Stat(got + partSuffix)
	assert.True(t, os.IsNotExist(err))
}

func TestFetch_ContentDispositionAndUniqueName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="VSCodeUserSetup-x64.exe"`)
		w.Write([]byte("new"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "VSCodeUserSetup-x64.exe"), []byte("old"), 0644))

	got, err := testDownloader(srv).Fetch(context.Background(), srv.URL+"/latest/stable", dir, ".exe")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "VSCodeUserSetup-x64 (1).exe"), got)

	old, err := os.ReadFile(filepath.Join(dir, "VSCodeUserSetup-x64.exe"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(old))
}

func TestFetch_AppendsMissingExtension(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	got, err := testDownloader(srv).Fetch(context.Background(), srv.URL+"/download/stable", dir, ".exe")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "stable.exe"), got)
}

func TestFetch_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	got, err := testDownloader(srv).Fetch(context.Background(), srv.URL+"/tool.zip", t.TempDir(), "")
	require.NoError(t, err)
	assert.Equal(t, int32(3), hits.Load())
	assert.Equal(t, "tool.zip", filepath.Base(got))
}

func TestFetch_ClientErrorIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	dir := t.TempDir()
	_, err := testDownloader(srv).Fetch(context.Background(), srv.URL+"/missing.msi", dir, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Equal(t, int32(1), hits.Load())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFetch_GivesUpAfterRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := testDownloader(srv).Fetch(context.Background(), srv.URL+"/x.msi", t.TempDir(), "")
	require.Error(t, err)
	assert.Equal(t, int32(3), hits.Load())
}

func TestFetch_EmptyURL(t *testing.T) {
	_, err := New().Fetch(context.Background(), "", t.TempDir(), "")
	assert.Error(t, err)
}

func TestFileName(t *testing.T) {
	mustURL := func(s string) *url.URL {
		u, err := url.Parse(s)
		require.NoError(t, err)
		return u
	}
	cases := []struct {
		name string
		cd   string
		u    *url.URL
		want string
	}{
		{"url path", "", mustURL("https://example.com/a/b/setup.exe"), "setup.exe"},
		{"escaped url path", "", mustURL("https://example.com/My%20Tool.msi"), "My Tool.msi"},
		{"disposition wins", `attachment; filename="real.msi"`, mustURL("https://example.com/dl"), "real.msi"},
		{"disposition traversal", `attachment; filename="..\..\evil.exe"`, mustURL("https://example.com/dl"), "evil.exe"},
		{"bad disposition", `attachment; filename=`, mustURL("https://example.com/dl.zip"), "dl.zip"},
		{"root path", "", mustURL("https://example.com/"), "download"},
		{"nil url", "", nil, "download"},
		{"forbidden chars", `attachment; filename="a:b*c?.exe"`, nil, "abc.exe"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FileName(tc.cd, tc.u))
		})
	}
}

func TestVerify(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0644))

	const sum = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	ok, err := Verify(path, sum)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Verify(path, " 2CF24DBA5FB0A30E26E83B2AC5B9E29E1B161E5C1FA7425E73043362938B9824 ")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Verify(path, "deadbeef")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = Verify(filepath.Join(t.TempDir(), "missing"), sum)
	assert.Error(t, err)
}
