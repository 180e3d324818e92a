// pkg/download/download.go - fetching installers over HTTP.

package download

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

	"github.com/windowsadmins/winsetup/pkg/logging"
	"github.com/windowsadmins/winsetup/pkg/pathutil"
	"github.com/windowsadmins/winsetup/pkg/retry"
)

const (
	// Timeout bounds one attempt including the body transfer.
	Timeout   = 30 * time.Minute
	userAgent = "winsetup/1.0"
	// partSuffix marks a file that is still being written.
	partSuffix = ".part"
)

// Downloader fetches files into a directory.
type Downloader struct {
	Client *http.Client
	Retry  retry.RetryConfig
}

// New returns a Downloader with the default client and retry policy.
func New() *Downloader {
	return &Downloader{
		Client: &http.Client{Timeout: Timeout},
		Retry:  retry.DefaultConfig,
	}
}

// Fetch downloads rawURL into dir and returns the written path. The file
// name comes from Content-Disposition, then the final URL path. When ext is
// non-empty and the name lacks it, ext is appended. An existing file is
// never overwritten: the name gets a " (n)" suffix instead.
func (d *Downloader) Fetch(ctx context.Context, rawURL, dir, ext string) (string, error) {
	if rawURL == "" {
		return "", fmt.Errorf("invalid parameters: url cannot be empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}

	var dest string
	err := retry.Do(ctx, d.Retry, func() error {
		var err error
		dest, err = d.fetchOnce(ctx, rawURL, dir, ext)
		return err
	})
	if err != nil {
		return "", err
	}
	return dest, nil
}

func (d *Downloader) fetchOnce(ctx context.Context, rawURL, dir, ext string) (string, error) {
	logging.Info("Starting download", "url", rawURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", retry.NonRetryable(fmt.Errorf("failed to prepare HTTP request: %w", err))
	}
	req.Header.Set("User-Agent", userAgent)

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", retry.NonRetryable(err)
		}
		return "", fmt.Errorf("failed to perform HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected HTTP status code: %d", resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return "", retry.NonRetryable(err)
		}
		return "", err
	}

	name := FileName(resp.Header.Get("Content-Disposition"), resp.Request.URL)
	if ext != "" && !strings.EqualFold(filepath.Ext(name), ext) {
		name += ext
	}
	dest, err := pathutil.UniquePath(filepath.Join(dir, name))
	if err != nil {
		return "", retry.NonRetryable(err)
	}
	logging.Debug("Resolved download destination", "url", rawURL, "destination", dest)

	if err := writeFile(dest, resp.Body); err != nil {
		return "", err
	}
	logging.Info("Download completed successfully", "file", dest)
	return dest, nil
}

// writeFile streams body into dest via a .part file that is renamed once
// the transfer completes.
func writeFile(dest string, body io.Reader) error {
	part := dest + partSuffix
	out, err := os.Create(part)
	if err != nil {
		return retry.NonRetryable(fmt.Errorf("failed to open destination file: %w", err))
	}
	_, copyErr := io.Copy(out, body)
	closeErr := out.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		os.Remove(part)
		return fmt.Errorf("failed to write downloaded data: %w", err)
	}
	if err := os.Rename(part, dest); err != nil {
		os.Remove(part)
		return fmt.Errorf("failed to move download into place: %w", err)
	}
	return nil
}

// FileName picks a local file name for a response.
func FileName(contentDisposition string, u *url.URL) string {
	if contentDisposition != "" {
		if _, params, err := mime.ParseMediaType(contentDisposition); err == nil {
			if name := sanitize(params["filename"]); name != "" {
				return name
			}
		}
	}
	if u != nil {
		if name := sanitize(path.Base(u.Path)); name != "" {
			return name
		}
	}
	return "download"
}

// sanitize strips directories and characters Windows forbids in file names.
func sanitize(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = path.Base(name)
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || strings.ContainsRune(`<>:"/\|?*`, r) {
			return -1
		}
		return r
	}, name)
	name = strings.Trim(name, ". ")
	if name == "" || name == "/" {
		return ""
	}
	return name
}
