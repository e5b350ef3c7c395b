package personio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// downloadChunkSize is the copy buffer size for streaming documents to disk.
// Document sizes are unbounded, so the body is never held in memory whole.
const downloadChunkSize = 8192

// DownloadError wraps any failure while fetching or persisting a binary
// document. It unwraps to the underlying cause, so auth failures remain
// detectable through it.
type DownloadError struct {
	URL string
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// DownloadFile streams a binary document to savePath, creating missing
// directories. When the remote declares a size matching an existing local
// file, the fetch body is discarded and (false, nil) is returned, an
// idempotence optimization for re-runs.
func (c *Client) DownloadFile(ctx context.Context, endpoint, savePath string) (bool, error) {
	fullURL := c.endpointURL(endpoint)

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return false, &DownloadError{URL: fullURL, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return false, &DownloadError{URL: fullURL, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "*/*")

	resp, err := c.downloads.Do(req)
	if err != nil {
		return false, &DownloadError{URL: fullURL, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, &DownloadError{URL: fullURL, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	if resp.ContentLength > 0 {
		if st, err := os.Stat(savePath); err == nil && st.Size() == resp.ContentLength {
			c.logger.Debug("personio.download_unchanged",
				zap.String("path", savePath),
				zap.Int64("size", st.Size()))
			return false, nil
		}
	}

	if dir := filepath.Dir(savePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, &DownloadError{URL: fullURL, Err: err}
		}
	}

	f, err := os.Create(savePath)
	if err != nil {
		return false, &DownloadError{URL: fullURL, Err: err}
	}

	written, err := io.CopyBuffer(f, resp.Body, make([]byte, downloadChunkSize))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return false, &DownloadError{URL: fullURL, Err: err}
	}

	c.logger.Debug("personio.download_saved",
		zap.String("path", savePath),
		zap.Int64("bytes", written))

	return true, nil
}
