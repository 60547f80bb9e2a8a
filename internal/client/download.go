package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"
)

const defaultDownloadName = "download"

// Download fetches path and saves it under the client's download directory
// as filename (default "download"). It returns the written file path.
// Downloads pass through the refresh branch but are never retried.
func (c *Client) Download(ctx context.Context, path, filename string) (string, error) {
	if err := os.MkdirAll(c.downloadDir, 0o755); err != nil {
		return "", &APIError{StatusCode: http.StatusInternalServerError, Detail: "Cannot create download directory", Err: err}
	}
	target := filepath.Join(c.downloadDir, SanitizeFilename(filename))

	f, err := os.CreateTemp(c.downloadDir, ".download-*")
	if err != nil {
		return "", &APIError{StatusCode: http.StatusInternalServerError, Detail: "Cannot create download file", Err: err}
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if _, err := c.DownloadTo(ctx, path, f); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", &APIError{StatusCode: http.StatusInternalServerError, Detail: "Cannot write download file", Err: err}
	}
	if err := os.Rename(tmp, target); err != nil {
		return "", &APIError{StatusCode: http.StatusInternalServerError, Detail: "Cannot write download file", Err: err}
	}
	return target, nil
}

// DownloadTo streams the payload at path into w.
func (c *Client) DownloadTo(ctx context.Context, path string, w io.Writer) (int64, error) {
	req := &Request{Method: http.MethodGet, Path: path, raw: true}
	req.Header = http.Header{"Accept": []string{"*/*"}}

	res, err := c.send(ctx, req)
	if err != nil {
		return 0, err
	}
	defer res.close()

	if res.stream == nil {
		n, err := w.Write(res.body)
		return int64(n), err
	}
	n, err := io.Copy(w, res.stream)
	if err != nil {
		return n, transformTransportError(fmt.Errorf("download %s: %w", path, err))
	}
	return n, nil
}

// SanitizeFilename turns a user supplied name into a safe base name,
// keeping the extension.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == string(filepath.Separator) || name == "" {
		return defaultDownloadName
	}
	ext := strings.ToLower(filepath.Ext(name))
	stem := slug.Make(strings.TrimSuffix(name, filepath.Ext(name)))
	if stem == "" {
		stem = defaultDownloadName
	}
	if ext != "" && slug.Make(ext[1:]) != ext[1:] {
		ext = ""
	}
	return stem + ext
}
