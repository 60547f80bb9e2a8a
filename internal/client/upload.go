package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"sort"
	"sync"
)

// UploadFile is one file part of a multipart upload.
type UploadFile struct {
	FieldName   string
	FileName    string
	ContentType string
	Reader      io.Reader
}

// UploadPayload is the form sent by Upload.
type UploadPayload struct {
	Fields map[string]string
	Files  []UploadFile
}

// Upload posts payload as multipart/form-data. onProgress, when set,
// receives the percentage of the body written so far.
func (c *Client) Upload(ctx context.Context, path string, payload UploadPayload, onProgress func(percent int)) (*Envelope, error) {
	body, contentType, err := encodeMultipart(payload)
	if err != nil {
		return nil, &APIError{StatusCode: http.StatusInternalServerError, Detail: "Invalid upload payload", Err: err}
	}
	req := &Request{
		Method:      http.MethodPost,
		Path:        path,
		Body:        body,
		ContentType: contentType,
		OnProgress:  onProgress,
	}
	return c.Do(ctx, req)
}

func encodeMultipart(payload UploadPayload) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	names := make([]string, 0, len(payload.Fields))
	for name := range payload.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := w.WriteField(name, payload.Fields[name]); err != nil {
			return nil, "", err
		}
	}

	for _, f := range payload.Files {
		if f.Reader == nil {
			return nil, "", fmt.Errorf("file %q has no content", f.FileName)
		}
		field := f.FieldName
		if field == "" {
			field = "file"
		}
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, f.FileName))
		contentType := f.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)
		part, err := w.CreatePart(header)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(part, f.Reader); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// progressReader reports how much of a fixed-size body has been read.
type progressReader struct {
	r       *bytes.Reader
	total   int
	read    int
	last    int
	mu      sync.Mutex
	onEvent func(percent int)
}

func newProgressReader(body []byte, onEvent func(int)) *progressReader {
	return &progressReader{r: bytes.NewReader(body), total: len(body), last: -1, onEvent: onEvent}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 && p.total > 0 {
		p.mu.Lock()
		p.read += n
		percent := int(math.Round(float64(p.read) * 100 / float64(p.total)))
		notify := percent != p.last
		p.last = percent
		p.mu.Unlock()
		if notify {
			p.onEvent(percent)
		}
	}
	return n, err
}
