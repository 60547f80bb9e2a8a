package client

import (
	"context"
)

// Get performs a GET and decodes the envelope payload as T.
func Get[T any](ctx context.Context, c *Client, path string, opts ...RequestOption) (*Response[T], error) {
	return decoded[T](c.Get(ctx, path, opts...))
}

// Post performs a POST and decodes the envelope payload as T.
func Post[T any](ctx context.Context, c *Client, path string, body any, opts ...RequestOption) (*Response[T], error) {
	return decoded[T](c.Post(ctx, path, body, opts...))
}

// Put performs a PUT and decodes the envelope payload as T.
func Put[T any](ctx context.Context, c *Client, path string, body any, opts ...RequestOption) (*Response[T], error) {
	return decoded[T](c.Put(ctx, path, body, opts...))
}

// Patch performs a PATCH and decodes the envelope payload as T.
func Patch[T any](ctx context.Context, c *Client, path string, body any, opts ...RequestOption) (*Response[T], error) {
	return decoded[T](c.Patch(ctx, path, body, opts...))
}

// Delete performs a DELETE and decodes the envelope payload as T.
func Delete[T any](ctx context.Context, c *Client, path string, opts ...RequestOption) (*Response[T], error) {
	return decoded[T](c.Delete(ctx, path, opts...))
}

// Upload posts a multipart payload and decodes the envelope payload as T.
func Upload[T any](ctx context.Context, c *Client, path string, payload UploadPayload, onProgress func(int)) (*Response[T], error) {
	return decoded[T](c.Upload(ctx, path, payload, onProgress))
}

func decoded[T any](env *Envelope, err error) (*Response[T], error) {
	if err != nil {
		return nil, err
	}
	return Decode[T](env)
}
