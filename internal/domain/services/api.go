package services

import (
	"context"

	"github.com/devilmonastery/salesdesk/internal/client"
)

// API is the part of the request pipeline the services call. *client.Client
// satisfies it.
type API interface {
	Get(ctx context.Context, path string, opts ...client.RequestOption) (*client.Envelope, error)
	Post(ctx context.Context, path string, body any, opts ...client.RequestOption) (*client.Envelope, error)
	Patch(ctx context.Context, path string, body any, opts ...client.RequestOption) (*client.Envelope, error)
	Upload(ctx context.Context, path string, payload client.UploadPayload, onProgress func(percent int)) (*client.Envelope, error)
	Tokens() client.TokenManager
}

var _ API = (*client.Client)(nil)
