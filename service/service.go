package service

import (
	"context"

	"github.com/layer-3/cobic/api"
)

// Requester is the request pipeline the services call through
type Requester interface {
	Get(ctx context.Context, endpoint string, out any, opts ...api.RequestOption) error
	Post(ctx context.Context, endpoint string, body, out any, opts ...api.RequestOption) error
	Patch(ctx context.Context, endpoint string, body, out any, opts ...api.RequestOption) error
}
