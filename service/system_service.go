package service

import (
	"context"

	"github.com/layer-3/cobic/api"
	"github.com/layer-3/cobic/core"
)

// SystemService reads the public network statistics
type SystemService struct {
	client Requester
}

func NewSystemService(client Requester) *SystemService {
	return &SystemService{client: client}
}

// PublicStats works without a credential
func (s *SystemService) PublicStats(ctx context.Context) (*core.SystemStats, error) {
	var stats core.SystemStats
	if err := s.client.Get(ctx, api.EndpointPublicStats, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
