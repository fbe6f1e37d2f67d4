package service

import (
	"context"
	"strings"

	"github.com/layer-3/cobic/api"
	"github.com/layer-3/cobic/core"
	"github.com/layer-3/cobic/ports"
)

// QRService wraps receipt scanning
type QRService struct {
	client  Requester
	profile ports.ProfileUpdater
}

// NewQRService creates a QR service. profile may be nil.
func NewQRService(client Requester, profile ports.ProfileUpdater) *QRService {
	return &QRService{client: client, profile: profile}
}

type scanRequest struct {
	QRContent string `json:"qrContent" validate:"required,max=2048"`
}

// Scan submits the content of a scanned receipt code
func (s *QRService) Scan(ctx context.Context, content string) (*core.QRScanResult, error) {
	req := scanRequest{QRContent: strings.TrimSpace(content)}
	if err := validateStruct(&req); err != nil {
		return nil, err
	}

	var res core.QRScanResult
	if err := s.client.Post(ctx, api.EndpointQRScan, req, &res); err != nil {
		return nil, err
	}
	if s.profile != nil && res.Success {
		_ = s.profile.UpdateUser(ctx, func(u *core.User) {
			u.Balance = res.NewBalance
		})
	}
	return &res, nil
}

// History lists earlier scans
func (s *QRService) History(ctx context.Context) ([]core.ScanHistoryItem, error) {
	var items []core.ScanHistoryItem
	if err := s.client.Get(ctx, api.EndpointQRHistory, &items); err != nil {
		return nil, err
	}
	return items, nil
}
