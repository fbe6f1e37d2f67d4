package service

import (
	"context"
	"strings"
	"time"

	"github.com/layer-3/cobic/api"
	"github.com/layer-3/cobic/core"
	"github.com/layer-3/cobic/ports"
)

// KYCService uploads identity documents
type KYCService struct {
	client  Requester
	profile ports.ProfileUpdater
	timeout time.Duration
	now     func() time.Time
}

// NewKYCService creates a KYC service. profile may be nil; timeout defaults to
// api.UploadTimeout.
func NewKYCService(client Requester, profile ports.ProfileUpdater, timeout time.Duration) *KYCService {
	if timeout <= 0 {
		timeout = api.UploadTimeout
	}
	return &KYCService{client: client, profile: profile, timeout: timeout, now: time.Now}
}

// Submit sends a KYC submission and marks the cached profile as pending
func (s *KYCService) Submit(ctx context.Context, sub core.KYCSubmission) (*core.MessageResponse, error) {
	sub.FullName = strings.TrimSpace(sub.FullName)
	sub.Address = strings.TrimSpace(sub.Address)
	sub.IdentityNumber = strings.TrimSpace(sub.IdentityNumber)
	sub.Country = strings.ToUpper(strings.TrimSpace(sub.Country))
	if sub.DocumentType == "" {
		sub.DocumentType = core.DocumentNationalID
	}
	if err := validateStruct(&sub); err != nil {
		return nil, err
	}
	sub.IDCardFrontImage = sub.DocumentFront
	sub.IDCardBackImage = sub.DocumentBack

	var res core.MessageResponse
	if err := s.client.Post(ctx, api.EndpointKYC, sub, &res, api.WithTimeout(s.timeout)); err != nil {
		return nil, err
	}

	if s.profile != nil {
		submittedAt := s.now()
		status := core.KYCStatusPending
		docType := sub.DocumentType
		_ = s.profile.UpdateUser(ctx, func(u *core.User) {
			u.KYCStatus = &status
			u.KYCSubmissionTime = &submittedAt
			u.KYCDocumentType = &docType
			u.KYCRejectionReason = nil
		})
	}
	return &res, nil
}
