package service

import (
	"context"
	"strings"

	"github.com/layer-3/cobic/api"
	"github.com/layer-3/cobic/core"
	"github.com/layer-3/cobic/ports"
)

// UserService wraps the account settings and referral endpoints
type UserService struct {
	client  Requester
	profile ports.ProfileUpdater
}

// NewUserService creates a user service. profile may be nil.
func NewUserService(client Requester, profile ports.ProfileUpdater) *UserService {
	return &UserService{client: client, profile: profile}
}

type usernameRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32"`
}

type passwordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6,nefield=CurrentPassword"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type referralRequest struct {
	ReferralCode string `json:"referralCode" validate:"required,alphanum"`
}

// UpdateUsername renames the account
func (s *UserService) UpdateUsername(ctx context.Context, username string) (*core.MessageResponse, error) {
	req := usernameRequest{Username: strings.TrimSpace(username)}
	if err := validateStruct(&req); err != nil {
		return nil, err
	}

	var res core.MessageResponse
	if err := s.client.Patch(ctx, api.EndpointUsername, req, &res); err != nil {
		return nil, err
	}
	s.update(ctx, func(u *core.User) { u.Username = req.Username })
	return &res, nil
}

// ChangePassword replaces the account password
func (s *UserService) ChangePassword(ctx context.Context, currentPassword, newPassword string) (*core.MessageResponse, error) {
	req := passwordRequest{CurrentPassword: currentPassword, NewPassword: newPassword}
	if err := validateStruct(&req); err != nil {
		return nil, err
	}

	var res core.MessageResponse
	if err := s.client.Patch(ctx, api.EndpointPassword, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// UpdateProfile changes the personal details that are set in update
func (s *UserService) UpdateProfile(ctx context.Context, update core.ProfileUpdate) (*core.MessageResponse, error) {
	if err := validateStruct(&update); err != nil {
		return nil, err
	}

	var res core.MessageResponse
	if err := s.client.Patch(ctx, api.EndpointProfile, update, &res); err != nil {
		return nil, err
	}
	s.update(ctx, func(u *core.User) {
		setIfPresent(&u.Email, update.Email)
		setIfPresent(&u.FullName, update.FullName)
		setIfPresent(&u.DateOfBirth, update.DateOfBirth)
		setIfPresent(&u.Country, update.Country)
		setIfPresent(&u.Address, update.Address)
		setIfPresent(&u.Bio, update.Bio)
		setIfPresent(&u.PhoneNumber, update.PhoneNumber)
	})
	return &res, nil
}

// UpdateEmail changes the contact address
func (s *UserService) UpdateEmail(ctx context.Context, email string) (*core.MessageResponse, error) {
	req := emailRequest{Email: strings.TrimSpace(email)}
	if err := validateStruct(&req); err != nil {
		return nil, err
	}

	var res core.MessageResponse
	if err := s.client.Patch(ctx, api.EndpointEmail, req, &res); err != nil {
		return nil, err
	}
	s.update(ctx, func(u *core.User) { u.Email = &req.Email })
	return &res, nil
}

// SubmitReferral redeems another user's referral code
func (s *UserService) SubmitReferral(ctx context.Context, code string) (*core.MessageResponse, error) {
	req := referralRequest{ReferralCode: strings.ToUpper(strings.TrimSpace(code))}
	if err := validateStruct(&req); err != nil {
		return nil, err
	}

	var res core.MessageResponse
	if err := s.client.Post(ctx, api.EndpointReferral, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ReferralStats returns who the user referred and who referred them
func (s *UserService) ReferralStats(ctx context.Context) (*core.ReferralStats, error) {
	var stats core.ReferralStats
	if err := s.client.Get(ctx, api.EndpointReferralStats, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *UserService) update(ctx context.Context, fn func(u *core.User)) {
	if s.profile == nil {
		return
	}
	_ = s.profile.UpdateUser(ctx, fn)
}

func setIfPresent(dst **string, v *string) {
	if v != nil {
		value := *v
		*dst = &value
	}
}
