package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/layer-3/cobic/api"
	"github.com/layer-3/cobic/core"
	"github.com/layer-3/cobic/ports"
)

// CheckInScheduler keeps the local reminder for the next daily check-in
type CheckInScheduler interface {
	Schedule(ctx context.Context, at time.Time) error
}

// CheckInCooldownError is returned when the server refuses a check-in because
// the previous one is too recent
type CheckInCooldownError struct {
	NextCheckInTime time.Time
	RemainingHours  string
	Err             error
}

func (e *CheckInCooldownError) Error() string {
	if e.RemainingHours != "" {
		return fmt.Sprintf("already checked in within the last 24 hours; next check-in in %s hours", e.RemainingHours)
	}
	return "already checked in within the last 24 hours"
}

func (e *CheckInCooldownError) Unwrap() error { return e.Err }

// MiningService wraps mining and daily check-in. Confirmed balance changes are
// applied to the session profile; next eligible times feed the reminder.
type MiningService struct {
	client   Requester
	profile  ports.ProfileUpdater
	reminder CheckInScheduler
	now      func() time.Time
}

// NewMiningService creates a mining service. profile and reminder may be nil.
func NewMiningService(client Requester, profile ports.ProfileUpdater, reminder CheckInScheduler) *MiningService {
	return &MiningService{
		client:   client,
		profile:  profile,
		reminder: reminder,
		now:      time.Now,
	}
}

// Status fetches the mining cooldown state
func (s *MiningService) Status(ctx context.Context) (*core.MiningStatus, error) {
	var status core.MiningStatus
	if err := s.client.Get(ctx, api.EndpointMiningStatus, &status); err != nil {
		return nil, err
	}
	if next := status.NextEligible(); !next.IsZero() {
		s.schedule(ctx, next)
	}
	return &status, nil
}

// NextEligible returns when mining becomes available; zero means now. It is
// the fetch function of a countdown monitor.
func (s *MiningService) NextEligible(ctx context.Context) (time.Time, error) {
	status, err := s.Status(ctx)
	if err != nil {
		return time.Time{}, err
	}
	if status.CanMine {
		return time.Time{}, nil
	}
	return status.NextEligible(), nil
}

// Mine claims the accumulated points
func (s *MiningService) Mine(ctx context.Context) (*core.MiningResult, error) {
	var res core.MiningResult
	if err := s.client.Post(ctx, api.EndpointMine, nil, &res); err != nil {
		return nil, err
	}

	minedAt := s.now()
	s.updateProfile(ctx, func(u *core.User) {
		u.Balance = res.Balance
		u.TotalMined = u.TotalMined.Add(res.Amount)
		u.LastMiningTime = &minedAt
	})
	return &res, nil
}

// CheckIn performs the daily check-in. A refusal because of the cooldown is
// returned as *CheckInCooldownError.
func (s *MiningService) CheckIn(ctx context.Context) (*core.DailyCheckInResult, error) {
	var res core.DailyCheckInResult
	if err := s.client.Post(ctx, api.EndpointCheckIn, nil, &res); err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.Kind == api.KindClientError {
			var body core.CheckInCooldown
			if decodeErr := apiErr.DecodeBody(&body); decodeErr == nil && body.NextCheckInTime != nil {
				s.schedule(ctx, *body.NextCheckInTime)
				return nil, &CheckInCooldownError{
					NextCheckInTime: *body.NextCheckInTime,
					RemainingHours:  body.RemainingHours,
					Err:             err,
				}
			}
		}
		return nil, err
	}

	checkedInAt := s.now()
	s.updateProfile(ctx, func(u *core.User) {
		u.Balance = res.NewBalance
		u.LastDailyCheckInTime = &checkedInAt
	})
	if res.NextCheckInTime != nil {
		s.schedule(ctx, *res.NextCheckInTime)
	}
	return &res, nil
}

func (s *MiningService) schedule(ctx context.Context, at time.Time) {
	if s.reminder == nil {
		return
	}
	_ = s.reminder.Schedule(ctx, at)
}

func (s *MiningService) updateProfile(ctx context.Context, fn func(u *core.User)) {
	if s.profile == nil {
		return
	}
	_ = s.profile.UpdateUser(ctx, fn)
}
