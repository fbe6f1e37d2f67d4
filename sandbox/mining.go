package sandbox

import (
	"context"
	"fmt"

	"github.com/layer-3/cobic/core"
)

// MiningStatus reports whether userID can mine and when it next can
func (b *Backend) MiningStatus(ctx context.Context, userID int64) (*core.MiningStatus, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	acc, err := b.lookup(userID)
	if err != nil {
		return nil, err
	}

	status := &core.MiningStatus{
		CanMine:        true,
		MiningRate:     b.opts.MiningReward.Mul(acc.user.BonusFactor),
		BaseMiningRate: b.opts.MiningReward,
		UserMiningRate: acc.user.UserMiningRate,
		LastMiningTime: acc.user.LastMiningTime,
		CooldownHours:  b.opts.MiningCooldown.Hours(),
	}
	if last := acc.user.LastMiningTime; last != nil {
		next := last.Add(b.opts.MiningCooldown)
		if b.now().Before(next) {
			status.CanMine = false
			status.NextMiningTime = &next
		}
	}
	return status, nil
}

// Mine credits the mining reward once per cooldown window
func (b *Backend) Mine(ctx context.Context, userID int64) (*core.MiningResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	acc, err := b.lookup(userID)
	if err != nil {
		return nil, err
	}

	now := b.now()
	if last := acc.user.LastMiningTime; last != nil {
		if next := last.Add(b.opts.MiningCooldown); now.Before(next) {
			return nil, &CooldownError{Action: "mining", Next: next, Now: now}
		}
	}

	amount := b.opts.MiningReward.Mul(acc.user.BonusFactor)
	b.creditLocked(acc, amount, core.TransactionMining, "Mining reward")
	acc.user.TotalMined = acc.user.TotalMined.Add(amount)
	acc.user.LastMiningTime = &now

	b.logger.WithField("user_id", userID).WithField("amount", amount.String()).Debug("Mined")
	return &core.MiningResult{Amount: amount, Balance: acc.user.Balance}, nil
}

// CheckIn credits the daily check-in reward once per cooldown window
func (b *Backend) CheckIn(ctx context.Context, userID int64) (*core.DailyCheckInResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	acc, err := b.lookup(userID)
	if err != nil {
		return nil, err
	}

	now := b.now()
	if last := acc.user.LastDailyCheckInTime; last != nil {
		if next := last.Add(b.opts.CheckInCooldown); now.Before(next) {
			return nil, &CooldownError{Action: "daily check-in", Next: next, Now: now}
		}
	}

	b.creditLocked(acc, b.opts.CheckInReward, core.TransactionMining, "Daily check-in reward")
	acc.user.LastDailyCheckInTime = &now
	next := now.Add(b.opts.CheckInCooldown)

	return &core.DailyCheckInResult{
		Success:         true,
		Message:         fmt.Sprintf("Checked in! You earned %s COBIC.", b.opts.CheckInReward.String()),
		Reward:          b.opts.CheckInReward,
		NextCheckInTime: &next,
		NewBalance:      acc.user.Balance,
	}, nil
}

// Stats summarises the network for the public endpoint
func (b *Backend) Stats(ctx context.Context) *core.SystemStats {
	b.mu.Lock()
	defer b.mu.Unlock()

	return &core.SystemStats{
		GlobalMiningRate: b.opts.MiningReward,
		DecayFactor:      decimalOne,
		TotalSupply:      b.opts.TotalSupply,
		CurrentSupply:    b.supply,
		UserCount:        len(b.accounts),
	}
}
