package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// MiningStatus is the response of GET /mining/status
type MiningStatus struct {
	CanMine        bool            `json:"canMine"`
	MiningRate     decimal.Decimal `json:"miningRate"`
	BaseMiningRate decimal.Decimal `json:"baseMiningRate"`
	UserMiningRate decimal.Decimal `json:"userMiningRate"`
	LastMiningTime *time.Time      `json:"lastMiningTime,omitempty"`
	NextMiningTime *time.Time      `json:"nextMiningTime,omitempty"`
	CooldownHours  float64         `json:"cooldownHours"`
}

// NextEligible returns the cooldown target, or the zero time when mining is
// available now
func (s *MiningStatus) NextEligible() time.Time {
	if s == nil || s.NextMiningTime == nil {
		return time.Time{}
	}
	return *s.NextMiningTime
}

// MiningResult is the response of POST /mining/mine
type MiningResult struct {
	Amount  decimal.Decimal `json:"amount"`
	Balance decimal.Decimal `json:"balance"`
}

// DailyCheckInResult is the response of POST /mining/daily-check-in
type DailyCheckInResult struct {
	Success         bool            `json:"success"`
	Message         string          `json:"message"`
	Reward          decimal.Decimal `json:"reward"`
	NextCheckInTime *time.Time      `json:"nextCheckInTime,omitempty"`
	NewBalance      decimal.Decimal `json:"newBalance"`
}

// CheckInCooldown is the 400 body returned when the daily check-in was
// already used inside the current window
type CheckInCooldown struct {
	Error           string     `json:"error"`
	NextCheckInTime *time.Time `json:"nextCheckInTime,omitempty"`
	RemainingHours  string     `json:"remainingHours"`
}

// SystemStats is the response of the public GET /public/stats
type SystemStats struct {
	GlobalMiningRate   decimal.Decimal `json:"globalMiningRate"`
	DecayFactor        decimal.Decimal `json:"decayFactor"`
	LastDecayDate      string          `json:"lastDecayDate"`
	LastDecayUserCount int             `json:"lastDecayUserCount"`
	TotalSupply        decimal.Decimal `json:"totalSupply"`
	CurrentSupply      decimal.Decimal `json:"currentSupply"`
	UserCount          int             `json:"userCount"`
}
