package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// KYC statuses reported by the backend
const (
	KYCStatusPending  = "pending"
	KYCStatusApproved = "approved"
	KYCStatusRejected = "rejected"
)

// User is the cached profile snapshot returned by /auth/me
type User struct {
	ID                     int64           `json:"id"`
	Username               string          `json:"username"`
	Email                  *string         `json:"email,omitempty"`
	ReferralCode           string          `json:"referralCode,omitempty"`
	ReferredBy             *int64          `json:"referredBy,omitempty"`
	IsAdmin                bool            `json:"isAdmin,omitempty"`
	IsGuest                bool            `json:"isGuest,omitempty"`
	Balance                decimal.Decimal `json:"balance"`
	NonTransferableBalance decimal.Decimal `json:"nonTransferableBalance"`
	LastMiningTime         *time.Time      `json:"lastMiningTime,omitempty"`
	LastDailyCheckInTime   *time.Time      `json:"lastDailyCheckInTime,omitempty"`
	MiningRate             decimal.Decimal `json:"miningRate"`
	UserMiningRate         decimal.Decimal `json:"userMiningRate"`
	BonusFactor            decimal.Decimal `json:"bonusFactor"`
	TotalMined             decimal.Decimal `json:"totalMined"`
	FullName               *string         `json:"fullName,omitempty"`
	DateOfBirth            *string         `json:"dateOfBirth,omitempty"`
	Country                *string         `json:"country,omitempty"`
	Address                *string         `json:"address,omitempty"`
	Bio                    *string         `json:"bio,omitempty"`
	PhoneNumber            *string         `json:"phoneNumber,omitempty"`
	KYCStatus              *string         `json:"kycStatus,omitempty"`
	KYCSubmissionTime      *time.Time      `json:"kycSubmissionTime,omitempty"`
	KYCVerificationTime    *time.Time      `json:"kycVerificationTime,omitempty"`
	KYCDocumentType        *string         `json:"kycDocumentType,omitempty"`
	KYCRejectionReason     *string         `json:"kycRejectionReason,omitempty"`

	// PlainPassword is only set for freshly created guest accounts so the
	// user can be shown the generated password once.
	PlainPassword string `json:"plainPassword,omitempty"`
}

// Validate checks the minimum identity a profile needs to back a session
func (u *User) Validate() error {
	if u == nil || u.ID == 0 || u.Username == "" {
		return ErrInvalidUser
	}
	return nil
}

// Clone returns a copy that shares no pointers with u
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Email = cloneString(u.Email)
	c.FullName = cloneString(u.FullName)
	c.DateOfBirth = cloneString(u.DateOfBirth)
	c.Country = cloneString(u.Country)
	c.Address = cloneString(u.Address)
	c.Bio = cloneString(u.Bio)
	c.PhoneNumber = cloneString(u.PhoneNumber)
	c.KYCStatus = cloneString(u.KYCStatus)
	c.KYCDocumentType = cloneString(u.KYCDocumentType)
	c.KYCRejectionReason = cloneString(u.KYCRejectionReason)
	c.LastMiningTime = cloneTime(u.LastMiningTime)
	c.LastDailyCheckInTime = cloneTime(u.LastDailyCheckInTime)
	c.KYCSubmissionTime = cloneTime(u.KYCSubmissionTime)
	c.KYCVerificationTime = cloneTime(u.KYCVerificationTime)
	if u.ReferredBy != nil {
		id := *u.ReferredBy
		c.ReferredBy = &id
	}
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// StringValue dereferences an optional profile field
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
