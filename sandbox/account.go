package sandbox

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/layer-3/cobic/core"
)

// UpdateUsername renames an account
func (b *Backend) UpdateUsername(ctx context.Context, userID int64, username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidInput)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	acc, err := b.lookup(userID)
	if err != nil {
		return err
	}
	key := strings.ToLower(username)
	if id, taken := b.byUsername[key]; taken && id != userID {
		return ErrUserExists
	}
	delete(b.byUsername, strings.ToLower(acc.user.Username))
	b.byUsername[key] = userID
	acc.user.Username = username
	return nil
}

// ChangePassword replaces the password after checking the current one
func (b *Backend) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	if next == "" {
		return fmt.Errorf("%w: new password is required", ErrInvalidInput)
	}

	b.mu.Lock()
	acc, err := b.lookup(userID)
	var hash []byte
	if err == nil {
		hash = acc.passwordHash
	}
	b.mu.Unlock()
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(current)); err != nil {
		return ErrWrongPassword
	}
	newHash, err := bcrypt.GenerateFromPassword([]byte(next), b.opts.PasswordCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	acc.passwordHash = newHash
	acc.user.IsGuest = false
	return nil
}

// UpdateEmail changes the contact address
func (b *Backend) UpdateEmail(ctx context.Context, userID int64, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	acc, err := b.lookup(userID)
	if err != nil {
		return err
	}
	for id, other := range b.accounts {
		if id != userID && other.user.Email != nil && strings.EqualFold(*other.user.Email, email) {
			return ErrEmailExists
		}
	}
	acc.user.Email = &email
	return nil
}

// UpdateProfile copies the non-nil fields of update
func (b *Backend) UpdateProfile(ctx context.Context, userID int64, update core.ProfileUpdate) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	acc, err := b.lookup(userID)
	if err != nil {
		return err
	}
	u := &acc.user
	for _, f := range []struct {
		dst **string
		src *string
	}{
		{&u.Email, update.Email},
		{&u.FullName, update.FullName},
		{&u.DateOfBirth, update.DateOfBirth},
		{&u.Country, update.Country},
		{&u.Address, update.Address},
		{&u.Bio, update.Bio},
		{&u.PhoneNumber, update.PhoneNumber},
	} {
		if f.src != nil {
			v := *f.src
			*f.dst = &v
		}
	}
	return nil
}

// ApplyReferral links userID to the owner of code and pays both sides
func (b *Backend) ApplyReferral(ctx context.Context, userID int64, code string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	acc, err := b.lookup(userID)
	if err != nil {
		return err
	}
	referrerID, ok := b.byCode[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return ErrInvalidReferral
	}
	if referrerID == userID {
		return ErrSelfReferral
	}
	if acc.user.ReferredBy != nil {
		return ErrAlreadyReferred
	}
	referrer := b.accounts[referrerID]
	if len(referrer.referred) >= b.opts.MaxReferrals {
		return ErrReferralLimitReached
	}

	acc.user.ReferredBy = &referrerID
	referrer.referred = append(referrer.referred, core.ReferredUser{Username: acc.user.Username, JoinedAt: b.now()})
	b.creditLocked(referrer, b.opts.ReferralBonus, core.TransactionAdmin, "Referral bonus")
	b.creditLocked(acc, b.opts.ReferralBonus, core.TransactionAdmin, "Referral bonus")
	return nil
}

// ReferralStats reports both directions of userID's referrals
func (b *Backend) ReferralStats(ctx context.Context, userID int64) (*core.ReferralStats, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	acc, err := b.lookup(userID)
	if err != nil {
		return nil, err
	}

	stats := &core.ReferralStats{
		CurrentReferrals:   len(acc.referred),
		MaxReferrals:       b.opts.MaxReferrals,
		RemainingReferrals: b.opts.MaxReferrals - len(acc.referred),
		ReferredByMe:       append([]core.ReferredUser{}, acc.referred...),
		WhoReferredMe:      []core.Referrer{},
	}
	if acc.user.ReferredBy != nil {
		if ref, ok := b.accounts[*acc.user.ReferredBy]; ok {
			stats.WhoReferredMe = append(stats.WhoReferredMe, core.Referrer{
				Username:     ref.user.Username,
				ReferralCode: ref.user.ReferralCode,
			})
		}
	}
	return stats, nil
}

// SubmitKYC stores a submission and marks the account pending review
func (b *Backend) SubmitKYC(ctx context.Context, userID int64, sub core.KYCSubmission) error {
	if sub.FullName == "" || sub.IdentityNumber == "" || sub.DocumentFront == "" || sub.SelfieWithIDCard == "" {
		return fmt.Errorf("%w: incomplete KYC submission", ErrInvalidInput)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	acc, err := b.lookup(userID)
	if err != nil {
		return err
	}
	if s := core.StringValue(acc.user.KYCStatus); s == core.KYCStatusPending || s == core.KYCStatusApproved {
		return ErrKYCAlreadySubmitted
	}

	now := b.now()
	status := core.KYCStatusPending
	docType := sub.DocumentType
	fullName := sub.FullName
	dob := sub.DateOfBirth
	address := sub.Address
	country := sub.Country
	acc.user.KYCStatus = &status
	acc.user.KYCSubmissionTime = &now
	acc.user.KYCDocumentType = &docType
	acc.user.KYCRejectionReason = nil
	acc.user.FullName = &fullName
	acc.user.DateOfBirth = &dob
	acc.user.Address = &address
	acc.user.Country = &country

	b.logger.WithField("user_id", userID).Info("KYC submitted")
	return nil
}
